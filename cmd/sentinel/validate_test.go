package main

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
gateway:
  listen_address: "127.0.0.1:8080"
providers:
  openai:
    base_url: "https://api.openai.com/v1"
    api_key: "sk-test"
routing:
  preference: ["openai"]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// ===== Validate Command =====

func TestValidateCommandValid(t *testing.T) {
	cfgFile = writeConfig(t, validYAML)
	validateFlags.format = "text"

	if err := validateConfig(validateCmd, nil); err != nil {
		t.Errorf("validateConfig() error = %v", err)
	}
}

func TestValidateCommandInvalid(t *testing.T) {
	cfgFile = writeConfig(t, `
gateway:
  listen_address: ""
providers: {}
`)
	validateFlags.format = "text"

	if err := validateConfig(validateCmd, nil); err == nil {
		t.Error("expected error for invalid configuration")
	}
}

func TestValidateCommandMissingFile(t *testing.T) {
	cfgFile = filepath.Join(t.TempDir(), "absent.yaml")
	validateFlags.format = "json"

	if err := validateConfig(validateCmd, nil); err == nil {
		t.Error("expected error for missing file")
	}
}
