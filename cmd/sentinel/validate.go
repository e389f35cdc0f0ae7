package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sentinel-hq/sentinel/pkg/cli"
	"sentinel-hq/sentinel/pkg/config"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the gateway configuration",
	Long: `Load and validate a configuration file without starting the gateway.

Validation checks the listen address, store backend, provider definitions,
routing preferences, shield actions, and all resilience settings, and
reports every violation it finds rather than stopping at the first.

Examples:
  # Validate the default config file
  sentinel validate

  # Validate a specific file with JSON output
  sentinel validate --config /etc/sentinel/config.yaml --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

// validationReport is the output of the validate command.
type validationReport struct {
	Valid     bool     `json:"valid"`
	Path      string   `json:"path"`
	Providers int      `json:"providers,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

func validateConfig(cmd *cobra.Command, args []string) error {
	report := validationReport{Path: cfgFile}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var valErr config.ValidationError
		if errors.As(err, &valErr) {
			for _, fe := range valErr.Errors {
				report.Errors = append(report.Errors, fe.Error())
			}
		} else {
			report.Errors = append(report.Errors, err.Error())
		}
	} else {
		report.Valid = true
		report.Providers = len(cfg.Providers)
	}

	formatter := cli.NewFormatter(cli.OutputFormat(validateFlags.format))
	if _, ok := formatter.(*cli.JSONFormatter); ok {
		if err := formatter.FormatTo(os.Stdout, report); err != nil {
			return err
		}
	} else {
		printReport(report)
	}

	if !report.Valid {
		return cli.NewCommandError("validate", fmt.Errorf("%d error(s) found", len(report.Errors)))
	}
	return nil
}

func printReport(report validationReport) {
	if report.Valid {
		fmt.Printf("%s: configuration valid (%d provider(s))\n", report.Path, report.Providers)
		return
	}
	fmt.Printf("%s: configuration invalid\n", report.Path)
	for _, e := range report.Errors {
		fmt.Printf("  - %s\n", e)
	}
}
