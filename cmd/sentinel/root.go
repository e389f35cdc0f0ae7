package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - security and resilience gateway for LLM traffic",
	Long: `Sentinel is an HTTP gateway that sits between applications and LLM
providers, adding the protections production traffic needs:

  - Rate limiting with a sliding window per client
  - PII detection and redaction before prompts leave the building
  - Response caching keyed by request fingerprint
  - Circuit breakers and retry with backoff per provider
  - Multi-provider routing with failover (OpenAI, Anthropic)
  - Normalized Server-Sent Events streaming`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
