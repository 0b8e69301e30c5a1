package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "cortexa-cli",
	Short: "A CLI client for the Cortexa chat service",
	Long:  `A command-line interface for chatting with Cortexa and minting development tokens.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", envOr("CORTEXA_URL", "http://localhost:8000"), "chat service base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("CORTEXA_TOKEN"), "bearer token")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
