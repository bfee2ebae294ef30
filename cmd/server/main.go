package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aura-scribe",
	Short: "Aura Scribe backend",
	Long: `Aura Scribe serves the symptom tracker pages and relays chat turns,
voiced by a remotely hosted persona, to Gemini for signed-in users.

Configuration comes from the environment (and a .env file if present).
Running without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var personaCmd = &cobra.Command{
	Use:   "persona",
	Short: "Fetch the persona document once and print it",
	Long: `Performs the same authenticated fetch a chat turn does and prints the
document to stdout. Useful to check SOUL_REPO_TOKEN and the repository
coordinates after a deployment.`,
	RunE: runPersona,
}

func init() {
	rootCmd.AddCommand(serveCmd, personaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
