// Command embedding-service serves speaker embeddings over HTTP and can
// run a single extraction from the command line.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerembed/version"
)

var (
	configFile string
	envFile    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Speaker embedding extraction service",
	Long: `embedding-service turns an uploaded audio clip into a 192-dimensional
ECAPA-TDNN speaker embedding.

Examples:
  # Serve on PORT (default 5001)
  embedding-service serve

  # Extract one file and print the JSON result
  embedding-service extract sample.wav`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config.yml")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file")
	rootCmd.AddCommand(serveCmd, extractCmd, versionCmd)
}
