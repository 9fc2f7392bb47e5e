package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerembed/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(version.GetVersionInfo())
	},
}
