// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "genovault",
	Short: "GenoVault is a metadata and access management service for clinical-genomics datasets",
	Long: `GenoVault manages the family / participant / sample / dataset hierarchy of a
rare-disease research network, scopes access through permission groups, and keeps
those groups in two-way correspondence with an S3-compatible object store.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
