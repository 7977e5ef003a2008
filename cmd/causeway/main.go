// Command causeway runs the incident-investigation service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "causeway",
	Short: "Causeway incident-investigation service",
	Long: `causeway investigates production incidents: it retrieves relevant
knowledge-base documents, clusters recent log data and produces a
root-cause analysis through a completion service.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(investigateCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
