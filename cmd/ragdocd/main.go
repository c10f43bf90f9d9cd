package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/ragdoc/internal/cli"
	"github.com/cloo-solutions/ragdoc/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ragdocd",
		Short: "ragdoc daemon",
		Long:  "ragdoc daemon: runs the ingestion and question-answering API, migrations and index repair",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.ReindexCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
