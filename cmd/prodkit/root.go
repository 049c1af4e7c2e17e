package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

var (
	configPath  string
	projectRoot string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "prodkit",
	Short: "Deploy a dockerized project to a VPS over SSH",
	Long: `prodkit takes a project directory with a compose file and pushes it
to a remote host: it provisions Docker if needed, uploads the project
tree, and launches the application with docker compose.`,
	Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&projectRoot, "project-root", ".", "project directory to operate on")
}

// Execute runs the CLI. Errors are printed here so main stays trivial.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
	}
	return err
}
