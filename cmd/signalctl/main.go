package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/benvon/smartmatch/cmd/signalctl/commands"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	var rootCmd = &cobra.Command{
		Use:   "signalctl",
		Short: "Operator tool for the SmartMatch signal pipeline",
		Long:  "CLI tool for inspecting presence, user preferences and interaction stats, and for managing rate limits",
	}

	rootCmd.AddCommand(commands.NewPresenceCmd())
	rootCmd.AddCommand(commands.NewPreferencesCmd())
	rootCmd.AddCommand(commands.NewProfileCmd())
	rootCmd.AddCommand(commands.NewStatsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewMigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
