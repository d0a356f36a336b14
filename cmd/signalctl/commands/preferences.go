package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/smartmatch/internal/database"
	"github.com/benvon/smartmatch/internal/models"
	"github.com/benvon/smartmatch/internal/validation"
	"github.com/spf13/cobra"
)

// NewPreferencesCmd creates the preferences command with show and set subcommands.
func NewPreferencesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preferences",
		Short: "Inspect or update stored match preferences",
	}
	cmd.AddCommand(newPreferencesShowCmd())
	cmd.AddCommand(newPreferencesSetCmd())
	return cmd
}

func newPreferencesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <userID>",
		Short: "Show stored preferences for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, db, closeDB, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			prefs, err := database.NewPreferencesRepository(db).GetUserPreferences(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get preferences: %w", err)
			}
			if prefs == nil {
				fmt.Println("No preferences stored; defaults apply.")
				prefs = models.DefaultPreferences(args[0])
			}
			printPreferences(prefs)
			return nil
		},
	}
}

func newPreferencesSetCmd() *cobra.Command {
	var (
		seeking string
		minAge  int
		maxAge  int
	)
	cmd := &cobra.Command{
		Use:   "set <userID>",
		Short: "Replace stored preferences for a user",
		Long:  "Writes preferences directly to the database. Running sessions pick the change up on their next login.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs := &models.Preferences{
				UserID:        args[0],
				SeekingGender: splitList(seeking),
				MinAge:        minAge,
				MaxAge:        maxAge,
			}
			if err := validation.ValidatePreferences(prefs); err != nil {
				return fmt.Errorf("invalid preferences: %w", err)
			}

			ctx := context.Background()
			_, db, closeDB, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := database.NewPreferencesRepository(db).UpsertUserPreferences(ctx, prefs); err != nil {
				return fmt.Errorf("update preferences: %w", err)
			}
			fmt.Println("Preferences updated.")
			printPreferences(prefs)
			return nil
		},
	}
	cmd.Flags().StringVar(&seeking, "seeking", "", "Comma-separated genders (female, male, nonbinary); empty means any")
	cmd.Flags().IntVar(&minAge, "min-age", models.DefaultMinAge, "Minimum candidate age")
	cmd.Flags().IntVar(&maxAge, "max-age", models.DefaultMaxAge, "Maximum candidate age")
	return cmd
}

func printPreferences(p *models.Preferences) {
	seeking := "any"
	if len(p.SeekingGender) > 0 {
		seeking = strings.Join(p.SeekingGender, ", ")
	}
	fmt.Printf("User:     %s\n", p.UserID)
	fmt.Printf("Seeking:  %s\n", seeking)
	fmt.Printf("Ages:     %d-%d\n", p.MinAge, p.MaxAge)
	if !p.UpdatedAt.IsZero() {
		fmt.Printf("Updated:  %s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}
