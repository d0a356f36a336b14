package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/smartmatch/internal/database"
	"github.com/benvon/smartmatch/internal/models"
	"github.com/spf13/cobra"
)

const birthDateLayout = "2006-01-02"

// NewProfileCmd creates the profile command used to seed candidate attributes.
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect or seed profile attributes used for candidate filtering",
	}
	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileSetCmd())
	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <userID>",
		Short: "Show the stored profile attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, db, closeDB, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			p, err := database.NewProfileRepository(db).Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get profile: %w", err)
			}
			if p == nil {
				fmt.Printf("No profile stored for %s.\n", args[0])
				return nil
			}
			gender := p.Gender
			if gender == "" {
				gender = "(unset)"
			}
			fmt.Printf("User:       %s\n", p.UserID)
			fmt.Printf("Gender:     %s\n", gender)
			fmt.Printf("Birth date: %s\n", p.BirthDate.Format(birthDateLayout))
			return nil
		},
	}
}

func newProfileSetCmd() *cobra.Command {
	var (
		gender    string
		birthDate string
	)
	cmd := &cobra.Command{
		Use:   "set <userID>",
		Short: "Create or replace profile attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseProfile(args[0], gender, birthDate)
			if err != nil {
				return err
			}

			ctx := context.Background()
			_, db, closeDB, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := database.NewProfileRepository(db).Upsert(ctx, p); err != nil {
				return fmt.Errorf("update profile: %w", err)
			}
			fmt.Printf("Profile for %s updated.\n", p.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&gender, "gender", "", "Gender (female, male, nonbinary)")
	cmd.Flags().StringVar(&birthDate, "birth-date", "", "Birth date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("birth-date")
	return cmd
}

func parseProfile(userID, gender, birthDate string) (*models.Profile, error) {
	gender = strings.ToLower(strings.TrimSpace(gender))
	switch gender {
	case "", "female", "male", "nonbinary":
	default:
		return nil, fmt.Errorf("invalid gender %q (expected female, male or nonbinary)", gender)
	}
	born, err := time.Parse(birthDateLayout, strings.TrimSpace(birthDate))
	if err != nil {
		return nil, fmt.Errorf("invalid --birth-date %q: expected YYYY-MM-DD", birthDate)
	}
	if born.After(time.Now()) {
		return nil, fmt.Errorf("--birth-date cannot be in the future")
	}
	return &models.Profile{UserID: userID, Gender: gender, BirthDate: born}, nil
}
