package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/smartmatch/internal/database"
	"github.com/spf13/cobra"
)

// NewStatsCmd creates the interaction stats command
func NewStatsCmd() *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "stats <userID>",
		Short: "Show interaction counts by kind for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if since <= 0 {
				return fmt.Errorf("--since must be positive")
			}
			ctx := context.Background()
			_, db, closeDB, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			from := time.Now().Add(-since)
			counts, err := database.NewInteractionRepository(db).CountByKind(ctx, args[0], from)
			if err != nil {
				return fmt.Errorf("count interactions: %w", err)
			}
			active, err := database.NewUserActivityRepository(db).CountActiveSince(ctx, from)
			if err != nil {
				return fmt.Errorf("count active users: %w", err)
			}

			fmt.Printf("Interactions by %s in the last %s:\n", args[0], since)
			if len(counts) == 0 {
				fmt.Println("  (none)")
			}
			for _, c := range counts {
				fmt.Printf("  %-14s %d\n", c.Kind, c.Count)
			}
			fmt.Printf("Users active in the same period: %d\n", active)
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Look-back window")
	return cmd
}
