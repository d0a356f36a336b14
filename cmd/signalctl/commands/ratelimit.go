package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/smartmatch/internal/database"
	"github.com/benvon/smartmatch/internal/models"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
)

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long:  "List or update rate limits (e.g. 5-S, 100-M). Stored in database and picked up by running servers.",
	}
	cmd.AddCommand(newRatelimitListCmd())
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func newRatelimitListCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List current rate limit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, db, closeDB, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			c, err := database.NewRatelimitConfigRepository(db).Get(ctx, key)
			if err != nil {
				return fmt.Errorf("get ratelimit config: %w", err)
			}
			if c == nil {
				fmt.Printf("No rate limit configuration stored under %q. Use 'ratelimit set' to add one.\n", key)
				return nil
			}
			fmt.Println("Rate limit configuration:")
			fmt.Printf("  Key:     %s\n", c.ConfigKey)
			fmt.Printf("  Rate:    %s\n", c.Rate)
			fmt.Printf("  Updated: %s\n", c.UpdatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", database.InteractionsRatelimitKey, "Config key")
	return cmd
}

func newRatelimitSetCmd() *cobra.Command {
	var (
		rate string
		key  string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set rate limit configuration",
		Long:  "Update a rate limit (e.g. 5-S, 100-M, 1000-H). Stored in database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = strings.TrimSpace(rate)
			if err := checkRate(rate); err != nil {
				return err
			}

			ctx := context.Background()
			_, db, closeDB, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			c := &models.RatelimitConfig{ConfigKey: key, Rate: rate}
			if err := database.NewRatelimitConfigRepository(db).Set(ctx, c); err != nil {
				return fmt.Errorf("set ratelimit config: %w", err)
			}
			fmt.Println("Rate limit configuration updated.")
			return nil
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	cmd.Flags().StringVar(&key, "key", database.InteractionsRatelimitKey, "Config key")
	return cmd
}

// checkRate rejects rates the server would refuse to load.
func checkRate(rate string) error {
	if rate == "" {
		return fmt.Errorf("--rate is required (e.g. 5-S, 100-M)")
	}
	if _, err := limiter.NewRateFromFormatted(rate); err != nil {
		return fmt.Errorf("invalid --rate %q: %w", rate, err)
	}
	return nil
}
