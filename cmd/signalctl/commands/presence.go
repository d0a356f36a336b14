package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/benvon/smartmatch/internal/database"
	"github.com/benvon/smartmatch/internal/presence"
	"github.com/spf13/cobra"
)

// NewPresenceCmd creates the presence lookup command
func NewPresenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presence <userID> [userID...]",
		Short: "Show the presence label of one or more users",
		Long:  "Resolves presence exactly as the API does: channel membership from Redis combined with the stored last activity.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, db, closeDB, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			defer func() {
				if err := rdb.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close redis client: %v\n", err)
				}
			}()

			svc := presence.NewService(
				presence.NewResolver(presence.WithGraceWindow(cfg.Pipeline.PresenceGraceWindow)),
				presence.NewRedisChannelService(rdb),
				database.NewUserActivityRepository(db),
				cfg.Pipeline.PresenceChannel,
				cfg.Pipeline.IOTimeout,
				nil,
			)
			states, err := svc.GetPresenceMany(ctx, args)
			if err != nil {
				return fmt.Errorf("resolve presence: %w", err)
			}
			for _, s := range states {
				status := "offline"
				if s.IsOnline {
					status = "online"
				}
				fmt.Printf("%s\t%s\t%s\n", s.UserID, status, s.LastSeenLabel)
			}
			return nil
		},
	}
}
