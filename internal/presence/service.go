package presence

import (
	"context"
	"time"

	"github.com/benvon/smartmatch/internal/apperr"
	"github.com/benvon/smartmatch/internal/logger"
	"github.com/benvon/smartmatch/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ActivityReader reads the last recorded activity of a user. A nil time means never seen.
type ActivityReader interface {
	GetLastActiveAt(ctx context.Context, userID string) (*time.Time, error)
}

const maxConcurrentLookups = 8

// Service answers presence queries by combining a channel membership snapshot with
// the stored last-activity timestamp.
type Service struct {
	resolver *Resolver
	channels ChannelService
	activity ActivityReader
	channel  string
	timeout  time.Duration
	log      *zap.Logger
}

// NewService creates a presence service. channel is the real-time channel that counts as "online".
func NewService(resolver *Resolver, channels ChannelService, activity ActivityReader, channel string, timeout time.Duration, log *zap.Logger) *Service {
	if resolver == nil {
		resolver = NewResolver()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		resolver: resolver,
		channels: channels,
		activity: activity,
		channel:  channel,
		timeout:  timeout,
		log:      logger.OrNop(log),
	}
}

// GetPresence resolves the presence of userID. Lookup failures degrade to "not a member"
// and "never seen" rather than failing the query.
func (s *Service) GetPresence(ctx context.Context, userID string) (models.PresenceState, error) {
	if userID == "" {
		return models.PresenceState{}, apperr.Configuration("user id is required for presence")
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	member := false
	if s.channels != nil {
		ok, err := s.channels.IsMember(lookupCtx, s.channel, userID)
		if err != nil {
			s.log.Warn("failed_to_read_channel_membership",
				logger.UserID(userID),
				zap.String("channel", s.channel),
				zap.Error(err),
			)
		}
		member = ok
	}
	if member {
		return s.resolver.Resolve(userID, true, nil), nil
	}

	var lastActiveAt *time.Time
	if s.activity != nil {
		at, err := s.activity.GetLastActiveAt(lookupCtx, userID)
		if err != nil {
			s.log.Warn("failed_to_read_last_active_at",
				logger.UserID(userID),
				zap.Error(err),
			)
		}
		lastActiveAt = at
	}

	return s.resolver.Resolve(userID, false, lastActiveAt), nil
}

// GetPresenceMany resolves several users concurrently, preserving input order.
func (s *Service) GetPresenceMany(ctx context.Context, userIDs []string) ([]models.PresenceState, error) {
	states := make([]models.PresenceState, len(userIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, id := range userIDs {
		i, id := i, id
		g.Go(func() error {
			state, err := s.GetPresence(gctx, id)
			if err != nil {
				return err
			}
			states[i] = state
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}
