package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benvon/smartmatch/internal/apperr"
)

type mockChannelService struct {
	isMemberFunc func(ctx context.Context, channel, userID string) (bool, error)
	mu           sync.Mutex
	calls        []string
}

func (m *mockChannelService) IsMember(ctx context.Context, channel, userID string) (bool, error) {
	m.mu.Lock()
	m.calls = append(m.calls, channel+"/"+userID)
	m.mu.Unlock()
	if m.isMemberFunc != nil {
		return m.isMemberFunc(ctx, channel, userID)
	}
	return false, nil
}

type mockActivityReader struct {
	getLastActiveAtFunc func(ctx context.Context, userID string) (*time.Time, error)
	calls               int
}

func (m *mockActivityReader) GetLastActiveAt(ctx context.Context, userID string) (*time.Time, error) {
	m.calls++
	if m.getLastActiveAtFunc != nil {
		return m.getLastActiveAtFunc(ctx, userID)
	}
	return nil, nil
}

func TestService_GetPresence(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 19, 15, 0, 0, 0, time.UTC)
	resolver := NewResolver(WithClock(fixedClock(now)))

	t.Run("member skips activity lookup", func(t *testing.T) {
		t.Parallel()
		channels := &mockChannelService{isMemberFunc: func(context.Context, string, string) (bool, error) { return true, nil }}
		activity := &mockActivityReader{}
		svc := NewService(resolver, channels, activity, "online", time.Second, nil)

		state, err := svc.GetPresence(context.Background(), "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !state.IsOnline || state.LastSeenLabel != LabelNow {
			t.Errorf("unexpected state: %+v", state)
		}
		if activity.calls != 0 {
			t.Errorf("expected no activity lookups, got %d", activity.calls)
		}
		if len(channels.calls) != 1 || channels.calls[0] != "online/u1" {
			t.Errorf("unexpected channel calls: %v", channels.calls)
		}
	})

	t.Run("non member uses last activity", func(t *testing.T) {
		t.Parallel()
		activity := &mockActivityReader{getLastActiveAtFunc: func(context.Context, string) (*time.Time, error) {
			return ago(now, 90*time.Minute), nil
		}}
		svc := NewService(resolver, &mockChannelService{}, activity, "online", time.Second, nil)

		state, err := svc.GetPresence(context.Background(), "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state.IsOnline || state.LastSeenLabel != "1 hour ago" {
			t.Errorf("unexpected state: %+v", state)
		}
	})

	t.Run("lookup failures degrade to unknown", func(t *testing.T) {
		t.Parallel()
		channels := &mockChannelService{isMemberFunc: func(context.Context, string, string) (bool, error) {
			return false, errors.New("redis down")
		}}
		activity := &mockActivityReader{getLastActiveAtFunc: func(context.Context, string) (*time.Time, error) {
			return nil, errors.New("db down")
		}}
		svc := NewService(resolver, channels, activity, "online", time.Second, nil)

		state, err := svc.GetPresence(context.Background(), "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state.IsOnline || state.LastSeenLabel != LabelUnknown {
			t.Errorf("unexpected state: %+v", state)
		}
	})

	t.Run("missing user id fails fast", func(t *testing.T) {
		t.Parallel()
		svc := NewService(resolver, nil, nil, "online", time.Second, nil)
		if _, err := svc.GetPresence(context.Background(), ""); !errors.Is(err, apperr.ErrConfiguration) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}

func TestService_GetPresenceMany_PreservesOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 19, 15, 0, 0, 0, time.UTC)
	channels := &mockChannelService{isMemberFunc: func(_ context.Context, _ string, userID string) (bool, error) {
		return userID == "b", nil
	}}
	svc := NewService(NewResolver(WithClock(fixedClock(now))), nil, nil, "online", time.Second, nil)
	svc.channels = channels

	ids := []string{"a", "b", "c"}
	states, err := svc.GetPresenceMany(context.Background(), ids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, id := range ids {
		if states[i].UserID != id {
			t.Errorf("states[%d].UserID = %q, want %q", i, states[i].UserID, id)
		}
	}
	if !states[1].IsOnline || states[0].IsOnline || states[2].IsOnline {
		t.Errorf("unexpected online flags: %+v", states)
	}
}
