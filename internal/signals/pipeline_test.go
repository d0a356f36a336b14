package signals

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benvon/smartmatch/internal/apperr"
	"github.com/benvon/smartmatch/internal/config"
	"github.com/benvon/smartmatch/internal/models"
	"github.com/benvon/smartmatch/internal/session"
)

type sinkCall struct {
	actorID string
	targets []string
	kind    models.InteractionKind
}

type mockSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (m *mockSink) CreateInteractions(_ context.Context, actorID string, targetIDs []string, kind models.InteractionKind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, sinkCall{actorID: actorID, targets: append([]string(nil), targetIDs...), kind: kind})
	return len(targetIDs), nil
}

func (m *mockSink) count(kind models.InteractionKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

type mockActivity struct{}

func (mockActivity) GetLastActiveAt(context.Context, string) (*time.Time, error) { return nil, nil }

type mockChannels struct {
	members map[string]bool
}

func (m mockChannels) IsMember(_ context.Context, _ string, userID string) (bool, error) {
	return m.members[userID], nil
}

type mockPreferences struct {
	mu      sync.Mutex
	stored  map[string]*models.Preferences
	upserts int
	loads   int
}

func (m *mockPreferences) GetUserPreferences(_ context.Context, userID string) (*models.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	return m.stored[userID].Clone(), nil
}

func (m *mockPreferences) UpsertUserPreferences(_ context.Context, prefs *models.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		m.stored = make(map[string]*models.Preferences)
	}
	m.stored[prefs.UserID] = prefs.Clone()
	m.upserts++
	return nil
}

type mockScorer struct {
	calls    atomic.Int32
	fail     atomic.Bool
	mu       sync.Mutex
	lastPref *models.Preferences
}

func (m *mockScorer) ComputeCandidates(_ context.Context, _ string, prefs *models.Preferences) ([]string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.lastPref = prefs.Clone()
	m.mu.Unlock()
	if m.fail.Load() {
		return nil, errors.New("scorer unavailable")
	}
	return []string{"c1", "c2", "c3"}, nil
}

type fixture struct {
	pipeline *Pipeline
	sink     *mockSink
	prefs    *mockPreferences
	scorer   *mockScorer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := config.DefaultPipeline()
	cfg.BatchFlushInterval = time.Hour
	cfg.IOTimeout = time.Second

	f := fixture{sink: &mockSink{}, prefs: &mockPreferences{}, scorer: &mockScorer{}}
	p, err := New(Deps{
		Sink:        f.sink,
		Activity:    mockActivity{},
		Channels:    mockChannels{members: map[string]bool{"online-user": true}},
		Preferences: f.prefs,
		Scorer:      f.scorer,
	}, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.pipeline = p
	return f
}

var alice = models.Identity{UserID: "alice", SessionID: "sess-a"}

func TestNew_RequiresCollaborators(t *testing.T) {
	t.Parallel()
	_, err := New(Deps{}, config.DefaultPipeline(), nil)
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}

	bad := config.DefaultPipeline()
	bad.BatchMaxSize = 0
	_, err = New(Deps{}, bad, nil)
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for invalid tunables, got %v", err)
	}
}

func TestPipeline_RecommendationsRequireHydratedSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.pipeline.GetRecommendations(ctx, models.Identity{SessionID: "x"}, 1, 10); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := f.pipeline.GetRecommendations(ctx, alice, 1, 10); !errors.Is(err, apperr.ErrNotHydrated) {
		t.Errorf("expected ErrNotHydrated before login, got %v", err)
	}

	if err := f.pipeline.OnLogin(ctx, alice); err != nil {
		t.Fatalf("OnLogin: %v", err)
	}
	if f.pipeline.SessionState(alice) != session.StateHydrated {
		t.Errorf("expected hydrated session, got %s", f.pipeline.SessionState(alice))
	}
	page, err := f.pipeline.GetRecommendations(ctx, alice, 1, 10)
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}
	if len(page.Items) != 3 || page.HasMore {
		t.Errorf("unexpected page: %+v", page)
	}

	f.pipeline.OnLogout(alice)
	if _, err := f.pipeline.GetRecommendations(ctx, alice, 1, 10); !errors.Is(err, apperr.ErrNotHydrated) {
		t.Errorf("expected ErrNotHydrated after logout, got %v", err)
	}
}

func TestPipeline_LogoutOfOneSessionKeepsOthers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	phone := models.Identity{UserID: "alice", SessionID: "phone"}
	desk := models.Identity{UserID: "alice", SessionID: "desk"}

	for _, id := range []models.Identity{phone, desk} {
		if err := f.pipeline.OnLogin(ctx, id); err != nil {
			t.Fatalf("OnLogin(%s): %v", id.SessionID, err)
		}
	}
	f.pipeline.OnLogout(phone)

	if f.pipeline.SessionState(desk) != session.StateHydrated {
		t.Errorf("expected desk hydrated, got %s", f.pipeline.SessionState(desk))
	}
	if _, err := f.pipeline.GetRecommendations(ctx, desk, 1, 10); err != nil {
		t.Errorf("GetRecommendations on the remaining session: %v", err)
	}
	if err := f.pipeline.OnLogin(ctx, desk); err != nil {
		t.Fatalf("OnLogin(desk): %v", err)
	}
	f.prefs.mu.Lock()
	loads := f.prefs.loads
	f.prefs.mu.Unlock()
	if loads != 1 {
		t.Errorf("expected one preference load for alice, got %d", loads)
	}

	f.pipeline.OnLogout(desk)
	if _, ok := f.pipeline.Preferences("alice"); ok {
		t.Error("expected preferences dropped after the last session logged out")
	}
}

func TestPipeline_LikeInvalidatesViewDoesNot(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_ = f.pipeline.OnLogin(ctx, alice)

	_, _ = f.pipeline.GetRecommendations(ctx, alice, 1, 10)
	f.pipeline.RecordInteraction(ctx, alice, "bob", models.InteractionView)
	_, _ = f.pipeline.GetRecommendations(ctx, alice, 1, 10)
	if n := f.scorer.calls.Load(); n != 1 {
		t.Errorf("view must not trigger a recompute, got %d computations", n)
	}

	f.pipeline.RecordInteraction(ctx, alice, "bob", models.InteractionLike)
	_, _ = f.pipeline.GetRecommendations(ctx, alice, 1, 10)
	if n := f.scorer.calls.Load(); n != 2 {
		t.Errorf("like must trigger a recompute, got %d computations", n)
	}
	if f.sink.count(models.InteractionLike) != 1 {
		t.Error("expected like to be persisted")
	}

	if err := f.pipeline.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if f.sink.count(models.InteractionView) != 1 {
		t.Error("expected view batch to be flushed on shutdown")
	}
}

func TestPipeline_LogoutClearsClickDedup(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_ = f.pipeline.OnLogin(ctx, alice)

	f.pipeline.RecordInteraction(ctx, alice, "bob", models.InteractionProfileClick)
	f.pipeline.RecordInteraction(ctx, alice, "bob", models.InteractionProfileClick)
	if n := f.sink.count(models.InteractionProfileClick); n != 1 {
		t.Fatalf("expected one click within a session, got %d", n)
	}

	f.pipeline.OnLogout(alice)
	_ = f.pipeline.OnLogin(ctx, alice)
	f.pipeline.RecordInteraction(ctx, alice, "bob", models.InteractionProfileClick)
	if n := f.sink.count(models.InteractionProfileClick); n != 2 {
		t.Errorf("expected click to be recorded again in a new session, got %d", n)
	}
}

func TestPipeline_StaleRecommendations(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_ = f.pipeline.OnLogin(ctx, alice)
	_, _ = f.pipeline.GetRecommendations(ctx, alice, 1, 10)

	f.scorer.fail.Store(true)
	f.pipeline.RecordInteraction(ctx, alice, "bob", models.InteractionMessage)

	page, err := f.pipeline.GetRecommendations(ctx, alice, 1, 10)
	if !errors.Is(err, apperr.ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed, got %v", err)
	}
	if !page.Stale || len(page.Items) != 3 {
		t.Errorf("expected stale previous list, got %+v", page)
	}
}

func TestPipeline_UpdatePreferencesResetsRecommendations(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_ = f.pipeline.OnLogin(ctx, alice)
	_, _ = f.pipeline.GetRecommendations(ctx, alice, 1, 10)

	updated, err := f.pipeline.UpdatePreferences(ctx, alice, &models.Preferences{
		UserID:        "someone-else",
		SeekingGender: []string{"female"},
		MinAge:        30,
		MaxAge:        40,
	})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	if updated.UserID != "alice" {
		t.Errorf("preferences must be stored for the caller, got %q", updated.UserID)
	}
	if f.prefs.upserts != 1 {
		t.Errorf("expected one upsert, got %d", f.prefs.upserts)
	}

	_, _ = f.pipeline.GetRecommendations(ctx, alice, 1, 10)
	if n := f.scorer.calls.Load(); n != 2 {
		t.Errorf("expected recompute after preference change, got %d computations", n)
	}
	f.scorer.mu.Lock()
	minAge := f.scorer.lastPref.MinAge
	f.scorer.mu.Unlock()
	if minAge != 30 {
		t.Errorf("expected scorer to see new preferences, got min_age %d", minAge)
	}

	if _, err := f.pipeline.UpdatePreferences(ctx, alice, &models.Preferences{MinAge: 50, MaxAge: 20}); err == nil {
		t.Error("expected invalid preferences to be rejected")
	}
	if _, err := f.pipeline.UpdatePreferences(ctx, models.Identity{}, models.DefaultPreferences("")); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestPipeline_Presence(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	states, err := f.pipeline.GetPresenceMany(context.Background(), []string{"online-user", "ghost"})
	if err != nil {
		t.Fatalf("GetPresenceMany: %v", err)
	}
	if !states[0].IsOnline || states[0].LastSeenLabel != "now" {
		t.Errorf("expected channel member online, got %+v", states[0])
	}
	if states[1].IsOnline || states[1].LastSeenLabel != "unknown" {
		t.Errorf("expected unseen user offline, got %+v", states[1])
	}
}

func TestPipeline_OnLoginValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if err := f.pipeline.OnLogin(context.Background(), models.Identity{SessionID: "s"}); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	if err := f.pipeline.OnLogin(context.Background(), models.Identity{UserID: "u"}); !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration without session, got %v", err)
	}
}
