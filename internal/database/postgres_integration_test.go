//go:build integration

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/smartmatch/internal/apperr"
	"github.com/benvon/smartmatch/internal/models"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupPostgres(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	pg, err := tcpostgres.RunContainer(ctx,
		tcpostgres.WithDatabase("smartmatch"),
		tcpostgres.WithUsername("smartmatch"),
		tcpostgres.WithPassword("smartmatch"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("skip: cannot start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	db, err := New(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	// Migrate is idempotent.
	if err := db.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestPostgresSignalFlow(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	interactions := NewInteractionRepository(db)
	activity := NewUserActivityRepository(db)
	prefs := NewPreferencesRepository(db)
	profiles := NewProfileRepository(db)
	candidates := NewCandidateRepository(db, 10)

	n, err := interactions.CreateInteractions(ctx, "alice", []string{"bob", "carol", "dave"}, models.InteractionView)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("rows=%d want 3", n)
	}
	if _, err := interactions.CreateInteractions(ctx, "alice", []string{"bob"}, models.InteractionLike); err != nil {
		t.Fatal(err)
	}
	counts, err := interactions.CountByKind(ctx, "alice", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 2 || counts[0].Kind != models.InteractionLike || counts[1].Count != 3 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	// Unknown kinds violate the check constraint and are not transient.
	_, err = interactions.CreateInteractions(ctx, "alice", []string{"bob"}, "poke")
	if err == nil || errors.Is(err, apperr.ErrTransientIO) {
		t.Fatalf("expected permanent error, got %v", err)
	}

	last, err := activity.GetLastActiveAt(ctx, "nobody")
	if err != nil || last != nil {
		t.Fatalf("expected nil for unseen user, got %v %v", last, err)
	}
	newer := time.Now().UTC().Truncate(time.Second)
	if err := activity.Touch(ctx, "carol", newer); err != nil {
		t.Fatal(err)
	}
	if err := activity.Touch(ctx, "carol", newer.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	last, err = activity.GetLastActiveAt(ctx, "carol")
	if err != nil || last == nil || !last.Equal(newer) {
		t.Fatalf("expected last active %v, got %v %v", newer, last, err)
	}

	stored, err := prefs.GetUserPreferences(ctx, "alice")
	if err != nil || stored != nil {
		t.Fatalf("expected no preferences, got %+v %v", stored, err)
	}
	want := &models.Preferences{UserID: "alice", SeekingGender: []string{"female"}, MinAge: 25, MaxAge: 35, UpdatedAt: time.Now()}
	if err := prefs.UpsertUserPreferences(ctx, want); err != nil {
		t.Fatal(err)
	}
	stored, err = prefs.GetUserPreferences(ctx, "alice")
	if err != nil || stored == nil || stored.MinAge != 25 || len(stored.SeekingGender) != 1 {
		t.Fatalf("unexpected preferences: %+v %v", stored, err)
	}

	today := time.Now().UTC()
	for _, p := range []models.Profile{
		{UserID: "bob", Gender: "female", BirthDate: today.AddDate(-30, 0, 0)},
		{UserID: "carol", Gender: "female", BirthDate: today.AddDate(-28, 0, 0)},
		{UserID: "dave", Gender: "male", BirthDate: today.AddDate(-30, 0, 0)},
		{UserID: "erin", Gender: "female", BirthDate: today.AddDate(-50, 0, 0)},
		{UserID: "fay", Gender: "female", BirthDate: today.AddDate(-26, 0, 0)},
	} {
		if err := profiles.Upsert(ctx, &p); err != nil {
			t.Fatal(err)
		}
	}

	got, err := candidates.ComputeCandidates(ctx, "alice", stored)
	if err != nil {
		t.Fatal(err)
	}
	// bob is liked, dave is filtered by gender, erin by age; carol was active most recently.
	if len(got) != 2 || got[0] != "carol" || got[1] != "fay" {
		t.Fatalf("unexpected candidates: %v", got)
	}
}
