package session

import (
	"testing"

	"github.com/benvon/smartmatch/internal/models"
)

func TestPreferenceStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	s := NewPreferenceStore()
	s.Put(&models.Preferences{UserID: "u1", SeekingGender: []string{"female"}, MinAge: 20, MaxAge: 30})
	s.Put(nil)
	s.Put(&models.Preferences{MinAge: 20})

	p, ok := s.Preferences("u1")
	if !ok {
		t.Fatal("expected preferences")
	}
	p.SeekingGender[0] = "male"
	p.MinAge = 99

	again, _ := s.Preferences("u1")
	if again.SeekingGender[0] != "female" || again.MinAge != 20 {
		t.Errorf("store was mutated through a returned value: %+v", again)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", s.Len())
	}

	s.Delete("u1")
	if _, ok := s.Preferences("u1"); ok {
		t.Error("expected preferences deleted")
	}
}

func TestPreferenceStore_HoldsUntilLastRelease(t *testing.T) {
	t.Parallel()

	s := NewPreferenceStore()
	s.Acquire("u1")
	s.Acquire("u1")
	s.Put(&models.Preferences{UserID: "u1", MinAge: 20, MaxAge: 30})

	if s.Release("u1") {
		t.Error("first release must not report the last hold")
	}
	if _, ok := s.Preferences("u1"); !ok {
		t.Fatal("preferences dropped while a session still holds the user")
	}
	if !s.Replace(&models.Preferences{UserID: "u1", MinAge: 25, MaxAge: 35}) {
		t.Error("expected replace to update a held user")
	}
	if p, _ := s.Preferences("u1"); p.MinAge != 25 {
		t.Errorf("MinAge = %d, want 25", p.MinAge)
	}

	if !s.Release("u1") {
		t.Error("last release must report true")
	}
	if _, ok := s.Preferences("u1"); ok {
		t.Error("expected preferences dropped after the last release")
	}
	if s.Holders("u1") != 0 {
		t.Errorf("Holders = %d, want 0", s.Holders("u1"))
	}
	if s.Replace(&models.Preferences{UserID: "u1", MinAge: 30, MaxAge: 40}) {
		t.Error("replace must not store preferences for a user nobody holds")
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}
