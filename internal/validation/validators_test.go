package validation

import (
	"testing"

	"github.com/benvon/smartmatch/internal/models"
)

func TestValidateInteractionKind(t *testing.T) {
	t.Parallel()
	for _, kind := range models.InteractionKinds {
		if err := ValidateInteractionKind(string(kind)); err != nil {
			t.Errorf("ValidateInteractionKind(%q) = %v", kind, err)
		}
	}
	for _, bad := range []string{"", "poke", "LIKE"} {
		if err := ValidateInteractionKind(bad); err == nil {
			t.Errorf("ValidateInteractionKind(%q) expected error", bad)
		}
	}
}

func TestInteractionKindTag(t *testing.T) {
	t.Parallel()
	type req struct {
		Kind string `validate:"required,interaction_kind"`
	}
	if err := Validate.Struct(req{Kind: "like"}); err != nil {
		t.Errorf("expected like to validate: %v", err)
	}
	if err := Validate.Struct(req{Kind: "wink"}); err == nil {
		t.Error("expected wink to be rejected")
	}
}

func TestValidatePreferences(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		prefs   *models.Preferences
		wantErr bool
	}{
		{name: "valid", prefs: &models.Preferences{SeekingGender: []string{" Female "}, MinAge: 25, MaxAge: 35}},
		{name: "defaults", prefs: models.DefaultPreferences("u1")},
		{name: "nil", prefs: nil, wantErr: true},
		{name: "under age", prefs: &models.Preferences{MinAge: 16, MaxAge: 30}, wantErr: true},
		{name: "inverted range", prefs: &models.Preferences{MinAge: 40, MaxAge: 30}, wantErr: true},
		{name: "unknown gender", prefs: &models.Preferences{SeekingGender: []string{"robot"}, MinAge: 20, MaxAge: 30}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidatePreferences(tt.prefs)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePreferences() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()
	if got := SanitizeText("  a\x00b\tc\n "); got != "ab\tc" {
		t.Errorf("SanitizeText() = %q", got)
	}
}
