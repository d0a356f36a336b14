package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/smartmatch/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("interaction_kind", validateInteractionKind); err != nil {
		panic(fmt.Sprintf("failed to register interaction_kind validator: %v", err))
	}
}

// validateInteractionKind validates that a string is a valid InteractionKind value
func validateInteractionKind(fl validator.FieldLevel) bool {
	return models.InteractionKind(fl.Field().String()).Valid()
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateInteractionKind validates an InteractionKind string value
func ValidateInteractionKind(value string) error {
	if models.InteractionKind(value).Valid() {
		return nil
	}
	return fmt.Errorf("invalid kind: %s (must be 'view', 'like', 'message', or 'profile_click')", value)
}

// ValidatePreferences checks preference bounds and normalizes the gender list.
func ValidatePreferences(p *models.Preferences) error {
	if p == nil {
		return fmt.Errorf("preferences are required")
	}
	for i, g := range p.SeekingGender {
		p.SeekingGender[i] = strings.ToLower(SanitizeText(g))
	}
	if err := Validate.Struct(p); err != nil {
		return fmt.Errorf("invalid preferences: %w", err)
	}
	return nil
}
