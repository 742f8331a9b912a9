package domain

import (
	"fmt"
	"strings"
)

// Row is one validated input record: a family row or an option row.
// OptionKey is nil for family rows.
type Row struct {
	FamilyKey string
	OptionKey *string
	Title     string
	Details   string
}

// IsOption reports whether the row describes an option (variant) record.
func (r Row) IsOption() bool {
	return r.OptionKey != nil && strings.TrimSpace(*r.OptionKey) != ""
}

func (r Row) Validate() error {
	if strings.TrimSpace(r.FamilyKey) == "" {
		return fmt.Errorf("%w: family key is required", ErrValidation)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(r.Details) == "" {
		return fmt.Errorf("%w: details is required", ErrValidation)
	}
	if r.OptionKey != nil && strings.TrimSpace(*r.OptionKey) == "" {
		return fmt.Errorf("%w: option key must be non-empty when present", ErrValidation)
	}
	return nil
}
