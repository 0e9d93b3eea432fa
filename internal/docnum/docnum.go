// Package docnum generates and validates the human-facing document number
// format SOP-<DEPT4>-<YYYYMMDD>-<NNNN>. spec.md §6 specifies the format but
// leaves the source of valid DEPT4 codes open; this package pins a small
// validated registry, loaded from configuration, rather than accepting
// arbitrary strings.
package docnum

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/store"
)

// Registry is the set of department codes this deployment accepts.
type Registry struct {
	codes map[string]bool
}

// NewRegistry builds a Registry from a list of 4-letter uppercase codes
// (e.g. from config.Config.Departments).
func NewRegistry(codes []string) *Registry {
	r := &Registry{codes: make(map[string]bool, len(codes))}
	for _, c := range codes {
		r.codes[c] = true
	}
	return r
}

// Validate reports whether department is a known 4-letter code.
func (r *Registry) Validate(department string) error {
	if len(department) != 4 {
		return dmserr.New(dmserr.ErrValidation, "department code must be exactly 4 letters")
	}
	if !r.codes[department] {
		return dmserr.New(dmserr.ErrValidation, fmt.Sprintf("unknown department code %q", department))
	}
	return nil
}

// Generate returns the next document number for department on the given
// day (UTC, YYYYMMDD), using the store's transactional per-day counter to
// avoid collisions between concurrent document creations.
func Generate(ctx context.Context, s store.DocumentStore, tx *sql.Tx, department string, now time.Time) (string, error) {
	day := now.UTC().Format("20060102")
	n, err := s.NextDocumentNumber(ctx, tx, department, day)
	if err != nil {
		return "", fmt.Errorf("next document number: %w", err)
	}
	return fmt.Sprintf("SOP-%s-%s-%04d", department, day, n), nil
}
