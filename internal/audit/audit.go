// Package audit writes entries to the append-only audit trail (spec.md
// §4.1, §9, invariants P7/P8). Every lifecycle transition produces exactly
// one entry with esignature=true; no code path in this package updates or
// deletes a row.
//
// The fluent builder mirrors internal/log's Event(...).Detail(...).Write(err)
// API, generalized so the final write goes through the caller's own
// transaction: the audit row must commit or roll back atomically with the
// mutation it describes, which a background/best-effort logger cannot
// guarantee.
package audit

import (
	"context"
	"database/sql"

	"github.com/pharmadocs/dmsd/internal/store"
)

// Builder constructs an audit entry using a fluent API. Create with
// [Event], chain methods to set fields, then call [Builder.Commit] (inside
// the caller's transaction) or [Builder.Best] (outside one, for
// pre-transaction auth events).
type Builder struct {
	entry store.AuditEntry
}

// Event starts a new audit entry for the given action (e.g.
// "VERSION_SUBMITTED", "LOGIN_FAILURE") against entityKind/entityID (e.g.
// "version"/v.ID).
func Event(action, entityKind, entityID string) *Builder {
	return &Builder{entry: store.AuditEntry{
		Action:     action,
		EntityKind: entityKind,
		EntityID:   entityID,
	}}
}

// Principal sets the acting principal's id and username.
func (b *Builder) Principal(id, username string) *Builder {
	b.entry.PrincipalID = &id
	b.entry.Username = username
	return b
}

// Username sets only the username, for auth failures where no principal id
// is known or should be recorded (spec.md §7: never leak whether a
// username exists, but the attempted username is still audit-worthy).
func (b *Builder) Username(username string) *Builder {
	b.entry.Username = username
	return b
}

// Describe sets the human-readable description.
func (b *Builder) Describe(description string) *Builder {
	b.entry.Description = description
	return b
}

// ESignature marks this entry as backed by a verified e-signature
// (invariant P7: every lifecycle transition sets this true).
func (b *Builder) ESignature(verified bool) *Builder {
	b.entry.ESignature = verified
	return b
}

// Detail adds a key-value pair to the entry's detail map. Can be called
// multiple times.
func (b *Builder) Detail(key string, value any) *Builder {
	if b.entry.Detail == nil {
		b.entry.Detail = make(map[string]any)
	}
	b.entry.Detail[key] = value
	return b
}

// IP sets the request's source address, when known.
func (b *Builder) IP(ip string) *Builder {
	b.entry.IP = &ip
	return b
}

// At sets the entry's timestamp explicitly; callers normally leave this
// unset and let Commit/Best stamp it with the caller-supplied clock value.
func (b *Builder) At(unix int64) *Builder {
	b.entry.CreatedAt = unix
	return b
}

// Commit writes the entry inside tx, so it commits or rolls back with the
// mutation it describes. now is the caller's transaction timestamp.
func (b *Builder) Commit(ctx context.Context, s store.AuditStore, tx *sql.Tx, now int64) error {
	if b.entry.CreatedAt == 0 {
		b.entry.CreatedAt = now
	}
	return s.AppendAudit(ctx, tx, &b.entry)
}

// Best writes the entry outside any transaction, for pre-transaction
// authentication events (LOGIN_FAILURE, ESIGNATURE_FAILED) that have no
// mutation to commit alongside. Errors are returned, not swallowed: callers
// may choose to log and continue, but this package never hides a failure.
func (b *Builder) Best(ctx context.Context, s store.AuditStore, now int64) error {
	if b.entry.CreatedAt == 0 {
		b.entry.CreatedAt = now
	}
	return s.AppendAudit(ctx, nil, &b.entry)
}
