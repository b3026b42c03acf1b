// Package audit implements the append-only record of administrative actions:
// one durable write per privileged mutation, a bounded newest-first read
// path, and a push stream for live viewers.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"laporfasilitas.org/internal/auth"
	"laporfasilitas.org/internal/ids"
	"laporfasilitas.org/internal/obs"
)

// UnknownActorName is recorded when neither a full name nor an email can be
// resolved for the acting account.
const UnknownActorName = "Unknown Admin"

// Store persists entries. Append-only: there is deliberately no update or
// delete operation.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

// Directory resolves an account id to its profile for the actor-name
// snapshot. Satisfied by *auth.Service.
type Directory interface {
	Profile(ctx context.Context, userID string) (*auth.User, error)
}

// Fanout pushes committed entries to subscribers. The local implementation
// is an in-process hub; a Redis-backed relay covers multi-replica setups.
type Fanout interface {
	Publish(e Entry)
	Subscribe(ctx context.Context) <-chan Entry
}

// Log is the audit log service.
type Log struct {
	store     Store
	directory Directory
	fanout    Fanout
	now       func() time.Time
}

// NewLog constructs the audit log. fanout may be nil when no live viewer
// surface is wired (e.g. the migrate command).
func NewLog(store Store, directory Directory, fanout Fanout) (*Log, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	if directory == nil {
		return nil, errors.New("identity directory is required")
	}
	return &Log{
		store:     store,
		directory: directory,
		fanout:    fanout,
		now:       time.Now,
	}, nil
}

// Append writes one entry. The log assigns id and created_at exactly once
// and resolves the actor-name snapshot at call time: full name, then the
// email local-part, then UnknownActorName.
func (l *Log) Append(ctx context.Context, draft Draft) (Entry, error) {
	actorID := strings.TrimSpace(draft.ActorID)
	if actorID == "" {
		return Entry{}, errors.New("audit: actor id is required")
	}
	if strings.TrimSpace(string(draft.Action)) == "" {
		return Entry{}, errors.New("audit: action is required")
	}

	entry := Entry{
		ID:         ids.New(),
		ActorID:    actorID,
		ActorName:  l.resolveActorName(ctx, actorID),
		Action:     draft.Action,
		TargetType: draft.TargetType,
		TargetID:   strings.TrimSpace(draft.TargetID),
		Details:    draft.Details,
		CreatedAt:  l.now().UTC(),
	}
	if err := l.store.Append(ctx, &entry); err != nil {
		obs.ObserveAuditAppend(string(draft.Action), "error")
		return Entry{}, fmt.Errorf("audit append: %w", err)
	}
	obs.ObserveAuditAppend(string(draft.Action), "ok")
	if l.fanout != nil {
		l.fanout.Publish(entry)
	}
	return entry, nil
}

// BestEffort appends an entry after a mutation has already committed. A
// failed append is reported to the diagnostic log only: it must never make
// the documented action appear to have failed, and it is not retried.
func (l *Log) BestEffort(ctx context.Context, draft Draft) {
	if _, err := l.Append(ctx, draft); err != nil {
		obs.Event("audit.append_failed", map[string]any{
			"action": string(draft.Action),
			"actor":  draft.ActorID,
			"error":  err.Error(),
		})
	}
}

// List returns the most recent limit entries, newest first. Ties on
// created_at are broken by the entry id, which is monotonic.
func (l *Log) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, errors.New("audit: limit must be positive")
	}
	return l.store.List(ctx, limit)
}

// Subscribe registers a push listener for committed inserts. The channel
// closes when ctx ends; delivery is at-least-once and subscribers must
// deduplicate on the entry id if exactness matters.
func (l *Log) Subscribe(ctx context.Context) <-chan Entry {
	if l.fanout == nil {
		ch := make(chan Entry)
		close(ch)
		return ch
	}
	return l.fanout.Subscribe(ctx)
}

func (l *Log) resolveActorName(ctx context.Context, actorID string) string {
	user, err := l.directory.Profile(ctx, actorID)
	if err != nil || user == nil {
		return UnknownActorName
	}
	if name := strings.TrimSpace(user.FullName); name != "" {
		return name
	}
	if email := strings.TrimSpace(user.Email); email != "" {
		if at := strings.Index(email, "@"); at > 0 {
			return email[:at]
		}
		return email
	}
	return UnknownActorName
}
