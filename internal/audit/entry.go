package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action identifies the kind of administrative operation an entry documents.
type Action string

const (
	ActionAddAdmin      Action = "add_admin"
	ActionDeleteAdmin   Action = "delete_admin"
	ActionResetPassword Action = "reset_password"
	ActionUpdateStatus  Action = "update_status"
	ActionDeleteReport  Action = "delete_report"
)

// TargetType classifies the entity an action affected.
type TargetType string

const (
	TargetReport TargetType = "report"
	TargetAdmin  TargetType = "admin"
	TargetUser   TargetType = "user"
)

// Details is the action-specific payload of an entry. Each action kind has
// its own fixed variant so new actions get compile-time coverage; the open
// JSON shape only appears at the storage boundary.
type Details interface {
	isDetails()
}

// AdminDetails accompanies add_admin, delete_admin, and reset_password:
// the affected admin's profile as captured at call time.
type AdminDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// StatusDetails accompanies update_status.
type StatusDetails struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// ReportDetails accompanies delete_report: the report fields captured before
// deletion.
type ReportDetails struct {
	ReporterName string `json:"reporter_name"`
	Location     string `json:"location"`
}

// RawDetails preserves payloads of action kinds this build does not know.
type RawDetails map[string]any

func (AdminDetails) isDetails()  {}
func (StatusDetails) isDetails() {}
func (ReportDetails) isDetails() {}
func (RawDetails) isDetails()    {}

// Entry is one immutable audit log record. ID and CreatedAt are assigned
// exactly once, by the log at insertion; the application never updates or
// deletes entries.
type Entry struct {
	ID         string     `json:"id"`
	ActorID    string     `json:"actor_id"`
	ActorName  string     `json:"actor_name"`
	Action     Action     `json:"action"`
	TargetType TargetType `json:"target_type"`
	TargetID   string     `json:"target_id,omitempty"`
	Details    Details    `json:"details,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Draft is the caller-supplied part of an entry.
type Draft struct {
	ActorID    string
	Action     Action
	TargetType TargetType
	TargetID   string
	Details    Details
}

// EncodeDetails serializes a details payload for storage. A nil payload
// encodes as SQL NULL.
func EncodeDetails(d Details) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// DecodeDetails rebuilds the typed payload for a stored entry. Unknown
// actions fall back to RawDetails so old log rows keep rendering after the
// action set evolves.
func DecodeDetails(action Action, raw []byte) (Details, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch action {
	case ActionAddAdmin, ActionDeleteAdmin, ActionResetPassword:
		var d AdminDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", action, err)
		}
		return d, nil
	case ActionUpdateStatus:
		var d StatusDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", action, err)
		}
		return d, nil
	case ActionDeleteReport:
		var d ReportDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", action, err)
		}
		return d, nil
	default:
		var d RawDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode details: %w", err)
		}
		return d, nil
	}
}

// UnmarshalJSON decodes an entry from its wire shape, rebuilding the typed
// details variant from the action kind. Needed by stream consumers and tests;
// the marshal direction works through the struct tags alone.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type wire struct {
		ID         string          `json:"id"`
		ActorID    string          `json:"actor_id"`
		ActorName  string          `json:"actor_name"`
		Action     Action          `json:"action"`
		TargetType TargetType      `json:"target_type"`
		TargetID   string          `json:"target_id"`
		Details    json.RawMessage `json:"details"`
		CreatedAt  time.Time       `json:"created_at"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	details, err := DecodeDetails(w.Action, w.Details)
	if err != nil {
		return err
	}
	*e = Entry{
		ID:         w.ID,
		ActorID:    w.ActorID,
		ActorName:  w.ActorName,
		Action:     w.Action,
		TargetType: w.TargetType,
		TargetID:   w.TargetID,
		Details:    details,
		CreatedAt:  w.CreatedAt,
	}
	return nil
}
