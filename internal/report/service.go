// Package report handles facility-damage reports: public submission and
// listing, plus the admin triage operations that feed the audit log.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"laporfasilitas.org/internal/audit"
	"laporfasilitas.org/internal/auth"
	"laporfasilitas.org/internal/ids"
	"laporfasilitas.org/internal/obs"
	"laporfasilitas.org/internal/sheets"
)

const (
	minReporterNameLen = 2
	maxReporterNameLen = 200
	minDescriptionLen  = 10
	maxDescriptionLen  = 2000
)

// Service wires the report store, the authorizer for triage operations, and
// the audit log.
type Service struct {
	store  Store
	auth   *auth.Service
	log    *audit.Log
	sheets *sheets.Client
	now    func() time.Time
}

// NewService constructs the report service. sheetsClient may be nil, which
// disables the spreadsheet export.
func NewService(store Store, authSvc *auth.Service, log *audit.Log, sheetsClient *sheets.Client) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("report store is required")
	}
	if authSvc == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if log == nil {
		return nil, fmt.Errorf("audit log is required")
	}
	return &Service{
		store:  store,
		auth:   authSvc,
		log:    log,
		sheets: sheetsClient,
		now:    time.Now,
	}, nil
}

// SubmitInput is the public submission payload.
type SubmitInput struct {
	ReporterName string     `json:"reporter_name"`
	Description  string     `json:"damage_description"`
	Location     Location   `json:"location"`
	DamageType   DamageType `json:"damage_type"`
	PhotoURL     string     `json:"photo_url"`
}

// Submit files a new report. After the insert commits, the row is exported
// to the spreadsheet webhook on a detached goroutine: the export has no
// awaited result and its failure never reaches the submitter.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Report, error) {
	if err := validateSubmit(&in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	r := &Report{
		ID:           ids.New(),
		ReporterName: in.ReporterName,
		Description:  in.Description,
		Location:     in.Location,
		DamageType:   in.DamageType,
		PhotoURL:     strings.TrimSpace(in.PhotoURL),
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}

	if s.sheets != nil {
		row := sheets.Row{
			ReporterName: r.ReporterName,
			Description:  r.Description,
			Location:     LocationLabel(r.Location),
			DamageType:   string(r.DamageType),
			PhotoURL:     r.PhotoURL,
			CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		}
		go func() {
			exportCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := s.sheets.Send(exportCtx, row); err != nil {
				obs.Event("sheets.export_failed", map[string]any{
					"report_id": r.ID,
					"error":     err.Error(),
				})
			}
		}()
	}

	return r, nil
}

// List returns reports newest first, optionally filtered by location and
// status. Read-only and public.
func (s *Service) List(ctx context.Context, f Filter) ([]Report, error) {
	if f.Location != "" && !ValidLocation(f.Location) {
		return nil, fmt.Errorf("%w: unknown location %q", ErrInvalidInput, f.Location)
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	return s.store.List(ctx, f)
}

// Stats returns the per-status totals.
func (s *Service) Stats(ctx context.Context) (Counts, error) {
	return s.store.Counts(ctx)
}

// UpdateStatus moves a report to a new triage state. Admin only; audited as
// update_status with the old and new values.
func (s *Service) UpdateStatus(ctx context.Context, actorID, id string, status Status) (*Report, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if err := s.auth.RequireRole(ctx, actorID, auth.RoleAdmin); err != nil {
		return nil, err
	}

	current, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	s.log.BestEffort(ctx, audit.Draft{
		ActorID:    actorID,
		Action:     audit.ActionUpdateStatus,
		TargetType: audit.TargetReport,
		TargetID:   id,
		Details: audit.StatusDetails{
			OldStatus: string(current.Status),
			NewStatus: string(status),
		},
	})

	current.Status = status
	current.UpdatedAt = s.now().UTC()
	return current, nil
}

// Delete removes a report. Admin only; audited as delete_report with the
// fields captured before deletion.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if err := s.auth.RequireRole(ctx, actorID, auth.RoleAdmin); err != nil {
		return err
	}

	current, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.log.BestEffort(ctx, audit.Draft{
		ActorID:    actorID,
		Action:     audit.ActionDeleteReport,
		TargetType: audit.TargetReport,
		TargetID:   id,
		Details: audit.ReportDetails{
			ReporterName: current.ReporterName,
			Location:     string(current.Location),
		},
	})
	return nil
}

func validateSubmit(in *SubmitInput) error {
	in.ReporterName = strings.TrimSpace(in.ReporterName)
	in.Description = strings.TrimSpace(in.Description)

	if n := utf8.RuneCountInString(in.ReporterName); n < minReporterNameLen || n > maxReporterNameLen {
		return fmt.Errorf("%w: reporter name must be %d-%d characters", ErrInvalidInput, minReporterNameLen, maxReporterNameLen)
	}
	if n := utf8.RuneCountInString(in.Description); n < minDescriptionLen || n > maxDescriptionLen {
		return fmt.Errorf("%w: description must be %d-%d characters", ErrInvalidInput, minDescriptionLen, maxDescriptionLen)
	}
	if !ValidLocation(in.Location) {
		return fmt.Errorf("%w: unknown location %q", ErrInvalidInput, in.Location)
	}
	if in.DamageType == "" {
		in.DamageType = DamageLainnya
	}
	if !ValidDamageType(in.DamageType) {
		return fmt.Errorf("%w: unknown damage type %q", ErrInvalidInput, in.DamageType)
	}
	return nil
}
