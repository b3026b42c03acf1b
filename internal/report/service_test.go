package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"laporfasilitas.org/internal/audit"
	"laporfasilitas.org/internal/auth"
	"laporfasilitas.org/internal/sheets"
)

type fixture struct {
	svc        *Service
	store      *InMemoryStore
	auth       *auth.Service
	auditStore *audit.InMemoryStore
	admin      *auth.User
}

func newFixture(t *testing.T, sheetsClient *sheets.Client) *fixture {
	t.Helper()
	ctx := context.Background()

	authStore := auth.NewInMemoryStore()
	authSvc, err := auth.NewService(authStore)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	auditStore := audit.NewInMemoryStore()
	log, err := audit.NewLog(auditStore, authSvc, nil)
	if err != nil {
		t.Fatalf("audit.NewLog: %v", err)
	}
	store := NewInMemoryStore()
	svc, err := NewService(store, authSvc, log, sheetsClient)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	admin, err := authSvc.CreateAdminAccount(ctx, "petugas@kampus.ac.id", "rahasia123", "Petugas Asrama")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}

	return &fixture{svc: svc, store: store, auth: authSvc, auditStore: auditStore, admin: admin}
}

func validSubmit() SubmitInput {
	return SubmitInput{
		ReporterName: "Budi Santoso",
		Description:  "Keran kamar mandi lantai dua bocor terus",
		Location:     LocationKampus2,
		DamageType:   DamageAir,
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture(t, nil)

	rep, err := f.svc.Submit(context.Background(), validSubmit())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rep.ID == "" {
		t.Fatalf("id not assigned")
	}
	if rep.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", rep.Status)
	}
	if rep.CreatedAt.IsZero() || !rep.UpdatedAt.Equal(rep.CreatedAt) {
		t.Fatalf("unexpected timestamps: %v %v", rep.CreatedAt, rep.UpdatedAt)
	}
}

func TestSubmitDefaultsDamageType(t *testing.T) {
	f := newFixture(t, nil)

	in := validSubmit()
	in.DamageType = ""
	rep, err := f.svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rep.DamageType != DamageLainnya {
		t.Fatalf("expected lainnya default, got %s", rep.DamageType)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, nil)

	cases := []struct {
		name   string
		mutate func(*SubmitInput)
	}{
		{"short name", func(in *SubmitInput) { in.ReporterName = "B" }},
		{"short description", func(in *SubmitInput) { in.Description = "bocor" }},
		{"long description", func(in *SubmitInput) { in.Description = strings.Repeat("x", 2001) }},
		{"unknown location", func(in *SubmitInput) { in.Location = "asrama_kampus_9" }},
		{"unknown damage type", func(in *SubmitInput) { in.DamageType = "banjir" }},
	}
	for _, tc := range cases {
		in := validSubmit()
		tc.mutate(&in)
		if _, err := f.svc.Submit(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestSubmitExportsToSheets(t *testing.T) {
	received := make(chan map[string]string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var row map[string]string
		_ = json.Unmarshal(body, &row)
		received <- row
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := newFixture(t, sheets.NewClient(srv.URL))

	if _, err := f.svc.Submit(context.Background(), validSubmit()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case row := <-received:
		if row["location"] != "Asrama Kampus 2" {
			t.Fatalf("expected display label, got %q", row["location"])
		}
		if row["reporter_name"] != "Budi Santoso" {
			t.Fatalf("unexpected reporter: %q", row["reporter_name"])
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("export never arrived")
	}
}

func TestSubmitSucceedsWhenExportFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newFixture(t, sheets.NewClient(srv.URL))
	rep, err := f.svc.Submit(context.Background(), validSubmit())
	if err != nil {
		t.Fatalf("Submit must not fail on export errors: %v", err)
	}
	if _, err := f.store.Find(context.Background(), rep.ID); err != nil {
		t.Fatalf("report missing: %v", err)
	}
}

func TestListNewestFirstWithFilters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, validSubmit())
	if err != nil {
		t.Fatalf("submit first: %v", err)
	}
	in := validSubmit()
	in.Location = LocationKampus1
	second, err := f.svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("submit second: %v", err)
	}

	all, err := f.svc.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID || all[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", all)
	}

	kampus1, err := f.svc.List(ctx, Filter{Location: LocationKampus1})
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(kampus1) != 1 || kampus1[0].ID != second.ID {
		t.Fatalf("unexpected filter result: %+v", kampus1)
	}

	if _, err := f.svc.List(ctx, Filter{Status: "hilang"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown status, got %v", err)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rep, err := f.svc.Submit(ctx, validSubmit())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.svc.Submit(ctx, validSubmit()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.admin.ID, rep.ID, StatusCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	counts, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if counts.Pending != 1 || counts.InProgress != 0 || counts.Completed != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rep, err := f.svc.Submit(ctx, validSubmit())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	updated, err := f.svc.UpdateStatus(ctx, f.admin.ID, rep.ID, StatusInProgress)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != StatusInProgress {
		t.Fatalf("unexpected status: %s", updated.Status)
	}

	entries, err := f.auditStore.List(ctx, 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one audit entry: %v", err)
	}
	d, ok := entries[0].Details.(audit.StatusDetails)
	if !ok || d.OldStatus != "pending" || d.NewStatus != "in_progress" {
		t.Fatalf("unexpected details: %#v", entries[0].Details)
	}
	if entries[0].ActorName != "Petugas Asrama" {
		t.Fatalf("unexpected actor name: %s", entries[0].ActorName)
	}
}

func TestUpdateStatusRequiresAdmin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rep, err := f.svc.Submit(ctx, validSubmit())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err = f.svc.UpdateStatus(ctx, "nobody", rep.ID, StatusCompleted)
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	unchanged, err := f.store.Find(ctx, rep.ID)
	if err != nil || unchanged.Status != StatusPending {
		t.Fatalf("status changed for forbidden caller")
	}
	if f.auditStore.Len() != 0 {
		t.Fatalf("forbidden attempt was audited")
	}
}

func TestUpdateStatusUnknownReport(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.UpdateStatus(context.Background(), f.admin.ID, "missing", StatusCompleted)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rep, err := f.svc.Submit(ctx, validSubmit())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := f.svc.Delete(ctx, f.admin.ID, rep.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.store.Find(ctx, rep.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("report still present: %v", err)
	}

	entries, err := f.auditStore.List(ctx, 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one audit entry: %v", err)
	}
	d, ok := entries[0].Details.(audit.ReportDetails)
	if !ok || d.ReporterName != "Budi Santoso" || d.Location != "asrama_kampus_2" {
		t.Fatalf("pre-deletion snapshot missing: %#v", entries[0].Details)
	}
}
