package pg

import (
	"context"
	"database/sql"
	"errors"

	"laporfasilitas.org/internal/report"
)

var _ report.Store = (*Store)(nil)

func (s *Store) Create(ctx context.Context, r *report.Report) error {
	return s.db.QueryRowContext(ctx, `
		insert into damage_reports (id, reporter_name, damage_description, location, damage_type, photo_url, status)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning created_at, updated_at
	`, r.ID, r.ReporterName, r.Description, string(r.Location), string(r.DamageType), nullString(r.PhotoURL), string(r.Status)).
		Scan(&r.CreatedAt, &r.UpdatedAt)
}

func (s *Store) Find(ctx context.Context, id string) (*report.Report, error) {
	var (
		r     report.Report
		photo sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, reporter_name, damage_description, location, damage_type, photo_url, status, created_at, updated_at
		from damage_reports
		where id = $1
	`, id).Scan(&r.ID, &r.ReporterName, &r.Description, &r.Location, &r.DamageType, &photo, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, report.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.PhotoURL = photo.String
	return &r, nil
}

func (s *Store) List(ctx context.Context, f report.Filter) ([]report.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, reporter_name, damage_description, location, damage_type, photo_url, status, created_at, updated_at
		from damage_reports
		where ($1 = '' or location = $1)
		  and ($2 = '' or status = $2)
		order by created_at desc, id desc
	`, string(f.Location), string(f.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []report.Report
	for rows.Next() {
		var (
			r     report.Report
			photo sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.ReporterName, &r.Description, &r.Location, &r.DamageType, &photo, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.PhotoURL = photo.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status report.Status) error {
	res, err := s.db.ExecContext(ctx, `
		update damage_reports set status = $2, updated_at = now() where id = $1
	`, id, string(status))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return report.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from damage_reports where id = $1
	`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return report.ErrNotFound
	}
	return nil
}

func (s *Store) Counts(ctx context.Context) (report.Counts, error) {
	var c report.Counts
	err := s.db.QueryRowContext(ctx, `
		select
			count(*) filter (where status = 'pending'),
			count(*) filter (where status = 'in_progress'),
			count(*) filter (where status = 'completed')
		from damage_reports
	`).Scan(&c.Pending, &c.InProgress, &c.Completed)
	return c, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
