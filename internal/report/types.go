package report

import (
	"errors"
	"time"
)

// Location is one of the campus dormitories a report can be filed against.
type Location string

const (
	LocationKampus1 Location = "asrama_kampus_1"
	LocationKampus2 Location = "asrama_kampus_2"
	LocationKampus3 Location = "asrama_kampus_3"
)

// DamageType classifies the reported damage.
type DamageType string

const (
	DamageRehab   DamageType = "rehab"
	DamageListrik DamageType = "listrik"
	DamageAir     DamageType = "air"
	DamageTaman   DamageType = "taman"
	DamageLainnya DamageType = "lainnya"
)

// Status is the triage state of a report.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

var (
	ErrNotFound     = errors.New("report: not found")
	ErrInvalidInput = errors.New("report: invalid input")
)

// Report is one facility-damage report.
type Report struct {
	ID           string     `json:"id"`
	ReporterName string     `json:"reporter_name"`
	Description  string     `json:"damage_description"`
	Location     Location   `json:"location"`
	DamageType   DamageType `json:"damage_type"`
	PhotoURL     string     `json:"photo_url,omitempty"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Location Location
	Status   Status
}

// Counts holds the per-status totals shown on the dashboard.
type Counts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// ValidLocation reports whether l is a known dormitory.
func ValidLocation(l Location) bool {
	switch l {
	case LocationKampus1, LocationKampus2, LocationKampus3:
		return true
	}
	return false
}

// ValidDamageType reports whether t is a known classification.
func ValidDamageType(t DamageType) bool {
	switch t {
	case DamageRehab, DamageListrik, DamageAir, DamageTaman, DamageLainnya:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known triage state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// LocationLabel maps a location value to its display label, used by the
// spreadsheet export.
func LocationLabel(l Location) string {
	switch l {
	case LocationKampus1:
		return "Asrama Kampus 1"
	case LocationKampus2:
		return "Asrama Kampus 2"
	case LocationKampus3:
		return "Asrama Kampus 3"
	}
	return string(l)
}
