package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrReportNotFound    = errors.New("report not found")
	ErrReportKindInvalid = errors.New("invalid report kind")
)

// ReportKind is a closed enumeration of exportable reports.
type ReportKind string

const (
	ReportTransactions ReportKind = "transactions"
	ReportForecast     ReportKind = "forecast"
	ReportCategories   ReportKind = "categories"
)

func (k ReportKind) Valid() bool {
	switch k {
	case ReportTransactions, ReportForecast, ReportCategories:
		return true
	}
	return false
}

// Report is the metadata row for a generated CSV export stored in object
// storage.
type Report struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"userId"`
	OrganizationID *uuid.UUID `json:"organizationId,omitempty"`
	Kind           ReportKind `json:"kind"`
	ObjectKey      string     `json:"-"`
	RequestedBy    uuid.UUID  `json:"requestedBy"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// ReportRepository is the persistence contract for report metadata.
type ReportRepository interface {
	Create(scope Scope, report *Report) (*Report, error)
	GetByID(scope Scope, id uuid.UUID) (*Report, error)
	List(scope Scope) ([]*Report, error)
	Delete(scope Scope, id uuid.UUID) error
}

// ReportStore persists and serves the report artifacts themselves.
type ReportStore interface {
	Put(key string, body []byte, contentType string) error
	PresignGet(key string, expires time.Duration) (string, error)
	Delete(key string) error
}
