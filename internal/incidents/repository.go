package incidents

import (
	"context"

	"github.com/lotfimay/FollowUP-GRP4/internal/domain"
)

// Repository is the persistence handle consumed by the lifecycle manager and the ledger.
// Every operation acquires its own transaction through InTx.
type Repository interface {
	// InTx runs fn in a transaction that is committed when fn returns nil
	// and rolled back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx exposes the storage primitives available inside a transaction.
type Tx interface {
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	// GetIncident reads an incident regardless of its deletion flag.
	// Returns ErrIncidentNotFound if no row has that id.
	GetIncident(ctx context.Context, id int64) (*domain.Incident, error)
	// ListIncidentsByPatient returns non-deleted incidents ordered by id.
	ListIncidentsByPatient(ctx context.Context, patientID int64) ([]domain.Incident, error)
	// UpdateIncident writes the patch and returns the number of affected rows.
	UpdateIncident(ctx context.Context, id int64, patch domain.IncidentPatch) (int64, error)
	// MarkIncidentDeleted flags a non-deleted incident and returns the number of affected rows.
	MarkIncidentDeleted(ctx context.Context, id int64) (int64, error)

	CreateFollowUp(ctx context.Context, followUp *domain.FollowUp) error
	// ListFollowUps returns the follow-ups of an incident ordered by id.
	ListFollowUps(ctx context.Context, incidentID int64) ([]domain.FollowUp, error)
}
