// Package incidents manages the incident lifecycle and the follow-up ledger.
package incidents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lotfimay/FollowUP-GRP4/internal/domain"
	"github.com/lotfimay/FollowUP-GRP4/internal/pkg/ctxlog"
)

// Service implements the incident lifecycle: creation, partial updates and soft deletion.
type Service struct {
	repo   Repository
	policy domain.TransitionPolicy
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTransitionPolicy restricts which status changes UpdateIncident accepts.
func WithTransitionPolicy(policy domain.TransitionPolicy) ServiceOption {
	return func(s *Service) {
		s.policy = policy
	}
}

// NewService creates a new incident service. Every status transition is allowed
// unless a policy is supplied.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, policy: domain.PermissiveTransitions{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateIncidentInput holds data for creating an incident.
// Status and deletion flag are not part of the input: new incidents are always open and visible.
type CreateIncidentInput struct {
	IncidentDate time.Time
	IncidentTime time.Time
	Severity     domain.Severity
	Description  string
	PatientID    int64
	PhysicianID  *int64
}

// CreateIncident persists a new open incident and returns it with its assigned id.
func (s *Service) CreateIncident(ctx context.Context, input CreateIncidentInput) (incident *domain.Incident, err error) {
	start := time.Now()
	defer func() { observe("create_incident", start, err) }()

	incident = &domain.Incident{
		IncidentDate: input.IncidentDate,
		IncidentTime: input.IncidentTime,
		Severity:     input.Severity,
		Description:  input.Description,
		Status:       domain.StatusOpen,
		IsDeleted:    false,
		PatientID:    input.PatientID,
		PhysicianID:  input.PhysicianID,
	}

	err = s.repo.InTx(ctx, func(tx Tx) error {
		return tx.CreateIncident(ctx, incident)
	})
	if err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident created",
		"incident_id", incident.ID,
		"patient_id", incident.PatientID,
		"severity", incident.Severity.String(),
	)
	return incident, nil
}

// GetIncident returns a non-deleted incident. Deleted and unknown incidents
// both yield ErrIncidentNotFound.
func (s *Service) GetIncident(ctx context.Context, id int64) (incident *domain.Incident, err error) {
	start := time.Now()
	defer func() { observe("get_incident", start, err) }()

	err = s.repo.InTx(ctx, func(tx Tx) error {
		found, err := visibleIncident(ctx, tx, id)
		incident = found
		return err
	})
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// ListPatientIncidents returns the non-deleted incidents of a patient ordered by id.
// A patient without incidents yields an empty slice.
func (s *Service) ListPatientIncidents(ctx context.Context, patientID int64) (list []domain.Incident, err error) {
	start := time.Now()
	defer func() { observe("list_patient_incidents", start, err) }()

	err = s.repo.InTx(ctx, func(tx Tx) error {
		found, err := tx.ListIncidentsByPatient(ctx, patientID)
		list = found
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list patient incidents: %w", err)
	}
	if list == nil {
		list = make([]domain.Incident, 0)
	}
	return list, nil
}

// UpdateIncident applies a partial update to a non-deleted incident and returns the result.
// Soft-deleted incidents are left untouched and reported as not found.
func (s *Service) UpdateIncident(ctx context.Context, id int64, patch domain.IncidentPatch) (incident *domain.Incident, err error) {
	start := time.Now()
	defer func() { observe("update_incident", start, err) }()

	err = s.repo.InTx(ctx, func(tx Tx) error {
		current, err := visibleIncident(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.Status != nil && !s.policy.Allowed(current.Status, *patch.Status) {
			return fmt.Errorf("%w: %s to %s", ErrTransitionNotAllowed, current.Status, *patch.Status)
		}

		if !patch.IsEmpty() {
			affected, err := tx.UpdateIncident(ctx, id, patch)
			if err != nil {
				return fmt.Errorf("update incident: %w", err)
			}
			if affected == 0 {
				return ErrIncidentNotFound
			}
		}

		updated, err := visibleIncident(ctx, tx, id)
		incident = updated
		return err
	})
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// DeleteIncident flags an incident as deleted without removing it.
// Returns true if a visible incident was flagged and false if none was found,
// so a second call on the same id returns false.
func (s *Service) DeleteIncident(ctx context.Context, id int64) (deleted bool, err error) {
	start := time.Now()
	defer func() { observe("delete_incident", start, err) }()

	err = s.repo.InTx(ctx, func(tx Tx) error {
		affected, err := tx.MarkIncidentDeleted(ctx, id)
		if err != nil {
			return fmt.Errorf("mark incident deleted: %w", err)
		}
		deleted = affected > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	if deleted {
		ctxlog.FromContext(ctx).Info("incident soft-deleted", "incident_id", id)
	}
	return deleted, nil
}

func visibleIncident(ctx context.Context, tx Tx, id int64) (*domain.Incident, error) {
	incident, err := tx.GetIncident(ctx, id)
	if err != nil {
		if errors.Is(err, ErrIncidentNotFound) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	if !incident.IsVisible() {
		return nil, ErrIncidentNotFound
	}
	return incident, nil
}
