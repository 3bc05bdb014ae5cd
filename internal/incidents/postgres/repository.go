// Package postgres provides PostgreSQL implementation of the incidents repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotfimay/FollowUP-GRP4/internal/domain"
	"github.com/lotfimay/FollowUP-GRP4/internal/incidents"
	"github.com/lotfimay/FollowUP-GRP4/internal/pkg/ctxlog"
)

const foreignKeyViolation = "23503"

// Repository implements incidents.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InTx runs fn inside a transaction acquired for this call only.
func (r *Repository) InTx(ctx context.Context, fn func(tx incidents.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.FromContext(ctx).Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(&txRepository{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

const incidentColumns = `id, incident_date, incident_time, severity, description, status, is_deleted, patient_id, physician_id`

// CreateIncident inserts an incident and fills in its id.
func (r *txRepository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (incident_date, incident_time, severity, description, status, is_deleted, patient_id, physician_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.tx.QueryRow(ctx, query,
		incident.IncidentDate,
		incident.IncidentTime,
		incident.Severity.String(),
		incident.Description,
		incident.Status.String(),
		incident.IsDeleted,
		incident.PatientID,
		incident.PhysicianID,
	).Scan(&incident.ID)

	if err != nil {
		return fmt.Errorf("insert incident: %w", classify(err))
	}
	return nil
}

// GetIncident reads an incident by id, including deleted ones.
func (r *txRepository) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	incident, err := scanIncident(r.tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("select incident: %w", err)
	}
	return incident, nil
}

// ListIncidentsByPatient returns the non-deleted incidents of a patient ordered by id.
func (r *txRepository) ListIncidentsByPatient(ctx context.Context, patientID int64) ([]domain.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE patient_id = $1 AND is_deleted = FALSE
		ORDER BY id
	`
	rows, err := r.tx.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	list := make([]domain.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		list = append(list, *incident)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return list, nil
}

// UpdateIncident writes the patched columns of a non-deleted incident.
func (r *txRepository) UpdateIncident(ctx context.Context, id int64, patch domain.IncidentPatch) (int64, error) {
	sets := make([]string, 0, 7)
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.IncidentDate != nil {
		add("incident_date", *patch.IncidentDate)
	}
	if patch.IncidentTime != nil {
		add("incident_time", *patch.IncidentTime)
	}
	if patch.Severity != nil {
		add("severity", patch.Severity.String())
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Status != nil {
		add("status", patch.Status.String())
	}
	if patch.ClearPhysician {
		sets = append(sets, "physician_id = NULL")
	} else if patch.PhysicianID != nil {
		add("physician_id", *patch.PhysicianID)
	}

	if len(sets) == 0 {
		return 0, nil
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE incidents SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 AND is_deleted = FALSE`
	result, err := r.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update incident: %w", classify(err))
	}
	return result.RowsAffected(), nil
}

// MarkIncidentDeleted flips the deletion flag of a non-deleted incident.
func (r *txRepository) MarkIncidentDeleted(ctx context.Context, id int64) (int64, error) {
	query := `
		UPDATE incidents
		SET is_deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`
	result, err := r.tx.Exec(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("mark incident deleted: %w", err)
	}
	return result.RowsAffected(), nil
}

// CreateFollowUp inserts a follow-up and fills in its id.
func (r *txRepository) CreateFollowUp(ctx context.Context, followUp *domain.FollowUp) error {
	query := `
		INSERT INTO followups (incident_id, physician_id, actions_taken, followed_up_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.tx.QueryRow(ctx, query,
		followUp.IncidentID,
		followUp.PhysicianID,
		followUp.ActionsTaken,
		followUp.FollowedUpAt,
	).Scan(&followUp.ID)

	if err != nil {
		return fmt.Errorf("insert follow-up: %w", classify(err))
	}
	return nil
}

// ListFollowUps returns the follow-ups of an incident in insertion order.
func (r *txRepository) ListFollowUps(ctx context.Context, incidentID int64) ([]domain.FollowUp, error) {
	query := `
		SELECT id, incident_id, physician_id, actions_taken, followed_up_at
		FROM followups
		WHERE incident_id = $1
		ORDER BY id
	`
	rows, err := r.tx.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}
	defer rows.Close()

	list := make([]domain.FollowUp, 0)
	for rows.Next() {
		var f domain.FollowUp
		if err := rows.Scan(
			&f.ID,
			&f.IncidentID,
			&f.PhysicianID,
			&f.ActionsTaken,
			&f.FollowedUpAt,
		); err != nil {
			return nil, fmt.Errorf("scan follow-up: %w", err)
		}
		list = append(list, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate follow-ups: %w", err)
	}
	return list, nil
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var (
		incident         domain.Incident
		severity, status string
	)
	err := row.Scan(
		&incident.ID,
		&incident.IncidentDate,
		&incident.IncidentTime,
		&severity,
		&incident.Description,
		&status,
		&incident.IsDeleted,
		&incident.PatientID,
		&incident.PhysicianID,
	)
	if err != nil {
		return nil, err
	}

	if incident.Severity, err = domain.ParseSeverity(severity); err != nil {
		return nil, err
	}
	if incident.Status, err = domain.ParseStatus(status); err != nil {
		return nil, err
	}
	return &incident, nil
}

// classify maps foreign key violations to incidents.ErrReferenceNotFound.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%w: %s", incidents.ErrReferenceNotFound, pgErr.ConstraintName)
	}
	return err
}
