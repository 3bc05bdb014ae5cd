// Package sqlite provides an embedded SQLite implementation of the incidents repository
// built on GORM. It backs single-node deployments and the repository tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lotfimay/FollowUP-GRP4/internal/domain"
	"github.com/lotfimay/FollowUP-GRP4/internal/incidents"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Repository implements incidents.Repository on top of GORM.
type Repository struct {
	db *gorm.DB
}

// Open opens the SQLite database at dsn with foreign keys enforced.
func Open(dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps ":memory:" databases shared.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// NewRepository creates a new GORM repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AutoMigrate creates or updates the schema.
func (r *Repository) AutoMigrate() error {
	err := r.db.AutoMigrate(
		&patientModel{},
		&physicianModel{},
		&implantModel{},
		&processorModel{},
		&incidentModel{},
		&followUpModel{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// InTx runs fn inside a transaction acquired for this call only.
func (r *Repository) InTx(ctx context.Context, fn func(tx incidents.Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepository{db: tx})
	})
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DB returns the underlying database handle.
func (r *Repository) DB() (*sql.DB, error) {
	return r.db.DB()
}

// Close releases the underlying connection.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type txRepository struct {
	db *gorm.DB
}

func (r *txRepository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	m := newIncidentModel(incident)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		return fmt.Errorf("insert incident: %w", classify(err))
	}
	incident.ID = m.ID
	return nil
}

func (r *txRepository) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	var m incidentModel
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("select incident: %w", err)
	}
	return m.toDomain()
}

func (r *txRepository) ListIncidentsByPatient(ctx context.Context, patientID int64) ([]domain.Incident, error) {
	var models []incidentModel
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND is_deleted = ?", patientID, false).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	list := make([]domain.Incident, 0, len(models))
	for i := range models {
		incident, err := models[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode incident %d: %w", models[i].ID, err)
		}
		list = append(list, *incident)
	}
	return list, nil
}

func (r *txRepository) UpdateIncident(ctx context.Context, id int64, patch domain.IncidentPatch) (int64, error) {
	values := make(map[string]any, 7)
	if patch.IncidentDate != nil {
		values["incident_date"] = *patch.IncidentDate
	}
	if patch.IncidentTime != nil {
		values["incident_time"] = *patch.IncidentTime
	}
	if patch.Severity != nil {
		values["severity"] = patch.Severity.String()
	}
	if patch.Description != nil {
		values["description"] = *patch.Description
	}
	if patch.Status != nil {
		values["status"] = patch.Status.String()
	}
	if patch.ClearPhysician {
		values["physician_id"] = nil
	} else if patch.PhysicianID != nil {
		values["physician_id"] = *patch.PhysicianID
	}

	if len(values) == 0 {
		return 0, nil
	}
	values["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&incidentModel{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(values)
	if result.Error != nil {
		return 0, fmt.Errorf("update incident: %w", classify(result.Error))
	}
	return result.RowsAffected, nil
}

func (r *txRepository) MarkIncidentDeleted(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&incidentModel{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{
			"is_deleted": true,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("mark incident deleted: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *txRepository) CreateFollowUp(ctx context.Context, followUp *domain.FollowUp) error {
	m := &followUpModel{
		IncidentID:   followUp.IncidentID,
		PhysicianID:  followUp.PhysicianID,
		ActionsTaken: followUp.ActionsTaken,
		FollowedUpAt: followUp.FollowedUpAt,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		return fmt.Errorf("insert follow-up: %w", classify(err))
	}
	followUp.ID = m.ID
	return nil
}

func (r *txRepository) ListFollowUps(ctx context.Context, incidentID int64) ([]domain.FollowUp, error) {
	var models []followUpModel
	err := r.db.WithContext(ctx).
		Where("incident_id = ?", incidentID).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}

	list := make([]domain.FollowUp, 0, len(models))
	for i := range models {
		list = append(list, models[i].toDomain())
	}
	return list, nil
}

func classify(err error) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", incidents.ErrReferenceNotFound, err)
	}
	return err
}
