package sqlite

import (
	"time"

	"github.com/lotfimay/FollowUP-GRP4/internal/domain"
)

type patientModel struct {
	ID        int64     `gorm:"primaryKey"`
	LastName  string    `gorm:"size:100;not null"`
	FirstName string    `gorm:"size:100;not null"`
	BirthDate time.Time `gorm:"not null"`
	Sex       string    `gorm:"size:10;not null"`
	Address   string    `gorm:"size:255"`
	Phone     string    `gorm:"size:20"`
	Email     string    `gorm:"size:100"`
	CreatedAt time.Time
}

func (patientModel) TableName() string { return "patients" }

type physicianModel struct {
	ID        int64  `gorm:"primaryKey"`
	LastName  string `gorm:"size:100;not null"`
	FirstName string `gorm:"size:100;not null"`
	Specialty string `gorm:"size:100;not null"`
	CreatedAt time.Time
}

func (physicianModel) TableName() string { return "physicians" }

type implantModel struct {
	ID             int64        `gorm:"primaryKey"`
	ImplantType    string       `gorm:"size:100;not null"`
	ImplantedAt    time.Time    `gorm:"not null"`
	ElectrodeCount int          `gorm:"not null;check:electrode_count > 0"`
	PatientID      int64        `gorm:"not null;index"`
	Patient        patientModel `gorm:"foreignKey:PatientID"`
}

func (implantModel) TableName() string { return "implants" }

type processorModel struct {
	ID            int64        `gorm:"primaryKey"`
	ProcessorType string       `gorm:"size:100;not null"`
	InstalledAt   time.Time    `gorm:"not null"`
	Battery       string       `gorm:"size:50"`
	ImplantID     int64        `gorm:"not null;uniqueIndex"`
	Implant       implantModel `gorm:"foreignKey:ImplantID"`
}

func (processorModel) TableName() string { return "processors" }

type incidentModel struct {
	ID           int64           `gorm:"primaryKey"`
	IncidentDate time.Time       `gorm:"not null"`
	IncidentTime time.Time       `gorm:"not null"`
	Severity     string          `gorm:"size:20;not null;check:severity IN ('minor','moderate','major','critical')"`
	Description  string          `gorm:"size:2000;not null"`
	Status       string          `gorm:"size:20;not null;default:open;check:status IN ('open','in_progress','resolved','closed')"`
	IsDeleted    bool            `gorm:"not null;default:false"`
	PatientID    int64           `gorm:"not null;index"`
	PhysicianID  *int64          `gorm:"index"`
	Patient      patientModel    `gorm:"foreignKey:PatientID"`
	Physician    *physicianModel `gorm:"foreignKey:PhysicianID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (incidentModel) TableName() string { return "incidents" }

type followUpModel struct {
	ID           int64          `gorm:"primaryKey"`
	IncidentID   int64          `gorm:"not null;index"`
	PhysicianID  int64          `gorm:"not null"`
	ActionsTaken string         `gorm:"size:2000;not null"`
	FollowedUpAt time.Time      `gorm:"not null"`
	Incident     incidentModel  `gorm:"foreignKey:IncidentID"`
	Physician    physicianModel `gorm:"foreignKey:PhysicianID"`
}

func (followUpModel) TableName() string { return "followups" }

func newIncidentModel(i *domain.Incident) *incidentModel {
	return &incidentModel{
		ID:           i.ID,
		IncidentDate: i.IncidentDate,
		IncidentTime: i.IncidentTime,
		Severity:     i.Severity.String(),
		Description:  i.Description,
		Status:       i.Status.String(),
		IsDeleted:    i.IsDeleted,
		PatientID:    i.PatientID,
		PhysicianID:  i.PhysicianID,
	}
}

func (m *incidentModel) toDomain() (*domain.Incident, error) {
	severity, err := domain.ParseSeverity(m.Severity)
	if err != nil {
		return nil, err
	}
	status, err := domain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}
	return &domain.Incident{
		ID:           m.ID,
		IncidentDate: m.IncidentDate,
		IncidentTime: m.IncidentTime,
		Severity:     severity,
		Description:  m.Description,
		Status:       status,
		IsDeleted:    m.IsDeleted,
		PatientID:    m.PatientID,
		PhysicianID:  m.PhysicianID,
	}, nil
}

func (m *followUpModel) toDomain() domain.FollowUp {
	return domain.FollowUp{
		ID:           m.ID,
		IncidentID:   m.IncidentID,
		PhysicianID:  m.PhysicianID,
		ActionsTaken: m.ActionsTaken,
		FollowedUpAt: m.FollowedUpAt,
	}
}
