package domain

import (
	"fmt"
	"time"
)

// Severity classifies the impact of an incident.
type Severity uint8

// Severity levels.
const (
	SeverityMinor Severity = iota + 1
	SeverityModerate
	SeverityMajor
	SeverityCritical
)

// Severities lists every severity in ascending order.
var Severities = []Severity{SeverityMinor, SeverityModerate, SeverityMajor, SeverityCritical}

// String returns the canonical code stored in the database and used on the wire.
func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "minor"
	case SeverityModerate:
		return "moderate"
	case SeverityMajor:
		return "major"
	case SeverityCritical:
		return "critical"
	}
	return fmt.Sprintf("severity(%d)", uint8(s))
}

// IsValid checks if the severity is one of the known levels.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid severity: %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Localized labels are accepted.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Status is the resolution progress of an incident.
type Status uint8

// Incident statuses.
const (
	StatusOpen Status = iota + 1
	StatusInProgress
	StatusResolved
	StatusClosed
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

// String returns the canonical code stored in the database and used on the wire.
func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusInProgress:
		return "in_progress"
	case StatusResolved:
		return "resolved"
	case StatusClosed:
		return "closed"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// IsValid checks if the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid status: %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Localized labels are accepted.
func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Incident is an adverse or notable event involving a patient's implanted device.
// Incidents are never removed physically; IsDeleted hides them from reads.
type Incident struct {
	ID           int64     `json:"id"`
	IncidentDate time.Time `json:"incident_date"`
	IncidentTime time.Time `json:"incident_time"`
	Severity     Severity  `json:"severity"`
	Description  string    `json:"description"`
	Status       Status    `json:"status"`
	IsDeleted    bool      `json:"is_deleted"`
	PatientID    int64     `json:"patient_id"`
	PhysicianID  *int64    `json:"physician_id"`
}

// IsVisible reports whether the incident may be returned to callers.
func (i *Incident) IsVisible() bool {
	return i != nil && !i.IsDeleted
}

// IncidentPatch holds a partial update of the mutable incident fields.
// Nil fields are left untouched. ClearPhysician detaches the attending physician
// and takes precedence over PhysicianID.
type IncidentPatch struct {
	IncidentDate   *time.Time
	IncidentTime   *time.Time
	Severity       *Severity
	Description    *string
	Status         *Status
	PhysicianID    *int64
	ClearPhysician bool
}

// IsEmpty reports whether the patch changes nothing.
func (p IncidentPatch) IsEmpty() bool {
	return p.IncidentDate == nil &&
		p.IncidentTime == nil &&
		p.Severity == nil &&
		p.Description == nil &&
		p.Status == nil &&
		p.PhysicianID == nil &&
		!p.ClearPhysician
}

// Apply copies the patched fields onto the incident.
func (p IncidentPatch) Apply(i *Incident) {
	if p.IncidentDate != nil {
		i.IncidentDate = *p.IncidentDate
	}
	if p.IncidentTime != nil {
		i.IncidentTime = *p.IncidentTime
	}
	if p.Severity != nil {
		i.Severity = *p.Severity
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	if p.Status != nil {
		i.Status = *p.Status
	}
	if p.ClearPhysician {
		i.PhysicianID = nil
	} else if p.PhysicianID != nil {
		id := *p.PhysicianID
		i.PhysicianID = &id
	}
}
