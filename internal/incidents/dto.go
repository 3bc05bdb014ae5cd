package incidents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lotfimay/FollowUP-GRP4/internal/domain"
	"golang.org/x/text/language"
)

// Timestamp accepts RFC 3339 as well as the zone-less layouts legacy clients send.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp: %q", s)
}

// CreateIncidentRequest represents the request body for declaring an incident.
// Any status or deletion flag sent by the client is ignored.
type CreateIncidentRequest struct {
	IncidentDate *Timestamp `json:"incident_date" validate:"required"`
	IncidentTime *Timestamp `json:"incident_time" validate:"required"`
	Severity     string     `json:"severity" validate:"required,severity"`
	Description  string     `json:"description" validate:"required,max=2000"`
	PatientID    int64      `json:"patient_id" validate:"required,gt=0"`
	PhysicianID  *int64     `json:"physician_id" validate:"omitnil,gt=0"`
}

// ToInput converts the request to service input. The request must be validated first.
func (r *CreateIncidentRequest) ToInput() CreateIncidentInput {
	severity, _ := domain.ParseSeverity(r.Severity)
	return CreateIncidentInput{
		IncidentDate: r.IncidentDate.Time,
		IncidentTime: r.IncidentTime.Time,
		Severity:     severity,
		Description:  r.Description,
		PatientID:    r.PatientID,
		PhysicianID:  r.PhysicianID,
	}
}

// UpdateIncidentRequest represents a partial update. Absent fields are left untouched;
// an explicit null physician_id detaches the physician.
type UpdateIncidentRequest struct {
	IncidentDate *Timestamp `json:"incident_date"`
	IncidentTime *Timestamp `json:"incident_time"`
	Severity     *string    `json:"severity" validate:"omitnil,severity"`
	Description  *string    `json:"description" validate:"omitnil,max=2000"`
	Status       *string    `json:"status" validate:"omitnil,status"`
	PhysicianID  *int64     `json:"physician_id" validate:"omitnil,gt=0"`

	clearPhysician bool
}

var (
	mutableIncidentFields = map[string]bool{
		"incident_date": true,
		"incident_time": true,
		"severity":      true,
		"description":   true,
		"status":        true,
		"physician_id":  true,
	}
	immutableIncidentFields = map[string]bool{
		"id":         true,
		"patient_id": true,
		"is_deleted": true,
	}
)

// DecodeUpdateIncidentRequest decodes a partial update and rejects fields that
// are immutable or unknown.
func DecodeUpdateIncidentRequest(body []byte) (*UpdateIncidentRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	for field := range raw {
		if immutableIncidentFields[field] {
			return nil, fmt.Errorf("%w: %s", ErrImmutableField, field)
		}
		if !mutableIncidentFields[field] {
			return nil, fmt.Errorf("unknown field: %s", field)
		}
	}

	var req UpdateIncidentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if v, ok := raw["physician_id"]; ok && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		req.clearPhysician = true
	}
	return &req, nil
}

// ToPatch converts the request to a domain patch. The request must be validated first.
func (r *UpdateIncidentRequest) ToPatch() domain.IncidentPatch {
	patch := domain.IncidentPatch{
		Description:    r.Description,
		PhysicianID:    r.PhysicianID,
		ClearPhysician: r.clearPhysician,
	}
	if r.IncidentDate != nil {
		patch.IncidentDate = &r.IncidentDate.Time
	}
	if r.IncidentTime != nil {
		patch.IncidentTime = &r.IncidentTime.Time
	}
	if r.Severity != nil {
		severity, _ := domain.ParseSeverity(*r.Severity)
		patch.Severity = &severity
	}
	if r.Status != nil {
		status, _ := domain.ParseStatus(*r.Status)
		patch.Status = &status
	}
	return patch
}

// AppendFollowUpRequest represents the request body for recording a follow-up.
type AppendFollowUpRequest struct {
	ActionsTaken string     `json:"actions_taken" validate:"required,max=2000"`
	PhysicianID  int64      `json:"physician_id" validate:"required,gt=0"`
	FollowedUpAt *Timestamp `json:"followed_up_at"`
}

// ToInput converts the request to ledger input.
func (r *AppendFollowUpRequest) ToInput() AppendFollowUpInput {
	input := AppendFollowUpInput{
		ActionsTaken: r.ActionsTaken,
		PhysicianID:  r.PhysicianID,
	}
	if r.FollowedUpAt != nil {
		at := r.FollowedUpAt.Time
		input.FollowedUpAt = &at
	}
	return input
}

// IncidentResponse is the wire representation of an incident.
type IncidentResponse struct {
	ID            int64           `json:"id"`
	IncidentDate  time.Time       `json:"incident_date"`
	IncidentTime  time.Time       `json:"incident_time"`
	Severity      domain.Severity `json:"severity"`
	SeverityLabel string          `json:"severity_label"`
	Description   string          `json:"description"`
	Status        domain.Status   `json:"status"`
	StatusLabel   string          `json:"status_label"`
	IsDeleted     bool            `json:"is_deleted"`
	PatientID     int64           `json:"patient_id"`
	PhysicianID   *int64          `json:"physician_id"`
}

// NewIncidentResponse builds the response with labels in the given language.
func NewIncidentResponse(i *domain.Incident, lang language.Tag) IncidentResponse {
	return IncidentResponse{
		ID:            i.ID,
		IncidentDate:  i.IncidentDate,
		IncidentTime:  i.IncidentTime,
		Severity:      i.Severity,
		SeverityLabel: i.Severity.Label(lang),
		Description:   i.Description,
		Status:        i.Status,
		StatusLabel:   i.Status.Label(lang),
		IsDeleted:     i.IsDeleted,
		PatientID:     i.PatientID,
		PhysicianID:   i.PhysicianID,
	}
}
