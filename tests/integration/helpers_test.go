//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotfimay/FollowUP-GRP4/internal/testutil"
	"github.com/stretchr/testify/require"
)

// Directory rows inserted once per run. Incidents and follow-ups reference them.
var (
	patientID      int64
	otherPatientID int64
	physicianID    int64
)

func seedDirectory(ctx context.Context, db *pgxpool.Pool) error {
	const insertPatient = `
		INSERT INTO patients (last_name, first_name, birth_date, sex)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	if err := db.QueryRow(ctx, insertPatient, "Martin", "Claire", "1980-01-02", "F").Scan(&patientID); err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	if err := db.QueryRow(ctx, insertPatient, "Bernard", "Louis", "1975-06-21", "M").Scan(&otherPatientID); err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}

	err := db.QueryRow(ctx, `
		INSERT INTO physicians (last_name, first_name, specialty)
		VALUES ($1, $2, $3)
		RETURNING id`, "Durand", "Paul", "ORL").Scan(&physicianID)
	if err != nil {
		return fmt.Errorf("insert physician: %w", err)
	}
	return nil
}

type incidentResult struct {
	ID            int64  `json:"id"`
	Severity      string `json:"severity"`
	SeverityLabel string `json:"severity_label"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	StatusLabel   string `json:"status_label"`
	IsDeleted     bool   `json:"is_deleted"`
	PatientID     int64  `json:"patient_id"`
	PhysicianID   *int64 `json:"physician_id"`
}

type followUpResult struct {
	ID           int64  `json:"id"`
	IncidentID   int64  `json:"incident_id"`
	PhysicianID  int64  `json:"physician_id"`
	ActionsTaken string `json:"actions_taken"`
	FollowedUpAt string `json:"followed_up_at"`
}

type errorResult struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func incidentPayload(description string) map[string]interface{} {
	return map[string]interface{}{
		"incident_date": "2024-03-14",
		"incident_time": "2024-03-14T09:30:00Z",
		"severity":      "critical",
		"description":   description,
		"patient_id":    patientID,
	}
}

// createTestIncident creates an incident for the seeded patient and returns it.
func createTestIncident(t *testing.T, client *testutil.Client, description string) incidentResult {
	t.Helper()

	resp, err := client.POST("/api/v1/incidents", incidentPayload(description))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data incidentResult `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

func deleteIncident(t *testing.T, client *testutil.Client, id int64) {
	t.Helper()

	resp, err := client.DELETE(fmt.Sprintf("/api/v1/incidents/%d", id))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func incidentPath(id int64) string {
	return fmt.Sprintf("/api/v1/incidents/%d", id)
}
