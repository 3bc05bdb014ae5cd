package incidents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/lotfimay/FollowUP-GRP4/internal/domain"
	"github.com/lotfimay/FollowUP-GRP4/internal/pkg/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router http.Handler
	repo   *mockRepository
}

func newTestAPI(opts ...ServiceOption) *testAPI {
	repo := newMockRepository(testPatientID)
	h := NewHandler(NewService(repo, opts...), NewLedger(repo))

	r := chi.NewRouter()
	r.Route("/api/v1", h.RegisterRoutes)
	return &testAPI{router: r, repo: repo}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) createIncident(t *testing.T) IncidentResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/incidents", map[string]any{
		"incident_date": "2024-03-14",
		"incident_time": "2024-03-14T09:30:00",
		"severity":      "Critical",
		"description":   "Processor failure",
		"patient_id":    testPatientID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[IncidentResponse](t, rec)
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Message
}

func TestHandler_CreateIncident(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/v1/incidents", map[string]any{
		"incident_date": "2024-03-14",
		"incident_time": "2024-03-14T09:30:00Z",
		"severity":      "Critique",
		"description":   "Processor failure",
		"patient_id":    testPatientID,
		"physician_id":  2,
		"status":        "closed",
		"is_deleted":    true,
	}, "Accept-Language", "fr-FR,fr;q=0.9")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decodeData[IncidentResponse](t, rec)
	assert.NotZero(t, got.ID)
	assert.Equal(t, domain.StatusOpen, got.Status, "client supplied status is ignored")
	assert.False(t, got.IsDeleted, "client supplied deletion flag is ignored")
	assert.Equal(t, domain.SeverityCritical, got.Severity)
	assert.Equal(t, "Critique", got.SeverityLabel)
	assert.Equal(t, "Ouvert", got.StatusLabel)
	require.NotNil(t, got.PhysicianID)
	assert.Equal(t, int64(2), *got.PhysicianID)
}

func TestHandler_CreateIncident_Validation(t *testing.T) {
	api := newTestAPI()

	tests := []struct {
		name string
		body any
	}{
		{name: "malformed json", body: "{"},
		{name: "missing fields", body: map[string]any{"severity": "minor"}},
		{
			name: "unknown severity",
			body: map[string]any{
				"incident_date": "2024-03-14",
				"incident_time": "2024-03-14T09:30:00Z",
				"severity":      "catastrophic",
				"description":   "x",
				"patient_id":    testPatientID,
			},
		},
		{
			name: "bad date",
			body: map[string]any{
				"incident_date": "14/03/2024",
				"incident_time": "2024-03-14T09:30:00Z",
				"severity":      "minor",
				"description":   "x",
				"patient_id":    testPatientID,
			},
		},
		{
			name: "description too long",
			body: map[string]any{
				"incident_date": "2024-03-14",
				"incident_time": "2024-03-14T09:30:00Z",
				"severity":      "minor",
				"description":   string(bytes.Repeat([]byte("a"), 2001)),
				"patient_id":    testPatientID,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/v1/incidents", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_CreateIncident_ValidationDetails(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/v1/incidents", map[string]any{
		"incident_date": "2024-03-14",
		"incident_time": "2024-03-14T09:30:00Z",
		"severity":      "minor",
		"patient_id":    testPatientID,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error struct {
			Details []httputil.FieldError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Error.Details, 1)
	assert.Equal(t, "description", body.Error.Details[0].Field)
	assert.Equal(t, "required", body.Error.Details[0].Message)
}

func TestHandler_CreateIncident_UnknownPatient(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, http.MethodPost, "/api/v1/incidents", map[string]any{
		"incident_date": "2024-03-14",
		"incident_time": "2024-03-14T09:30:00Z",
		"severity":      "minor",
		"description":   "x",
		"patient_id":    99,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_GetIncident(t *testing.T) {
	api := newTestAPI()
	created := api.createIncident(t)

	rec := api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/incidents/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeData[IncidentResponse](t, rec)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Critical", got.SeverityLabel)

	rec = api.do(t, http.MethodGet, "/api/v1/incidents/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "incident not found", errorMessage(t, rec))

	rec = api.do(t, http.MethodGet, "/api/v1/incidents/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_DeleteIncident(t *testing.T) {
	api := newTestAPI()
	created := api.createIncident(t)
	path := fmt.Sprintf("/api/v1/incidents/%d", created.ID)

	rec := api.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	stored, ok := api.repo.raw(created.ID)
	require.True(t, ok)
	assert.True(t, stored.IsDeleted)
}

func TestHandler_UpdateIncident(t *testing.T) {
	api := newTestAPI()
	created := api.createIncident(t)
	path := fmt.Sprintf("/api/v1/incidents/%d", created.ID)

	rec := api.do(t, http.MethodPut, path, map[string]any{
		"status":       "EnCours",
		"description":  "Processor replaced",
		"physician_id": 4,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeData[IncidentResponse](t, rec)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.Equal(t, "Processor replaced", got.Description)
	require.NotNil(t, got.PhysicianID)
	assert.Equal(t, int64(4), *got.PhysicianID)
	assert.Equal(t, created.Severity, got.Severity)

	rec = api.do(t, http.MethodPatch, path, `{"physician_id": null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = decodeData[IncidentResponse](t, rec)
	assert.Nil(t, got.PhysicianID)
}

func TestHandler_UpdateIncident_RejectsFields(t *testing.T) {
	api := newTestAPI()
	created := api.createIncident(t)
	path := fmt.Sprintf("/api/v1/incidents/%d", created.ID)

	for _, body := range []string{
		`{"patient_id": 4}`,
		`{"id": 12}`,
		`{"is_deleted": false}`,
		`{"colour": "red"}`,
		`{"status": "archived"}`,
		`[1, 2]`,
	} {
		t.Run(body, func(t *testing.T) {
			rec := api.do(t, http.MethodPut, path, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	stored, ok := api.repo.raw(created.ID)
	require.True(t, ok)
	assert.Equal(t, int64(testPatientID), stored.PatientID)
}

func TestHandler_UpdateIncident_Deleted(t *testing.T) {
	api := newTestAPI()
	created := api.createIncident(t)
	path := fmt.Sprintf("/api/v1/incidents/%d", created.ID)

	require.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, path, nil).Code)

	rec := api.do(t, http.MethodPut, path, map[string]any{"description": "late edit"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_UpdateIncident_StrictTransition(t *testing.T) {
	api := newTestAPI(WithTransitionPolicy(domain.ForwardTransitions{}))
	created := api.createIncident(t)

	rec := api.do(t, http.MethodPut, fmt.Sprintf("/api/v1/incidents/%d", created.ID), map[string]any{"status": "closed"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_ListPatientIncidents(t *testing.T) {
	api := newTestAPI()
	a := api.createIncident(t)
	b := api.createIncident(t)
	require.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/incidents/%d", b.ID), nil).Code)

	for _, path := range []string{
		fmt.Sprintf("/api/v1/patients/%d/incidents", testPatientID),
		fmt.Sprintf("/api/v1/incidents/patient/%d", testPatientID),
	} {
		rec := api.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decodeData[[]IncidentResponse](t, rec)
		require.Len(t, list, 1)
		assert.Equal(t, a.ID, list[0].ID)
	}

	rec := api.do(t, http.MethodGet, "/api/v1/patients/42/incidents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestHandler_FollowUps(t *testing.T) {
	api := newTestAPI()
	incident := api.createIncident(t)
	path := fmt.Sprintf("/api/v1/incidents/%d/followups", incident.ID)

	rec := api.do(t, http.MethodPost, path, map[string]any{"actions_taken": "Device checked", "physician_id": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeData[domain.FollowUp](t, rec)

	rec = api.do(t, http.MethodPost, path, map[string]any{
		"actions_taken":  "Processor replaced",
		"physician_id":   2,
		"followed_up_at": "2024-03-15T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decodeData[domain.FollowUp](t, rec)
	assert.Equal(t, 2024, second.FollowedUpAt.Year())

	rec = api.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[[]domain.FollowUp](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	rec = api.do(t, http.MethodPost, path, map[string]any{"actions_taken": "", "physician_id": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/incidents/999/followups", map[string]any{"actions_taken": "x", "physician_id": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/incidents/999/followups", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}
