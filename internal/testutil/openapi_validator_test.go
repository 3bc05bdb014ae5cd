package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specPath = "../../api/openapi/openapi.yaml"

func TestLoadOpenAPIValidator(t *testing.T) {
	v, err := LoadOpenAPIValidator(specPath)
	require.NoError(t, err)
	assert.NotNil(t, v.doc.Paths.Find("/api/v1/incidents/{id}/followups"))

	_, err = LoadOpenAPIValidator("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestClient_ValidatesAgainstContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fr", r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{
			"id": 1,
			"incident_date": "2024-03-14T00:00:00Z",
			"incident_time": "2024-03-14T09:30:00Z",
			"severity": "critical",
			"severity_label": "Critique",
			"description": "Processor failure",
			"status": "open",
			"status_label": "Ouvert",
			"is_deleted": false,
			"patient_id": 3,
			"physician_id": null
		}}`))
	}))
	defer srv.Close()

	client := NewClientWithValidation(t, srv.URL, specPath).WithLanguage("fr")

	resp, err := client.GET("/api/v1/incidents/1")
	require.NoError(t, err)

	var body struct {
		Data struct {
			SeverityLabel string `json:"severity_label"`
		} `json:"data"`
	}
	DecodeJSON(t, resp, &body)
	assert.Equal(t, "Critique", body.Data.SeverityLabel)
}
