package incidents

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/lotfimay/FollowUP-GRP4/internal/domain"
	"github.com/lotfimay/FollowUP-GRP4/internal/pkg/httputil"
)

const maxBodyBytes = 1 << 20

// Handler handles HTTP requests for incidents and their follow-ups.
type Handler struct {
	service   *Service
	ledger    *Ledger
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service, ledger *Ledger) *Handler {
	return &Handler{
		service:   service,
		ledger:    ledger,
		validator: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on empty tags or nil funcs.
	_ = v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseSeverity(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseStatus(fl.Field().String())
		return err == nil
	})
	return v
}

// RegisterRoutes registers all HTTP routes for the incidents module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Post("/", h.CreateIncident)
		r.Get("/patient/{patientID}", h.ListPatientIncidents)
		r.Get("/{id}", h.GetIncident)
		r.Put("/{id}", h.UpdateIncident)
		r.Patch("/{id}", h.UpdateIncident)
		r.Delete("/{id}", h.DeleteIncident)
		r.Post("/{id}/followups", h.AppendFollowUp)
		r.Get("/{id}/followups", h.ListFollowUps)
	})

	r.Get("/patients/{patientID}/incidents", h.ListPatientIncidents)
}

// CreateIncident handles POST /incidents request.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.CreateIncident(r.Context(), req.ToInput())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, h.incidentResponse(r, incident))
}

// GetIncident handles GET /incidents/{id} request.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	incident, err := h.service.GetIncident(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, h.incidentResponse(r, incident))
}

// ListPatientIncidents handles GET /patients/{patientID}/incidents request.
func (h *Handler) ListPatientIncidents(w http.ResponseWriter, r *http.Request) {
	patientID, ok := parseID(w, r, "patientID")
	if !ok {
		return
	}

	list, err := h.service.ListPatientIncidents(r.Context(), patientID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	lang := domain.MatchLanguage(r.Header.Get("Accept-Language"))
	resp := make([]IncidentResponse, 0, len(list))
	for i := range list {
		resp = append(resp, NewIncidentResponse(&list[i], lang))
	}

	httputil.Success(w, http.StatusOK, resp)
}

// UpdateIncident handles PUT and PATCH /incidents/{id} requests.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "failed to read body")
		return
	}

	req, err := DecodeUpdateIncidentRequest(body)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.UpdateIncident(r.Context(), id, req.ToPatch())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, h.incidentResponse(r, incident))
}

// DeleteIncident handles DELETE /incidents/{id} request.
func (h *Handler) DeleteIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	deleted, err := h.service.DeleteIncident(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if !deleted {
		httputil.Error(w, http.StatusNotFound, ErrIncidentNotFound.Error())
		return
	}

	httputil.NoContent(w)
}

// AppendFollowUp handles POST /incidents/{id}/followups request.
func (h *Handler) AppendFollowUp(w http.ResponseWriter, r *http.Request) {
	incidentID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req AppendFollowUpRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	followUp, err := h.ledger.AppendFollowUp(r.Context(), incidentID, req.ToInput())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, followUp)
}

// ListFollowUps handles GET /incidents/{id}/followups request.
func (h *Handler) ListFollowUps(w http.ResponseWriter, r *http.Request) {
	incidentID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	list, err := h.ledger.ListFollowUps(r.Context(), incidentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, list)
}

func (h *Handler) incidentResponse(r *http.Request, incident *domain.Incident) IncidentResponse {
	return NewIncidentResponse(incident, domain.MatchLanguage(r.Header.Get("Accept-Language")))
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrIncidentNotFound, Status: http.StatusNotFound, Message: ErrIncidentNotFound.Error()},
		{Error: ErrReferenceNotFound, Status: http.StatusConflict, Message: ErrReferenceNotFound.Error()},
		{Error: ErrTransitionNotAllowed, Status: http.StatusConflict},
		{Error: ErrImmutableField, Status: http.StatusBadRequest},
	})
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httputil.Error(w, http.StatusBadRequest, param+" must be a positive integer")
		return 0, false
	}
	return id, true
}
