package incidents

import (
	"context"
	"sort"

	"github.com/lotfimay/FollowUP-GRP4/internal/domain"
)

// mockRepository is an in-memory Repository. Each InTx works on a copy of the
// state that is only published when fn succeeds.
type mockRepository struct {
	incidents map[int64]domain.Incident
	followUps map[int64]domain.FollowUp
	patients  map[int64]bool
	nextID    int64

	inTxErr error
	pingErr error
	txCount int
}

func newMockRepository(patientIDs ...int64) *mockRepository {
	m := &mockRepository{
		incidents: make(map[int64]domain.Incident),
		followUps: make(map[int64]domain.FollowUp),
		patients:  make(map[int64]bool),
	}
	for _, id := range patientIDs {
		m.patients[id] = true
	}
	return m
}

func (m *mockRepository) InTx(_ context.Context, fn func(tx Tx) error) error {
	m.txCount++
	if m.inTxErr != nil {
		return m.inTxErr
	}

	tx := &mockTx{
		incidents: make(map[int64]domain.Incident, len(m.incidents)),
		followUps: make(map[int64]domain.FollowUp, len(m.followUps)),
		patients:  m.patients,
		nextID:    m.nextID,
	}
	for k, v := range m.incidents {
		tx.incidents[k] = v
	}
	for k, v := range m.followUps {
		tx.followUps[k] = v
	}

	if err := fn(tx); err != nil {
		return err
	}

	m.incidents = tx.incidents
	m.followUps = tx.followUps
	m.nextID = tx.nextID
	return nil
}

func (m *mockRepository) Ping(_ context.Context) error {
	return m.pingErr
}

// raw returns the stored incident regardless of its deletion flag.
func (m *mockRepository) raw(id int64) (domain.Incident, bool) {
	i, ok := m.incidents[id]
	return i, ok
}

type mockTx struct {
	incidents map[int64]domain.Incident
	followUps map[int64]domain.FollowUp
	patients  map[int64]bool
	nextID    int64
}

func (t *mockTx) id() int64 {
	t.nextID++
	return t.nextID
}

func (t *mockTx) CreateIncident(_ context.Context, incident *domain.Incident) error {
	if !t.patients[incident.PatientID] {
		return ErrReferenceNotFound
	}
	incident.ID = t.id()
	t.incidents[incident.ID] = *incident
	return nil
}

func (t *mockTx) GetIncident(_ context.Context, id int64) (*domain.Incident, error) {
	i, ok := t.incidents[id]
	if !ok {
		return nil, ErrIncidentNotFound
	}
	return &i, nil
}

func (t *mockTx) ListIncidentsByPatient(_ context.Context, patientID int64) ([]domain.Incident, error) {
	var list []domain.Incident
	for _, i := range t.incidents {
		if i.PatientID == patientID && !i.IsDeleted {
			list = append(list, i)
		}
	}
	sort.Slice(list, func(a, b int) bool { return list[a].ID < list[b].ID })
	return list, nil
}

func (t *mockTx) UpdateIncident(_ context.Context, id int64, patch domain.IncidentPatch) (int64, error) {
	i, ok := t.incidents[id]
	if !ok || i.IsDeleted {
		return 0, nil
	}
	patch.Apply(&i)
	t.incidents[id] = i
	return 1, nil
}

func (t *mockTx) MarkIncidentDeleted(_ context.Context, id int64) (int64, error) {
	i, ok := t.incidents[id]
	if !ok || i.IsDeleted {
		return 0, nil
	}
	i.IsDeleted = true
	t.incidents[id] = i
	return 1, nil
}

func (t *mockTx) CreateFollowUp(_ context.Context, followUp *domain.FollowUp) error {
	if _, ok := t.incidents[followUp.IncidentID]; !ok {
		return ErrReferenceNotFound
	}
	followUp.ID = t.id()
	t.followUps[followUp.ID] = *followUp
	return nil
}

func (t *mockTx) ListFollowUps(_ context.Context, incidentID int64) ([]domain.FollowUp, error) {
	var list []domain.FollowUp
	for _, f := range t.followUps {
		if f.IncidentID == incidentID {
			list = append(list, f)
		}
	}
	sort.Slice(list, func(a, b int) bool { return list[a].ID < list[b].ID })
	return list, nil
}
