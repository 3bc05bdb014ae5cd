package incidents

import (
	"context"
	"fmt"
	"time"

	"github.com/lotfimay/FollowUP-GRP4/internal/domain"
	"github.com/lotfimay/FollowUP-GRP4/internal/pkg/ctxlog"
)

// Ledger is the append-only history of actions taken on incidents.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

// NewLedger creates a new follow-up ledger.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

// AppendFollowUpInput holds data for a new follow-up.
type AppendFollowUpInput struct {
	ActionsTaken string
	PhysicianID  int64
	FollowedUpAt *time.Time // server time when nil
}

// AppendFollowUp records a follow-up on an incident. The parent incident is not
// checked for deletion and is never modified; a missing parent surfaces as
// ErrReferenceNotFound from the store.
func (l *Ledger) AppendFollowUp(ctx context.Context, incidentID int64, input AppendFollowUpInput) (followUp *domain.FollowUp, err error) {
	start := time.Now()
	defer func() { observe("append_followup", start, err) }()
	ctx = ctxlog.With(ctx, "incident_id", incidentID)

	followedUpAt := l.now().UTC()
	if input.FollowedUpAt != nil {
		followedUpAt = *input.FollowedUpAt
	}

	followUp = &domain.FollowUp{
		IncidentID:   incidentID,
		PhysicianID:  input.PhysicianID,
		ActionsTaken: input.ActionsTaken,
		FollowedUpAt: followedUpAt,
	}

	err = l.repo.InTx(ctx, func(tx Tx) error {
		return tx.CreateFollowUp(ctx, followUp)
	})
	if err != nil {
		return nil, fmt.Errorf("append follow-up: %w", err)
	}

	ctxlog.FromContext(ctx).Info("follow-up appended",
		"followup_id", followUp.ID,
		"physician_id", followUp.PhysicianID,
	)
	return followUp, nil
}

// ListFollowUps returns the follow-ups of an incident in insertion order.
// Unknown incidents yield an empty slice.
func (l *Ledger) ListFollowUps(ctx context.Context, incidentID int64) (list []domain.FollowUp, err error) {
	start := time.Now()
	defer func() { observe("list_followups", start, err) }()

	err = l.repo.InTx(ctx, func(tx Tx) error {
		found, err := tx.ListFollowUps(ctx, incidentID)
		list = found
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}
	if list == nil {
		list = make([]domain.FollowUp, 0)
	}
	return list, nil
}
