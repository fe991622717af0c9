package audit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"curamed.org/internal/auth"
)

// Recorder writes audit entries for mutating actions, subject to the gate.
type Recorder struct {
	gate  *Gate
	store auth.AuditStore
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewRecorder combines a gate with an append-only audit store.
func NewRecorder(gate *Gate, store auth.AuditStore) *Recorder {
	return &Recorder{gate: gate, store: store, log: gate.log, now: time.Now}
}

// Record persists one audit entry when the gate allows it. A suppressed
// action returns nil: the business mutation already succeeded and must not be
// failed retroactively over attribution. A store failure is different from a
// suppression: the error is logged here so a lost compliance record always
// leaves a trace, then returned to the caller.
func (r *Recorder) Record(ctx context.Context, p auth.Principal, action, entity, entityID string, metadata map[string]string) error {
	if decision := r.gate.ShouldLog(p, action); !decision.Allow {
		return nil
	}
	err := r.store.Append(ctx, &auth.AuditEntry{
		OccurredAt:     r.now().UTC(),
		ActorID:        p.ID,
		Action:         action,
		Entity:         entity,
		EntityID:       entityID,
		OrganizationID: p.EffectiveOrganization(),
		Metadata:       metadata,
	})
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"actor_id": p.ID,
			"action":   action,
			"entity":   entity,
		}).Error("audit append failed")
	}
	return err
}
