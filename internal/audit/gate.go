// Package audit decides, per mutating action, whether a compliance record is
// written. The gate never blocks the underlying business action: a
// misconfigured account keeps working while the anomaly stays visible in the
// logs for remediation.
package audit

import (
	"github.com/sirupsen/logrus"

	"curamed.org/internal/auth"
	"curamed.org/internal/obs"
)

// Suppression reasons reported by the gate.
const (
	ReasonFallbackPrincipal = "fallback principal"
	ReasonNoRoleAssigned    = "no role assigned"
)

// Decision is the gate's verdict for one action.
type Decision struct {
	Allow  bool
	Reason string
}

// Gate evaluates the audit attribution rules in order: the reserved sentinel
// principal is never a subject of audit logging, and a principal without a
// role assignment is excluded from attribution until fixed.
type Gate struct {
	sentinelID string
	log        logrus.FieldLogger
}

// NewGate binds the gate to the reserved sentinel principal id.
func NewGate(sentinelID string, log logrus.FieldLogger) *Gate {
	if log == nil {
		log = obs.Logger()
	}
	return &Gate{sentinelID: sentinelID, log: log}
}

// ShouldLog decides whether an audit record may be written for the principal.
// Suppressions emit one warning naming the suppressed action.
func (g *Gate) ShouldLog(p auth.Principal, action string) Decision {
	if p.ID == g.sentinelID {
		g.warn(p, action, ReasonFallbackPrincipal)
		return Decision{Allow: false, Reason: ReasonFallbackPrincipal}
	}
	if p.RoleID == "" {
		g.warn(p, action, ReasonNoRoleAssigned)
		return Decision{Allow: false, Reason: ReasonNoRoleAssigned}
	}
	return Decision{Allow: true}
}

func (g *Gate) warn(p auth.Principal, action, reason string) {
	obs.AuditSuppressions.WithLabelValues(reason).Inc()
	g.log.WithFields(logrus.Fields{
		"actor_id": p.ID,
		"username": p.Username,
		"action":   action,
		"reason":   reason,
	}).Warn("audit record suppressed")
}
