// Package gate decides whether a user may converse, based on claimed age and
// role. Decisions are cached on the caller-owned session: once a session is
// verified it stays verified, and re-checking returns the cached decision.
package gate

import (
	"go.uber.org/zap"
)

// Reason codes returned with a negative decision.
type Reason string

const (
	ReasonUnderage         Reason = "underage"
	ReasonUnverified       Reason = "unverified"
	ReasonRoleNotPermitted Reason = "role_not_permitted"
)

// Decision is the outcome of an eligibility check.
type Decision struct {
	Eligible bool   `json:"eligible"`
	Reason   Reason `json:"reason,omitempty"`
}

// Claim carries whatever proof the user supplied. A nil Age means no age was
// claimed at all.
type Claim struct {
	Age  *int
	Role string
}

// Gate verifies eligibility. It holds no mutable state of its own; the only
// state is the per-session cached decision.
type Gate struct {
	minAge int
	roles  map[string]struct{}
	logger *zap.Logger
}

// New creates a gate. An empty allowedRoles permits every role.
func New(minAge int, allowedRoles []string, logger *zap.Logger) *Gate {
	g := &Gate{minAge: minAge, logger: logger}
	if len(allowedRoles) > 0 {
		g.roles = make(map[string]struct{}, len(allowedRoles))
		for _, r := range allowedRoles {
			g.roles[r] = struct{}{}
		}
	}
	return g
}

// Check evaluates the claim against the gate's policy. Absence of proof is
// non-eligibility, never an error. An already-eligible session returns its
// cached decision without re-evaluating the claim; eligibility is never
// downgraded. Negative decisions are not cached so the user can retry with a
// proper claim.
func (g *Gate) Check(sess *Session, claim Claim) Decision {
	if d := sess.decision(); d != nil {
		return *d
	}

	if claim.Age == nil {
		return Decision{Eligible: false, Reason: ReasonUnverified}
	}
	if *claim.Age < g.minAge {
		g.logger.Info("eligibility denied",
			zap.String("user_id", sess.UserID),
			zap.String("reason", string(ReasonUnderage)))
		return Decision{Eligible: false, Reason: ReasonUnderage}
	}
	if g.roles != nil && claim.Role != "" {
		if _, ok := g.roles[claim.Role]; !ok {
			return Decision{Eligible: false, Reason: ReasonRoleNotPermitted}
		}
	}

	d := Decision{Eligible: true}
	sess.setDecision(d, claim.Role)
	g.logger.Info("eligibility verified", zap.String("user_id", sess.UserID))
	return d
}
