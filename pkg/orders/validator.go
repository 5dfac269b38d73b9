// Package orders implements admission control for agent order batches:
// semantic legality (kind, ownership, bounds, schema) and rate legality
// (sliding-window APM, burst caps, unit-batch caps).
package orders

import (
	"fmt"
	"time"

	"github.com/jediswimmer/ironcurtain/pkg/config"
	"github.com/jediswimmer/ironcurtain/pkg/models"
)

// countMin and countMax bound the optional per-order count field.
const (
	countMin = 1
	countMax = 20
)

// BatchResult is the validator output for one order batch.
type BatchResult struct {
	// Admitted orders are forwarded to the simulator in submission order.
	Admitted []models.Order

	// Violations carries one entry per rejected order (or a single
	// batch-level entry on a rate refusal), reported back to the agent.
	Violations []Violation

	// HighSeverity is the number of high-severity violations in this batch,
	// counted against the agent's forfeit budget.
	HighSeverity int
}

// RejectedAll reports whether the batch was refused atomically.
func (r *BatchResult) RejectedAll() bool {
	return len(r.Admitted) == 0 && len(r.Violations) == 1 && r.Violations[0].OrderIndex < 0
}

// Validator checks order batches against an agent's filtered view and rate
// profile. It is stateless apart from the shared audit log; per-agent rate
// state lives in the Tracker.
type Validator struct {
	profile *config.APMProfile
	audit   *AuditLog
}

// NewValidator creates a validator for a session's APM profile.
// The audit log is shared across sessions; nil disables auditing.
func NewValidator(profile *config.APMProfile, audit *AuditLog) *Validator {
	return &Validator{profile: profile, audit: audit}
}

// ValidateBatch runs the APM batch check followed by per-order semantic
// checks. A rate refusal rejects the whole batch atomically; semantic
// rejection of one order does not halt processing of the rest, and does not
// refund the APM accounting already charged for the batch.
func (v *Validator) ValidateBatch(matchID, agentID string, batch []models.Order, view *models.FilteredView, tracker *Tracker) *BatchResult {
	res := &BatchResult{}

	if err := tracker.AdmitBatch(len(batch)); err != nil {
		rateErr, ok := err.(*RateError)
		if !ok {
			rateErr = &RateError{Code: CodeAPMCeiling, Message: err.Error()}
		}
		res.Violations = append(res.Violations, Violation{
			Code:       rateErr.Code,
			Severity:   SeverityLow,
			OrderIndex: -1,
			Message:    rateErr.Error(),
		})
		return res
	}

	for i := range batch {
		order := batch[i]
		if violation := v.checkOrder(i, &order, view); violation != nil {
			res.Violations = append(res.Violations, *violation)
			if violation.Severity == SeverityHigh {
				res.HighSeverity++
				v.recordSuspicious(matchID, agentID, violation)
			}
			continue
		}
		res.Admitted = append(res.Admitted, order)
	}
	return res
}

// checkOrder runs the semantic checks in order, short-circuiting on the
// first failure. Returns nil when the order is admissible.
func (v *Validator) checkOrder(index int, order *models.Order, view *models.FilteredView) *Violation {
	// 1. Order kind.
	if !order.Kind.IsValid() {
		return &Violation{
			Code:       CodeInvalidKind,
			Severity:   SeverityLow,
			OrderIndex: index,
			Message:    fmt.Sprintf("unknown order kind %q", order.Kind),
		}
	}

	// 2. Ownership: every subject id must belong to the submitting agent.
	for _, id := range order.UnitIDs {
		if !view.OwnsUnit(id) {
			return &Violation{
				Code:       CodeOwnershipViolation,
				Severity:   SeverityHigh,
				OrderIndex: index,
				Message:    fmt.Sprintf("unit %d is not owned by the submitting agent", id),
			}
		}
	}
	if order.BuildingID != 0 && !view.OwnsBuilding(order.BuildingID) {
		return &Violation{
			Code:       CodeOwnershipViolation,
			Severity:   SeverityHigh,
			OrderIndex: index,
			Message:    fmt.Sprintf("building %d is not owned by the submitting agent", order.BuildingID),
		}
	}

	// 3. Target bounds.
	if order.TargetCell != nil && !view.Map.InBounds(*order.TargetCell) {
		return &Violation{
			Code:       CodeTargetOutOfBounds,
			Severity:   SeverityLow,
			OrderIndex: index,
			Message:    fmt.Sprintf("target cell %s outside %dx%d map", order.TargetCell, view.Map.Width, view.Map.Height),
		}
	}

	// 4. Count.
	if order.Count != 0 && (order.Count < countMin || order.Count > countMax) {
		return &Violation{
			Code:       CodeInvalidCount,
			Severity:   SeverityLow,
			OrderIndex: index,
			Message:    fmt.Sprintf("count %d outside [%d, %d]", order.Count, countMin, countMax),
		}
	}

	// 5. Subject set size against the profile's per-order unit-command cap.
	if !v.profile.Unlimited() && order.SubjectCount() > v.profile.MaxUnitsPerOrder {
		return &Violation{
			Code:       CodeSubjectSetTooLarge,
			Severity:   SeverityLow,
			OrderIndex: index,
			Message:    fmt.Sprintf("%d subjects exceeds per-order cap of %d", order.SubjectCount(), v.profile.MaxUnitsPerOrder),
		}
	}

	return nil
}

func (v *Validator) recordSuspicious(matchID, agentID string, violation *Violation) {
	if v.audit == nil {
		return
	}
	v.audit.Record(SuspiciousEvent{
		MatchID:    matchID,
		AgentID:    agentID,
		Code:       violation.Code,
		Message:    violation.Message,
		ObservedAt: time.Now(),
	})
}
