package orders

import (
	"fmt"
	"time"
)

// ViolationCode classifies an order or batch refusal.
type ViolationCode string

// Violation codes. Semantic codes apply per order; rate codes apply per batch.
const (
	CodeInvalidKind        ViolationCode = "InvalidKind"
	CodeOwnershipViolation ViolationCode = "OwnershipViolation"
	CodeTargetOutOfBounds  ViolationCode = "TargetOutOfBounds"
	CodeInvalidCount       ViolationCode = "InvalidCount"
	CodeSubjectSetTooLarge ViolationCode = "SubjectSetTooLarge"
	CodeTooFast            ViolationCode = "TooFast"
	CodeBatchTooLarge      ViolationCode = "BatchTooLarge"
	CodeAPMCeiling         ViolationCode = "ApmCeiling"
)

// Severity grades a violation. High-severity violations count toward the
// per-match forfeit budget and are recorded in the suspicious-event log.
type Severity string

// Severity constants.
const (
	SeverityLow  Severity = "low"
	SeverityHigh Severity = "high"
)

// Violation describes a rejected order or batch.
type Violation struct {
	Code       ViolationCode `json:"code"`
	Severity   Severity      `json:"severity"`
	OrderIndex int           `json:"order_index"` // -1 for batch-level violations
	Message    string        `json:"message"`
}

// String renders the violation for the order_violations wire frame.
func (v Violation) String() string {
	if v.OrderIndex < 0 {
		return fmt.Sprintf("%s: %s", v.Code, v.Message)
	}
	return fmt.Sprintf("order %d: %s: %s", v.OrderIndex, v.Code, v.Message)
}

// RateError is a batch-level rate refusal. The whole batch is rejected
// atomically; Cooldown hints when the agent may retry.
type RateError struct {
	Code     ViolationCode
	Cooldown time.Duration
	Message  string
}

// Error implements the error interface.
func (e *RateError) Error() string {
	if e.Cooldown > 0 {
		return fmt.Sprintf("%s: %s (retry in %s)", e.Code, e.Message, e.Cooldown)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
