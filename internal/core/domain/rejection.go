package domain

import "net/http"

// Stage names a step of the submission pipeline.
type Stage string

const (
	StageMethod       Stage = "method"
	StageSize         Stage = "size"
	StageParse        Stage = "parse"
	StageCSRF         Stage = "csrf"
	StageDoubleSubmit Stage = "double_submit"
	StageBotScore     Stage = "bot_score"
	StageHoneypot     Stage = "honeypot"
	StageTimestamp    Stage = "timestamp"
	StageRateLimit    Stage = "rate_limit"
	StageFields       Stage = "fields"
	StageContent      Stage = "content"
	StageDispatch     Stage = "dispatch"
	StageIPPolicy     Stage = "ip_policy"
	StageInternal     Stage = "internal"
)

// Rejection is the typed outcome of a failed pipeline stage.
//
// Message is safe to show to the client. Reason is for logs only.
type Rejection struct {
	Stage   Stage
	Code    string
	Message string
	Status  int

	// Field and Rule are set for validation failures.
	Field string
	Rule  string

	// Reason is the stage-specific log text.
	Reason string

	// Action is the audit action recorded for this rejection.
	Action AuditAction
}

// Error implements error so rejections can travel through error returns.
func (r *Rejection) Error() string {
	return string(r.Stage) + ": " + r.Reason
}

// Reject builds a rejection from a domain error, taking its code and message.
func Reject(stage Stage, de *DomainError, status int, reason string) *Rejection {
	return &Rejection{
		Stage:   stage,
		Code:    de.Code,
		Message: de.Message,
		Status:  status,
		Reason:  reason,
		Action:  ActionSubmitFailed,
	}
}

// SecurityRejection is a 400 rejection with the generic security message
// unless msg overrides it.
func SecurityRejection(stage Stage, reason, msg string) *Rejection {
	r := Reject(stage, ErrSecurityCheckFailed, http.StatusBadRequest, reason)
	if msg != "" {
		r.Message = msg
	}
	return r
}

// ValidationRejection is a 400 rejection naming the offending field.
func ValidationRejection(field, rule, msg string) *Rejection {
	r := Reject(StageFields, ErrValidationFailed, http.StatusBadRequest, "validation failed: "+field+"/"+rule)
	r.Message = msg
	r.Field = field
	r.Rule = rule
	return r
}

// Blocked marks the rejection as a block rather than a plain failure.
func (r *Rejection) Blocked() *Rejection {
	r.Action = ActionSubmitBlocked
	return r
}
