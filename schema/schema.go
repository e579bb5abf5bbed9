package schema

import (
	"fmt"
	"strings"
)

// Action is the closed set of follow-up actions a resolved ticket may carry.
type Action string

const (
	ActionNone             Action = "none"
	ActionCustomerRequired Action = "customer_action_required"
	ActionFollowUp         Action = "follow_up_required"
	ActionEscalateSupport  Action = "escalate_to_support"
	ActionEscalateAbuse    Action = "escalate_to_abuse_team"
	ActionEscalateBilling  Action = "escalate_to_billing"
	ActionEscalateTech     Action = "escalate_to_technical"

	// ActionUndecided is an internal sentinel emitted by the action
	// classifier when no prototype clears the similarity threshold. It
	// must be normalized to ActionNone before a Response crosses the
	// external boundary.
	ActionUndecided Action = "no_action"
)

// Actions lists every externally valid action value.
var Actions = []Action{
	ActionNone,
	ActionCustomerRequired,
	ActionFollowUp,
	ActionEscalateSupport,
	ActionEscalateAbuse,
	ActionEscalateBilling,
	ActionEscalateTech,
}

// Valid reports whether a is one of the seven externally valid actions.
// The internal ActionUndecided sentinel is not valid externally.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Normalize maps the internal undecided sentinel to ActionNone and leaves
// every other value untouched.
func (a Action) Normalize() Action {
	if a == ActionUndecided {
		return ActionNone
	}
	return a
}

const (
	// MaxAnswerLength bounds the answer text of a validated response.
	MaxAnswerLength = 5000
	// MaxReferences bounds how many citations a response may carry.
	MaxReferences = 3

	// MinTicketLength and MaxTicketLength bound incoming ticket text.
	MinTicketLength = 5
	MaxTicketLength = 5000
)

// TicketRequest is the external request contract.
type TicketRequest struct {
	TicketText string `json:"ticket_text"`
}

// Validate enforces the ticket length bounds.
func (r TicketRequest) Validate() error {
	n := len(r.TicketText)
	if n < MinTicketLength || n > MaxTicketLength {
		return &ValidationError{
			Field:   "ticket_text",
			Message: fmt.Sprintf("length must be between %d and %d characters, got %d", MinTicketLength, MaxTicketLength, n),
		}
	}
	return nil
}

// Response is the external response contract for a resolved ticket.
type Response struct {
	Answer         string   `json:"answer"`
	References     []string `json:"references"`
	ActionRequired Action   `json:"action_required"`
}

// ValidationError describes a single contract violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
}

// Validate enforces the response contract:
//   - answer non-blank after trimming, at most MaxAnswerLength characters
//   - references trimmed of blank entries, at most MaxReferences surviving
//     (more is a violation, never a silent truncation)
//   - action_required one of the seven closed enum values; the internal
//     undecided sentinel must already have been normalized away
//
// On success the receiver is updated in place with the trimmed answer and
// cleaned references.
func (r *Response) Validate() error {
	answer := strings.TrimSpace(r.Answer)
	if answer == "" {
		return &ValidationError{Field: "answer", Message: "must be non-empty"}
	}
	if len(answer) > MaxAnswerLength {
		return &ValidationError{
			Field:   "answer",
			Message: fmt.Sprintf("length must be at most %d characters, got %d", MaxAnswerLength, len(answer)),
		}
	}

	cleaned := make([]string, 0, len(r.References))
	for _, ref := range r.References {
		if trimmed := strings.TrimSpace(ref); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) > MaxReferences {
		return &ValidationError{
			Field:   "references",
			Message: fmt.Sprintf("at most %d references allowed, got %d", MaxReferences, len(cleaned)),
		}
	}

	if !r.ActionRequired.Valid() {
		return &ValidationError{
			Field:   "action_required",
			Message: fmt.Sprintf("unknown action %q", r.ActionRequired),
		}
	}

	r.Answer = answer
	r.References = cleaned
	return nil
}
