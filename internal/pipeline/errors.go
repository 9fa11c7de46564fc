package pipeline

import "fmt"

// InputError is returned when a submission is rejected before any work runs.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Collaborator names used in ServiceError.
const (
	CollaboratorGenerator = "generator"
	CollaboratorLedger    = "ledger"
)

// ServiceError wraps a failure of an external collaborator. The core does not
// retry; callers decide whether to resubmit.
type ServiceError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s unavailable during %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
