package relations

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrCyclicDependency is returned when creating a relation would close
	// a directed cycle through the relation graph.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrRelationNotFound is returned when deleting a relation that does
	// not exist.
	ErrRelationNotFound = errors.New("relation not found")
)

// NotFoundError reports a missing document.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s", e.ID)
}

// MissingPropertyError reports a relation proposal lacking a property the
// registry requires for its type.
type MissingPropertyError struct {
	Type     RelationType
	Property string
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("relation type %s requires property %q", e.Type, e.Property)
}

// CardinalityError reports a relation proposal exceeding the count ceiling
// for its type on the source document.
type CardinalityError struct {
	Type  RelationType
	Limit int
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("relation limit exceeded for type %s (limit %d)", e.Type, e.Limit)
}

// IncompatibleError reports a relation proposal conflicting with an
// existing relation of an incompatible type on the same document.
type IncompatibleError struct {
	Type     RelationType
	Conflict RelationType
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("relation type %s is incompatible with existing %s relation", e.Type, e.Conflict)
}

// IsValidationError reports whether err is a policy rejection of the
// proposed relation, as opposed to a store failure or a missing document.
// Validation errors are terminal for the proposal; retrying an unchanged
// proposal would fail identically.
func IsValidationError(err error) bool {
	if errors.Is(err, ErrCyclicDependency) {
		return true
	}
	var (
		missing      *MissingPropertyError
		cardinality  *CardinalityError
		incompatible *IncompatibleError
	)
	return errors.As(err, &missing) || errors.As(err, &cardinality) || errors.As(err, &incompatible)
}

// IsNotFound reports whether err indicates a missing document or relation.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrRelationNotFound) {
		return true
	}
	var nf *NotFoundError
	return errors.As(err, &nf)
}
