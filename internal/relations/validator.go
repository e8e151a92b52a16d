package relations

import (
	"context"
	"fmt"
	"time"
)

// ValidationStore is the read surface the validator needs from the graph
// store.
type ValidationStore interface {
	DocumentExists(ctx context.Context, id string) (bool, error)
	GetOutgoingRelations(ctx context.Context, id string) ([]Relation, error)
}

// Validator decides whether a proposed relation may be created, and
// prepares the set of relations to commit when it may.
type Validator struct {
	store  ValidationStore
	cycles *CycleDetector
}

// NewValidator returns a validator backed by the given store.
func NewValidator(store ValidationStore) *Validator {
	return &Validator{
		store:  store,
		cycles: NewCycleDetector(store),
	}
}

// CommitPlan enumerates the relations a validated proposal commits: the
// primary relation, plus the symmetric or inverse counterpart when the
// registry defines one. The store must write the plan as one transaction;
// a reader must never observe the primary without the derived relation.
type CommitPlan struct {
	Primary Relation
	Derived *Relation
}

// Relations returns the plan's relations in commit order.
func (p CommitPlan) Relations() []Relation {
	if p.Derived == nil {
		return []Relation{p.Primary}
	}
	return []Relation{p.Primary, *p.Derived}
}

// Validate checks a proposed relation. Checks run in a fixed order and
// stop at the first failure: document existence, required properties,
// cardinality, compatibility, cycle safety.
func (v *Validator) Validate(ctx context.Context, source, target string, t RelationType, properties map[string]any) error {
	for _, id := range []string{source, target} {
		exists, err := v.store.DocumentExists(ctx, id)
		if err != nil {
			return fmt.Errorf("checking document %s: %w", id, err)
		}
		if !exists {
			return &NotFoundError{ID: id}
		}
	}

	for _, key := range RequiredProperties(t) {
		if _, ok := properties[key]; !ok {
			return &MissingPropertyError{Type: t, Property: key}
		}
	}

	existing, err := v.store.GetOutgoingRelations(ctx, source)
	if err != nil {
		return fmt.Errorf("reading relations of %s: %w", source, err)
	}

	sameType := 0
	existingTypes := make([]RelationType, 0, len(existing))
	for _, rel := range existing {
		existingTypes = append(existingTypes, rel.Type)
		if rel.Type == t {
			sameType++
		}
	}

	if !CheckCount(sameType, t) {
		return &CardinalityError{Type: t, Limit: TypeLimit(t)}
	}

	if conflict, found := Incompatibility(t, existingTypes); found {
		return &IncompatibleError{Type: t, Conflict: conflict}
	}

	cyclic, err := v.cycles.WouldCreateCycle(ctx, source, target)
	if err != nil {
		return err
	}
	if cyclic {
		return ErrCyclicDependency
	}

	return nil
}

// ValidateAndPrepare validates a proposed relation and, on success,
// returns the commit plan including any symmetric or inverse counterpart.
func (v *Validator) ValidateAndPrepare(ctx context.Context, source, target string, t RelationType, properties map[string]any) (CommitPlan, error) {
	if err := v.Validate(ctx, source, target, t, properties); err != nil {
		return CommitPlan{}, err
	}

	now := time.Now().UTC()
	plan := CommitPlan{
		Primary: Relation{
			Source:     source,
			Target:     target,
			Type:       t,
			Properties: properties,
			Created:    now,
		},
	}

	switch {
	case IsSymmetric(t):
		plan.Derived = &Relation{
			Source:     target,
			Target:     source,
			Type:       t,
			Properties: properties,
			Created:    now,
		}
	case InverseOf(t) != "":
		plan.Derived = &Relation{
			Source:     target,
			Target:     source,
			Type:       InverseOf(t),
			Properties: properties,
			Created:    now,
		}
	}

	return plan, nil
}
