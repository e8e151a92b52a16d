package relations

// Metadata describes the static behavior of a relation type. A type is
// never both symmetric and inverse-bearing.
type Metadata struct {
	Description string
	Symmetric   bool
	Inverse     RelationType // empty when the type has no inverse
	Required    []string     // property keys that must be present
}

var metadataTable = map[RelationType]Metadata{
	NextStep: {
		Description: "marks the next document in a sequence",
		Required:    []string{"order"},
	},
	Prerequisite: {
		Description: "marks a document as a prerequisite of another",
		Required:    []string{"importance"},
	},
	References: {
		Description: "marks a document as referencing another",
		Inverse:     CitedBy,
		Required:    []string{"section"},
	},
	CitedBy: {
		Description: "marks a document as cited by another",
		Inverse:     References,
		Required:    []string{"section"},
	},
	RelatedTo: {
		Description: "general association between documents",
		Symmetric:   true,
		Required:    []string{"type"},
	},
	SimilarTo: {
		Description: "marks two documents as similar",
		Symmetric:   true,
		Required:    []string{"similarity_score"},
	},
	Alternative: {
		Description: "marks a document as an alternative to another",
		Symmetric:   true,
		Required:    []string{"scenario"},
	},
	ParentOf: {
		Description: "marks a document as the parent of another",
		Inverse:     ChildOf,
	},
	ChildOf: {
		Description: "marks a document as the child of another",
		Inverse:     ParentOf,
	},
	Explains: {
		Description: "marks a document as explaining another",
		Required:    []string{"aspect"},
	},
	Implements: {
		Description: "marks a document as implementing another",
		Required:    []string{"version"},
	},
	Solves: {
		Description: "marks a document as solving the problem in another",
		Required:    []string{"solution_type"},
	},
}

// allTypes is the closed enumeration. Types without a metadataTable entry
// carry zero-value metadata: directed, no inverse, no required properties.
var allTypes = map[RelationType]struct{}{
	NextStep: {}, Prerequisite: {}, Follows: {},
	References: {}, CitedBy: {},
	RelatedTo: {}, SimilarTo: {}, Alternative: {},
	ParentOf: {}, ChildOf: {}, BelongsTo: {},
	Explains: {}, Implements: {}, Extends: {},
	Solves: {}, Causes: {}, Prevents: {},
}

// Valid reports whether t is a member of the closed relation type set.
// Callers at API boundaries should reject invalid types before handing
// them to the engine; inside the engine an unknown type is a programming
// error, not a runtime condition.
func Valid(t RelationType) bool {
	_, ok := allTypes[t]
	return ok
}

// MetadataFor returns the static metadata for a relation type.
func MetadataFor(t RelationType) Metadata {
	return metadataTable[t]
}

// IsSymmetric reports whether a relation of type t exists identically in
// both directions.
func IsSymmetric(t RelationType) bool {
	return metadataTable[t].Symmetric
}

// InverseOf returns the inverse relation type for t, or "" when t has none.
func InverseOf(t RelationType) RelationType {
	return metadataTable[t].Inverse
}

// RequiredProperties returns the property keys a relation of type t must
// carry.
func RequiredProperties(t RelationType) []string {
	return metadataTable[t].Required
}

// Types returns all members of the closed relation type set.
func Types() []RelationType {
	out := make([]RelationType, 0, len(allTypes))
	for t := range allTypes {
		out = append(out, t)
	}
	return out
}
