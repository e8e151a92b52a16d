package relations

import "testing"

func TestMetadataExclusivity(t *testing.T) {
	// A type is never both symmetric and inverse-bearing.
	for _, typ := range Types() {
		meta := MetadataFor(typ)
		if meta.Symmetric && meta.Inverse != "" {
			t.Errorf("%s is both symmetric and inverse-bearing", typ)
		}
	}
}

func TestInversePairsAreMutual(t *testing.T) {
	for _, typ := range Types() {
		inverse := InverseOf(typ)
		if inverse == "" {
			continue
		}
		if InverseOf(inverse) != typ {
			t.Errorf("inverse of %s is %s, but inverse of %s is %s",
				typ, inverse, inverse, InverseOf(inverse))
		}
	}
}

func TestRequiredProperties(t *testing.T) {
	tests := []struct {
		typ  RelationType
		want []string
	}{
		{NextStep, []string{"order"}},
		{Prerequisite, []string{"importance"}},
		{References, []string{"section"}},
		{SimilarTo, []string{"similarity_score"}},
		{ParentOf, nil},
		{Follows, nil},
	}

	for _, tt := range tests {
		got := RequiredProperties(tt.typ)
		if len(got) != len(tt.want) {
			t.Errorf("RequiredProperties(%s) = %v, want %v", tt.typ, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("RequiredProperties(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		}
	}
}

func TestSymmetricTypes(t *testing.T) {
	for _, typ := range []RelationType{RelatedTo, SimilarTo, Alternative} {
		if !IsSymmetric(typ) {
			t.Errorf("expected %s to be symmetric", typ)
		}
	}
	for _, typ := range []RelationType{NextStep, References, ParentOf} {
		if IsSymmetric(typ) {
			t.Errorf("expected %s not to be symmetric", typ)
		}
	}
}

func TestInversePairs(t *testing.T) {
	tests := []struct {
		typ, inverse RelationType
	}{
		{References, CitedBy},
		{CitedBy, References},
		{ParentOf, ChildOf},
		{ChildOf, ParentOf},
	}
	for _, tt := range tests {
		if got := InverseOf(tt.typ); got != tt.inverse {
			t.Errorf("InverseOf(%s) = %s, want %s", tt.typ, got, tt.inverse)
		}
	}

	if InverseOf(NextStep) != "" {
		t.Error("NextStep should have no inverse")
	}
}

func TestValid(t *testing.T) {
	if !Valid(NextStep) {
		t.Error("NEXT_STEP should be valid")
	}
	if !Valid(Prevents) {
		t.Error("PREVENTS should be valid")
	}
	if Valid("FRIENDS_WITH") {
		t.Error("FRIENDS_WITH should not be valid")
	}
	if Valid("") {
		t.Error("empty type should not be valid")
	}
}
