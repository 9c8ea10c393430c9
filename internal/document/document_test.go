package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(name string, ids ...string) ParameterSet {
	s := ParameterSet{Name: name}
	for _, id := range ids {
		s.Candidates = append(s.Candidates, Candidate{ID: id, Title: "title-" + id})
	}
	return s
}

func TestExpandCombinations_Cardinality(t *testing.T) {
	combos := ExpandCombinations([]ParameterSet{
		set("A", "a1", "a2"),
		set("B", "b1", "b2", "b3"),
	})

	require.Len(t, combos, 6)

	// Every pairing distinct.
	seen := map[string]bool{}
	for _, combo := range combos {
		require.Len(t, combo, 2)
		assert.Equal(t, "A", combo[0].Param)
		assert.Equal(t, "B", combo[1].Param)
		pair := combo[0].Candidate.ID + "/" + combo[1].Candidate.ID
		assert.False(t, seen[pair], "duplicate pairing %s", pair)
		seen[pair] = true
	}
}

func TestExpandCombinations_SingleSet(t *testing.T) {
	combos := ExpandCombinations([]ParameterSet{set("A", "a1", "a2")})
	require.Len(t, combos, 2)
}

func TestExpandCombinations_NoSets(t *testing.T) {
	combos := ExpandCombinations(nil)
	require.Len(t, combos, 1)
	assert.Empty(t, combos[0], "the empty fold seeds one empty combination")
}

func TestExpandCombinations_EmptyFactorCollapsesProduct(t *testing.T) {
	t.Run("empty set first", func(t *testing.T) {
		combos := ExpandCombinations([]ParameterSet{
			set("A"),
			set("B", "b1", "b2"),
		})
		assert.Empty(t, combos)
	})

	t.Run("empty set later", func(t *testing.T) {
		combos := ExpandCombinations([]ParameterSet{
			set("A", "a1", "a2"),
			set("B"),
		})
		assert.Empty(t, combos)
	})
}

func TestExpandCombinations_NullCandidatesSkipped(t *testing.T) {
	sets := []ParameterSet{
		{Name: "A", Candidates: []Candidate{{ID: "a1", Title: "x"}, {}}},
		set("B", "b1"),
	}
	combos := ExpandCombinations(sets)
	require.Len(t, combos, 1, "the null candidate must not produce a branch")
	assert.Equal(t, "a1", combos[0][0].Candidate.ID)

	// A set of only null candidates behaves like an empty set.
	sets = []ParameterSet{
		{Name: "A", Candidates: []Candidate{{}, {}}},
		set("B", "b1"),
	}
	assert.Empty(t, ExpandCombinations(sets))
}

func TestKey_DeterministicAndOrderIndependent(t *testing.T) {
	owner := Owner{Type: "App\\Models\\Project", ID: "17"}

	combo := Combination{
		{Param: "branch", Candidate: Candidate{ID: "b-2", Title: "Osaka"}},
		{Param: "year", Candidate: Candidate{ID: "y-1", Title: "2024"}},
	}
	reversed := Combination{combo[1], combo[0]}

	assert.Equal(t, Key(owner, combo), Key(owner, combo))
	assert.Equal(t, Key(owner, combo), Key(owner, reversed),
		"selection ordering must not change the key")
}

func TestKey_VariesWithInputs(t *testing.T) {
	owner := Owner{Type: "Project", ID: "1"}
	combo := Combination{{Param: "year", Candidate: Candidate{ID: "y-1"}}}

	otherCombo := Combination{{Param: "year", Candidate: Candidate{ID: "y-2"}}}
	assert.NotEqual(t, Key(owner, combo), Key(owner, otherCombo))

	otherOwner := Owner{Type: "Project", ID: "2"}
	assert.NotEqual(t, Key(owner, combo), Key(otherOwner, combo))

	otherType := Owner{Type: "Order", ID: "1"}
	assert.NotEqual(t, Key(owner, combo), Key(otherType, combo))
}

func TestKey_IgnoresTitles(t *testing.T) {
	owner := Owner{Type: "Project", ID: "1"}
	a := Combination{{Param: "year", Candidate: Candidate{ID: "y-1", Title: "2024"}}}
	b := Combination{{Param: "year", Candidate: Candidate{ID: "y-1", Title: "FY2024 (renamed)"}}}
	assert.Equal(t, Key(owner, a), Key(owner, b), "titles are display-only")
}
