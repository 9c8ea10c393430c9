// Package document implements multi-document generation: expanding named
// parameter sets into the cartesian product of candidate combinations, and
// reconciling the resulting set against persisted generated-document records
// with a soft-delete lifecycle.
package document

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Candidate is one selectable entity inside a parameter set. Candidates come
// from the host application's relation data and always carry an id and a
// display title.
type Candidate struct {
	ID    string
	Title string
}

// zero reports whether the candidate is a null placeholder. Null candidates
// are excluded from expansion entirely.
func (c Candidate) zero() bool { return c.ID == "" }

// ParameterSet is a named collection of candidates for one document
// parameter.
type ParameterSet struct {
	Name       string
	Candidates []Candidate
}

// Selection binds one parameter name to the candidate chosen for it.
type Selection struct {
	Param     string
	Candidate Candidate
}

// Combination is one full selection: exactly one candidate per parameter
// set, in fold order.
type Combination []Selection

// Owner identifies the business record documents are generated for.
type Owner struct {
	Type string
	ID   string
}

// ExpandCombinations builds the cartesian product of the parameter sets by
// folding them left to right. Null candidates are skipped rather than
// producing an "absent parameter" branch, so a set whose candidates are all
// null contributes an empty factor and collapses the whole product to zero
// combinations, regardless of where it sits in the fold.
func ExpandCombinations(sets []ParameterSet) []Combination {
	result := []Combination{{}}
	for _, set := range sets {
		var next []Combination
		for _, partial := range result {
			for _, candidate := range set.Candidates {
				if candidate.zero() {
					continue
				}
				extended := make(Combination, len(partial), len(partial)+1)
				copy(extended, partial)
				extended = append(extended, Selection{Param: set.Name, Candidate: candidate})
				next = append(next, extended)
			}
		}
		result = next
	}
	return result
}

// Key computes the deduplication key for one combination of one owner. The
// parameter/candidate pairs are sorted by parameter name before hashing, so
// the key is independent of input ordering; two passes over the same
// candidate ids for the same owner always produce the same key.
func Key(owner Owner, combo Combination) string {
	pairs := make([]string, 0, len(combo))
	for _, sel := range combo {
		pairs = append(pairs, sel.Param+"="+sel.Candidate.ID)
	}
	sort.Strings(pairs)

	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s", strings.Join(pairs, "&"), owner.Type, owner.ID)
	return hex.EncodeToString(h.Sum(nil))
}
