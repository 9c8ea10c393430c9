package document

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Action classifies what a generation pass does to one record.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionRestore Action = "restore" // soft-deleted record whose key reappeared
)

// Target is one child mapping row linking a generated document to the
// candidate chosen for a parameter.
type Target struct {
	Param          string
	CandidateID    string
	CandidateTitle string
}

// Record is a persisted generated document. DeletedAt is the soft-delete
// marker; records persist indefinitely in soft-deleted form unless purged
// externally.
type Record struct {
	ID          string
	OwnerType   string
	OwnerID     string
	Key         string
	Name        string
	Description string
	DeletedAt   *time.Time
	Targets     []Target
}

// Trashed reports whether the record is soft-deleted.
func (r Record) Trashed() bool { return r.DeletedAt != nil }

// PlannedDocument is one create/update/restore decision with the refreshed
// display fields and mapping targets.
type PlannedDocument struct {
	Action      Action
	RecordID    string // set for update/restore
	Key         string
	Name        string
	Description string
	Targets     []Target
}

// Plan is the full reconciliation decision for one owner: documents to
// create, update or restore, and the keys of records to soft-delete because
// no combination produced them this pass.
type Plan struct {
	Owner     Owner
	Documents []PlannedDocument
	Deletes   []Record
}

// Repository is the persistence surface the plan is applied against.
// ListByOwner must include soft-deleted records so restores can be planned.
type Repository interface {
	ListByOwner(ctx context.Context, owner Owner) ([]Record, error)
	Create(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error
	Restore(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	ReplaceTargets(ctx context.Context, id string, targets []Target) error
}

// BuildPlan reconciles the expanded combinations against the owner's
// existing records. Display fields are always refreshed to the latest
// computed values, even for records that already exist.
func BuildPlan(owner Owner, baseName string, combos []Combination, existing []Record) Plan {
	plan := Plan{Owner: owner}

	byKey := make(map[string]Record, len(existing))
	for _, rec := range existing {
		byKey[rec.Key] = rec
	}

	seen := make(map[string]bool, len(combos))
	for _, combo := range combos {
		key := Key(owner, combo)
		if seen[key] {
			continue
		}
		seen[key] = true

		doc := PlannedDocument{
			Key:         key,
			Name:        displayName(baseName, combo),
			Description: description(combo),
			Targets:     targets(combo),
		}

		if rec, ok := byKey[key]; ok {
			doc.RecordID = rec.ID
			doc.Action = ActionUpdate
			if rec.Trashed() {
				doc.Action = ActionRestore
			}
		} else {
			doc.Action = ActionCreate
		}
		plan.Documents = append(plan.Documents, doc)
	}

	for _, rec := range existing {
		if !seen[rec.Key] && !rec.Trashed() {
			plan.Deletes = append(plan.Deletes, rec)
		}
	}
	return plan
}

// Apply runs the plan against the repository: create/update/restore first,
// then soft-delete the leftovers, so a record is never both absent and
// deleted within one pass. Callers must serialize passes per owner.
func Apply(ctx context.Context, repo Repository, plan Plan) error {
	for _, doc := range plan.Documents {
		switch doc.Action {
		case ActionCreate:
			rec := &Record{
				OwnerType:   plan.Owner.Type,
				OwnerID:     plan.Owner.ID,
				Key:         doc.Key,
				Name:        doc.Name,
				Description: doc.Description,
				Targets:     doc.Targets,
			}
			if err := repo.Create(ctx, rec); err != nil {
				return fmt.Errorf("create document %s: %w", doc.Key, err)
			}
			if err := repo.ReplaceTargets(ctx, rec.ID, doc.Targets); err != nil {
				return fmt.Errorf("write targets for %s: %w", doc.Key, err)
			}

		case ActionUpdate, ActionRestore:
			rec := &Record{
				ID:          doc.RecordID,
				OwnerType:   plan.Owner.Type,
				OwnerID:     plan.Owner.ID,
				Key:         doc.Key,
				Name:        doc.Name,
				Description: doc.Description,
			}
			if err := repo.Update(ctx, rec); err != nil {
				return fmt.Errorf("update document %s: %w", doc.Key, err)
			}
			if doc.Action == ActionRestore {
				if err := repo.Restore(ctx, doc.RecordID); err != nil {
					return fmt.Errorf("restore document %s: %w", doc.Key, err)
				}
			}
			if err := repo.ReplaceTargets(ctx, doc.RecordID, doc.Targets); err != nil {
				return fmt.Errorf("write targets for %s: %w", doc.Key, err)
			}
		}
	}

	for _, rec := range plan.Deletes {
		if err := repo.SoftDelete(ctx, rec.ID); err != nil {
			return fmt.Errorf("soft-delete document %s: %w", rec.Key, err)
		}
	}
	return nil
}

// displayName renders the human-readable document name, e.g.
// 見積書【2024年度-東京支店】.
func displayName(baseName string, combo Combination) string {
	titles := make([]string, 0, len(combo))
	for _, sel := range combo {
		titles = append(titles, sel.Candidate.Title)
	}
	return baseName + "【" + strings.Join(titles, "-") + "】"
}

// description lists one "param:title" line per selection.
func description(combo Combination) string {
	var b strings.Builder
	for _, sel := range combo {
		b.WriteString(sel.Param)
		b.WriteString(":")
		b.WriteString(sel.Candidate.Title)
		b.WriteString("\n")
	}
	return b.String()
}

func targets(combo Combination) []Target {
	ts := make([]Target, 0, len(combo))
	for _, sel := range combo {
		ts = append(ts, Target{
			Param:          sel.Param,
			CandidateID:    sel.Candidate.ID,
			CandidateTitle: sel.Candidate.Title,
		})
	}
	return ts
}
