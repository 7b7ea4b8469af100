package notedb

import "github.com/echonote/notedb/pkg/store"

// TableSpec declares one table of a persister's family.
//
// Exactly one spec per family is Primary (row id == entity id). Child
// tables reference the entity through ForeignKey. A table that is neither
// primary nor carries a foreign key (for example a shared lookup table)
// cannot be attributed to a single owner; changes to it widen the save
// scope like an unresolved deletion.
type TableSpec struct {
	Name       string
	Primary    bool
	ForeignKey string
}

// ChangeResult describes which entities a change set touches.
type ChangeResult struct {
	// AffectedIDs are the entity ids that can be targeted directly.
	AffectedIDs map[string]struct{}

	// HasUnresolvedDeletions reports that at least one changed row could
	// not be attributed to an owning entity (it no longer exists in the
	// snapshot). Callers must widen the save to the full primary table
	// rather than guess an owner.
	HasUnresolvedDeletions bool
}

// ResolveChanges maps a change set to the entities it affects.
//
// tables is the current snapshot; changed carries row-id presence per
// table (values are irrelevant). Returns nil when no changed table belongs
// to this family. Entities changed through both their primary row and a
// child row appear once.
func ResolveChanges(tables store.Tables, changed store.ChangedTables, specs []TableSpec) *ChangeResult {
	relevant := false

	result := &ChangeResult{AffectedIDs: make(map[string]struct{})}

	for _, spec := range specs {
		rows, ok := changed[spec.Name]
		if !ok {
			continue
		}

		relevant = true

		for rowID := range rows {
			switch {
			case spec.Primary:
				// The row may have just been deleted; its id is still
				// the entity id.
				result.AffectedIDs[rowID] = struct{}{}

			case spec.ForeignKey != "":
				row, exists := tables[spec.Name][rowID]
				if !exists {
					result.HasUnresolvedDeletions = true
					continue
				}

				owner, isString := row[spec.ForeignKey].(string)
				if !isString || owner == "" {
					result.HasUnresolvedDeletions = true
					continue
				}

				result.AffectedIDs[owner] = struct{}{}

			default:
				result.HasUnresolvedDeletions = true
			}
		}
	}

	if !relevant {
		return nil
	}

	return result
}
