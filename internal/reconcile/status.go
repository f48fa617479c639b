package reconcile

import "labreserve/internal/model"

// statusRank orders statuses for merging; lower wins.
//
// CANCELLED outranks APPROVED, so one collaborator's cancelled copy hides an
// approved view of the same session. The repository derives group status the
// same way. Whether cancellation should be sticky across viewers is still an
// open product question; change the ranking here, not in the merge plumbing.
var statusRank = map[model.Status]int{
	model.StatusCancelled:   0,
	model.StatusDeclined:    1,
	model.StatusRejected:    1,
	model.StatusExpired:     2,
	model.StatusPending:     3,
	model.StatusConflicting: 3,
	model.StatusApproved:    4,
	model.StatusConfirmed:   4,
}

const unknownRank = 5

func rank(s model.Status) int {
	if r, ok := statusRank[model.NormalizeStatus(string(s))]; ok {
		return r
	}
	return unknownRank
}

// ResolveStatus picks the status a merged session shows when two records of it
// disagree. Ties keep existing.
func ResolveStatus(existing, incoming model.Status) model.Status {
	existing = model.NormalizeStatus(string(existing))
	incoming = model.NormalizeStatus(string(incoming))
	if existing == "" {
		return incoming
	}
	if incoming == "" {
		return existing
	}
	if rank(incoming) < rank(existing) {
		return incoming
	}
	return existing
}
