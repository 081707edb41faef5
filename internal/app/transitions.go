package app

import "civicvoice/api/internal/store"

// legalTransitions is the complaint status graph. Anything not listed is
// rejected before touching the store. Assigned→In Progress and
// In Progress→Resolved belong to the assigned partner; Assigned→Admin
// Accepted is the partner returning the complaint to the pool.
var legalTransitions = map[store.Status][]store.Status{
	store.StatusPending:       {store.StatusAdminAccepted, store.StatusRejected},
	store.StatusAdminAccepted: {store.StatusAssigned, store.StatusRejected},
	store.StatusAssigned:      {store.StatusInProgress, store.StatusAdminAccepted},
	store.StatusInProgress:    {store.StatusResolved},
}

func transitionAllowed(from, to store.Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
