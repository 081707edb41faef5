package app

import (
	"testing"

	"civicvoice/api/internal/store"
)

func TestTransitionAllowed(t *testing.T) {
	allowed := []struct{ from, to store.Status }{
		{store.StatusPending, store.StatusAdminAccepted},
		{store.StatusPending, store.StatusRejected},
		{store.StatusAdminAccepted, store.StatusAssigned},
		{store.StatusAdminAccepted, store.StatusRejected},
		{store.StatusAssigned, store.StatusInProgress},
		{store.StatusAssigned, store.StatusAdminAccepted},
		{store.StatusInProgress, store.StatusResolved},
	}
	for _, tc := range allowed {
		if !transitionAllowed(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to store.Status }{
		{store.StatusPending, store.StatusAssigned},
		{store.StatusPending, store.StatusResolved},
		{store.StatusAdminAccepted, store.StatusInProgress},
		{store.StatusInProgress, store.StatusRejected},
		{store.StatusResolved, store.StatusPending},
		{store.StatusRejected, store.StatusAdminAccepted},
		{store.StatusPending, store.StatusPending},
	}
	for _, tc := range denied {
		if transitionAllowed(tc.from, tc.to) {
			t.Errorf("%s -> %s should be denied", tc.from, tc.to)
		}
	}
}
