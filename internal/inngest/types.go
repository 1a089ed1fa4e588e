package inngest

import (
	"github.com/inngest/inngestgo"

	"github.com/mauv0809/ripple-snapshot/internal/processor"
)

// EventRefreshRequested asks for an out-of-schedule snapshot refresh.
const EventRefreshRequested = "ripple/snapshot.refresh.requested"

type client struct {
	inngestClient inngestgo.Client
	refresher     processor.Refresher
}

// RefreshRequest is the payload of EventRefreshRequested.
type RefreshRequest struct {
	DryRun bool `json:"dry_run"`
}
