package statuspage

import (
	"context"

	"github.com/nholik/status-sentinel/internal/status"
	"github.com/rs/zerolog"
)

// DryRunUpdater logs component updates without calling the API.
type DryRunUpdater struct {
	logger zerolog.Logger
	pageID string
}

// NewDryRunUpdater returns an updater that only logs.
func NewDryRunUpdater(logger zerolog.Logger, pageID string) *DryRunUpdater {
	return &DryRunUpdater{logger: logger, pageID: pageID}
}

// UpdateComponentStatus implements ComponentUpdater.
func (u *DryRunUpdater) UpdateComponentStatus(_ context.Context, componentID string, value status.Value) (*Component, error) {
	u.logger.Info().
		Str("page_id", u.pageID).
		Str("component_id", componentID).
		Str("status", string(value)).
		Msg("[DRY-RUN] Would update component")
	return &Component{ID: componentID, PageID: u.pageID, Status: value}, nil
}
