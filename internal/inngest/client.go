package inngest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"

	"github.com/mauv0809/ripple-snapshot/internal/config"
	"github.com/mauv0809/ripple-snapshot/internal/processor"
)

// NewProvider builds the Inngest SDK client from config.
func NewProvider(cfg config.InngestConfig) (inngestgo.Client, error) {
	opts := inngestgo.ClientOpts{
		AppID: cfg.AppID,
		Dev:   &cfg.Dev,
	}
	if cfg.SigningKey != "" {
		opts.SigningKey = &cfg.SigningKey
	}
	if cfg.EventKey != "" {
		opts.EventKey = &cfg.EventKey
	}
	return inngestgo.NewClient(opts)
}

// New registers the snapshot refresh functions on inngestClient: a cron
// schedule and an on-demand event.
func New(inngestClient inngestgo.Client, refresher processor.Refresher, cron string) (InngestClient, error) {
	c := &client{
		inngestClient: inngestClient,
		refresher:     refresher,
	}
	if err := c.createScheduledRefreshFunction(cron); err != nil {
		return nil, err
	}
	if err := c.createRequestedRefreshFunction(); err != nil {
		return nil, err
	}
	return c, nil
}

// The processor retries transient failures itself.
var noRetries = 0

func (i *client) createScheduledRefreshFunction(cron string) error {
	_, err := inngestgo.CreateFunction(
		i.inngestClient,
		inngestgo.FunctionOpts{
			ID:      "ripple-snapshot-refresh",
			Name:    "Refresh stable leaderboard snapshot",
			Retries: &noRetries,
		},
		inngestgo.CronTrigger(cron),
		func(ctx context.Context, input inngestgo.Input[map[string]any]) (any, error) {
			return step.Run(ctx, "refresh", func(ctx context.Context) (processor.Result, error) {
				return refresh(ctx, i.refresher, false)
			})
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduled refresh function: %w", err)
	}
	return nil
}

func (i *client) createRequestedRefreshFunction() error {
	_, err := inngestgo.CreateFunction(
		i.inngestClient,
		inngestgo.FunctionOpts{
			ID:      "ripple-snapshot-refresh-requested",
			Name:    "Refresh stable leaderboard snapshot on request",
			Retries: &noRetries,
		},
		inngestgo.EventTrigger(EventRefreshRequested, nil),
		func(ctx context.Context, input inngestgo.Input[RefreshRequest]) (any, error) {
			dryRun := input.Event.Data.DryRun
			return step.Run(ctx, "refresh", func(ctx context.Context) (processor.Result, error) {
				return refresh(ctx, i.refresher, dryRun)
			})
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create requested refresh function: %w", err)
	}
	return nil
}

func (i *client) Serve() http.Handler {
	return i.inngestClient.Serve()
}

func refresh(ctx context.Context, refresher processor.Refresher, dryRun bool) (processor.Result, error) {
	res, err := refresher.Refresh(ctx, dryRun)
	if err != nil {
		log.Error("Inngest snapshot refresh failed", "error", err)
		return res, err
	}
	if res.Skipped {
		log.Info("Inngest snapshot refresh skipped", "reason", res.Reason)
	}
	return res, nil
}
