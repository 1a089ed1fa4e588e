package slack

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/slack-go/slack"

	"github.com/mauv0809/ripple-snapshot/internal/metrics"
	"github.com/mauv0809/ripple-snapshot/internal/notifier"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier posts publisher alerts to a Slack channel.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics, options ...slack.Option) *Notifier {
	return NewNotifierWithAPI(slack.New(token, options...), channelID, metrics)
}

// NewNotifierWithAPI creates a new Notifier with a specific slack client.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) SendRefreshFailure(ctx context.Context, failure notifier.RefreshFailure) error {
	return s.sendMessage(ctx, formatRefreshFailure(failure))
}

func (s *Notifier) SendRecovered(ctx context.Context, recovery notifier.Recovery) error {
	return s.sendMessage(ctx, formatRecovered(recovery))
}

func (s *Notifier) sendMessage(ctx context.Context, message slack.Message) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
	)
	if err != nil {
		s.metrics.IncAlerts("failed")
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncAlerts("sent")
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return nil
}

func formatRefreshFailure(failure notifier.RefreshFailure) slack.Message {
	header := slack.NewTextBlockObject("plain_text", "Leaderboard snapshot refresh failed", true, false)
	details := fmt.Sprintf("*Error:* `%s`", failure.Error)
	at := time.UnixMilli(failure.AtMs).UTC().Format(time.RFC3339)

	return slack.NewBlockMessage(
		slack.NewHeaderBlock(header),
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", details, false, false), nil, nil),
		slack.NewContextBlock("",
			slack.NewTextBlockObject("plain_text", "Run "+failure.Token, false, false),
			slack.NewTextBlockObject("plain_text", at, false, false),
		),
	)
}

func formatRecovered(recovery notifier.Recovery) slack.Message {
	header := slack.NewTextBlockObject("plain_text", "Leaderboard snapshot publishing recovered", true, false)
	details := fmt.Sprintf("Published %d stable and %d danger rows after %d failed refreshes.",
		recovery.StableRows, recovery.DangerRows, recovery.FailedAttempts)
	at := time.UnixMilli(recovery.GeneratedAtMs).UTC().Format(time.RFC3339)

	return slack.NewBlockMessage(
		slack.NewHeaderBlock(header),
		slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", details, false, false), nil, nil),
		slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", "Generation "+at, false, false)),
	)
}
