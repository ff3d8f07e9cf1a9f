package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nholik/status-sentinel/internal/status"
	"github.com/nholik/status-sentinel/internal/transition"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

const (
	slackMaxBlocks = 50
	// slackReservedBlocks accounts for header block + context block in each message
	slackReservedBlocks = 2
	slackMaxTransitions = slackMaxBlocks - slackReservedBlocks
)

// SlackNotifier posts transitions to a Slack incoming webhook.
type SlackNotifier struct {
	logger   zerolog.Logger
	username string
	tuning   delivery
	poster   *poster
}

// SlackOption customizes SlackNotifier behavior.
type SlackOption func(*SlackNotifier)

// WithSlackDelivery overrides request spacing and retry timing.
func WithSlackDelivery(minInterval time.Duration, burst int, firstRetry, maxRetry, giveUpAfter time.Duration) SlackOption {
	return func(s *SlackNotifier) {
		s.tuning.minInterval = minInterval
		s.tuning.burst = burst
		s.tuning.firstRetry = firstRetry
		s.tuning.maxRetry = maxRetry
		s.tuning.giveUpAfter = giveUpAfter
	}
}

// WithSlackUsername overrides the bot name shown on posted messages.
func WithSlackUsername(name string) SlackOption {
	return func(s *SlackNotifier) {
		s.username = name
	}
}

// NewSlackNotifier returns a Slack notifier, or a no-op notifier when webhookURL is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; slack notifications disabled")
	}

	n := &SlackNotifier{
		logger:   logger,
		username: "status-sentinel",
		tuning:   defaultDelivery,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.poster = newPoster(logger, "slack", webhookURL, n.tuning)

	return n
}

// Notify implements Notifier. Large batches are split across several messages.
func (n *SlackNotifier) Notify(ctx context.Context, transitions []transition.Transition) error {
	if len(transitions) == 0 {
		return nil
	}
	if err := n.poster.wait(ctx); err != nil {
		return err
	}

	messages := buildSlackMessages(transitions)
	for i := range messages {
		messages[i].Username = n.username
		payload, err := json.Marshal(messages[i])
		if err != nil {
			return fmt.Errorf("marshal slack payload: %w", err)
		}
		if err := n.poster.send(ctx, payload); err != nil {
			return err
		}
	}

	n.logger.Debug().
		Int("transitions", len(transitions)).
		Int("messages", len(messages)).
		Msg("slack notification sent")

	return nil
}

func buildSlackMessages(transitions []transition.Transition) []slack.WebhookMessage {
	if len(transitions) == 0 {
		return nil
	}

	total := len(transitions)
	chunkTotal := (total + slackMaxTransitions - 1) / slackMaxTransitions
	messages := make([]slack.WebhookMessage, 0, chunkTotal)

	for i := 0; i < total; i += slackMaxTransitions {
		end := i + slackMaxTransitions
		if end > total {
			end = total
		}
		partIndex := (i / slackMaxTransitions) + 1
		messages = append(messages, buildSlackMessage(transitions[i:end], total, partIndex, chunkTotal))
	}
	return messages
}

func buildSlackMessage(transitions []transition.Transition, total int, partIndex int, partTotal int) slack.WebhookMessage {
	summary := fmt.Sprintf("%d component status change(s)", total)
	if partTotal > 1 {
		summary = fmt.Sprintf("%s (part %d/%d)", summary, partIndex, partTotal)
	}
	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", summary, false, false))
	contextElements := []slack.MixedElement{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Checked at %s", checkedAt(transitions)), false, false),
	}
	if partTotal > 1 {
		contextElements = append(contextElements, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Batch: %d/%d", partIndex, partTotal), false, false))
	}
	contextBlock := slack.NewContextBlock("", contextElements...)

	blocks := []slack.Block{header, contextBlock}
	for _, change := range transitions {
		blocks = append(blocks, buildTransitionBlock(change))
	}

	blockSet := slack.Blocks{BlockSet: blocks}
	return slack.WebhookMessage{
		Text:   summary,
		Blocks: &blockSet,
	}
}

func buildTransitionBlock(change transition.Transition) slack.Block {
	title := fmt.Sprintf("%s *%s*: `%s` → `%s`", statusEmoji(change.CurrentStatus), change.Service, status.Label(change.PreviousStatus), status.Label(change.CurrentStatus))
	text := slack.NewTextBlockObject("mrkdwn", title, false, false)

	fields := make([]*slack.TextBlockObject, 0, 2)
	if change.ComponentID != "" {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", "*Component:*\n`"+change.ComponentID+"`", false, false))
	}
	if !change.PreviousChange.IsZero() {
		since := change.At.Sub(change.PreviousChange).Round(time.Second)
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Previous status held for:*\n%s", since), false, false))
	}
	if len(fields) == 0 {
		fields = nil
	}

	return slack.NewSectionBlock(text, fields, nil)
}

func statusEmoji(value status.Value) string {
	switch value {
	case status.Operational:
		return ":large_green_circle:"
	case status.DegradedPerformance:
		return ":large_yellow_circle:"
	case status.PartialOutage:
		return ":large_orange_circle:"
	case status.MajorOutage:
		return ":red_circle:"
	case status.UnderMaintenance:
		return ":large_blue_circle:"
	default:
		return ":white_circle:"
	}
}

func checkedAt(transitions []transition.Transition) string {
	for _, change := range transitions {
		if !change.At.IsZero() {
			return change.At.UTC().Format(time.RFC3339)
		}
	}
	return "unknown time"
}
