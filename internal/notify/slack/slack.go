// Package slack sends detection run notifications to Slack via incoming
// webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/linnemanlabs/gleaner/internal/glean"
)

const (
	maxDigestLen = 3000
	httpTimeout  = 10 * time.Second
)

// Notifier sends completed runs to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a completed run to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, run *glean.Run, gleans []glean.Glean) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(run, gleans)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(run *glean.Run, gleans []glean.Glean) map[string]any {
	blocks := []map[string]any{
		headerBlock(run),
		{"type": "divider"},
		fieldsBlock(run),
	}

	if run.Digest != "" {
		blocks = append(blocks,
			map[string]any{"type": "divider"},
			digestBlock(run),
		)
	} else if len(gleans) > 0 {
		blocks = append(blocks,
			map[string]any{"type": "divider"},
			rulesBlock(run),
		)
	}

	blocks = append(blocks,
		map[string]any{"type": "divider"},
		contextBlock(run),
	)

	return map[string]any{"blocks": blocks}
}

func headerBlock(run *glean.Run) map[string]any {
	emoji := statusEmoji(run)
	title := "Detection Run Complete"
	if run.Status == glean.StatusFailed {
		title = "Detection Run Failed"
	}
	text := fmt.Sprintf("%s %s: %d gleans", emoji, title, run.GleanCount)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(run *glean.Run) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Window:* %s to %s",
				run.WindowStart.Format("2006-01-02"), run.WindowEnd.Format("2006-01-02")),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", run.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Invoices:* %d", run.Invoices),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Vendors:* %d", run.Vendors),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Gleans:* %d", run.GleanCount),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Duration:* %.1fs", run.Duration),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func digestBlock(run *glean.Run) map[string]any {
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Digest*\n\n%s", truncate(run.Digest, maxDigestLen)),
		},
	}
}

func rulesBlock(run *glean.Run) map[string]any {
	names := make([]string, 0, len(run.ByType))
	for name := range run.ByType {
		names = append(names, name)
	}
	sort.Strings(names)

	text := "*Findings by rule*\n"
	for _, name := range names {
		text += fmt.Sprintf("• %s: %d\n", name, run.ByType[name])
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": text,
		},
	}
}

func contextBlock(run *glean.Run) map[string]any {
	ts := run.CompletedAt
	if ts.IsZero() {
		ts = run.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("gleaner • run %s • %s", run.ID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func statusEmoji(run *glean.Run) string {
	switch {
	case run.Status == glean.StatusFailed:
		return "\U0001f534" // red circle
	case run.GleanCount > 0:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
