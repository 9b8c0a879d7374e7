// Package claude produces reviewer digests for completed detection runs
// using the Claude API.
package claude

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/gleaner/internal/glean"
)

const (
	maxDigestTokens = 1024

	// keeps the prompt bounded for runs with thousands of gleans
	maxPromptGleans = 50

	systemPrompt = `You are an accounts-payable review assistant. You receive a batch of
automatically detected vendor invoicing anomalies. Write a short digest for a
human reviewer: lead with the most financially significant findings, group
related vendors, and keep it under 200 words. Plain text only.`
)

// Client summarizes detection runs via the Claude Messages API. It implements
// the Summarizer interface consumed by the run service.
type Client struct {
	client anthropic.Client
	model  string
}

// New creates a new Claude digest client with the given API key and model name.
func New(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Summarize produces a reviewer digest for a completed run.
func (c *Client) Summarize(ctx context.Context, run *glean.Run, gleans []glean.Glean) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxDigestTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(run, gleans))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude digest: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	digest := strings.TrimSpace(sb.String())
	if digest == "" {
		return "", fmt.Errorf("claude digest: empty response")
	}
	return digest, nil
}

// buildPrompt renders the run summary and glean batch as the user message.
func buildPrompt(run *glean.Run, gleans []glean.Glean) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Detection run %s covering %s to %s.\n",
		run.ID,
		run.WindowStart.Format("2006-01-02"),
		run.WindowEnd.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Dataset: %d invoices, %d line items, %d vendors profiled.\n",
		run.Invoices, run.LineItems, run.Vendors)

	if len(run.ByType) > 0 {
		names := make([]string, 0, len(run.ByType))
		for name := range run.ByType {
			names = append(names, name)
		}
		sort.Strings(names)

		sb.WriteString("Findings by rule:")
		for _, name := range names {
			fmt.Fprintf(&sb, " %s=%d", name, run.ByType[name])
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nFindings:\n")
	for i, g := range gleans {
		if i >= maxPromptGleans {
			fmt.Fprintf(&sb, "... and %d more\n", len(gleans)-maxPromptGleans)
			break
		}
		fmt.Fprintf(&sb, "- [%s] %s: %s\n", g.Type, g.VendorID, g.Text)
	}

	return sb.String()
}
