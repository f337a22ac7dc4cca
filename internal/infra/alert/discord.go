// Package alert forwards high-severity economy events to a Discord webhook.
//
// Alerting is strictly best-effort: a missing or malformed webhook URL makes
// every call a no-op, and delivery failures are swallowed after a log line.
// Only the subset of events worth a human's attention goes through here:
// large debits and credits, bounty claims, suspicious rejections, and
// handler-level errors. The audit log, not this channel, is the record.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dragonfall-gg/dragonfall/internal/domain"
)

const webhookPrefix = "https://discord.com/api/webhooks/"

// Event type tags understood by the formatter.
const (
	TypeBountyClaimed = "bounty_claimed"
	TypeLargePurchase = "large_purchase"
	TypeSuspicious    = "suspicious"
)

// Embed colors per severity.
const (
	colorGreen  = 0x00ff00
	colorOrange = 0xffaa00
	colorRed    = 0xff0000
)

// Discord posts embed summaries to a configured webhook.
type Discord struct {
	webhookURL string
	client     *http.Client
	logger     *slog.Logger
}

// NewDiscord creates an alerter. An empty or non-Discord URL produces a
// permanent no-op alerter rather than an error.
func NewDiscord(webhookURL string, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

// Enabled reports whether a usable webhook is configured.
func (d *Discord) Enabled() bool {
	return strings.HasPrefix(d.webhookURL, webhookPrefix)
}

// Alert formats and delivers one event. Never returns an error; failures
// are logged and dropped.
func (d *Discord) Alert(ctx context.Context, event domain.AlertEvent) {
	if !d.Enabled() {
		return
	}

	content, color := formatEvent(event)
	if content == "" {
		return
	}

	body, err := json.Marshal(map[string]any{
		"embeds": []map[string]any{
			{"title": "Dragonfall", "description": content, "color": color},
		},
	})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Debug("webhook delivery failed", "error", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		d.logger.Debug("webhook rejected", "status", resp.StatusCode)
	}
}

func formatEvent(event domain.AlertEvent) (string, int) {
	switch event.Type {
	case TypeBountyClaimed:
		return fmt.Sprintf("**Bounty claimed**\nTarget: %s (%s)\nClaimed by: %s\nAmount: %d Drogons",
			event.TargetUsername, event.TargetUserID, event.ClaimedBy, event.Amount), colorGreen
	case TypeLargePurchase:
		msg := fmt.Sprintf("**Large purchase**\nUser: %s (%s)\nAmount: %d Drogons",
			event.Username, event.UserID, event.Amount)
		if event.Reason != "" {
			msg += "\nReason: " + event.Reason
		}
		return msg, colorOrange
	case TypeSuspicious:
		msg := "**Suspicious activity**\n" + event.Message
		if len(event.Details) > 0 {
			if b, err := json.Marshal(event.Details); err == nil {
				msg += "\n```json\n" + string(b) + "\n```"
			}
		}
		return msg, colorRed
	default:
		return "", 0
	}
}
