package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Severity grades a Notice for the receiving channel.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Discord embed border colors per severity.
var severityColors = map[Severity]int{
	SeverityLow:    5763719,  // green
	SeverityMedium: 16776960, // yellow
	SeverityHigh:   15548997, // red
}

var severityMarkers = map[Severity]string{
	SeverityLow:    "🟢",
	SeverityMedium: "🟡",
	SeverityHigh:   "🔴",
}

// maxDetailFields caps rendered detail entries; Discord allows 25 embed
// fields, we stay well under it.
const maxDetailFields = 5

// Notice is one structured security/ops notification.
type Notice struct {
	Type     string
	Message  string
	Details  []map[string]string
	Severity Severity
}

// Dispatcher delivers notices to a Discord webhook, best effort. Delivery
// failures are logged and swallowed: alerting must never make the caller's
// primary operation fail.
type Dispatcher struct {
	webhookURL string
	client     *http.Client
}

// NewDispatcher builds a dispatcher for webhookURL. An empty URL is valid:
// notices are then logged locally instead of sent, so environments without
// the webhook provisioned still work.
func NewDispatcher(webhookURL string) *Dispatcher {
	return &Dispatcher{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
	Footer      embedFooter  `json:"footer"`
	Timestamp   string       `json:"timestamp"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Send delivers n with a single POST. It never returns an error; network
// failures, non-2xx responses and a missing destination are all swallowed.
func (d *Dispatcher) Send(ctx context.Context, n Notice) {
	severity := n.Severity
	if _, ok := severityColors[severity]; !ok {
		severity = SeverityMedium
	}

	if d.webhookURL == "" {
		log.Printf("[ALERT MOCKED] %s: %s", strings.ToUpper(string(severity)), n.Message)
		return
	}

	payload := webhookPayload{
		Embeds: []embed{{
			Title:       severityMarkers[severity] + " Security Alert: " + n.Type,
			Description: n.Message,
			Color:       severityColors[severity],
			Fields:      detailFields(n.Details),
			Footer:      embedFooter{Text: "Hakiu Security System v2.0"},
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[ALERT ERROR] marshal failed: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("[ALERT ERROR] building request failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		log.Printf("[ALERT ERROR] webhook delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("[ALERT ERROR] webhook responded: %d", resp.StatusCode)
	}
}

// detailFields renders at most maxDetailFields detail entries as embed
// fields, one "key: value" line per map entry, keys sorted for stable output.
func detailFields(details []map[string]string) []embedField {
	if len(details) > maxDetailFields {
		details = details[:maxDetailFields]
	}

	fields := make([]embedField, 0, len(details))
	for _, d := range details {
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, "**"+k+"**: "+d[k])
		}

		value := strings.Join(lines, "\n")
		if value == "" {
			value = "N/A"
		}
		fields = append(fields, embedField{Name: "Technical Detail", Value: value})
	}
	return fields
}
