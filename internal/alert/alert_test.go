package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// capture spins up a fake webhook and returns the dispatcher pointed at it
// plus the decoded payloads it received.
func capture(t *testing.T, status int) (*Dispatcher, *[]webhookPayload) {
	t.Helper()

	var got []webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("webhook received invalid JSON: %v", err)
		}
		got = append(got, p)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	d := NewDispatcher(srv.URL)
	d.client = srv.Client()
	return d, &got
}

func TestSend_DeliversEmbed(t *testing.T) {
	d, got := capture(t, http.StatusNoContent)

	d.Send(context.Background(), Notice{
		Type:     "rate-limit-attack",
		Message:  "Possible L7 volumetric attack.",
		Details:  []map[string]string{{"SourceIP": "203.0.113.7"}},
		Severity: SeverityHigh,
	})

	if len(*got) != 1 {
		t.Fatalf("webhook received %d payloads, want 1", len(*got))
	}
	e := (*got)[0].Embeds[0]

	if !strings.Contains(e.Title, "rate-limit-attack") {
		t.Fatalf("title %q missing notice type", e.Title)
	}
	if e.Color != severityColors[SeverityHigh] {
		t.Fatalf("color = %d, want high-severity color", e.Color)
	}
	if e.Description != "Possible L7 volumetric attack." {
		t.Fatalf("description = %q", e.Description)
	}
	if len(e.Fields) != 1 || !strings.Contains(e.Fields[0].Value, "203.0.113.7") {
		t.Fatalf("detail fields = %+v", e.Fields)
	}
	if e.Footer.Text == "" || e.Timestamp == "" {
		t.Fatal("embed must carry footer and timestamp")
	}
}

func TestSend_TruncatesDetailsToFive(t *testing.T) {
	d, got := capture(t, http.StatusOK)

	details := make([]map[string]string, 8)
	for i := range details {
		details[i] = map[string]string{"k": "v"}
	}
	d.Send(context.Background(), Notice{Type: "honeypot-triggered", Message: "m", Details: details, Severity: SeverityLow})

	if n := len((*got)[0].Embeds[0].Fields); n != maxDetailFields {
		t.Fatalf("rendered %d fields, want %d", n, maxDetailFields)
	}
}

func TestSend_UnknownSeverityFallsBackToMedium(t *testing.T) {
	d, got := capture(t, http.StatusOK)

	d.Send(context.Background(), Notice{Type: "x", Message: "m", Severity: Severity("critical")})

	if c := (*got)[0].Embeds[0].Color; c != severityColors[SeverityMedium] {
		t.Fatalf("color = %d, want medium fallback", c)
	}
}

// A non-2xx webhook answer is logged and swallowed; Send has no error path.
func TestSend_SwallowsWebhookFailure(t *testing.T) {
	d, got := capture(t, http.StatusTooManyRequests)

	d.Send(context.Background(), Notice{Type: "x", Message: "m", Severity: SeverityLow})

	if len(*got) != 1 {
		t.Fatalf("webhook received %d payloads, want 1", len(*got))
	}
}

// Without a configured webhook the notice is logged locally, not sent.
func TestSend_NoDestinationConfigured(t *testing.T) {
	d := NewDispatcher("")
	d.Send(context.Background(), Notice{Type: "x", Message: "m", Severity: SeverityLow})
}

func TestSend_SwallowsNetworkFailure(t *testing.T) {
	d := NewDispatcher("http://127.0.0.1:1/webhook")
	d.Send(context.Background(), Notice{Type: "x", Message: "m", Severity: SeverityHigh})
}
