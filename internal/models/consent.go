package models

import (
	"encoding/json"
	"time"
)

// ConsentRequest is the POST /api/consent payload.
// website_url is a honeypot: it is invisible to humans and expected empty.
// accepted_categories stays raw here so shape validation happens in the
// handler pipeline, after the honeypot and rate-limit gates.
type ConsentRequest struct {
	WebsiteURL         string          `json:"website_url,omitempty"`
	SessionID          string          `json:"session_id"`
	UserID             string          `json:"user_id,omitempty"`
	AcceptedCategories json.RawMessage `json:"accepted_categories"`
	ConsentVersion     string          `json:"consent_version"`
	PageURL            string          `json:"page_url,omitempty"`
	ConsentMethod      string          `json:"consent_method,omitempty"`
}

// ConsentRecord is one immutable consent-log row. The endpoint only ever
// inserts these; ID and ExpiresAt are assigned by the store.
type ConsentRecord struct {
	ID                 int64          `json:"id"`
	SessionID          string         `json:"session_id"`
	UserID             *string        `json:"user_id"`
	IPAddress          string         `json:"ip_address"`
	UserAgent          string         `json:"user_agent"`
	ConsentVersion     string         `json:"consent_version"`
	AcceptedCategories map[string]any `json:"accepted_categories"`
	ConsentMethod      string         `json:"consent_method"`
	PageURL            string         `json:"page_url"`
	ExpiresAt          time.Time      `json:"expires_at"`
}

// HoneypotDetection records one tripped honeypot, append-only.
type HoneypotDetection struct {
	IPAddress     string `json:"ip_address"`
	UserAgent     string `json:"user_agent"`
	HoneypotValue string `json:"honeypot_value"`
}
