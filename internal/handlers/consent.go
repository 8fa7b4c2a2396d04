package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/hakiu/consent-service/internal/alert"
	"github.com/hakiu/consent-service/internal/config"
	"github.com/hakiu/consent-service/internal/models"
	"github.com/hakiu/consent-service/internal/ratelimit"
)

// ConsentStore persists consent records and honeypot detections.
type ConsentStore interface {
	InsertConsent(ctx context.Context, rec models.ConsentRecord) (models.ConsentRecord, error)
	InsertHoneypotDetection(ctx context.Context, d models.HoneypotDetection) error
}

// Counter is the shared rate-limit primitive. Peek never mutates; Increment
// returns 0 on failure (tolerated undercount).
type Counter interface {
	Peek(ctx context.Context, key string, limit int) bool
	Increment(ctx context.Context, key string, ttl time.Duration) int64
}

// Alerter delivers best-effort operational notices.
type Alerter interface {
	Send(ctx context.Context, n alert.Notice)
}

// Sanitization caps for stored strings.
const (
	maxUserAgentLen = 500
	maxPageURLLen   = 200
)

// honeypotAlertEvery throttles trap alerts to every Nth detection.
const honeypotAlertEvery = 10

// Canonical UUID v4 textual shape (8-4-4-4-12 hex groups). Other textual
// forms google/uuid would parse (URN, braces, compact) are rejected on purpose.
var uuidRegex = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// RegisterConsentRoutes registers the consent-logging endpoint.
//
// POST /api/consent
// - Origin-gated, honeypot-trapped, dual rate-limited (session + IP)
// - Durable: 201 only after the consent row is written
// - Rate-limit counters advance only after a successful insert, so rejected
//   requests never consume quota
func RegisterConsentRoutes(r gin.IRoutes, cfg config.Config, st ConsentStore, limits Counter, alerts Alerter) {
	r.POST("/api/consent", func(c *gin.Context) {
		ctx := c.Request.Context()

		// Origin gate. Prefix match on Origin (fallback Referer) against the
		// environment's allowed origin. Coarse by intent; no full URL parse.
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = c.GetHeader("Referer")
		}
		if !strings.HasPrefix(origin, cfg.AllowedOrigin) {
			log.Printf("[SECURITY] invalid origin rejected: %s", origin)
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden origin"})
			return
		}

		// Client identity comes from infrastructure headers only; anything
		// the body claims about its own IP is never honored.
		ip := clientIP(c.Request)
		if ip == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Could not determine Client IP"})
			return
		}
		userAgent := c.GetHeader("User-Agent")
		if userAgent == "" {
			userAgent = "Unknown"
		}

		var req models.ConsentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		// Honeypot gate. Bots that fill the hidden field get a fake success
		// so they believe the attack worked and stop probing.
		if strings.TrimSpace(req.WebsiteURL) != "" {
			log.Printf("[HONEYPOT] bot detected from IP: %s", ip)

			if err := st.InsertHoneypotDetection(ctx, models.HoneypotDetection{
				IPAddress:     ip,
				UserAgent:     userAgent,
				HoneypotValue: req.WebsiteURL,
			}); err != nil {
				log.Printf("[DB ERROR] honeypot insert failed: %v", err)
			}

			detections := limits.Increment(ctx, ratelimit.HoneypotDetectionsKey, ratelimit.DefaultWindow)
			if detections > 0 && detections%honeypotAlertEvery == 0 {
				alerts.Send(ctx, alert.Notice{
					Type:     "honeypot-triggered",
					Message:  fmt.Sprintf("Honeypot has trapped %d bots in the last hour.", detections),
					Severity: alert.SeverityLow,
				})
			}

			c.JSON(http.StatusOK, gin.H{"success": true, "mocked": true})
			return
		}

		// Rate-limit gate: peek only. Counters advance after a confirmed
		// insert, further down.
		sessionKey := ratelimit.SessionKey(req.SessionID)
		ipKey := ratelimit.IPKey(ip)

		if limits.Peek(ctx, sessionKey, cfg.SessionRateLimit) {
			log.Printf("[RATE LIMIT] session blocked: %s", req.SessionID)
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests from this session"})
			return
		}

		if limits.Peek(ctx, ipKey, cfg.IPRateLimit) {
			blocks := limits.Increment(ctx, ratelimit.BlocksKey, ratelimit.DefaultWindow)
			log.Printf("[RATE LIMIT] IP blocked: %s", ip)

			// Fires once, at the exact threshold crossing. Unlike the
			// honeypot alert this is deliberately not a repeating trigger.
			if blocks == int64(cfg.BlockAlertThreshold) {
				alerts.Send(ctx, alert.Notice{
					Type:     "rate-limit-attack",
					Message:  fmt.Sprintf("Possible L7 volumetric attack: %d requests blocked in the last hour.", blocks),
					Severity: alert.SeverityHigh,
					Details:  []map[string]string{{"SourceIP": ip}},
				})
			}

			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests from this IP"})
			return
		}

		// Validation and sanitization.
		if !uuidRegex.MatchString(req.SessionID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session_id format"})
			return
		}

		categories, err := decodeCategories(req.AcceptedCategories)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid accepted_categories format"})
			return
		}

		consentMethod := req.ConsentMethod
		if consentMethod == "" {
			consentMethod = "banner_accept"
		}

		// Empty user_id becomes SQL NULL, never an empty string.
		var userID *string
		if req.UserID != "" {
			userID = &req.UserID
		}

		rec, err := st.InsertConsent(ctx, models.ConsentRecord{
			SessionID:          req.SessionID,
			UserID:             userID,
			IPAddress:          ip,
			UserAgent:          truncate(userAgent, maxUserAgentLen),
			ConsentVersion:     req.ConsentVersion,
			AcceptedCategories: categories,
			ConsentMethod:      consentMethod,
			PageURL:            truncate(req.PageURL, maxPageURLLen),
		})
		if err != nil {
			log.Printf("[DB ERROR] consent insert failed: %v", err)
			// ErrNoRows-class failures are benign; everything else gets an
			// ops notice. The client sees a generic 500 either way.
			if !errors.Is(err, pgx.ErrNoRows) {
				alerts.Send(ctx, alert.Notice{
					Type:     "consent-insert-failed",
					Message:  "Consent log insert failed.",
					Severity: alert.SeverityMedium,
					Details:  []map[string]string{{"SourceIP": ip}},
				})
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
			return
		}

		// Post-success counters: only a persisted consent consumes quota.
		limits.Increment(ctx, sessionKey, ratelimit.DefaultWindow)
		limits.Increment(ctx, ipKey, ratelimit.DefaultWindow)

		c.JSON(http.StatusCreated, gin.H{"success": true, "id": rec.ID})
	})
}

// clientIP derives the caller's address from the trusted forwarded-for header
// (first comma-separated entry), falling back to the socket remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return remote
}

// decodeCategories accepts only a JSON object (a mapping); arrays, scalars
// and null are rejected.
func decodeCategories(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, errors.New("accepted_categories required")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("accepted_categories must be an object")
	}
	return m, nil
}

// truncate caps s at max characters, never splitting a rune: the result must
// stay valid UTF-8 for the TEXT columns it lands in. Oversized fields are
// abuse, not data worth preserving.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
