package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hakiu/consent-service/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable persistence layer for consent logs and
// honeypot detections.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// InsertConsent persists one consent record and returns it with the
// store-assigned id and expires_at filled in. Records are never updated or
// deleted afterwards.
func (p *PostgresStore) InsertConsent(ctx context.Context, rec models.ConsentRecord) (models.ConsentRecord, error) {
	if rec.SessionID == "" || rec.IPAddress == "" {
		return rec, errors.New("sessionID/ipAddress required")
	}

	categories := rec.AcceptedCategories
	if categories == nil {
		categories = map[string]any{}
	}
	categoriesJSON, err := json.Marshal(categories)
	if err != nil {
		return rec, err
	}

	err = p.pool.QueryRow(ctx, `
		INSERT INTO consent_logs(
			session_id, user_id, ip_address, user_agent,
			consent_version, accepted_categories, consent_method, page_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, expires_at
	`, rec.SessionID, rec.UserID, rec.IPAddress, rec.UserAgent,
		rec.ConsentVersion, categoriesJSON, rec.ConsentMethod, rec.PageURL,
	).Scan(&rec.ID, &rec.ExpiresAt)

	return rec, err
}

// InsertHoneypotDetection appends one trap record for later abuse analysis.
func (p *PostgresStore) InsertHoneypotDetection(ctx context.Context, d models.HoneypotDetection) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO honeypot_detections(ip_address, user_agent, honeypot_value)
		VALUES ($1,$2,$3)
	`, d.IPAddress, d.UserAgent, d.HoneypotValue)
	return err
}
