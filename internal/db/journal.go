package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/models"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// ActionFilter narrows ListActions. Zero values mean no filter.
type ActionFilter struct {
	CredentialID string
	Kind         string
	BatchID      string
	Limit        int
}

// RecordAction appends an entry to the action journal. ID and CreatedAt are
// filled in when empty. The stored record is returned.
func (d *DB) RecordAction(ctx context.Context, rec models.ActionRecord) (models.ActionRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(timeLayout)
	}

	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO actions (id, batch_id, kind, credential_id, ad_id, detail, outcome, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.BatchID, rec.Kind, rec.CredentialID, rec.AdID,
		rec.Detail, rec.Outcome, rec.Error, rec.DurationMs, rec.CreatedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("%w: insert %s: %w", config.ErrJournalWrite, rec.Kind, err)
	}

	slog.Debug("action recorded",
		"id", rec.ID,
		"kind", rec.Kind,
		"outcome", rec.Outcome,
		"credentialID", rec.CredentialID,
		"adID", rec.AdID,
	)
	return rec, nil
}

// ListActions returns journal entries newest first, plus the total number
// of entries matching the filter.
func (d *DB) ListActions(ctx context.Context, f ActionFilter) ([]models.ActionRecord, int64, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = config.JournalDefault
	}
	if limit > config.JournalMaxLimit {
		limit = config.JournalMaxLimit
	}

	where := " WHERE 1=1"
	var args []any
	if f.CredentialID != "" {
		where += " AND credential_id = ?"
		args = append(args, f.CredentialID)
	}
	if f.Kind != "" {
		where += " AND kind = ?"
		args = append(args, f.Kind)
	}
	if f.BatchID != "" {
		where += " AND batch_id = ?"
		args = append(args, f.BatchID)
	}

	var total int64
	if err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM actions"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count actions: %w", err)
	}

	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, batch_id, kind, credential_id, ad_id, detail, outcome, error, duration_ms, created_at
		 FROM actions`+where+` ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		append(args, limit)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	out := []models.ActionRecord{}
	for rows.Next() {
		var rec models.ActionRecord
		if err := rows.Scan(
			&rec.ID, &rec.BatchID, &rec.Kind, &rec.CredentialID, &rec.AdID,
			&rec.Detail, &rec.Outcome, &rec.Error, &rec.DurationMs, &rec.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan action row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate action rows: %w", err)
	}

	return out, total, nil
}

// PruneActions deletes entries older than cutoff and returns how many went.
func (d *DB) PruneActions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.conn.ExecContext(ctx,
		"DELETE FROM actions WHERE created_at < ?",
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune actions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Info("action journal pruned", "deleted", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
	}
	return n, nil
}
