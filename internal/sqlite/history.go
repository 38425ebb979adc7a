package sqlite

import (
	"context"
	"fmt"
	"time"

	"barrier-router/internal/models"
)

// HistoryRepository persists solve attempts
type HistoryRepository struct {
	store *Store
}

// Record inserts rec and returns it with its assigned ID
func (r *HistoryRepository) Record(ctx context.Context, rec models.SolveRecord) (*models.SolveRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	query := `INSERT INTO solve_history
	          (session_id, kind, outcome, code, message, stops, barriers, facilities, started_at_ns, duration_ns)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.store.db.ExecContext(ctx, query,
		rec.SessionID, string(rec.Kind), string(rec.Outcome), rec.Code, rec.Message,
		rec.Stops, rec.Barriers, rec.Facilities, rec.StartedAt.UnixNano(), int64(rec.Duration))
	if err != nil {
		return nil, fmt.Errorf("failed to insert solve record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get solve record ID: %w", err)
	}
	rec.ID = id
	return &rec, nil
}

// List returns the most recent records first, plus the total count
func (r *HistoryRepository) List(ctx context.Context, limit, offset int) ([]models.SolveRecord, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var total int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM solve_history`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count solve records: %w", err)
	}

	query := `SELECT id, session_id, kind, outcome, code, message, stops, barriers, facilities, started_at_ns, duration_ns
	          FROM solve_history
	          ORDER BY started_at_ns DESC, id DESC
	          LIMIT ? OFFSET ?`

	records, err := r.query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListBySession returns a session's records in the order they happened
func (r *HistoryRepository) ListBySession(ctx context.Context, sessionID string) ([]models.SolveRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT id, session_id, kind, outcome, code, message, stops, barriers, facilities, started_at_ns, duration_ns
	          FROM solve_history
	          WHERE session_id = ?
	          ORDER BY started_at_ns ASC, id ASC`

	return r.query(ctx, query, sessionID)
}

// CountByOutcome tallies records per kind and outcome
func (r *HistoryRepository) CountByOutcome(ctx context.Context) (map[models.SolveKind]map[models.SolveOutcome]int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows, err := r.store.db.QueryContext(ctx, `SELECT kind, outcome, COUNT(*) FROM solve_history GROUP BY kind, outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to count solve outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.SolveKind]map[models.SolveOutcome]int)
	for rows.Next() {
		var kind, outcome string
		var n int
		if err := rows.Scan(&kind, &outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan solve outcome count: %w", err)
		}
		k := models.SolveKind(kind)
		if counts[k] == nil {
			counts[k] = make(map[models.SolveOutcome]int)
		}
		counts[k][models.SolveOutcome(outcome)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating solve outcome counts: %w", err)
	}
	return counts, nil
}

func (r *HistoryRepository) query(ctx context.Context, query string, args ...any) ([]models.SolveRecord, error) {
	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query solve records: %w", err)
	}
	defer rows.Close()

	records := []models.SolveRecord{}
	for rows.Next() {
		var rec models.SolveRecord
		var kind, outcome string
		var startedNs, durationNs int64
		if err := rows.Scan(&rec.ID, &rec.SessionID, &kind, &outcome, &rec.Code, &rec.Message,
			&rec.Stops, &rec.Barriers, &rec.Facilities, &startedNs, &durationNs); err != nil {
			return nil, fmt.Errorf("failed to scan solve record: %w", err)
		}
		rec.Kind = models.SolveKind(kind)
		rec.Outcome = models.SolveOutcome(outcome)
		rec.StartedAt = time.Unix(0, startedNs).UTC()
		rec.Duration = time.Duration(durationNs)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating solve records: %w", err)
	}
	return records, nil
}
