package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnapshotManager handles creating and loading state snapshots for recovery.
// Snapshots contain the three stores, sequence counters, recent idempotency
// keys, and the last state hash.
type SnapshotManager struct {
	db *sql.DB
}

// SnapshotData contains the full in-memory state at a point in time.
type SnapshotData struct {
	Sequence        int64            `json:"sequence"`
	StateHash       []byte           `json:"state_hash"`
	Accounts        []AccountSnap    `json:"accounts"`
	Stats           []StatsSnap      `json:"stats"`
	Allowances      []AllowanceSnap  `json:"allowances"`
	SequenceState   map[string]int64 `json:"sequence_state"`   // partition -> next expected seq
	IdempotencyKeys []string         `json:"idempotency_keys"` // Recent keys for LRU warming
	CreatedAt       time.Time        `json:"created_at"`
}

// AccountSnap is a serializable balance row.
type AccountSnap struct {
	Owner      string `json:"owner"`
	SymbolCode string `json:"symbol_code"`
	Precision  uint8  `json:"precision"`
	Amount     int64  `json:"amount"`
	Payer      string `json:"payer"`
}

// StatsSnap is a serializable supply row.
type StatsSnap struct {
	SymbolCode string `json:"symbol_code"`
	Precision  uint8  `json:"precision"`
	Supply     int64  `json:"supply"`
	MaxSupply  int64  `json:"max_supply"`
	Issuer     string `json:"issuer"`
	Payer      string `json:"payer"`
}

// AllowanceSnap is a serializable allowance row.
type AllowanceSnap struct {
	Owner      string `json:"owner"`
	Spender    string `json:"spender"`
	SymbolCode string `json:"symbol_code"`
	Precision  uint8  `json:"precision"`
	Amount     int64  `json:"amount"`
	Payer      string `json:"payer"`
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// SaveSnapshot persists a snapshot to Postgres. Snapshots are taken
// periodically and verified by replaying actions from the snapshot
// sequence forward.
func (sm *SnapshotManager) SaveSnapshot(ctx context.Context, snap *SnapshotData) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	snapshotID := uuid.New()
	sizeBytes := len(data)
	formatVersion := int32(1) // v1: JSON-encoded SnapshotData

	_, err = sm.db.ExecContext(ctx, `
		INSERT INTO action_log.snapshots
			(snapshot_id, sequence, data, state_hash, format_version, size_bytes, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, state_hash = $4, size_bytes = $6
	`, snapshotID, snap.Sequence, data, snap.StateHash, formatVersion, sizeBytes, snap.CreatedAt)

	return err
}

// LoadLatestSnapshot loads the most recent verified snapshot. On warm
// restart, load the latest snapshot then replay actions from
// snapshot.sequence+1.
func (sm *SnapshotManager) LoadLatestSnapshot(ctx context.Context) (*SnapshotData, error) {
	row := sm.db.QueryRowContext(ctx, `
		SELECT data FROM action_log.snapshots
		WHERE verified = TRUE
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No snapshot — cold start
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap SnapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// MarkVerified marks a snapshot as verified after integrity check.
func (sm *SnapshotManager) MarkVerified(ctx context.Context, sequence int64) error {
	_, err := sm.db.ExecContext(ctx, `
		UPDATE action_log.snapshots SET verified = TRUE WHERE sequence = $1
	`, sequence)
	return err
}

// LoadActionsFrom loads actions from a given sequence for replay.
// Used for warm restart (replay from snapshot) and cold restart (replay all).
func (sm *SnapshotManager) LoadActionsFrom(ctx context.Context, fromSequence int64, limit int) ([]ActionRow, error) {
	rows, err := sm.db.QueryContext(ctx, `
		SELECT sequence, action_type, idempotency_key, symbol_code, payload,
		       state_hash, prev_hash, timestamp, source_sequence
		FROM action_log.actions
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []ActionRow
	for rows.Next() {
		var a ActionRow
		if err := rows.Scan(
			&a.Sequence, &a.ActionType, &a.IdempotencyKey, &a.SymbolCode,
			&a.Payload, &a.StateHash, &a.PrevHash, &a.Timestamp, &a.SourceSequence,
		); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

// GetLatestSequence returns the highest sequence in the action log.
func (sm *SnapshotManager) GetLatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := sm.db.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM action_log.actions
	`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil // Empty action log
	}
	return seq.Int64, nil
}
