package persistence

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"TokenLedger/internal/token"
)

// PrincipalStore answers principal-existence checks against the principals
// table, with a small in-memory cache so the hot path avoids Postgres.
// Principals are registered by the host when an identity is provisioned;
// the ledger only ever reads.
type PrincipalStore struct {
	db *sql.DB

	mu    sync.RWMutex
	known map[token.Principal]struct{}
}

func NewPrincipalStore(db *sql.DB) *PrincipalStore {
	return &PrincipalStore{
		db:    db,
		known: make(map[token.Principal]struct{}),
	}
}

// IsPrincipal reports whether the principal is registered. Positive results
// are cached forever (principals are never deleted); negatives always hit
// the database.
func (ps *PrincipalStore) IsPrincipal(p token.Principal) bool {
	ps.mu.RLock()
	_, ok := ps.known[p]
	ps.mu.RUnlock()
	if ok {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	var exists int
	err := ps.db.QueryRowContext(ctx,
		`SELECT 1 FROM principals WHERE name = $1 LIMIT 1`, string(p),
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		// Conservative on DB error: treat as unknown
		log.Printf("WARN: principal lookup failed for %s: %v", p, err)
		return false
	}

	ps.mu.Lock()
	ps.known[p] = struct{}{}
	ps.mu.Unlock()
	return true
}

// Register inserts a principal. Idempotent.
func (ps *PrincipalStore) Register(ctx context.Context, p token.Principal) error {
	_, err := ps.db.ExecContext(ctx,
		`INSERT INTO principals (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, string(p),
	)
	if err != nil {
		return err
	}
	ps.mu.Lock()
	ps.known[p] = struct{}{}
	ps.mu.Unlock()
	return nil
}

// WarmCache preloads every registered principal into the cache.
func (ps *PrincipalStore) WarmCache(ctx context.Context) error {
	rows, err := ps.db.QueryContext(ctx, `SELECT name FROM principals`)
	if err != nil {
		return err
	}
	defer rows.Close()

	ps.mu.Lock()
	defer ps.mu.Unlock()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		ps.known[token.Principal(name)] = struct{}{}
	}
	return rows.Err()
}
