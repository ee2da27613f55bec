package thread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists threads and turns in PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines; all state
// lives in the database.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a PostgreSQL-backed store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// LoadActiveThread returns the turns of the referenced thread in
// ascending creation order. A nil reference means a fresh conversation:
// the result is the single default greeting turn. Returns ErrNotFound
// when the reference does not resolve to a thread owned by owner.
func (s *Store) LoadActiveThread(ctx context.Context, owner string, ref uuid.UUID) ([]Turn, error) {
	if ref == uuid.Nil {
		return []Turn{GreetingTurn()}, nil
	}

	if err := s.verifyOwnership(ctx, s.pool, owner, ref, false); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, role, content, created_at
		   FROM messages
		  WHERE session_id = $1
		  ORDER BY sequence_number ASC`, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: querying turns: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning turn: %v", ErrPersistence, err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading turns: %v", ErrPersistence, err)
	}

	s.logger.Debug("loaded thread", "thread_id", ref, "turns", len(turns))
	return turns, nil
}

// AppendUserTurn records a user turn. When ref is uuid.Nil the thread
// is first created, named from a truncated prefix of text. Returns the
// (possibly new) thread reference and the confirmed turn.
func (s *Store) AppendUserTurn(ctx context.Context, owner string, ref uuid.UUID, text string) (uuid.UUID, Turn, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, Turn{}, fmt.Errorf("%w: beginning transaction: %v", ErrPersistence, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	if ref == uuid.Nil {
		err = tx.QueryRow(ctx,
			`INSERT INTO sessions (user_id, name) VALUES ($1, $2) RETURNING id`,
			owner, NameFromText(text)).Scan(&ref)
		if err != nil {
			return uuid.Nil, Turn{}, fmt.Errorf("%w: creating thread: %v", ErrPersistence, err)
		}
		s.logger.Debug("created thread", "thread_id", ref, "owner", owner)
	} else if err := s.verifyOwnership(ctx, tx, owner, ref, true); err != nil {
		return uuid.Nil, Turn{}, err
	}

	turn, err := s.insertTurn(ctx, tx, owner, ref, RoleUser, text)
	if err != nil {
		return uuid.Nil, Turn{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, Turn{}, fmt.Errorf("%w: committing transaction: %v", ErrPersistence, err)
	}

	return ref, turn, nil
}

// AppendAssistantTurn records an assistant turn under an existing
// thread. A failure here is surfaced to the caller but must not roll
// back the already-persisted user turn.
func (s *Store) AppendAssistantTurn(ctx context.Context, owner string, ref uuid.UUID, text string) (Turn, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Turn{}, fmt.Errorf("%w: beginning transaction: %v", ErrPersistence, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	if err := s.verifyOwnership(ctx, tx, owner, ref, true); err != nil {
		return Turn{}, err
	}

	turn, err := s.insertTurn(ctx, tx, owner, ref, RoleAssistant, text)
	if err != nil {
		return Turn{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Turn{}, fmt.Errorf("%w: committing transaction: %v", ErrPersistence, err)
	}

	return turn, nil
}

// ListThreads returns owner's threads ordered newest-first.
func (s *Store) ListThreads(ctx context.Context, owner string) ([]Thread, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, created_at
		   FROM sessions
		  WHERE user_id = $1
		  ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: querying threads: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var threads []Thread
	for rows.Next() {
		var th Thread
		if err := rows.Scan(&th.ID, &th.OwnerID, &th.Name, &th.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning thread: %v", ErrPersistence, err)
		}
		threads = append(threads, th)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading threads: %v", ErrPersistence, err)
	}

	return threads, nil
}

// querier is the subset of pgx used by ownership checks, satisfied by
// both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// verifyOwnership confirms the thread exists and belongs to owner.
// With forUpdate, the session row is locked for the enclosing
// transaction so sequence numbers cannot race.
func (s *Store) verifyOwnership(ctx context.Context, q querier, owner string, ref uuid.UUID, forUpdate bool) error {
	query := `SELECT id FROM sessions WHERE id = $1 AND user_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var id uuid.UUID
	err := q.QueryRow(ctx, query, ref, owner).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return fmt.Errorf("%w: verifying thread: %v", ErrPersistence, err)
	}
	return nil
}

// insertTurn appends a turn with the next sequence number. The caller
// must hold the session row lock via verifyOwnership(forUpdate) or have
// just created the session in the same transaction.
func (s *Store) insertTurn(ctx context.Context, tx pgx.Tx, owner string, ref uuid.UUID, role, content string) (Turn, error) {
	turn := Turn{Role: role, Content: content}
	err := tx.QueryRow(ctx,
		`INSERT INTO messages (session_id, user_id, role, content, sequence_number)
		 VALUES ($1, $2, $3, $4,
		         (SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM messages WHERE session_id = $1))
		 RETURNING id, created_at`,
		ref, owner, role, content).Scan(&turn.ID, &turn.CreatedAt)
	if err != nil {
		return Turn{}, fmt.Errorf("%w: inserting %s turn: %v", ErrPersistence, role, err)
	}

	s.logger.Debug("appended turn", "thread_id", ref, "role", role, "turn_id", turn.ID)
	return turn, nil
}
