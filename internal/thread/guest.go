package thread

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// Guest cache file names. Two keyed entries, mirroring the hosted
// store's shape: a generated session token and the serialized turns.
const (
	guestTokenFile = "guest_session"
	guestTurnsFile = "guest_turns.json"
	guestLockFile  = "guest.lock"
)

// GuestStore holds a visitor's single implicit conversation in a
// device-local cache. It presents the same contract as Store with
// GuestThreadRef as the constant thread reference; owner arguments are
// ignored and ListThreads is always empty (guests have no sidebar).
//
// Access to the cache files is serialized with a file lock so several
// processes sharing the cache directory cannot interleave writes.
type GuestStore struct {
	dir    string
	logger *slog.Logger
}

// NewGuestStore creates a guest store rooted at dir, creating the
// directory if needed.
func NewGuestStore(dir string, logger *slog.Logger) (*GuestStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating guest cache directory: %w", err)
	}
	return &GuestStore{dir: dir, logger: logger}, nil
}

// LoadActiveThread returns the cached guest turns, or the single
// default greeting when the cache is empty. The reference argument is
// accepted for contract symmetry and ignored.
func (g *GuestStore) LoadActiveThread(ctx context.Context, _ string, _ uuid.UUID) ([]Turn, error) {
	unlock, err := g.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	turns, err := g.readTurns()
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return []Turn{GreetingTurn()}, nil
	}
	return turns, nil
}

// AppendUserTurn records a user turn in the local cache, generating the
// guest session token on first use. The returned reference is always
// GuestThreadRef.
func (g *GuestStore) AppendUserTurn(ctx context.Context, _ string, _ uuid.UUID, text string) (uuid.UUID, Turn, error) {
	unlock, err := g.lock(ctx)
	if err != nil {
		return uuid.Nil, Turn{}, err
	}
	defer unlock()

	if err := g.ensureToken(); err != nil {
		return uuid.Nil, Turn{}, err
	}

	turn, err := g.appendTurn(RoleUser, text)
	if err != nil {
		return uuid.Nil, Turn{}, err
	}
	return GuestThreadRef, turn, nil
}

// AppendAssistantTurn records an assistant turn in the local cache.
func (g *GuestStore) AppendAssistantTurn(ctx context.Context, _ string, _ uuid.UUID, text string) (Turn, error) {
	unlock, err := g.lock(ctx)
	if err != nil {
		return Turn{}, err
	}
	defer unlock()

	return g.appendTurn(RoleAssistant, text)
}

// ListThreads is always empty: guests have exactly one implicit,
// unnamed conversation.
func (g *GuestStore) ListThreads(context.Context, string) ([]Thread, error) {
	return nil, nil
}

// Token returns the guest session token, or empty when no guest
// conversation has been started.
func (g *GuestStore) Token(ctx context.Context) (string, error) {
	unlock, err := g.lock(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	data, err := os.ReadFile(filepath.Join(g.dir, guestTokenFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: reading guest token: %v", ErrPersistence, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Clear wipes both cache entries. Used on "New Chat" and on sign-in.
// Idempotent: clearing an empty cache is not an error.
func (g *GuestStore) Clear(ctx context.Context) error {
	unlock, err := g.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	for _, name := range []string{guestTokenFile, guestTurnsFile} {
		if err := os.Remove(filepath.Join(g.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: clearing guest cache: %v", ErrPersistence, err)
		}
	}
	g.logger.Debug("cleared guest cache")
	return nil
}

// lock acquires the cache file lock, honoring context cancellation.
func (g *GuestStore) lock(ctx context.Context) (func(), error) {
	fl := flock.New(filepath.Join(g.dir, guestLockFile))
	ok, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("%w: locking guest cache: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: guest cache is locked", ErrPersistence)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			g.logger.Warn("unlocking guest cache", "error", err)
		}
	}, nil
}

// ensureToken writes a fresh guest token if none exists yet.
func (g *GuestStore) ensureToken() error {
	path := filepath.Join(g.dir, guestTokenFile)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	token := "guest_" + uuid.NewString()
	if err := os.WriteFile(path, []byte(token), 0600); err != nil {
		return fmt.Errorf("%w: writing guest token: %v", ErrPersistence, err)
	}
	g.logger.Debug("generated guest token")
	return nil
}

// readTurns loads the cached turn array. Missing file means no turns.
func (g *GuestStore) readTurns() ([]Turn, error) {
	data, err := os.ReadFile(filepath.Join(g.dir, guestTurnsFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading guest turns: %v", ErrPersistence, err)
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("%w: decoding guest turns: %v", ErrPersistence, err)
	}
	return turns, nil
}

// appendTurn adds a turn and rewrites the cache atomically
// (temp file + rename). Caller must hold the lock.
func (g *GuestStore) appendTurn(role, content string) (Turn, error) {
	turns, err := g.readTurns()
	if err != nil {
		return Turn{}, err
	}

	turn := Turn{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	turns = append(turns, turn)

	data, err := json.Marshal(turns)
	if err != nil {
		return Turn{}, fmt.Errorf("%w: encoding guest turns: %v", ErrPersistence, err)
	}

	path := filepath.Join(g.dir, guestTurnsFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return Turn{}, fmt.Errorf("%w: writing guest turns: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return Turn{}, fmt.Errorf("%w: replacing guest turns: %v", ErrPersistence, err)
	}

	return turn, nil
}
