package chatview

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/aetherchat/aether/internal/thread"
)

// Sidebar lists the signed-in owner's threads and drives thread
// selection on its View. Guests always see an empty list.
type Sidebar struct {
	view   *View
	logger *slog.Logger

	mu      sync.Mutex
	owner   string
	threads []thread.Thread
}

// NewSidebar creates a sidebar bound to view.
func NewSidebar(view *View, logger *slog.Logger) *Sidebar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sidebar{view: view, logger: logger}
}

// Threads returns a copy of the listed threads, newest first.
func (s *Sidebar) Threads() []thread.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.threads)
}

// Refresh re-fetches the owner's thread list from the view's current
// store. For guests the list is always empty.
func (s *Sidebar) Refresh(ctx context.Context) error {
	s.view.mu.Lock()
	store := s.view.store()
	owner := s.view.owner
	s.view.mu.Unlock()

	threads, err := store.ListThreads(ctx, owner)
	if err != nil {
		return fmt.Errorf("listing threads: %w", err)
	}

	s.mu.Lock()
	s.owner = owner
	s.threads = threads
	s.mu.Unlock()
	return nil
}

// Select makes ref the active thread and loads its turns into the
// view, replacing the displayed list.
func (s *Sidebar) Select(ctx context.Context, ref uuid.UUID) error {
	return s.view.OpenThread(ctx, ref)
}

// NewChat clears the active thread reference via the view. Stored
// threads stay listed; refreshing afterwards is unnecessary.
func (s *Sidebar) NewChat(ctx context.Context) error {
	return s.view.NewChat(ctx)
}

// BindAuth subscribes the sidebar to auth events: sign-in triggers a
// list fetch, sign-out clears it. The view's own subscription must be
// registered first so the store switch happens before the fetch.
func (s *Sidebar) BindAuth(ctx context.Context, events *AuthEvents) func() {
	return events.Subscribe(func(e AuthEvent) {
		if !e.SignedIn {
			s.mu.Lock()
			s.owner = ""
			s.threads = nil
			s.mu.Unlock()
			return
		}
		if err := s.Refresh(ctx); err != nil {
			s.logger.Warn("refreshing threads on sign-in failed", "error", err)
		}
	})
}
