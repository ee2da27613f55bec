// Package chatview holds the conversation view model: the optimistic
// submission state machine, the thread sidebar, and the auth event
// stream that switches between guest and hosted storage.
//
// A View owns the displayed turn list. Mutations go through Submit,
// OpenThread, NewChat, and the auth handlers; reads get copies. Hooks
// fire after every turn-list or loading-state change so a UI can
// scroll, and after every user-visible failure so it can show a
// transient notice. Hooks run outside the view's lock.
package chatview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aetherchat/aether/internal/gateway"
	"github.com/aetherchat/aether/internal/thread"
)

// State is the submission state of a View.
type State int

const (
	// StateIdle accepts a new submission.
	StateIdle State = iota
	// StateSubmitting has one submission in flight; further submits
	// and thread switches are rejected until settlement.
	StateSubmitting
)

// ErrSubmissionInFlight is returned when an operation needs the view
// idle but a submission is still settling.
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// User-visible notices for storage failures. Generation failures reuse
// the gateway's own message.
const (
	noticeSaveFailed          = "Could not save your message. Please try again."
	noticeAssistantSaveFailed = "The reply was generated but could not be saved."
)

// Store is the persistence surface the view needs, satisfied by both
// thread.Store and thread.GuestStore.
type Store interface {
	LoadActiveThread(ctx context.Context, owner string, ref uuid.UUID) ([]thread.Turn, error)
	AppendUserTurn(ctx context.Context, owner string, ref uuid.UUID, text string) (uuid.UUID, thread.Turn, error)
	AppendAssistantTurn(ctx context.Context, owner string, ref uuid.UUID, text string) (thread.Turn, error)
	ListThreads(ctx context.Context, owner string) ([]thread.Thread, error)
}

// GuestStore is a Store whose contents can be wiped, satisfied by
// thread.GuestStore.
type GuestStore interface {
	Store
	Clear(ctx context.Context) error
}

// Generator produces answers, satisfied by gateway.Gateway.
type Generator interface {
	Generate(ctx context.Context, question string, history []gateway.Message) gateway.Result
}

// ViewConfig configures a View.
type ViewConfig struct {
	// Hosted is the authenticated store; Guest backs signed-out use.
	Hosted Store
	Guest  GuestStore

	Generator Generator
	Logger    *slog.Logger

	// OnChange fires after every turn-list or loading-state change.
	OnChange func()
	// OnNotice fires with a user-visible message on every failure.
	OnNotice func(string)
}

// View is the conversation view model. Safe for concurrent use; a
// single submission is in flight at a time.
type View struct {
	hosted    Store
	guest     GuestStore
	generator Generator
	logger    *slog.Logger
	onChange  func()
	onNotice  func(string)

	mu       sync.Mutex
	state    State
	signedIn bool
	owner    string
	active   uuid.UUID
	turns    []thread.Turn
	// epoch increments whenever the turn list is replaced wholesale
	// (auth change, New Chat). An in-flight submission from a previous
	// epoch drops its view mutations on settlement.
	epoch uint64
}

// NewView creates a View in the signed-out state showing the greeting.
func NewView(cfg ViewConfig) (*View, error) {
	if cfg.Hosted == nil || cfg.Guest == nil {
		return nil, fmt.Errorf("chatview: hosted and guest stores are required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("chatview: generator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &View{
		hosted:    cfg.Hosted,
		guest:     cfg.Guest,
		generator: cfg.Generator,
		logger:    cfg.Logger,
		onChange:  cfg.OnChange,
		onNotice:  cfg.OnNotice,
		turns:     []thread.Turn{thread.GreetingTurn()},
	}, nil
}

// Turns returns a copy of the displayed turn list.
func (v *View) Turns() []thread.Turn {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.turns)
}

// State returns the current submission state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// ActiveThread returns the active thread reference, uuid.Nil for a
// fresh or guest conversation.
func (v *View) ActiveThread() uuid.UUID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

// store returns the store matching the current auth state.
func (v *View) store() Store {
	if v.signedIn {
		return v.hosted
	}
	return v.guest
}

// Submit runs one full submission cycle: optimistic append, user-turn
// persist, generation, assistant append and best-effort persist. A
// blank text is a no-op. Every failure rolls the turn list back to the
// pre-submission snapshot and raises a notice; the view always returns
// to the idle state.
func (v *View) Submit(ctx context.Context, text string) error {
	if isBlank(text) {
		return nil
	}

	v.mu.Lock()
	if v.state != StateIdle {
		v.mu.Unlock()
		return ErrSubmissionInFlight
	}
	snapshot := slices.Clone(v.turns)
	history := historyOf(snapshot)
	store := v.store()
	owner := v.owner
	ref := v.active
	epoch := v.epoch

	optimistic := thread.Turn{
		ID:        uuid.New(),
		Role:      thread.RoleUser,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
	v.turns = append(v.turns, optimistic)
	v.state = StateSubmitting
	v.mu.Unlock()
	v.notifyChange()

	newRef, confirmed, err := store.AppendUserTurn(ctx, owner, ref, text)
	if err != nil {
		v.rollback(epoch, snapshot)
		v.notify(noticeSaveFailed)
		return fmt.Errorf("persisting user turn: %w", err)
	}

	// Confirm the optimistic turn: same content, storage identifier.
	v.applyIfCurrent(epoch, func() {
		v.active = newRef
		v.turns[len(v.turns)-1] = confirmed
	})
	v.notifyChange()

	result := v.generator.Generate(ctx, text, history)
	if result.Err != "" {
		// The user turn is already persisted; the rollback hides it
		// from this view anyway. A later reload shows it without an
		// assistant reply. Known discrepancy, kept deliberately.
		v.rollback(epoch, snapshot)
		v.notify(result.Err)
		return fmt.Errorf("generation failed: %s", result.Err)
	}

	assistant := thread.Turn{
		ID:        uuid.New(),
		Role:      thread.RoleAssistant,
		Content:   result.Data,
		CreatedAt: time.Now().UTC(),
	}
	v.applyIfCurrent(epoch, func() {
		v.turns = append(v.turns, assistant)
	})
	v.notifyChange()

	persisted, err := store.AppendAssistantTurn(ctx, owner, newRef, result.Data)
	if err != nil {
		// Best effort: the reply stays visible.
		v.logger.Warn("persisting assistant turn failed", "error", err)
		v.notify(noticeAssistantSaveFailed)
	} else {
		v.applyIfCurrent(epoch, func() {
			v.turns[len(v.turns)-1] = persisted
		})
	}

	v.mu.Lock()
	v.state = StateIdle
	v.mu.Unlock()
	v.notifyChange()
	return nil
}

// OpenThread replaces the displayed turn list with the target thread's
// persisted turns. Rejected while a submission is in flight.
func (v *View) OpenThread(ctx context.Context, ref uuid.UUID) error {
	v.mu.Lock()
	if v.state != StateIdle {
		v.mu.Unlock()
		return ErrSubmissionInFlight
	}
	store := v.store()
	owner := v.owner
	v.mu.Unlock()

	turns, err := store.LoadActiveThread(ctx, owner, ref)
	if err != nil {
		v.notify("Could not load that conversation.")
		return fmt.Errorf("loading thread: %w", err)
	}

	v.mu.Lock()
	v.active = ref
	v.turns = turns
	v.mu.Unlock()
	v.notifyChange()
	return nil
}

// NewChat clears the active thread reference and resets the view to
// the greeting. Guests also get their local cache wiped. No stored
// thread is deleted.
func (v *View) NewChat(ctx context.Context) error {
	v.mu.Lock()
	if v.state != StateIdle {
		v.mu.Unlock()
		return ErrSubmissionInFlight
	}
	signedIn := v.signedIn
	v.active = uuid.Nil
	v.turns = []thread.Turn{thread.GreetingTurn()}
	v.mu.Unlock()
	v.notifyChange()

	if !signedIn {
		if err := v.guest.Clear(ctx); err != nil {
			v.logger.Warn("clearing guest cache failed", "error", err)
		}
	}
	return nil
}

// signIn switches to hosted storage for owner, wiping the guest cache
// and resetting to a fresh conversation.
func (v *View) signIn(ctx context.Context, owner string) {
	if err := v.guest.Clear(ctx); err != nil {
		v.logger.Warn("clearing guest cache on sign-in failed", "error", err)
	}

	v.mu.Lock()
	v.signedIn = true
	v.owner = owner
	v.active = uuid.Nil
	v.turns = []thread.Turn{thread.GreetingTurn()}
	v.epoch++
	v.mu.Unlock()
	v.notifyChange()
}

// signOut returns to guest storage and the greeting.
func (v *View) signOut() {
	v.mu.Lock()
	v.signedIn = false
	v.owner = ""
	v.active = uuid.Nil
	v.turns = []thread.Turn{thread.GreetingTurn()}
	v.epoch++
	v.mu.Unlock()
	v.notifyChange()
}

// BindAuth subscribes the view to auth events. The returned function
// unsubscribes.
func (v *View) BindAuth(ctx context.Context, events *AuthEvents) func() {
	return events.Subscribe(func(e AuthEvent) {
		if e.SignedIn {
			v.signIn(ctx, e.UserID)
		} else {
			v.signOut()
		}
	})
}

// rollback restores the pre-submission turn list and settles to idle.
// If the view was reset since the submission began, only the state is
// touched.
func (v *View) rollback(epoch uint64, snapshot []thread.Turn) {
	v.mu.Lock()
	if v.epoch == epoch {
		v.turns = snapshot
	}
	v.state = StateIdle
	v.mu.Unlock()
	v.notifyChange()
}

// applyIfCurrent runs fn under the lock unless the view was reset
// since epoch was captured.
func (v *View) applyIfCurrent(epoch uint64, fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.epoch == epoch {
		fn()
	}
}

func (v *View) notifyChange() {
	if v.onChange != nil {
		v.onChange()
	}
}

func (v *View) notify(msg string) {
	if v.onNotice != nil {
		v.onNotice(msg)
	}
}

// historyOf converts displayed turns into gateway history. The unsaved
// greeting turn is part of the conversation as the user saw it, so it
// is included like any other assistant turn.
func historyOf(turns []thread.Turn) []gateway.Message {
	msgs := make([]gateway.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case thread.RoleUser, thread.RoleAssistant:
			msgs = append(msgs, gateway.Message{Role: t.Role, Content: t.Content})
		}
	}
	return msgs
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
