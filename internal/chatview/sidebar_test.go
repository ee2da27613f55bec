package chatview_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/aetherchat/aether/internal/chatview"
	"github.com/aetherchat/aether/internal/gateway"
	"github.com/aetherchat/aether/internal/testutil"
	"github.com/aetherchat/aether/internal/thread"
)

func signIn(t *testing.T, events *chatview.AuthEvents, user string) {
	t.Helper()
	events.Publish(chatview.AuthEvent{SignedIn: true, UserID: user})
}

func TestSidebarEmptyForGuest(t *testing.T) {
	h := newHarness(t, gateway.Result{Data: "answer"})
	sb := chatview.NewSidebar(h.view, testutil.DiscardLogger())
	ctx := context.Background()

	if err := h.view.Submit(ctx, "guest question"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := sb.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := len(sb.Threads()); got != 0 {
		t.Errorf("guest sidebar has %d threads, want 0", got)
	}
}

func TestSidebarListsOwnThreads(t *testing.T) {
	h := newHarness(t, gateway.Result{Data: "answer"})
	sb := chatview.NewSidebar(h.view, testutil.DiscardLogger())
	ctx := context.Background()
	events := chatview.NewAuthEvents()
	defer h.view.BindAuth(ctx, events)()
	defer sb.BindAuth(ctx, events)()

	signIn(t, events, "alice")

	if err := h.view.Submit(ctx, "first thread"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := h.view.NewChat(ctx); err != nil {
		t.Fatalf("NewChat: %v", err)
	}
	if err := h.view.Submit(ctx, "second thread"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := sb.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	threads := sb.Threads()
	if len(threads) != 2 {
		t.Fatalf("got %d threads, want 2", len(threads))
	}
	// Newest first.
	if threads[0].Name != "second thread" || threads[1].Name != "first thread" {
		t.Errorf("thread order = %q, %q", threads[0].Name, threads[1].Name)
	}
}

func TestSidebarSelectLoadsThread(t *testing.T) {
	h := newHarness(t, gateway.Result{Data: "answer"})
	sb := chatview.NewSidebar(h.view, testutil.DiscardLogger())
	ctx := context.Background()
	events := chatview.NewAuthEvents()
	defer h.view.BindAuth(ctx, events)()
	signIn(t, events, "alice")

	if err := h.view.Submit(ctx, "original question"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ref := h.view.ActiveThread()

	if err := h.view.NewChat(ctx); err != nil {
		t.Fatalf("NewChat: %v", err)
	}
	if err := sb.Select(ctx, ref); err != nil {
		t.Fatalf("Select: %v", err)
	}

	got := contents(h.view.Turns())
	want := []string{"original question", "answer"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("turns = %v, want %v", got, want)
	}
}

func TestSidebarSelectUnknownThread(t *testing.T) {
	h := newHarness(t, gateway.Result{Data: "answer"})
	sb := chatview.NewSidebar(h.view, testutil.DiscardLogger())

	err := sb.Select(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("Select of unknown thread succeeded")
	}
	// The view is untouched.
	got := contents(h.view.Turns())
	if len(got) != 1 || got[0] != thread.Greeting {
		t.Errorf("turns = %v, want greeting only", got)
	}
}

func TestSidebarNewChatKeepsThreadsListed(t *testing.T) {
	h := newHarness(t, gateway.Result{Data: "answer"})
	sb := chatview.NewSidebar(h.view, testutil.DiscardLogger())
	ctx := context.Background()
	events := chatview.NewAuthEvents()
	defer h.view.BindAuth(ctx, events)()
	signIn(t, events, "alice")

	if err := h.view.Submit(ctx, "a question"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := sb.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if err := sb.NewChat(ctx); err != nil {
		t.Fatalf("NewChat: %v", err)
	}
	if h.view.ActiveThread() != uuid.Nil {
		t.Error("active thread not cleared")
	}
	if got := len(sb.Threads()); got != 1 {
		t.Errorf("sidebar has %d threads after NewChat, want 1", got)
	}
}

func TestSidebarAuthLifecycle(t *testing.T) {
	h := newHarness(t, gateway.Result{Data: "answer"})
	sb := chatview.NewSidebar(h.view, testutil.DiscardLogger())
	ctx := context.Background()
	events := chatview.NewAuthEvents()
	defer h.view.BindAuth(ctx, events)()
	defer sb.BindAuth(ctx, events)()

	// Seed a hosted thread for alice before the sign-in event fires.
	if _, _, err := h.store.AppendUserTurn(ctx, "alice", uuid.Nil, "earlier conversation"); err != nil {
		t.Fatalf("AppendUserTurn: %v", err)
	}

	signIn(t, events, "alice")
	if got := len(sb.Threads()); got != 1 {
		t.Errorf("sidebar has %d threads after sign-in, want 1", got)
	}

	events.Publish(chatview.AuthEvent{SignedIn: false})
	if got := len(sb.Threads()); got != 0 {
		t.Errorf("sidebar has %d threads after sign-out, want 0", got)
	}
}
