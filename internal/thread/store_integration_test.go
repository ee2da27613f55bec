package thread_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/aetherchat/aether/internal/testutil"
	"github.com/aetherchat/aether/internal/thread"
)

func setupStore(t *testing.T) *thread.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	tdb := testutil.SetupPostgres(t)
	return thread.NewStore(tdb.Pool, testutil.DiscardLogger())
}

func TestStoreFreshConversationIsGreeting(t *testing.T) {
	store := setupStore(t)

	turns, err := store.LoadActiveThread(context.Background(), "user-1", uuid.Nil)
	if err != nil {
		t.Fatalf("LoadActiveThread: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if turns[0].Role != thread.RoleAssistant || turns[0].Content != thread.Greeting {
		t.Errorf("got %q/%q, want greeting", turns[0].Role, turns[0].Content)
	}
}

func TestStoreLazyThreadCreation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	ref, turn, err := store.AppendUserTurn(ctx, "user-1", uuid.Nil, "what is the capital of France?")
	if err != nil {
		t.Fatalf("AppendUserTurn: %v", err)
	}
	if ref == uuid.Nil {
		t.Fatal("no thread reference returned")
	}
	if turn.ID == uuid.Nil {
		t.Error("turn has no storage ID")
	}
	if turn.Role != thread.RoleUser {
		t.Errorf("turn role = %q, want user", turn.Role)
	}

	threads, err := store.ListThreads(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(threads) != 1 {
		t.Fatalf("got %d threads, want 1", len(threads))
	}
	wantName := thread.NameFromText("what is the capital of France?")
	if threads[0].Name != wantName {
		t.Errorf("thread name = %q, want %q", threads[0].Name, wantName)
	}
}

func TestStoreThreadNameTruncation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	long := strings.Repeat("x", 40)
	_, _, err := store.AppendUserTurn(ctx, "user-1", uuid.Nil, long)
	if err != nil {
		t.Fatalf("AppendUserTurn: %v", err)
	}

	threads, err := store.ListThreads(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	want := strings.Repeat("x", thread.NameMaxRunes) + "..."
	if threads[0].Name != want {
		t.Errorf("thread name = %q, want %q", threads[0].Name, want)
	}
}

func TestStoreTurnOrdering(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	ref, _, err := store.AppendUserTurn(ctx, "user-1", uuid.Nil, "first question")
	if err != nil {
		t.Fatalf("AppendUserTurn: %v", err)
	}
	if _, err := store.AppendAssistantTurn(ctx, "user-1", ref, "first answer"); err != nil {
		t.Fatalf("AppendAssistantTurn: %v", err)
	}
	if _, _, err := store.AppendUserTurn(ctx, "user-1", ref, "second question"); err != nil {
		t.Fatalf("AppendUserTurn: %v", err)
	}
	if _, err := store.AppendAssistantTurn(ctx, "user-1", ref, "second answer"); err != nil {
		t.Fatalf("AppendAssistantTurn: %v", err)
	}

	turns, err := store.LoadActiveThread(ctx, "user-1", ref)
	if err != nil {
		t.Fatalf("LoadActiveThread: %v", err)
	}
	want := []string{"first question", "first answer", "second question", "second answer"}
	if len(turns) != len(want) {
		t.Fatalf("got %d turns, want %d", len(turns), len(want))
	}
	for i, w := range want {
		if turns[i].Content != w {
			t.Errorf("turn %d = %q, want %q", i, turns[i].Content, w)
		}
	}
}

func TestStoreOwnershipIsolation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	ref, _, err := store.AppendUserTurn(ctx, "alice", uuid.Nil, "private question")
	if err != nil {
		t.Fatalf("AppendUserTurn: %v", err)
	}

	// Another owner cannot read or write the thread.
	if _, err := store.LoadActiveThread(ctx, "mallory", ref); !errors.Is(err, thread.ErrNotFound) {
		t.Errorf("load as other owner: err = %v, want ErrNotFound", err)
	}
	if _, _, err := store.AppendUserTurn(ctx, "mallory", ref, "injected"); !errors.Is(err, thread.ErrNotFound) {
		t.Errorf("append as other owner: err = %v, want ErrNotFound", err)
	}
	if _, err := store.AppendAssistantTurn(ctx, "mallory", ref, "injected"); !errors.Is(err, thread.ErrNotFound) {
		t.Errorf("assistant append as other owner: err = %v, want ErrNotFound", err)
	}

	// Alice's sidebar is unaffected, Mallory's is empty.
	threads, err := store.ListThreads(ctx, "mallory")
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(threads) != 0 {
		t.Errorf("other owner sees %d threads, want 0", len(threads))
	}
}

func TestStoreUnknownThread(t *testing.T) {
	store := setupStore(t)

	_, err := store.LoadActiveThread(context.Background(), "user-1", uuid.New())
	if !errors.Is(err, thread.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreListThreadsNewestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, _, err := store.AppendUserTurn(ctx, "user-1", uuid.Nil, "older thread"); err != nil {
		t.Fatalf("AppendUserTurn: %v", err)
	}
	if _, _, err := store.AppendUserTurn(ctx, "user-1", uuid.Nil, "newer thread"); err != nil {
		t.Fatalf("AppendUserTurn: %v", err)
	}

	threads, err := store.ListThreads(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("got %d threads, want 2", len(threads))
	}
	if !threads[0].CreatedAt.After(threads[1].CreatedAt) && !threads[0].CreatedAt.Equal(threads[1].CreatedAt) {
		t.Errorf("threads not ordered newest-first: %v then %v", threads[0].CreatedAt, threads[1].CreatedAt)
	}
}

func TestStoreConcurrentAppendsKeepSequence(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	ref, _, err := store.AppendUserTurn(ctx, "user-1", uuid.Nil, "start")
	if err != nil {
		t.Fatalf("AppendUserTurn: %v", err)
	}

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := store.AppendAssistantTurn(ctx, "user-1", ref, "concurrent")
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent append: %v", err)
		}
	}

	turns, err := store.LoadActiveThread(ctx, "user-1", ref)
	if err != nil {
		t.Fatalf("LoadActiveThread: %v", err)
	}
	if len(turns) != n+1 {
		t.Errorf("got %d turns, want %d", len(turns), n+1)
	}
}
