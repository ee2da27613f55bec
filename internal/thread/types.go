package thread

import (
	"time"

	"github.com/google/uuid"
)

// Role constants define valid turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// GuestThreadRef is the constant sentinel reference for the single
// implicit guest thread. Guests have exactly one unnamed conversation;
// the sentinel keeps the store contracts identical for both variants.
var GuestThreadRef = uuid.MustParse("11111111-1111-1111-1111-111111111111")

// Greeting is the assistant turn shown at the start of every fresh
// conversation.
const Greeting = "Hi! I'm Aether, your AI assistant. I can answer questions, summarize text, or write you a story. How can I help?"

// Turn is one message in a conversation. Optimistic turns carry a
// locally generated ID until persisted, then adopt the storage ID.
type Turn struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Thread is a named conversation owned by one authenticated user.
// Threads are created lazily on the first user turn, never empty.
type Thread struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// GreetingTurn returns the default assistant greeting that seeds a new
// or guest conversation. It is view-only and never persisted.
func GreetingTurn() Turn {
	return Turn{
		ID:      uuid.Nil,
		Role:    RoleAssistant,
		Content: Greeting,
	}
}
