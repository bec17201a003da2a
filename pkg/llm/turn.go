// Package llm holds the provider-agnostic conversation model shared by the
// formatter, the provider adapters, and the router.
package llm

// Role is the speaker of a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation. Files are paths to attach to
// the turn and are only valid for selections that support file upload.
type Turn struct {
	Role    Role     `json:"role"`
	Content string   `json:"content"`
	Files   []string `json:"files,omitempty"`
}

// NewUserTurn creates a user turn with the given text and optional files.
func NewUserTurn(content string, files ...string) Turn {
	return Turn{Role: RoleUser, Content: content, Files: files}
}

// NewAssistantTurn creates an assistant turn with the given text.
func NewAssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// Conversation is an ordered chat history. The last turn is always the query
// to answer and every preceding turn is history.
//
// A Conversation is owned by the caller and must not be mutated while a call
// is in flight.
type Conversation []Turn

// Validate reports ErrEmptyConversation when there is nothing to answer.
func (c Conversation) Validate() error {
	if len(c) == 0 {
		return ErrEmptyConversation
	}
	return nil
}

// HasFiles returns true if any turn carries file attachments.
func (c Conversation) HasFiles() bool {
	for _, t := range c {
		if len(t.Files) > 0 {
			return true
		}
	}
	return false
}

// Attachments returns the total number of files across all turns.
func (c Conversation) Attachments() int {
	n := 0
	for _, t := range c {
		n += len(t.Files)
	}
	return n
}

// Query returns the last turn of the conversation.
// Query panics on an empty conversation; call Validate first.
func (c Conversation) Query() Turn {
	return c[len(c)-1]
}
