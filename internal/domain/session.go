package domain

import "time"

// Message roles in a session's chat history.
const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

// Message is one entry of a session's chat history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session holds the per-contract conversation state. The session store
// exclusively owns sessions and their index namespaces; handlers only see
// copies of the history.
type Session struct {
	ID          string
	ContractURL string
	Record      *ContractRecord
	History     []Message
	CreatedAt   time.Time
	LastUsedAt  time.Time
}
