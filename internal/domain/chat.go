package domain

// ChatMessage is the provider-agnostic prompt message shape sent to the
// generation backends.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
