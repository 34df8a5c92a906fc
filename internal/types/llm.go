package types

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation sent to the LLM.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
