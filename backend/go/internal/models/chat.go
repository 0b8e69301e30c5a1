package models

import "time"

// Role 是对话消息的角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 是发送给补全模型的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Identity 是已认证的调用者，只读。
type Identity struct {
	ID string `json:"id"`
}

// ChatRequest 是 /chat/complete 的请求体。
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatReply 是 /chat/complete 的响应体。
type ChatReply struct {
	Reply        string   `json:"reply"`
	MemoriesUsed []string `json:"memories_used"`
}

// MemoryJob 是一次后台记忆写入任务。
type MemoryJob struct {
	UserID      string    `json:"user_id"`
	Message     string    `json:"message"`
	TraceID     string    `json:"trace_id,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}
