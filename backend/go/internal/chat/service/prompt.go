package service

import (
	"strings"

	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
)

const systemPreamble = "You are Cortexa. If relevant, use the user's stored context.\nUser context:\n"

// BuildSystemPrompt 把召回的记忆拼成系统提示，每条一行。没有记忆时写 "(no memory)"。
func BuildSystemPrompt(memories []string) string {
	var sb strings.Builder
	sb.WriteString(systemPreamble)
	if len(memories) == 0 {
		sb.WriteString("- (no memory)")
		return sb.String()
	}
	for i, m := range memories {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(m)
	}
	return sb.String()
}

func buildMessages(memories []string, message string) []models.Message {
	return []models.Message{
		{Role: models.RoleSystem, Content: BuildSystemPrompt(memories)},
		{Role: models.RoleUser, Content: message},
	}
}
