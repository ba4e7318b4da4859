package bot

import (
	"context"

	"budgeter/internal/log"
)

// LogMessenger writes outbound messages to the log. It stands in when no
// webhook is configured.
type LogMessenger struct {
	logger *log.Logger
}

func NewLogMessenger(logger *log.Logger) *LogMessenger {
	return &LogMessenger{logger: logger.WithComponent(log.ComponentBot)}
}

func (m *LogMessenger) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "outbound message", log.FieldChatID, msg.ChatID, "text", msg.Text)
	return nil
}
