package bot

import (
	"context"
	"errors"
	"fmt"

	"budgeter/internal/core"
	"budgeter/internal/events"
	"budgeter/internal/log"
)

// fail ends the conversation with the reply matching err. Errors with no
// user-facing meaning are reported to the operator.
func (b *Bot) fail(ctx context.Context, c *conversation, op string, err error) {
	c.sess = c.sess.Reset()

	var (
		fe *core.FormatError
		ae *core.AccessError
	)
	switch {
	case errors.Is(err, core.ErrNoLedger):
		c.say(textNoLedger)
	case errors.As(err, &fe):
		c.say(fmt.Sprintf(textBroken, fmt.Sprintf("row %d, %s", fe.Row, fe.Reason)))
	case errors.Is(err, core.ErrRateLimited):
		c.say(textRateLimited)
	case errors.Is(err, core.ErrInvalidReference):
		c.say(textNotAReference)
	case errors.As(err, &ae):
		c.say(fmt.Sprintf(textNoAccess, c.sess.LedgerRef))
	default:
		b.report(ctx, c.update, op, err)
		c.say(textGenericFailure)
		return
	}
	b.logger.InfoContext(ctx, "conversation ended by error",
		log.NewFields().WithUser(c.update.UserID, c.update.ChatID).WithOperation(op).WithError(err).ToSlice()...)
}

// report tells the operator about an unexpected failure: an event always,
// and a message to the admin chat when one is configured.
func (b *Bot) report(ctx context.Context, u Update, op string, err error) {
	b.logger.LogError(ctx, "unexpected failure", err, op, log.NewFields().WithUser(u.UserID, u.ChatID))

	e := events.New(events.TypeOperatorError, u.UserID, map[string]string{
		"operation": op,
		"error":     err.Error(),
		"chat_id":   fmt.Sprint(u.ChatID),
		"text":      u.Text,
	})
	if perr := b.events.Publish(ctx, e); perr != nil {
		b.logger.WarnContext(ctx, "publish operator report failed", log.FieldError, perr)
	}

	if b.cfg.AdminChatID == 0 {
		return
	}
	msg := Message{
		ChatID: b.cfg.AdminChatID,
		Text: fmt.Sprintf("Error!\n\nUser: %d\nChat: %d\nMessage: %q\nOperation: %s\n\nError: %v",
			u.UserID, u.ChatID, u.Text, op, err),
	}
	if serr := b.messenger.Send(ctx, msg); serr != nil {
		b.logger.WarnContext(ctx, "admin report not delivered", log.FieldError, serr)
	}
}
