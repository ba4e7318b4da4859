package bot

import (
	"context"
	"errors"
	"fmt"

	"budgeter/internal/core"
	"budgeter/internal/events"
	"budgeter/internal/log"
	"budgeter/internal/scheduler"
)

type reminderTarget struct {
	UserID int64
	ChatID int64
}

func (b *Bot) askRemind(c *conversation) {
	c.sess.Step = core.StepConfirmingReminder
	m := c.say(fmt.Sprintf(textAskRemind, b.cfg.ReminderTime, onOff(c.sess.ReminderEnabled)))
	m.Keyboard = [][]string{{optionRemind}, {optionDontRemind}}
}

func (b *Bot) setRemind(ctx context.Context, c *conversation, input string) {
	switch input {
	case optionRemind:
		c.sess.ReminderEnabled = true
		b.schedule(c.sess)
		c.say(fmt.Sprintf(textRemindOn, b.cfg.ReminderTime)).RemoveKeyboard = true
	case optionDontRemind:
		c.sess.ReminderEnabled = false
		b.reminders.Cancel(scheduler.ReminderJobName(c.sess.UserID))
		c.say(textRemindOff).RemoveKeyboard = true
	default:
		b.askRemind(c)
		return
	}
	c.sess = c.sess.Reset()
	b.logger.InfoContext(ctx, "reminder preference changed",
		log.NewFields().WithUser(c.sess.UserID, c.sess.ChatID).ToSlice()...,
	)
}

// schedule registers the daily reminder for s. It reports false when the
// job was already registered.
func (b *Bot) schedule(s core.Session) bool {
	return b.reminders.RegisterDaily(
		scheduler.ReminderJobName(s.UserID),
		b.cfg.ReminderTime,
		reminderTarget{UserID: s.UserID, ChatID: s.ChatID},
		b.remind,
	)
}

// RestoreReminders registers a reminder for every session that has them
// enabled. It is called once at startup and returns how many were added.
func (b *Bot) RestoreReminders(ctx context.Context) (int, error) {
	sessions, err := b.sessions.ListReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore reminders: %w", err)
	}
	n := 0
	for _, s := range sessions {
		if b.schedule(s) {
			n++
		}
	}
	b.logger.InfoContext(ctx, "reminders restored", "count", n)
	return n, nil
}

// remind is the scheduler callback.
func (b *Bot) remind(ctx context.Context, payload any) error {
	t, ok := payload.(reminderTarget)
	if !ok {
		return errors.New("reminder payload is not a reminder target")
	}
	text := fmt.Sprintf(textReminder, greetings[b.pick(len(greetings))])
	if err := b.messenger.Send(ctx, Message{ChatID: t.ChatID, Text: text}); err != nil {
		return fmt.Errorf("send reminder to %d: %w", t.ChatID, err)
	}
	e := events.New(events.TypeReminderSent, t.UserID, nil)
	if err := b.events.Publish(ctx, e); err != nil {
		b.logger.WarnContext(ctx, "publish failed", log.FieldEventType, string(e.Type), log.FieldError, err)
	}
	return nil
}
