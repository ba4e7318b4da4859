// Package bot is the conversation layer: it routes commands and free text
// to the ledger services according to the user's session step.
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"budgeter/internal/core"
	"budgeter/internal/events"
	"budgeter/internal/log"
	"budgeter/internal/scheduler"
	"budgeter/internal/services"
	"budgeter/internal/sheets"
	"budgeter/internal/stats"
	"budgeter/internal/storage"
)

// ErrInvalidUpdate is returned for updates without a user or chat.
var ErrInvalidUpdate = errors.New("update needs a user id and a chat id")

// Update is one inbound text event. Keyboard choices arrive as their text.
type Update struct {
	UserID int64  `json:"user_id"`
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// Message is one outbound reply.
type Message struct {
	ChatID         int64      `json:"chat_id"`
	Text           string     `json:"text"`
	HTML           bool       `json:"html,omitempty"`
	Keyboard       [][]string `json:"keyboard,omitempty"`
	RemoveKeyboard bool       `json:"remove_keyboard,omitempty"`
}

// Messenger pushes messages nobody asked for: reminders and operator reports.
type Messenger interface {
	Send(ctx context.Context, m Message) error
}

// Reminders is the part of the scheduler the bot drives.
type Reminders interface {
	RegisterDaily(name string, at scheduler.TimeOfDay, payload any, fn scheduler.Func) bool
	Cancel(name string) bool
	Has(name string) bool
}

type Config struct {
	ReminderTime scheduler.TimeOfDay
	// AdminChatID receives operator reports when non-zero.
	AdminChatID int64
	Currency    string
	// StatsWindow is the trailing window, in records, of the statistics reply.
	StatsWindow int
	// ServiceAccount is shown to users sharing a new spreadsheet.
	ServiceAccount string
}

// Deps are the collaborators a Bot needs.
type Deps struct {
	Sessions  storage.SessionStore
	Ledgers   sheets.LedgerStore
	Reminders Reminders
	Events    events.Publisher
	Messenger Messenger
	Clock     services.Clock
	Logger    *log.Logger
}

type Bot struct {
	cfg       Config
	sessions  storage.SessionStore
	ledgers   sheets.LedgerStore
	reminders Reminders
	events    events.Publisher
	messenger Messenger
	clock     services.Clock
	logger    *log.Logger
	pick      func(n int) int
}

func New(cfg Config, d Deps) *Bot {
	if cfg.Currency == "" {
		cfg.Currency = "GBP"
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 30
	}
	if cfg.ReminderTime == (scheduler.TimeOfDay{}) {
		cfg.ReminderTime = scheduler.TimeOfDay{Hour: 9}
	}
	logger := d.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if d.Events == nil {
		d.Events = events.NewLogPublisher(logger)
	}
	if d.Messenger == nil {
		d.Messenger = NewLogMessenger(logger)
	}
	return &Bot{
		cfg:       cfg,
		sessions:  d.Sessions,
		ledgers:   d.Ledgers,
		reminders: d.Reminders,
		events:    d.Events,
		messenger: d.Messenger,
		clock:     d.Clock,
		logger:    logger.WithComponent(log.ComponentBot),
		pick:      rand.Intn,
	}
}

// conversation collects the replies to one update.
type conversation struct {
	update Update
	sess   core.Session
	out    []Message
}

func (c *conversation) say(text string) *Message {
	c.out = append(c.out, Message{ChatID: c.update.ChatID, Text: text})
	return &c.out[len(c.out)-1]
}

// Handle processes one update and returns the replies for its chat. Store
// and ledger failures become replies; the error is non-nil only for a
// malformed update.
func (b *Bot) Handle(ctx context.Context, u Update) ([]Message, error) {
	if u.UserID == 0 || u.ChatID == 0 {
		return nil, ErrInvalidUpdate
	}
	start := time.Now()
	logger := b.logger.With(log.NewFields().WithUser(u.UserID, u.ChatID).ToSlice()...)

	sess, err := b.sessions.Get(ctx, u.UserID)
	if err != nil {
		b.report(ctx, u, "load_session", err)
		return []Message{{ChatID: u.ChatID, Text: textGenericFailure}}, nil
	}
	sess.UserID = u.UserID
	sess.ChatID = u.ChatID
	c := &conversation{update: u, sess: sess}

	if name, ok := command(u.Text); ok {
		b.command(ctx, c, name)
	} else {
		b.text(ctx, c)
	}

	if err := b.sessions.Save(ctx, c.sess); err != nil {
		b.report(ctx, u, "save_session", err)
		c.say(textGenericFailure)
	}
	logger.DebugContext(ctx, "update handled",
		"step", string(c.sess.Step), "replies", len(c.out), log.FieldDuration, time.Since(start).Milliseconds())
	return c.out, nil
}

// command extracts the command name from text such as "/spend@budgeterbot".
func command(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text[1:])
	if len(name) == 0 {
		return "", true
	}
	n, _, _ := strings.Cut(name[0], "@")
	return strings.ToLower(n), true
}

func (b *Bot) command(ctx context.Context, c *conversation, name string) {
	// Any command abandons the conversation in progress.
	c.sess = c.sess.Reset()
	switch name {
	case "start":
		b.start(c)
	case "spend":
		b.spend(ctx, c)
	case "stats":
		b.stats(ctx, c)
	case "spreadsheet":
		if !c.sess.HasLedger() {
			c.say(textNoLedger)
			return
		}
		c.say(fmt.Sprintf(textLedgerIs, c.sess.LedgerRef))
	case "remind":
		b.askRemind(c)
	case "help":
		c.say(textHelp)
	case "privacy":
		c.say(textPrivacy)
	case "cancel":
		c.say(textCancelled).RemoveKeyboard = true
	default:
		c.say(textUnknown)
	}
}

func (b *Bot) text(ctx context.Context, c *conversation) {
	input := strings.TrimSpace(c.update.Text)
	switch c.sess.Step {
	case core.StepChoosingMode:
		switch input {
		case optionCreateSheet:
			b.createSheet(c)
		case optionExistingSheet:
			b.askReference(c)
		default:
			b.start(c)
		}
	case core.StepConfirmingCreation:
		if input == optionDone {
			b.askReference(c)
			return
		}
		c.say(textAskWhenDone).Keyboard = [][]string{{optionDone}}
	case core.StepGivingReference:
		b.link(ctx, c, input)
	case core.StepAwaitingAmount:
		b.amount(ctx, c, input)
	case core.StepConfirmingReminder:
		b.setRemind(ctx, c, input)
	default:
		c.say(textIdle)
	}
}

func (b *Bot) start(c *conversation) {
	c.sess.Step = core.StepChoosingMode
	m := c.say(textStart)
	m.HTML = true
	m.Keyboard = [][]string{{optionCreateSheet}, {optionExistingSheet}}
}

func (b *Bot) createSheet(c *conversation) {
	c.sess.Step = core.StepConfirmingCreation
	c.say(textCreateSheet).HTML = true
	account := b.cfg.ServiceAccount
	if account == "" {
		account = "the e-mail address of my service account"
	}
	c.say(fmt.Sprintf(textShareSheet, account))
	c.say(textAskWhenDone).Keyboard = [][]string{{optionDone}}
}

func (b *Bot) askReference(c *conversation) {
	c.sess.Step = core.StepGivingReference
	c.say(textAskReference).RemoveKeyboard = true
}

// link validates the reference, checks edit access and stores it.
func (b *Bot) link(ctx context.Context, c *conversation, ref string) {
	if _, err := sheets.SpreadsheetID(ref); err != nil {
		c.say(textNotAReference)
		return
	}
	gw := services.NewLedgerGateway(b.ledgers, ref, b.logger)
	if err := gw.CheckAccess(ctx); err != nil {
		var ae *core.AccessError
		if errors.As(err, &ae) && !errors.Is(err, core.ErrRateLimited) {
			// Stay in the step so the user can share the sheet and resend.
			c.say(fmt.Sprintf(textNoAccess, ref))
			return
		}
		b.fail(ctx, c, log.OpCheck, err)
		return
	}
	c.sess.LedgerRef = ref
	c.sess = c.sess.Reset()
	c.say(textLinked)
	b.logger.InfoContext(ctx, "spreadsheet linked",
		log.NewFields().WithUser(c.update.UserID, c.update.ChatID).WithLedger(ref, 0).ToSlice()...)
}

func (b *Bot) gateway(c *conversation) *services.LedgerGateway {
	return services.NewLedgerGateway(b.ledgers, c.sess.LedgerRef, b.logger)
}

func (b *Bot) spend(ctx context.Context, c *conversation) {
	if !c.sess.HasLedger() {
		b.fail(ctx, c, log.OpRead, core.ErrNoLedger)
		return
	}
	st, err := services.NewBackfill(b.gateway(c), b.clock).Start(ctx)
	if err != nil {
		b.fail(ctx, c, log.OpRead, err)
		return
	}
	b.advance(c, st, "")
}

func (b *Bot) amount(ctx context.Context, c *conversation, input string) {
	if !c.sess.HasLedger() || c.sess.PendingDate.IsEmpty() {
		c.sess = c.sess.Reset()
		c.say(textIdle)
		return
	}
	pending := services.AwaitingAmount{Date: c.sess.PendingDate}
	st, err := services.NewBackfill(b.gateway(c), b.clock).Submit(ctx, pending, input)
	var pe *core.ParseError
	switch {
	case err == nil:
		if aw, ok := st.(services.AwaitingAmount); ok && aw.Recorded != nil {
			b.published(ctx, c, *aw.Recorded)
		}
		if up, ok := st.(services.UpToDate); ok && up.Recorded != nil {
			b.published(ctx, c, *up.Recorded)
		}
		b.advance(c, st, "")
	case errors.As(err, &pe):
		c.say(textNotANumber)
	case core.IsPrecondition(err):
		if _, ok := st.(services.AskingForDate); ok {
			// The fresh read failed too.
			b.fail(ctx, c, log.OpAppend, err)
			return
		}
		b.advance(c, st, textAlreadyThere+"\n\n")
	default:
		b.fail(ctx, c, log.OpAppend, err)
	}
}

// advance moves the session to st and says what comes next.
func (b *Bot) advance(c *conversation, st services.State, prefix string) {
	today := b.clock.Today()
	switch s := st.(type) {
	case services.AwaitingAmount:
		c.sess.Step = core.StepAwaitingAmount
		c.sess.PendingDate = s.Date
		if s.Recorded != nil {
			prefix += fmt.Sprintf(textRecorded, formatMoney(s.Recorded.Amount.Value, b.cfg.Currency)) + " "
		}
		c.say(prefix + missingPrompt(s.Date, today))
	case services.UpToDate:
		c.sess = c.sess.Reset()
		if s.Recorded == nil {
			c.say(prefix + textUpToDate)
			return
		}
		c.say(prefix + finalMessage(*s.Recorded, s.Ledger, b.cfg.StatsWindow, b.cfg.Currency))
	default:
		c.sess = c.sess.Reset()
		c.say(prefix + textGenericFailure)
	}
}

func (b *Bot) published(ctx context.Context, c *conversation, r core.Record) {
	e := events.New(events.TypeRecordAppended, c.update.UserID, map[string]string{
		"date":           r.Date.String(),
		"amount":         r.Amount.String(),
		"spreadsheet_id": spreadsheetID(c.sess.LedgerRef),
	})
	if err := b.events.Publish(ctx, e); err != nil {
		b.logger.WarnContext(ctx, "publish failed", log.FieldEventType, string(e.Type), log.FieldError, err)
	}
}

func (b *Bot) stats(ctx context.Context, c *conversation) {
	if !c.sess.HasLedger() {
		b.fail(ctx, c, log.OpRead, core.ErrNoLedger)
		return
	}
	l, err := b.gateway(c).Read(ctx)
	if err != nil {
		b.fail(ctx, c, log.OpRead, err)
		return
	}
	c.say(statsMessage(stats.Summarize(l, b.cfg.StatsWindow), b.cfg.Currency))
}

func spreadsheetID(ref string) string {
	if id, err := sheets.SpreadsheetID(ref); err == nil {
		return id
	}
	return ref
}
