package bot

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"budgeter/internal/core"
	"budgeter/internal/stats"
)

// Keyboard choices. Free text is matched against them exactly.
const (
	optionCreateSheet   = "Create spreadsheet"
	optionExistingSheet = "Use existing spreadsheet"
	optionDone          = "I'm done"
	optionRemind        = "Remind me"
	optionDontRemind    = "Don't remind me"
)

const (
	textStart = `Hi!

I help you log your daily spending over time. I can give you statistics and keep the spreadsheet up to date.

To get started let's set up a spreadsheet to store your data. Use /cancel to cancel at any time.`

	textCreateSheet = `Create a new spreadsheet with <a href="https://sheets.google.com">Google Sheets</a>.

I only use columns A and B, so give both a label in the first row. The rest of the spreadsheet is yours. Feel free to fill in as much history as you like: I only ask about days after the last one filled in.`

	textShareSheet = `Now I need edit access. Please share the spreadsheet by:

1. Clicking "Share" in the top right corner
2. Entering %s
3. Clicking "Share"`

	textAskWhenDone    = "Let me know when you're done!"
	textAskReference   = "Please send me the URL of the spreadsheet you want to use. Make sure it is shared with me so I can edit it!"
	textNotAReference  = "That doesn't look like a Google Sheets URL to me. Please try again :) or /cancel"
	textLinked         = "Thanks! To get started, try /stats\n\nTo get a daily prompt to log your spending, use /remind"
	textNoLedger       = "You haven't set up a spreadsheet yet! Use /start to set one up."
	textLedgerIs       = "Your spreadsheet is:\n\n%s"
	textBroken         = "The spreadsheet appears to be broken: %s. Fix it or try /start."
	textNoAccess       = "I can't access the spreadsheet with the link:\n%s\n\nDo I have access? If not, use /start for instructions on how to give me access."
	textRateLimited    = "Google is rate limiting me right now. Please try again in a minute."
	textGenericFailure = "Something went wrong on my side and your data was not changed. The operator has been told. Please try again later."
	textUpToDate       = "You're up to date. Try /stats to see insights"
	textNotANumber     = "That doesn't look like a number. Try again?"
	textAlreadyThere   = "That day is already in the spreadsheet, so I left it alone."
	textMissing        = "Spending data missing for %s. How much did you spend on this day? (%s)"
	textRecorded       = "Recorded %s!"
	textCancelled      = "Ok, cancelled."
	textUnknown        = "That's not a command I know!"
	textIdle           = "I'm not waiting for anything. Try /spend to log spending or /help for everything I can do."
	textNoSpending     = "Your spreadsheet has no spending yet. Use /spend to add some."
	textAskRemind      = "I can remind you at %s every day to log the previous day's spending, and prompt you to fill in any missed days.\n\nYour reminders are currently %s. What do you want to change?"
	textRemindOn       = "I'll remind you to log your spending every day at %s. If you want to change this, use /remind"
	textRemindOff      = "Okay! You won't be bothered. If you change your mind, use /remind"
	textReminder       = "%s! How much did you spend yesterday?\n/spend\n\n(to disable these reminders, use /remind)"

	textHelp = `/start - link a spreadsheet
/spend - fill in missing days
/stats - spending statistics
/spreadsheet - show the linked spreadsheet
/remind - turn daily reminders on or off
/privacy - what happens to your data
/cancel - stop what we're doing`

	textPrivacy = `Your spreadsheet is edited by a Google service account. It is not tied to any person and cannot be logged into normally.

I keep your user id, chat id, the spreadsheet link and whether you want reminders. Nothing else is stored outside your spreadsheet.

Sharing the spreadsheet with me is like sharing it with a person: unshare it to revoke access at any time.`
)

var greetings = []string{
	"Sup", "Hi", "Hey", "Hello", "Howdy", "Salutations",
	"Greetings", "Yo", "What's up", "How's it going", "Bot here",
}

// formatMoney renders d in the given ISO currency, falling back to two
// decimals for unknown codes.
func formatMoney(d decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return d.StringFixed(2)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

// daysAgo describes d relative to today.
func daysAgo(d, today core.Date) string {
	switch n := d.DaysUntil(today); n {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", n)
	}
}

func missingPrompt(d, today core.Date) string {
	return fmt.Sprintf(textMissing, d.Weekday().String()+" "+d.String(), daysAgo(d, today))
}

// windowLine renders the trailing-window average with its trend, e.g.
// "£11.00 (↑ £1.00)".
func windowLine(c stats.Comparison, code string) string {
	line := formatMoney(c.Current, code)
	if c.HasPrevious {
		line += fmt.Sprintf(" (%s %s)", c.Trend.Arrow(), formatMoney(c.Current.Sub(c.Previous).Abs(), code))
	}
	return line
}

func finalMessage(recorded core.Record, l core.Ledger, window int, code string) string {
	var b strings.Builder
	fmt.Fprintf(&b, textRecorded+" You're up to date.", formatMoney(recorded.Amount.Value, code))
	if c, ok := stats.Compare(l.Records(), window); ok {
		fmt.Fprintf(&b, "\n\nAverage spend over the last %d days:\n%s", window, windowLine(c, code))
	}
	b.WriteString("\n\nUse /stats for more")
	return b.String()
}

func statsMessage(s stats.Summary, code string) string {
	if !s.HasAmounts {
		return textNoSpending
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Statistics for %d days (%s to %s)\n\n", s.Days, s.First, s.Last)
	fmt.Fprintf(&b, "Total: %s\n", formatMoney(s.Total, code))
	fmt.Fprintf(&b, "Average spend: %s\n", formatMoney(s.Mean, code))
	fmt.Fprintf(&b, "Median spend: %s\n", formatMoney(s.Median, code))
	fmt.Fprintf(&b, "Last %d days: %s", s.Window, windowLine(s.Recent, code))
	if p, ok := s.LatestRolling(); ok {
		fmt.Fprintf(&b, "\n7-day rolling average: %s", formatMoney(p.Value, code))
	}
	return b.String()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
