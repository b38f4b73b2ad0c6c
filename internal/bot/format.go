package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hwtracker/internal/model"
)

// messageLengthLimit keeps list pages comfortably under Telegram's
// 4096-character message cap.
const messageLengthLimit = 3500

func escape(s string) string {
	return html.EscapeString(s)
}

// bookIcon encodes time-to-deadline the same way the list legend does.
func bookIcon(due *time.Time, now time.Time) string {
	if due == nil {
		return "📘"
	}
	diff := due.Sub(now)
	switch {
	case diff < 24*time.Hour:
		return "📕"
	case diff < 72*time.Hour:
		return "📙"
	default:
		return "📗"
	}
}

func formatDue(due time.Time, hasTime bool) string {
	d := due.In(time.Local)
	if hasTime {
		return d.Format("Mon 2 Jan 2006 15:04")
	}
	return d.Format("Mon 2 Jan 2006")
}

// remaining renders a rough human distance to the deadline.
func remaining(due time.Time, now time.Time) string {
	diff := due.Sub(now)
	if diff < 0 {
		return "past due"
	}
	switch {
	case diff < time.Minute:
		return "less than a minute"
	case diff < time.Hour:
		return fmt.Sprintf("%d min", int(diff.Minutes()))
	case diff < 48*time.Hour:
		return fmt.Sprintf("%d h", int(diff.Hours()))
	default:
		return fmt.Sprintf("%d days", int(diff.Hours()/24))
	}
}

func subjectName(id *uint, names map[uint]string) string {
	if id == nil {
		return ""
	}
	return names[*id]
}

func formatHomework(hw model.Homework, names map[uint]string, now time.Time, showID bool) string {
	var sb strings.Builder
	sb.WriteString("-------------------------------------------\n")
	if hw.IsNew(now) {
		sb.WriteString("🆕 ")
	}
	sb.WriteString(fmt.Sprintf("%s <b>%s</b>", bookIcon(hw.DueDate, now), escape(hw.Title)))
	if showID {
		sb.WriteString(fmt.Sprintf(" | <code>%d</code>", hw.ID))
	}
	if hw.DeletedAt.Valid {
		sb.WriteString(" (expired)")
	}
	sb.WriteString("\n\n")
	if hw.Detail != "" {
		sb.WriteString(fmt.Sprintf("<b>Detail:</b> %s\n", escape(hw.Detail)))
	}
	if name := subjectName(hw.SubjectID, names); name != "" {
		sb.WriteString(fmt.Sprintf("<b>Subject:</b> %s", escape(name)))
	}
	if hw.DueDate != nil {
		sb.WriteString(fmt.Sprintf("\n\n<b>Due:</b> <u>%s</u> <b>(%s)</b> ⏰",
			formatDue(*hw.DueDate, hw.HasDueTime), remaining(*hw.DueDate, now)))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// paginate joins sections into chunks that stay under the length limit.
// A single oversized section becomes its own page rather than being cut.
func paginate(sections []string, limit int) []string {
	var pages []string
	var current strings.Builder
	for _, sec := range sections {
		if current.Len() > 0 && current.Len()+len(sec) > limit {
			pages = append(pages, current.String())
			current.Reset()
		}
		current.WriteString(sec)
	}
	if current.Len() > 0 {
		pages = append(pages, current.String())
	}
	return pages
}

func menuKeyboard(addURL string) tgbotapi.InlineKeyboardMarkup {
	row := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("📚 List", cbListData),
	}
	if addURL != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("➕ Add", addURL))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel"
}
