package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hwtracker/internal/model"
	"hwtracker/internal/schedule"
	"hwtracker/internal/service"
)

// sentMessage is the retractable handle for a delivered notification.
type sentMessage struct {
	chatID    int64
	messageID int
}

// SendReminder posts a stage reminder to the announce chat. Implements
// schedule.Notifier.
func (b *Bot) SendReminder(hw model.Homework, stage schedule.Stage) (schedule.Notification, error) {
	header := fmt.Sprintf("⏳ <b>REMINDER — %s LEFT</b>", strings.ToUpper(stage.Name))
	text := header + "\n\n" + b.describeHomework(hw)
	if b.config.SubscriberTag != "" {
		text = b.config.SubscriberTag + "\n" + text
	}

	msg := tgbotapi.NewMessage(b.config.AnnounceChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	sent, err := b.api.Send(msg)
	if err != nil {
		return nil, fmt.Errorf("send reminder: %w", err)
	}
	return sentMessage{chatID: sent.Chat.ID, messageID: sent.MessageID}, nil
}

// SendDeadline posts the terminal deadline-hit notice. It is not
// retracted; the record it announces is gone.
func (b *Bot) SendDeadline(hw model.Homework) error {
	text := "⏰ <b>DEADLINE HIT</b>\n\n" + b.describeHomework(hw)
	if author := b.authorTag(hw.AuthorID); author != "" {
		text += "\n\n<i>Added by " + escape(author) + "</i>"
	}
	if b.config.SubscriberTag != "" {
		text = b.config.SubscriberTag + "\n" + text
	}

	msg := tgbotapi.NewMessage(b.config.AnnounceChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send deadline notice: %w", err)
	}
	return nil
}

// Retract deletes a previously sent notification, if it is still there.
func (b *Bot) Retract(n schedule.Notification) error {
	handle, ok := n.(sentMessage)
	if !ok {
		return fmt.Errorf("retract: unexpected handle %T", n)
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(handle.chatID, handle.messageID)); err != nil {
		return fmt.Errorf("retract message %d: %w", handle.messageID, err)
	}
	return nil
}

// AnnounceClass posts a class-start notice that removes itself when the
// session ends. Implements service.Announcer.
func (b *Bot) AnnounceClass(subject model.Subject, slot model.ClassSlot) {
	begin, end := service.PeriodTimes(slot)
	text := fmt.Sprintf("🔔 <b>%s</b> (%s)\nClass has started! (%s - %s)", escape(subject.Name), escape(subject.Code), begin, end)
	if subject.Link != "" {
		text += fmt.Sprintf("\n<a href=\"%s\">Classroom link</a>", subject.Link)
	}
	if b.config.SubscriberTag != "" {
		text = b.config.SubscriberTag + "\n" + text
	}

	msg := tgbotapi.NewMessage(b.config.AnnounceChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	sent, err := b.api.Send(msg)
	if err != nil {
		log.Printf("[WARN] announce class %s: %v", subject.Code, err)
		return
	}

	length := slot.Length
	if length < 1 {
		length = 1
	}
	b.deleteLater(sent, time.Duration(length)*time.Hour)
}

// AnnounceUpcoming posts a five-minute heads-up that removes itself once
// the class begins.
func (b *Bot) AnnounceUpcoming(subject model.Subject) {
	text := fmt.Sprintf("🔜 <b>%s</b> (%s) starts in 5 minutes", escape(subject.Name), escape(subject.Code))

	msg := tgbotapi.NewMessage(b.config.AnnounceChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	sent, err := b.api.Send(msg)
	if err != nil {
		log.Printf("[WARN] announce upcoming %s: %v", subject.Code, err)
		return
	}

	b.deleteLater(sent, 5*time.Minute)
}

func (b *Bot) deleteLater(msg tgbotapi.Message, after time.Duration) {
	time.AfterFunc(after, func() {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
			log.Printf("[DEBUG] delete announcement %d: %v", msg.MessageID, err)
		}
	})
}

func (b *Bot) describeHomework(hw model.Homework) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📕 <b>%s</b> | <code>%d</code>\n", escape(hw.Title), hw.ID))
	names, err := b.subjectNames(context.Background())
	if err == nil {
		if name := subjectName(hw.SubjectID, names); name != "" {
			sb.WriteString(fmt.Sprintf("\n<b>Subject:</b> %s", escape(name)))
		}
	}
	if hw.Detail != "" {
		sb.WriteString(fmt.Sprintf("\n<b>Detail:</b> %s", escape(hw.Detail)))
	}
	if hw.DueDate != nil {
		sb.WriteString(fmt.Sprintf("\n\n<b>Due:</b> %s ‼", formatDue(*hw.DueDate, hw.HasDueTime)))
	}
	return sb.String()
}

func (b *Bot) authorTag(telegramID int64) string {
	if telegramID == 0 {
		return ""
	}
	user, err := b.userRepo.FindByTelegramID(context.Background(), telegramID)
	if err != nil {
		return ""
	}
	return user.DisplayName()
}
