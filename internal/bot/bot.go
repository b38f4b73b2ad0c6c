package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"hwtracker/internal/config"
	"hwtracker/internal/repository"
	"hwtracker/internal/schedule"
	"hwtracker/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDetail
	stageSubject
	stageDueDate
	stageDueTime
)

const (
	cbRemovePrefix = "remove:"
	cbListData     = "hw_list"
)

const (
	btnSkip   = "⏭ Skip"
	btnCancel = "⏪ Cancel"
)

type conversationState struct {
	stage conversationStage
	input service.HomeworkInput
}

// Bot aggregates the Telegram API with the homework service. It is also
// the notification surface the reminder scheduler sends through.
type Bot struct {
	api           *tgbotapi.BotAPI
	userRepo      *repository.UserRepository
	hwSvc         *service.HomeworkService
	flags         *config.StageFlags
	config        *config.Config
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, hwSvc *service.HomeworkService, flags *config.StageFlags, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[INFO] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		userRepo:      userRepo,
		hwSvc:         hwSvc,
		flags:         flags,
		config:        cfg,
		conversations: make(map[int64]*conversationState),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[INFO] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("[WARN] handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("[WARN] handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled. Nothing was saved.")
	}

	if msg.IsCommand() {
		log.Printf("[INFO] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Try /add to track homework or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "hw":
		return b.handleMenu(ctx, msg)
	case "list":
		return b.handleList(ctx, msg, listOptions{})
	case "listid":
		return b.handleList(ctx, msg, listOptions{showID: true})
	case "listall":
		return b.handleList(ctx, msg, listOptions{showID: true, showDeleted: true})
	case "add":
		return b.handleAdd(ctx, msg)
	case "remove":
		return b.handleRemove(ctx, msg)
	case "subjects":
		return b.handleSubjects(ctx, msg)
	case "toggle":
		return b.handleToggle(msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I keep track of homework and remind everyone before deadlines.</b>\n\nCommands:\n"+
			"• /hw — homework menu\n"+
			"• /list — list homework\n"+
			"• /add — add homework\n"+
			"• /remove &lt;id&gt; — delete homework (find the id with /listid)\n"+
			"• /subjects — subject catalog\n"+
			"• /help — more hints",
		escape(name),
	)

	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Hints</b>\n" +
		"• /hw — menu with list/add/remove buttons\n" +
		"• /list — homework sorted by due date\n" +
		"• /listid — same, with ids for /remove\n" +
		"• /listall — include auto-expired items\n" +
		"• /add — add homework step by step" + b.webHint() + "\n" +
		"• /remove &lt;id&gt; — delete homework before its deadline\n" +
		"• /subjects — subjects and class times\n" +
		"• /toggle &lt;stage&gt; — flip a reminder stage on/off (e.g. /toggle 1 day)\n" +
		"• /cancel — abort the current dialog"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) webHint() string {
	if b.config.WebEndpoint == "" {
		return ""
	}
	return " (or on the web form)"
}

func (b *Bot) handleMenu(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	text := "📚 <b>Homework Menu</b>\n" +
		"Thanks for using the homework tracker! 😄\n\n" +
		"📕 due in under a day\n" +
		"📙 due in under 3 days\n" +
		"📗 due later\n" +
		"📘 no due date\n\n" +
		"Try /list, /add or /remove!"

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = menuKeyboard(b.addLink(msg.From))
	_, err := b.api.Send(reply)
	return err
}

type listOptions struct {
	showID      bool
	showDeleted bool
}

func (b *Bot) handleList(ctx context.Context, msg *tgbotapi.Message, opts listOptions) error {
	hws, err := b.hwSvc.List(ctx, opts.showDeleted)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("<b>Cannot read from database:</b>\n%s", escape(err.Error())))
	}

	if len(hws) == 0 {
		return b.sendText(msg.Chat.ID, "📚 <b>Homework List</b>\nThe list is empty!")
	}

	names, err := b.subjectNames(ctx)
	if err != nil {
		log.Printf("[WARN] load subject names: %v", err)
	}

	now := time.Now()
	var sections []string
	for _, hw := range hws {
		sections = append(sections, formatHomework(hw, names, now, opts.showID))
	}

	for _, page := range paginate(sections, messageLengthLimit) {
		if err := b.sendText(msg.Chat.ID, "📚 <b>Homework List</b>\n"+page); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	if link := b.addLink(msg.From); link != "" {
		if err := b.sendText(msg.Chat.ID, fmt.Sprintf("➕ Add homework on the web form:\n%s\n\nOr answer the questions here.", escape(link))); err != nil {
			return err
		}
	}

	b.setConversation(msg.From.ID, &conversationState{
		stage: stageTitle,
		input: service.HomeworkInput{AuthorID: msg.From.ID},
	})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New homework.\n<b>Step 1:</b> what is it called?", cancelKeyboard())
}

// addLink builds a short-lived signed URL for the companion web form.
func (b *Bot) addLink(from *tgbotapi.User) string {
	if b.config.WebEndpoint == "" || from == nil {
		return ""
	}
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(from.ID, 10),
		"exp": time.Now().Add(15 * time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(b.config.JWTSecret))
	if err != nil {
		log.Printf("[WARN] sign web token: %v", err)
		return ""
	}
	return b.config.WebEndpoint + "?token=" + token
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendText(msg.Chat.ID, "The title cannot be empty.")
		}
		state.input.Title = text
		state.stage = stageDetail
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Add a short detail (or Skip).", skipKeyboard())
	case stageDetail:
		if !isSkipInput(text) {
			state.input.Detail = text
		}
		state.stage = stageSubject
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Which subject? Send its code (see /subjects) or Skip.", skipKeyboard())
	case stageSubject:
		if !isSkipInput(text) {
			state.input.SubjectCode = strings.ToUpper(text)
		}
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ Due date in the form <code>2026-09-30</code> (or Skip for no deadline).", skipKeyboard())
	case stageDueDate:
		if isSkipInput(text) {
			return b.finishAdd(ctx, msg, state)
		}
		parsed, err := time.ParseInLocation("2006-01-02", text, time.Local)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "I can't parse that date. Use <code>2026-09-30</code> or Skip.", skipKeyboard())
		}
		state.input.DueDate = &parsed
		state.stage = stageDueTime
		return b.sendWithReplyMarkup(msg.Chat.ID, "🕐 Time of day, like <code>18:00</code>? Skip means end of day.", skipKeyboard())
	case stageDueTime:
		if !isSkipInput(text) {
			clock, err := time.Parse("15:04", text)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "I can't parse that time. Use <code>18:00</code> or Skip.", skipKeyboard())
			}
			d := state.input.DueDate
			withTime := time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, d.Location())
			state.input.DueDate = &withTime
			state.input.HasDueTime = true
		}
		return b.finishAdd(ctx, msg, state)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Dialog reset. Try again with /add.")
	}
}

func (b *Bot) finishAdd(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	b.clearConversation(msg.From.ID)

	hw, err := b.hwSvc.Create(ctx, state.input)
	if err != nil {
		return b.sendTextWithRemove(msg.Chat.ID, fmt.Sprintf("Could not save homework: %s", escape(err.Error())))
	}

	log.Printf("[INFO] homework created id=%d author=%d due=%v", hw.ID, hw.AuthorID, hw.DueDate)

	names, _ := b.subjectNames(ctx)
	var summary strings.Builder
	summary.WriteString("✅ <b>Homework saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", hw.ID))
	summary.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(hw.Title)))
	if hw.Detail != "" {
		summary.WriteString(fmt.Sprintf("• <b>Detail:</b> %s\n", escape(hw.Detail)))
	}
	if name := subjectName(hw.SubjectID, names); name != "" {
		summary.WriteString(fmt.Sprintf("• <b>Subject:</b> %s\n", escape(name)))
	}
	if hw.DueDate != nil {
		summary.WriteString(fmt.Sprintf("• <b>Due:</b> %s\n", formatDue(*hw.DueDate, hw.HasDueTime)))
	}

	return b.sendTextWithRemove(msg.Chat.ID, strings.TrimSpace(summary.String()))
}

func (b *Bot) handleRemove(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Give me the homework id: /remove 12 (find it with /listid)")
	}

	id64, err := strconv.ParseUint(args, 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "The homework id must be a number.")
	}

	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	hw, err := b.hwSvc.Delete(ctx, uint(id64))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(msg.Chat.ID, "Homework not found.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not delete homework: %s", escape(err.Error())))
	}

	log.Printf("[INFO] homework deleted id=%d by=%d", hw.ID, msg.From.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Homework \"%s\" deleted, reminders cancelled.", escape(hw.Title)))
}

func (b *Bot) handleSubjects(ctx context.Context, msg *tgbotapi.Message) error {
	subjects, err := b.hwSvc.Subjects(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load subjects: %s", escape(err.Error())))
	}
	if len(subjects) == 0 {
		return b.sendText(msg.Chat.ID, "No subjects configured.")
	}

	var builder strings.Builder
	builder.WriteString("🎓 <b>Subjects</b>\n")
	for _, sub := range subjects {
		builder.WriteString(fmt.Sprintf("• <code>%s</code> %s", escape(sub.Code), escape(sub.Name)))
		if sub.Link != "" {
			builder.WriteString(fmt.Sprintf(" — <a href=\"%s\">link</a>", sub.Link))
		}
		builder.WriteByte('\n')
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleToggle(msg *tgbotapi.Message) error {
	stageName := strings.TrimSpace(msg.CommandArguments())
	if stageName == "" {
		var names []string
		for _, st := range schedule.DefaultStages {
			state := "on"
			if !b.flags.StageEnabled(st.Name) {
				state = "off"
			}
			names = append(names, fmt.Sprintf("• %s — %s", st.Name, state))
		}
		return b.sendText(msg.Chat.ID, "Reminder stages:\n"+strings.Join(names, "\n")+"\n\nFlip one with /toggle 1 day")
	}

	known := false
	for _, st := range schedule.DefaultStages {
		if st.Name == stageName {
			known = true
			break
		}
	}
	if !known {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Unknown stage %q.", stageName))
	}

	enabled := b.flags.Toggle(stageName)
	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	log.Printf("[INFO] stage %q %s by %d", stageName, state, msg.From.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("Reminders %q are now <b>%s</b>.", escape(stageName), state))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("[WARN] callback ack: %v", err)
	}

	data := cb.Data
	switch {
	case data == cbListData:
		fake := &tgbotapi.Message{Chat: cb.Message.Chat, From: cb.From}
		return b.handleList(ctx, fake, listOptions{showID: true})
	case strings.HasPrefix(data, cbRemovePrefix):
		id64, err := strconv.ParseUint(strings.TrimPrefix(data, cbRemovePrefix), 10, 64)
		if err != nil {
			return nil
		}
		hw, err := b.hwSvc.Delete(ctx, uint(id64))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return b.sendText(cb.Message.Chat.ID, "Homework not found or already gone.")
			}
			return err
		}
		return b.sendText(cb.Message.Chat.ID, fmt.Sprintf("🗑 Homework \"%s\" deleted.", escape(hw.Title)))
	default:
		return nil
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*tgbotapi.User, error) {
	if from == nil {
		return nil, fmt.Errorf("message without sender")
	}
	if _, err := b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName); err != nil {
		return nil, err
	}
	return from, nil
}

func (b *Bot) subjectNames(ctx context.Context) (map[uint]string, error) {
	subjects, err := b.hwSvc.Subjects(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(subjects))
	for _, sub := range subjects {
		names[sub.ID] = sub.Name
	}
	return names, nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
