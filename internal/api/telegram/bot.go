package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"equipment-guard/internal/container"
	"equipment-guard/internal/domain/entity"
	"equipment-guard/internal/domain/port"
	"equipment-guard/internal/infrastructure/vision"
)

const (
	msgStart = `👋 Привет! Я слежу за состоянием оборудования по камере.

📋 Команды:
/status — текущее состояние и последний кадр с неисправностью
/fix — рекомендация по устранению неисправности
/ask — задать вопрос эксперту
/subscribe — получать уведомления о неисправностях
/unsubscribe — отключить уведомления
/help — справка`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ /status покажет решение классификатора и уверенность
2️⃣ /fix отправит кадр неисправности модели и вернёт рекомендацию
3️⃣ /ask — следующее сообщение будет передано эксперту

🔔 После /subscribe бот сообщит о каждом переходе норма ↔ неисправность.

📋 Команды:
/status /fix /ask /subscribe /unsubscribe /cancel`

	msgAwaitingQuestion = "💬 Напишите вопрос, я передам его эксперту. /cancel — отмена."
	msgCancelled        = "❌ Операция отменена."
	msgUnknownCommand   = "❓ Неизвестная команда. Используйте /help для справки."
	msgUnknownText      = "ℹ️ Используйте /ask, чтобы задать вопрос, или /help для справки."
	msgProcessing       = "⏳ Анализирую кадр..."
	msgSubscribed       = "🔔 Уведомления включены."
	msgUnsubscribed     = "🔕 Уведомления отключены."
	msgInternalError    = "⚠️ Что-то пошло не так. Попробуйте позже."
)

// botAPI — часть tgbotapi.BotAPI, которой пользуется бот.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot представляет Telegram-бота
type Bot struct {
	api       botAPI
	container *container.Container
	logger    *zap.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("Authorized on account", zap.String("username", api.Self.UserName))

	return newBot(api, c, logger), nil
}

func newBot(api botAPI, c *container.Container, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{api: api, container: c, logger: logger}
}

// Run обрабатывает сообщения до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	user, err := b.container.UserService.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.logger.Error("Failed to get user", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	if user.State == entity.StateAwaitingQuestion && msg.Text != "" {
		b.handleQuestion(ctx, msg, user)
		return
	}

	b.sendMessage(msg.Chat.ID, msgUnknownText)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	users := b.container.UserService

	switch msg.Command() {
	case "start":
		if _, err := users.SetState(ctx, user.ID, user.ChatID, entity.StateMainMenu); err != nil {
			b.logger.Warn("Failed to reset user state", zap.Error(err))
		}
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "status":
		b.handleStatus(msg.Chat.ID)

	case "fix":
		b.handleFix(ctx, msg.Chat.ID)

	case "ask":
		if _, err := users.BeginQuestion(ctx, user.ID, user.ChatID); err != nil {
			b.logger.Error("Failed to begin question", zap.Error(err))
			b.sendMessage(msg.Chat.ID, msgInternalError)
			return
		}
		b.sendMessage(msg.Chat.ID, msgAwaitingQuestion)

	case "subscribe", "unsubscribe":
		on := msg.Command() == "subscribe"
		if _, err := users.SetSubscribed(ctx, user.ID, user.ChatID, on); err != nil {
			b.logger.Error("Failed to update subscription", zap.Error(err))
			b.sendMessage(msg.Chat.ID, msgInternalError)
			return
		}
		if on {
			b.sendMessage(msg.Chat.ID, msgSubscribed)
		} else {
			b.sendMessage(msg.Chat.ID, msgUnsubscribed)
		}

	case "cancel":
		if _, err := users.Cancel(ctx, user.ID, user.ChatID); err != nil {
			b.logger.Warn("Failed to cancel", zap.Error(err))
		}
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// handleStatus отправляет текущее решение и кадр-доказательство
func (b *Bot) handleStatus(chatID int64) {
	snap := b.container.InspectionService.Snapshot()
	text := statusText(snap.Verdict)
	if probs := probabilitiesText(snap.Probabilities); probs != "" {
		text += "\n" + probs
	}

	if !snap.HasEvidence() {
		b.sendMessage(chatID, text)
		return
	}

	caption := fmt.Sprintf("%s\n📷 Последняя неисправность: %s, %s",
		text, snap.Evidence.Label, snap.Evidence.CapturedAt.Format("2006-01-02 15:04:05"))
	b.sendPhoto(chatID, b.annotate(snap.Evidence.Image, vision.EvidenceAnnotation(snap.Evidence)), caption)
}

// handleFix запрашивает рекомендацию по текущей неисправности
func (b *Bot) handleFix(ctx context.Context, chatID int64) {
	b.sendMessage(chatID, msgProcessing)

	fix := b.container.AdviceService.FixSolution(ctx)
	if len(fix.Image) > 0 {
		b.sendPhoto(chatID, fix.Image, fmt.Sprintf("🔧 %s", fix.Defect))
	}
	b.sendMessage(chatID, fix.Solution)
}

// handleQuestion передаёт вопрос эксперту и возвращает пользователя в меню
func (b *Bot) handleQuestion(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	b.sendMessage(msg.Chat.ID, b.container.AdviceService.Chat(ctx, msg.Text))

	if _, err := b.container.UserService.Cancel(ctx, user.ID, user.ChatID); err != nil {
		b.logger.Warn("Failed to reset user state", zap.Error(err))
	}
}

// Publish рассылает подписчикам уведомление о смене состояния
func (b *Bot) Publish(ctx context.Context, change entity.StateChange) error {
	subs, err := b.container.UserService.Subscribers(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}

	text := alertText(change)

	var photo []byte
	if change.Entered() {
		// Кадр, снятый до перехода, относится к прошлому эпизоду.
		if ev := b.container.Monitor.Evidence(); ev != nil && len(ev.Image) > 0 && !ev.CapturedAt.Before(change.At) {
			photo = b.annotate(ev.Image, vision.EvidenceAnnotation(ev))
		}
	}

	var errs []error
	for _, sub := range subs {
		var sendErr error
		if photo != nil {
			sendErr = b.trySend(tgbotapi.NewPhoto(sub.ChatID, tgbotapi.FileBytes{Name: "evidence.jpg", Bytes: photo}), text)
		} else {
			_, sendErr = b.api.Send(tgbotapi.NewMessage(sub.ChatID, text))
		}
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", sub.ChatID, sendErr))
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) trySend(photo tgbotapi.PhotoConfig, caption string) error {
	photo.Caption = caption
	_, err := b.api.Send(photo)
	return err
}

// annotate подписывает кадр; при ошибке возвращается исходный кадр.
func (b *Bot) annotate(img []byte, a vision.Annotation) []byte {
	out, err := vision.Annotate(img, a)
	if err != nil {
		b.logger.Warn("Failed to annotate evidence", zap.Error(err))
		return img
	}
	return out
}

func statusText(v entity.Verdict) string {
	switch {
	case v.Label == entity.LabelInitializing:
		return "⏳ Инициализация, решений ещё нет."
	case v.IsFault:
		return fmt.Sprintf("⚠️ Неисправность: %s (%.1f%%)", v.Label, v.Confidence)
	default:
		return fmt.Sprintf("✅ Норма (%.1f%%)", v.Confidence)
	}
}

// probabilitiesText перечисляет вероятности классов в порядке модели.
func probabilitiesText(p entity.ClassProbabilities) string {
	if p.Len() == 0 {
		return ""
	}
	percent := p.Percent()
	parts := make([]string, 0, p.Len())
	for _, l := range p.Labels() {
		parts = append(parts, fmt.Sprintf("%s %.1f%%", l, percent[l]))
	}
	return "📊 " + strings.Join(parts, ", ")
}

func alertText(change entity.StateChange) string {
	if change.Current.IsFault {
		return fmt.Sprintf("🚨 Обнаружена неисправность: %s (%.1f%%)\nЭпизод: %s",
			change.Current.Label, change.Current.Confidence, change.EpisodeID)
	}
	return fmt.Sprintf("✅ Оборудование вернулось в норму (%.1f%%)\nЭпизод: %s",
		change.Current.Confidence, change.EpisodeID)
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendPhoto отправляет JPEG с подписью
func (b *Bot) sendPhoto(chatID int64, img []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "frame.jpg", Bytes: img})
	if err := b.trySend(photo, caption); err != nil {
		b.logger.Warn("Failed to send photo", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

var _ port.EventPublisher = (*Bot)(nil)
