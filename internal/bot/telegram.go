package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ShneWtf/cafe-delivery-bot/config"
	"github.com/ShneWtf/cafe-delivery-bot/internal/domain"
	"github.com/ShneWtf/cafe-delivery-bot/pkg/logger"
)

// Conversation states for multi-step flows (staff appointment, menu editing).
const (
	stateAwaitAdminID         = "await_admin_id"
	stateAwaitCourierID       = "await_courier_id"
	stateAwaitItemCategory    = "await_item_category"
	stateAwaitItemName        = "await_item_name"
	stateAwaitItemDescription = "await_item_description"
	stateAwaitItemPrice       = "await_item_price"
	stateAwaitMenuJSON        = "await_menu_json"
)

// conversation holds per-user multi-step input in progress.
type conversation struct {
	State     string
	ItemDraft itemDraft
}

type itemDraft struct {
	CategoryID  int64
	Name        string
	Description string
}

type TelegramBot struct {
	bot        *tgbotapi.BotAPI
	svc        *domain.Service
	cfg        *config.Config
	logger     *logger.Logger
	states     map[int64]*conversation
	stateMutex sync.RWMutex
}

func NewTelegramBot(cfg *config.Config, svc *domain.Service, logger *logger.Logger) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	logger.Info("Authorized on Telegram", "username", bot.Self.UserName)

	return &TelegramBot{
		bot:    bot,
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		states: make(map[int64]*conversation),
	}, nil
}

// Start begins receiving updates from Telegram via polling
func (t *TelegramBot) Start(ctx context.Context) error {
	_, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: true,
	})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := t.bot.GetUpdatesChan(updateConfig)

	t.logger.Info("Started receiving Telegram updates")

	go t.handleUpdates(ctx, updates)

	return nil
}

// handleUpdates processes incoming updates from Telegram
func (t *TelegramBot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		go func(update tgbotapi.Update) {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Error("Recovered from panic while processing update", "error", r)
				}
			}()

			switch {
			case update.Message != nil:
				if update.Message.IsCommand() {
					t.handleCommand(ctx, update.Message)
				} else {
					t.handleMessage(ctx, update.Message)
				}
			case update.CallbackQuery != nil:
				t.handleCallbackQuery(ctx, update.CallbackQuery)
			}
		}(update)
	}
}

// handleCommand dispatches bot commands. Role checks happen in the domain
// service; a command outside the caller's role yields a denial reply.
func (t *TelegramBot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	userID := message.From.ID

	t.logger.Info("Handling command", "command", command, "user_id", userID)

	switch command {
	case "start":
		t.handleStart(ctx, message)
	case "profile":
		t.handleProfile(ctx, message)
	case "balance":
		t.handleBalance(ctx, message)
	case "orders":
		t.handleMyOrders(ctx, message)
	case "admin":
		t.handleAdmin(ctx, message)
	case "courier":
		t.handleCourier(ctx, message)
	case "director":
		t.handleDirector(ctx, message)
	case "cancel":
		t.clearState(userID)
		t.reply(message.Chat.ID, "❌ Отменено")
	case "help":
		t.reply(message.Chat.ID,
			"Я бот кафе с доставкой.\n\n"+
				"/start — главное меню\n"+
				"/profile — ваш профиль\n"+
				"/balance — бонусы и кешбэк\n"+
				"/orders — ваши заказы")
	default:
		t.reply(message.Chat.ID, "Неизвестная команда. Используйте /start для начала работы.")
	}
}

// handleMessage processes non-command messages according to the caller's
// conversation state.
func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	if message.Contact != nil {
		t.handleContact(ctx, message)
		return
	}

	switch message.Text {
	case "🍽 Меню":
		t.handleMenuLink(message)
		return
	case "👤 Профиль":
		t.handleProfile(ctx, message)
		return
	case "💰 Баланс":
		t.handleBalance(ctx, message)
		return
	case "📦 Мои заказы":
		t.handleMyOrders(ctx, message)
		return
	case "📞 Контакты":
		t.handleContacts(message)
		return
	}

	t.stateMutex.RLock()
	conv, exists := t.states[userID]
	t.stateMutex.RUnlock()

	if !exists {
		t.reply(message.Chat.ID, "Пожалуйста, используйте /start для начала работы с ботом.")
		return
	}

	switch conv.State {
	case stateAwaitAdminID:
		t.handleStaffIDInput(ctx, message, "admin")
	case stateAwaitCourierID:
		t.handleStaffIDInput(ctx, message, "courier")
	case stateAwaitItemCategory, stateAwaitItemName, stateAwaitItemDescription, stateAwaitItemPrice:
		t.handleItemDraftInput(ctx, message, conv)
	case stateAwaitMenuJSON:
		t.handleMenuImportInput(ctx, message)
	default:
		t.clearState(userID)
		t.reply(message.Chat.ID, "Извините, произошла ошибка. Пожалуйста, используйте /start для начала заново.")
	}
}

// handleCallbackQuery routes inline keyboard callbacks on "scope:action:args"
// data strings.
func (t *TelegramBot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	t.logger.Info("Received callback query", "from", query.From.ID, "data", query.Data)

	parts := strings.Split(query.Data, ":")
	if len(parts) < 2 {
		t.answerCallback(query.ID, "")
		return
	}

	switch parts[0] {
	case "order":
		t.handleOrderCallback(ctx, query, parts[1:])
	case "admin":
		t.handleAdminCallback(ctx, query, parts[1:])
	case "courier":
		t.handleCourierCallback(ctx, query, parts[1:])
	case "director":
		t.handleDirectorCallback(ctx, query, parts[1:])
	default:
		t.answerCallback(query.ID, "")
	}
}

// Stop gracefully shuts down the bot
func (t *TelegramBot) Stop(ctx context.Context) error {
	t.bot.StopReceivingUpdates()

	// Allow time for in-flight handlers to complete
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}

// Notify sends a plain message to a chat, used for order status updates.
func (t *TelegramBot) Notify(chatID int64, text string) {
	t.reply(chatID, text)
}

// ============ STATE AND SEND HELPERS ============

func (t *TelegramBot) setState(userID int64, conv *conversation) {
	t.stateMutex.Lock()
	t.states[userID] = conv
	t.stateMutex.Unlock()
}

func (t *TelegramBot) clearState(userID int64) {
	t.stateMutex.Lock()
	delete(t.states, userID)
	t.stateMutex.Unlock()
}

func (t *TelegramBot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (t *TelegramBot) replyWithKeyboard(chatID int64, text string, keyboard interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (t *TelegramBot) editMessage(query *tgbotapi.CallbackQuery, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = keyboard
	if _, err := t.bot.Send(edit); err != nil {
		t.logger.Error("Failed to edit message", "chat_id", query.Message.Chat.ID, "error", err)
	}
}

func (t *TelegramBot) answerCallback(callbackID, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := t.bot.Request(callback); err != nil {
		t.logger.Error("Failed to answer callback", "error", err)
	}
}

func (t *TelegramBot) alertCallback(callbackID, text string) {
	alert := tgbotapi.NewCallbackWithAlert(callbackID, text)
	if _, err := t.bot.Request(alert); err != nil {
		t.logger.Error("Failed to answer callback", "error", err)
	}
}

// replyError converts a domain error to a user-visible reply.
func (t *TelegramBot) replyError(chatID int64, err error) {
	t.reply(chatID, errorText(err))
}

func errorText(err error) string {
	switch domain.KindOf(err) {
	case domain.KindForbidden:
		return "⛔ У вас нет доступа к этому действию"
	case domain.KindNotFound:
		return "Не найдено. Проверьте данные и попробуйте снова."
	case domain.KindInvalidTransition:
		return "Это действие уже нельзя выполнить для данного заказа."
	case domain.KindValidation:
		return "Некорректные данные: " + err.Error()
	}
	return "Извините, произошла ошибка. Пожалуйста, попробуйте позже."
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
