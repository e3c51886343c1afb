package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ShneWtf/cafe-delivery-bot/internal/domain"
	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

var statusTitles = map[models.OrderStatus]string{
	models.StatusCreated:    "🆕 Создан",
	models.StatusAccepted:   "👨‍🍳 Принят",
	models.StatusInDelivery: "🚗 В доставке",
	models.StatusDelivered:  "✅ Доставлен",
	models.StatusCancelled:  "❌ Отменён",
}

func statusTitle(s models.OrderStatus) string {
	if title, ok := statusTitles[s]; ok {
		return title
	}
	return string(s)
}

func (t *TelegramBot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	from := message.From
	user, created, err := t.svc.GetOrCreateUser(ctx, from.ID, from.UserName, from.FirstName, from.LastName)
	if err != nil {
		t.logger.Error("Failed to get or create user", "user_id", from.ID, "error", err)
		t.replyError(message.Chat.ID, err)
		return
	}

	t.clearState(from.ID)

	greeting := fmt.Sprintf("Привет, %s! 👋\n\nДобро пожаловать в наше кафе. Откройте меню и оформите заказ прямо в Telegram.", user.FirstName)
	if created && user.BonusBalance > 0 {
		greeting += fmt.Sprintf("\n\n🎁 Вам начислен приветственный бонус: <b>%d ₽</b>", user.BonusBalance)
	}

	t.replyWithKeyboard(message.Chat.ID, greeting, t.mainMenuKeyboard())
}

func (t *TelegramBot) handleProfile(ctx context.Context, message *tgbotapi.Message) {
	user, err := t.svc.User(ctx, message.From.ID)
	if err != nil {
		t.replyError(message.Chat.ID, err)
		return
	}

	var b strings.Builder
	b.WriteString("👤 <b>Ваш профиль</b>\n\n")
	fmt.Fprintf(&b, "Имя: %s %s\n", user.FirstName, user.LastName)
	if user.Username != "" {
		fmt.Fprintf(&b, "Username: @%s\n", user.Username)
	}
	if user.Phone != "" {
		fmt.Fprintf(&b, "Телефон: %s\n", user.Phone)
	} else {
		b.WriteString("Телефон: не указан (отправьте контакт, чтобы добавить)\n")
	}
	if user.Address != "" {
		fmt.Fprintf(&b, "Адрес: %s\n", user.Address)
	}
	fmt.Fprintf(&b, "\n💰 Бонусы: %d ₽\n💸 Кешбэк: %d ₽", user.BonusBalance, user.CashbackBalance)

	t.reply(message.Chat.ID, b.String())
}

func (t *TelegramBot) handleBalance(ctx context.Context, message *tgbotapi.Message) {
	user, err := t.svc.User(ctx, message.From.ID)
	if err != nil {
		t.replyError(message.Chat.ID, err)
		return
	}

	text := fmt.Sprintf(
		"💰 <b>Ваш баланс</b>\n\nБонусы: %d ₽\nКешбэк: %d ₽\n\n"+
			"Бонусами можно оплатить до %d%% заказа от %d ₽.\n"+
			"За каждый доставленный заказ возвращается %d%% кешбэка.",
		user.BonusBalance, user.CashbackBalance,
		t.cfg.Loyalty.MaxBonusSharePercent, t.cfg.Loyalty.MinOrderForBonus,
		t.cfg.Loyalty.CashbackPercent)

	t.reply(message.Chat.ID, text)
}

func (t *TelegramBot) handleMyOrders(ctx context.Context, message *tgbotapi.Message) {
	orders, err := t.svc.UserOrders(ctx, message.From.ID, 10)
	if err != nil {
		t.replyError(message.Chat.ID, err)
		return
	}
	if len(orders) == 0 {
		t.reply(message.Chat.ID, "У вас пока нет заказов. Откройте меню и сделайте первый! 🍕")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, order := range orders {
		label := fmt.Sprintf("№%d · %d ₽ · %s", order.ID, order.TotalPrice, statusTitle(order.Status))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("order:view:%d", order.ID)),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	t.replyWithKeyboard(message.Chat.ID, "📦 <b>Ваши заказы</b>", keyboard)
}

func (t *TelegramBot) handleContacts(message *tgbotapi.Message) {
	t.reply(message.Chat.ID,
		"📞 <b>Контакты</b>\n\n"+
			"Телефон: +7 (900) 000-00-00\n"+
			"Время работы: 10:00 — 22:00\n"+
			"Доставка по городу от 30 минут.")
}

// handleContact stores the phone number a user shared via the contact button.
func (t *TelegramBot) handleContact(ctx context.Context, message *tgbotapi.Message) {
	if message.Contact.UserID != message.From.ID {
		t.reply(message.Chat.ID, "Пожалуйста, отправьте свой собственный контакт.")
		return
	}
	if err := t.svc.UpdatePhone(ctx, message.From.ID, message.Contact.PhoneNumber); err != nil {
		t.replyError(message.Chat.ID, err)
		return
	}
	t.reply(message.Chat.ID, "✅ Телефон сохранён")
}

// handleMenuLink sends a button that opens the mini-app, where the cart
// and checkout live. The mini-app places orders through the HTTP API.
func (t *TelegramBot) handleMenuLink(message *tgbotapi.Message) {
	t.replyWithKeyboard(message.Chat.ID,
		"Нажмите кнопку ниже, чтобы открыть меню и оформить заказ 👇",
		t.menuLinkKeyboard())
}

func (t *TelegramBot) menuLinkKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🍽 Открыть меню", t.cfg.Telegram.WebAppURL),
		),
	)
}

// NewOrder lets the HTTP layer announce orders placed through the mini-app.
func (t *TelegramBot) NewOrder(ctx context.Context, order *models.Order) {
	t.reply(order.UserID, fmt.Sprintf(
		"✅ <b>Заказ №%d оформлен!</b>\n\n%s\nМы сообщим, когда заказ примут в работу.",
		order.ID, orderSummary(order)))
	t.notifyStaff(ctx, fmt.Sprintf("🆕 Новый заказ №%d на %d ₽", order.ID, order.TotalPrice))
}

// handleOrderCallback serves "order:action:id" callbacks from customers.
func (t *TelegramBot) handleOrderCallback(ctx context.Context, query *tgbotapi.CallbackQuery, args []string) {
	if len(args) < 2 {
		t.answerCallback(query.ID, "")
		return
	}
	orderID, err := parseID(args[1])
	if err != nil {
		t.answerCallback(query.ID, "")
		return
	}

	switch args[0] {
	case "view":
		order, err := t.svc.Order(ctx, orderID)
		if err != nil {
			t.alertCallback(query.ID, errorText(err))
			return
		}
		if order.UserID != query.From.ID && !t.svc.Can(ctx, query.From.ID, domain.CapManageOrders) {
			t.alertCallback(query.ID, "⛔ У вас нет доступа к этому заказу")
			return
		}
		t.answerCallback(query.ID, "")
		t.editMessage(query, orderText(order), t.customerOrderKeyboard(order))
	case "cancel":
		order, err := t.svc.CancelOrder(ctx, query.From.ID, orderID)
		if err != nil {
			t.alertCallback(query.ID, errorText(err))
			return
		}
		t.answerCallback(query.ID, "Заказ отменён")
		t.editMessage(query, orderText(order), nil)
	default:
		t.answerCallback(query.ID, "")
	}
}

// notifyStaff pings every admin and the director about an event.
func (t *TelegramBot) notifyStaff(ctx context.Context, text string) {
	admins, err := t.svc.Staff(ctx, t.cfg.Telegram.DirectorID, models.RoleAdmin)
	if err != nil {
		t.logger.Error("Failed to list admins for notification", "error", err)
	}
	notified := map[int64]bool{t.cfg.Telegram.DirectorID: true}
	t.reply(t.cfg.Telegram.DirectorID, text)
	for _, admin := range admins {
		if notified[admin.TelegramID] {
			continue
		}
		notified[admin.TelegramID] = true
		t.reply(admin.TelegramID, text)
	}
}

func orderSummary(order *models.Order) string {
	var b strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&b, "• %s × %d — %d ₽\n", item.Name, item.Quantity, item.Price*int64(item.Quantity))
	}
	if order.BonusUsed > 0 {
		fmt.Fprintf(&b, "Оплачено бонусами: %d ₽\n", order.BonusUsed)
	}
	fmt.Fprintf(&b, "<b>Итого: %d ₽</b>\n", order.TotalPrice)
	return b.String()
}

func orderText(order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 <b>Заказ №%d</b>\n\n", order.ID)
	b.WriteString(orderSummary(order))
	fmt.Fprintf(&b, "\nАдрес: %s\n", order.DeliveryAddress)
	fmt.Fprintf(&b, "Статус: %s", statusTitle(order.Status))
	return b.String()
}

func (t *TelegramBot) mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🍽 Меню"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("👤 Профиль"),
			tgbotapi.NewKeyboardButton("💰 Баланс"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📦 Мои заказы"),
			tgbotapi.NewKeyboardButton("📞 Контакты"),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// customerOrderKeyboard offers cancellation only while the customer may
// still cancel, which is before the kitchen accepts the order.
func (t *TelegramBot) customerOrderKeyboard(order *models.Order) *tgbotapi.InlineKeyboardMarkup {
	if order.Status != models.StatusCreated {
		return nil
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Отменить заказ", fmt.Sprintf("order:cancel:%d", order.ID)),
		),
	)
	return &keyboard
}
