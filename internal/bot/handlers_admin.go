package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ShneWtf/cafe-delivery-bot/internal/domain"
	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

func (t *TelegramBot) handleAdmin(ctx context.Context, message *tgbotapi.Message) {
	if !t.svc.Can(ctx, message.From.ID, domain.CapManageOrders) {
		t.reply(message.Chat.ID, "⛔ У вас нет доступа к этому действию")
		return
	}
	t.replyWithKeyboard(message.Chat.ID, "🛠 <b>Панель администратора</b>", adminPanelKeyboard())
}

func adminPanelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Активные заказы", "admin:orders"),
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", "admin:stats"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍽 Меню", "admin:menu"),
		),
	)
}

func adminMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Добавить блюдо", "admin:additem"),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить блюдо", "admin:delitem"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📤 Экспорт JSON", "admin:export"),
			tgbotapi.NewInlineKeyboardButtonData("📥 Импорт JSON", "admin:import"),
		),
	)
}

// handleAdminCallback serves "admin:action:args" callbacks.
func (t *TelegramBot) handleAdminCallback(ctx context.Context, query *tgbotapi.CallbackQuery, args []string) {
	userID := query.From.ID

	switch args[0] {
	case "orders":
		t.showActiveOrders(ctx, query)
	case "order":
		if len(args) < 2 {
			t.answerCallback(query.ID, "")
			return
		}
		t.showAdminOrder(ctx, query, args[1])
	case "status":
		if len(args) < 3 {
			t.answerCallback(query.ID, "")
			return
		}
		t.setOrderStatus(ctx, query, args[1], models.OrderStatus(args[2]))
	case "assign":
		if len(args) < 2 {
			t.answerCallback(query.ID, "")
			return
		}
		t.showCourierPicker(ctx, query, args[1])
	case "setcourier":
		if len(args) < 3 {
			t.answerCallback(query.ID, "")
			return
		}
		t.assignCourier(ctx, query, args[1], args[2])
	case "stats":
		t.showStats(ctx, query)
	case "menu":
		t.answerCallback(query.ID, "")
		t.editMessage(query, "🍽 <b>Управление меню</b>", keyboardPtr(adminMenuKeyboard()))
	case "additem":
		t.startItemDraft(ctx, query)
	case "newcat":
		if len(args) < 2 {
			t.answerCallback(query.ID, "")
			return
		}
		t.pickDraftCategory(query, args[1])
	case "delitem":
		t.showItemRemovalList(ctx, query)
	case "rmitem":
		if len(args) < 2 {
			t.answerCallback(query.ID, "")
			return
		}
		t.removeMenuItem(ctx, query, args[1])
	case "export":
		t.exportMenu(ctx, query)
	case "import":
		if !t.svc.Can(ctx, userID, domain.CapManageMenu) {
			t.alertCallback(query.ID, "⛔ У вас нет доступа к этому действию")
			return
		}
		t.setState(userID, &conversation{State: stateAwaitMenuJSON})
		t.answerCallback(query.ID, "")
		t.reply(query.Message.Chat.ID, "Отправьте JSON меню одним сообщением. /cancel — отменить.")
	default:
		t.answerCallback(query.ID, "")
	}
}

func (t *TelegramBot) showActiveOrders(ctx context.Context, query *tgbotapi.CallbackQuery) {
	orders, err := t.svc.ActiveOrders(ctx, query.From.ID)
	if err != nil {
		t.alertCallback(query.ID, errorText(err))
		return
	}
	t.answerCallback(query.ID, "")

	if len(orders) == 0 {
		t.editMessage(query, "Активных заказов нет 🙌", keyboardPtr(adminPanelKeyboard()))
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, order := range orders {
		label := fmt.Sprintf("№%d · %d ₽ · %s", order.ID, order.TotalPrice, statusTitle(order.Status))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("admin:order:%d", order.ID)),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	t.editMessage(query, "📋 <b>Активные заказы</b>", &keyboard)
}

func (t *TelegramBot) showAdminOrder(ctx context.Context, query *tgbotapi.CallbackQuery, rawID string) {
	orderID, err := parseID(rawID)
	if err != nil {
		t.answerCallback(query.ID, "")
		return
	}
	order, err := t.svc.Order(ctx, orderID)
	if err != nil {
		t.alertCallback(query.ID, errorText(err))
		return
	}
	t.answerCallback(query.ID, "")
	t.editMessage(query, orderText(order), adminOrderKeyboard(order))
}

// adminOrderKeyboard offers only the transitions legal from the order's
// current status.
func adminOrderKeyboard(order *models.Order) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, next := range domain.NextStatuses(order.Status) {
		label := statusTitle(next)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				label, fmt.Sprintf("admin:status:%d:%s", order.ID, next)),
		))
	}
	if order.Status == models.StatusCreated || order.Status == models.StatusAccepted {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚴 Назначить курьера", fmt.Sprintf("admin:assign:%d", order.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("« Назад", "admin:orders"),
	))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &keyboard
}

func (t *TelegramBot) setOrderStatus(ctx context.Context, query *tgbotapi.CallbackQuery, rawID string, to models.OrderStatus) {
	orderID, err := parseID(rawID)
	if err != nil {
		t.answerCallback(query.ID, "")
		return
	}
	order, err := t.svc.SetOrderStatus(ctx, query.From.ID, orderID, to)
	if err != nil {
		t.alertCallback(query.ID, errorText(err))
		return
	}
	t.answerCallback(query.ID, "Статус обновлён")
	t.editMessage(query, orderText(order), adminOrderKeyboard(order))

	t.Notify(order.UserID, fmt.Sprintf("Заказ №%d: %s", order.ID, statusTitle(order.Status)))
}

func (t *TelegramBot) showCourierPicker(ctx context.Context, query *tgbotapi.CallbackQuery, rawID string) {
	couriers, err := t.svc.Staff(ctx, query.From.ID, models.RoleCourier)
	if err != nil {
		t.alertCallback(query.ID, errorText(err))
		return
	}
	t.answerCallback(query.ID, "")

	if len(couriers) == 0 {
		t.editMessage(query, "Курьеров пока нет. Директор может назначить их через /director.", keyboardPtr(adminPanelKeyboard()))
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, courier := range couriers {
		label := courier.FirstName
		if courier.Username != "" {
			label = "@" + courier.Username
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				label, fmt.Sprintf("admin:setcourier:%s:%d", rawID, courier.TelegramID)),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	t.editMessage(query, "Выберите курьера:", &keyboard)
}

func (t *TelegramBot) assignCourier(ctx context.Context, query *tgbotapi.CallbackQuery, rawOrderID, rawCourierID string) {
	orderID, err := parseID(rawOrderID)
	if err != nil {
		t.answerCallback(query.ID, "")
		return
	}
	courierID, err := parseID(rawCourierID)
	if err != nil {
		t.answerCallback(query.ID, "")
		return
	}
	order, err := t.svc.AssignCourier(ctx, query.From.ID, orderID, courierID)
	if err != nil {
		t.alertCallback(query.ID, errorText(err))
		return
	}
	t.answerCallback(query.ID, "Курьер назначен")
	t.editMessage(query, orderText(order), adminOrderKeyboard(order))

	t.Notify(courierID, fmt.Sprintf("🚴 Вам назначен заказ №%d. Откройте /courier.", order.ID))
}

func (t *TelegramBot) showStats(ctx context.Context, query *tgbotapi.CallbackQuery) {
	stats, err := t.svc.Stats(ctx, query.From.ID)
	if err != nil {
		t.alertCallback(query.ID, errorText(err))
		return
	}
	t.answerCallback(query.ID, "")

	text := fmt.Sprintf(
		"📊 <b>Статистика</b>\n\n"+
			"Пользователей: %d\n"+
			"Заказов всего: %d\n"+
			"Заказов сегодня: %d\n"+
			"Активных заказов: %d\n"+
			"Выручка (доставлено): %d ₽",
		stats.TotalUsers, stats.TotalOrders, stats.TodayOrders,
		stats.ActiveOrders, stats.DeliveredRevenue)
	t.editMessage(query, text, keyboardPtr(adminPanelKeyboard()))
}

// ============ MENU EDITING ============

func (t *TelegramBot) startItemDraft(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if !t.svc.Can(ctx, query.From.ID, domain.CapManageMenu) {
		t.alertCallback(query.ID, "⛔ У вас нет доступа к этому действию")
		return
	}
	categories, err := t.svc.Categories(ctx)
	if err != nil {
		t.alertCallback(query.ID, errorText(err))
		return
	}
	t.answerCallback(query.ID, "")

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, category := range categories {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				category.Emoji+" "+category.Name, fmt.Sprintf("admin:newcat:%d", category.ID)),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	t.setState(query.From.ID, &conversation{State: stateAwaitItemCategory})
	t.editMessage(query, "Выберите категорию нового блюда:", &keyboard)
}

func (t *TelegramBot) pickDraftCategory(query *tgbotapi.CallbackQuery, rawID string) {
	categoryID, err := parseID(rawID)
	if err != nil {
		t.answerCallback(query.ID, "")
		return
	}
	t.setState(query.From.ID, &conversation{
		State:     stateAwaitItemName,
		ItemDraft: itemDraft{CategoryID: categoryID},
	})
	t.answerCallback(query.ID, "")
	t.reply(query.Message.Chat.ID, "Введите название блюда:")
}

// handleItemDraftInput walks the add-item conversation one step per message.
func (t *TelegramBot) handleItemDraftInput(ctx context.Context, message *tgbotapi.Message, conv *conversation) {
	userID := message.From.ID
	text := strings.TrimSpace(message.Text)

	switch conv.State {
	case stateAwaitItemCategory:
		t.reply(message.Chat.ID, "Пожалуйста, выберите категорию кнопкой выше.")
	case stateAwaitItemName:
		if text == "" {
			t.reply(message.Chat.ID, "Название не может быть пустым. Введите ещё раз:")
			return
		}
		conv.ItemDraft.Name = text
		conv.State = stateAwaitItemDescription
		t.setState(userID, conv)
		t.reply(message.Chat.ID, "Введите описание (или «-», чтобы пропустить):")
	case stateAwaitItemDescription:
		if text != "-" {
			conv.ItemDraft.Description = text
		}
		conv.State = stateAwaitItemPrice
		t.setState(userID, conv)
		t.reply(message.Chat.ID, "Введите цену в рублях:")
	case stateAwaitItemPrice:
		price, err := parseID(text)
		if err != nil || price < 0 {
			t.reply(message.Chat.ID, "Цена должна быть неотрицательным числом. Введите ещё раз:")
			return
		}
		item := &models.MenuItem{
			CategoryID:  conv.ItemDraft.CategoryID,
			Name:        conv.ItemDraft.Name,
			Description: conv.ItemDraft.Description,
			Price:       price,
			Available:   true,
			IsNew:       true,
		}
		if err := t.svc.CreateMenuItem(ctx, userID, item); err != nil {
			t.clearState(userID)
			t.replyError(message.Chat.ID, err)
			return
		}
		t.clearState(userID)
		t.reply(message.Chat.ID, fmt.Sprintf("✅ Блюдо «%s» добавлено (№%d)", item.Name, item.ID))
	}
}

func (t *TelegramBot) showItemRemovalList(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if !t.svc.Can(ctx, query.From.ID, domain.CapManageMenu) {
		t.alertCallback(query.ID, "⛔ У вас нет доступа к этому действию")
		return
	}
	items, err := t.svc.Menu(ctx, 0, false)
	if err != nil {
		t.alertCallback(query.ID, errorText(err))
		return
	}
	t.answerCallback(query.ID, "")

	if len(items) == 0 {
		t.editMessage(query, "Меню пусто.", keyboardPtr(adminMenuKeyboard()))
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, item := range items {
		label := fmt.Sprintf("%s — %d ₽", item.Name, item.Price)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("admin:rmitem:%d", item.ID)),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	t.editMessage(query, "Выберите блюдо для удаления:", &keyboard)
}

func (t *TelegramBot) removeMenuItem(ctx context.Context, query *tgbotapi.CallbackQuery, rawID string) {
	itemID, err := parseID(rawID)
	if err != nil {
		t.answerCallback(query.ID, "")
		return
	}
	if err := t.svc.DeleteMenuItem(ctx, query.From.ID, itemID); err != nil {
		t.alertCallback(query.ID, errorText(err))
		return
	}
	t.answerCallback(query.ID, "Удалено")
	t.showItemRemovalList(ctx, query)
}

func (t *TelegramBot) exportMenu(ctx context.Context, query *tgbotapi.CallbackQuery) {
	raw, err := t.svc.ExportMenu(ctx, query.From.ID)
	if err != nil {
		t.alertCallback(query.ID, errorText(err))
		return
	}
	t.answerCallback(query.ID, "")

	doc := tgbotapi.NewDocument(query.Message.Chat.ID, tgbotapi.FileBytes{
		Name:  "menu.json",
		Bytes: []byte(raw),
	})
	if _, err := t.bot.Send(doc); err != nil {
		t.logger.Error("Failed to send menu export", "error", err)
	}
}

func (t *TelegramBot) handleMenuImportInput(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	if err := t.svc.ImportMenu(ctx, userID, message.Text); err != nil {
		t.replyError(message.Chat.ID, err)
		return
	}
	t.clearState(userID)
	t.reply(message.Chat.ID, "✅ Меню импортировано")
}

func keyboardPtr(k tgbotapi.InlineKeyboardMarkup) *tgbotapi.InlineKeyboardMarkup {
	return &k
}
