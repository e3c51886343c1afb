package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ShneWtf/cafe-delivery-bot/internal/domain"
	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

func (t *TelegramBot) handleCourier(ctx context.Context, message *tgbotapi.Message) {
	orders, err := t.svc.CourierOrders(ctx, message.From.ID)
	if err != nil {
		t.replyError(message.Chat.ID, err)
		return
	}
	if len(orders) == 0 {
		t.reply(message.Chat.ID, "🚴 Назначенных заказов нет. Отдыхайте!")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, order := range orders {
		label := fmt.Sprintf("№%d · %s · %s", order.ID, statusTitle(order.Status), order.DeliveryAddress)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("courier:view:%d", order.ID)),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	t.replyWithKeyboard(message.Chat.ID, "🚴 <b>Ваши доставки</b>", keyboard)
}

// handleCourierCallback serves "courier:action:id" callbacks.
func (t *TelegramBot) handleCourierCallback(ctx context.Context, query *tgbotapi.CallbackQuery, args []string) {
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
		if !t.svc.Can(ctx, query.From.ID, domain.CapDeliverOrders) {
			t.alertCallback(query.ID, "⛔ У вас нет доступа к этому действию")
			return
		}
		order, err := t.svc.Order(ctx, orderID)
		if err != nil {
			t.alertCallback(query.ID, errorText(err))
			return
		}
		t.answerCallback(query.ID, "")
		t.editMessage(query, orderText(order), courierOrderKeyboard(order))
	case "pickup":
		order, err := t.svc.StartDelivery(ctx, query.From.ID, orderID)
		if err != nil {
			t.alertCallback(query.ID, errorText(err))
			return
		}
		t.answerCallback(query.ID, "Заказ в доставке")
		t.editMessage(query, orderText(order), courierOrderKeyboard(order))
		t.Notify(order.UserID, fmt.Sprintf("🚗 Заказ №%d передан курьеру и уже едет к вам!", order.ID))
	case "done":
		order, cashback, err := t.svc.CompleteDelivery(ctx, query.From.ID, orderID)
		if err != nil {
			t.alertCallback(query.ID, errorText(err))
			return
		}
		t.answerCallback(query.ID, "Заказ доставлен")
		t.editMessage(query, orderText(order), nil)

		text := fmt.Sprintf("✅ Заказ №%d доставлен. Приятного аппетита!", order.ID)
		if cashback > 0 {
			text += fmt.Sprintf("\n💸 Начислен кешбэк: %d ₽", cashback)
		}
		t.Notify(order.UserID, text)
	default:
		t.answerCallback(query.ID, "")
	}
}

func courierOrderKeyboard(order *models.Order) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	switch order.Status {
	case models.StatusAccepted:
		row = tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚗 Забрал заказ", fmt.Sprintf("courier:pickup:%d", order.ID)),
		)
	case models.StatusInDelivery:
		row = tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Доставлено", fmt.Sprintf("courier:done:%d", order.ID)),
		)
	default:
		return nil
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(row)
	return &keyboard
}
