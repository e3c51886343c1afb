package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShneWtf/cafe-delivery-bot/config"
	"github.com/ShneWtf/cafe-delivery-bot/internal/domain"
	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

func TestErrorText(t *testing.T) {
	assert.Contains(t, errorText(domain.Forbidden("no")), "нет доступа")
	assert.Contains(t, errorText(domain.NotFound("no")), "Не найдено")
	assert.Contains(t, errorText(domain.InvalidTransition("no")), "уже нельзя")
	assert.Contains(t, errorText(domain.Validation("плохое поле")), "плохое поле")
	assert.Contains(t, errorText(assert.AnError), "попробуйте позже")
}

func TestOrderText(t *testing.T) {
	order := &models.Order{
		ID:              7,
		Items:           []models.OrderItem{{Name: "Пицца", Price: 600, Quantity: 2}},
		TotalPrice:      1100,
		BonusUsed:       100,
		DeliveryAddress: "ул. Ленина, 1",
		Status:          models.StatusCreated,
	}
	text := orderText(order)
	assert.Contains(t, text, "Заказ №7")
	assert.Contains(t, text, "Пицца × 2 — 1200 ₽")
	assert.Contains(t, text, "Оплачено бонусами: 100 ₽")
	assert.Contains(t, text, "Итого: 1100 ₽")
	assert.Contains(t, text, "ул. Ленина, 1")
}

func TestCustomerOrderKeyboard(t *testing.T) {
	bot := &TelegramBot{}

	keyboard := bot.customerOrderKeyboard(&models.Order{ID: 1, Status: models.StatusCreated})
	require.NotNil(t, keyboard)
	assert.Equal(t, "order:cancel:1", *keyboard.InlineKeyboard[0][0].CallbackData)

	// Once accepted, the customer loses the cancel button.
	assert.Nil(t, bot.customerOrderKeyboard(&models.Order{ID: 1, Status: models.StatusAccepted}))
	assert.Nil(t, bot.customerOrderKeyboard(&models.Order{ID: 1, Status: models.StatusDelivered}))
}

func TestMenuLinkKeyboard(t *testing.T) {
	cfg := &config.Config{}
	cfg.Telegram.WebAppURL = "https://cafe.example/app"
	bot := &TelegramBot{cfg: cfg}

	keyboard := bot.menuLinkKeyboard()
	require.Len(t, keyboard.InlineKeyboard, 1)
	button := keyboard.InlineKeyboard[0][0]
	require.NotNil(t, button.URL)
	assert.Equal(t, "https://cafe.example/app", *button.URL)
	assert.Nil(t, button.CallbackData)
}

func TestCourierOrderKeyboard(t *testing.T) {
	keyboard := courierOrderKeyboard(&models.Order{ID: 3, Status: models.StatusAccepted})
	require.NotNil(t, keyboard)
	assert.Equal(t, "courier:pickup:3", *keyboard.InlineKeyboard[0][0].CallbackData)

	keyboard = courierOrderKeyboard(&models.Order{ID: 3, Status: models.StatusInDelivery})
	require.NotNil(t, keyboard)
	assert.Equal(t, "courier:done:3", *keyboard.InlineKeyboard[0][0].CallbackData)

	assert.Nil(t, courierOrderKeyboard(&models.Order{ID: 3, Status: models.StatusDelivered}))
}

func TestAdminOrderKeyboardOffersLegalTransitionsOnly(t *testing.T) {
	keyboard := adminOrderKeyboard(&models.Order{ID: 5, Status: models.StatusInDelivery})
	require.NotNil(t, keyboard)

	var callbacks []string
	for _, row := range keyboard.InlineKeyboard {
		for _, button := range row {
			if button.CallbackData != nil {
				callbacks = append(callbacks, *button.CallbackData)
			}
		}
	}
	assert.Contains(t, callbacks, "admin:status:5:delivered")
	assert.NotContains(t, callbacks, "admin:status:5:cancelled")
	assert.NotContains(t, callbacks, "admin:assign:5")
}

func TestParseID(t *testing.T) {
	id, err := parseID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = parseID("abc")
	assert.Error(t, err)
}
