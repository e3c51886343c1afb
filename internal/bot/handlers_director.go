package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ShneWtf/cafe-delivery-bot/internal/domain"
	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

func (t *TelegramBot) handleDirector(ctx context.Context, message *tgbotapi.Message) {
	if !t.svc.Can(ctx, message.From.ID, domain.CapManageRoles) {
		t.reply(message.Chat.ID, "⛔ У вас нет доступа к этому действию")
		return
	}
	t.replyWithKeyboard(message.Chat.ID, "👔 <b>Панель директора</b>", directorPanelKeyboard())
}

func directorPanelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Назначить админа", "director:addadmin"),
			tgbotapi.NewInlineKeyboardButtonData("➕ Назначить курьера", "director:addcourier"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Сотрудники", "director:staff"),
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", "admin:stats"),
		),
	)
}

// handleDirectorCallback serves "director:action:args" callbacks.
func (t *TelegramBot) handleDirectorCallback(ctx context.Context, query *tgbotapi.CallbackQuery, args []string) {
	userID := query.From.ID

	if !t.svc.Can(ctx, userID, domain.CapManageRoles) {
		t.alertCallback(query.ID, "⛔ У вас нет доступа к этому действию")
		return
	}

	switch args[0] {
	case "addadmin":
		t.setState(userID, &conversation{State: stateAwaitAdminID})
		t.answerCallback(query.ID, "")
		t.reply(query.Message.Chat.ID, "Отправьте Telegram ID нового администратора. /cancel — отменить.")
	case "addcourier":
		t.setState(userID, &conversation{State: stateAwaitCourierID})
		t.answerCallback(query.ID, "")
		t.reply(query.Message.Chat.ID, "Отправьте Telegram ID нового курьера. /cancel — отменить.")
	case "panel":
		t.answerCallback(query.ID, "")
		t.editMessage(query, "👔 <b>Панель директора</b>", keyboardPtr(directorPanelKeyboard()))
	case "staff":
		t.showStaff(ctx, query)
	case "demote":
		if len(args) < 2 {
			t.answerCallback(query.ID, "")
			return
		}
		t.demoteStaff(ctx, query, args[1])
	default:
		t.answerCallback(query.ID, "")
	}
}

// handleStaffIDInput finishes the appoint-admin / appoint-courier flow.
func (t *TelegramBot) handleStaffIDInput(ctx context.Context, message *tgbotapi.Message, role string) {
	userID := message.From.ID

	targetID, err := parseID(message.Text)
	if err != nil {
		t.reply(message.Chat.ID, "ID должен быть числом. Попробуйте ещё раз или /cancel.")
		return
	}

	if err := t.svc.SetRole(ctx, userID, targetID, models.Role(role)); err != nil {
		t.clearState(userID)
		t.replyError(message.Chat.ID, err)
		return
	}
	t.clearState(userID)

	roleTitle := "администратором"
	notice := "Вам выдан доступ администратора. Откройте /admin."
	if role == "courier" {
		roleTitle = "курьером"
		notice = "Вам выдан доступ курьера. Откройте /courier."
	}
	t.reply(message.Chat.ID, fmt.Sprintf("✅ Пользователь %d назначен %s", targetID, roleTitle))
	t.Notify(targetID, notice)
}

func (t *TelegramBot) showStaff(ctx context.Context, query *tgbotapi.CallbackQuery) {
	userID := query.From.ID

	admins, err := t.svc.Staff(ctx, userID, models.RoleAdmin)
	if err != nil {
		t.alertCallback(query.ID, errorText(err))
		return
	}
	couriers, err := t.svc.Staff(ctx, userID, models.RoleCourier)
	if err != nil {
		t.alertCallback(query.ID, errorText(err))
		return
	}
	t.answerCallback(query.ID, "")

	var b strings.Builder
	b.WriteString("👥 <b>Сотрудники</b>\n\n")
	b.WriteString("Администраторы:\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	appendStaff := func(users []models.User) {
		if len(users) == 0 {
			b.WriteString("— нет\n")
			return
		}
		for _, user := range users {
			fmt.Fprintf(&b, "• %s (%d)\n", staffLabel(user), user.TelegramID)
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					"⬇️ Снять "+staffLabel(user),
					fmt.Sprintf("director:demote:%d", user.TelegramID)),
			))
		}
	}
	appendStaff(admins)
	b.WriteString("\nКурьеры:\n")
	appendStaff(couriers)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("« Назад", "director:panel"),
		))...)
	t.editMessage(query, b.String(), &keyboard)
}

// demoteStaff returns a staff member to the customer role.
func (t *TelegramBot) demoteStaff(ctx context.Context, query *tgbotapi.CallbackQuery, rawID string) {
	targetID, err := parseID(rawID)
	if err != nil {
		t.answerCallback(query.ID, "")
		return
	}
	if err := t.svc.SetRole(ctx, query.From.ID, targetID, models.RoleCustomer); err != nil {
		t.alertCallback(query.ID, errorText(err))
		return
	}
	t.answerCallback(query.ID, "Роль снята")
	t.showStaff(ctx, query)
}

func staffLabel(user models.User) string {
	if user.Username != "" {
		return "@" + user.Username
	}
	if user.FirstName != "" {
		return user.FirstName
	}
	return fmt.Sprintf("ID %d", user.TelegramID)
}
