package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/someout/market-bot/internal/models"
	"github.com/someout/market-bot/internal/session"
)

// showProfile renders the stats block, then the contact bundles with the
// capture buttons.
func (b *Bot) showProfile(chatID, userID int64) {
	profile, err := b.store.GetProfile(userID)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Msg("failed to load profile")
		b.sendText(chatID, "Ошибка сервиса. Попробуйте ещё раз.")
		return
	}

	requests, err := b.store.CountUserRequests(userID)
	if err != nil {
		b.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to count requests")
	}
	offers, err := b.store.CountSellerOffers(userID)
	if err != nil {
		b.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to count offers")
	}

	b.sendText(chatID, profileStatsText(profile, requests, offers))

	if !profile.HasDelivery() || !profile.HasPayout() {
		b.sendTextKB(chatID, "Для заказов желательно заполнить контактные данные и реквизиты.", profileKeyboard())
		return
	}
	b.sendTextKB(chatID, fmtDelivery(profile)+"\n\n"+fmtPayout(profile), profileKeyboard())
}

func (b *Bot) handleProfileDelivery(cq *tgbotapi.CallbackQuery) {
	profile, err := b.store.GetProfile(cq.From.ID)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", cq.From.ID).Msg("failed to load profile")
		b.answerAlert(cq, "Ошибка сервиса. Попробуйте ещё раз.")
		return
	}

	if profile.HasDelivery() {
		b.sendTextKB(cq.Message.Chat.ID,
			fmtDelivery(profile)+"\n\nЧтобы обновить — отправьте одним сообщением:\n1) ФИО\n2) Телефон\n3) Адрес ПВЗ CDEK",
			backInlineKeyboard())
	} else {
		b.sendTextKB(cq.Message.Chat.ID, textDeliveryPrompt, backInlineKeyboard())
	}

	b.sessions.SetStep(cq.From.ID, session.StepDeliveryContact)
	b.answer(cq, "")
}

func (b *Bot) handleProfilePayout(cq *tgbotapi.CallbackQuery) {
	profile, err := b.store.GetProfile(cq.From.ID)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", cq.From.ID).Msg("failed to load profile")
		b.answerAlert(cq, "Ошибка сервиса. Попробуйте ещё раз.")
		return
	}

	if profile.HasPayout() {
		b.sendTextKB(cq.Message.Chat.ID,
			fmtPayout(profile)+"\n\nЧтобы обновить — отправьте одним сообщением:\n1) ФИО\n2) Номер карты (16 цифр)\n3) Банк",
			backInlineKeyboard())
	} else {
		b.sendTextKB(cq.Message.Chat.ID, textPayoutPrompt, backInlineKeyboard())
	}

	b.sessions.SetStep(cq.From.ID, session.StepPayoutContact)
	b.answer(cq, "")
}

func (b *Bot) handleProfileBack(cq *tgbotapi.CallbackQuery) {
	b.sessions.Clear(cq.From.ID)
	b.showProfile(cq.Message.Chat.ID, cq.From.ID)
	b.answer(cq, "Возврат без изменений.")
}

// contactLines splits a multi-line contact message: first line, second
// line, remainder folded into the third field. Fewer than three non-empty
// lines is a validation failure.
func contactLines(text string) (string, string, string, bool) {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 3 {
		return "", "", "", false
	}
	return lines[0], lines[1], strings.Join(lines[2:], "\n"), true
}

func (b *Bot) handleDeliveryFill(msg *tgbotapi.Message) {
	name, phone, address, ok := contactLines(msg.Text)
	if !ok {
		b.sendText(msg.Chat.ID, "Нужно прислать 3 строки: ФИО, телефон, адрес ПВЗ. Отправьте ещё раз.")
		return
	}

	if err := b.store.SaveDeliveryContact(msg.From.ID, models.DeliveryContact{
		FullName: name,
		Phone:    phone,
		Address:  address,
	}); err != nil {
		b.log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to save delivery contact")
		b.sendText(msg.Chat.ID, "Ошибка сервиса. Попробуйте ещё раз.")
		return
	}
	b.sessions.Clear(msg.From.ID)

	profile, err := b.store.GetProfile(msg.From.ID)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to reload profile")
		return
	}
	b.sendText(msg.Chat.ID, "Контактные данные сохранены ✅")
	b.sendTextKB(msg.Chat.ID, fmtDelivery(profile), profileKeyboard())
}

func (b *Bot) handlePayoutFill(msg *tgbotapi.Message) {
	name, card, bank, ok := contactLines(msg.Text)
	if !ok {
		b.sendText(msg.Chat.ID, "Нужно прислать 3 строки: ФИО, номер карты, банк. Отправьте ещё раз.")
		return
	}

	if err := b.store.SavePayoutContact(msg.From.ID, models.PayoutContact{
		FullName: name,
		Card:     card,
		Bank:     bank,
	}); err != nil {
		b.log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to save payout contact")
		b.sendText(msg.Chat.ID, "Ошибка сервиса. Попробуйте ещё раз.")
		return
	}
	b.sessions.Clear(msg.From.ID)

	profile, err := b.store.GetProfile(msg.From.ID)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to reload profile")
		return
	}
	b.sendText(msg.Chat.ID, "Реквизиты сохранены ✅")
	b.sendTextKB(msg.Chat.ID, fmtPayout(profile), profileKeyboard())
}
