package bot

import (
	"errors"
	"fmt"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/someout/market-bot/internal/db"
	"github.com/someout/market-bot/internal/session"
)

// handleStart handles /start, including the offer_<id> deep link that
// seeds the offer wizard with its target request.
func (b *Bot) handleStart(msg *tgbotapi.Message) {
	userID := msg.From.ID
	args := strings.TrimSpace(msg.CommandArguments())

	if strings.HasPrefix(args, "offer_") {
		b.startOfferFromDeepLink(msg, args)
		return
	}

	accepted, err := b.store.IsAccepted(userID)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Msg("failed to check acceptance")
	}
	if accepted {
		b.sendMenu(msg.Chat.ID, textWelcome, mainMenuKeyboard())
		return
	}

	b.sendTermsCard(msg.Chat.ID)
}

// sendTermsCard shows the offer-terms card: local image, then image URL,
// then plain text.
func (b *Bot) sendTermsCard(chatID int64) {
	kb := startKeyboard(b.cfg)

	if b.cfg.StartImagePath != "" {
		if _, statErr := os.Stat(b.cfg.StartImagePath); statErr == nil {
			_, err := b.tg.SendPhotoFile(chatID, b.cfg.StartImagePath, textTermsPrompt, kb)
			if err == nil {
				return
			}
			b.log.Warn().Err(err).Msg("local start image send failed")
		}
	}

	if b.cfg.StartImageURL != "" {
		_, err := b.tg.SendPhotoURL(chatID, b.cfg.StartImageURL, textTermsPrompt, kb)
		if err == nil {
			return
		}
		b.log.Warn().Err(err).Msg("start image url send failed")
	}

	b.sendTextKB(chatID, textTermsPrompt, kb)
}

func (b *Bot) handleAccept(cq *tgbotapi.CallbackQuery) {
	if err := b.store.SetAccepted(cq.From.ID); err != nil {
		b.log.Error().Err(err).Int64("user_id", cq.From.ID).Msg("failed to set accepted")
	}
	b.sendMenu(cq.Message.Chat.ID, textWelcome, mainMenuKeyboard())
	b.answer(cq, "Доступ открыт.")
}

// startOfferFromDeepLink validates the payload and, when the target request
// exists, puts the seller on the price step. No acceptance gate here: the
// seller arrived via a published link.
func (b *Bot) startOfferFromDeepLink(msg *tgbotapi.Message, payload string) {
	reqID, err := parseInt64(strings.TrimPrefix(payload, "offer_"))
	if err != nil {
		b.sendText(msg.Chat.ID, "Некорректный стартовый параметр.")
		return
	}

	req, err := b.store.GetRequest(reqID)
	if errors.Is(err, db.ErrNotFound) {
		b.sendText(msg.Chat.ID, fmt.Sprintf("Заявка №%d не найдена.", reqID))
		return
	}
	if err != nil {
		b.log.Error().Err(err).Int64("request_id", reqID).Msg("failed to load request")
		b.sendText(msg.Chat.ID, "Ошибка сервиса. Попробуйте ещё раз.")
		return
	}

	b.sessions.Clear(msg.From.ID)
	b.sessions.Update(msg.From.ID, func(st *session.State) {
		st.Step = session.StepOfferPrice
		st.OfferRequestID = req.ID
	})

	b.sendText(msg.Chat.ID, fmt.Sprintf(
		"Отлично! Введите цену, за которую вы готовы привезти заказ №%d "+
			"(учитывайте товар, логистику до вашего города и до Москвы, а также наценку).", req.ID))
}
