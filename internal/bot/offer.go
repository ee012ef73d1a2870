package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/someout/market-bot/internal/render"
	"github.com/someout/market-bot/internal/session"
)

// normalizePrice maps locale-formatted amounts like "12 500,50" onto
// parseable form: spaces (incl. non-breaking) stripped, comma separator
// mapped to a dot.
func normalizePrice(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, ",", ".")
}

func (b *Bot) handleOfferPrice(msg *tgbotapi.Message) {
	price, err := decimal.NewFromString(normalizePrice(msg.Text))
	if err != nil || price.Sign() <= 0 {
		b.sendText(msg.Chat.ID, "Введите число — цену (например, 12500.00).")
		return
	}

	b.sessions.Update(msg.From.ID, func(st *session.State) {
		st.Draft.OfferPrice = &price
		st.Step = session.StepOfferDays
	})
	b.sendText(msg.Chat.ID, "Введите количество дней доставки до прибытия в пункт выдачи Модератора Someout.")
}

func (b *Bot) handleOfferDays(msg *tgbotapi.Message) {
	days, err := strconv.Atoi(cleanup(msg.Text))
	if err != nil || days < 1 || days > 365 {
		b.sendText(msg.Chat.ID, "Введите целое число дней (1..365).")
		return
	}

	b.sessions.Update(msg.From.ID, func(st *session.State) {
		st.Draft.OfferDays = &days
		st.Step = session.StepOfferCondition
	})
	b.sendTextKB(msg.Chat.ID, textOfferCondition, conditionKeyboard())
}

func (b *Bot) handleOfferCondition(cq *tgbotapi.CallbackQuery) {
	cond, err := strconv.Atoi(strings.TrimPrefix(cq.Data, "offer:cond:"))
	if err != nil || cond < 1 || cond > 10 {
		b.answerAlert(cq, "Некорректное значение.")
		return
	}

	b.sessions.Update(cq.From.ID, func(st *session.State) {
		st.Draft.OfferCondition = &cond
		st.Step = session.StepOfferPhoto
	})
	b.sendTextKB(cq.Message.Chat.ID,
		"Если у вас есть фото товара — прикрепите его одним сообщением.\nИли нажмите «Пропустить».",
		photoOrSkipKeyboard(cbOfferSkipPhoto))
	b.answer(cq, "")
}

func (b *Bot) handleOfferPhotoStep(msg *tgbotapi.Message) {
	photo, ok := largestPhoto(msg.Photo)
	if !ok {
		b.sendTextKB(msg.Chat.ID, "Прикрепите фото или нажмите «Пропустить».", photoOrSkipKeyboard(cbOfferSkipPhoto))
		return
	}
	b.finalizeOffer(msg.Chat.ID, msg.From.ID, photo.FileID)
}

func (b *Bot) handleOfferSkipPhoto(cq *tgbotapi.CallbackQuery) {
	b.finalizeOffer(cq.Message.Chat.ID, cq.From.ID, "")
	b.answer(cq, "Отправлено без фото.")
}

// finalizeOffer inserts the offer and notifies both parties. A missing
// piece of context means the session was lost (restart, stray click); the
// flow aborts with zero inserts.
func (b *Bot) finalizeOffer(chatID, sellerID int64, photoFileID string) {
	st, _ := b.sessions.Get(sellerID)
	d := st.Draft

	if st.OfferRequestID == 0 || d.OfferPrice == nil || d.OfferDays == nil || d.OfferCondition == nil {
		b.sessions.Clear(sellerID)
		b.sendText(chatID, textOfferContextLost)
		return
	}

	offer, err := b.store.InsertOffer(st.OfferRequestID, sellerID, *d.OfferPrice, *d.OfferDays, *d.OfferCondition, photoFileID)
	if err != nil {
		b.log.Error().Err(err).Int64("request_id", st.OfferRequestID).Msg("failed to insert offer")
		b.sendText(chatID, "Ошибка сервиса. Попробуйте ещё раз.")
		return
	}

	photoNote := "нет"
	if photoFileID != "" {
		photoNote = "есть"
	}
	summary := fmt.Sprintf(
		"✅ Отклик отправлен (№%d)\n• Заявка №%d\n• Цена: %s\n• Срок: %d дн.\n• Состояние: %d/10\n• Фото: %s",
		offer.ID, offer.RequestID, offer.Price.String(), offer.Days, offer.Condition, photoNote,
	)
	b.sendCard(chatID, render.Card{Text: summary, PhotoID: photoFileID})

	// Best-effort heads-up to the request owner.
	if req, err := b.store.GetRequest(offer.RequestID); err == nil {
		ownerText := fmt.Sprintf(
			"🙋 На вашу заявку №%d пришёл отклик!\nЦена: %s\nСроки: %d дн.\nСостояние: %d/10",
			offer.RequestID, offer.Price.String(), offer.Days, offer.Condition,
		)
		b.notifier.NotifyUserCard(req.UserID, render.Card{Text: ownerText, PhotoID: photoFileID})
	} else {
		b.log.Warn().Err(err).Int64("request_id", offer.RequestID).Msg("failed to load request for owner notification")
	}

	b.sessions.Clear(sellerID)
}
