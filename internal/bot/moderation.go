package bot

import (
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/someout/market-bot/internal/db"
	"github.com/someout/market-bot/internal/models"
	"github.com/someout/market-bot/internal/render"
	"github.com/someout/market-bot/internal/session"
)

func (b *Bot) handleModerationCallback(cq *tgbotapi.CallbackQuery) {
	switch {
	case strings.HasPrefix(cq.Data, cbModApprovePrefix):
		b.handleApprove(cq)
	case strings.HasPrefix(cq.Data, cbModRejectPrefix):
		b.handleRejectStart(cq)
	default:
		b.answer(cq, "")
	}
}

// handleApprove runs the pending -> approved transition. The store guard
// makes the decision exactly-once: of two near-simultaneous clicks, one
// wins and the other gets "already moderated". Once the status change is
// committed, notification failures no longer roll anything back; a failed
// channel publish is surfaced to the moderator because it usually means
// missing permissions.
func (b *Bot) handleApprove(cq *tgbotapi.CallbackQuery) {
	reqID, ok := callbackID(cq.Data)
	if !ok {
		b.answerAlert(cq, "Некорректные данные.")
		return
	}

	err := b.store.ApproveRequest(reqID)
	switch {
	case errors.Is(err, db.ErrAlreadyModerated):
		b.answer(cq, "Заявка уже промодерирована.")
		return
	case errors.Is(err, db.ErrNotFound):
		b.answerAlert(cq, "Заявка не найдена.")
		return
	case err != nil:
		b.log.Error().Err(err).Int64("request_id", reqID).Msg("approve failed")
		b.answerAlert(cq, "Ошибка сервиса. Попробуйте ещё раз.")
		return
	}

	req, err := b.store.GetRequest(reqID)
	if err != nil {
		b.log.Error().Err(err).Int64("request_id", reqID).Msg("failed to reload approved request")
		b.answerAlert(cq, "Ошибка сервиса. Попробуйте ещё раз.")
		return
	}

	b.notifier.NotifyUser(req.UserID, fmt.Sprintf("✅ Заявка №%d прошла модерацию и уже выставлена в канал.", req.ID))

	if err := b.notifier.Publish(render.Card{
		Text:     publicPostText(req),
		PhotoID:  req.PhotoFileID,
		Keyboard: publicOfferKeyboard(b.tg.Username(), req.ID),
	}); err != nil {
		b.answerAlert(cq, "Нет прав публиковать в канал.")
		return
	}

	b.resyncModerationCard(render.MessageRef{ChatID: cq.Message.Chat.ID, MessageID: cq.Message.MessageID}, req)
	b.answer(cq, "Одобрено и опубликовано ✅")
}

// handleRejectStart records the reject context and asks the moderator for a
// reason. The decision itself happens when the reason arrives.
func (b *Bot) handleRejectStart(cq *tgbotapi.CallbackQuery) {
	reqID, ok := callbackID(cq.Data)
	if !ok {
		b.answerAlert(cq, "Некорректные данные.")
		return
	}

	req, err := b.store.GetRequest(reqID)
	if err != nil || req.Status != models.StatusPending {
		b.answerAlert(cq, "Заявка не найдена/уже промодерирована.")
		return
	}

	b.sessions.Update(cq.From.ID, func(st *session.State) {
		st.Step = session.StepRejectReason
		st.RejectRequestID = reqID
		st.RejectChatID = cq.Message.Chat.ID
		st.RejectMessageID = cq.Message.MessageID
	})
	b.sendText(cq.Message.Chat.ID, "Укажите причину отклонения (одним сообщением).")
	b.answer(cq, "Жду причину…")
}

// handleModerationMessage collects the rejection reason from the moderator
// who clicked reject.
func (b *Bot) handleModerationMessage(msg *tgbotapi.Message) {
	st, ok := b.sessions.Get(msg.From.ID)
	if !ok || st.Step != session.StepRejectReason {
		return
	}

	if st.RejectRequestID == 0 {
		b.sessions.Clear(msg.From.ID)
		b.sendText(msg.Chat.ID, "Контекст отклонения потерян. Нажмите «Отклонить» ещё раз.")
		return
	}

	reason := cleanup(msg.Text)
	if reason == "" {
		b.sendText(msg.Chat.ID, "Причина не может быть пустой. Напишите текст причины.")
		return
	}

	err := b.store.RejectRequest(st.RejectRequestID, reason)
	switch {
	case errors.Is(err, db.ErrAlreadyModerated):
		b.sessions.Clear(msg.From.ID)
		b.sendText(msg.Chat.ID, "Заявка уже промодерирована.")
		return
	case errors.Is(err, db.ErrNotFound):
		b.sessions.Clear(msg.From.ID)
		b.sendText(msg.Chat.ID, "Заявка не найдена.")
		return
	case err != nil:
		b.log.Error().Err(err).Int64("request_id", st.RejectRequestID).Msg("reject failed")
		b.sendText(msg.Chat.ID, "Ошибка сервиса. Попробуйте ещё раз.")
		return
	}

	req, err := b.store.GetRequest(st.RejectRequestID)
	if err != nil {
		b.log.Error().Err(err).Int64("request_id", st.RejectRequestID).Msg("failed to reload rejected request")
		b.sessions.Clear(msg.From.ID)
		return
	}

	b.notifier.NotifyUser(req.UserID, fmt.Sprintf(
		"❌ Ваша заявка №%d не прошла модерацию. Причина: %s\n"+
			"Пожалуйста внесите изменения и отправьте на повторную проверку.", req.ID, reason))

	b.resyncModerationCard(render.MessageRef{ChatID: st.RejectChatID, MessageID: st.RejectMessageID}, req)

	b.sessions.Clear(msg.From.ID)
	b.sendText(msg.Chat.ID, "Отклонено ❌")
}

// resyncModerationCard redraws the moderation card without its action
// controls after a decision.
func (b *Bot) resyncModerationCard(ref render.MessageRef, req *models.Request) {
	card := render.Card{
		Text:    requestPreviewText(req),
		PhotoID: req.PhotoFileID,
	}
	if _, err := render.Resync(b.log, b.tg, ref, card); err != nil {
		b.log.Warn().Err(err).Int64("request_id", req.ID).Msg("moderation card resync failed")
	}
}
