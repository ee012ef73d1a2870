package bot

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/someout/market-bot/internal/render"
	"github.com/someout/market-bot/internal/session"
)

// showActiveRequests lists the user's requests newest-first, snapshots the
// id order for slider navigation and renders the first slide.
func (b *Bot) showActiveRequests(chatID, userID int64) {
	requests, err := b.store.ListUserRequests(userID)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Msg("failed to list requests")
		b.sendText(chatID, "Ошибка сервиса. Попробуйте ещё раз.")
		return
	}
	if len(requests) == 0 {
		b.sendMenu(chatID, "Пока активных запросов нет.", requestsMenuKeyboard())
		return
	}

	ids := make([]int64, len(requests))
	for i, r := range requests {
		ids[i] = r.ID
	}
	b.pages.Snapshot(userID, ids)

	b.sendCard(chatID, slideCard(&requests[0], 0, len(requests)))
}

// handleSliderGo navigates to an index within the snapshot. Out-of-range
// indexes are a silent no-op; the detail is re-fetched so intervening edits
// show up.
func (b *Bot) handleSliderGo(cq *tgbotapi.CallbackQuery) {
	userID := cq.From.ID

	ids, ok := b.pages.Get(userID)
	if !ok {
		b.answer(cq, "Нет списка заявок.")
		return
	}

	idx, err := strconv.Atoi(strings.TrimPrefix(cq.Data, "rl:go:"))
	if err != nil {
		b.answer(cq, "")
		return
	}
	if idx < 0 || idx >= len(ids) {
		b.answer(cq, "")
		return
	}

	req, err := b.store.GetRequest(ids[idx])
	if err != nil {
		b.answer(cq, "Заявка не найдена.")
		return
	}

	ref := render.MessageRef{ChatID: cq.Message.Chat.ID, MessageID: cq.Message.MessageID}
	if _, err := render.Resync(b.log, b.tg, ref, slideCard(req, idx, len(ids))); err != nil {
		b.log.Warn().Err(err).Int64("request_id", req.ID).Msg("slide resync failed")
	}
	b.answer(cq, "")
}

// handleSliderEdit opens the field-selection menu for an existing request.
func (b *Bot) handleSliderEdit(cq *tgbotapi.CallbackQuery) {
	reqID, ok := callbackID(cq.Data)
	if !ok {
		b.answerAlert(cq, "Некорректные данные.")
		return
	}

	b.sessions.Update(cq.From.ID, func(st *session.State) {
		st.EditRequestID = reqID
	})
	b.sendTextKB(cq.Message.Chat.ID, "Что конкретно вы хотите изменить?", editFieldKeyboard())
	b.answer(cq, "")
}

// handleEditField re-enters the matching creation step in edit mode.
func (b *Bot) handleEditField(cq *tgbotapi.CallbackQuery) {
	var (
		step   session.Step
		prompt string
	)
	switch cq.Data {
	case cbEditPrivateTitle:
		step, prompt = session.StepRequestPrivateTitle, "Введите новое личное название."
	case cbEditItemTitle:
		step, prompt = session.StepRequestItemTitle, "Введите новое полное название вещи."
	case cbEditDescription:
		step, prompt = session.StepRequestDescription, "Введите новое описание."
	case cbEditPhoto:
		step, prompt = session.StepRequestPhoto, "Прикрепите новое фото или нажмите «Пропустить»."
	default:
		b.answer(cq, "")
		return
	}

	b.sessions.SetStep(cq.From.ID, step)
	if step == session.StepRequestPhoto {
		b.sendTextKB(cq.Message.Chat.ID, prompt, photoOrSkipKeyboard(cbRequestSkipPhoto))
	} else {
		b.sendText(cq.Message.Chat.ID, prompt)
	}
	b.answer(cq, "")
}

// handleEditBack returns from the field menu to the request card.
func (b *Bot) handleEditBack(cq *tgbotapi.CallbackQuery) {
	st, _ := b.sessions.Get(cq.From.ID)
	if st.EditRequestID == 0 {
		b.answerAlert(cq, "Нет контекста.")
		return
	}

	req, err := b.store.GetRequest(st.EditRequestID)
	if err != nil {
		b.answerAlert(cq, "Заявка не найдена.")
		return
	}

	idx, total := 0, 1
	if ids, ok := b.pages.Get(cq.From.ID); ok {
		if i, found := b.pages.IndexOf(cq.From.ID, req.ID); found {
			idx, total = i, len(ids)
		}
	}

	ref := render.MessageRef{ChatID: cq.Message.Chat.ID, MessageID: cq.Message.MessageID}
	if _, err := render.Resync(b.log, b.tg, ref, slideCard(req, idx, total)); err != nil {
		b.log.Warn().Err(err).Int64("request_id", req.ID).Msg("slide resync failed")
	}
	b.answer(cq, "Возврат к заявке.")
}
