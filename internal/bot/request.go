package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/someout/market-bot/internal/models"
	"github.com/someout/market-bot/internal/render"
	"github.com/someout/market-bot/internal/session"
)

func (b *Bot) startRequestWizard(chatID, userID int64) {
	b.sessions.Clear(userID)
	b.sessions.SetStep(userID, session.StepRequestPrivateTitle)
	b.sendText(chatID, "Укажите название запроса. Оно будет видно только вам.")
}

// handleRequestTextStep serves the three text steps of the creation wizard.
// When the session carries an edit target, a validated value is written
// straight to the stored request instead of the draft and the wizard ends.
func (b *Bot) handleRequestTextStep(msg *tgbotapi.Message, st session.State) {
	value := cleanup(msg.Text)

	var (
		field      models.RequestField
		emptyText  string
		savedText  string
		nextStep   session.Step
		nextPrompt string
	)

	switch st.Step {
	case session.StepRequestPrivateTitle:
		field = models.FieldPrivateTitle
		emptyText = "Пустое название. Введите ещё раз."
		savedText = "Личное название обновлено ✅"
		nextStep = session.StepRequestItemTitle
		nextPrompt = "Отлично, теперь пришлите полное название вещи."
	case session.StepRequestItemTitle:
		field = models.FieldItemTitle
		emptyText = "Пустое название. Введите ещё раз."
		savedText = "Название обновлено ✅"
		nextStep = session.StepRequestDescription
		nextPrompt = "Отправьте пожалуйста описание с интересующим цветом, состоянием, размером и остальными деталями."
	case session.StepRequestDescription:
		field = models.FieldDescription
		emptyText = "Пустое описание. Введите ещё раз."
		savedText = "Описание обновлено ✅"
		nextStep = session.StepRequestPhoto
		nextPrompt = "Замечательно, если есть фото вещи, можете прикрепить его или же пропустить этот этап."
	default:
		return
	}

	if value == "" {
		b.sendText(msg.Chat.ID, emptyText)
		return
	}

	if st.EditRequestID != 0 {
		b.applyFieldEdit(msg.Chat.ID, msg.From.ID, st.EditRequestID, field, value, savedText)
		return
	}

	b.sessions.UpdateDraft(msg.From.ID, func(d *session.Draft) {
		switch field {
		case models.FieldPrivateTitle:
			d.PrivateTitle = value
		case models.FieldItemTitle:
			d.ItemTitle = value
		case models.FieldDescription:
			d.Description = value
		}
	})
	b.sessions.SetStep(msg.From.ID, nextStep)

	if nextStep == session.StepRequestPhoto {
		b.sendTextKB(msg.Chat.ID, nextPrompt, photoOrSkipKeyboard(cbRequestSkipPhoto))
		return
	}
	b.sendText(msg.Chat.ID, nextPrompt)
}

func (b *Bot) handleRequestPhotoStep(msg *tgbotapi.Message, st session.State) {
	photo, ok := largestPhoto(msg.Photo)
	if !ok {
		b.sendTextKB(msg.Chat.ID, "Прикрепите фото или нажмите «Пропустить».", photoOrSkipKeyboard(cbRequestSkipPhoto))
		return
	}

	if st.EditRequestID != 0 {
		b.applyFieldEdit(msg.Chat.ID, msg.From.ID, st.EditRequestID, models.FieldPhoto, photo.FileID, "Фото обновлено ✅")
		return
	}

	b.sessions.UpdateDraft(msg.From.ID, func(d *session.Draft) {
		d.PhotoFileID = photo.FileID
	})
	b.showDraftPreviewFresh(msg.Chat.ID, msg.From.ID)
}

func (b *Bot) handleRequestSkipPhoto(cq *tgbotapi.CallbackQuery) {
	st, _ := b.sessions.Get(cq.From.ID)

	// In edit mode, skipping means detaching the stored photo.
	if st.EditRequestID != 0 && st.Step == session.StepRequestPhoto {
		b.applyFieldEdit(cq.Message.Chat.ID, cq.From.ID, st.EditRequestID, models.FieldPhoto, "", "Фото обновлено ✅")
		b.answer(cq, "Фото пропущено.")
		return
	}

	b.sessions.UpdateDraft(cq.From.ID, func(d *session.Draft) {
		d.PhotoFileID = ""
	})
	b.showDraftPreviewResync(cq)
	b.answer(cq, "Фото пропущено.")
}

func (b *Bot) draftCard(userID int64) render.Card {
	st, _ := b.sessions.Get(userID)
	return render.Card{
		Text:     draftPreviewText(st.Draft),
		PhotoID:  st.Draft.PhotoFileID,
		Keyboard: confirmOrChangeKeyboard(),
	}
}

func (b *Bot) showDraftPreviewFresh(chatID, userID int64) {
	b.sendCard(chatID, b.draftCard(userID))
}

func (b *Bot) showDraftPreviewResync(cq *tgbotapi.CallbackQuery) {
	ref := render.MessageRef{ChatID: cq.Message.Chat.ID, MessageID: cq.Message.MessageID}
	if _, err := render.Resync(b.log, b.tg, ref, b.draftCard(cq.From.ID)); err != nil {
		b.log.Warn().Err(err).Msg("draft preview resync failed")
	}
}

// handleRequestConfirm commits the draft as a pending request and fans the
// moderation card out. Field presence is re-checked even though each step
// already validated it.
func (b *Bot) handleRequestConfirm(cq *tgbotapi.CallbackQuery) {
	st, _ := b.sessions.Get(cq.From.ID)
	d := st.Draft

	if cleanup(d.PrivateTitle) == "" || cleanup(d.ItemTitle) == "" || cleanup(d.Description) == "" {
		b.answerAlert(cq, "Не все поля заполнены.")
		return
	}

	req, err := b.store.InsertRequest(cq.From.ID, cleanup(d.PrivateTitle), cleanup(d.ItemTitle), cleanup(d.Description), d.PhotoFileID)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", cq.From.ID).Msg("failed to insert request")
		b.answerAlert(cq, "Ошибка сервиса. Попробуйте ещё раз.")
		return
	}

	if _, err := b.notifier.ToModeration(render.Card{
		Text:     moderationCardText(req),
		PhotoID:  req.PhotoFileID,
		Keyboard: moderationKeyboard(req.ID),
	}); err != nil {
		b.log.Error().Err(err).Int64("request_id", req.ID).Msg("moderation card delivery failed")
	}

	b.sessions.Clear(cq.From.ID)
	b.sendText(cq.Message.Chat.ID, "Отлично! Ваша заявка отправлена на модерацию, вам придет уведомление когда она будет опубликована. ♻️")
	b.answer(cq, "Отправлено на модерацию ✅")
}

// applyFieldEdit writes one field of an existing request, ends the wizard
// and re-renders the request card. Status is not checked here: owners may
// edit already-moderated requests.
func (b *Bot) applyFieldEdit(chatID, userID, reqID int64, field models.RequestField, value, savedText string) {
	if err := b.store.UpdateRequestField(reqID, field, value); err != nil {
		b.log.Error().Err(err).Int64("request_id", reqID).Msg("failed to update request field")
		b.sendText(chatID, "Не удалось сохранить изменение. Попробуйте ещё раз.")
		return
	}

	b.sessions.Clear(userID)
	b.sendText(chatID, savedText)
	b.showRequestSlideByID(chatID, userID, reqID)
}

// showRequestSlideByID renders a fresh slide card for one request, using
// the pager snapshot for navigation context when one exists.
func (b *Bot) showRequestSlideByID(chatID, userID, reqID int64) {
	req, err := b.store.GetRequest(reqID)
	if err != nil {
		b.log.Warn().Err(err).Int64("request_id", reqID).Msg("failed to load request for slide")
		b.sendText(chatID, "Заявка не найдена.")
		return
	}

	idx, total := 0, 1
	if ids, ok := b.pages.Get(userID); ok {
		if i, found := b.pages.IndexOf(userID, reqID); found {
			idx, total = i, len(ids)
		}
	}

	b.sendCard(chatID, slideCard(req, idx, total))
}

func slideCard(req *models.Request, idx, total int) render.Card {
	return render.Card{
		Text:     requestPreviewText(req),
		PhotoID:  req.PhotoFileID,
		Keyboard: sliderKeyboard(idx, total, req.ID),
	}
}
