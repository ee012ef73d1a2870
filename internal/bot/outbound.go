package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/someout/market-bot/internal/render"
)

// telegramTransport backs the transport interface with the Bot API client.
type telegramTransport struct {
	api *tgbotapi.BotAPI
}

func (t *telegramTransport) SendText(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (render.MessageRef, error) {
	m := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		m.ReplyMarkup = *kb
	}
	sent, err := t.api.Send(m)
	if err != nil {
		return render.MessageRef{}, err
	}
	return render.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (t *telegramTransport) SendPhoto(chatID int64, photoID, caption string, kb *tgbotapi.InlineKeyboardMarkup) (render.MessageRef, error) {
	p := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(photoID))
	p.Caption = caption
	if kb != nil {
		p.ReplyMarkup = *kb
	}
	sent, err := t.api.Send(p)
	if err != nil {
		return render.MessageRef{}, err
	}
	return render.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (t *telegramTransport) EditText(ref render.MessageRef, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	e := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	e.ReplyMarkup = kb
	_, err := t.api.Send(e)
	return err
}

func (t *telegramTransport) EditMedia(ref render.MessageRef, photoID, caption string, kb *tgbotapi.InlineKeyboardMarkup) error {
	media := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(photoID))
	media.Caption = caption
	cfg := tgbotapi.EditMessageMediaConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:      ref.ChatID,
			MessageID:   ref.MessageID,
			ReplyMarkup: kb,
		},
		Media: media,
	}
	_, err := t.api.Request(cfg)
	return err
}

func (t *telegramTransport) DeleteMessage(ref render.MessageRef) error {
	_, err := t.api.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID))
	return err
}

func (t *telegramTransport) SendMenu(chatID int64, text string, kb tgbotapi.ReplyKeyboardMarkup) error {
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyMarkup = kb
	_, err := t.api.Send(m)
	return err
}

func (t *telegramTransport) SendPhotoFile(chatID int64, path, caption string, kb *tgbotapi.InlineKeyboardMarkup) (render.MessageRef, error) {
	p := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	p.Caption = caption
	if kb != nil {
		p.ReplyMarkup = *kb
	}
	sent, err := t.api.Send(p)
	if err != nil {
		return render.MessageRef{}, err
	}
	return render.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (t *telegramTransport) SendPhotoURL(chatID int64, url, caption string, kb *tgbotapi.InlineKeyboardMarkup) (render.MessageRef, error) {
	p := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
	p.Caption = caption
	if kb != nil {
		p.ReplyMarkup = *kb
	}
	sent, err := t.api.Send(p)
	if err != nil {
		return render.MessageRef{}, err
	}
	return render.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (t *telegramTransport) AnswerCallback(id, text string) error {
	_, err := t.api.Request(tgbotapi.NewCallback(id, text))
	return err
}

func (t *telegramTransport) AnswerCallbackAlert(id, text string) error {
	_, err := t.api.Request(tgbotapi.NewCallbackWithAlert(id, text))
	return err
}

func (t *telegramTransport) Username() string {
	return t.api.Self.UserName
}
