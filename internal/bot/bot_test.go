package bot

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/someout/market-bot/internal/db"
	"github.com/someout/market-bot/internal/models"
	"github.com/someout/market-bot/internal/render"
)

const (
	modChat    int64 = -100500
	pubChannel int64 = -200600
)

type outMsg struct {
	chatID  int64
	text    string
	photoID string
	kb      *tgbotapi.InlineKeyboardMarkup
}

// fakeTG implements transport in memory. failChat makes every send into
// that chat fail, which is how channel-permission problems look.
type fakeTG struct {
	texts   []outMsg
	photos  []outMsg
	menus   []outMsg
	edits   []outMsg
	answers []string
	alerts  []string

	failChat map[int64]error
	nextID   int
}

func newFakeTG() *fakeTG {
	return &fakeTG{failChat: map[int64]error{}, nextID: 1000}
}

func (f *fakeTG) SendText(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (render.MessageRef, error) {
	if err := f.failChat[chatID]; err != nil {
		return render.MessageRef{}, err
	}
	f.texts = append(f.texts, outMsg{chatID: chatID, text: text, kb: kb})
	f.nextID++
	return render.MessageRef{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeTG) SendPhoto(chatID int64, photoID, caption string, kb *tgbotapi.InlineKeyboardMarkup) (render.MessageRef, error) {
	if err := f.failChat[chatID]; err != nil {
		return render.MessageRef{}, err
	}
	f.photos = append(f.photos, outMsg{chatID: chatID, text: caption, photoID: photoID, kb: kb})
	f.nextID++
	return render.MessageRef{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeTG) EditText(ref render.MessageRef, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	f.edits = append(f.edits, outMsg{chatID: ref.ChatID, text: text, kb: kb})
	return nil
}

func (f *fakeTG) EditMedia(ref render.MessageRef, photoID, caption string, kb *tgbotapi.InlineKeyboardMarkup) error {
	f.edits = append(f.edits, outMsg{chatID: ref.ChatID, text: caption, photoID: photoID, kb: kb})
	return nil
}

func (f *fakeTG) DeleteMessage(ref render.MessageRef) error { return nil }

func (f *fakeTG) SendMenu(chatID int64, text string, kb tgbotapi.ReplyKeyboardMarkup) error {
	f.menus = append(f.menus, outMsg{chatID: chatID, text: text})
	return nil
}

func (f *fakeTG) SendPhotoFile(chatID int64, path, caption string, kb *tgbotapi.InlineKeyboardMarkup) (render.MessageRef, error) {
	return f.SendPhoto(chatID, "file:"+path, caption, kb)
}

func (f *fakeTG) SendPhotoURL(chatID int64, url, caption string, kb *tgbotapi.InlineKeyboardMarkup) (render.MessageRef, error) {
	return f.SendPhoto(chatID, "url:"+url, caption, kb)
}

func (f *fakeTG) AnswerCallback(id, text string) error {
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeTG) AnswerCallbackAlert(id, text string) error {
	f.alerts = append(f.alerts, text)
	return nil
}

func (f *fakeTG) Username() string { return "market_test_bot" }

func (f *fakeTG) textsTo(chatID int64) []string {
	var out []string
	for _, m := range f.texts {
		if m.chatID == chatID {
			out = append(out, m.text)
		}
	}
	return out
}

func (f *fakeTG) lastTextTo(chatID int64) string {
	ts := f.textsTo(chatID)
	if len(ts) == 0 {
		return ""
	}
	return ts[len(ts)-1]
}

func (f *fakeTG) sendsTo(chatID int64) int {
	n := 0
	for _, m := range f.texts {
		if m.chatID == chatID {
			n++
		}
	}
	for _, m := range f.photos {
		if m.chatID == chatID {
			n++
		}
	}
	return n
}

func newTestBot(t *testing.T) (*Bot, *fakeTG) {
	t.Helper()

	store, err := db.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tg := newFakeTG()
	cfg := Config{
		Token:            "test-token",
		ModerationChatID: modChat,
		PublishChannelID: pubChannel,
		TermsURL:         "https://t.me/terms",
		ChannelURL:       "https://t.me/channel",
		HelpSupportUser:  "support",
		HelpNewsUser:     "news",
		HelpOffersUser:   "offers",
		HelpAdsUser:      "ads",
	}
	return newBot(cfg, tg, store, zerolog.Nop()), tg
}

func acceptUser(t *testing.T, b *Bot, userID int64) {
	t.Helper()
	require.NoError(t, b.store.EnsureProfile(userID))
	require.NoError(t, b.store.SetAccepted(userID))
}

func userMsg(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
}

func userCmd(userID int64, text string) *tgbotapi.Message {
	m := userMsg(userID, text)
	cmdLen := len(text)
	if i := strings.Index(text, " "); i >= 0 {
		cmdLen = i
	}
	m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}}
	return m
}

func userPhoto(userID int64, fileID string) *tgbotapi.Message {
	m := userMsg(userID, "")
	m.Photo = []tgbotapi.PhotoSize{
		{FileID: "thumb", FileSize: 120},
		{FileID: fileID, FileSize: 90000},
	}
	return m
}

func callback(userID, chatID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cq-test",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}
}

func (b *Bot) msg(m *tgbotapi.Message)      { b.handleUpdate(tgbotapi.Update{Message: m}) }
func (b *Bot) cb(c *tgbotapi.CallbackQuery) { b.handleUpdate(tgbotapi.Update{CallbackQuery: c}) }

func TestTermsGateBlocksUntilAccepted(t *testing.T) {
	b, tg := newTestBot(t)

	b.msg(userMsg(1, "привет"))
	require.NotEmpty(t, tg.texts)
	last := tg.texts[len(tg.texts)-1]
	assert.Equal(t, textTermsPrompt, last.text)
	assert.NotNil(t, last.kb, "terms prompt carries the accept controls")
	assert.Empty(t, tg.menus, "no main menu before acceptance")

	b.cb(callback(1, 1, cbAccept))
	accepted, err := b.store.IsAccepted(1)
	require.NoError(t, err)
	assert.True(t, accepted)
	require.NotEmpty(t, tg.menus)
	assert.Equal(t, textWelcome, tg.menus[len(tg.menus)-1].text)

	// Subsequent plain text now passes through.
	b.msg(userMsg(1, "привет"))
	assert.Equal(t, "Команда принята.", tg.menus[len(tg.menus)-1].text)
}

func TestStartShowsMenuForAcceptedUser(t *testing.T) {
	b, tg := newTestBot(t)
	acceptUser(t, b, 1)

	b.msg(userCmd(1, "/start"))

	require.NotEmpty(t, tg.menus)
	assert.Equal(t, textWelcome, tg.menus[len(tg.menus)-1].text)
}

func TestDeepLinkUnknownRequest(t *testing.T) {
	b, tg := newTestBot(t)

	b.msg(userCmd(2, "/start offer_42"))

	assert.Equal(t, "Заявка №42 не найдена.", tg.lastTextTo(2))
	_, ok := b.sessions.Get(2)
	assert.False(t, ok, "no wizard is opened for a missing request")
}

func TestDeepLinkMalformedPayload(t *testing.T) {
	b, tg := newTestBot(t)

	b.msg(userCmd(2, "/start offer_abc"))

	assert.Equal(t, "Некорректный стартовый параметр.", tg.lastTextTo(2))
	_, ok := b.sessions.Get(2)
	assert.False(t, ok)
}

func TestNormalizePrice(t *testing.T) {
	cases := map[string]string{
		"12500.00":    "12500.00",
		" 12 500,50 ": "12500.50",
		"12 500":      "12500",
		"1,5":         "1.5",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePrice(in), "input %q", in)
	}
}

func TestRequestWizardEndToEnd(t *testing.T) {
	b, tg := newTestBot(t)
	acceptUser(t, b, 1)

	b.msg(userMsg(1, btnNewRequest))
	assert.Equal(t, "Укажите название запроса. Оно будет видно только вам.", tg.lastTextTo(1))

	// Empty input re-prompts without advancing.
	b.msg(userMsg(1, "   "))
	assert.Equal(t, "Пустое название. Введите ещё раз.", tg.lastTextTo(1))

	b.msg(userMsg(1, "для мамы"))
	b.msg(userMsg(1, "Кроссовки Nike Air"))
	b.msg(userMsg(1, "Размер 42, белые"))
	b.msg(userPhoto(1, "photo-big"))

	// Draft preview goes out as a photo card with confirm controls.
	require.NotEmpty(t, tg.photos)
	preview := tg.photos[len(tg.photos)-1]
	assert.Equal(t, int64(1), preview.chatID)
	assert.Equal(t, "photo-big", preview.photoID)
	require.NotNil(t, preview.kb)

	b.cb(callback(1, 1, cbRequestConfirm))

	reqs, err := b.store.ListUserRequests(1)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, models.StatusPending, reqs[0].Status)
	assert.Equal(t, "для мамы", reqs[0].PrivateTitle)
	assert.Equal(t, "Кроссовки Nike Air", reqs[0].ItemTitle)
	assert.Equal(t, "photo-big", reqs[0].PhotoFileID)

	// Moderation chat received the card with decision controls.
	require.Equal(t, 1, tg.sendsTo(modChat))
	modCard := tg.photos[len(tg.photos)-1]
	assert.Equal(t, modChat, modCard.chatID)
	require.NotNil(t, modCard.kb)

	_, ok := b.sessions.Get(1)
	assert.False(t, ok, "wizard ends on confirm")
}

func TestRequestWizardSkipPhoto(t *testing.T) {
	b, tg := newTestBot(t)
	acceptUser(t, b, 1)

	b.msg(userMsg(1, btnNewRequest))
	b.msg(userMsg(1, "a"))
	b.msg(userMsg(1, "b"))
	b.msg(userMsg(1, "c"))

	b.cb(callback(1, 1, cbRequestSkipPhoto))
	require.NotEmpty(t, tg.edits, "the prompt message is redrawn into the preview")
	assert.Empty(t, tg.edits[len(tg.edits)-1].photoID)

	b.cb(callback(1, 1, cbRequestConfirm))

	reqs, err := b.store.ListUserRequests(1)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].PhotoFileID)
}

func TestRequestConfirmWithEmptyDraft(t *testing.T) {
	b, tg := newTestBot(t)
	acceptUser(t, b, 1)

	b.cb(callback(1, 1, cbRequestConfirm))

	require.NotEmpty(t, tg.alerts)
	assert.Equal(t, "Не все поля заполнены.", tg.alerts[len(tg.alerts)-1])

	n, err := b.store.CountUserRequests(1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOfferFlow(t *testing.T) {
	b, tg := newTestBot(t)
	acceptUser(t, b, 1)

	req, err := b.store.InsertRequest(1, "a", "b", "c", "")
	require.NoError(t, err)
	require.NoError(t, b.store.ApproveRequest(req.ID))

	seller := int64(2)
	b.msg(userCmd(seller, fmt.Sprintf("/start offer_%d", req.ID)))
	assert.Contains(t, tg.lastTextTo(seller), fmt.Sprintf("№%d", req.ID))

	b.msg(userMsg(seller, "abc"))
	assert.Equal(t, "Введите число — цену (например, 12500.00).", tg.lastTextTo(seller))

	b.msg(userMsg(seller, "12 500,50"))
	b.msg(userMsg(seller, "0"))
	assert.Equal(t, "Введите целое число дней (1..365).", tg.lastTextTo(seller))

	b.msg(userMsg(seller, "14"))
	b.cb(callback(seller, seller, "offer:cond:9"))
	b.cb(callback(seller, seller, cbOfferSkipPhoto))

	offer, err := b.store.GetOffer(1)
	require.NoError(t, err)
	assert.Equal(t, req.ID, offer.RequestID)
	assert.Equal(t, seller, offer.SellerID)
	assert.True(t, offer.Price.Equal(decimal.RequireFromString("12500.50")))
	assert.Equal(t, 14, offer.Days)
	assert.Equal(t, 9, offer.Condition)

	assert.Contains(t, tg.lastTextTo(seller), "Отклик отправлен")
	assert.Contains(t, tg.lastTextTo(1), "пришёл отклик", "request owner is notified")

	_, ok := b.sessions.Get(seller)
	assert.False(t, ok)
}

func TestOfferContextLost(t *testing.T) {
	b, tg := newTestBot(t)

	b.cb(callback(2, 2, cbOfferSkipPhoto))

	assert.Contains(t, tg.textsTo(2), textOfferContextLost)
	n, err := b.store.CountSellerOffers(2)
	require.NoError(t, err)
	assert.Zero(t, n, "a lost session inserts nothing")
}

func TestApprovePublishesExactlyOnce(t *testing.T) {
	b, tg := newTestBot(t)
	acceptUser(t, b, 1)

	req, err := b.store.InsertRequest(1, "a", "b", "c", "")
	require.NoError(t, err)

	b.cb(callback(99, modChat, fmt.Sprintf("adm:ok:%d", req.ID)))

	got, err := b.store.GetRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	require.Equal(t, 1, tg.sendsTo(pubChannel))
	var post outMsg
	for _, m := range tg.texts {
		if m.chatID == pubChannel {
			post = m
		}
	}
	require.NotNil(t, post.kb, "the public post links back into the offer flow")
	url := post.kb.InlineKeyboard[0][0].URL
	require.NotNil(t, url)
	assert.Contains(t, *url, fmt.Sprintf("start=offer_%d", req.ID))
	assert.Contains(t, *url, "market_test_bot")

	assert.Contains(t, tg.lastTextTo(1), "прошла модерацию")
	assert.Contains(t, tg.answers, "Одобрено и опубликовано ✅")

	// Second click: no second publish, no second owner ping.
	b.cb(callback(99, modChat, fmt.Sprintf("adm:ok:%d", req.ID)))
	assert.Equal(t, 1, tg.sendsTo(pubChannel))
	assert.Contains(t, tg.answers, "Заявка уже промодерирована.")
}

func TestApprovePublishFailureSurfaces(t *testing.T) {
	b, tg := newTestBot(t)
	acceptUser(t, b, 1)

	req, err := b.store.InsertRequest(1, "a", "b", "c", "")
	require.NoError(t, err)
	tg.failChat[pubChannel] = fmt.Errorf("forbidden: not enough rights")

	b.cb(callback(99, modChat, fmt.Sprintf("adm:ok:%d", req.ID)))

	// The committed transition stands, the moderator sees the problem.
	got, err := b.store.GetRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Contains(t, tg.alerts, "Нет прав публиковать в канал.")
}

func TestRejectFlow(t *testing.T) {
	b, tg := newTestBot(t)
	acceptUser(t, b, 1)

	req, err := b.store.InsertRequest(1, "a", "b", "c", "")
	require.NoError(t, err)

	moderator := int64(99)
	b.cb(callback(moderator, modChat, fmt.Sprintf("adm:rej:%d", req.ID)))
	assert.Equal(t, "Укажите причину отклонения (одним сообщением).", tg.lastTextTo(modChat))

	// Reason messages arrive in the moderation chat, not a private one.
	reason := userMsg(moderator, "   ")
	reason.Chat = &tgbotapi.Chat{ID: modChat}
	b.msg(reason)
	assert.Equal(t, "Причина не может быть пустой. Напишите текст причины.", tg.lastTextTo(modChat))

	reason = userMsg(moderator, "мало деталей")
	reason.Chat = &tgbotapi.Chat{ID: modChat}
	b.msg(reason)

	got, err := b.store.GetRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, "мало деталей", got.RejectReason)

	assert.Contains(t, tg.lastTextTo(1), "мало деталей", "the owner sees the reason")
	assert.Equal(t, "Отклонено ❌", tg.lastTextTo(modChat))
	assert.Zero(t, tg.sendsTo(pubChannel), "rejected requests are never published")

	_, ok := b.sessions.Get(moderator)
	assert.False(t, ok)
}

func TestRejectAfterApproveIsRefused(t *testing.T) {
	b, tg := newTestBot(t)
	acceptUser(t, b, 1)

	req, err := b.store.InsertRequest(1, "a", "b", "c", "")
	require.NoError(t, err)
	require.NoError(t, b.store.ApproveRequest(req.ID))

	b.cb(callback(99, modChat, fmt.Sprintf("adm:rej:%d", req.ID)))

	require.NotEmpty(t, tg.alerts)
	assert.Equal(t, "Заявка не найдена/уже промодерирована.", tg.alerts[len(tg.alerts)-1])
}

func TestSliderNavigation(t *testing.T) {
	b, tg := newTestBot(t)
	acceptUser(t, b, 1)

	first, err := b.store.InsertRequest(1, "первый", "товар 1", "описание 1", "")
	require.NoError(t, err)
	second, err := b.store.InsertRequest(1, "второй", "товар 2", "описание 2", "")
	require.NoError(t, err)

	b.msg(userMsg(1, btnActiveRequests))
	require.NotEmpty(t, tg.texts)
	slide := tg.texts[len(tg.texts)-1]
	assert.Contains(t, slide.text, fmt.Sprintf("№%d", second.ID), "newest request is shown first")

	b.cb(callback(1, 1, "rl:go:1"))
	require.NotEmpty(t, tg.edits)
	assert.Contains(t, tg.edits[len(tg.edits)-1].text, fmt.Sprintf("№%d", first.ID))

	// Out of range: nothing is redrawn or sent.
	edits, sends := len(tg.edits), tg.sendsTo(1)
	b.cb(callback(1, 1, "rl:go:5"))
	assert.Equal(t, edits, len(tg.edits))
	assert.Equal(t, sends, tg.sendsTo(1))
}

func TestSliderWithoutSnapshot(t *testing.T) {
	b, tg := newTestBot(t)

	b.cb(callback(3, 3, "rl:go:0"))

	assert.Contains(t, tg.answers, "Нет списка заявок.")
}

func TestEditFieldKeepsModeratedStatus(t *testing.T) {
	b, tg := newTestBot(t)
	acceptUser(t, b, 1)

	req, err := b.store.InsertRequest(1, "a", "b", "c", "")
	require.NoError(t, err)
	require.NoError(t, b.store.ApproveRequest(req.ID))

	b.cb(callback(1, 1, fmt.Sprintf("rl:edit:%d", req.ID)))
	b.cb(callback(1, 1, cbEditDescription))
	b.msg(userMsg(1, "новое описание"))

	got, err := b.store.GetRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, "новое описание", got.Description)
	assert.Equal(t, models.StatusApproved, got.Status, "editing never resets moderation")

	assert.Contains(t, tg.textsTo(1), "Описание обновлено ✅")
	_, ok := b.sessions.Get(1)
	assert.False(t, ok, "edit wizard ends after one field")
}

func TestProfileContactCapture(t *testing.T) {
	b, tg := newTestBot(t)
	acceptUser(t, b, 1)

	b.msg(userMsg(1, btnMyProfile))
	require.NotEmpty(t, tg.texts)
	assert.Contains(t, tg.textsTo(1)[len(tg.textsTo(1))-2], "Профиль (1)")

	b.cb(callback(1, 1, cbProfileDelivery))
	assert.Equal(t, textDeliveryPrompt, tg.lastTextTo(1))

	// Two lines is not enough.
	b.msg(userMsg(1, "Иванов Иван\n+79990001122"))
	assert.Equal(t, "Нужно прислать 3 строки: ФИО, телефон, адрес ПВЗ. Отправьте ещё раз.", tg.lastTextTo(1))

	b.msg(userMsg(1, "Иванов Иван\n+79990001122\nМосква, ПВЗ CDEK №5"))

	p, err := b.store.GetProfile(1)
	require.NoError(t, err)
	require.True(t, p.HasDelivery())
	assert.Equal(t, "Иванов Иван", p.Delivery.FullName)
	assert.Equal(t, "Москва, ПВЗ CDEK №5", p.Delivery.Address)

	assert.Contains(t, tg.textsTo(1), "Контактные данные сохранены ✅")
}

func TestLargestPhoto(t *testing.T) {
	_, ok := largestPhoto(nil)
	assert.False(t, ok)

	best, ok := largestPhoto([]tgbotapi.PhotoSize{
		{FileID: "s", FileSize: 10},
		{FileID: "l", FileSize: 999},
		{FileID: "m", FileSize: 500},
	})
	require.True(t, ok)
	assert.Equal(t, "l", best.FileID)
}
