package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/someout/market-bot/internal/db"
	"github.com/someout/market-bot/internal/notify"
	"github.com/someout/market-bot/internal/pager"
	"github.com/someout/market-bot/internal/render"
	"github.com/someout/market-bot/internal/session"
)

// Main menu reply buttons.
const (
	btnMyRequests     = "Мои запросы"
	btnMyProfile      = "Мой профиль"
	btnHelp           = "Помощь"
	btnActiveRequests = "Активные запросы"
	btnNewRequest     = "Создать новый запрос"
	btnBack           = "Вернуться"
)

type Config struct {
	Token            string
	ModerationChatID int64
	PublishChannelID int64

	StartImagePath string
	StartImageURL  string

	TermsURL   string
	ChannelURL string

	HelpSupportUser string
	HelpNewsUser    string
	HelpOffersUser  string
	HelpAdsUser     string
}

// transport is everything the handlers need from Telegram. The narrow
// interface keeps handler logic testable against a fake.
type transport interface {
	render.Outbound
	SendMenu(chatID int64, text string, kb tgbotapi.ReplyKeyboardMarkup) error
	SendPhotoFile(chatID int64, path, caption string, kb *tgbotapi.InlineKeyboardMarkup) (render.MessageRef, error)
	SendPhotoURL(chatID int64, url, caption string, kb *tgbotapi.InlineKeyboardMarkup) (render.MessageRef, error)
	AnswerCallback(id, text string) error
	AnswerCallbackAlert(id, text string) error
	Username() string
}

type Bot struct {
	cfg      Config
	api      *tgbotapi.BotAPI
	tg       transport
	store    *db.Store
	sessions *session.Store
	pages    *pager.Store
	notifier *notify.Dispatcher
	log      zerolog.Logger
}

func New(cfg Config, store *db.Store, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	log.Info().Str("account", api.Self.UserName).Msg("authorized")

	b := newBot(cfg, &telegramTransport{api: api}, store, log)
	b.api = api
	return b, nil
}

func newBot(cfg Config, tg transport, store *db.Store, log zerolog.Logger) *Bot {
	return &Bot{
		cfg:      cfg,
		tg:       tg,
		store:    store,
		sessions: session.NewStore(),
		pages:    pager.NewStore(),
		notifier: notify.NewDispatcher(tg, log, cfg.ModerationChatID, cfg.PublishChannelID),
		log:      log.With().Str("component", "bot").Logger(),
	}
}

// Run blocks, processing updates until the update channel closes. Each
// update is handled on its own goroutine; per-user ordering is not assumed,
// all shared state is guarded.
func (b *Bot) Run() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		go b.handleUpdate(update)
	}

	return nil
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("update handler panicked")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(update.Message)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.Chat.ID == b.cfg.ModerationChatID {
		b.handleModerationMessage(msg)
		return
	}
	b.handlePublicMessage(msg)
}

func (b *Bot) handlePublicMessage(msg *tgbotapi.Message) {
	userID := msg.From.ID

	if err := b.store.EnsureProfile(userID); err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Msg("failed to ensure profile")
	}

	if msg.IsCommand() && msg.Command() == "start" {
		b.handleStart(msg)
		return
	}

	// Menu buttons win over wizard steps, matching handler order in the
	// previous generation of the bot.
	switch msg.Text {
	case btnHelp:
		if b.ensureAccess(msg) {
			b.sendTextKB(msg.Chat.ID, "Выберите нужный раздел ниже:", helpKeyboard(b.cfg))
		}
		return
	case btnMyProfile:
		if b.ensureAccess(msg) {
			b.showProfile(msg.Chat.ID, userID)
		}
		return
	case btnMyRequests:
		if b.ensureAccess(msg) {
			b.sendMenu(msg.Chat.ID, "Раздел «Мои запросы».", requestsMenuKeyboard())
		}
		return
	case btnActiveRequests:
		if b.ensureAccess(msg) {
			b.showActiveRequests(msg.Chat.ID, userID)
		}
		return
	case btnNewRequest:
		if b.ensureAccess(msg) {
			b.startRequestWizard(msg.Chat.ID, userID)
		}
		return
	case btnBack:
		if b.ensureAccess(msg) {
			b.sendMenu(msg.Chat.ID, "Главное меню.", mainMenuKeyboard())
		}
		return
	}

	st, ok := b.sessions.Get(userID)
	if !ok || st.Step == session.StepNone {
		if b.ensureAccess(msg) {
			b.sendMenu(msg.Chat.ID, "Команда принята.", mainMenuKeyboard())
		}
		return
	}

	switch st.Step {
	case session.StepRequestPrivateTitle, session.StepRequestItemTitle, session.StepRequestDescription:
		b.handleRequestTextStep(msg, st)
	case session.StepRequestPhoto:
		b.handleRequestPhotoStep(msg, st)
	case session.StepOfferPrice:
		b.handleOfferPrice(msg)
	case session.StepOfferDays:
		b.handleOfferDays(msg)
	case session.StepOfferCondition:
		b.sendTextKB(msg.Chat.ID, textOfferCondition, conditionKeyboard())
	case session.StepOfferPhoto:
		b.handleOfferPhotoStep(msg)
	case session.StepDeliveryContact:
		b.handleDeliveryFill(msg)
	case session.StepPayoutContact:
		b.handlePayoutFill(msg)
	case session.StepRejectReason:
		// Reject reasons are only collected in the moderation chat.
		b.sessions.Clear(userID)
	}
}

func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		b.answer(cq, "")
		return
	}
	if cq.Message.Chat.ID == b.cfg.ModerationChatID {
		b.handleModerationCallback(cq)
		return
	}

	data := cq.Data
	switch {
	case data == cbAccept:
		b.handleAccept(cq)
	case data == cbProfileDelivery:
		b.handleProfileDelivery(cq)
	case data == cbProfilePayout:
		b.handleProfilePayout(cq)
	case data == cbProfileBack:
		b.handleProfileBack(cq)
	case strings.HasPrefix(data, "rl:go:"):
		b.handleSliderGo(cq)
	case data == cbSliderBack:
		b.sendMenu(cq.Message.Chat.ID, "Раздел «Мои запросы».", requestsMenuKeyboard())
		b.answer(cq, "")
	case strings.HasPrefix(data, "rl:edit:"):
		b.handleSliderEdit(cq)
	case data == cbEditBack:
		b.handleEditBack(cq)
	case data == cbEditPrivateTitle, data == cbEditItemTitle, data == cbEditDescription, data == cbEditPhoto:
		b.handleEditField(cq)
	case data == cbRequestSkipPhoto:
		b.handleRequestSkipPhoto(cq)
	case data == cbRequestConfirm:
		b.handleRequestConfirm(cq)
	case data == cbRequestChange:
		b.sendTextKB(cq.Message.Chat.ID, "Что конкретно вы хотите изменить?", editFieldKeyboard())
		b.answer(cq, "")
	case strings.HasPrefix(data, "offer:cond:"):
		b.handleOfferCondition(cq)
	case data == cbOfferSkipPhoto:
		b.handleOfferSkipPhoto(cq)
	default:
		b.answer(cq, "")
	}
}

// ensureAccess checks the terms-acceptance flag and re-prompts with the
// terms card when missing.
func (b *Bot) ensureAccess(msg *tgbotapi.Message) bool {
	accepted, err := b.store.IsAccepted(msg.From.ID)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to check acceptance")
	}
	if accepted {
		return true
	}
	b.sendTextKB(msg.Chat.ID, textTermsPrompt, startKeyboard(b.cfg))
	return false
}

// Send helpers: outbound failures are logged, never propagated to the
// update loop.

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.tg.SendText(chatID, text, nil); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (b *Bot) sendTextKB(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if _, err := b.tg.SendText(chatID, text, kb); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (b *Bot) sendMenu(chatID int64, text string, kb tgbotapi.ReplyKeyboardMarkup) {
	if err := b.tg.SendMenu(chatID, text, kb); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (b *Bot) sendCard(chatID int64, card render.Card) {
	if _, err := render.Send(b.tg, chatID, card); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("card send failed")
	}
}

func (b *Bot) answer(cq *tgbotapi.CallbackQuery, text string) {
	if err := b.tg.AnswerCallback(cq.ID, text); err != nil {
		b.log.Warn().Err(err).Msg("callback answer failed")
	}
}

func (b *Bot) answerAlert(cq *tgbotapi.CallbackQuery, text string) {
	if err := b.tg.AnswerCallbackAlert(cq.ID, text); err != nil {
		b.log.Warn().Err(err).Msg("callback answer failed")
	}
}

func cleanup(s string) string {
	return strings.TrimSpace(s)
}

// largestPhoto picks the biggest rendition Telegram attached to a message.
func largestPhoto(photos []tgbotapi.PhotoSize) (tgbotapi.PhotoSize, bool) {
	if len(photos) == 0 {
		return tgbotapi.PhotoSize{}, false
	}
	best := photos[0]
	for _, p := range photos[1:] {
		if p.FileSize > best.FileSize {
			best = p
		}
	}
	return best, true
}

func callbackID(data string) (int64, bool) {
	parts := strings.Split(data, ":")
	id, err := parseInt64(parts[len(parts)-1])
	if err != nil {
		return 0, false
	}
	return id, true
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
