package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data values. The compact scheme is part of the card contract:
// previously sent cards keep working across restarts.
const (
	cbAccept = "accept"

	cbProfileDelivery = "profile:cdek"
	cbProfilePayout   = "profile:reqs"
	cbProfileBack     = "profile:back"

	cbSliderBack = "rl:back"

	cbEditPrivateTitle = "re:ep"
	cbEditItemTitle    = "re:ei"
	cbEditDescription  = "re:ed"
	cbEditPhoto        = "re:ph"
	cbEditBack         = "re:back"

	cbRequestSkipPhoto = "req:skip_photo"
	cbRequestConfirm   = "req:confirm"
	cbRequestChange    = "req:change"

	cbOfferSkipPhoto = "offer:skip_photo"

	cbModApprovePrefix = "adm:ok:"
	cbModRejectPrefix  = "adm:rej:"
)

func inlineKB(rows ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func startKeyboard(cfg Config) *tgbotapi.InlineKeyboardMarkup {
	return inlineKB(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Ознакомиться с офертой", cfg.TermsURL),
			tgbotapi.NewInlineKeyboardButtonURL("Телеграм-канал", cfg.ChannelURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Принять", cbAccept),
		),
	)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMyRequests),
			tgbotapi.NewKeyboardButton(btnMyProfile),
			tgbotapi.NewKeyboardButton(btnHelp),
		),
	)
}

func requestsMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnActiveRequests)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnNewRequest)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
}

func helpKeyboard(cfg Config) *tgbotapi.InlineKeyboardMarkup {
	return inlineKB(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔘 Тех. Поддержка", "https://t.me/"+cfg.HelpSupportUser),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔘 Канал", "https://t.me/"+cfg.HelpNewsUser),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔘 Канал с заявками", "https://t.me/"+cfg.HelpOffersUser),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔘 Реклама/предложения", "https://t.me/"+cfg.HelpAdsUser),
		),
	)
}

func profileKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return inlineKB(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Контактные данные (CDEK)", cbProfileDelivery),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Реквизиты", cbProfilePayout),
		),
	)
}

func backInlineKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return inlineKB(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ Вернуться", cbProfileBack),
		),
	)
}

// sliderKeyboard builds navigation for one browse slide. Arrow buttons are
// only rendered for reachable indexes.
func sliderKeyboard(idx, total int, reqID int64) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	if total > 1 {
		var nav []tgbotapi.InlineKeyboardButton
		if idx > 0 {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀︎", fmt.Sprintf("rl:go:%d", idx-1)))
		}
		if idx < total-1 {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("▶︎", fmt.Sprintf("rl:go:%d", idx+1)))
		}
		if len(nav) > 0 {
			rows = append(rows, nav)
		}
	}

	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔘 Изменить запрос", fmt.Sprintf("rl:edit:%d", reqID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔘 Вернуться", cbSliderBack),
		),
	)

	return inlineKB(rows...)
}

func editFieldKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return inlineKB(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔘 Личное название", cbEditPrivateTitle)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔘 Название", cbEditItemTitle)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔘 Описание", cbEditDescription)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔘 Фото", cbEditPhoto)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("↩️ Вернуться к заявке", cbEditBack)),
	)
}

func photoOrSkipKeyboard(skipData string) *tgbotapi.InlineKeyboardMarkup {
	return inlineKB(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔘 Пропустить", skipData),
		),
	)
}

func confirmOrChangeKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return inlineKB(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔘 Подтвердить", cbRequestConfirm),
			tgbotapi.NewInlineKeyboardButtonData("🔘 Изменить", cbRequestChange),
		),
	)
}

func moderationKeyboard(reqID int64) *tgbotapi.InlineKeyboardMarkup {
	return inlineKB(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Одобрить", fmt.Sprintf("%s%d", cbModApprovePrefix, reqID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", fmt.Sprintf("%s%d", cbModRejectPrefix, reqID)),
		),
	)
}

// conditionKeyboard is the fixed two-row 1..10 pick list.
func conditionKeyboard() *tgbotapi.InlineKeyboardMarkup {
	row := func(from, to int) []tgbotapi.InlineKeyboardButton {
		var btns []tgbotapi.InlineKeyboardButton
		for i := from; i <= to; i++ {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%d", i), fmt.Sprintf("offer:cond:%d", i)))
		}
		return btns
	}
	return inlineKB(row(1, 5), row(6, 10))
}

func publicOfferKeyboard(botUsername string, reqID int64) *tgbotapi.InlineKeyboardMarkup {
	return inlineKB(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(
				"Откликнуться",
				fmt.Sprintf("https://t.me/%s?start=offer_%d", botUsername, reqID),
			),
		),
	)
}
