package bot

import (
	"fmt"

	"github.com/someout/market-bot/internal/models"
	"github.com/someout/market-bot/internal/session"
)

const (
	textWelcome = "Приветствуем в нашем сервисе для оказания качественных и выгодных сделок. " +
		"В нижнем меню вы можете создать запрос на покупку, а так же настроить ваш профиль."

	textTermsPrompt = "Перед началом использования сервиса просьба ознакомиться с нашей публичной офертой."

	textDeliveryPrompt = "⬇️ Контактные данные (CDEK)\n" +
		"Отправьте одним сообщением:\n" +
		"1) ФИО\n2) Номер телефона\n3) Адрес пункта выдачи CDEK"

	textPayoutPrompt = "⬇️ Реквизиты для выплат\n" +
		"Отправьте одним сообщением:\n" +
		"1) ФИО\n2) Номер карты (16 цифр)\n3) Банк"

	textOfferCondition = "Выберите состояние предмета по шкале:\n1 — Ужасное … 10 — Новое с биркой"

	textOfferContextLost = "Контекст отклика утерян. Повторите переход по кнопке «Откликнуться»."
)

func dash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func requestPreviewText(req *models.Request) string {
	return fmt.Sprintf(
		"№%d — %s (%s)\n\nЛичное название: %s\nОписание: %s",
		req.ID, dash(req.ItemTitle), req.Status, dash(req.PrivateTitle), dash(req.Description),
	)
}

func draftPreviewText(d session.Draft) string {
	return fmt.Sprintf(
		"«Предпросмотр заявки»\n\n• Личное название: %s\n• Название: %s\n• Описание:\n%s",
		dash(d.PrivateTitle), dash(d.ItemTitle), dash(d.Description),
	)
}

func publicPostText(req *models.Request) string {
	return fmt.Sprintf(
		"🧾 Заявка №%d\n• Название: %s\n• Описание: %s",
		req.ID, dash(req.ItemTitle), dash(req.Description),
	)
}

func moderationCardText(req *models.Request) string {
	photo := "нет"
	if req.PhotoFileID != "" {
		photo = "есть ✅"
	}
	return fmt.Sprintf(
		"🆕 Новая заявка на модерацию\n№%d (от user_id=%d)\n\n"+
			"• Личное название: %s\n• Название вещи: %s\n• Описание: %s\n• Фото: %s\n• Статус: %s\n",
		req.ID, req.UserID,
		dash(req.PrivateTitle), dash(req.ItemTitle), dash(req.Description), photo, req.Status,
	)
}

func fmtDelivery(p *models.UserProfile) string {
	var name, phone, addr string
	if p.HasDelivery() {
		name, phone, addr = p.Delivery.FullName, p.Delivery.Phone, p.Delivery.Address
	}
	return fmt.Sprintf(
		"• Контактные данные (CDEK)\n  1) ФИО: %s\n  2) Телефон: %s\n  3) Адрес ПВЗ: %s",
		dash(name), dash(phone), dash(addr),
	)
}

func fmtPayout(p *models.UserProfile) string {
	var name, card, bank string
	if p.HasPayout() {
		name, card, bank = p.Payout.FullName, p.Payout.Card, p.Payout.Bank
	}
	return fmt.Sprintf(
		"• Реквизиты\n  1) ФИО: %s\n  2) Карта: %s\n  3) Банк: %s",
		dash(name), dash(card), dash(bank),
	)
}

func yesNo(v bool) string {
	if v {
		return "Да"
	}
	return "Нет"
}

func profileStatsText(p *models.UserProfile, requests, offers int) string {
	firstSeen := "—"
	if p.FirstSeen != nil {
		firstSeen = p.FirstSeen.UTC().Format("2006-01-02 15:04:05 UTC")
	}
	return fmt.Sprintf(
		"Профиль (%d)\n"+
			"• Дата регистрации в боте «первый вход»: %s\n"+
			"• Количество размещенных заявок: %d\n"+
			"• Количество успешных откликов на заказы пользователей: %d\n"+
			"• Сумма всех сделок: 0\n"+
			"• Внесены контактные данные: %s\n"+
			"• Внесены реквизиты: %s",
		p.UserID, firstSeen, requests, offers, yesNo(p.HasDelivery()), yesNo(p.HasPayout()),
	)
}
