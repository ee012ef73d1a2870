// Package render updates previously sent interactive cards. The transport
// forbids turning a text message into a photo message in place, and edit
// rights can be lost at any time, so every update runs through an ordered
// list of strategies instead of failing outright.
package render

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// MessageRef addresses one sent message.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Card is the desired content of an interactive message: caption, optional
// photo, optional inline controls.
type Card struct {
	Text     string
	PhotoID  string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

// Outbound is the narrow contract with the chat transport. Every call may
// fail independently; failures are results, never fatal.
type Outbound interface {
	SendText(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (MessageRef, error)
	SendPhoto(chatID int64, photoID, caption string, kb *tgbotapi.InlineKeyboardMarkup) (MessageRef, error)
	EditText(ref MessageRef, text string, kb *tgbotapi.InlineKeyboardMarkup) error
	EditMedia(ref MessageRef, photoID, caption string, kb *tgbotapi.InlineKeyboardMarkup) error
	DeleteMessage(ref MessageRef) error
}

// Send posts a card as a fresh message.
func Send(out Outbound, chatID int64, card Card) (MessageRef, error) {
	if card.PhotoID != "" {
		return out.SendPhoto(chatID, card.PhotoID, card.Text, card.Keyboard)
	}
	return out.SendText(chatID, card.Text, card.Keyboard)
}

// Resync re-displays a card against an existing message. Strategies are
// tried in order, stopping at the first success:
//
//  1. replace media and caption together (only when the card has a photo)
//  2. replace just the text and controls
//  3. send a fresh message and delete the stale one
//
// Deleting the stale message may itself fail; that is logged and tolerated
// so tier 3 still counts as success. The returned ref is the live message.
func Resync(log zerolog.Logger, out Outbound, ref MessageRef, card Card) (MessageRef, error) {
	if card.PhotoID != "" {
		err := out.EditMedia(ref, card.PhotoID, card.Text, card.Keyboard)
		if err == nil {
			return ref, nil
		}
		log.Debug().Err(err).Int("message_id", ref.MessageID).Msg("edit media failed, trying text edit")
	}

	err := out.EditText(ref, card.Text, card.Keyboard)
	if err == nil {
		return ref, nil
	}
	log.Debug().Err(err).Int("message_id", ref.MessageID).Msg("edit text failed, resending")

	fresh, err := Send(out, ref.ChatID, card)
	if err != nil {
		return MessageRef{}, err
	}
	if err := out.DeleteMessage(ref); err != nil {
		log.Warn().Err(err).Int("message_id", ref.MessageID).Msg("failed to delete stale card")
	}
	return fresh, nil
}
