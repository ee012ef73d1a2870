// Package notify fans lifecycle events out to their audiences. Transitions
// are committed before anything here runs; a failed delivery never rolls a
// transition back. Direct-message deliveries are best-effort and only
// logged, the channel publish surfaces its error to the moderator because
// it usually means missing channel permissions.
package notify

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/someout/market-bot/internal/render"
)

// Dispatcher delivers outbound notifications, retrying transient failures
// a couple of times before giving up.
type Dispatcher struct {
	out            render.Outbound
	log            zerolog.Logger
	moderationChat int64
	publishChannel int64

	retryInterval time.Duration
	retryMax      uint64
}

func NewDispatcher(out render.Outbound, log zerolog.Logger, moderationChat, publishChannel int64) *Dispatcher {
	return &Dispatcher{
		out:            out,
		log:            log.With().Str("component", "notify").Logger(),
		moderationChat: moderationChat,
		publishChannel: publishChannel,
		retryInterval:  500 * time.Millisecond,
		retryMax:       2,
	}
}

func (d *Dispatcher) retry(op func() error) error {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(d.retryInterval), d.retryMax)
	return backoff.Retry(op, b)
}

// NotifyUser sends a direct message, best-effort.
func (d *Dispatcher) NotifyUser(userID int64, text string) {
	err := d.retry(func() error {
		_, err := d.out.SendText(userID, text, nil)
		return err
	})
	if err != nil {
		d.log.Warn().Err(err).Int64("user_id", userID).Msg("user notification failed")
	}
}

// NotifyUserCard sends a direct card (photo-aware), best-effort.
func (d *Dispatcher) NotifyUserCard(userID int64, card render.Card) {
	err := d.retry(func() error {
		_, err := render.Send(d.out, userID, card)
		return err
	})
	if err != nil {
		d.log.Warn().Err(err).Int64("user_id", userID).Msg("user card notification failed")
	}
}

// ToModeration posts a card into the moderation chat and returns its ref so
// the caller can resync it after a decision.
func (d *Dispatcher) ToModeration(card render.Card) (render.MessageRef, error) {
	var ref render.MessageRef
	err := d.retry(func() error {
		var sendErr error
		ref, sendErr = render.Send(d.out, d.moderationChat, card)
		return sendErr
	})
	if err != nil {
		d.log.Error().Err(err).Msg("moderation notification failed")
	}
	return ref, err
}

// Publish posts a card to the public channel. The error is returned rather
// than swallowed: the acting moderator needs to see a permissions problem.
func (d *Dispatcher) Publish(card render.Card) error {
	err := d.retry(func() error {
		_, sendErr := render.Send(d.out, d.publishChannel, card)
		return sendErr
	})
	if err != nil {
		d.log.Error().Err(err).Int64("channel", d.publishChannel).Msg("channel publish failed")
	}
	return err
}
