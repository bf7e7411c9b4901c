// Package notify wraps the outbound Telegram send capability with logging
// and failure isolation: delivery is best-effort, at-most-once, no retry.
package notify

import (
	"fmt"

	"pet_care_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

type Dispatcher struct {
	client telegram.Client
	logger *logrus.Entry
}

func NewDispatcher(client telegram.Client, logger *logrus.Entry) *Dispatcher {
	return &Dispatcher{client: client, logger: logger}
}

// Deliver sends text to the recipient chat. A failed send is logged and
// returned as an error; it is never retried and never panics past this
// boundary, so one failed delivery cannot abort a batch of due jobs.
func (d *Dispatcher) Deliver(recipient int64, text string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.WithFields(logrus.Fields{
				"recipient": recipient,
				"panic":     p,
			}).Error("Panic during notification delivery")
			err = fmt.Errorf("delivery to %d panicked: %v", recipient, p)
		}
	}()

	if err := d.client.SendMessage(recipient, text, nil); err != nil {
		d.logger.WithFields(logrus.Fields{
			"recipient": recipient,
		}).WithError(err).Error("Failed to deliver notification")
		return fmt.Errorf("deliver to %d: %w", recipient, err)
	}

	d.logger.WithFields(logrus.Fields{
		"recipient": recipient,
		"text":      text,
	}).Info("Notification delivered")
	return nil
}
