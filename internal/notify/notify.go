// Package notify routes budget events to Telegram and outbound webhooks.
package notify

import (
	"fmt"
	"log"
)

// Sender can send a plain text message.
type Sender interface {
	Send(msg string) error
}

// WebhookFirer can fire a webhook event.
type WebhookFirer interface {
	Fire(event string, payload interface{})
}

// Dispatcher routes notification events to Telegram and webhooks.
type Dispatcher struct {
	telegram Sender
	webhook  WebhookFirer
}

// New creates a Dispatcher. Both telegram and webhook may be nil (disabled).
func New(telegram Sender, webhook WebhookFirer) *Dispatcher {
	return &Dispatcher{telegram: telegram, webhook: webhook}
}

// Send dispatches a notification event to all configured adapters.
func (d *Dispatcher) Send(event string, payload interface{}) {
	if d.telegram != nil {
		if err := d.telegram.Send(formatEvent(event, payload)); err != nil {
			log.Printf("notify: telegram send: %v", err)
		}
	}
	if d.webhook != nil {
		d.webhook.Fire(event, payload)
	}
}

// SendTelegram sends a message only via Telegram.
func (d *Dispatcher) SendTelegram(msg string) {
	if d.telegram == nil {
		return
	}
	if err := d.telegram.Send(msg); err != nil {
		log.Printf("notify: telegram: %v", err)
	}
}

// formatEvent prefers the payload's own rendering when it has one.
func formatEvent(event string, payload interface{}) string {
	if s, ok := payload.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("[%s] %v", event, payload)
}
