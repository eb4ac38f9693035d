package service

import "github.com/aussiebroadwan/accounts/internal/accounts/domain"

// Notifier hands messages to a delivery worker. Enqueue must return without
// waiting for delivery, and delivery failures never reach the caller.
type Notifier interface {
	Enqueue(msg domain.Message)
}

// NopNotifier drops every message.
type NopNotifier struct{}

func (NopNotifier) Enqueue(domain.Message) {}

// outbox collects the messages of one operation so they are only handed on
// once its transaction has committed.
type outbox struct {
	msgs []domain.Message
}

func (o *outbox) Enqueue(msg domain.Message) {
	o.msgs = append(o.msgs, msg)
}

func (o *outbox) flush(n Notifier) {
	for _, msg := range o.msgs {
		n.Enqueue(msg)
	}
	o.msgs = nil
}
