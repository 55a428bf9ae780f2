package notify

import (
	"context"
	"encoding/json"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
	KindInfo    Kind = "info"
)

// Notification is a transient side effect of a backend action, shown next to
// (not inside) the message log.
type Notification struct {
	Kind      Kind      `json:"kind"`
	Action    string    `json:"action"`
	Text      string    `json:"text"`
	SessionID string    `json:"session_id,omitempty"`
	ContactID string    `json:"contact_id,omitempty"`
	InvoiceID string    `json:"invoice_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewNotificationFromJSON(b []byte) (*Notification, error) {
	n := &Notification{}
	if err := json.Unmarshal(b, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) error {
	return nil
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

var _ Notifier = NopNotifier{}
var _ Notifier = NotifierFunc(nil)
