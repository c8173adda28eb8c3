// ABOUTME: Delivery contract shared by every email provider
// ABOUTME: Defines Message, Sender and the DeliveryError sentinel
package delivery

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
)

// ErrDelivery marks a failed send.
var ErrDelivery = errors.New("delivery error")

// Message is one outgoing email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender makes exactly one delivery attempt and returns the provider's message id.
// Senders never touch client records.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) (string, error)

func (f SenderFunc) Send(ctx context.Context, msg Message) (string, error) {
	return f(ctx, msg)
}

// HTMLBody escapes a plain-text body and turns newlines into <br>.
func HTMLBody(body string) string {
	return strings.ReplaceAll(html.EscapeString(body), "\n", "<br>")
}

func validate(msg Message) error {
	if strings.TrimSpace(msg.From) == "" || strings.TrimSpace(msg.To) == "" {
		return errors.New("message needs both from and to addresses")
	}
	for field, v := range map[string]string{"from": msg.From, "to": msg.To, "subject": msg.Subject} {
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("%s header contains a line break", field)
		}
	}
	return nil
}
