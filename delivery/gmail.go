// ABOUTME: Gmail API sender
// ABOUTME: Builds RFC 2822 messages and sends them with users.messages.send
package delivery

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Gmail sends as the authenticated user.
type Gmail struct {
	service *gmail.Service
}

// NewGmail wraps an existing Gmail service.
func NewGmail(service *gmail.Service) *Gmail {
	return &Gmail{service: service}
}

// NewGmailFromToken builds a service from the token at tokenPath. Refreshed
// tokens are written back to the same file.
func NewGmailFromToken(ctx context.Context, cfg *oauth2.Config, tokenPath string) (*Gmail, error) {
	token, err := LoadToken(tokenPath)
	if err != nil {
		return nil, err
	}

	source := newSavingTokenSource(cfg.TokenSource(ctx, token), tokenPath, token)
	service, err := gmail.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return NewGmail(service), nil
}

func (g *Gmail) Send(ctx context.Context, msg Message) (string, error) {
	built, err := BuildRFC2822(msg)
	if err != nil {
		return "", err
	}
	raw := base64.URLEncoding.EncodeToString(built)
	sent, err := g.service.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: gmail: %w", ErrDelivery, err)
	}
	return sent.Id, nil
}

// BuildRFC2822 renders a plain-text message with encoded headers. Both
// addresses must parse as a single RFC 5322 mailbox.
func BuildRFC2822(msg Message) ([]byte, error) {
	if err := validate(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid from address: %v", ErrDelivery, err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid to address: %v", ErrDelivery, err)
	}

	var b strings.Builder
	b.WriteString("From: " + from.String() + "\r\n")
	b.WriteString("To: " + to.String() + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String()), nil
}
