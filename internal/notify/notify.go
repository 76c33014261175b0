// Package notify delivers rendered receipt notifications by email.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaytaylor/html2text"
)

// Message is one email ready for delivery
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Validate checks that the message can be addressed
func (m Message) Validate() error {
	if m.From == "" {
		return errors.New("message has no sender")
	}
	if len(m.To) == 0 {
		return errors.New("message has no recipients")
	}
	return nil
}

// Notifier sends a message to its recipients
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// PlainText derives the text/plain alternative of an HTML body
func PlainText(html string) (string, error) {
	text, err := html2text.FromString(html, html2text.Options{OmitLinks: true})
	if err != nil {
		return "", fmt.Errorf("converting html to text: %w", err)
	}
	return text, nil
}
