// Package mailer delivers outgoing mail: inline over SMTP or through the
// RabbitMQ outbox.
package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("SMTP non configuré.")

// Message is one outgoing mail. HTML is optional.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("missing recipient")
	}
	if strings.TrimSpace(m.Text) == "" && strings.TrimSpace(m.HTML) == "" {
		return errors.New("empty body")
	}
	return nil
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Disabled rejects every message. It stands in when no SMTP host is set.
type Disabled struct{}

func (Disabled) Send(context.Context, Message) error { return ErrNotConfigured }

// Publisher puts an encoded job on the outbox queue.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// Queue hands messages to the outbox; a worker delivers them later. A nil
// error means the message was accepted by the broker, not delivered.
type Queue struct {
	publisher Publisher
}

func NewQueue(publisher Publisher) *Queue {
	return &Queue{publisher: publisher}
}

func (q *Queue) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode mail job: %w", err)
	}
	if err := q.publisher.Publish(ctx, body); err != nil {
		return fmt.Errorf("publish mail job: %w", err)
	}
	return nil
}

// Decode parses an outbox job body.
func Decode(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("decode mail job: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return Message{}, fmt.Errorf("decode mail job: %w", err)
	}
	return msg, nil
}
