package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"TokenLedger/internal/token"
)

// Notifier publishes per-principal notifications to NATS after an action
// commits. Every transfer notifies both counterparties, so wallets and
// downstream services observe balance changes without polling.
// Subjects follow the pattern: token.notify.{principal}
type Notifier struct {
	js        jetstream.JetStream
	inputChan <-chan Notification
}

// Notification is a committed action fanned out to one set of recipients.
type Notification struct {
	Sequence       int64             `json:"sequence"`
	ActionType     string            `json:"action_type"`
	IdempotencyKey string            `json:"idempotency_key"`
	SymbolCode     *string           `json:"symbol_code,omitempty"`
	Recipients     []token.Principal `json:"recipients"`
	Payload        json.RawMessage   `json:"payload"`
	StateHash      []byte            `json:"state_hash"`
	Timestamp      time.Time         `json:"timestamp"`
}

func NewNotifier(js jetstream.JetStream, inputChan <-chan Notification) *Notifier {
	return &Notifier{
		js:        js,
		inputChan: inputChan,
	}
}

// Run starts the notifier loop. Notifications are published only after the
// engine has committed the action; a failed publish is non-fatal because
// consumers can always query the action log directly.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case note, ok := <-n.inputChan:
			if !ok {
				return nil
			}

			if err := n.publish(ctx, note); err != nil {
				log.Printf("WARN: notify publish failed seq=%d: %v", note.Sequence, err)
			}
		}
	}
}

func (n *Notifier) publish(ctx context.Context, note Notification) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	// One publish per recipient: token.notify.{principal}
	for _, recipient := range note.Recipients {
		subject := fmt.Sprintf("token.notify.%s", recipient)
		if _, err := n.js.Publish(ctx, subject, data); err != nil {
			return fmt.Errorf("publish to %s: %w", subject, err)
		}
	}
	return nil
}
