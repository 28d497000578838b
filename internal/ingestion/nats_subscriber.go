package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSSubscriber subscribes to NATS JetStream subjects and feeds actions
// into the engine via the actionChan. NATS JetStream is the primary
// high-throughput ingestion surface; each subject maps to an action type.
type NATSSubscriber struct {
	js         jetstream.JetStream
	actionChan chan<- RawAction
	consumers  []jetstream.ConsumeContext
}

// RawAction is the received-but-untyped action from NATS, ready for the
// shell to validate and convert into a typed action.Action before sending
// to the engine.
type RawAction struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	AckFunc   func() // Call to ACK the NATS message after successful processing
	NakFunc   func() // Call to NAK on failure (will be redelivered)
}

// SubjectConfig maps NATS subjects to action types.
type SubjectConfig struct {
	Subject      string
	ActionType   string
	ConsumerName string
	StreamName   string
}

// ActionStreamName is the single inbound stream; all eight action types
// share it so per-symbol ordering is preserved end to end.
const ActionStreamName = "TOKEN_ACTIONS"

// NotifyStreamName carries outbound transfer notifications.
const NotifyStreamName = "TOKEN_NOTIFY"

// DefaultSubjects returns the standard subject configuration.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{Subject: "token.actions.create", ActionType: "Create", ConsumerName: "ledger-create", StreamName: ActionStreamName},
		{Subject: "token.actions.issue", ActionType: "Issue", ConsumerName: "ledger-issue", StreamName: ActionStreamName},
		{Subject: "token.actions.retire", ActionType: "Retire", ConsumerName: "ledger-retire", StreamName: ActionStreamName},
		{Subject: "token.actions.transfer", ActionType: "Transfer", ConsumerName: "ledger-transfer", StreamName: ActionStreamName},
		{Subject: "token.actions.approve", ActionType: "Approve", ConsumerName: "ledger-approve", StreamName: ActionStreamName},
		{Subject: "token.actions.transferfrom", ActionType: "TransferFrom", ConsumerName: "ledger-transferfrom", StreamName: ActionStreamName},
		{Subject: "token.actions.open", ActionType: "Open", ConsumerName: "ledger-open", StreamName: ActionStreamName},
		{Subject: "token.actions.close", ActionType: "Close", ConsumerName: "ledger-close", StreamName: ActionStreamName},
	}
}

// ActionTypeForSubject resolves the action type from a subject string.
func ActionTypeForSubject(subject string) (string, bool) {
	for _, cfg := range DefaultSubjects() {
		if cfg.Subject == subject {
			return cfg.ActionType, true
		}
	}
	return "", false
}

func NewNATSSubscriber(js jetstream.JetStream, actionChan chan<- RawAction) *NATSSubscriber {
	return &NATSSubscriber{
		js:         js,
		actionChan: actionChan,
	}
}

// Subscribe creates JetStream consumers for all configured subjects.
// Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (ns *NATSSubscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		consumer, err := ns.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
			raw := RawAction{
				Subject:   msg.Subject(),
				Data:      msg.Data(),
				Timestamp: time.Now(),
				AckFunc:   func() { msg.Ack() },
				NakFunc:   func() { msg.Nak() },
			}

			select {
			case ns.actionChan <- raw:
				// Successfully queued for processing
			case <-ctx.Done():
				msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
		}

		ns.consumers = append(ns.consumers, consumerContext)
		log.Printf("INFO: subscribed to %s (consumer=%s)", cfg.Subject, cfg.ConsumerName)
	}

	return nil
}

// EnsureStreams creates the required JetStream streams if they don't exist.
// Streams use FileStorage, retention=Limits, max_age=72h.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      ActionStreamName,
			Subjects:  []string{"token.actions.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      NotifyStreamName,
			Subjects:  []string{"token.notify.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		log.Printf("INFO: ensured stream %s", cfg.Name)
	}

	return nil
}

// Stop gracefully stops all consumers.
func (ns *NATSSubscriber) Stop() {
	for _, cc := range ns.consumers {
		cc.Stop()
	}
	log.Println("INFO: NATS subscribers stopped")
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("WARN: NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("INFO: NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
