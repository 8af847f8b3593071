// Package ingestion is the service's NATS surface: it pulls submitted
// transactions off JetStream, parses the JSON envelope into a typed
// transaction for the processor, and publishes receipts back out.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"DutchAuction/internal/observability"
)

// Stream and subject layout. Submissions arrive on a single subject;
// receipts fan out by instruction kind.
const (
	SubmitStream  = "AUCTION_TX"
	SubmitSubject = "auction.tx.submit"

	ReceiptStream        = "AUCTION_RECEIPTS"
	ReceiptSubjectPrefix = "auction.ledger.receipts"
)

// RawTx is a submission as received from NATS, not yet parsed. Ack after
// the transaction is handed to the processor channel; Nak to redeliver.
type RawTx struct {
	Data     []byte
	Received time.Time
	Ack      func()
	Nak      func()
}

// Subscriber feeds submitted transactions from JetStream into txChan.
type Subscriber struct {
	js       jetstream.JetStream
	txChan   chan<- RawTx
	consumer jetstream.ConsumeContext
}

func NewSubscriber(js jetstream.JetStream, txChan chan<- RawTx) *Subscriber {
	return &Subscriber{
		js:     js,
		txChan: txChan,
	}
}

// Subscribe creates the durable consumer and starts delivery. Explicit ACK,
// bounded redelivery.
func (s *Subscriber) Subscribe(ctx context.Context) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, SubmitStream, jetstream.ConsumerConfig{
		Durable:       "auction-ledger",
		FilterSubject: SubmitSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		raw := RawTx{
			Data:     msg.Data(),
			Received: time.Now(),
			Ack:      func() { msg.Ack() },
			Nak:      func() { msg.Nak() },
		}
		select {
		case s.txChan <- raw:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	s.consumer = cc
	return nil
}

// Stop gracefully stops delivery.
func (s *Subscriber) Stop() {
	if s.consumer != nil {
		s.consumer.Stop()
	}
}

// EnsureStreams creates the submission and receipt streams if absent.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      SubmitStream,
			Subjects:  []string{"auction.tx.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      ReceiptStream,
			Subjects:  []string{ReceiptSubjectPrefix + ".>"},
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
	}
	return nil
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string) (*nats.Conn, jetstream.JetStream, error) {
	log := observability.NewLogger("nats")
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS reconnected")
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
