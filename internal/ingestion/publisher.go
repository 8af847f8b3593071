package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"DutchAuction/internal/core"
	"DutchAuction/internal/observability"
)

// ReceiptPublisher publishes applied-transaction receipts for downstream
// consumers. Receipts go out after the processor has committed; a publish
// failure is non-fatal because the receipt log in Postgres stays
// authoritative.
type ReceiptPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan *core.Receipt
}

func NewReceiptPublisher(js jetstream.JetStream, inputChan <-chan *core.Receipt) *ReceiptPublisher {
	return &ReceiptPublisher{
		js:        js,
		inputChan: inputChan,
	}
}

// Run drains the input channel until it closes or the context ends.
func (rp *ReceiptPublisher) Run(ctx context.Context) error {
	log := observability.NewLogger("publisher")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rcpt, ok := <-rp.inputChan:
			if !ok {
				return nil
			}
			if err := rp.publish(ctx, rcpt); err != nil {
				log.Warn().Int64("sequence", rcpt.Sequence).Err(err).Msg("receipt publish failed")
			}
		}
	}
}

func (rp *ReceiptPublisher) publish(ctx context.Context, rcpt *core.Receipt) error {
	data, err := json.Marshal(rcpt)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", ReceiptSubjectPrefix, strings.ToLower(rcpt.KindName))
	_, err = rp.js.Publish(ctx, subject, data)
	return err
}
