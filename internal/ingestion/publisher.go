package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SynthLedger/internal/persistence"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

const opsStreamName = "SYNTH_LEDGER_OPS"

// OpSubjectPrefix is the outbound subject space; committed operations are
// published to synth.ledger.ops.<op_type>.
const OpSubjectPrefix = "synth.ledger.ops"

// OperationEvent is the outbound notification of one committed operation.
type OperationEvent struct {
	OpID         string `json:"op_id"`
	OpType       string `json:"op_type"`
	Account      string `json:"account"`
	Counterparty string `json:"counterparty,omitempty"`
	JournalCount int    `json:"journal_count"`
	TimestampUs  int64  `json:"timestamp_us"`
}

// OperationPublisher publishes committed operations to NATS for
// downstream consumers (liquidation bots, dashboards). Publishing is
// best-effort: a failed publish is logged, never blocks the engine, and
// consumers can always recover from the operation log.
type OperationPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan persistence.Record
	log       zerolog.Logger
}

func NewOperationPublisher(
	js jetstream.JetStream,
	inputChan <-chan persistence.Record,
	log zerolog.Logger,
) *OperationPublisher {
	return &OperationPublisher{
		js:        js,
		inputChan: inputChan,
		log:       log,
	}
}

// Run drains the input channel until it closes or ctx is cancelled.
func (op *OperationPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case rec, ok := <-op.inputChan:
			if !ok {
				return nil
			}
			if err := op.publish(ctx, rec); err != nil {
				op.log.Warn().Err(err).Str("op_id", rec.OpID.String()).Msg("outbound publish failed")
			}
		}
	}
}

func (op *OperationPublisher) publish(ctx context.Context, rec persistence.Record) error {
	evt := OperationEvent{
		OpID:         rec.OpID.String(),
		OpType:       rec.OpType,
		Account:      rec.Account.String(),
		JournalCount: len(rec.Journals),
		TimestampUs:  rec.Timestamp.UnixMicro(),
	}
	if rec.Counterparty != uuid.Nil {
		evt.Counterparty = rec.Counterparty.String()
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal operation event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", OpSubjectPrefix, rec.OpType)
	_, err = op.js.Publish(ctx, subject, data)
	return err
}

// EnsureOperationsStream creates the outbound operations stream.
func EnsureOperationsStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      opsStreamName,
		Subjects:  []string{OpSubjectPrefix + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", opsStreamName, err)
	}
	return nil
}
