package ingestion

import (
	"context"
	"fmt"
	"time"

	"SynthLedger/internal/observability"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

const (
	// PriceSubjectPrefix is the inbound subject space; oracle relays
	// publish to synth.prices.<SYMBOL>.
	PriceSubjectPrefix = "synth.prices"

	priceStreamName   = "SYNTH_PRICES"
	priceConsumerName = "synthledger-prices"
)

// PriceSubscriber consumes oracle price updates from JetStream and applies
// them to the feed store.
type PriceSubscriber struct {
	js       jetstream.JetStream
	store    *FeedStore
	metrics  *observability.Metrics
	log      zerolog.Logger
	consumer jetstream.ConsumeContext
}

func NewPriceSubscriber(
	js jetstream.JetStream,
	store *FeedStore,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *PriceSubscriber {
	return &PriceSubscriber{
		js:      js,
		store:   store,
		metrics: metrics,
		log:     log,
	}
}

// Subscribe creates the durable consumer and starts delivery. Malformed
// or unknown-symbol updates are acked and dropped; they would never
// succeed on redelivery.
func (ps *PriceSubscriber) Subscribe(ctx context.Context) error {
	consumer, err := ps.js.CreateOrUpdateConsumer(ctx, priceStreamName, jetstream.ConsumerConfig{
		Durable:       priceConsumerName,
		FilterSubject: PriceSubjectPrefix + ".>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create price consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		update, err := ParsePriceUpdate(msg.Data())
		if err != nil {
			ps.log.Warn().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed price update")
			msg.Ack()
			return
		}

		if err := ps.store.Apply(update); err != nil {
			ps.log.Warn().Err(err).Str("symbol", update.Symbol).Msg("dropping price update")
			msg.Ack()
			return
		}

		if ps.metrics != nil {
			ps.metrics.PriceUpdates.WithLabelValues(update.Symbol).Inc()
		}
		ps.log.Debug().
			Str("symbol", update.Symbol).
			Str("price", update.Price.String()).
			Time("updated_at", update.UpdatedAt).
			Msg("price update applied")
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("consume prices: %w", err)
	}

	ps.consumer = consumeCtx
	ps.log.Info().Str("subject", PriceSubjectPrefix+".>").Msg("subscribed to price updates")
	return nil
}

// Stop halts delivery.
func (ps *PriceSubscriber) Stop() {
	if ps.consumer != nil {
		ps.consumer.Stop()
	}
}

// EnsurePriceStream creates the inbound price stream if it does not
// exist. Prices are ephemeral; a short retention window is enough to
// cover restarts.
func EnsurePriceStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      priceStreamName,
		Subjects:  []string{PriceSubjectPrefix + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", priceStreamName, err)
	}
	return nil
}

// ConnectNATS establishes a NATS connection and returns a JetStream
// context.
func ConnectNATS(url string, log zerolog.Logger) (*nats.Conn, jetstream.JetStream, error) {
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
