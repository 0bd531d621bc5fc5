package source

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/addrindex/addrindex/internal/address"
	"github.com/addrindex/addrindex/pkg/config"
	"github.com/addrindex/addrindex/pkg/kafka"
)

// drainIdleTimeout bounds how long the drain waits without receiving a
// message before concluding the topic holds no more records.
const drainIdleTimeout = 10 * time.Second

// DrainKafka consumes the address-records topic from its earliest retained
// offset and feeds each record into emit. Consumption stops once the consumer
// catches up with the topic head (lag reaches zero, or no message arrives
// within drainIdleTimeout). A cancelled ctx aborts the drain and returns
// ctx.Err(), so an interrupted build never passes for a complete one.
// Undecodable and unsalvageable messages are skipped.
func DrainKafka(ctx context.Context, cfg config.KafkaConfig, emit func(address.Record) error) error {
	logger := slog.Default().With("component", "kafka-source")
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		consumer *kafka.Consumer
		accepted int64
		skipped  int64
		lastSeen atomic.Int64
	)
	lastSeen.Store(time.Now().UnixNano())

	handler := func(ctx context.Context, key, value []byte) error {
		lastSeen.Store(time.Now().UnixNano())
		inc, err := kafka.DecodeJSON[address.Incomplete](value)
		if err != nil {
			logger.Warn("undecodable record message", "error", err)
			skipped++
		} else if inc.Unfixable() {
			skipped++
		} else {
			rec := inc.Record()
			rec.Country = address.NormalizeCountry(rec.Country)
			if err := emit(rec); err != nil {
				return err
			}
			accepted++
		}
		// The topic is a finite batch for the builder: stop at the head.
		if consumer.Lag() == 0 {
			cancel()
		}
		return nil
	}
	consumer = kafka.NewConsumer(cfg, cfg.Topics.AddressRecords, handler)
	defer consumer.Close()

	// An empty topic never invokes the handler, so the lag check above
	// cannot fire; the watchdog ends the drain when no message arrives.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-cctx.Done():
				return
			case <-ticker.C:
				idle := time.Since(time.Unix(0, lastSeen.Load()))
				if idle >= drainIdleTimeout && consumer.Lag() <= 0 {
					logger.Info("no records arriving, stopping drain", "idle", idle.Round(time.Second))
					cancel()
				}
			}
		}
	}()

	if err := consumer.Start(cctx); err != nil {
		return err
	}
	// The consumer treats any cancellation as a clean stop; only a drained
	// topic is one. An aborted build must not fall through to a world write.
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info("topic drained", "accepted", accepted, "skipped", skipped)
	return nil
}
