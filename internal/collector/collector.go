// Package collector owns the path between the per-stream protocol adapters
// and the dispatcher: a bounded ingestion queue feeding a single consumer
// that groups records into count/time-bounded batches.
package collector

import (
	"context"
	"time"

	"github.com/moesif/moesif-extproc-go/internal/config"
	"github.com/moesif/moesif-extproc-go/internal/dispatcher"
	"github.com/moesif/moesif-extproc-go/internal/logging"
	"github.com/moesif/moesif-extproc-go/internal/metrics"
)

// Dispatcher delivers one serialized batch to the collector endpoint.
type Dispatcher interface {
	SendBatch(ctx context.Context, events [][]byte) (*dispatcher.DeliveryResult, error)
}

// Collector accumulates serialized events into batches and flushes them when
// the batch reaches the configured size or the wait window since its first
// record elapses. Construction does not start anything: the caller owns the
// consumer and must invoke Run exactly once.
type Collector struct {
	records  chan []byte
	maxSize  int
	maxWait  time.Duration
	dispatch Dispatcher
	logger   *logging.Logger
}

// New builds a collector with a bounded ingestion queue of the configured
// capacity.
func New(cfg *config.Config, d Dispatcher, logger *logging.Logger) *Collector {
	if logger == nil {
		logger = logging.Default()
	}
	metrics.QueueCapacity.Set(float64(cfg.Queue.Capacity))
	return &Collector{
		records:  make(chan []byte, cfg.Queue.Capacity),
		maxSize:  cfg.Batch.MaxSize,
		maxWait:  cfg.Batch.MaxWait,
		dispatch: d,
		logger:   logger,
	}
}

// Push enqueues one serialized event record. When the queue is full the
// caller blocks until the consumer frees space; that blocking wait is the
// system's only upstream backpressure. The record must not be mutated after
// a successful push.
func (c *Collector) Push(ctx context.Context, record []byte) error {
	select {
	case c.records <- record:
		metrics.QueueDepth.Set(float64(len(c.records)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the single consumer loop. It exits when ctx is canceled; any
// enqueued-but-unflushed records are dropped at that point, which is the
// documented shutdown behavior.
func (c *Collector) Run(ctx context.Context) {
	timer := time.NewTimer(c.maxWait)
	stopTimer(timer)
	defer timer.Stop()

	batch := make([][]byte, 0, c.maxSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		toSend := batch
		batch = make([][]byte, 0, c.maxSize)
		c.flush(ctx, toSend)
	}

	for {
		if len(batch) == 0 {
			// No wait window while the batch is empty: block purely on
			// arrival so an idle service never spins or flushes nothing.
			select {
			case <-ctx.Done():
				return
			case record := <-c.records:
				metrics.QueueDepth.Set(float64(len(c.records)))
				batch = append(batch, record)
				timer.Reset(c.maxWait)
				if len(batch) >= c.maxSize {
					stopTimer(timer)
					flush()
				}
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case record := <-c.records:
			metrics.QueueDepth.Set(float64(len(c.records)))
			batch = append(batch, record)
			if len(batch) >= c.maxSize {
				stopTimer(timer)
				flush()
			}
		case <-timer.C:
			flush()
		}
	}
}

// flush hands one batch to the dispatcher. The accumulator state has already
// been reset by the caller, so a failed delivery cannot re-enter the batch:
// the events are gone and only the counters remember them.
func (c *Collector) flush(ctx context.Context, batch [][]byte) {
	metrics.BatchesFlushed.Inc()
	c.logger.Info("posting events",
		logging.BatchSize(len(batch)),
		logging.QueueDepth(len(c.records)),
	)

	result, err := c.dispatch.SendBatch(ctx, batch)
	if err != nil {
		metrics.DeliveryFailures.Inc()
		c.logger.Error("batch delivery failed, events lost",
			logging.BatchSize(len(batch)),
			logging.Error(err),
		)
		return
	}

	metrics.EventsDelivered.Add(float64(len(batch)))
	c.logger.Debug("batch delivered",
		logging.Status(result.StatusCode),
		logging.ConfigEtag(result.ConfigEtag),
		logging.RulesEtag(result.RulesEtag),
	)
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
