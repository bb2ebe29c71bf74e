// Package extproc implements the Envoy ExternalProcessor service: one
// adapter per inbound stream turning mirrored protocol messages into a
// single analytics record.
package extproc

import (
	"context"
	"errors"
	"io"

	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	json "github.com/goccy/go-json"

	"github.com/moesif/moesif-extproc-go/internal/config"
	"github.com/moesif/moesif-extproc-go/internal/logging"
	"github.com/moesif/moesif-extproc-go/internal/metrics"
)

// EventSink receives finished, serialized transaction records. Push may
// block for backpressure; it must not be retried by the caller.
type EventSink interface {
	Push(ctx context.Context, record []byte) error
}

// Service implements extprocv3.ExternalProcessorServer.
type Service struct {
	extprocv3.UnimplementedExternalProcessorServer

	cfg    *config.Config
	sink   EventSink
	logger *logging.Logger
}

// NewService constructs the processor. The sink is typically the collector;
// the caller is responsible for having started its consumer.
func NewService(cfg *config.Config, sink EventSink, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
	}
}

// Process drives one bidirectional ext_proc stream. Every inbound message
// gets exactly one matching empty acknowledgement, in arrival order; when
// the stream ends the assembled record is finalized and pushed to the sink.
func (s *Service) Process(stream extprocv3.ExternalProcessor_ProcessServer) error {
	log := s.logger.With(logging.StreamID(uuid.NewString()))
	log.Debug("stream opened")

	metrics.StreamsActive.Inc()
	defer metrics.StreamsActive.Dec()

	// Acks flow through a bounded queue so slow gateway reads exert
	// backpressure on this loop rather than growing memory.
	acks := make(chan *extprocv3.ProcessingResponse, s.cfg.Stream.AckBuffer)
	sendDone := make(chan struct{})
	go func() {
		defer close(sendDone)
		for resp := range acks {
			if err := stream.Send(resp); err != nil {
				log.Debug("ack send failed, client gone", logging.Error(err))
				// Keep consuming so the receive loop never blocks on us.
			}
		}
	}()

	st := newStreamState()
	var streamErr error

	for {
		req, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Transport failure. One internal-error status goes back to
			// the gateway; the transaction observed so far is still kept.
			metrics.StreamErrors.Inc()
			log.Error("stream read error", logging.Error(err))
			streamErr = status.Error(codes.Internal, "internal error")
			break
		}
		acks <- st.handle(req)
	}

	close(acks)
	<-sendDone

	// An aborted stream arrives here with its context already canceled, and
	// the record of an aborted transaction is kept, so the push must not ride
	// the stream's cancellation.
	s.finish(context.WithoutCancel(stream.Context()), st, log)
	return streamErr
}

// finish resolves identity fields, serializes the record and pushes it.
// Runs exactly once per stream, after the last inbound message.
func (s *Service) finish(ctx context.Context, st *streamState, log *logging.Logger) {
	st.event.ResolveIdentity(s.cfg.UserIDHeader, s.cfg.CompanyIDHeader)

	record, err := json.Marshal(st.event)
	if err != nil {
		metrics.EventsDropped.WithLabelValues("serialize").Inc()
		log.Error("event serialization failed, record dropped", logging.Error(err))
		return
	}

	metrics.EventsAssembled.Inc()
	log.Debug("event assembled",
		logging.Events(1),
	)

	if err := s.sink.Push(ctx, record); err != nil {
		metrics.EventsDropped.WithLabelValues("push").Inc()
		log.Error("event push failed, record dropped", logging.Error(err))
	}
}
