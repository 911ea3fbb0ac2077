package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/stakeguard/service/metrics"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName      = "TRANSFERS"
	StreamSubjects  = "transfers.*"
	SubjectPrefix   = "transfers."
	StreamRetention = 30 * 24 * time.Hour

	// dedupWindow covers PublishOutcome activity retries.
	dedupWindow = 10 * time.Minute
)

// Publisher sends terminal transfer outcomes to downstream consumers.
type Publisher interface {
	// PublishTransfer publishes to "transfers.{sender}".
	PublishTransfer(ctx context.Context, event *TransferEvent) error
	Close() error
}

// JetStreamPublisher publishes transfer events to NATS JetStream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPublisher connects to natsURL and makes sure the TRANSFERS stream
// exists. If metrics is nil, no metrics will be recorded.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*JetStreamPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("stakeguard"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("reconnected to NATS", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, metrics: m, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}

	logger.Info("NATS publisher ready", "url", natsURL, "stream", StreamName)
	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	stream, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Terminal outcomes of STX transfers",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Duplicates:  dedupWindow,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", StreamName, err)
	}
	p.logger.Debug("stream ready", "stream", StreamName, "messages", stream.CachedInfo().State.Msgs)
	return nil
}

// PublishTransfer publishes one event. The event id is the JetStream message
// id, so a retried publish of the same event is stored once.
func (p *JetStreamPublisher) PublishTransfer(ctx context.Context, event *TransferEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer event: %w", err)
	}

	start := time.Now()
	ack, err := p.js.Publish(ctx, event.Subject(), data, jetstream.WithMsgID(event.EventID))
	p.record(err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to publish transfer %s: %w", event.TxID, err)
	}

	p.logger.DebugContext(ctx, "published transfer event",
		"subject", event.Subject(),
		"tx_id", event.TxID,
		"status", event.Status,
		"seq", ack.Sequence,
		"duplicate", ack.Duplicate,
	)
	return nil
}

func (p *JetStreamPublisher) record(err error, d time.Duration) {
	if p.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	p.metrics.RecordNATSPublish(StreamSubjects, status, d.Seconds())
}

// Close closes the NATS connection.
func (p *JetStreamPublisher) Close() error {
	p.nc.Close()
	return nil
}
