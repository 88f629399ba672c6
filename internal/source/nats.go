package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
)

// Payload encodings of broker messages
const (
	PayloadJSON = "json"
	PayloadAvro = "avro"
)

// headerContentType lets a producer override the configured payload encoding per message
const headerContentType = "Content-Type"

const (
	defaultFetchBatch    = 100
	defaultFetchMaxWait  = 2 * time.Second
	defaultAckWait       = 30 * time.Second
	defaultMaxReconnects = 10
	defaultReconnectWait = 2 * time.Second
)

// NATSConfig configures the JetStream alert source
type NATSConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	FilterSubject string
	// Payload is the default encoding: json or avro
	Payload string
	// AvroSchema is the writer schema of schemaless Avro payloads
	AvroSchema string

	FetchBatch    int
	FetchMaxWait  time.Duration
	AckWait       time.Duration
	MaxDeliver    int
	MaxReconnects int
	ReconnectWait time.Duration
}

// NATSSource pulls alerts from a JetStream consumer. Messages are acked once
// the pipeline has taken them, malformed payloads are terminated, and the
// stream sequence of the last acked message is stored as the source cursor.
// Without a durable consumer name an ephemeral consumer resumes after that cursor.
type NATSSource struct {
	cfg     NATSConfig
	natsJS  adapter.NatsJetStream
	cursors CursorStore
	avro    *AvroDecoder

	mu       sync.Mutex
	nc       adapter.NatsConn
	consumer adapter.Consumer
}

// NewNATSSource creates a JetStream source
func NewNATSSource(cfg NATSConfig, natsJS adapter.NatsJetStream, cursors CursorStore) (*NATSSource, error) {
	if cfg.URL == "" || cfg.StreamName == "" {
		return nil, fmt.Errorf("nats source requires a URL and a stream name")
	}
	if cfg.Payload == "" {
		cfg.Payload = PayloadJSON
	}
	if cfg.Payload != PayloadJSON && cfg.Payload != PayloadAvro {
		return nil, fmt.Errorf("unsupported payload encoding %q", cfg.Payload)
	}
	if cfg.FetchBatch <= 0 {
		cfg.FetchBatch = defaultFetchBatch
	}
	if cfg.FetchMaxWait <= 0 {
		cfg.FetchMaxWait = defaultFetchMaxWait
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = defaultAckWait
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = defaultMaxReconnects
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = defaultReconnectWait
	}
	if natsJS == nil {
		natsJS = adapter.NewNatsJetStream()
	}

	s := &NATSSource{cfg: cfg, natsJS: natsJS, cursors: cursors}
	if cfg.AvroSchema != "" {
		dec, err := NewAvroDecoder(cfg.AvroSchema)
		if err != nil {
			return nil, err
		}
		s.avro = dec
	} else if cfg.Payload == PayloadAvro {
		return nil, fmt.Errorf("avro payloads require a writer schema")
	}

	return s, nil
}

func (s *NATSSource) Name() string {
	return TypeNATS
}

// cursorKey namespaces the cursor per stream and consumer
func (s *NATSSource) cursorKey() string {
	return fmt.Sprintf("%s:%s:%s", TypeNATS, s.cfg.StreamName, s.cfg.ConsumerName)
}

func (s *NATSSource) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consumer != nil {
		return nil
	}

	opts := []nats.Option{
		nats.Name(fmt.Sprintf("ff-alert-indexer-%s", uuid.NewString())),
		nats.MaxReconnects(s.cfg.MaxReconnects),
		nats.ReconnectWait(s.cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, js, err := s.natsJS.Connect(s.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to NATS and create JetStream: %w", domain.ErrSourceUnavailable, err)
	}

	consumerCfg := jetstream.ConsumerConfig{
		Durable:       s.cfg.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       s.cfg.AckWait,
		MaxDeliver:    s.cfg.MaxDeliver,
		FilterSubject: s.cfg.FilterSubject,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
	if s.cfg.ConsumerName == "" {
		consumerCfg.InactiveThreshold = 5 * time.Minute
		if seq, ok := s.loadCursor(ctx); ok {
			consumerCfg.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
			consumerCfg.OptStartSeq = seq + 1
		}
	}

	consumer, err := js.CreateOrUpdateConsumer(ctx, s.cfg.StreamName, consumerCfg)
	if err != nil {
		nc.Close()
		return fmt.Errorf("%w: failed to create/update consumer: %w", domain.ErrSourceUnavailable, err)
	}

	s.nc = nc
	s.consumer = consumer

	logger.InfoCtx(ctx, "NATS source connected",
		zap.String("url", nc.ConnectedUrl()),
		zap.String("stream", s.cfg.StreamName),
		zap.String("consumer", s.cfg.ConsumerName),
	)
	return nil
}

func (s *NATSSource) loadCursor(ctx context.Context) (uint64, bool) {
	if s.cursors == nil {
		return 0, false
	}
	value, err := s.cursors.GetSourceCursor(ctx, s.cursorKey())
	if err != nil {
		logger.WarnCtx(ctx, "Failed to load source cursor, starting from the beginning", zap.Error(err))
		return 0, false
	}
	if value == "" {
		return 0, false
	}
	seq, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		logger.WarnCtx(ctx, "Ignoring malformed source cursor", zap.String("cursor", value))
		return 0, false
	}
	return seq, true
}

func (s *NATSSource) saveCursor(ctx context.Context, seq uint64) {
	if s.cursors == nil || seq == 0 {
		return
	}
	if err := s.cursors.SetSourceCursor(ctx, s.cursorKey(), strconv.FormatUint(seq, 10)); err != nil {
		logger.WarnCtx(ctx, "Failed to store source cursor", zap.Uint64("sequence", seq), zap.Error(err))
	}
}

// Fetch pulls batches until limit messages were taken or a pull returns no
// messages within FetchMaxWait
func (s *NATSSource) Fetch(ctx context.Context, limit int) iter.Seq2[domain.RawAlert, error] {
	s.mu.Lock()
	consumer := s.consumer
	s.mu.Unlock()
	if consumer == nil {
		return errorSeq(notConnected(s.Name()))
	}

	return func(yield func(domain.RawAlert, error) bool) {
		taken := 0
		var lastSeq uint64
		defer func() { s.saveCursor(context.WithoutCancel(ctx), lastSeq) }()

		for limit <= 0 || taken < limit {
			if err := ctx.Err(); err != nil {
				yield(nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err))
				return
			}

			size := s.cfg.FetchBatch
			if limit > 0 {
				size = min(size, limit-taken)
			}
			batch, err := consumer.Fetch(size, jetstream.FetchMaxWait(s.cfg.FetchMaxWait))
			if err != nil {
				yield(nil, fmt.Errorf("%w: failed to fetch messages: %w", domain.ErrSourceUnavailable, err))
				return
			}

			received := 0
			stopped := false
			for msg := range batch.Messages() {
				if stopped {
					// the batch channel must be drained; untaken messages are redelivered
					nakMessage(ctx, msg)
					continue
				}
				received++

				raw, decodeErr := s.decode(msg)
				if decodeErr != nil {
					if err := msg.Term(); err != nil {
						logger.WarnCtx(ctx, "Failed to terminate message", zap.Error(err))
					}
					stopped = !yield(nil, domain.NewValidationError("payload", "%s: %s", msg.Subject(), decodeErr.Error()))
					continue
				}

				taken++
				if !yield(raw, nil) {
					stopped = true
					nakMessage(ctx, msg)
					continue
				}
				if err := msg.Ack(); err != nil {
					logger.WarnCtx(ctx, "Failed to ack message", zap.String("subject", msg.Subject()), zap.Error(err))
					continue
				}
				if meta, err := msg.Metadata(); err == nil {
					lastSeq = max(lastSeq, meta.Sequence.Stream)
				}
			}
			if stopped {
				return
			}

			if err := batch.Error(); err != nil && !isBenignFetchError(err) {
				yield(nil, fmt.Errorf("%w: fetch failed: %w", domain.ErrSourceUnavailable, err))
				return
			}
			if received == 0 {
				return
			}
		}
	}
}

func nakMessage(ctx context.Context, msg adapter.Message) {
	if err := msg.Nak(); err != nil {
		logger.WarnCtx(ctx, "Failed to nak message", zap.Error(err))
	}
}

func isBenignFetchError(err error) bool {
	return errors.Is(err, nats.ErrTimeout) || errors.Is(err, jetstream.ErrNoMessages)
}

func (s *NATSSource) decode(msg adapter.Message) (domain.RawAlert, error) {
	payload := s.cfg.Payload
	if ct := strings.ToLower(msg.Headers().Get(headerContentType)); ct != "" {
		switch {
		case strings.Contains(ct, "avro"):
			payload = PayloadAvro
		case strings.Contains(ct, "json"):
			payload = PayloadJSON
		}
	}

	switch payload {
	case PayloadAvro:
		if s.avro == nil {
			return nil, fmt.Errorf("avro payload without a configured schema")
		}
		return s.avro.Decode(msg.Data())
	default:
		dec := json.NewDecoder(bytes.NewReader(msg.Data()))
		dec.UseNumber()
		var raw domain.RawAlert
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode json payload: %w", err)
		}
		return raw, nil
	}
}

func (s *NATSSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nc != nil {
		s.nc.Close()
	}
	s.nc = nil
	s.consumer = nil
	return nil
}
