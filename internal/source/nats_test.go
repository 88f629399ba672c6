package source

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/mocks"
)

type natsFixture struct {
	natsJS   *mocks.MockNatsJetStream
	conn     *mocks.MockNatsConn
	js       *mocks.MockJetStream
	consumer *mocks.MockNatsConsumer
	cursors  *mocks.MockCursorStore
}

func newNATSFixture(ctrl *gomock.Controller) *natsFixture {
	return &natsFixture{
		natsJS:   mocks.NewMockNatsJetStream(ctrl),
		conn:     mocks.NewMockNatsConn(ctrl),
		js:       mocks.NewMockJetStream(ctrl),
		consumer: mocks.NewMockNatsConsumer(ctrl),
		cursors:  mocks.NewMockCursorStore(ctrl),
	}
}

func (f *natsFixture) expectConnect() {
	f.natsJS.EXPECT().Connect("nats://localhost:4222", gomock.Any()).Return(f.conn, f.js, nil)
	f.conn.EXPECT().ConnectedUrl().Return("nats://localhost:4222").AnyTimes()
}

func message(ctrl *gomock.Controller, data string, seq uint64) *mocks.MockJetStreamMessage {
	msg := mocks.NewMockJetStreamMessage(ctrl)
	msg.EXPECT().Data().Return([]byte(data)).AnyTimes()
	msg.EXPECT().Subject().Return("alerts.lsst").AnyTimes()
	msg.EXPECT().Headers().Return(nats.Header{}).AnyTimes()
	msg.EXPECT().Metadata().Return(&jetstream.MsgMetadata{
		Sequence: jetstream.SequencePair{Stream: seq, Consumer: seq},
	}, nil).AnyTimes()
	return msg
}

func batchOf(ctrl *gomock.Controller, msgs ...adapter.Message) *mocks.MockMessageBatch {
	ch := make(chan adapter.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)

	batch := mocks.NewMockMessageBatch(ctrl)
	batch.EXPECT().Messages().Return((<-chan adapter.Message)(ch))
	batch.EXPECT().Error().Return(nil).AnyTimes()
	return batch
}

func TestNATSSource_FetchAcksAndStoresCursor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	f := newNATSFixture(ctrl)
	f.expectConnect()
	f.js.EXPECT().
		CreateOrUpdateConsumer(gomock.Any(), "ALERTS", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, cfg jetstream.ConsumerConfig) (adapter.Consumer, error) {
			assert.Equal(t, "ingester", cfg.Durable)
			assert.Equal(t, jetstream.AckExplicitPolicy, cfg.AckPolicy)
			assert.Equal(t, jetstream.DeliverAllPolicy, cfg.DeliverPolicy)
			return f.consumer, nil
		})

	good := message(ctrl, `{"alert_id": 1, "dia_source_id": 11, "ra": 1, "dec": 1, "mjd": 60000}`, 6)
	good.EXPECT().Ack().Return(nil)
	bad := message(ctrl, `{not json`, 7)
	bad.EXPECT().Term().Return(nil)
	last := message(ctrl, `{"alert_id": 2, "dia_source_id": 12, "ra": 2, "dec": 2, "mjd": 60001}`, 8)
	last.EXPECT().Ack().Return(nil)

	gomock.InOrder(
		f.consumer.EXPECT().Fetch(10, gomock.Any()).Return(batchOf(ctrl, good, bad, last), nil),
		f.consumer.EXPECT().Fetch(10, gomock.Any()).Return(batchOf(ctrl), nil),
	)
	f.cursors.EXPECT().SetSourceCursor(gomock.Any(), "nats:ALERTS:ingester", "8").Return(nil)
	f.conn.EXPECT().Close()

	src, err := NewNATSSource(NATSConfig{
		URL:          "nats://localhost:4222",
		StreamName:   "ALERTS",
		ConsumerName: "ingester",
		FetchBatch:   10,
	}, f.natsJS, f.cursors)
	require.NoError(t, err)
	require.NoError(t, src.Connect(ctx))

	alerts, errs := collect(t, src, 0)
	require.Len(t, alerts, 2)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], domain.ErrValidation))

	alert, err := domain.NewAlertFromRaw(alerts[1])
	require.NoError(t, err)
	assert.Equal(t, int64(12), alert.DetectionID)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
}

func TestNATSSource_EphemeralConsumerResumesFromCursor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newNATSFixture(ctrl)
	f.expectConnect()
	f.cursors.EXPECT().GetSourceCursor(gomock.Any(), "nats:ALERTS:").Return("41", nil)
	f.js.EXPECT().
		CreateOrUpdateConsumer(gomock.Any(), "ALERTS", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, cfg jetstream.ConsumerConfig) (adapter.Consumer, error) {
			assert.Empty(t, cfg.Durable)
			assert.Equal(t, jetstream.DeliverByStartSequencePolicy, cfg.DeliverPolicy)
			assert.Equal(t, uint64(42), cfg.OptStartSeq)
			return f.consumer, nil
		})

	src, err := NewNATSSource(NATSConfig{URL: "nats://localhost:4222", StreamName: "ALERTS"}, f.natsJS, f.cursors)
	require.NoError(t, err)
	require.NoError(t, src.Connect(context.Background()))
}

func TestNATSSource_LimitBoundsPullSize(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newNATSFixture(ctrl)
	f.expectConnect()
	f.js.EXPECT().CreateOrUpdateConsumer(gomock.Any(), "ALERTS", gomock.Any()).Return(f.consumer, nil)

	first := message(ctrl, `{"alert_id": 1, "dia_source_id": 11, "ra": 1, "dec": 1, "mjd": 60000}`, 1)
	first.EXPECT().Ack().Return(nil)
	f.consumer.EXPECT().Fetch(1, gomock.Any()).Return(batchOf(ctrl, first), nil)
	f.cursors.EXPECT().SetSourceCursor(gomock.Any(), "nats:ALERTS:durable", "1").Return(nil)

	src, err := NewNATSSource(NATSConfig{
		URL:          "nats://localhost:4222",
		StreamName:   "ALERTS",
		ConsumerName: "durable",
		FetchBatch:   50,
	}, f.natsJS, f.cursors)
	require.NoError(t, err)
	require.NoError(t, src.Connect(context.Background()))

	alerts, errs := collect(t, src, 1)
	assert.Len(t, alerts, 1)
	assert.Empty(t, errs)
}

func TestNATSSource_ConsumerStopsEarly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newNATSFixture(ctrl)
	f.expectConnect()
	f.js.EXPECT().CreateOrUpdateConsumer(gomock.Any(), "ALERTS", gomock.Any()).Return(f.consumer, nil)

	taken := message(ctrl, `{"alert_id": 1, "dia_source_id": 11, "ra": 1, "dec": 1, "mjd": 60000}`, 1)
	taken.EXPECT().Nak().Return(nil)
	untaken := message(ctrl, `{"alert_id": 2, "dia_source_id": 12, "ra": 1, "dec": 1, "mjd": 60001}`, 2)
	untaken.EXPECT().Nak().Return(nil)
	f.consumer.EXPECT().Fetch(100, gomock.Any()).Return(batchOf(ctrl, taken, untaken), nil)

	src, err := NewNATSSource(NATSConfig{URL: "nats://localhost:4222", StreamName: "ALERTS", ConsumerName: "c"}, f.natsJS, nil)
	require.NoError(t, err)
	require.NoError(t, src.Connect(context.Background()))

	for range src.Fetch(context.Background(), 0) {
		break
	}
}

func TestNATSSource_ConnectFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newNATSFixture(ctrl)
	f.natsJS.EXPECT().Connect("nats://localhost:4222", gomock.Any()).Return(nil, nil, nats.ErrNoServers)

	src, err := NewNATSSource(NATSConfig{URL: "nats://localhost:4222", StreamName: "ALERTS", ConsumerName: "c"}, f.natsJS, nil)
	require.NoError(t, err)

	err = src.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
	assert.True(t, errors.Is(err, nats.ErrNoServers))

	_, errs := collect(t, src, 0)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], domain.ErrSourceUnavailable))
}

func TestNATSSource_FetchFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newNATSFixture(ctrl)
	f.expectConnect()
	f.js.EXPECT().CreateOrUpdateConsumer(gomock.Any(), "ALERTS", gomock.Any()).Return(f.consumer, nil)
	f.consumer.EXPECT().Fetch(100, gomock.Any()).Return(nil, nats.ErrConnectionClosed)

	src, err := NewNATSSource(NATSConfig{URL: "nats://localhost:4222", StreamName: "ALERTS", ConsumerName: "c"}, f.natsJS, nil)
	require.NoError(t, err)
	require.NoError(t, src.Connect(context.Background()))

	_, errs := collect(t, src, 0)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], domain.ErrSourceUnavailable))
}

func TestNewNATSSource_Validation(t *testing.T) {
	_, err := NewNATSSource(NATSConfig{StreamName: "ALERTS"}, nil, nil)
	assert.Error(t, err)

	_, err = NewNATSSource(NATSConfig{URL: "nats://x", StreamName: "ALERTS", Payload: "protobuf"}, nil, nil)
	assert.Error(t, err)

	_, err = NewNATSSource(NATSConfig{URL: "nats://x", StreamName: "ALERTS", Payload: PayloadAvro}, nil, nil)
	assert.Error(t, err, "avro without schema")

	_, err = NewNATSSource(NATSConfig{URL: "nats://x", StreamName: "ALERTS", AvroSchema: `{"type": "nope"}`}, nil, nil)
	assert.Error(t, err)
}
