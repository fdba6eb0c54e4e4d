package eventhub

import (
	"context"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "missing connection string", cfg: Config{}, wantErr: true},
		{name: "malformed connection string", cfg: Config{ConnectionString: "not-a-connection-string", EventHub: "yamcs"}, wantErr: true},
		{
			name: "valid connection string",
			cfg: Config{
				ConnectionString: "Endpoint=sb://example.servicebus.windows.net/;SharedAccessKeyName=send;SharedAccessKey=c2VjcmV0",
				EventHub:         "yamcs-parameters",
				PartitionKey:     "simulator",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, zerolog.Nop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, s.batchOptions.PartitionKey)
			assert.Equal(t, "simulator", *s.batchOptions.PartitionKey)
		})
	}
}

// fakeBatch holds up to limit bytes of event bodies.
type fakeBatch struct {
	limit  int
	size   int
	bodies []string
}

func (b *fakeBatch) AddEventData(ed *azeventhubs.EventData, _ *azeventhubs.AddEventDataOptions) error {
	if b.size+len(ed.Body) > b.limit {
		return azeventhubs.ErrEventDataTooLarge
	}
	b.size += len(ed.Body)
	b.bodies = append(b.bodies, string(ed.Body))
	return nil
}

func (b *fakeBatch) NumEvents() int32 { return int32(len(b.bodies)) }

type fakeProducer struct {
	limit   int
	created int
	sent    [][]string
	closed  bool
}

func (p *fakeProducer) NewEventDataBatch(context.Context, *azeventhubs.EventDataBatchOptions) (eventBatch, error) {
	p.created++
	return &fakeBatch{limit: p.limit}, nil
}

func (p *fakeProducer) SendEventDataBatch(_ context.Context, batch eventBatch) error {
	p.sent = append(p.sent, batch.(*fakeBatch).bodies)
	return nil
}

func (p *fakeProducer) Close(context.Context) error {
	p.closed = true
	return nil
}

func newTestSink(limit int) (*Sink, *fakeProducer) {
	p := &fakeProducer{limit: limit}
	return &Sink{producer: p, batchOptions: &azeventhubs.EventDataBatchOptions{}, logger: zerolog.Nop()}, p
}

func TestSendBatchSplitsFullBatches(t *testing.T) {
	s, p := newTestSink(8)

	msgs := [][]byte{[]byte("aaaa"), []byte("bbbb"), []byte("cccc"), []byte("dd")}
	require.NoError(t, s.SendBatch(context.Background(), msgs))
	assert.Equal(t, [][]string{{"aaaa", "bbbb"}, {"cccc", "dd"}}, p.sent)
	assert.Equal(t, 2, p.created)

	require.NoError(t, s.Send(context.Background(), []byte("e")))
	assert.Equal(t, []string{"e"}, p.sent[2])

	require.NoError(t, s.Close(context.Background()))
	assert.True(t, p.closed)
}

func TestSendBatchMessageTooLarge(t *testing.T) {
	s, p := newTestSink(4)

	err := s.SendBatch(context.Background(), [][]byte{[]byte("ok"), []byte("too large")})
	require.Error(t, err)
	assert.ErrorIs(t, err, azeventhubs.ErrEventDataTooLarge)
	assert.Contains(t, err.Error(), "message of 9 bytes is too large")
	assert.Equal(t, [][]string{{"ok"}}, p.sent)
}

func TestSendBatchEmpty(t *testing.T) {
	s, p := newTestSink(4)
	require.NoError(t, s.SendBatch(context.Background(), nil))
	assert.Empty(t, p.sent)
}
