package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"family_id":"smith"}`)
	msg := framedMessage(42, payload, 10,
		kafka.Header{Key: "event_type", Value: []byte("family.updated")},
		kafka.Header{Key: "family_id", Value: []byte("smith")},
		kafka.Header{Key: "schema_subject", Value: []byte("family_updates-value")},
	)

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}

	before := testutil.ToFloat64(processedCounter.WithLabelValues("family_updates", "family.updated"))

	processor := NewProcessor(reader, handler, WithLogger(discardLogger()))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "family.updated", handler.last.EventType)
	require.Equal(t, "smith", handler.last.FamilyID)
	require.Equal(t, "family_updates-value", handler.last.SchemaSubject)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))

	after := testutil.ToFloat64(processedCounter.WithLabelValues("family_updates", "family.updated"))
	require.InDelta(t, before+1, after, 0.0001)
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := framedMessage(99, []byte(`{"family_id":"jones"}`), 20,
		kafka.Header{Key: "event_type", Value: []byte("family.updated")},
		kafka.Header{Key: "family_id", Value: []byte("jones")},
	)

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: errors.New("boom")}

	processor := NewProcessor(reader, handler, WithLogger(discardLogger()))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{
			{Topic: "family_updates", Value: []byte{0, 1}},
			framedMessage(1, []byte(`{}`), 2),
		},
		after: contextCanceled,
	}
	handler := &stubHandler{}

	before := testutil.ToFloat64(decodeErrorCounter.WithLabelValues("family_updates"))

	processor := NewProcessor(reader, handler, WithLogger(discardLogger()))
	require.ErrorIs(t, processor.Run(ctx), context.Canceled)

	require.Zero(t, handler.calls)
	require.Equal(t, 2, reader.commitCalls)
	after := testutil.ToFloat64(decodeErrorCounter.WithLabelValues("family_updates"))
	require.InDelta(t, before+2, after, 0.0001)
}

func TestDecodeMessageFallsBackToKeyForFamily(t *testing.T) {
	msg := framedMessage(3, []byte(`{}`), 1, kafka.Header{Key: "event_type", Value: []byte("family.updated")})
	msg.Key = []byte("smith")

	decoded, err := decodeMessage(msg)
	require.NoError(t, err)
	require.Equal(t, "smith", decoded.FamilyID)
	require.Equal(t, 3, decoded.SchemaID)
}

func TestDecodeMessageRejectsUnknownMagicByte(t *testing.T) {
	msg := framedMessage(3, []byte(`{}`), 1, kafka.Header{Key: "event_type", Value: []byte("family.updated")})
	msg.Value[0] = 1

	_, err := decodeMessage(msg)
	require.Error(t, err)
}

func TestProcessorRetriesAfterFetchError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		fetchErrs: []error{errors.New("broker unavailable")},
		messages: []kafka.Message{framedMessage(5, []byte(`{}`), 1,
			kafka.Header{Key: "event_type", Value: []byte("family.updated")},
		)},
		after: contextCanceled,
	}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(discardLogger()), WithRetryDelay(time.Millisecond))
	require.ErrorIs(t, processor.Run(ctx), context.Canceled)
	require.Equal(t, 1, handler.calls)
}

func framedMessage(schemaID int, payload []byte, offset int64, headers ...kafka.Header) kafka.Message {
	value := make([]byte, 5+len(payload))
	value[0] = 0
	binary.BigEndian.PutUint32(value[1:5], uint32(schemaID))
	copy(value[5:], payload)

	return kafka.Message{
		Topic:     "family_updates",
		Partition: 0,
		Offset:    offset,
		Time:      time.Now().UTC(),
		Value:     value,
		Headers:   headers,
	}
}

type stubReader struct {
	fetchErrs   []error
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
