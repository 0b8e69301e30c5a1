package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error { return nil }

func TestJobPublisherKeysByUser(t *testing.T) {
	w := &recordingWriter{}
	job := models.MemoryJob{UserID: "u-1", Message: "adım Yusuf", TraceID: "t-1", SubmittedAt: time.Unix(1700000000, 0).UTC()}

	require.NoError(t, NewJobPublisherWithWriter(w).Publish(context.Background(), job))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "u-1", string(w.msgs[0].Key))

	var decoded models.MemoryJob
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, job, decoded)
}

func TestJobPublisherWriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	err := NewJobPublisherWithWriter(w).Publish(context.Background(), models.MemoryJob{UserID: "u"})
	assert.ErrorContains(t, err, "leader not available")
}
