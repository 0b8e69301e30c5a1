package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("chat_service", &buf, logrus.InfoLevel)

	log.WithTrace("req-1").
		WithUser("u-42").
		WithError(models.ErrorInfo{Message: "boom", Type: "upstream"}).
		Error("embedding failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "embedding failed", line["message"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "chat_service", line["service_name"])
	assert.Equal(t, "req-1", line["trace_id"])
	assert.Equal(t, "u-42", line["user_id"])
	assert.Contains(t, line, "timestamp")

	errField, ok := line["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "boom", errField["message"])
}

func TestWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithOutput("svc", &buf, logrus.InfoLevel)
	_ = base.WithPayload(map[string]interface{}{"k": "v"})

	base.Info("plain")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "payload")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("nonsense"))
}

func TestTraceContext(t *testing.T) {
	ctx := ContextWithTrace(context.Background(), "req-9")
	assert.Equal(t, "req-9", TraceFromContext(ctx))
	assert.Empty(t, TraceFromContext(context.Background()))
}
