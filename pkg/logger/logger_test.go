package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thostetler/nectar-sub000/pkg/environment"
	"github.com/thostetler/nectar-sub000/pkg/logger"
)

type ctxKey struct{}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json with static attrs and extractors", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithAttr(slog.String("app", "nectar")),
			logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
				v, ok := ctx.Value(ctxKey{}).(string)
				return slog.String("trace", v), ok
			}),
		)

		ctx := context.WithValue(context.Background(), ctxKey{}, "abc")
		log.InfoContext(ctx, "hello")

		out := decode(t, &buf)
		assert.Equal(t, "hello", out["msg"])
		assert.Equal(t, "nectar", out["app"])
		assert.Equal(t, "abc", out["trace"])
	})

	t.Run("production environment drops debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithEnvironment(environment.Production, "svc"),
		)
		log.Debug("hidden")
		assert.Empty(t, buf.String())

		log.Info("shown")
		out := decode(t, &buf)
		assert.Equal(t, "svc", out["service"])
		assert.Equal(t, "production", out["env"])
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { logger.New(logger.WithFormat("xml")) })
	})
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
	assert.Equal(t, "error", logger.Error(errors.New("x")).Key)
	assert.True(t, logger.UserID("").Equal(slog.Attr{}))
	assert.True(t, logger.SessionID("").Equal(slog.Attr{}))
	assert.Equal(t, "0123abcd...", logger.SessionID("0123abcdef456789").Value.String())
	assert.Equal(t, "short", logger.SessionID("short").Value.String())
	assert.True(t, logger.Errors(nil, nil).Equal(slog.Attr{}))
	assert.Equal(t, 1.5, logger.Duration(1500*time.Microsecond).Value.Float64())
}
