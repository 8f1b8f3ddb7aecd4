package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiebiao/scholarium/internal/infrastructure/config"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json格式", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewWithWriter(config.LogConfig{Level: "info", Format: "json"}, &buf)

		l.Info("同步完成", slog.Int("entries", 3))
		assert.Contains(t, buf.String(), `"entries":3`)
	})

	t.Run("级别过滤", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewWithWriter(config.LogConfig{Level: "warn"}, &buf)

		l.Info("忽略")
		l.Warn("保留")
		assert.NotContains(t, buf.String(), "忽略")
		assert.Contains(t, buf.String(), "保留")
	})
}
