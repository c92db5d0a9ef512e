package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupWriter(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, false)
	slog.Info("hidden")
	slog.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown k=v")

	buf.Reset()
	SetupWriter(&buf, true)
	slog.Debug("detail")
	assert.Contains(t, buf.String(), "level=DEBUG msg=detail")
}
