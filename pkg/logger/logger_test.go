package logger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderFields(fields ...Field) string {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	event := zl.Info()
	for _, f := range fields {
		f.AddTo(event)
	}
	event.Msg("test")
	return buf.String()
}

func TestFieldConstructorsEmitTypedValues(t *testing.T) {
	out := renderFields(
		String("tier", "vip"),
		Int("attempt", 3),
		Int64("elapsed_ms", 1234),
		Float64("confidence", 72.5),
		Duration("cadence", 2*time.Second),
		Error(errors.New("broker unavailable")),
	)

	assert.Contains(t, out, `"tier":"vip"`)
	assert.Contains(t, out, `"attempt":3`)
	assert.Contains(t, out, `"elapsed_ms":1234`)
	assert.Contains(t, out, `"confidence":72.5`)
	assert.Contains(t, out, `"error":"broker unavailable"`)
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Info("ignored", Int64("n", 1))
}
