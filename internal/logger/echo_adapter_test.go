package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	echolog "github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
)

func TestEchoAdapterLevels(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	a := NewEchoAdapter(NewSlogLogger(buf, LogLevelDebug, time.UTC), echolog.WARN)

	a.Info("hidden info")
	a.Warnf("shown %s", "warning")
	a.Errorj(echolog.JSON{"listener": "closed"})
	out := buf.String()

	assert.NotContains(t, out, "hidden info")
	assert.Contains(t, out, "shown warning")
	assert.Contains(t, out, "listener")

	a.SetLevel(echolog.DEBUG)
	assert.Equal(t, echolog.DEBUG, a.Level())
	a.Debug("now visible")
	assert.True(t, strings.Contains(buf.String(), "now visible"))

	assert.Panics(t, func() { a.Fatal("boom") })
}
