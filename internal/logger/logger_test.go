package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferLoggerCapturesMessages(t *testing.T) {
	buf := NewBufferLogger()

	buf.Debug("debug %d", 1)
	buf.Info("info %s", "msg")
	buf.Warn("warn")
	buf.Error("error")

	assert.Len(t, buf.Messages, 4)
	assert.Equal(t, "debug 1", buf.Messages[0].Message)
	assert.Equal(t, "info msg", buf.Messages[1].Message)
	assert.True(t, buf.HasLevel("warn"))
	assert.True(t, buf.HasLevel("error"))
	assert.False(t, buf.HasLevel("fatal"))
}

func TestBufferLoggerClear(t *testing.T) {
	buf := NewBufferLogger()
	buf.Info("something")
	assert.Len(t, buf.Messages, 1)

	buf.Clear()
	assert.Empty(t, buf.Messages)
}

func TestNoopLoggerDiscards(t *testing.T) {
	// Must not panic; output is discarded.
	l := Noop()
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")
}

func TestDefaultIsNotNil(t *testing.T) {
	assert.NotNil(t, Default())
}
