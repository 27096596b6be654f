package logging

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBuffered(debug bool) (*StdLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(log.New(&buf, "", 0), debug), &buf
}

func TestStdLogger_Levels(t *testing.T) {
	l, buf := newBuffered(false)
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Info(ctx, "subsystem started", "correlationID", "abc", "partitions", 3)
	l.Error(ctx, "failed to record transition", "error", errors.New("boom"))

	assert.Equal(t,
		"INFO subsystem started correlationID=abc partitions=3\n"+
			"ERROR failed to record transition error=boom\n",
		buf.String())
}

func TestStdLogger_DebugEnabled(t *testing.T) {
	l, buf := newBuffered(true)

	l.Debug(context.Background(), "ignored StopComponents", "state", "starting")

	assert.Equal(t, "DEBUG ignored StopComponents state=starting\n", buf.String())
}

func TestStdLogger_OddArgs(t *testing.T) {
	l, buf := newBuffered(false)

	l.Info(context.Background(), "odd", "key")

	assert.Equal(t, "INFO odd key=(MISSING)\n", buf.String())
}
