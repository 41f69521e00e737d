package application

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(line string)

// Emit calls f.
func (f SinkFunc) Emit(line string) {
	if f != nil {
		f(line)
	}
}

// WriterSink writes each line to w followed by a newline.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink constructs a WriterSink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Emit writes the line; write errors are ignored.
func (s *WriterSink) Emit(line string) {
	if s == nil || s.w == nil {
		return
	}
	_, _ = fmt.Fprintln(s.w, line)
}

// LogSink forwards progress lines to a structured logger.
type LogSink struct {
	logger *slog.Logger
	attrs  []any
}

// NewLogSink constructs a LogSink; attrs are attached to every record.
func NewLogSink(logger *slog.Logger, attrs ...any) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, attrs: attrs}
}

// Emit logs the line at info level.
func (s *LogSink) Emit(line string) {
	if s == nil {
		return
	}
	s.logger.Info("registry_progress", append([]any{"line", line}, s.attrs...)...)
}

// Collector keeps progress lines in memory.
type Collector struct {
	mu    sync.Mutex
	lines []string
}

// Emit appends the line.
func (c *Collector) Emit(line string) {
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
}

// Lines returns a copy of the collected lines.
func (c *Collector) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

type multiSink []ProgressSink

// MultiSink fans each line out to all non-nil sinks in order.
func MultiSink(sinks ...ProgressSink) ProgressSink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Emit(line string) {
	for _, s := range m {
		s.Emit(line)
	}
}

var discardSink = SinkFunc(func(string) {})
