package observe

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// WriterSink emits events as JSON lines, one per event. Useful as the
// process-level diagnostic log when no event store is configured.
type WriterSink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriterSink(out io.Writer) *WriterSink {
	return &WriterSink{out: out}
}

func (s *WriterSink) Emit(ctx context.Context, event Event) error {
	_ = ctx
	if s == nil || s.out == nil {
		return nil
	}
	event.Normalize()
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(raw); err != nil {
		return err
	}
	_, err = s.out.Write([]byte("\n"))
	return err
}
