package graph

import (
	"context"
	"sync"

	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

// Stream delivers the events of one streaming run in node execution order.
// A successful run ends with exactly one final event; a failed run closes
// the channel without one and Err reports why.
type Stream struct {
	events chan model.StreamEvent
	mu     sync.Mutex
	err    error
}

// Events is closed when the run ends.
func (s *Stream) Events() <-chan model.StreamEvent {
	return s.events
}

// Err is meaningful once Events has been closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// RunStream starts the workflow in the background. Cancelling ctx stops
// further events from being delivered.
func (w *Workflow) RunStream(ctx context.Context, in model.QueryInput) *Stream {
	// one slot per node plus the final event keeps a full run from blocking
	st := &Stream{events: make(chan model.StreamEvent, len(transitions)+1)}

	go func() {
		defer close(st.events)

		state, err := w.prepare(ctx, in)
		if err != nil {
			st.fail(err)
			return
		}

		delivered := true
		emit := func(ev model.StreamEvent) {
			if !delivered {
				return
			}
			select {
			case st.events <- ev:
			case <-ctx.Done():
				delivered = false
				logx.Debug().Str("thread_id", state.ThreadID).Msg("Stream consumer gone, dropping events")
			}
		}

		err = w.drive(ctx, state, func(name string) {
			emit(model.StreamEvent{
				Type:      model.EventNodeUpdate,
				Node:      name,
				ThreadID:  state.ThreadID,
				Data:      map[string]any{"node": name},
				Timestamp: w.clock.Now().UTC(),
			})
		})
		if err != nil {
			st.fail(err)
			return
		}

		w.finish(ctx, state)
		emit(model.StreamEvent{
			Type:      model.EventFinal,
			ThreadID:  state.ThreadID,
			Data:      state.Bundle(),
			Timestamp: w.clock.Now().UTC(),
		})
	}()

	return st
}
