// Package events defines the typed progress/result records emitted by the
// sweep components. Components never print or log directly; they emit events
// into an injected Sink, and the CLI decides how to surface them.
package events

import (
	"sync"

	"go.uber.org/zap"
)

// Stage identifies which pipeline step produced an event.
type Stage string

const (
	StageVerify    Stage = "verify"
	StageExtract   Stage = "extract"
	StageSynthesis Stage = "synthesis"
	StageCopy      Stage = "copy"
	StageRescale   Stage = "rescale"
	StageBatch     Stage = "batch"
)

// Level mirrors the usual log severities.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one progress or result record. Item names the variant, sub-case
// or file the event is about; it may be empty for stage-level records.
type Event struct {
	Stage   Stage
	Level   Level
	Item    string
	Message string
	Err     error
}

// Sink receives events. Implementations must be safe for concurrent use;
// the batch coordinator emits from multiple workers.
type Sink interface {
	Emit(Event)
}

// ZapSink forwards events to a zap logger.
type ZapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log}
}

func (s *ZapSink) Emit(e Event) {
	fields := []zap.Field{zap.String("stage", string(e.Stage))}
	if e.Item != "" {
		fields = append(fields, zap.String("item", e.Item))
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}
	switch e.Level {
	case LevelError:
		s.log.Error(e.Message, fields...)
	case LevelWarn:
		s.log.Warn(e.Message, fields...)
	default:
		s.log.Info(e.Message, fields...)
	}
}

// CaptureSink records events in memory. Used by tests and by callers that
// want to inspect per-item outcomes after a run.
type CaptureSink struct {
	mu     sync.Mutex
	events []Event
}

func NewCaptureSink() *CaptureSink {
	return &CaptureSink{}
}

func (s *CaptureSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a copy of everything emitted so far.
func (s *CaptureSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByStage filters captured events by stage.
func (s *CaptureSink) ByStage(stage Stage) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Emit(Event) {}
