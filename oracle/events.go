package oracle

import (
	"encoding/hex"

	"github.com/sirupsen/logrus"
)

// Event is NewBlockHeader(hash, height, rawHeader, latestUpdated), emitted
// exactly once per accepted submission.
type Event struct {
	Hash          [32]byte
	Height        uint64
	Raw           []byte
	LatestUpdated bool
}

// EventSink is the host collaborator that receives chain events. The
// oracle calls it synchronously once a submission has committed, so a slow
// sink delays the submitting caller.
type EventSink interface {
	NewBlockHeader(Event)
}

// NopEventSink discards every event.
type NopEventSink struct{}

func (NopEventSink) NewBlockHeader(Event) {}

// ChannelEventSink fans accepted-submission events out over a buffered
// channel. A full channel drops the event rather than blocking the
// submitting caller.
type ChannelEventSink struct {
	ch chan Event
}

func NewChannelEventSink(buffer int) *ChannelEventSink {
	return &ChannelEventSink{ch: make(chan Event, buffer)}
}

func (s *ChannelEventSink) Events() <-chan Event { return s.ch }

func (s *ChannelEventSink) NewBlockHeader(e Event) {
	select {
	case s.ch <- e:
	default:
	}
}

// LogEventSink writes a structured log line per event.
type LogEventSink struct {
	log *logrus.Logger
}

func NewLogEventSink(log *logrus.Logger) *LogEventSink {
	return &LogEventSink{log: log}
}

func (s *LogEventSink) NewBlockHeader(e Event) {
	s.log.WithFields(logrus.Fields{
		"block_hash":     hex.EncodeToString(e.Hash[:]),
		"block_height":   e.Height,
		"latest_updated": e.LatestUpdated,
	}).Info("new block header")
}

// MultiEventSink fans a single event out to every sink in the slice.
type MultiEventSink []EventSink

func (m MultiEventSink) NewBlockHeader(e Event) {
	for _, s := range m {
		s.NewBlockHeader(e)
	}
}
