package eventsvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/trezcool/kodi/core"
)

// LogPublisher only logs events, at debug level. It is used when no broker is configured.
type LogPublisher struct {
	logger core.Logger
}

var _ core.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger core.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, evt core.Event) error {
	p.logger.Debug(fmt.Sprintf("event %s", evt.Name), map[string]interface{}{"subject_id": evt.SubjectID})
	return nil
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []core.Event
}

var _ core.EventPublisher = (*Recorder)(nil)

func (r *Recorder) Publish(_ context.Context, evt core.Event) error {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
	return nil
}

// Names returns the names of the published events, in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		names = append(names, evt.Name)
	}
	return names
}

func (r *Recorder) Events() []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Event(nil), r.events...)
}

// New connects to the configured broker, falling back to a LogPublisher.
// The returned closer releases the connection.
func New(conf *core.Config, logger core.Logger) (core.EventPublisher, func()) {
	if conf.Events.AMQPURL == "" {
		return NewLogPublisher(logger), func() {}
	}
	pub, err := NewAMQPPublisher(conf)
	if err != nil {
		logger.Error(fmt.Sprintf("events disabled: %v", err), err)
		return NewLogPublisher(logger), func() {}
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Warn(fmt.Sprintf("closing event publisher: %v", err), err)
		}
	}
}
