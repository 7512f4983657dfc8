package session

import (
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

// EventsTopic is the watermill topic session events are published on.
const EventsTopic = "session.events"

// EventNameKey is the message metadata key carrying the event name.
const EventNameKey = "name"

// EventPayload is the JSON shape of an event on the bus.
type EventPayload struct {
	Name   string         `json:"name"`
	Time   float64        `json:"time"`
	Fields map[string]any `json:"fields,omitempty"`
}

// publishQueueDepth bounds the events waiting to be handed to the bus.
const publishQueueDepth = 256

// WatermillPublisher forwards session events to a watermill publisher as JSON.
// Publish only enqueues; a single goroutine hands events to the bus in the
// order they were published. Events are dropped when the queue is full.
type WatermillPublisher struct {
	pub   message.Publisher
	topic string
	log   zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan *message.Message
	done   chan struct{}
}

func NewWatermillPublisher(pub message.Publisher, topic string, log zerolog.Logger) *WatermillPublisher {
	if topic == "" {
		topic = EventsTopic
	}
	p := &WatermillPublisher{
		pub:   pub,
		topic: topic,
		log:   log,
		queue: make(chan *message.Message, publishQueueDepth),
		done:  make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *WatermillPublisher) Publish(e Event) {
	payload, err := json.Marshal(EventPayload{
		Name:   e.Name,
		Time:   float64(e.Time.UnixNano()) / 1e9,
		Fields: e.Fields,
	})
	if err != nil {
		p.log.Error().Err(err).Str("event", e.Name).Msg("encode event")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(EventNameKey, e.Name)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- msg:
	default:
		eventsDroppedTotal.Inc()
		p.log.Warn().Str("event", e.Name).Msg("event queue full, dropping event")
	}
}

func (p *WatermillPublisher) loop() {
	defer close(p.done)
	for msg := range p.queue {
		if err := p.pub.Publish(p.topic, msg); err != nil {
			p.log.Warn().Err(err).Str("event", msg.Metadata.Get(EventNameKey)).Msg("publish event")
		}
	}
}

// Close hands the queued events to the bus and stops the publisher. Later
// Publish calls are ignored. Close it before the bus.
func (p *WatermillPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}

// NewEventBus returns an in-process pub/sub used to fan session events out to
// HTTP subscribers. Publish returns once every subscriber acked the message,
// which keeps events ordered per subscriber; WatermillPublisher keeps that
// wait off the session's goroutines.
func NewEventBus(log zerolog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            64,
		BlockPublishUntilSubscriberAck: true,
	}, NewWatermillLogger(log))
}

// WatermillZerologAdapter routes watermill logs to zerolog. Info is mapped to
// debug because watermill is chatty.
type WatermillZerologAdapter struct {
	logger zerolog.Logger
}

func NewWatermillLogger(logger zerolog.Logger) *WatermillZerologAdapter {
	return &WatermillZerologAdapter{logger: logger}
}

func (w *WatermillZerologAdapter) Error(msg string, err error, fields watermill.LogFields) {
	w.logger.Error().Fields(map[string]any(fields)).Err(err).Msg(msg)
}

func (w *WatermillZerologAdapter) Info(msg string, fields watermill.LogFields) {
	w.logger.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (w *WatermillZerologAdapter) Debug(msg string, fields watermill.LogFields) {
	w.logger.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (w *WatermillZerologAdapter) Trace(msg string, fields watermill.LogFields) {
	w.logger.Trace().Fields(map[string]any(fields)).Msg(msg)
}

func (w *WatermillZerologAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillZerologAdapter{logger: w.logger.With().Fields(map[string]any(fields)).Logger()}
}

var _ watermill.LoggerAdapter = &WatermillZerologAdapter{}
