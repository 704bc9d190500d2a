// Package sessionevents publishes point-store mutations to Kafka.
package sessionevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

type Op string

const (
	OpAdd       Op = "add"
	OpImport    Op = "import"
	OpClick     Op = "click"
	OpDelete    Op = "delete"
	OpClear     Op = "clear"
	OpConfigure Op = "configure"
)

type Event struct {
	Session  string    `json:"session"`
	Op       Op        `json:"op"`
	Points   int       `json:"points"`
	Affected int       `json:"affected,omitempty"`
	Version  uint64    `json:"version"`
	Shape    string    `json:"shape,omitempty"`
	Distance float64   `json:"distance,omitempty"`
	TS       time.Time `json:"ts"`
}

// Publisher never blocks the caller.
type Publisher interface {
	Publish(ev Event)
	Close() error
}

type Nop struct{}

func (Nop) Publish(Event) {}
func (Nop) Close() error  { return nil }

type KafkaPublisher struct {
	topic   string
	log     *slog.Logger
	events  chan Event
	prod    sarama.AsyncProducer
	stopped chan struct{}

	mu     sync.Mutex // guards closed and sends on events
	closed bool
}

func NewKafka(brokers []string, topic string, queueSize int, log *slog.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("sessionevents: create async producer: %w", err)
	}
	return newWithProducer(prod, topic, queueSize, log), nil
}

func newWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *KafkaPublisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	p := &KafkaPublisher{
		topic:   topic,
		log:     log,
		events:  make(chan Event, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Warn("sessionevents: marshal", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Session),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Warn("sessionevents: producer error", "err", err)
			}
		}
	}()

	return p
}

// Publish after Close is a no-op.
func (p *KafkaPublisher) Publish(ev Event) {
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		// queue full, drop
	}
}

// Close drains queued events into the producer, then closes it. Only the
// first call does anything.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.stopped
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("sessionevents: close producer: %w", err)
	}
	return nil
}
