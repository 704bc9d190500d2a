package sessionevents

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestKafkaPublisher_SendsJSONKeyedBySession(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Errors = true
	mp := mocks.NewAsyncProducer(t, cfg)
	mp.ExpectInputWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Session != "s1" || ev.Op != OpAdd || ev.Points != 3 || ev.Version != 7 {
			return fmt.Errorf("unexpected event %+v", ev)
		}
		if ev.TS.IsZero() {
			return fmt.Errorf("timestamp not stamped")
		}
		return nil
	})

	p := newWithProducer(mp, "geobuffer-sessions", 4, nil)
	p.Publish(Event{Session: "s1", Op: OpAdd, Points: 3, Version: 7})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestKafkaPublisher_DropsWhenQueueFull(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Errors = true
	mp := mocks.NewAsyncProducer(t, cfg)

	// no consumer goroutine: build the publisher by hand so the queue stays full
	p := &KafkaPublisher{events: make(chan Event, 1), prod: mp, stopped: make(chan struct{})}
	p.Publish(Event{Session: "a"})
	p.Publish(Event{Session: "b"})
	if len(p.events) != 1 {
		t.Fatalf("queue len=%d want 1", len(p.events))
	}
	if err := mp.Close(); err != nil {
		t.Fatalf("mock close: %v", err)
	}
}

func TestKafkaPublisher_PublishAfterClose(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Errors = true
	mp := mocks.NewAsyncProducer(t, cfg)

	p := newWithProducer(mp, "geobuffer-sessions", 4, nil)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// would panic with a send on a closed channel if not guarded
	p.Publish(Event{Session: "late", Op: OpClear})
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	p.Publish(Event{})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
