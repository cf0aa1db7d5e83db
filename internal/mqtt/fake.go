package mqtt

import (
	"github.com/sweeney/smartcane/internal/logic"
)

// Message is one publish as a broker would see it.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// FakePublisher records what would reach the broker. It formats and routes
// messages the way RealPublisher does, minus the connection.
type FakePublisher struct {
	// Topics routes messages. The zero value uses the default device.
	Topics Topics

	// Events and SystemEvents hold what was accepted, in order; Payloads and
	// SystemPayloads hold the matching JSON.
	Events         []logic.Event
	Payloads       [][]byte
	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Messages holds every accepted publish across both topics.
	Messages []Message

	// PublishError and PublishSystemError, if set, fail the matching call
	// and nothing is recorded.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher creates a FakePublisher routed to the default device topics.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Topics: TopicsFor("")}
}

// Publish records a control loop event on the events topic.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	f.record(Message{Topic: f.topics().Events, Payload: payload})
	return nil
}

// PublishSystem records a lifecycle event on the system topic at QoS 1.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	f.record(Message{Topic: f.topics().System, Payload: payload, QoS: 1, Retained: event.Retained})
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// OfType returns the recorded events of one type, in publish order.
func (f *FakePublisher) OfType(t logic.EventType) []logic.Event {
	var out []logic.Event
	for _, e := range f.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// SystemEventNames returns the Event field of each recorded system event.
func (f *FakePublisher) SystemEventNames() []string {
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}

// RetainedOn returns the last retained payload on topic, which is what a
// subscriber joining now would receive.
func (f *FakePublisher) RetainedOn(topic string) ([]byte, bool) {
	for i := len(f.Messages) - 1; i >= 0; i-- {
		if m := f.Messages[i]; m.Topic == topic && m.Retained {
			return m.Payload, true
		}
	}
	return nil, false
}

func (f *FakePublisher) topics() Topics {
	if f.Topics == (Topics{}) {
		return TopicsFor("")
	}
	return f.Topics
}

func (f *FakePublisher) record(m Message) {
	f.Messages = append(f.Messages, m)
}
