package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/smartcane/internal/log"
	"github.com/sweeney/smartcane/internal/logic"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 5 * time.Second
	retryInterval  = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	DeviceID   string
	BufferSize int
	Now        func() time.Time
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	topics Topics
	now    func() time.Time

	mu            sync.Mutex
	buffer        *ringBuffer
	everConnected bool
}

// NewRealPublisher creates a publisher for the given broker. A broker that is
// unreachable at startup is not an error; the client keeps retrying in the
// background and messages are buffered meanwhile.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.Broker == "" {
		return nil, fmt.Errorf("mqtt: no broker configured")
	}
	if o.ClientID == "" {
		o.ClientID = DefaultDeviceID
	}
	p := newPublisher(nil, TopicsFor(o.DeviceID), o.BufferSize, o.Now)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetBinaryWill(p.topics.System, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn("mqtt connection lost", "err", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if token.WaitTimeout(connectTimeout) {
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connect to broker: %w", err)
		}
	} else {
		log.Warn("mqtt broker not reachable yet, buffering", "broker", o.Broker)
	}
	return p, nil
}

func newPublisher(client paho.Client, topics Topics, bufferSize int, now func() time.Time) *RealPublisher {
	if now == nil {
		now = time.Now
	}
	return &RealPublisher{
		client: client,
		topics: topics,
		now:    now,
		buffer: newRingBuffer(bufferSize),
	}
}

// Publish sends a control loop event (QoS 0, not retained). It never waits
// for the broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	p.send(bufferedMsg{topic: p.topics.Events, payload: payload})
	return nil
}

// PublishSystem sends a system lifecycle event (QoS 1). It waits for the
// broker only while connected, so a SHUTDOWN is delivered before Close.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	msg := bufferedMsg{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained}
	token := p.send(msg)
	if token == nil {
		return nil
	}
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// send publishes msg when connected and buffers it otherwise. It returns
// the publish token, or nil when the message was buffered.
func (p *RealPublisher) send(msg bufferedMsg) paho.Token {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buffer.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if msg.qos == 0 {
		go func() {
			if token.WaitTimeout(publishTimeout) && token.Error() != nil {
				log.Warn("mqtt publish failed", "topic", msg.topic, "err", token.Error())
			}
		}()
	}
	return token
}

// onConnect replays buffered messages and, after a reconnection, announces it.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	pending := p.buffer.drainAll()
	reconnect := p.everConnected
	p.everConnected = true
	p.mu.Unlock()

	log.Info("mqtt connected", "replay", len(pending), "reconnect", reconnect)
	for _, msg := range pending {
		p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	}
	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		p.client.Publish(p.topics.System, 1, false, payload)
	}
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
