// Package relay republishes each completed multimeter reading to an MQTT
// broker so other tools can log or chart it alongside the video feed.
//
// The frame loop must never wait on the network: Publish only enqueues, and a
// background goroutine owns the broker connection.
package relay

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"

	"github.com/MajenkoProjects/InstrumentVideo/config"
	"github.com/MajenkoProjects/InstrumentVideo/internal/ratelimit"
	"github.com/MajenkoProjects/InstrumentVideo/telemetry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const queueSize = 64

// Message is the JSON payload for one reading. Number is omitted when the
// value token is not numeric (for example an overload).
type Message struct {
	Label    string   `json:"label"`
	Value    string   `json:"value"`
	Unit     string   `json:"unit,omitempty"`
	Number   *float64 `json:"number,omitempty"`
	Overflow bool     `json:"overflow,omitempty"`
	TimeMs   int64    `json:"ts"`
}

// NewMessage converts a reading to its wire form.
func NewMessage(r telemetry.Reading) Message {
	m := Message{
		Label:    r.Label,
		Value:    r.Value,
		Unit:     r.Unit,
		Overflow: r.IsOverflow(),
		TimeMs:   r.At.UnixMilli(),
	}
	if !m.Overflow {
		if v, err := strconv.ParseFloat(r.Value, 64); err == nil {
			m.Number = &v
		}
	}
	return m
}

// Encode returns the JSON payload for r.
func Encode(r telemetry.Reading) ([]byte, error) {
	return json.Marshal(NewMessage(r))
}

// publishFunc delivers one payload; it may block.
type publishFunc func(topic string, payload []byte) error

// Client relays readings to a broker.
//
// Thread Safety:
//   - Publish is called from the frame loop and never blocks
//   - the drain goroutine is the only caller of the publish function
//   - paho handles reconnects on its own goroutines
type Client struct {
	topic   string
	queue   chan telemetry.Reading
	publish publishFunc
	mqtt    mqtt.Client

	sent     atomic.Uint64
	dropped  *ratelimit.Counter
	failures *ratelimit.Counter

	stopOnce sync.Once
	done     chan struct{}
}

func newClient(topic string, publish publishFunc) *Client {
	c := &Client{
		topic:    topic,
		queue:    make(chan telemetry.Reading, queueSize),
		publish:  publish,
		dropped:  ratelimit.NewCounter(time.Minute),
		failures: ratelimit.NewCounter(time.Minute),
		done:     make(chan struct{}),
	}
	go c.drain()
	return c
}

// Connect dials the broker described by cfg and starts the relay. Auto
// reconnect keeps the relay alive across broker restarts.
func Connect(cfg config.RelayConfig) (*Client, error) {
	opts := mqtt.NewClientOptions()
	brokerURL := fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)
	opts.AddBroker(brokerURL)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("instrumentvideo-%d", time.Now().Unix())
	}
	opts.SetClientID(clientID)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Printf("Relay: connected to %s (topic %s)", brokerURL, cfg.Topic)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("Relay: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	log.Printf("Relay: connecting to MQTT broker at %s...", brokerURL)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", brokerURL, token.Error())
	}
	c := newClient(cfg.Topic, func(topic string, payload []byte) error {
		t := client.Publish(topic, 0, false, payload)
		if !t.WaitTimeout(5 * time.Second) {
			return fmt.Errorf("publish to %s timed out", topic)
		}
		return t.Error()
	})
	c.mqtt = client
	return c, nil
}

// Publish enqueues r for delivery. When the queue is full the reading is
// dropped and counted. Safe on a nil Client.
func (c *Client) Publish(r telemetry.Reading) {
	if c == nil {
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.queue <- r:
	default:
		if total, ok := c.dropped.Inc(); ok {
			log.Printf("Relay: queue full, %d readings dropped so far", total)
		}
	}
}

// Sent returns the number of readings delivered.
func (c *Client) Sent() uint64 {
	if c == nil {
		return 0
	}
	return c.sent.Load()
}

// Dropped returns the number of readings discarded on a full queue.
func (c *Client) Dropped() uint64 {
	if c == nil {
		return 0
	}
	return c.dropped.Total()
}

// Stop ends the drain goroutine and disconnects from the broker.
func (c *Client) Stop() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() {
		close(c.done)
		if c.mqtt != nil && c.mqtt.IsConnected() {
			c.mqtt.Disconnect(250)
		}
	})
}

func (c *Client) drain() {
	for {
		select {
		case <-c.done:
			return
		case r := <-c.queue:
			payload, err := Encode(r)
			if err != nil {
				log.Printf("Relay: encode failed: %v", err)
				continue
			}
			if err := c.publish(c.topic, payload); err != nil {
				if total, ok := c.failures.Inc(); ok {
					log.Printf("Relay: publish failed (%d total): %v", total, err)
				}
				continue
			}
			c.sent.Add(1)
		}
	}
}
