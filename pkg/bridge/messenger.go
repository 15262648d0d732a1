package bridge

import (
	"errors"
	"io"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/robotalks/iobus/pkg/transport/mqtt"
)

// Messenger is the publish/subscribe surface of a Bridge. Topics are
// relative to the messenger's prefix.
type Messenger interface {
	Subscribe(filter string, handler func(topic string, payload []byte)) (io.Closer, error)
	Publish(topic string, payload []byte, retain bool) error
}

// DefaultTokenTimeout bounds broker acknowledgements.
const DefaultTokenTimeout = 5 * time.Second

// ErrTokenTimeout indicates the broker didn't acknowledge in time.
var ErrTokenTimeout = errors.New("mqtt: broker acknowledgement timeout")

type queueMessenger struct {
	queue   *mqtt.Queue
	timeout time.Duration
}

// FromQueue adapts an MQTT Queue to Messenger.
func FromQueue(q *mqtt.Queue) Messenger {
	return &queueMessenger{queue: q, timeout: DefaultTokenTimeout}
}

func (m *queueMessenger) wait(token paho.Token) error {
	if !token.WaitTimeout(m.timeout) {
		return ErrTokenTimeout
	}
	return token.Error()
}

func (m *queueMessenger) Subscribe(filter string, handler func(topic string, payload []byte)) (io.Closer, error) {
	sub := m.queue.Sub(filter, handler)
	if err := m.wait(sub.Token); err != nil {
		sub.Close()
		return nil, err
	}
	return sub, nil
}

func (m *queueMessenger) Publish(topic string, payload []byte, retain bool) error {
	return m.wait(m.queue.PubWith(topic, payload, 1, retain))
}
