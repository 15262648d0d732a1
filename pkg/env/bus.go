package env

import (
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/golang/glog"

	"github.com/robotalks/iobus/pkg/master"
	"github.com/robotalks/iobus/pkg/transport"
	"github.com/robotalks/iobus/pkg/transport/mqtt"
	"github.com/robotalks/iobus/pkg/transport/serial"
	"github.com/robotalks/iobus/pkg/transport/slcan"
	"github.com/robotalks/iobus/pkg/transport/websocket"
)

// Role selects the side of a bus link with direction dependent topics.
type Role int

// Roles.
const (
	RoleMaster Role = iota
	RoleModule
)

// Bus is an opened transport with the resources behind it.
type Bus struct {
	transport.Transport
	closers []io.Closer
}

// Close closes the transport and everything opened with it.
func (b *Bus) Close() error {
	var firstErr error
	if err := transport.Close(b.Transport); err != nil {
		firstErr = err
	}
	for n := len(b.closers) - 1; n >= 0; n-- {
		if err := b.closers[n].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenBus opens the transport of Bus for role and wraps it with a capture
// when configured.
func (c *Config) OpenBus(role Role) (*Bus, error) {
	bus, err := c.openTransport(role)
	if err != nil {
		return nil, err
	}
	if c.Capture == "" {
		return bus, nil
	}
	f, err := os.Create(c.Capture)
	if err != nil {
		bus.Close()
		return nil, err
	}
	capture, err := transport.NewCapture(bus.Transport, f)
	if err != nil {
		f.Close()
		bus.Close()
		return nil, err
	}
	glog.Infof("capturing frames to %s", c.Capture)
	bus.Transport = capture
	bus.closers = append(bus.closers, f)
	return bus, nil
}

func (c *Config) openTransport(role Role) (*Bus, error) {
	u, err := url.Parse(c.Bus)
	if err != nil {
		return nil, fmt.Errorf("invalid bus URL: %w", err)
	}
	query := u.Query()
	switch u.Scheme {
	case "serial":
		cfg := serial.DefaultConfig(u.Path)
		if val := query.Get("baud"); val != "" {
			if cfg.Baud, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("invalid baud %q", val)
			}
		}
		s, err := serial.Open(cfg)
		if err != nil {
			return nil, err
		}
		return &Bus{Transport: s}, nil
	case "slcan":
		kbps := 500
		if val := query.Get("bitrate"); val != "" {
			if kbps, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("invalid bitrate %q", val)
			}
		}
		t, err := slcan.Open(serial.DefaultConfig(u.Path), kbps)
		if err != nil {
			return nil, err
		}
		return &Bus{Transport: t}, nil
	case "tcp":
		conn, err := net.Dial("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return &Bus{Transport: transport.NewStream(conn)}, nil
	case "ws", "wss":
		t, err := websocket.Dial(c.Bus)
		if err != nil {
			return nil, err
		}
		return &Bus{Transport: t}, nil
	case "mqtt", "tls", "ssl":
		name := query.Get("bus")
		if name == "" {
			name = "default"
		}
		q, err := c.openQueue(c.Bus, "-bus")
		if err != nil {
			return nil, err
		}
		var t *mqtt.Transport
		if role == RoleMaster {
			t = mqtt.ForMaster(q, name)
		} else {
			t = mqtt.ForGateway(q, name)
		}
		return &Bus{Transport: t, closers: []io.Closer{q}}, nil
	default:
		return nil, fmt.Errorf("unknown bus URL scheme: %q", u.Scheme)
	}
}

// OpenQueue connects to the MQTT broker of the bridge.
func (c *Config) OpenQueue() (*mqtt.Queue, error) {
	return c.openQueue(c.MQTTBrokerURL, "")
}

func (c *Config) openQueue(brokerURL, suffix string) (*mqtt.Queue, error) {
	opts, prefix, err := mqtt.ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID(c.NodeName() + suffix)
	}
	q := mqtt.NewQueue(opts, prefix)
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", brokerURL, token.Error())
	}
	return q, nil
}

// NewMaster opens the bus and creates a Master on it. The caller runs the
// Master and closes the Bus.
func (c *Config) NewMaster() (*master.Master, *Bus, error) {
	bus, err := c.OpenBus(RoleMaster)
	if err != nil {
		return nil, nil, err
	}
	m := master.New(bus)
	m.Options = c.MasterOptions()
	if c.PollInterval > 0 {
		m.PollInterval = c.PollInterval
	}
	m.IdleWarn = c.IdleWarn
	return m, bus, nil
}

// MustNewMaster is NewMaster failing on error.
func (c *Config) MustNewMaster() (*master.Master, *Bus) {
	m, bus, err := c.NewMaster()
	if err != nil {
		log.Fatalln(err)
	}
	return m, bus
}
