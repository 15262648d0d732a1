// Package env builds the runtime of the binaries from configuration:
// environment variables, command line flags and an optional YAML file.
package env

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/iobus/pkg/master"
)

// Config is the runtime configuration.
type Config struct {
	// Bus is the URL of the bus transport, e.g.
	//   serial:///dev/ttyUSB0?baud=1000000
	//   slcan:///dev/ttyACM0?bitrate=500
	//   tcp://host:port
	//   ws://host:port/bus
	//   mqtt://host:1883/iobus/?bus=line1
	Bus string `yaml:"bus"`
	// MQTTBrokerURL is the broker of the bridge, e.g. mqtt://host:1883/iobus/
	MQTTBrokerURL string `yaml:"mqtt"`
	// Capture is a pcap file recording every frame on the bus.
	Capture string `yaml:"capture"`
	// Name identifies this node on the broker.
	Name string `yaml:"name"`

	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
	PollInterval time.Duration `yaml:"poll_interval"`
	IdleWarn     time.Duration `yaml:"idle_warn"`
}

var defaultConfig = Config{
	Bus:           "serial:///dev/ttyUSB0",
	MQTTBrokerURL: "mqtt://localhost:1883/iobus/",
	Timeout:       master.DefaultTimeout,
	Retries:       master.DefaultMaxRetries,
	PollInterval:  master.DefaultPollInterval,
}

var configFile string

func init() {
	if val := os.Getenv("IOBUS_BUS"); val != "" {
		defaultConfig.Bus = val
	}
	if val := os.Getenv("IOBUS_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("IOBUS_CAPTURE"); val != "" {
		defaultConfig.Capture = val
	}
	if val := os.Getenv("IOBUS_NAME"); val != "" {
		defaultConfig.Name = val
	}
	if val, err := time.ParseDuration(os.Getenv("IOBUS_TIMEOUT")); err == nil {
		defaultConfig.Timeout = val
	}
	if val, err := strconv.Atoi(os.Getenv("IOBUS_RETRIES")); err == nil {
		defaultConfig.Retries = val
	}
	configFile = os.Getenv("IOBUS_CONFIG")
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "YAML config file")
	flag.StringVar(&defaultConfig.Bus, "bus", defaultConfig.Bus, "Bus transport URL")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.Capture, "capture", defaultConfig.Capture, "Record frames to pcap file")
	flag.StringVar(&defaultConfig.Name, "name", defaultConfig.Name, "Node name, defaults to machine id")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Request timeout per transmission")
	flag.IntVar(&defaultConfig.Retries, "retries", defaultConfig.Retries, "Request retransmissions")
	flag.DurationVar(&defaultConfig.IdleWarn, "idle-warn", defaultConfig.IdleWarn, "Warn when the bus is silent this long")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config from the defaults, overlaid with the config
// file when one was given by -config or IOBUS_CONFIG.
func NewConfig() (*Config, error) {
	conf := defaultConfig
	if configFile != "" {
		if err := conf.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	return &conf, nil
}

// MustNewConfig is NewConfig failing on error.
func MustNewConfig() *Config {
	conf, err := NewConfig()
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

// LoadFile overlays the settings present in a YAML file.
func (c *Config) LoadFile(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return err
	}
	return c.Load(data)
}

// Load overlays the settings present in YAML data.
func (c *Config) Load(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NodeName returns Name or a name derived from the machine id.
func (c *Config) NodeName() string {
	if c.Name != "" {
		return c.Name
	}
	id := MachineID()
	if len(id) > 12 {
		id = id[:12]
	}
	return "iobus-" + id
}

// MasterOptions returns the request options of the config.
func (c *Config) MasterOptions() master.Options {
	return master.Options{Timeout: c.Timeout, MaxRetries: c.Retries}
}
