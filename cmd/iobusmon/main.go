package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/iobus/pkg/bridge"
	"github.com/robotalks/iobus/pkg/frame"
	pb "github.com/robotalks/iobus/pkg/proto/iobus/v1"
	"github.com/robotalks/iobus/pkg/protocol"
	"github.com/robotalks/iobus/pkg/transport/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/iobus/"
)

func init() {
	if val := os.Getenv("IOBUS_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func decode(topic string, payload []byte) (string, proto.Message) {
	switch {
	case topic == bridge.TopicRequest:
		return "Request", &pb.Request{}
	case topic == bridge.TopicReply:
		return "Reply", &pb.Reply{}
	case strings.HasPrefix(topic, "evt/"):
		return "Event", &pb.Event{}
	}
	return "", nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		switch {
		case topic == bridge.TopicModules:
			log.Printf("%s: %s", topic, string(payload))
			return
		case topic == bridge.TopicDiscover:
			log.Printf("%s: triggered", topic)
			return
		case strings.HasPrefix(topic, "bus/"):
			f, _, err := frame.Decode(payload)
			if err != nil {
				log.Printf("%s: bad frame: %v", topic, err)
				return
			}
			log.Printf("%s: %s %s", topic, protocol.OpName(f.Opcode), f)
			return
		}
		name, msg := decode(topic, payload)
		if msg == nil {
			log.Printf("%s: % x", topic, payload)
			return
		}
		if err := proto.Unmarshal(payload, msg); err != nil {
			log.Printf("%s: decode error: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] %s", topic, name, msg.String())
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
