// Package bridge exposes a bus master on an MQTT broker: remote clients
// publish requests and receive replies, module events and the module list.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/iobus/pkg/master"
	pb "github.com/robotalks/iobus/pkg/proto/iobus/v1"
)

// Topics relative to the messenger prefix.
const (
	TopicRequest  = "req"
	TopicReply    = "rep"
	TopicDiscover = "discover"
	TopicModules  = "modules"
	TopicEvents   = "evt/+/+"
)

// EventTopic returns the topic of events of eventType from moduleID.
func EventTopic(moduleID uint16, eventType byte) string {
	return fmt.Sprintf("evt/%d/%d", moduleID, eventType)
}

// Bridge binds a Master to a Messenger.
type Bridge struct {
	// DiscoverWindow is passed to Master.Discover.
	DiscoverWindow time.Duration

	master *master.Master
	msg    Messenger
}

// New creates a Bridge.
func New(m *master.Master, msg Messenger) *Bridge {
	return &Bridge{
		DiscoverWindow: master.DefaultDiscoverWindow,
		master:         m,
		msg:            msg,
	}
}

// Run serves requests and discovery triggers until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	var subs []io.Closer
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()
	sub, err := b.msg.Subscribe(TopicRequest, func(_ string, payload []byte) {
		go b.handleRequest(ctx, payload)
	})
	if err != nil {
		return err
	}
	subs = append(subs, sub)
	sub, err = b.msg.Subscribe(TopicDiscover, func(string, []byte) {
		go func() {
			if err := b.Discover(ctx); err != nil {
				glog.Errorf("bridge: discover: %v", err)
			}
		}()
	})
	if err != nil {
		return err
	}
	subs = append(subs, sub)
	glog.Info("bridge: serving")
	<-ctx.Done()
	return ctx.Err()
}

func (b *Bridge) handleRequest(ctx context.Context, payload []byte) {
	var req pb.Request
	if err := proto.Unmarshal(payload, &req); err != nil {
		glog.Warningf("bridge: bad request: %v", err)
		return
	}
	reply := b.Serve(ctx, &req)
	data, err := proto.Marshal(reply)
	if err != nil {
		glog.Errorf("bridge: encode reply: %v", err)
		return
	}
	if err = b.msg.Publish(TopicReply, data, false); err != nil {
		glog.Errorf("bridge: publish reply %d: %v", reply.Seq, err)
	}
}

// Serve runs one request on the master.
func (b *Bridge) Serve(ctx context.Context, req *pb.Request) *pb.Reply {
	reply := &pb.Reply{Seq: req.Seq}
	if req.ModuleId > 0xffff || req.Opcode > 0xff {
		reply.Error = master.ErrInvalidID.Error()
		return reply
	}
	var opts []master.RequestOption
	if req.TimeoutMs > 0 {
		opts = append(opts, master.WithTimeout(time.Duration(req.TimeoutMs)*time.Millisecond))
	}
	if req.Retries >= 0 {
		opts = append(opts, master.WithRetries(int(req.Retries)))
	}
	if req.NoAck {
		opts = append(opts, master.WithoutAck())
	}
	resp, err := b.master.Request(ctx, uint16(req.ModuleId), byte(req.Opcode), req.Payload, opts...)
	if err != nil {
		reply.Error = err.Error()
		var nack *master.NackError
		var timeout *master.TimeoutError
		switch {
		case errors.As(err, &nack):
			reply.Nack, reply.Payload = true, nack.Payload
		case errors.As(err, &timeout):
			reply.Timeout = true
		}
		return reply
	}
	reply.Payload = resp
	return reply
}

// Forward publishes events of eventType from moduleID.
func (b *Bridge) Forward(eventType byte, moduleID uint16) {
	topic := EventTopic(moduleID, eventType)
	b.master.Subscribe(eventType, moduleID, func(ev master.Event) {
		data, err := proto.Marshal(&pb.Event{
			ModuleId: uint32(ev.ModuleID),
			Type:     uint32(ev.Type),
			Payload:  ev.Payload,
		})
		if err == nil {
			err = b.msg.Publish(topic, data, false)
		}
		if err != nil {
			glog.Warningf("bridge: forward event %s: %v", topic, err)
		}
	})
}

// StopForward stops publishing events of eventType from moduleID.
func (b *Bridge) StopForward(eventType byte, moduleID uint16) {
	b.master.Unsubscribe(eventType, moduleID)
}

// Discover enumerates the bus and publishes the module list.
func (b *Bridge) Discover(ctx context.Context) error {
	if _, err := b.master.Discover(ctx, b.DiscoverWindow); err != nil {
		return err
	}
	return b.PublishModules()
}

// PublishModules publishes the directory as a retained JSON list.
func (b *Bridge) PublishModules() error {
	data, err := json.Marshal(b.master.Directory().All())
	if err != nil {
		return err
	}
	return b.msg.Publish(TopicModules, data, true)
}
