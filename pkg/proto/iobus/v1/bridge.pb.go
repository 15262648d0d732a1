// Package v1 contains the bridge wire messages declared in bridge.proto.
package v1

import (
	proto "github.com/golang/protobuf/proto"
)

// Request asks the bridge to run a bus request.
type Request struct {
	Seq       uint32 `protobuf:"varint,1,opt,name=seq,proto3" json:"seq,omitempty"`
	ModuleId  uint32 `protobuf:"varint,2,opt,name=module_id,json=moduleId,proto3" json:"module_id,omitempty"`
	Opcode    uint32 `protobuf:"varint,3,opt,name=opcode,proto3" json:"opcode,omitempty"`
	Payload   []byte `protobuf:"bytes,4,opt,name=payload,proto3" json:"payload,omitempty"`
	TimeoutMs uint32 `protobuf:"varint,5,opt,name=timeout_ms,json=timeoutMs,proto3" json:"timeout_ms,omitempty"`
	Retries   int32  `protobuf:"varint,6,opt,name=retries,proto3" json:"retries,omitempty"`
	NoAck     bool   `protobuf:"varint,7,opt,name=no_ack,json=noAck,proto3" json:"no_ack,omitempty"`
}

func (m *Request) Reset()         { *m = Request{} }
func (m *Request) String() string { return proto.CompactTextString(m) }
func (*Request) ProtoMessage()    {}

// Reply is the outcome of a Request.
type Reply struct {
	Seq     uint32 `protobuf:"varint,1,opt,name=seq,proto3" json:"seq,omitempty"`
	Payload []byte `protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty"`
	Error   string `protobuf:"bytes,3,opt,name=error,proto3" json:"error,omitempty"`
	Nack    bool   `protobuf:"varint,4,opt,name=nack,proto3" json:"nack,omitempty"`
	Timeout bool   `protobuf:"varint,5,opt,name=timeout,proto3" json:"timeout,omitempty"`
}

func (m *Reply) Reset()         { *m = Reply{} }
func (m *Reply) String() string { return proto.CompactTextString(m) }
func (*Reply) ProtoMessage()    {}

// Event is a module event forwarded by the bridge.
type Event struct {
	ModuleId uint32 `protobuf:"varint,1,opt,name=module_id,json=moduleId,proto3" json:"module_id,omitempty"`
	Type     uint32 `protobuf:"varint,2,opt,name=type,proto3" json:"type,omitempty"`
	Payload  []byte `protobuf:"bytes,3,opt,name=payload,proto3" json:"payload,omitempty"`
}

func (m *Event) Reset()         { *m = Event{} }
func (m *Event) String() string { return proto.CompactTextString(m) }
func (*Event) ProtoMessage()    {}

func init() {
	proto.RegisterType((*Request)(nil), "iobus.v1.Request")
	proto.RegisterType((*Reply)(nil), "iobus.v1.Reply")
	proto.RegisterType((*Event)(nil), "iobus.v1.Event")
}
