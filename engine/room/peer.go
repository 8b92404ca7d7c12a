package room

import (
	"sync"

	"github.com/xiaonanln/mapworld/engine/gwlog"
	"github.com/xiaonanln/mapworld/engine/netutil"
	"github.com/xiaonanln/mapworld/engine/proto"
)

// Sender delivers frames to a client. Send must not block.
type Sender interface {
	Send(frame netutil.Frame) error
}

// Peer is a connected client, identified by its network address
type Peer struct {
	addr   string
	sender Sender

	lock sync.Mutex
	room *Room
}

// NewPeer creates a Peer that is in no room
func NewPeer(addr string, sender Sender) *Peer {
	return &Peer{
		addr:   addr,
		sender: sender,
	}
}

func (p *Peer) String() string {
	return "Peer<" + p.addr + ">"
}

// Addr returns the network address of the peer
func (p *Peer) Addr() string {
	return p.addr
}

// Room returns the current room of the peer, or nil
func (p *Peer) Room() *Room {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.room
}

func (p *Peer) setRoom(r *Room) {
	p.lock.Lock()
	p.room = r
	p.lock.Unlock()
}

// Send queues a frame to the peer
func (p *Peer) Send(frame netutil.Frame) error {
	return p.sender.Send(frame)
}

// SendMessage queues a JSON message to the peer
func (p *Peer) SendMessage(mt proto.MsgType, content interface{}) error {
	data, err := proto.EncodeMessage(mt, content)
	if err != nil {
		gwlog.TraceError("%s: %s", p, err)
		return err
	}
	return p.Send(netutil.TextFrame(data))
}
