package server

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/mapworld/engine/consts"
	"github.com/xiaonanln/mapworld/engine/gwlog"
	"github.com/xiaonanln/mapworld/engine/gwutils"
	"github.com/xiaonanln/mapworld/engine/netutil"
	"github.com/xiaonanln/mapworld/engine/room"
)

var errSendQueueFull = errors.New("send queue full")

// ClientProxy is a client connection managed by the map server
type ClientProxy struct {
	server *MapServer
	conn   netutil.MessageConn
	addr   string
	peer   *room.Peer

	sendQueue chan netutil.Frame
	done      chan struct{}
	closeOnce sync.Once
	closed    xnsyncutil.AtomicBool
}

func newClientProxy(server *MapServer, conn netutil.MessageConn, sendQueueSize int) *ClientProxy {
	cp := &ClientProxy{
		server:    server,
		conn:      conn,
		addr:      conn.RemoteAddr().String(),
		sendQueue: make(chan netutil.Frame, sendQueueSize),
		done:      make(chan struct{}),
	}
	cp.peer = room.NewPeer(cp.addr, cp)
	return cp
}

func (cp *ClientProxy) String() string {
	return fmt.Sprintf("ClientProxy<%s>", cp.addr)
}

// Send queues a frame without blocking. A client that can not keep up is disconnected.
func (cp *ClientProxy) Send(frame netutil.Frame) error {
	if cp.closed.Load() {
		return netutil.ErrConnectionClosed
	}
	select {
	case cp.sendQueue <- frame:
		return nil
	default:
		gwlog.Warnf("%s: send queue full, disconnecting", cp)
		cp.Close()
		return errSendQueueFull
	}
}

// Close closes the client connection, the serve loop quits afterwards
func (cp *ClientProxy) Close() {
	cp.closeOnce.Do(func() {
		cp.closed.Store(true)
		close(cp.done)
		cp.conn.Close()
	})
}

func (cp *ClientProxy) serve() {
	defer func() {
		cp.Close()
		cp.server.onClientProxyClose(cp)
	}()

	go gwutils.RunPanicless(cp.writeRoutine)

	for {
		data, err := cp.conn.ReadMessage()
		if err == netutil.ErrMessageTooLarge {
			gwlog.Warnf("%s: message too large, dropped", cp)
			continue
		}
		if err != nil {
			if cp.closed.Load() || netutil.IsConnectionError(err) {
				gwlog.Debugf("%s disconnected: %s", cp, err)
			} else {
				gwlog.Errorf("%s read failed: %s", cp, err)
			}
			return
		}
		if consts.DEBUG_PACKETS {
			gwlog.Debugf("%s: RECV %s", cp, data)
		}
		gwutils.RunPanicless(func() {
			cp.handleMessage(data)
		})
	}
}

func (cp *ClientProxy) writeRoutine() {
	for {
		select {
		case frame := <-cp.sendQueue:
			if consts.DEBUG_PACKETS {
				gwlog.Debugf("%s: SEND %d bytes, binary=%v", cp, len(frame.Data), frame.Binary)
			}
			if err := cp.conn.WriteFrame(frame); err != nil {
				if !netutil.IsConnectionError(err) {
					gwlog.Errorf("%s write failed: %s", cp, err)
				}
				cp.Close()
				return
			}
		case <-cp.done:
			return
		}
	}
}
