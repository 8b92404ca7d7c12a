package server

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/mapworld/engine/binutil"
	"github.com/xiaonanln/mapworld/engine/config"
	"github.com/xiaonanln/mapworld/engine/consts"
	"github.com/xiaonanln/mapworld/engine/gwlog"
	"github.com/xiaonanln/mapworld/engine/netutil"
	"github.com/xiaonanln/mapworld/engine/opmon"
	"github.com/xiaonanln/mapworld/engine/room"
	"golang.org/x/net/websocket"
)

// MapServer accepts client connections and dispatches their requests to rooms
type MapServer struct {
	cfg      *config.ServerConfig
	registry *room.Registry

	clientProxies     map[string]*ClientProxy
	clientProxiesLock sync.RWMutex

	terminating   xnsyncutil.AtomicBool
	terminateOnce sync.Once
	terminated    *xnsyncutil.OneTimeCond
}

// NewMapServer creates a MapServer with a room for every map in store
func NewMapServer(cfg *config.ServerConfig, store room.MapStore) (*MapServer, error) {
	registry, err := room.NewRegistry(store)
	if err != nil {
		return nil, err
	}
	if cfg.DefaultWidth > 0 {
		registry.DefaultWidth = cfg.DefaultWidth
	}
	if cfg.DefaultHeight > 0 {
		registry.DefaultHeight = cfg.DefaultHeight
	}

	return &MapServer{
		cfg:           cfg,
		registry:      registry,
		clientProxies: map[string]*ClientProxy{},
		terminated:    xnsyncutil.NewOneTimeCond(),
	}, nil
}

func (ms *MapServer) String() string {
	return fmt.Sprintf("MapServer<%s>", ms.cfg.ListenAddr())
}

// Registry returns the rooms of the server
func (ms *MapServer) Registry() *room.Registry {
	return ms.registry
}

// ClientCount returns the number of connected clients
func (ms *MapServer) ClientCount() int {
	ms.clientProxiesLock.RLock()
	defer ms.clientProxiesLock.RUnlock()
	return len(ms.clientProxies)
}

func (ms *MapServer) handleWebSocketConn(ws *websocket.Conn) {
	conn := netutil.NewWebSocketConn(ws, consts.CLIENT_PROXY_MAX_MESSAGE_SIZE, consts.CLIENT_PROXY_WRITE_TIMEOUT)
	gwlog.Debugf("WebSocket Connection: %s", conn.RemoteAddr())
	ms.ServeConnection(conn)
}

// ServeConnection serves a client until its connection is closed
func (ms *MapServer) ServeConnection(conn netutil.MessageConn) {
	if ms.terminating.Load() {
		// server terminating, not accepting more connections
		conn.Close()
		return
	}

	sendQueueSize := ms.cfg.SendQueueSize
	if sendQueueSize <= 0 {
		sendQueueSize = consts.CLIENT_PROXY_SEND_QUEUE_SIZE
	}
	cp := newClientProxy(ms, conn, sendQueueSize)

	ms.clientProxiesLock.Lock()
	if old := ms.clientProxies[cp.addr]; old != nil {
		// the address is the peer identity, the stale connection has to go
		gwlog.Warnf("%s: %s replaces %s", ms, cp, old)
		old.Close()
	}
	ms.clientProxies[cp.addr] = cp
	ms.clientProxiesLock.Unlock()

	if consts.DEBUG_CLIENTS {
		gwlog.Debugf("%s.ServeConnection: client %s connected", ms, cp)
	}
	cp.serve()
}

func (ms *MapServer) onClientProxyClose(cp *ClientProxy) {
	ms.registry.LeaveRoom(cp.peer)

	ms.clientProxiesLock.Lock()
	if ms.clientProxies[cp.addr] == cp {
		delete(ms.clientProxies, cp.addr)
	}
	ms.clientProxiesLock.Unlock()

	if consts.DEBUG_CLIENTS {
		gwlog.Debugf("%s.onClientProxyClose: client %s disconnected", ms, cp)
	}
}

func (ms *MapServer) terminate() {
	ms.terminateOnce.Do(func() {
		ms.terminating.Store(true)

		ms.clientProxiesLock.RLock()
		for _, cp := range ms.clientProxies { // close all connected clients when terminating
			cp.Close()
		}
		ms.clientProxiesLock.RUnlock()

		ms.terminated.Signal()
	})
}

// statusRoutine logs the server status every interval until ctx is done
func (ms *MapServer) statusRoutine(ctx context.Context, interval time.Duration) {
	pm, err := binutil.NewProcessMonitor()
	if err != nil {
		gwlog.Errorf("%s: status disabled: %s", ms, err)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ms.logStatus(ctx, pm)
		}
	}
}

func (ms *MapServer) logStatus(ctx context.Context, pm *binutil.ProcessMonitor) {
	rooms, loaded := ms.registry.Stats()
	stats, err := pm.Sample(ctx)
	if err != nil {
		gwlog.Warnf("%s: %s", ms, errors.WithMessage(err, "sample process"))
	}
	gwlog.Infof("%s: %d rooms, %d maps loaded, %d clients, rss %.1fMB, cpu %.1f%%, %d goroutines",
		ms, rooms, loaded, ms.ClientCount(), float64(stats.RSS)/1024/1024, stats.CPUPercent, stats.NumGoroutine)

	var buf bytes.Buffer
	opmon.Dump(&buf)
	if buf.Len() > 0 {
		gwlog.Infof("%s: operations:\n%s", ms, buf.String())
	}
}
