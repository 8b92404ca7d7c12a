package netutil

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/websocket"
)

var (
	// ErrConnectionClosed is returned when writing to a closed MessageConn
	ErrConnectionClosed = errors.New("connection closed")
	// ErrMessageTooLarge is returned by ReadMessage for an oversized message, which is discarded
	ErrMessageTooLarge = websocket.ErrFrameTooLarge
)

// Frame is one outbound message. Binary frames carry raw bytes, the rest are text.
type Frame struct {
	Data   []byte
	Binary bool
}

// TextFrame creates a text frame
func TextFrame(data []byte) Frame {
	return Frame{Data: data}
}

// BinaryFrame creates a binary frame
func BinaryFrame(data []byte) Frame {
	return Frame{Data: data, Binary: true}
}

// MessageConn is a duplex connection exchanging whole messages
type MessageConn interface {
	ReadMessage() ([]byte, error)
	WriteFrame(f Frame) error
	RemoteAddr() net.Addr
	Close() error
}

// WebSocketConn adapts a websocket connection to MessageConn
type WebSocketConn struct {
	ws           *websocket.Conn
	addr         net.Addr
	writeTimeout time.Duration
}

type remoteAddr string

func (a remoteAddr) Network() string { return "websocket" }
func (a remoteAddr) String() string  { return string(a) }

// NewWebSocketConn creates a MessageConn over ws limiting inbound messages to maxMessageSize bytes
func NewWebSocketConn(ws *websocket.Conn, maxMessageSize int, writeTimeout time.Duration) *WebSocketConn {
	ws.MaxPayloadBytes = maxMessageSize
	// the server side websocket reports the origin as its remote address
	var addr net.Addr
	if req := ws.Request(); req != nil {
		addr = remoteAddr(req.RemoteAddr)
	} else {
		addr = ws.RemoteAddr()
	}
	return &WebSocketConn{ws: ws, addr: addr, writeTimeout: writeTimeout}
}

// ReadMessage blocks until the next text or binary message arrives
func (wc *WebSocketConn) ReadMessage() ([]byte, error) {
	var data []byte
	err := websocket.Message.Receive(wc.ws, &data)
	return data, err
}

// WriteFrame sends the frame as a websocket text or binary message
func (wc *WebSocketConn) WriteFrame(f Frame) error {
	if wc.writeTimeout > 0 {
		wc.ws.SetWriteDeadline(time.Now().Add(wc.writeTimeout))
	}
	if f.Binary {
		return websocket.Message.Send(wc.ws, f.Data)
	}
	return websocket.Message.Send(wc.ws, string(f.Data))
}

// RemoteAddr returns the address of the peer
func (wc *WebSocketConn) RemoteAddr() net.Addr {
	return wc.addr
}

// Close closes the websocket
func (wc *WebSocketConn) Close() error {
	return wc.ws.Close()
}

func (wc *WebSocketConn) String() string {
	return "WebSocketConn<" + wc.RemoteAddr().String() + ">"
}
