package netutil

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"
)

// MessagePackMsgPacker packs and unpacks message in MessagePack format
type MessagePackMsgPacker struct{}

// PackMsg appends the MessagePack encoding of msg to buf
func (mp MessagePackMsgPacker) PackMsg(msg interface{}, buf []byte) ([]byte, error) {
	buffer := bytes.NewBuffer(buf)

	encoder := msgpack.NewEncoder(buffer)
	err := encoder.Encode(msg)
	if err != nil {
		return buf, err
	}
	return buffer.Bytes(), nil
}

// UnpackMsg unpacks data in MessagePack format to msg. data must hold exactly one value.
func (mp MessagePackMsgPacker) UnpackMsg(data []byte, msg interface{}) error {
	reader := bytes.NewReader(data)
	if err := msgpack.NewDecoder(reader).Decode(msg); err != nil {
		return err
	}
	if reader.Len() > 0 {
		return errors.Errorf("%d trailing bytes after message", reader.Len())
	}
	return nil
}
