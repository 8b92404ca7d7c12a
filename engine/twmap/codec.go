package twmap

import (
	"bytes"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/netutil"
)

const formatVersion = 1

var (
	magic      = []byte("TWMW")
	dataPacker = netutil.MessagePackMsgPacker{}
)

// Encode serializes the map as: magic, version byte, snappy compressed MessagePack
func Encode(m *Map) ([]byte, error) {
	raw, err := dataPacker.PackMsg(m, nil)
	if err != nil {
		return nil, errors.Wrap(err, "pack map failed")
	}

	buf := make([]byte, len(magic)+1, len(magic)+1+snappy.MaxEncodedLen(len(raw)))
	copy(buf, magic)
	buf[len(magic)] = formatVersion
	return append(buf, snappy.Encode(nil, raw)...), nil
}

// Decode parses and validates a map produced by Encode
func Decode(data []byte) (*Map, error) {
	if len(data) < len(magic)+1 || !bytes.Equal(data[:len(magic)], magic) {
		return nil, errors.New("not a map file")
	}
	if v := data[len(magic)]; v != formatVersion {
		return nil, errors.Errorf("unsupported map format version %d", v)
	}

	raw, err := snappy.Decode(nil, data[len(magic)+1:])
	if err != nil {
		return nil, errors.Wrap(err, "decompress map failed")
	}
	m := &Map{}
	if err := dataPacker.UnpackMsg(raw, m); err != nil {
		return nil, errors.Wrap(err, "unpack map failed")
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid map")
	}
	return m, nil
}
