package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Every client<->broker message is length-prefixed and little-endian, per
// the wire codec design: request frames carry a command code, reply frames
// carry a status.

// ReadRequestFrame reads [len u32 LE][code u32 LE][payload] from r.
func ReadRequestFrame(r io.Reader) (code uint32, payload []byte, err error) {
	var lenBuf [4]byte
	if _, err = io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, nil, err
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length < 4 {
		return 0, nil, New(KindInvalidCommand, "wire: frame length %d too short", length)
	}

	body := make([]byte, length)
	if _, err = io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	code = binary.LittleEndian.Uint32(body[:4])
	return code, body[4:], nil
}

// WriteRequestFrame writes a request frame for the given command code and
// payload.
func WriteRequestFrame(w io.Writer, code uint32, payload []byte) error {
	length := uint32(4 + len(payload))
	buf := make([]byte, 4+length)
	binary.LittleEndian.PutUint32(buf[0:4], length)
	binary.LittleEndian.PutUint32(buf[4:8], code)
	copy(buf[8:], payload)
	_, err := w.Write(buf)
	return err
}

// WriteReplyFrame writes [status u32 LE][len u32 LE][payload].
func WriteReplyFrame(w io.Writer, status Kind, payload []byte) error {
	buf := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(status))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[8:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadReplyFrame reads a reply frame, used by the client side (the CLI's
// tcp.Client).
func ReadReplyFrame(r io.Reader) (status Kind, payload []byte, err error) {
	var header [8]byte
	if _, err = io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	status = Kind(binary.LittleEndian.Uint32(header[0:4]))
	length := binary.LittleEndian.Uint32(header[4:8])
	payload = make([]byte, length)
	if length > 0 {
		if _, err = io.ReadFull(r, payload); err != nil {
			return 0, nil, err
		}
	}
	return status, payload, nil
}

func putU32(buf []byte, off int, v uint32) { binary.LittleEndian.PutUint32(buf[off:off+4], v) }
func getU32(buf []byte, off int) uint32    { return binary.LittleEndian.Uint32(buf[off : off+4]) }
func putU64(buf []byte, off int, v uint64) { binary.LittleEndian.PutUint64(buf[off:off+8], v) }
func getU64(buf []byte, off int) uint64    { return binary.LittleEndian.Uint64(buf[off : off+8]) }

func requireLen(b []byte, n int) error {
	if len(b) < n {
		return fmt.Errorf("wire: need %d bytes, have %d", n, len(b))
	}
	return nil
}
