package wire

import (
	"strconv"
	"strings"

	"github.com/ericlarwa/gridline/internal/id"
)

type CreateStream struct {
	StreamID uint32
	Name     string
}

func (c CreateStream) Code() uint32 { return CodeCreateStream }
func (c CreateStream) Encode() []byte {
	buf := make([]byte, 4)
	putU32(buf, 0, c.StreamID)
	n := []byte(c.Name)
	buf = append(buf, byte(len(n)))
	buf = append(buf, n...)
	return buf
}
func (c CreateStream) String() string {
	return strconv.FormatUint(uint64(c.StreamID), 10) + "|" + c.Name
}

func ParseCreateStream(s string) (CreateStream, error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return CreateStream{}, New(KindInvalidCommand, "wire: CreateStream wants id|name")
	}
	n, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return CreateStream{}, New(KindInvalidCommand, "wire: bad stream id: %v", err)
	}
	if err := id.ValidateName(parts[1]); err != nil {
		return CreateStream{}, New(KindResourceNameInvalid, "%v", err)
	}
	return CreateStream{StreamID: uint32(n), Name: parts[1]}, nil
}

func decodeCreateStream(b []byte) (Command, error) {
	if err := requireLen(b, 5); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	streamID := getU32(b, 0)
	nlen := int(b[4])
	if err := requireLen(b, 5+nlen); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	name := string(b[5 : 5+nlen])
	if err := id.ValidateName(name); err != nil {
		return nil, New(KindResourceNameInvalid, "%v", err)
	}
	return CreateStream{StreamID: streamID, Name: name}, nil
}

type UpdateStream struct {
	StreamID id.Identifier
	Name     string
}

func (c UpdateStream) Code() uint32 { return CodeUpdateStream }
func (c UpdateStream) Encode() []byte {
	idBytes := c.StreamID.AsBytes()
	n := []byte(c.Name)
	buf := append([]byte{}, idBytes...)
	buf = append(buf, byte(len(n)))
	buf = append(buf, n...)
	return buf
}
func (c UpdateStream) String() string { return c.StreamID.String() + "|" + c.Name }

func ParseUpdateStream(s string) (UpdateStream, error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return UpdateStream{}, New(KindInvalidCommand, "wire: UpdateStream wants id|name")
	}
	sid, err := id.ParseIdentifier(parts[0])
	if err != nil {
		return UpdateStream{}, New(KindInvalidCommand, "%v", err)
	}
	return UpdateStream{StreamID: sid, Name: parts[1]}, nil
}

func decodeUpdateStream(b []byte) (Command, error) {
	sid, n, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	if err := requireLen(b, n+1); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	nlen := int(b[n])
	if err := requireLen(b, n+1+nlen); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	name := string(b[n+1 : n+1+nlen])
	return UpdateStream{StreamID: sid, Name: name}, nil
}

type DeleteStream struct {
	StreamID id.Identifier
}

func (c DeleteStream) Code() uint32   { return CodeDeleteStream }
func (c DeleteStream) Encode() []byte { return c.StreamID.AsBytes() }
func (c DeleteStream) String() string { return c.StreamID.String() }

func ParseDeleteStream(s string) (DeleteStream, error) {
	sid, err := id.ParseIdentifier(s)
	if err != nil {
		return DeleteStream{}, New(KindInvalidCommand, "%v", err)
	}
	return DeleteStream{StreamID: sid}, nil
}

func decodeDeleteStream(b []byte) (Command, error) {
	sid, _, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return DeleteStream{StreamID: sid}, nil
}

type GetStream struct {
	StreamID id.Identifier
}

func (c GetStream) Code() uint32   { return CodeGetStream }
func (c GetStream) Encode() []byte { return c.StreamID.AsBytes() }
func (c GetStream) String() string { return c.StreamID.String() }

func ParseGetStream(s string) (GetStream, error) {
	sid, err := id.ParseIdentifier(s)
	if err != nil {
		return GetStream{}, New(KindInvalidCommand, "%v", err)
	}
	return GetStream{StreamID: sid}, nil
}

func decodeGetStream(b []byte) (Command, error) {
	sid, _, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return GetStream{StreamID: sid}, nil
}

type GetStreams struct{}

func (GetStreams) Code() uint32   { return CodeGetStreams }
func (GetStreams) Encode() []byte { return nil }
func (GetStreams) String() string { return "" }
func decodeGetStreams([]byte) (Command, error) { return GetStreams{}, nil }
