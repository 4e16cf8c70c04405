package wire

import (
	"strconv"
	"strings"

	"github.com/ericlarwa/gridline/internal/id"
)

type CreatePartitions struct {
	StreamID      id.Identifier
	TopicID       id.Identifier
	PartitionsCount uint32
}

func (c CreatePartitions) Code() uint32 { return CodeCreatePartitions }
func (c CreatePartitions) Encode() []byte {
	buf := append([]byte{}, c.StreamID.AsBytes()...)
	buf = append(buf, c.TopicID.AsBytes()...)
	cntBuf := make([]byte, 4)
	putU32(cntBuf, 0, c.PartitionsCount)
	return append(buf, cntBuf...)
}
func (c CreatePartitions) String() string {
	return c.StreamID.String() + "|" + c.TopicID.String() + "|" + strconv.FormatUint(uint64(c.PartitionsCount), 10)
}

func ParseCreatePartitions(s string) (CreatePartitions, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return CreatePartitions{}, New(KindInvalidCommand, "wire: CreatePartitions wants stream|topic|count")
	}
	sid, err := id.ParseIdentifier(parts[0])
	if err != nil {
		return CreatePartitions{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[1])
	if err != nil {
		return CreatePartitions{}, New(KindInvalidCommand, "%v", err)
	}
	cnt, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return CreatePartitions{}, New(KindInvalidCommand, "%v", err)
	}
	return CreatePartitions{StreamID: sid, TopicID: tid, PartitionsCount: uint32(cnt)}, nil
}

func decodeCreatePartitions(b []byte) (Command, error) {
	sid, n1, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, n2, err := id.FromBytes(b[n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	pos := n1 + n2
	if err := requireLen(b, pos+4); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return CreatePartitions{StreamID: sid, TopicID: tid, PartitionsCount: getU32(b, pos)}, nil
}

type DeletePartitions struct {
	StreamID        id.Identifier
	TopicID         id.Identifier
	PartitionsCount uint32
}

func (c DeletePartitions) Code() uint32 { return CodeDeletePartitions }
func (c DeletePartitions) Encode() []byte {
	buf := append([]byte{}, c.StreamID.AsBytes()...)
	buf = append(buf, c.TopicID.AsBytes()...)
	cntBuf := make([]byte, 4)
	putU32(cntBuf, 0, c.PartitionsCount)
	return append(buf, cntBuf...)
}
func (c DeletePartitions) String() string {
	return c.StreamID.String() + "|" + c.TopicID.String() + "|" + strconv.FormatUint(uint64(c.PartitionsCount), 10)
}

func ParseDeletePartitions(s string) (DeletePartitions, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return DeletePartitions{}, New(KindInvalidCommand, "wire: DeletePartitions wants stream|topic|count")
	}
	sid, err := id.ParseIdentifier(parts[0])
	if err != nil {
		return DeletePartitions{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[1])
	if err != nil {
		return DeletePartitions{}, New(KindInvalidCommand, "%v", err)
	}
	cnt, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return DeletePartitions{}, New(KindInvalidCommand, "%v", err)
	}
	return DeletePartitions{StreamID: sid, TopicID: tid, PartitionsCount: uint32(cnt)}, nil
}

func decodeDeletePartitions(b []byte) (Command, error) {
	sid, n1, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, n2, err := id.FromBytes(b[n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	pos := n1 + n2
	if err := requireLen(b, pos+4); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return DeletePartitions{StreamID: sid, TopicID: tid, PartitionsCount: getU32(b, pos)}, nil
}
