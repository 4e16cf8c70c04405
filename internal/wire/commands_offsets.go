package wire

import (
	"strconv"
	"strings"

	"github.com/ericlarwa/gridline/internal/id"
)

// noPartition is the wire sentinel for "no partition id specified" (Open
// Question a): 0 on the wire decodes to nil, nil encodes as 0, because
// partitions are 1-indexed and 0 is never a valid user-facing partition id.
const noPartition = 0

type StoreConsumerOffset struct {
	Consumer    Consumer
	StreamID    id.Identifier
	TopicID     id.Identifier
	PartitionID *uint32
	Offset      uint64
}

func (c StoreConsumerOffset) Code() uint32 { return CodeStoreConsumerOffset }
func (c StoreConsumerOffset) Encode() []byte {
	buf := append([]byte{}, c.Consumer.AsBytes()...)
	buf = append(buf, c.StreamID.AsBytes()...)
	buf = append(buf, c.TopicID.AsBytes()...)
	partBuf := make([]byte, 4)
	if c.PartitionID != nil {
		putU32(partBuf, 0, *c.PartitionID)
	}
	buf = append(buf, partBuf...)
	offBuf := make([]byte, 8)
	putU64(offBuf, 0, c.Offset)
	return append(buf, offBuf...)
}
func (c StoreConsumerOffset) String() string {
	partStr := "0"
	if c.PartitionID != nil {
		partStr = strconv.FormatUint(uint64(*c.PartitionID), 10)
	}
	return strings.Join([]string{
		c.Consumer.Kind.String(), strconv.FormatUint(uint64(c.Consumer.ID), 10),
		c.StreamID.String(), c.TopicID.String(), partStr,
		strconv.FormatUint(c.Offset, 10),
	}, "|")
}

func ParseStoreConsumerOffset(s string) (StoreConsumerOffset, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 6 {
		return StoreConsumerOffset{}, New(KindInvalidCommand, "wire: StoreConsumerOffset wants 6 fields")
	}
	kind, err := ParseConsumerKind(parts[0])
	if err != nil {
		return StoreConsumerOffset{}, err
	}
	cid, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return StoreConsumerOffset{}, New(KindInvalidCommand, "%v", err)
	}
	sid, err := id.ParseIdentifier(parts[2])
	if err != nil {
		return StoreConsumerOffset{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[3])
	if err != nil {
		return StoreConsumerOffset{}, New(KindInvalidCommand, "%v", err)
	}
	partVal, err := strconv.ParseUint(parts[4], 10, 32)
	if err != nil {
		return StoreConsumerOffset{}, New(KindInvalidCommand, "%v", err)
	}
	offset, err := strconv.ParseUint(parts[5], 10, 64)
	if err != nil {
		return StoreConsumerOffset{}, New(KindInvalidCommand, "%v", err)
	}
	cmd := StoreConsumerOffset{
		Consumer: Consumer{Kind: kind, ID: uint32(cid)},
		StreamID: sid, TopicID: tid, Offset: offset,
	}
	if partVal != noPartition {
		p := uint32(partVal)
		cmd.PartitionID = &p
	}
	return cmd, nil
}

func decodeStoreConsumerOffset(b []byte) (Command, error) {
	consumer, n0, err := consumerFromBytes(b)
	if err != nil {
		return nil, err
	}
	sid, n1, err := id.FromBytes(b[n0:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, n2, err := id.FromBytes(b[n0+n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	pos := n0 + n1 + n2
	if err := requireLen(b, pos+12); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	partVal := getU32(b, pos)
	pos += 4
	offset := getU64(b, pos)
	cmd := StoreConsumerOffset{Consumer: consumer, StreamID: sid, TopicID: tid, Offset: offset}
	if partVal != noPartition {
		p := partVal
		cmd.PartitionID = &p
	}
	return cmd, nil
}

type GetConsumerOffset struct {
	Consumer    Consumer
	StreamID    id.Identifier
	TopicID     id.Identifier
	PartitionID *uint32
}

func (c GetConsumerOffset) Code() uint32 { return CodeGetConsumerOffset }
func (c GetConsumerOffset) Encode() []byte {
	buf := append([]byte{}, c.Consumer.AsBytes()...)
	buf = append(buf, c.StreamID.AsBytes()...)
	buf = append(buf, c.TopicID.AsBytes()...)
	partBuf := make([]byte, 4)
	if c.PartitionID != nil {
		putU32(partBuf, 0, *c.PartitionID)
	}
	return append(buf, partBuf...)
}
func (c GetConsumerOffset) String() string {
	partStr := "0"
	if c.PartitionID != nil {
		partStr = strconv.FormatUint(uint64(*c.PartitionID), 10)
	}
	return strings.Join([]string{
		c.Consumer.Kind.String(), strconv.FormatUint(uint64(c.Consumer.ID), 10),
		c.StreamID.String(), c.TopicID.String(), partStr,
	}, "|")
}

func ParseGetConsumerOffset(s string) (GetConsumerOffset, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 5 {
		return GetConsumerOffset{}, New(KindInvalidCommand, "wire: GetConsumerOffset wants 5 fields")
	}
	kind, err := ParseConsumerKind(parts[0])
	if err != nil {
		return GetConsumerOffset{}, err
	}
	cid, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return GetConsumerOffset{}, New(KindInvalidCommand, "%v", err)
	}
	sid, err := id.ParseIdentifier(parts[2])
	if err != nil {
		return GetConsumerOffset{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[3])
	if err != nil {
		return GetConsumerOffset{}, New(KindInvalidCommand, "%v", err)
	}
	partVal, err := strconv.ParseUint(parts[4], 10, 32)
	if err != nil {
		return GetConsumerOffset{}, New(KindInvalidCommand, "%v", err)
	}
	cmd := GetConsumerOffset{Consumer: Consumer{Kind: kind, ID: uint32(cid)}, StreamID: sid, TopicID: tid}
	if partVal != noPartition {
		p := uint32(partVal)
		cmd.PartitionID = &p
	}
	return cmd, nil
}

func decodeGetConsumerOffset(b []byte) (Command, error) {
	consumer, n0, err := consumerFromBytes(b)
	if err != nil {
		return nil, err
	}
	sid, n1, err := id.FromBytes(b[n0:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, n2, err := id.FromBytes(b[n0+n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	pos := n0 + n1 + n2
	if err := requireLen(b, pos+4); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	partVal := getU32(b, pos)
	cmd := GetConsumerOffset{Consumer: consumer, StreamID: sid, TopicID: tid}
	if partVal != noPartition {
		p := partVal
		cmd.PartitionID = &p
	}
	return cmd, nil
}
