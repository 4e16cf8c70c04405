package wire

import (
	"strconv"
	"strings"

	"github.com/ericlarwa/gridline/internal/id"
)

// TopicPartitioner is the default partitioning policy configured per topic.
type TopicPartitioner uint8

const (
	PartitionerBalanced TopicPartitioner = 1
	PartitionerKeyHash  TopicPartitioner = 2
	PartitionerExplicit TopicPartitioner = 3
)

type CreateTopic struct {
	StreamID        id.Identifier
	TopicID         uint32
	Name            string
	PartitionsCount uint32
	Partitioner     TopicPartitioner
	MessageExpirySeconds uint64 // 0 = no expiry
}

func (c CreateTopic) Code() uint32 { return CodeCreateTopic }
func (c CreateTopic) Encode() []byte {
	buf := append([]byte{}, c.StreamID.AsBytes()...)
	idBuf := make([]byte, 4)
	putU32(idBuf, 0, c.TopicID)
	buf = append(buf, idBuf...)
	n := []byte(c.Name)
	buf = append(buf, byte(len(n)))
	buf = append(buf, n...)
	pcBuf := make([]byte, 4)
	putU32(pcBuf, 0, c.PartitionsCount)
	buf = append(buf, pcBuf...)
	buf = append(buf, byte(c.Partitioner))
	expBuf := make([]byte, 8)
	putU64(expBuf, 0, c.MessageExpirySeconds)
	buf = append(buf, expBuf...)
	return buf
}
func (c CreateTopic) String() string {
	return strings.Join([]string{
		c.StreamID.String(), strconv.FormatUint(uint64(c.TopicID), 10), c.Name,
		strconv.FormatUint(uint64(c.PartitionsCount), 10),
		strconv.FormatUint(uint64(c.Partitioner), 10),
		strconv.FormatUint(c.MessageExpirySeconds, 10),
	}, "|")
}

func ParseCreateTopic(s string) (CreateTopic, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 6 {
		return CreateTopic{}, New(KindInvalidCommand, "wire: CreateTopic wants 6 fields")
	}
	sid, err := id.ParseIdentifier(parts[0])
	if err != nil {
		return CreateTopic{}, New(KindInvalidCommand, "%v", err)
	}
	topicID, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return CreateTopic{}, New(KindInvalidCommand, "%v", err)
	}
	if err := id.ValidateName(parts[2]); err != nil {
		return CreateTopic{}, New(KindResourceNameInvalid, "%v", err)
	}
	partitions, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil {
		return CreateTopic{}, New(KindInvalidCommand, "%v", err)
	}
	partitioner, err := strconv.ParseUint(parts[4], 10, 8)
	if err != nil {
		return CreateTopic{}, New(KindInvalidCommand, "%v", err)
	}
	expiry, err := strconv.ParseUint(parts[5], 10, 64)
	if err != nil {
		return CreateTopic{}, New(KindInvalidCommand, "%v", err)
	}
	return CreateTopic{
		StreamID: sid, TopicID: uint32(topicID), Name: parts[2],
		PartitionsCount: uint32(partitions), Partitioner: TopicPartitioner(partitioner),
		MessageExpirySeconds: expiry,
	}, nil
}

func decodeCreateTopic(b []byte) (Command, error) {
	sid, n, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	if err := requireLen(b, n+4+1); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	topicID := getU32(b, n)
	pos := n + 4
	nlen := int(b[pos])
	pos++
	if err := requireLen(b, pos+nlen+4+1+8); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	name := string(b[pos : pos+nlen])
	pos += nlen
	if err := id.ValidateName(name); err != nil {
		return nil, New(KindResourceNameInvalid, "%v", err)
	}
	partitions := getU32(b, pos)
	pos += 4
	partitioner := TopicPartitioner(b[pos])
	pos++
	expiry := getU64(b, pos)
	return CreateTopic{
		StreamID: sid, TopicID: topicID, Name: name,
		PartitionsCount: partitions, Partitioner: partitioner,
		MessageExpirySeconds: expiry,
	}, nil
}

type UpdateTopic struct {
	StreamID             id.Identifier
	TopicID              id.Identifier
	Name                 string
	MessageExpirySeconds uint64
}

func (c UpdateTopic) Code() uint32 { return CodeUpdateTopic }
func (c UpdateTopic) Encode() []byte {
	buf := append([]byte{}, c.StreamID.AsBytes()...)
	buf = append(buf, c.TopicID.AsBytes()...)
	n := []byte(c.Name)
	buf = append(buf, byte(len(n)))
	buf = append(buf, n...)
	expBuf := make([]byte, 8)
	putU64(expBuf, 0, c.MessageExpirySeconds)
	return append(buf, expBuf...)
}
func (c UpdateTopic) String() string {
	return c.StreamID.String() + "|" + c.TopicID.String() + "|" + c.Name + "|" +
		strconv.FormatUint(c.MessageExpirySeconds, 10)
}

func ParseUpdateTopic(s string) (UpdateTopic, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 4 {
		return UpdateTopic{}, New(KindInvalidCommand, "wire: UpdateTopic wants 4 fields")
	}
	sid, err := id.ParseIdentifier(parts[0])
	if err != nil {
		return UpdateTopic{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[1])
	if err != nil {
		return UpdateTopic{}, New(KindInvalidCommand, "%v", err)
	}
	expiry, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		return UpdateTopic{}, New(KindInvalidCommand, "%v", err)
	}
	return UpdateTopic{StreamID: sid, TopicID: tid, Name: parts[2], MessageExpirySeconds: expiry}, nil
}

func decodeUpdateTopic(b []byte) (Command, error) {
	sid, n1, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, n2, err := id.FromBytes(b[n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	pos := n1 + n2
	if err := requireLen(b, pos+1); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	nlen := int(b[pos])
	pos++
	if err := requireLen(b, pos+nlen+8); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	name := string(b[pos : pos+nlen])
	pos += nlen
	expiry := getU64(b, pos)
	return UpdateTopic{StreamID: sid, TopicID: tid, Name: name, MessageExpirySeconds: expiry}, nil
}

type DeleteTopic struct {
	StreamID id.Identifier
	TopicID  id.Identifier
}

func (c DeleteTopic) Code() uint32 { return CodeDeleteTopic }
func (c DeleteTopic) Encode() []byte {
	return append(append([]byte{}, c.StreamID.AsBytes()...), c.TopicID.AsBytes()...)
}
func (c DeleteTopic) String() string { return c.StreamID.String() + "|" + c.TopicID.String() }

func ParseDeleteTopic(s string) (DeleteTopic, error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return DeleteTopic{}, New(KindInvalidCommand, "wire: DeleteTopic wants stream|topic")
	}
	sid, err := id.ParseIdentifier(parts[0])
	if err != nil {
		return DeleteTopic{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[1])
	if err != nil {
		return DeleteTopic{}, New(KindInvalidCommand, "%v", err)
	}
	return DeleteTopic{StreamID: sid, TopicID: tid}, nil
}

func decodeDeleteTopic(b []byte) (Command, error) {
	sid, n1, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, _, err := id.FromBytes(b[n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return DeleteTopic{StreamID: sid, TopicID: tid}, nil
}

type GetTopic struct {
	StreamID id.Identifier
	TopicID  id.Identifier
}

func (c GetTopic) Code() uint32 { return CodeGetTopic }
func (c GetTopic) Encode() []byte {
	return append(append([]byte{}, c.StreamID.AsBytes()...), c.TopicID.AsBytes()...)
}
func (c GetTopic) String() string { return c.StreamID.String() + "|" + c.TopicID.String() }

func ParseGetTopic(s string) (GetTopic, error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return GetTopic{}, New(KindInvalidCommand, "wire: GetTopic wants stream|topic")
	}
	sid, err := id.ParseIdentifier(parts[0])
	if err != nil {
		return GetTopic{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[1])
	if err != nil {
		return GetTopic{}, New(KindInvalidCommand, "%v", err)
	}
	return GetTopic{StreamID: sid, TopicID: tid}, nil
}

func decodeGetTopic(b []byte) (Command, error) {
	sid, n1, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, _, err := id.FromBytes(b[n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return GetTopic{StreamID: sid, TopicID: tid}, nil
}

type GetTopics struct {
	StreamID id.Identifier
}

func (c GetTopics) Code() uint32   { return CodeGetTopics }
func (c GetTopics) Encode() []byte { return c.StreamID.AsBytes() }
func (c GetTopics) String() string { return c.StreamID.String() }

func ParseGetTopics(s string) (GetTopics, error) {
	sid, err := id.ParseIdentifier(s)
	if err != nil {
		return GetTopics{}, New(KindInvalidCommand, "%v", err)
	}
	return GetTopics{StreamID: sid}, nil
}

func decodeGetTopics(b []byte) (Command, error) {
	sid, _, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return GetTopics{StreamID: sid}, nil
}
