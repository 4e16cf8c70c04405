package wire

import (
	"strconv"
	"strings"

	"github.com/ericlarwa/gridline/internal/id"
)

func encodeOutgoingMessage(m OutgoingMessage) []byte {
	var buf []byte
	idBuf := make([]byte, 16)
	putU64(idBuf, 0, m.ID.High)
	putU64(idBuf, 8, m.ID.Low)
	buf = append(buf, idBuf...)

	hdrCountBuf := make([]byte, 4)
	putU32(hdrCountBuf, 0, uint32(len(m.Headers)))
	buf = append(buf, hdrCountBuf...)
	for k, v := range m.Headers {
		buf = append(buf, byte(len(k)))
		buf = append(buf, []byte(k)...)
		buf = append(buf, v.Kind)
		vlenBuf := make([]byte, 4)
		putU32(vlenBuf, 0, uint32(len(v.Bytes)))
		buf = append(buf, vlenBuf...)
		buf = append(buf, v.Bytes...)
	}

	plenBuf := make([]byte, 4)
	putU32(plenBuf, 0, uint32(len(m.Payload)))
	buf = append(buf, plenBuf...)
	buf = append(buf, m.Payload...)
	return buf
}

func decodeOutgoingMessage(b []byte) (OutgoingMessage, int, error) {
	if err := requireLen(b, 16+4); err != nil {
		return OutgoingMessage{}, 0, New(KindInvalidCommand, "%v", err)
	}
	msg := OutgoingMessage{ID: MessageID{High: getU64(b, 0), Low: getU64(b, 8)}}
	pos := 16
	hdrCount := int(getU32(b, pos))
	pos += 4
	if hdrCount > 0 {
		msg.Headers = make(map[string]HeaderValue, hdrCount)
	}
	for i := 0; i < hdrCount; i++ {
		if err := requireLen(b, pos+1); err != nil {
			return OutgoingMessage{}, 0, New(KindInvalidCommand, "%v", err)
		}
		klen := int(b[pos])
		pos++
		if err := requireLen(b, pos+klen+1+4); err != nil {
			return OutgoingMessage{}, 0, New(KindInvalidCommand, "%v", err)
		}
		key := string(b[pos : pos+klen])
		pos += klen
		kind := b[pos]
		pos++
		vlen := int(getU32(b, pos))
		pos += 4
		if err := requireLen(b, pos+vlen); err != nil {
			return OutgoingMessage{}, 0, New(KindInvalidCommand, "%v", err)
		}
		val := append([]byte(nil), b[pos:pos+vlen]...)
		pos += vlen
		msg.Headers[key] = HeaderValue{Kind: kind, Bytes: val}
	}
	if err := requireLen(b, pos+4); err != nil {
		return OutgoingMessage{}, 0, New(KindInvalidCommand, "%v", err)
	}
	plen := int(getU32(b, pos))
	pos += 4
	if err := requireLen(b, pos+plen); err != nil {
		return OutgoingMessage{}, 0, New(KindInvalidCommand, "%v", err)
	}
	msg.Payload = append([]byte(nil), b[pos:pos+plen]...)
	pos += plen
	return msg, pos, nil
}

type SendMessages struct {
	StreamID     id.Identifier
	TopicID      id.Identifier
	Partitioning Partitioning
	Messages     []OutgoingMessage
}

func (c SendMessages) Code() uint32 { return CodeSendMessages }
func (c SendMessages) Encode() []byte {
	buf := append([]byte{}, c.StreamID.AsBytes()...)
	buf = append(buf, c.TopicID.AsBytes()...)
	buf = append(buf, c.Partitioning.AsBytes()...)
	cntBuf := make([]byte, 4)
	putU32(cntBuf, 0, uint32(len(c.Messages)))
	buf = append(buf, cntBuf...)
	for _, m := range c.Messages {
		buf = append(buf, encodeOutgoingMessage(m)...)
	}
	return buf
}
func (c SendMessages) String() string {
	return c.StreamID.String() + "|" + c.TopicID.String() + "|" + strconv.Itoa(len(c.Messages)) + " message(s)"
}

func decodeSendMessages(b []byte) (Command, error) {
	sid, n1, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, n2, err := id.FromBytes(b[n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	pos := n1 + n2
	part, n3, err := partitioningFromBytes(b[pos:])
	if err != nil {
		return nil, err
	}
	pos += n3
	if err := requireLen(b, pos+4); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	count := int(getU32(b, pos))
	pos += 4
	messages := make([]OutgoingMessage, 0, count)
	for i := 0; i < count; i++ {
		m, n, err := decodeOutgoingMessage(b[pos:])
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
		pos += n
	}
	return SendMessages{StreamID: sid, TopicID: tid, Partitioning: part, Messages: messages}, nil
}

type PollMessages struct {
	Consumer    Consumer
	StreamID    id.Identifier
	TopicID     id.Identifier
	PartitionID uint32 // 0 means "let the consumer's assignment decide"
	Strategy    PollingStrategy
	Count       uint32
	AutoCommit  bool
}

func (c PollMessages) Code() uint32 { return CodePollMessages }
func (c PollMessages) Encode() []byte {
	buf := append([]byte{}, c.Consumer.AsBytes()...)
	buf = append(buf, c.StreamID.AsBytes()...)
	buf = append(buf, c.TopicID.AsBytes()...)
	partBuf := make([]byte, 4)
	putU32(partBuf, 0, c.PartitionID)
	buf = append(buf, partBuf...)
	buf = append(buf, c.Strategy.AsBytes()...)
	cntBuf := make([]byte, 4)
	putU32(cntBuf, 0, c.Count)
	buf = append(buf, cntBuf...)
	if c.AutoCommit {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}
func (c PollMessages) String() string {
	return strings.Join([]string{
		c.Consumer.Kind.String(), strconv.FormatUint(uint64(c.Consumer.ID), 10),
		c.StreamID.String(), c.TopicID.String(),
		strconv.FormatUint(uint64(c.PartitionID), 10),
		c.Strategy.String(), strconv.FormatUint(uint64(c.Count), 10),
		strconv.FormatBool(c.AutoCommit),
	}, "|")
}

func ParsePollMessages(s string) (PollMessages, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 8 {
		return PollMessages{}, New(KindInvalidCommand, "wire: PollMessages wants 8 fields")
	}
	kind, err := ParseConsumerKind(parts[0])
	if err != nil {
		return PollMessages{}, err
	}
	cid, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return PollMessages{}, New(KindInvalidCommand, "%v", err)
	}
	sid, err := id.ParseIdentifier(parts[2])
	if err != nil {
		return PollMessages{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[3])
	if err != nil {
		return PollMessages{}, New(KindInvalidCommand, "%v", err)
	}
	partitionID, err := strconv.ParseUint(parts[4], 10, 32)
	if err != nil {
		return PollMessages{}, New(KindInvalidCommand, "%v", err)
	}
	strategy, err := ParsePollingStrategy(parts[5])
	if err != nil {
		return PollMessages{}, err
	}
	count, err := strconv.ParseUint(parts[6], 10, 32)
	if err != nil {
		return PollMessages{}, New(KindInvalidCommand, "%v", err)
	}
	autoCommit, err := strconv.ParseBool(parts[7])
	if err != nil {
		return PollMessages{}, New(KindInvalidCommand, "%v", err)
	}
	return PollMessages{
		Consumer:    Consumer{Kind: kind, ID: uint32(cid)},
		StreamID:    sid, TopicID: tid, PartitionID: uint32(partitionID),
		Strategy: strategy, Count: uint32(count), AutoCommit: autoCommit,
	}, nil
}

func decodePollMessages(b []byte) (Command, error) {
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
	partitionID := getU32(b, pos)
	pos += 4
	strategy, n3, err := pollingStrategyFromBytes(b[pos:])
	if err != nil {
		return nil, err
	}
	pos += n3
	if err := requireLen(b, pos+5); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	count := getU32(b, pos)
	pos += 4
	autoCommit := b[pos] != 0
	return PollMessages{
		Consumer: consumer, StreamID: sid, TopicID: tid, PartitionID: partitionID,
		Strategy: strategy, Count: count, AutoCommit: autoCommit,
	}, nil
}
