package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ericlarwa/gridline/internal/id"
)

// ConsumerKind distinguishes a single named consumer from a consumer group,
// matching the ConsumerKey enum in the data model.
type ConsumerKind uint8

const (
	ConsumerKindConsumer ConsumerKind = 1
	ConsumerKindGroup    ConsumerKind = 2
)

func (k ConsumerKind) String() string {
	if k == ConsumerKindGroup {
		return "group"
	}
	return "consumer"
}

func ParseConsumerKind(s string) (ConsumerKind, error) {
	switch strings.ToLower(s) {
	case "consumer":
		return ConsumerKindConsumer, nil
	case "group":
		return ConsumerKindGroup, nil
	default:
		return 0, New(KindInvalidCommand, "wire: unknown consumer kind %q", s)
	}
}

// Consumer identifies who is polling: a plain client or a consumer group.
type Consumer struct {
	Kind ConsumerKind
	ID   uint32
}

func (c Consumer) AsBytes() []byte {
	buf := make([]byte, 5)
	buf[0] = byte(c.Kind)
	putU32(buf, 1, c.ID)
	return buf
}

func consumerFromBytes(b []byte) (Consumer, int, error) {
	if err := requireLen(b, 5); err != nil {
		return Consumer{}, 0, err
	}
	kind := ConsumerKind(b[0])
	if kind != ConsumerKindConsumer && kind != ConsumerKindGroup {
		return Consumer{}, 0, New(KindInvalidCommand, "wire: invalid consumer kind %d", b[0])
	}
	return Consumer{Kind: kind, ID: getU32(b, 1)}, 5, nil
}

// PartitioningKind selects how SendMessages picks a target partition.
type PartitioningKind uint8

const (
	PartitioningBalanced PartitioningKind = 1
	PartitioningKeyHash  PartitioningKind = 2
	PartitioningExplicit PartitioningKind = 3
)

// Partitioning carries the kind plus whichever payload it needs.
type Partitioning struct {
	Kind       PartitioningKind
	Key        []byte // KeyHash
	PartitionID uint32 // Explicit
}

func (p Partitioning) AsBytes() []byte {
	switch p.Kind {
	case PartitioningKeyHash:
		buf := make([]byte, 2+len(p.Key))
		buf[0] = byte(p.Kind)
		buf[1] = byte(len(p.Key))
		copy(buf[2:], p.Key)
		return buf
	case PartitioningExplicit:
		buf := make([]byte, 5)
		buf[0] = byte(p.Kind)
		putU32(buf, 1, p.PartitionID)
		return buf
	default:
		return []byte{byte(PartitioningBalanced), 0}
	}
}

func partitioningFromBytes(b []byte) (Partitioning, int, error) {
	if err := requireLen(b, 1); err != nil {
		return Partitioning{}, 0, err
	}
	switch PartitioningKind(b[0]) {
	case PartitioningBalanced:
		return Partitioning{Kind: PartitioningBalanced}, 2, nil
	case PartitioningKeyHash:
		if err := requireLen(b, 2); err != nil {
			return Partitioning{}, 0, err
		}
		klen := int(b[1])
		if err := requireLen(b, 2+klen); err != nil {
			return Partitioning{}, 0, err
		}
		key := append([]byte(nil), b[2:2+klen]...)
		return Partitioning{Kind: PartitioningKeyHash, Key: key}, 2 + klen, nil
	case PartitioningExplicit:
		if err := requireLen(b, 5); err != nil {
			return Partitioning{}, 0, err
		}
		return Partitioning{Kind: PartitioningExplicit, PartitionID: getU32(b, 1)}, 5, nil
	default:
		return Partitioning{}, 0, New(KindInvalidCommand, "wire: invalid partitioning kind %d", b[0])
	}
}

// PollingStrategyKind enumerates the poll start-point resolutions in §4.3.
type PollingStrategyKind uint8

const (
	PollOffset    PollingStrategyKind = 1
	PollTimestamp PollingStrategyKind = 2
	PollFirst     PollingStrategyKind = 3
	PollLast      PollingStrategyKind = 4
	PollNext      PollingStrategyKind = 5
)

type PollingStrategy struct {
	Kind  PollingStrategyKind
	Value uint64 // offset or timestamp_micros, unused for First/Last/Next
}

func (p PollingStrategy) AsBytes() []byte {
	buf := make([]byte, 9)
	buf[0] = byte(p.Kind)
	putU64(buf, 1, p.Value)
	return buf
}

func pollingStrategyFromBytes(b []byte) (PollingStrategy, int, error) {
	if err := requireLen(b, 9); err != nil {
		return PollingStrategy{}, 0, err
	}
	kind := PollingStrategyKind(b[0])
	if kind < PollOffset || kind > PollNext {
		return PollingStrategy{}, 0, New(KindInvalidCommand, "wire: invalid polling strategy %d", b[0])
	}
	return PollingStrategy{Kind: kind, Value: getU64(b, 1)}, 9, nil
}

func (p PollingStrategy) String() string {
	switch p.Kind {
	case PollOffset:
		return fmt.Sprintf("offset:%d", p.Value)
	case PollTimestamp:
		return fmt.Sprintf("timestamp:%d", p.Value)
	case PollFirst:
		return "first"
	case PollLast:
		return "last"
	case PollNext:
		return "next"
	default:
		return "unknown"
	}
}

func ParsePollingStrategy(s string) (PollingStrategy, error) {
	if s == "first" {
		return PollingStrategy{Kind: PollFirst}, nil
	}
	if s == "last" {
		return PollingStrategy{Kind: PollLast}, nil
	}
	if s == "next" {
		return PollingStrategy{Kind: PollNext}, nil
	}
	if strings.HasPrefix(s, "offset:") {
		v, err := strconv.ParseUint(strings.TrimPrefix(s, "offset:"), 10, 64)
		if err != nil {
			return PollingStrategy{}, New(KindInvalidCommand, "wire: bad offset strategy: %v", err)
		}
		return PollingStrategy{Kind: PollOffset, Value: v}, nil
	}
	if strings.HasPrefix(s, "timestamp:") {
		v, err := strconv.ParseUint(strings.TrimPrefix(s, "timestamp:"), 10, 64)
		if err != nil {
			return PollingStrategy{}, New(KindInvalidCommand, "wire: bad timestamp strategy: %v", err)
		}
		return PollingStrategy{Kind: PollTimestamp, Value: v}, nil
	}
	return PollingStrategy{}, New(KindInvalidCommand, "wire: unknown polling strategy %q", s)
}

// MessageID is a producer-supplied 128-bit identifier represented as two
// halves since Go has no native u128 type.
type MessageID struct {
	High uint64
	Low  uint64
}

func (m MessageID) IsZero() bool { return m.High == 0 && m.Low == 0 }

// HeaderValue is a typed header value, kind 1=string 2=bool 3=int64 4=bytes.
type HeaderValue struct {
	Kind  uint8
	Bytes []byte
}

// OutgoingMessage is what a producer sends: a payload plus an optional
// producer-supplied id and headers. It carries no timestamp field.
type OutgoingMessage struct {
	ID        MessageID
	Headers   map[string]HeaderValue
	Payload   []byte
}

func parseIdentifierField(part string) (id.Identifier, error) {
	return id.ParseIdentifier(part)
}
