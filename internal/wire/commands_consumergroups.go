package wire

import (
	"strconv"
	"strings"

	"github.com/ericlarwa/gridline/internal/id"
)

type CreateConsumerGroup struct {
	StreamID id.Identifier
	TopicID  id.Identifier
	GroupID  uint32
	Name     string
}

func (c CreateConsumerGroup) Code() uint32 { return CodeCreateConsumerGroup }
func (c CreateConsumerGroup) Encode() []byte {
	buf := append([]byte{}, c.StreamID.AsBytes()...)
	buf = append(buf, c.TopicID.AsBytes()...)
	idBuf := make([]byte, 4)
	putU32(idBuf, 0, c.GroupID)
	buf = append(buf, idBuf...)
	n := []byte(c.Name)
	buf = append(buf, byte(len(n)))
	return append(buf, n...)
}
func (c CreateConsumerGroup) String() string {
	return strings.Join([]string{c.StreamID.String(), c.TopicID.String(), strconv.FormatUint(uint64(c.GroupID), 10), c.Name}, "|")
}

func ParseCreateConsumerGroup(s string) (CreateConsumerGroup, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 4 {
		return CreateConsumerGroup{}, New(KindInvalidCommand, "wire: CreateConsumerGroup wants 4 fields")
	}
	sid, err := id.ParseIdentifier(parts[0])
	if err != nil {
		return CreateConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[1])
	if err != nil {
		return CreateConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	gid, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return CreateConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	return CreateConsumerGroup{StreamID: sid, TopicID: tid, GroupID: uint32(gid), Name: parts[3]}, nil
}

func decodeCreateConsumerGroup(b []byte) (Command, error) {
	sid, n1, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, n2, err := id.FromBytes(b[n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	pos := n1 + n2
	if err := requireLen(b, pos+5); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	groupID := getU32(b, pos)
	pos += 4
	nlen := int(b[pos])
	pos++
	if err := requireLen(b, pos+nlen); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	name := string(b[pos : pos+nlen])
	return CreateConsumerGroup{StreamID: sid, TopicID: tid, GroupID: groupID, Name: name}, nil
}

type DeleteConsumerGroup struct {
	StreamID id.Identifier
	TopicID  id.Identifier
	GroupID  id.Identifier
}

func (c DeleteConsumerGroup) Code() uint32 { return CodeDeleteConsumerGroup }
func (c DeleteConsumerGroup) Encode() []byte {
	buf := append([]byte{}, c.StreamID.AsBytes()...)
	buf = append(buf, c.TopicID.AsBytes()...)
	return append(buf, c.GroupID.AsBytes()...)
}
func (c DeleteConsumerGroup) String() string {
	return strings.Join([]string{c.StreamID.String(), c.TopicID.String(), c.GroupID.String()}, "|")
}

func ParseDeleteConsumerGroup(s string) (DeleteConsumerGroup, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return DeleteConsumerGroup{}, New(KindInvalidCommand, "wire: DeleteConsumerGroup wants 3 fields")
	}
	sid, err := id.ParseIdentifier(parts[0])
	if err != nil {
		return DeleteConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[1])
	if err != nil {
		return DeleteConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	gid, err := id.ParseIdentifier(parts[2])
	if err != nil {
		return DeleteConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	return DeleteConsumerGroup{StreamID: sid, TopicID: tid, GroupID: gid}, nil
}

func decodeDeleteConsumerGroup(b []byte) (Command, error) {
	sid, n1, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, n2, err := id.FromBytes(b[n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	gid, _, err := id.FromBytes(b[n1+n2:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return DeleteConsumerGroup{StreamID: sid, TopicID: tid, GroupID: gid}, nil
}

type GetConsumerGroup struct {
	StreamID id.Identifier
	TopicID  id.Identifier
	GroupID  id.Identifier
}

func (c GetConsumerGroup) Code() uint32 { return CodeGetConsumerGroup }
func (c GetConsumerGroup) Encode() []byte {
	buf := append([]byte{}, c.StreamID.AsBytes()...)
	buf = append(buf, c.TopicID.AsBytes()...)
	return append(buf, c.GroupID.AsBytes()...)
}
func (c GetConsumerGroup) String() string {
	return strings.Join([]string{c.StreamID.String(), c.TopicID.String(), c.GroupID.String()}, "|")
}

func ParseGetConsumerGroup(s string) (GetConsumerGroup, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return GetConsumerGroup{}, New(KindInvalidCommand, "wire: GetConsumerGroup wants 3 fields")
	}
	sid, err := id.ParseIdentifier(parts[0])
	if err != nil {
		return GetConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[1])
	if err != nil {
		return GetConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	gid, err := id.ParseIdentifier(parts[2])
	if err != nil {
		return GetConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	return GetConsumerGroup{StreamID: sid, TopicID: tid, GroupID: gid}, nil
}

func decodeGetConsumerGroup(b []byte) (Command, error) {
	sid, n1, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, n2, err := id.FromBytes(b[n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	gid, _, err := id.FromBytes(b[n1+n2:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return GetConsumerGroup{StreamID: sid, TopicID: tid, GroupID: gid}, nil
}

type GetConsumerGroups struct {
	StreamID id.Identifier
	TopicID  id.Identifier
}

func (c GetConsumerGroups) Code() uint32 { return CodeGetConsumerGroups }
func (c GetConsumerGroups) Encode() []byte {
	return append(append([]byte{}, c.StreamID.AsBytes()...), c.TopicID.AsBytes()...)
}
func (c GetConsumerGroups) String() string { return c.StreamID.String() + "|" + c.TopicID.String() }

func ParseGetConsumerGroups(s string) (GetConsumerGroups, error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return GetConsumerGroups{}, New(KindInvalidCommand, "wire: GetConsumerGroups wants stream|topic")
	}
	sid, err := id.ParseIdentifier(parts[0])
	if err != nil {
		return GetConsumerGroups{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[1])
	if err != nil {
		return GetConsumerGroups{}, New(KindInvalidCommand, "%v", err)
	}
	return GetConsumerGroups{StreamID: sid, TopicID: tid}, nil
}

func decodeGetConsumerGroups(b []byte) (Command, error) {
	sid, n1, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, _, err := id.FromBytes(b[n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return GetConsumerGroups{StreamID: sid, TopicID: tid}, nil
}

type JoinConsumerGroup struct {
	StreamID id.Identifier
	TopicID  id.Identifier
	GroupID  id.Identifier
}

func (c JoinConsumerGroup) Code() uint32 { return CodeJoinConsumerGroup }
func (c JoinConsumerGroup) Encode() []byte {
	buf := append([]byte{}, c.StreamID.AsBytes()...)
	buf = append(buf, c.TopicID.AsBytes()...)
	return append(buf, c.GroupID.AsBytes()...)
}
func (c JoinConsumerGroup) String() string {
	return strings.Join([]string{c.StreamID.String(), c.TopicID.String(), c.GroupID.String()}, "|")
}

func ParseJoinConsumerGroup(s string) (JoinConsumerGroup, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return JoinConsumerGroup{}, New(KindInvalidCommand, "wire: JoinConsumerGroup wants 3 fields")
	}
	sid, err := id.ParseIdentifier(parts[0])
	if err != nil {
		return JoinConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[1])
	if err != nil {
		return JoinConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	gid, err := id.ParseIdentifier(parts[2])
	if err != nil {
		return JoinConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	return JoinConsumerGroup{StreamID: sid, TopicID: tid, GroupID: gid}, nil
}

func decodeJoinConsumerGroup(b []byte) (Command, error) {
	sid, n1, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, n2, err := id.FromBytes(b[n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	gid, _, err := id.FromBytes(b[n1+n2:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return JoinConsumerGroup{StreamID: sid, TopicID: tid, GroupID: gid}, nil
}

type LeaveConsumerGroup struct {
	StreamID id.Identifier
	TopicID  id.Identifier
	GroupID  id.Identifier
}

func (c LeaveConsumerGroup) Code() uint32 { return CodeLeaveConsumerGroup }
func (c LeaveConsumerGroup) Encode() []byte {
	buf := append([]byte{}, c.StreamID.AsBytes()...)
	buf = append(buf, c.TopicID.AsBytes()...)
	return append(buf, c.GroupID.AsBytes()...)
}
func (c LeaveConsumerGroup) String() string {
	return strings.Join([]string{c.StreamID.String(), c.TopicID.String(), c.GroupID.String()}, "|")
}

func ParseLeaveConsumerGroup(s string) (LeaveConsumerGroup, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return LeaveConsumerGroup{}, New(KindInvalidCommand, "wire: LeaveConsumerGroup wants 3 fields")
	}
	sid, err := id.ParseIdentifier(parts[0])
	if err != nil {
		return LeaveConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	tid, err := id.ParseIdentifier(parts[1])
	if err != nil {
		return LeaveConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	gid, err := id.ParseIdentifier(parts[2])
	if err != nil {
		return LeaveConsumerGroup{}, New(KindInvalidCommand, "%v", err)
	}
	return LeaveConsumerGroup{StreamID: sid, TopicID: tid, GroupID: gid}, nil
}

func decodeLeaveConsumerGroup(b []byte) (Command, error) {
	sid, n1, err := id.FromBytes(b)
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	tid, n2, err := id.FromBytes(b[n1:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	gid, _, err := id.FromBytes(b[n1+n2:])
	if err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return LeaveConsumerGroup{StreamID: sid, TopicID: tid, GroupID: gid}, nil
}
