package wire

import (
	"bytes"
	"testing"

	"github.com/ericlarwa/gridline/internal/id"
)

func roundTrip(t *testing.T, cmd Command, decode func([]byte) (Command, error)) Command {
	t.Helper()
	encoded := cmd.Encode()
	decoded, err := decode(encoded)
	if err != nil {
		t.Fatalf("decode(%T): %v", cmd, err)
	}
	return decoded
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRequestFrame(&buf, CodeCreateStream, []byte("payload")); err != nil {
		t.Fatalf("write: %v", err)
	}
	code, payload, err := ReadRequestFrame(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if code != CodeCreateStream || string(payload) != "payload" {
		t.Fatalf("got code=%d payload=%q", code, payload)
	}
}

func TestReplyFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReplyFrame(&buf, KindStreamNotFound, []byte("boom")); err != nil {
		t.Fatalf("write: %v", err)
	}
	status, payload, err := ReadReplyFrame(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if status != KindStreamNotFound || string(payload) != "boom" {
		t.Fatalf("got status=%d payload=%q", status, payload)
	}
}

func TestPingRoundTrip(t *testing.T) {
	decoded := roundTrip(t, Ping{}, decodePing)
	if _, ok := decoded.(Ping); !ok {
		t.Fatalf("got %T", decoded)
	}
}

func TestCreateStreamRoundTrip(t *testing.T) {
	cmd := CreateStream{StreamID: 7, Name: "orders"}
	decoded := roundTrip(t, cmd, decodeCreateStream)
	got := decoded.(CreateStream)
	if got != cmd {
		t.Fatalf("got %+v, want %+v", got, cmd)
	}
	if cmd.String() != "7|orders" {
		t.Fatalf("String() = %q", cmd.String())
	}
	parsed, err := ParseCreateStream("7|orders")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != cmd {
		t.Fatalf("parsed %+v, want %+v", parsed, cmd)
	}
}

func TestCreateStreamRejectsInvalidName(t *testing.T) {
	if _, err := ParseCreateStream("7|bad/name"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestCreateTopicRoundTrip(t *testing.T) {
	cmd := CreateTopic{
		StreamID: id.Numeric(1), TopicID: 2, Name: "events",
		PartitionsCount: 4, Partitioner: PartitionerKeyHash, MessageExpirySeconds: 3600,
	}
	decoded := roundTrip(t, cmd, decodeCreateTopic)
	got := decoded.(CreateTopic)
	if got.StreamID != cmd.StreamID || got.TopicID != cmd.TopicID || got.Name != cmd.Name ||
		got.PartitionsCount != cmd.PartitionsCount || got.Partitioner != cmd.Partitioner ||
		got.MessageExpirySeconds != cmd.MessageExpirySeconds {
		t.Fatalf("got %+v, want %+v", got, cmd)
	}
	parsed, err := ParseCreateTopic(cmd.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Name != cmd.Name || parsed.PartitionsCount != cmd.PartitionsCount {
		t.Fatalf("parsed %+v, want %+v", parsed, cmd)
	}
}

func TestSendAndPollMessagesRoundTrip(t *testing.T) {
	send := SendMessages{
		StreamID: id.Numeric(1), TopicID: id.Numeric(2),
		Partitioning: Partitioning{Kind: PartitioningKeyHash, Key: []byte("order-42")},
		Messages: []OutgoingMessage{
			{ID: MessageID{High: 1, Low: 2}, Payload: []byte("hello"),
				Headers: map[string]HeaderValue{"trace": {Kind: 1, Bytes: []byte("abc")}}},
		},
	}
	decoded := roundTrip(t, send, decodeSendMessages)
	got := decoded.(SendMessages)
	if len(got.Messages) != 1 || !bytes.Equal(got.Messages[0].Payload, []byte("hello")) {
		t.Fatalf("got %+v", got)
	}
	if got.Messages[0].ID != (MessageID{High: 1, Low: 2}) {
		t.Fatalf("message id mismatch: %+v", got.Messages[0].ID)
	}
	if hv := got.Messages[0].Headers["trace"]; !bytes.Equal(hv.Bytes, []byte("abc")) {
		t.Fatalf("header mismatch: %+v", hv)
	}

	poll := PollMessages{
		Consumer: Consumer{Kind: ConsumerKindGroup, ID: 9},
		StreamID: id.Numeric(1), TopicID: id.Numeric(2), PartitionID: 3,
		Strategy: PollingStrategy{Kind: PollOffset, Value: 100}, Count: 10, AutoCommit: true,
	}
	pdecoded := roundTrip(t, poll, decodePollMessages)
	pgot := pdecoded.(PollMessages)
	if pgot.Consumer != poll.Consumer || pgot.PartitionID != poll.PartitionID ||
		pgot.Strategy != poll.Strategy || pgot.Count != poll.Count || pgot.AutoCommit != poll.AutoCommit {
		t.Fatalf("got %+v, want %+v", pgot, poll)
	}
	pparsed, err := ParsePollMessages(poll.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pparsed.Strategy != poll.Strategy {
		t.Fatalf("parsed strategy %+v, want %+v", pparsed.Strategy, poll.Strategy)
	}
}

func TestStoreAndGetConsumerOffsetNilPartition(t *testing.T) {
	store := StoreConsumerOffset{
		Consumer: Consumer{Kind: ConsumerKindConsumer, ID: 1},
		StreamID: id.Numeric(1), TopicID: id.Numeric(2),
		PartitionID: nil, Offset: 42,
	}
	decoded := roundTrip(t, store, decodeStoreConsumerOffset)
	got := decoded.(StoreConsumerOffset)
	if got.PartitionID != nil {
		t.Fatalf("expected nil partition id, got %v", *got.PartitionID)
	}
	if got.Offset != 42 {
		t.Fatalf("offset = %d", got.Offset)
	}
	parsed, err := ParseStoreConsumerOffset(store.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.PartitionID != nil {
		t.Fatalf("parsed partition id should be nil, got %v", *parsed.PartitionID)
	}

	part := uint32(3)
	get := GetConsumerOffset{
		Consumer: Consumer{Kind: ConsumerKindConsumer, ID: 1},
		StreamID: id.Numeric(1), TopicID: id.Numeric(2),
		PartitionID: &part,
	}
	gdecoded := roundTrip(t, get, decodeGetConsumerOffset)
	ggot := gdecoded.(GetConsumerOffset)
	if ggot.PartitionID == nil || *ggot.PartitionID != 3 {
		t.Fatalf("got %+v", ggot)
	}
}

func TestConsumerGroupCommandsRoundTrip(t *testing.T) {
	create := CreateConsumerGroup{StreamID: id.Numeric(1), TopicID: id.Numeric(2), GroupID: 5, Name: "billing"}
	decoded := roundTrip(t, create, decodeCreateConsumerGroup)
	got := decoded.(CreateConsumerGroup)
	if got.GroupID != 5 || got.Name != "billing" {
		t.Fatalf("got %+v", got)
	}
	parsed, err := ParseCreateConsumerGroup(create.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Name != "billing" {
		t.Fatalf("parsed %+v", parsed)
	}

	join := JoinConsumerGroup{StreamID: id.Numeric(1), TopicID: id.Numeric(2), GroupID: id.Numeric(5)}
	jdecoded := roundTrip(t, join, decodeJoinConsumerGroup)
	jgot := jdecoded.(JoinConsumerGroup)
	if jgot.GroupID != join.GroupID {
		t.Fatalf("got %+v", jgot)
	}

	leave := LeaveConsumerGroup{StreamID: id.Numeric(1), TopicID: id.Numeric(2), GroupID: id.Numeric(5)}
	ldecoded := roundTrip(t, leave, decodeLeaveConsumerGroup)
	lgot := ldecoded.(LeaveConsumerGroup)
	if lgot.GroupID != leave.GroupID {
		t.Fatalf("got %+v", lgot)
	}
}

func TestPermissionsRoundTrip(t *testing.T) {
	perms := Permissions{
		Global: GlobalPermissions{ManageStreams: true, ReadStreams: true},
		Streams: map[uint32]StreamPermissions{
			1: {Manage: true, Read: true, Topics: map[uint32]TopicPermissions{2: {Send: true, Poll: true}}},
		},
	}
	cmd := UpdatePermissions{UserID: 3, Permissions: perms}
	decoded := roundTrip(t, cmd, decodeUpdatePermissions)
	got := decoded.(UpdatePermissions)
	if got.UserID != 3 || !got.Permissions.Global.ManageStreams {
		t.Fatalf("got %+v", got)
	}
	sp, ok := got.Permissions.Streams[1]
	if !ok || !sp.Manage {
		t.Fatalf("stream perms missing: %+v", got.Permissions.Streams)
	}
	tp, ok := sp.Topics[2]
	if !ok || !tp.Send || !tp.Poll {
		t.Fatalf("topic perms missing: %+v", sp.Topics)
	}
}

func TestUpdateUserOptionalFields(t *testing.T) {
	name := "renamed"
	cmd := UpdateUser{UserID: 9, Username: &name}
	decoded := roundTrip(t, cmd, decodeUpdateUser)
	got := decoded.(UpdateUser)
	if got.Username == nil || *got.Username != name {
		t.Fatalf("got %+v", got)
	}
	if got.Active != nil {
		t.Fatalf("expected nil active, got %v", *got.Active)
	}
}

func TestDecodeDispatchesByCode(t *testing.T) {
	cmd := DeleteStream{StreamID: id.Numeric(4)}
	payload := cmd.Encode()
	decoded, err := Decode(CodeDeleteStream, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.(DeleteStream).StreamID != cmd.StreamID {
		t.Fatalf("got %+v", decoded)
	}
	if _, err := Decode(9999, nil); err == nil {
		t.Fatalf("expected error for unknown code")
	}
}

func TestErrorAsDefaultsToIOError(t *testing.T) {
	plain := &customErr{"boom"}
	wrapped := As(plain)
	if wrapped.Kind != KindIOError {
		t.Fatalf("got kind %d", wrapped.Kind)
	}
}

type customErr struct{ msg string }

func (c *customErr) Error() string { return c.msg }
