package dispatch

import (
	"time"

	"github.com/ericlarwa/gridline/internal/auth"
	"github.com/ericlarwa/gridline/internal/id"
	"github.com/ericlarwa/gridline/internal/streaming"
	"github.com/ericlarwa/gridline/internal/wire"
)

func secondsToDuration(seconds uint64) time.Duration {
	return time.Duration(seconds) * time.Second
}

func (d *Dispatcher) resolveStreamTopic(streamID, topicID id.Identifier) (*streaming.Stream, *streaming.Topic, error) {
	s, err := d.engine.ResolveStream(streamID)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.ResolveTopic(topicID)
	if err != nil {
		return nil, nil, err
	}
	return s, t, nil
}

// resolveStreamTopicForSend resolves the topic and gates it with
// ActionSendTopic, the one permission check that depends on the message
// body being absent from the gate (sending never needs to read it).
func (d *Dispatcher) resolveStreamTopicForSend(ctx *auth.Context, streamID, topicID id.Identifier) (*streaming.Stream, *streaming.Topic, error) {
	s, t, err := d.resolveStreamTopic(streamID, topicID)
	if err != nil {
		return nil, nil, err
	}
	if err := d.allow(ctx, auth.ActionSendTopic, s.ID, t.ID); err != nil {
		return nil, nil, err
	}
	return s, t, nil
}

// resolveConsumerGroupID accepts either a numeric group id or a name,
// since consumer groups share the dual-identifier addressing used
// elsewhere even though the engine keys them by id internally.
func (d *Dispatcher) resolveConsumerGroupID(t *streaming.Topic, ident id.Identifier) (uint32, error) {
	if ident.IsNumeric() {
		return ident.Value, nil
	}
	target := id.Normalize(ident.Name)
	for _, g := range t.ConsumerGroups() {
		if id.Normalize(g.Name) == target {
			return g.ID, nil
		}
	}
	return 0, wire.New(wire.KindConsumerGroupNotFound, "dispatch: consumer group %q not found", ident.Name)
}

// resolvePollPartition implements the partition-selection half of
// PollMessages: an explicit partition id wins, otherwise a group consumer
// polls whichever single partition the group has assigned it.
func (d *Dispatcher) resolvePollPartition(ctx *auth.Context, t *streaming.Topic, c wire.PollMessages) (*streaming.Partition, error) {
	if c.PartitionID != 0 {
		return t.GetPartition(c.PartitionID)
	}
	if c.Consumer.Kind != wire.ConsumerKindGroup {
		return nil, wire.New(wire.KindInvalidCommand, "dispatch: PollMessages needs an explicit partition id outside a consumer group")
	}
	g, err := t.GetConsumerGroup(c.Consumer.ID)
	if err != nil {
		return nil, err
	}
	assignment := g.AssignmentFor(ctx.ClientID)
	switch len(assignment) {
	case 0:
		return nil, wire.New(wire.KindPartitionNotFound, "dispatch: client has no partitions assigned in this group")
	case 1:
		return t.GetPartition(assignment[0])
	default:
		return nil, wire.New(wire.KindInvalidCommand, "dispatch: client owns multiple partitions, specify one explicitly")
	}
}

// partitionForOffset resolves the partition an offset command targets. A
// nil PartitionID is only unambiguous when the topic has exactly one
// partition.
func (d *Dispatcher) partitionForOffset(t *streaming.Topic, partitionID *uint32) (*streaming.Partition, error) {
	if partitionID != nil {
		return t.GetPartition(*partitionID)
	}
	partitions := t.Partitions()
	if len(partitions) != 1 {
		return nil, wire.New(wire.KindInvalidCommand, "dispatch: offset commands need an explicit partition id on a multi-partition topic")
	}
	return partitions[0], nil
}

// rebalanceGroups re-derives every consumer group's partition set after a
// topic's partition count changes, so assignments stay consistent with
// what actually exists on disk.
func (d *Dispatcher) rebalanceGroups(t *streaming.Topic) {
	ids := make([]uint32, 0)
	for _, p := range t.Partitions() {
		ids = append(ids, p.ID)
	}
	for _, g := range t.ConsumerGroups() {
		g.UpdatePartitions(ids)
	}
}
