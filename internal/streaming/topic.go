package streaming

import (
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ericlarwa/gridline/internal/wire"
)

// Topic is a set of partitions plus the policy that routes appends to one
// of them, and the consumer groups registered against it (§3 Topic).
type Topic struct {
	ID       uint32
	StreamID uint32
	Name     string

	Partitioner   wire.TopicPartitioner
	MessageExpiry time.Duration

	dir    string
	limits Limits

	mu             sync.RWMutex
	partitions     map[uint32]*Partition
	consumerGroups map[uint32]*ConsumerGroup
	balancedCursor uint32
}

func topicDir(streamDir string, topicID uint32) string {
	return filepath.Join(streamDir, "topics", strconv.FormatUint(uint64(topicID), 10))
}

// OpenTopic creates (or reopens) a topic directory and its partitions.
func OpenTopic(streamDir string, id, streamID uint32, name string, partitioner wire.TopicPartitioner, expiry time.Duration, partitionCount uint32, limits Limits) (*Topic, error) {
	dir := topicDir(streamDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, wire.New(wire.KindIOError, "streaming: create topic dir: %v", err)
	}
	t := &Topic{
		ID: id, StreamID: streamID, Name: name,
		Partitioner: partitioner, MessageExpiry: expiry,
		dir: dir, limits: limits,
		partitions:     make(map[uint32]*Partition),
		consumerGroups: make(map[uint32]*ConsumerGroup),
	}

	existing, err := existingPartitionIDs(dir)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		for i := uint32(1); i <= partitionCount; i++ {
			if err := t.addPartition(i); err != nil {
				return nil, err
			}
		}
	} else {
		for _, id := range existing {
			if err := t.addPartition(id); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func existingPartitionIDs(dir string) ([]uint32, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wire.New(wire.KindIOError, "streaming: read topic dir: %v", err)
	}
	var ids []uint32
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint32(n))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *Topic) addPartition(id uint32) error {
	dir := filepath.Join(t.dir, strconv.FormatUint(uint64(id), 10))
	p, err := OpenPartition(dir, id, t.ID, t.StreamID, t.limits)
	if err != nil {
		return err
	}
	t.partitions[id] = p
	return nil
}

// PartitionCount returns how many partitions the topic currently has.
func (t *Topic) PartitionCount() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint32(len(t.partitions))
}

// GetPartition returns a partition by id, or PartitionNotFound.
func (t *Topic) GetPartition(id uint32) (*Partition, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.partitions[id]
	if !ok {
		return nil, wire.New(wire.KindPartitionNotFound, "streaming: partition %d not found", id)
	}
	return p, nil
}

// Partitions returns every partition sorted by id.
func (t *Topic) Partitions() []*Partition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]uint32, 0, len(t.partitions))
	for id := range t.partitions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*Partition, len(ids))
	for i, id := range ids {
		out[i] = t.partitions[id]
	}
	return out
}

// ResolvePartition implements the partition-selection rules in §4.2.
func (t *Topic) ResolvePartition(partitioning wire.Partitioning) (*Partition, error) {
	switch partitioning.Kind {
	case wire.PartitioningExplicit:
		return t.GetPartition(partitioning.PartitionID)
	case wire.PartitioningKeyHash:
		t.mu.RLock()
		count := uint32(len(t.partitions))
		t.mu.RUnlock()
		if count == 0 {
			return nil, wire.New(wire.KindPartitionNotFound, "streaming: topic has no partitions")
		}
		id := keyHash(partitioning.Key)%count + 1
		return t.GetPartition(id)
	default: // Balanced
		t.mu.Lock()
		count := uint32(len(t.partitions))
		if count == 0 {
			t.mu.Unlock()
			return nil, wire.New(wire.KindPartitionNotFound, "streaming: topic has no partitions")
		}
		t.balancedCursor = (t.balancedCursor + 1) % count
		id := t.balancedCursor + 1
		t.mu.Unlock()
		return t.GetPartition(id)
	}
}

// keyHash is 32-bit FNV-1a over the raw key bytes (Open Questions b).
func keyHash(key []byte) uint32 {
	h := fnv.New32a()
	h.Write(key)
	return h.Sum32()
}

// CreatePartitions appends count new partitions with sequential ids
// continuing from the current max.
func (t *Topic) CreatePartitions(count uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var maxID uint32
	for id := range t.partitions {
		if id > maxID {
			maxID = id
		}
	}
	for i := uint32(1); i <= count; i++ {
		id := maxID + i
		dir := filepath.Join(t.dir, strconv.FormatUint(uint64(id), 10))
		p, err := OpenPartition(dir, id, t.ID, t.StreamID, t.limits)
		if err != nil {
			return err
		}
		t.partitions[id] = p
	}
	return nil
}

// DeletePartitions removes the highest-numbered count partitions and their
// on-disk directories.
func (t *Topic) DeletePartitions(count uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]uint32, 0, len(t.partitions))
	for id := range t.partitions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if uint32(len(ids)) < count {
		return wire.New(wire.KindPartitionNotFound, "streaming: not enough partitions to delete")
	}
	for _, id := range ids[:count] {
		p := t.partitions[id]
		if p != nil {
			p.Close()
		}
		delete(t.partitions, id)
		os.RemoveAll(filepath.Join(t.dir, strconv.FormatUint(uint64(id), 10)))
	}
	return nil
}

// GetConsumerGroup returns a registered group by id.
func (t *Topic) GetConsumerGroup(id uint32) (*ConsumerGroup, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	g, ok := t.consumerGroups[id]
	if !ok {
		return nil, wire.New(wire.KindConsumerGroupNotFound, "streaming: consumer group %d not found", id)
	}
	return g, nil
}

// ConsumerGroups returns every registered group.
func (t *Topic) ConsumerGroups() []*ConsumerGroup {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*ConsumerGroup, 0, len(t.consumerGroups))
	for _, g := range t.consumerGroups {
		out = append(out, g)
	}
	return out
}

// CreateConsumerGroup registers a new group with the given id and name.
func (t *Topic) CreateConsumerGroup(id uint32, name string) (*ConsumerGroup, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.consumerGroups[id]; exists {
		return nil, wire.New(wire.KindConsumerGroupExists, "streaming: consumer group %d already exists", id)
	}
	partitionIDs := make([]uint32, 0, len(t.partitions))
	for pid := range t.partitions {
		partitionIDs = append(partitionIDs, pid)
	}
	sort.Slice(partitionIDs, func(i, j int) bool { return partitionIDs[i] < partitionIDs[j] })
	g := newConsumerGroup(id, t.ID, name, partitionIDs)
	t.consumerGroups[id] = g
	return g, nil
}

// DeleteConsumerGroup removes a registered group.
func (t *Topic) DeleteConsumerGroup(id uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.consumerGroups[id]; !exists {
		return wire.New(wire.KindConsumerGroupNotFound, "streaming: consumer group %d not found", id)
	}
	delete(t.consumerGroups, id)
	return nil
}

// Close flushes every partition.
func (t *Topic) Close() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, p := range t.partitions {
		if err := p.Close(); err != nil {
			return err
		}
	}
	return nil
}
