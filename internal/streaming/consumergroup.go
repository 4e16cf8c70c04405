package streaming

import (
	"sort"
	"sync"

	"github.com/ericlarwa/gridline/internal/wire"
)

// ConsumerGroup owns an assignment map client_id -> partitions, reassigned
// deterministically on every join/leave (§4.5, §8 property 5).
type ConsumerGroup struct {
	ID      uint32
	TopicID uint32
	Name    string

	mu           sync.RWMutex
	members      []uint32
	partitionIDs []uint32
	assignments  map[uint32][]uint32
	generation   uint32
}

func newConsumerGroup(id, topicID uint32, name string, partitionIDs []uint32) *ConsumerGroup {
	g := &ConsumerGroup{
		ID: id, TopicID: topicID, Name: name,
		partitionIDs: append([]uint32(nil), partitionIDs...),
		assignments:  make(map[uint32][]uint32),
	}
	return g
}

// Join adds a client to the group's roster and rebalances, returning that
// client's new partition assignment.
func (g *ConsumerGroup) Join(clientID uint32) []uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range g.members {
		if m == clientID {
			return g.assignments[clientID]
		}
	}
	g.members = append(g.members, clientID)
	sort.Slice(g.members, func(i, j int) bool { return g.members[i] < g.members[j] })
	g.rebalance()
	return g.assignments[clientID]
}

// Leave removes a client and redistributes its partitions among the rest.
func (g *ConsumerGroup) Leave(clientID uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, m := range g.members {
		if m == clientID {
			g.members = append(g.members[:i], g.members[i+1:]...)
			break
		}
	}
	delete(g.assignments, clientID)
	g.rebalance()
}

// rebalance implements the deterministic mapping partitions[i] ->
// members[i mod len(members)] (§4.5, §8 property 5). Caller holds g.mu.
func (g *ConsumerGroup) rebalance() {
	g.generation++
	next := make(map[uint32][]uint32, len(g.members))
	if len(g.members) == 0 {
		g.assignments = next
		return
	}
	for _, m := range g.members {
		next[m] = nil
	}
	for i, pid := range g.partitionIDs {
		member := g.members[i%len(g.members)]
		next[member] = append(next[member], pid)
	}
	g.assignments = next
}

// UpdatePartitions is called when the topic's partition count changes, so
// the group rebalances against the new set.
func (g *ConsumerGroup) UpdatePartitions(partitionIDs []uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.partitionIDs = append([]uint32(nil), partitionIDs...)
	g.rebalance()
}

// AssignmentFor returns the partitions currently owned by clientID.
func (g *ConsumerGroup) AssignmentFor(clientID uint32) []uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]uint32(nil), g.assignments[clientID]...)
}

// Members returns the sorted member roster.
func (g *ConsumerGroup) Members() []uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]uint32(nil), g.members...)
}

// groupConsumerKey is the ConsumerKey a group's offsets are stored under
// (§3 ConsumerKey: "offsets for a Group are stored per partition").
func (g *ConsumerGroup) groupConsumerKey() wire.Consumer {
	return wire.Consumer{Kind: wire.ConsumerKindGroup, ID: g.ID}
}
