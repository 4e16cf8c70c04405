package streaming

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ericlarwa/gridline/internal/id"
	"github.com/ericlarwa/gridline/internal/wire"
)

// streamInfo is the JSON sidecar persisted at <root>/streams/<id>/stream.info
// (§6 on-disk layout).
type streamInfo struct {
	ID        uint32 `json:"id"`
	Name      string `json:"name"`
	CreatedAt uint64 `json:"created_at"`
}

// topicInfo is the JSON sidecar at .../topics/<id>/topic.info.
type topicInfo struct {
	ID                   uint32 `json:"id"`
	Name                 string `json:"name"`
	Partitioner          uint8  `json:"partitioner"`
	PartitionCount       uint32 `json:"partition_count"`
	MessageExpirySeconds uint64 `json:"message_expiry_seconds"`
}

// Stream is a named set of topics (§3 Stream).
type Stream struct {
	ID        uint32
	Name      string
	CreatedAt uint64

	dir    string
	limits Limits

	mu        sync.RWMutex
	topics    map[uint32]*Topic
	nameIndex map[string]uint32
}

func streamDir(root string, streamID uint32) string {
	return filepath.Join(root, "streams", strconv.FormatUint(uint64(streamID), 10))
}

// CreateStream creates a new, empty stream directory and persists its info.
func CreateStream(root string, streamID uint32, name string, limits Limits) (*Stream, error) {
	dir := streamDir(root, streamID)
	if err := os.MkdirAll(filepath.Join(dir, "topics"), 0755); err != nil {
		return nil, wire.New(wire.KindIOError, "streaming: create stream dir: %v", err)
	}
	s := &Stream{
		ID: streamID, Name: name, CreatedAt: uint64(time.Now().UnixMicro()),
		dir: dir, limits: limits,
		topics:    make(map[uint32]*Topic),
		nameIndex: make(map[string]uint32),
	}
	if err := s.saveInfo(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenStream reopens an existing stream directory, restoring every topic
// from its topic.info sidecar (§6 restart recovery).
func OpenStream(root string, streamID uint32, limits Limits) (*Stream, error) {
	dir := streamDir(root, streamID)
	info, err := readStreamInfo(dir)
	if err != nil {
		return nil, err
	}
	s := &Stream{
		ID: info.ID, Name: info.Name, CreatedAt: info.CreatedAt,
		dir: dir, limits: limits,
		topics:    make(map[uint32]*Topic),
		nameIndex: make(map[string]uint32),
	}
	topicsDir := filepath.Join(dir, "topics")
	entries, err := os.ReadDir(topicsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, wire.New(wire.KindIOError, "streaming: read topics dir: %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		tid, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		ti, err := readTopicInfo(filepath.Join(topicsDir, e.Name()))
		if err != nil {
			return nil, err
		}
		t, err := OpenTopic(dir, uint32(tid), streamID, ti.Name, wire.TopicPartitioner(ti.Partitioner),
			time.Duration(ti.MessageExpirySeconds)*time.Second, ti.PartitionCount, limits)
		if err != nil {
			return nil, err
		}
		s.topics[uint32(tid)] = t
		s.nameIndex[id.Normalize(ti.Name)] = uint32(tid)
	}
	return s, nil
}

func (s *Stream) saveInfo() error {
	info := streamInfo{ID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt}
	b, err := json.Marshal(info)
	if err != nil {
		return wire.New(wire.KindIOError, "streaming: marshal stream info: %v", err)
	}
	return os.WriteFile(filepath.Join(s.dir, "stream.info"), b, 0644)
}

func readStreamInfo(dir string) (streamInfo, error) {
	b, err := os.ReadFile(filepath.Join(dir, "stream.info"))
	if err != nil {
		return streamInfo{}, wire.New(wire.KindStreamNotFound, "streaming: read stream info: %v", err)
	}
	var info streamInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return streamInfo{}, wire.New(wire.KindIOError, "streaming: decode stream info: %v", err)
	}
	return info, nil
}

func readTopicInfo(dir string) (topicInfo, error) {
	b, err := os.ReadFile(filepath.Join(dir, "topic.info"))
	if err != nil {
		return topicInfo{}, wire.New(wire.KindTopicNotFound, "streaming: read topic info: %v", err)
	}
	var info topicInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return topicInfo{}, wire.New(wire.KindIOError, "streaming: decode topic info: %v", err)
	}
	return info, nil
}

func saveTopicInfo(dir string, t *Topic) error {
	info := topicInfo{
		ID: t.ID, Name: t.Name, Partitioner: uint8(t.Partitioner),
		PartitionCount:       t.PartitionCount(),
		MessageExpirySeconds: uint64(t.MessageExpiry.Seconds()),
	}
	b, err := json.Marshal(info)
	if err != nil {
		return wire.New(wire.KindIOError, "streaming: marshal topic info: %v", err)
	}
	return os.WriteFile(filepath.Join(dir, "topic.info"), b, 0644)
}

// GetTopic returns a topic by numeric id.
func (s *Stream) GetTopic(topicID uint32) (*Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.topics[topicID]
	if !ok {
		return nil, wire.New(wire.KindTopicNotFound, "streaming: topic %d not found", topicID)
	}
	return t, nil
}

// ResolveTopic accepts a numeric or named identifier.
func (s *Stream) ResolveTopic(ident id.Identifier) (*Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ident.IsNumeric() {
		t, ok := s.topics[ident.Value]
		if !ok {
			return nil, wire.New(wire.KindTopicNotFound, "streaming: topic %d not found", ident.Value)
		}
		return t, nil
	}
	tid, ok := s.nameIndex[id.Normalize(ident.Name)]
	if !ok {
		return nil, wire.New(wire.KindTopicNotFound, "streaming: topic %q not found", ident.Name)
	}
	return s.topics[tid], nil
}

// Topics returns every topic sorted by id.
func (s *Stream) Topics() []*Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint32, 0, len(s.topics))
	for id := range s.topics {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*Topic, len(ids))
	for i, id := range ids {
		out[i] = s.topics[id]
	}
	return out
}

// CreateTopic creates and registers a new topic, persisting its info.
func (s *Stream) CreateTopic(topicID uint32, name string, partitioner wire.TopicPartitioner, expiry time.Duration, partitionCount uint32) (*Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.topics[topicID]; exists {
		return nil, wire.New(wire.KindTopicAlreadyExists, "streaming: topic %d already exists", topicID)
	}
	normalized := id.Normalize(name)
	if _, exists := s.nameIndex[normalized]; exists {
		return nil, wire.New(wire.KindTopicAlreadyExists, "streaming: topic name %q already exists", name)
	}
	t, err := OpenTopic(s.dir, topicID, s.ID, name, partitioner, expiry, partitionCount, s.limits)
	if err != nil {
		return nil, err
	}
	if err := saveTopicInfo(topicDir(s.dir, topicID), t); err != nil {
		return nil, err
	}
	s.topics[topicID] = t
	s.nameIndex[normalized] = topicID
	return t, nil
}

// UpdateTopic renames a topic and/or changes its message expiry.
func (s *Stream) UpdateTopic(topicID uint32, name string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[topicID]
	if !ok {
		return wire.New(wire.KindTopicNotFound, "streaming: topic %d not found", topicID)
	}
	delete(s.nameIndex, id.Normalize(t.Name))
	t.Name = name
	t.MessageExpiry = expiry
	s.nameIndex[id.Normalize(name)] = topicID
	return saveTopicInfo(topicDir(s.dir, topicID), t)
}

// DeleteTopic recursively removes a topic and all its partitions (§3
// Lifecycle: "recursive delete: topic->partitions->segments").
func (s *Stream) DeleteTopic(topicID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[topicID]
	if !ok {
		return wire.New(wire.KindTopicNotFound, "streaming: topic %d not found", topicID)
	}
	if err := t.Close(); err != nil {
		return err
	}
	delete(s.nameIndex, id.Normalize(t.Name))
	delete(s.topics, topicID)
	return os.RemoveAll(topicDir(s.dir, topicID))
}

// Close flushes every topic in the stream.
func (s *Stream) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.topics {
		if err := t.Close(); err != nil {
			return err
		}
	}
	return nil
}
