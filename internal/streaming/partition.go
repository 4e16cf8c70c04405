package streaming

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericlarwa/gridline/internal/wire"
)

// Limits carries the engine-wide knobs, shared by every partition, that
// govern a partition's segment rollover, indexing and retention (§3
// Segment, §4.6).
type Limits struct {
	SegmentSizeBytes  int64
	IndexStride       int64
	MaxPartitionBytes int64
	MessageExpiry     time.Duration
	FlushEveryN       int
	FlushEvery        time.Duration
	DurableAck        bool
	ClosedSegmentLRU  int
}

// Partition is an ordered ring of segments plus its consumer offset store
// (§3 Partition, §4.2, §4.3, §4.4).
type Partition struct {
	ID       uint32
	TopicID  uint32
	StreamID uint32

	dir    string
	limits Limits

	mu            sync.RWMutex // guards segments/currentOffset below
	segments      []*segment   // ordered by baseOffset, last is active
	currentOffset uint64
	cache         *segmentCache

	appendMu sync.Mutex // serializes append batches onto the active segment

	offsets *offsetStore

	lastFlush      time.Time
	sinceLastFlush int
}

// OpenPartition opens (or creates) a partition directory, replaying whatever
// segments already exist so a restart reconstructs current_offset (§6).
func OpenPartition(dir string, id, topicID, streamID uint32, limits Limits) (*Partition, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, wire.New(wire.KindIOError, "streaming: create partition dir: %v", err)
	}
	offsets, err := openOffsetStore(filepath.Join(dir, "offsets"))
	if err != nil {
		return nil, err
	}

	p := &Partition{
		ID: id, TopicID: topicID, StreamID: streamID,
		dir: dir, limits: limits,
		cache:     newSegmentCache(limits.ClosedSegmentLRU),
		offsets:   offsets,
		lastFlush: time.Now(),
	}

	bases, err := existingSegmentBases(dir)
	if err != nil {
		return nil, err
	}
	if len(bases) == 0 {
		bases = []uint64{0}
	}
	for i, base := range bases {
		if i < len(bases)-1 {
			// closed segment: record minimal metadata, handles opened lazily via cache.
			s, err := openSegment(dir, base, limits.IndexStride)
			if err != nil {
				return nil, err
			}
			s.closed = true
			s.releaseHandles()
			p.segments = append(p.segments, &segment{
				baseOffset: s.baseOffset, endOffset: s.endOffset, sizeBytes: s.sizeBytes,
				dir: dir, closed: true, indexStride: limits.IndexStride,
			})
			continue
		}
		active, err := openSegment(dir, base, limits.IndexStride)
		if err != nil {
			return nil, err
		}
		p.segments = append(p.segments, active)
		p.currentOffset = active.endOffset + 1
	}
	return p, nil
}

func existingSegmentBases(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wire.New(wire.KindIOError, "streaming: read partition dir: %v", err)
	}
	var bases []uint64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		base, err := strconv.ParseUint(strings.TrimSuffix(e.Name(), ".log"), 10, 64)
		if err != nil {
			continue
		}
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })
	return bases, nil
}

func (p *Partition) activeSegment() *segment {
	return p.segments[len(p.segments)-1]
}

// CurrentOffset returns the next offset that will be assigned.
func (p *Partition) CurrentOffset() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentOffset
}

// Append assigns offsets to the batch, serializes it, rolls the active
// segment over if it would exceed the size threshold, and writes it
// (§4.2). The whole batch is atomic: on any write failure, current_offset
// is left unchanged and bytes already written are truncated back.
func (p *Partition) Append(messages []wire.OutgoingMessage) ([]Message, error) {
	p.appendMu.Lock()
	defer p.appendMu.Unlock()

	p.mu.RLock()
	startOffset := p.currentOffset
	active := p.activeSegment()
	preSize := active.sizeBytes
	p.mu.RUnlock()

	now := uint64(time.Now().UnixMicro())
	out := make([]Message, len(messages))
	var buf []byte
	for i, om := range messages {
		id := om.ID
		if id.IsZero() {
			id = newMessageID()
		}
		msg := Message{
			Offset: startOffset + uint64(i), ID: id, Timestamp: now,
			Headers: om.Headers, Payload: om.Payload, Checksum: checksum(om.Payload),
		}
		out[i] = msg
		buf = append(buf, encodeMessage(msg)...)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	active = p.activeSegment()
	if active.sizeBytes+int64(len(buf)) > p.limits.SegmentSizeBytes && !active.isEmpty() {
		if err := active.close(); err != nil {
			return nil, err
		}
		p.cache.put(active)
		next, err := openSegment(p.dir, startOffset, p.limits.IndexStride)
		if err != nil {
			return nil, err
		}
		p.segments = append(p.segments, next)
		active = next
	}

	lastOffset := out[len(out)-1].Offset
	if err := active.append(buf, startOffset, lastOffset, now, now); err != nil {
		active.logFile.Truncate(preSize)
		return nil, err
	}
	p.currentOffset = lastOffset + 1
	p.sinceLastFlush += len(messages)

	shouldFlush := p.limits.DurableAck
	if p.limits.FlushEveryN > 0 && p.sinceLastFlush >= p.limits.FlushEveryN {
		shouldFlush = true
	}
	if p.limits.FlushEvery > 0 && time.Since(p.lastFlush) >= p.limits.FlushEvery {
		shouldFlush = true
	}
	if shouldFlush {
		if err := active.flush(); err != nil {
			return nil, err
		}
		p.sinceLastFlush = 0
		p.lastFlush = time.Now()
	}
	return out, nil
}

func newMessageID() wire.MessageID {
	u := uuid.New()
	return wire.MessageID{
		High: bytesToUint64(u[0:8]),
		Low:  bytesToUint64(u[8:16]),
	}
}

func bytesToUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// resolveStartOffset implements §4.3's strategy resolution.
func (p *Partition) resolveStartOffset(consumer wire.Consumer, strategy wire.PollingStrategy, count uint32) (uint64, error) {
	switch strategy.Kind {
	case wire.PollFirst:
		return p.firstSegmentBase(), nil
	case wire.PollNext:
		stored := p.offsets.get(consumer)
		if stored == 0 {
			return p.firstSegmentBase(), nil
		}
		return stored + 1, nil
	case wire.PollLast:
		current := p.CurrentOffset()
		if current == 0 || uint64(count) >= current {
			return 0, nil
		}
		return current - uint64(count), nil
	case wire.PollOffset:
		current := p.CurrentOffset()
		if strategy.Value > current {
			return 0, wire.New(wire.KindOffsetOutOfRange, "streaming: offset %d beyond current %d", strategy.Value, current)
		}
		return strategy.Value, nil
	case wire.PollTimestamp:
		return p.firstOffsetAtOrAfterTimestamp(strategy.Value), nil
	default:
		return 0, wire.New(wire.KindInvalidCommand, "streaming: unknown polling strategy")
	}
}

func (p *Partition) firstSegmentBase() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.segments) == 0 {
		return 0
	}
	return p.segments[0].baseOffset
}

func (p *Partition) firstOffsetAtOrAfterTimestamp(ts uint64) uint64 {
	p.mu.RLock()
	segs := append([]*segment(nil), p.segments...)
	p.mu.RUnlock()
	for _, s := range segs {
		opened, err := p.resolveHandles(s)
		if err != nil {
			continue
		}
		if off, found, err := opened.firstOffsetAtOrAfterTimestamp(ts); err == nil && found {
			return off
		}
	}
	return p.CurrentOffset()
}

// resolveHandles returns a segment with live file handles, reopening a
// closed segment through the LRU cache if its handles were evicted.
func (p *Partition) resolveHandles(s *segment) (*segment, error) {
	if !s.closed {
		return s, nil
	}
	if cached, ok := p.cache.get(s.baseOffset); ok {
		return cached, nil
	}
	opened, err := openSegment(p.dir, s.baseOffset, p.limits.IndexStride)
	if err != nil {
		return nil, err
	}
	opened.closed = true
	p.cache.put(opened)
	return opened, nil
}

// Poll returns up to count consecutive messages starting at the offset
// resolved from strategy, holding only a shared snapshot of current_offset
// (§4.3): appends may proceed concurrently as long as the poll doesn't read
// past the offset observed at snapshot time.
func (p *Partition) Poll(consumer wire.Consumer, strategy wire.PollingStrategy, count uint32, autoCommit bool) ([]Message, error) {
	start, err := p.resolveStartOffset(consumer, strategy, count)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	snapshot := p.currentOffset
	segs := append([]*segment(nil), p.segments...)
	p.mu.RUnlock()

	if start >= snapshot {
		return nil, nil
	}

	var out []Message
	for _, s := range segs {
		if uint32(len(out)) >= count {
			break
		}
		if s.endOffset < start {
			continue
		}
		opened, err := p.resolveHandles(s)
		if err != nil {
			return out, err
		}
		from := start
		if s.baseOffset > from {
			from = s.baseOffset
		}
		msgs, err := opened.readFrom(from, count-uint32(len(out)))
		if err != nil {
			return out, err
		}
		for _, m := range msgs {
			if m.Offset >= snapshot {
				break
			}
			out = append(out, m)
		}
	}

	if autoCommit && len(out) > 0 {
		if err := p.offsets.store(consumer, out[len(out)-1].Offset); err != nil {
			return out, err
		}
	}
	return out, nil
}

// StoreConsumerOffset persists the consumer's last-read offset (§4.4).
func (p *Partition) StoreConsumerOffset(consumer wire.Consumer, offset uint64) error {
	return p.offsets.store(consumer, offset)
}

// GetConsumerOffset returns the stored offset, 0 if never committed.
func (p *Partition) GetConsumerOffset(consumer wire.Consumer) uint64 {
	return p.offsets.get(consumer)
}

// ApplyRetention deletes closed segments past message_expiry or cumulative
// size, oldest first, never touching the active segment or one still
// needed by a stored offset (§4.6, steps 2-3).
func (p *Partition) ApplyRetention(now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.segments) <= 1 {
		return nil
	}

	minRetained := p.minStoredOffset()
	var total int64
	for _, s := range p.segments {
		total += s.sizeBytes
	}

	active := p.segments[len(p.segments)-1]
	var retained []*segment
	for _, s := range p.segments[:len(p.segments)-1] {
		protectedByOffset := minRetained != 0 && s.endOffset >= minRetained
		overSize := p.limits.MaxPartitionBytes > 0 && total > p.limits.MaxPartitionBytes
		expiredByAge := p.limits.MessageExpiry > 0 && p.segmentExpired(s, now)

		if (overSize || expiredByAge) && !protectedByOffset {
			total -= s.sizeBytes
			if s.logFile != nil {
				s.releaseHandles()
			}
			removeSegmentFiles(p.dir, s.baseOffset)
			continue
		}
		retained = append(retained, s)
	}
	p.segments = append(retained, active)
	return nil
}

// segmentExpired reports whether the newest message in s is older than
// message_expiry.
func (p *Partition) segmentExpired(s *segment, now time.Time) bool {
	opened, err := p.resolveHandles(s)
	if err != nil {
		return false
	}
	newest, ok, err := opened.newestTimestamp()
	if err != nil || !ok {
		return false
	}
	age := now.Sub(time.UnixMicro(int64(newest)))
	return age > p.limits.MessageExpiry
}

func (p *Partition) minStoredOffset() uint64 {
	p.offsets.mu.RLock()
	defer p.offsets.mu.RUnlock()
	var min uint64
	first := true
	for _, off := range p.offsets.offsets {
		if first || off < min {
			min = off
			first = false
		}
	}
	return min
}

func removeSegmentFiles(dir string, baseOffset uint64) {
	logPath, indexPath, timeIndexPath := segmentPaths(dir, baseOffset)
	os.Remove(logPath)
	os.Remove(indexPath)
	os.Remove(timeIndexPath)
}

// Close flushes and releases all open segment handles, used on graceful
// shutdown.
func (p *Partition) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.segments {
		if s.closed {
			continue
		}
		if err := s.flush(); err != nil {
			return err
		}
		if err := s.releaseHandles(); err != nil {
			return err
		}
	}
	return nil
}
