package streaming

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ericlarwa/gridline/internal/wire"
)

const (
	offsetIndexEntrySize = 8  // rel_offset u32, position u32
	timeIndexEntrySize   = 12 // timestamp u64, rel_offset u32
)

// segment is one base_offset-named slice of a partition's log: the log file
// itself plus its offset and time indices (§3 Segment, §6 on-disk layout).
type segment struct {
	baseOffset uint64
	endOffset  uint64 // last assigned offset, baseOffset-1 when empty
	sizeBytes  int64
	closed     bool

	dir           string
	logFile       *os.File
	indexFile     *os.File
	timeIndexFile *os.File

	indexStride     int64 // bytes between offset-index entries
	bytesSinceIndex int64
}

func segmentPaths(dir string, baseOffset uint64) (logPath, indexPath, timeIndexPath string) {
	name := fmt.Sprintf("%020d", baseOffset)
	return filepath.Join(dir, name+".log"),
		filepath.Join(dir, name+".index"),
		filepath.Join(dir, name+".timeindex")
}

// openSegment opens (or creates) the three files backing one segment and
// seeks endOffset/sizeBytes from what's already on disk, so restart recovery
// (§6) falls out of the same code path as normal rollover.
func openSegment(dir string, baseOffset uint64, indexStride int64) (*segment, error) {
	logPath, indexPath, timeIndexPath := segmentPaths(dir, baseOffset)

	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, wire.New(wire.KindIOError, "streaming: open segment log: %v", err)
	}
	indexFile, err := os.OpenFile(indexPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		logFile.Close()
		return nil, wire.New(wire.KindIOError, "streaming: open segment index: %v", err)
	}
	timeIndexFile, err := os.OpenFile(timeIndexPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		logFile.Close()
		indexFile.Close()
		return nil, wire.New(wire.KindIOError, "streaming: open segment timeindex: %v", err)
	}

	info, err := logFile.Stat()
	if err != nil {
		return nil, wire.New(wire.KindIOError, "streaming: stat segment log: %v", err)
	}

	s := &segment{
		baseOffset:    baseOffset,
		endOffset:     baseOffset - 1,
		sizeBytes:     info.Size(),
		dir:           dir,
		logFile:       logFile,
		indexFile:     indexFile,
		timeIndexFile: timeIndexFile,
		indexStride:   indexStride,
	}

	if err := s.recoverTail(); err != nil {
		return nil, err
	}
	return s, nil
}

// recoverTail replays the log from the start to find the true end offset
// and truncates any trailing bytes past the last valid checksum (§6: "seeks
// each partition's current_offset by scanning the last segment's tail").
func (s *segment) recoverTail() error {
	if s.sizeBytes == 0 {
		return nil
	}
	buf := make([]byte, s.sizeBytes)
	if _, err := s.logFile.ReadAt(buf, 0); err != nil {
		return wire.New(wire.KindIOError, "streaming: read segment for recovery: %v", err)
	}
	var pos int64
	var lastOffset uint64
	haveAny := false
	for pos < int64(len(buf)) {
		m, n, err := decodeMessage(buf[pos:])
		if err != nil {
			break
		}
		lastOffset = m.Offset
		haveAny = true
		pos += int64(n)
	}
	if pos < s.sizeBytes {
		if err := s.logFile.Truncate(pos); err != nil {
			return wire.New(wire.KindIOError, "streaming: truncate corrupt tail: %v", err)
		}
		s.sizeBytes = pos
	}
	if haveAny {
		s.endOffset = lastOffset
	}
	return nil
}

func (s *segment) isEmpty() bool { return s.endOffset+1 == s.baseOffset }

// append writes the already-encoded batch and records index entries at the
// configured stride plus the batch's first/last time-index entries (§4.2
// steps 2 and 4).
func (s *segment) append(buf []byte, firstOffset, lastOffset, firstTS, lastTS uint64) error {
	startPos := s.sizeBytes
	n, err := s.logFile.WriteAt(buf, startPos)
	if err != nil {
		// partial write: truncate back to pre-append size (§4.2 atomicity rule).
		s.logFile.Truncate(startPos)
		return wire.New(wire.KindIOError, "streaming: append segment log: %v", err)
	}
	s.sizeBytes += int64(n)
	s.endOffset = lastOffset
	s.bytesSinceIndex += int64(n)

	if s.bytesSinceIndex >= s.indexStride || s.isOnlyEntry() {
		if err := s.writeOffsetIndexEntry(lastOffset, startPos); err != nil {
			return err
		}
		s.bytesSinceIndex = 0
	}
	if err := s.writeTimeIndexEntry(firstTS, firstOffset); err != nil {
		return err
	}
	if lastOffset != firstOffset {
		if err := s.writeTimeIndexEntry(lastTS, lastOffset); err != nil {
			return err
		}
	}
	return nil
}

func (s *segment) isOnlyEntry() bool {
	info, err := s.indexFile.Stat()
	return err == nil && info.Size() == 0
}

func (s *segment) writeOffsetIndexEntry(offset uint64, position int64) error {
	entry := make([]byte, offsetIndexEntrySize)
	binary.LittleEndian.PutUint32(entry[0:4], uint32(offset-s.baseOffset))
	binary.LittleEndian.PutUint32(entry[4:8], uint32(position))
	info, err := s.indexFile.Stat()
	if err != nil {
		return wire.New(wire.KindIOError, "streaming: stat offset index: %v", err)
	}
	if _, err := s.indexFile.WriteAt(entry, info.Size()); err != nil {
		return wire.New(wire.KindIOError, "streaming: write offset index: %v", err)
	}
	return nil
}

func (s *segment) writeTimeIndexEntry(ts uint64, offset uint64) error {
	entry := make([]byte, timeIndexEntrySize)
	binary.LittleEndian.PutUint64(entry[0:8], ts)
	binary.LittleEndian.PutUint32(entry[8:12], uint32(offset-s.baseOffset))
	info, err := s.timeIndexFile.Stat()
	if err != nil {
		return wire.New(wire.KindIOError, "streaming: stat time index: %v", err)
	}
	if _, err := s.timeIndexFile.WriteAt(entry, info.Size()); err != nil {
		return wire.New(wire.KindIOError, "streaming: write time index: %v", err)
	}
	return nil
}

// flush fsyncs the log and both index files.
func (s *segment) flush() error {
	if err := s.logFile.Sync(); err != nil {
		return wire.New(wire.KindIOError, "streaming: fsync segment log: %v", err)
	}
	if err := s.indexFile.Sync(); err != nil {
		return wire.New(wire.KindIOError, "streaming: fsync offset index: %v", err)
	}
	if err := s.timeIndexFile.Sync(); err != nil {
		return wire.New(wire.KindIOError, "streaming: fsync time index: %v", err)
	}
	return nil
}

// close marks the segment closed, flushing first. A closed segment's file
// handles are still usable for reads; the partition's LRU decides when to
// actually release them.
func (s *segment) close() error {
	s.closed = true
	return s.flush()
}

func (s *segment) releaseHandles() error {
	if err := s.logFile.Close(); err != nil {
		return err
	}
	if err := s.indexFile.Close(); err != nil {
		return err
	}
	return s.timeIndexFile.Close()
}

// nearestIndexedPosition returns the largest log byte position indexed at
// or before targetOffset, used to skip forward instead of scanning from 0.
func (s *segment) nearestIndexedPosition(targetOffset uint64) (int64, error) {
	info, err := s.indexFile.Stat()
	if err != nil {
		return 0, wire.New(wire.KindIOError, "streaming: stat offset index: %v", err)
	}
	count := info.Size() / offsetIndexEntrySize
	if count == 0 {
		return 0, nil
	}
	buf := make([]byte, info.Size())
	if _, err := s.indexFile.ReadAt(buf, 0); err != nil {
		return 0, wire.New(wire.KindIOError, "streaming: read offset index: %v", err)
	}
	relTarget := uint32(targetOffset - s.baseOffset)
	var best int64
	lo, hi := int64(0), count-1
	for lo <= hi {
		mid := (lo + hi) / 2
		rel := binary.LittleEndian.Uint32(buf[mid*offsetIndexEntrySize:])
		pos := binary.LittleEndian.Uint32(buf[mid*offsetIndexEntrySize+4:])
		if rel <= relTarget {
			best = int64(pos)
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, nil
}

// firstOffsetAtOrAfterTimestamp binary-searches the time index for the
// lowest offset with timestamp >= ts (§4.3 Timestamp strategy).
func (s *segment) firstOffsetAtOrAfterTimestamp(ts uint64) (uint64, bool, error) {
	info, err := s.timeIndexFile.Stat()
	if err != nil {
		return 0, false, wire.New(wire.KindIOError, "streaming: stat time index: %v", err)
	}
	count := info.Size() / timeIndexEntrySize
	if count == 0 {
		return 0, false, nil
	}
	buf := make([]byte, info.Size())
	if _, err := s.timeIndexFile.ReadAt(buf, 0); err != nil {
		return 0, false, wire.New(wire.KindIOError, "streaming: read time index: %v", err)
	}
	lo, hi := int64(0), count-1
	found := false
	var rel uint32
	for lo <= hi {
		mid := (lo + hi) / 2
		entryTS := binary.LittleEndian.Uint64(buf[mid*timeIndexEntrySize:])
		entryRel := binary.LittleEndian.Uint32(buf[mid*timeIndexEntrySize+8:])
		if entryTS >= ts {
			found = true
			rel = entryRel
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	if !found {
		return 0, false, nil
	}
	return s.baseOffset + uint64(rel), true, nil
}

// newestTimestamp returns the last time-index entry's timestamp.
func (s *segment) newestTimestamp() (uint64, bool, error) {
	info, err := s.timeIndexFile.Stat()
	if err != nil {
		return 0, false, wire.New(wire.KindIOError, "streaming: stat time index: %v", err)
	}
	count := info.Size() / timeIndexEntrySize
	if count == 0 {
		return 0, false, nil
	}
	entry := make([]byte, timeIndexEntrySize)
	if _, err := s.timeIndexFile.ReadAt(entry, (count-1)*timeIndexEntrySize); err != nil {
		return 0, false, wire.New(wire.KindIOError, "streaming: read time index: %v", err)
	}
	return binary.LittleEndian.Uint64(entry[0:8]), true, nil
}

// readFrom reads and decodes up to count messages starting at the first
// message whose offset is >= fromOffset.
func (s *segment) readFrom(fromOffset uint64, count uint32) ([]Message, error) {
	startPos, err := s.nearestIndexedPosition(fromOffset)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, s.sizeBytes-startPos)
	if len(buf) == 0 {
		return nil, nil
	}
	if _, err := s.logFile.ReadAt(buf, startPos); err != nil {
		return nil, wire.New(wire.KindIOError, "streaming: read segment log: %v", err)
	}
	var out []Message
	pos := 0
	for pos < len(buf) && uint32(len(out)) < count {
		m, n, err := decodeMessage(buf[pos:])
		if err != nil {
			return out, err
		}
		pos += n
		if m.Offset < fromOffset {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
