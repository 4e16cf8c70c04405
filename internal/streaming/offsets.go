package streaming

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ericlarwa/gridline/internal/wire"
)

// consumerKey is the in-memory form of wire.Consumer, used as a map key and
// to name the on-disk offset file (§4.4, §6 "offsets/<consumer_key>.off").
type consumerKey struct {
	kind wire.ConsumerKind
	id   uint32
}

func keyFor(c wire.Consumer) consumerKey { return consumerKey{kind: c.Kind, id: c.ID} }

func (k consumerKey) fileName() string {
	if k.kind == wire.ConsumerKindGroup {
		return fmt.Sprintf("group-%d.off", k.id)
	}
	return fmt.Sprintf("consumer-%d.off", k.id)
}

// offsetStore tracks committed offsets for one partition, keyed by
// consumer or consumer-group id. GetConsumerOffset never errors on a miss
// (§4.4): absent means 0.
type offsetStore struct {
	mu      sync.RWMutex
	dir     string
	offsets map[consumerKey]uint64
}

func openOffsetStore(dir string) (*offsetStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, wire.New(wire.KindIOError, "streaming: create offsets dir: %v", err)
	}
	o := &offsetStore{dir: dir, offsets: make(map[consumerKey]uint64)}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wire.New(wire.KindIOError, "streaming: read offsets dir: %v", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := parseOffsetFileName(e.Name())
		if !ok {
			continue
		}
		val, err := readOffsetFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		o.offsets[key] = val
	}
	return o, nil
}

func parseOffsetFileName(name string) (consumerKey, bool) {
	var kind wire.ConsumerKind
	var id uint32
	if n, err := fmt.Sscanf(name, "consumer-%d.off", &id); err == nil && n == 1 {
		kind = wire.ConsumerKindConsumer
		return consumerKey{kind: kind, id: id}, true
	}
	if n, err := fmt.Sscanf(name, "group-%d.off", &id); err == nil && n == 1 {
		kind = wire.ConsumerKindGroup
		return consumerKey{kind: kind, id: id}, true
	}
	return consumerKey{}, false
}

func readOffsetFile(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, wire.New(wire.KindIOError, "streaming: read offset file: %v", err)
	}
	if len(b) < 8 {
		return 0, nil
	}
	return binary.LittleEndian.Uint64(b), nil
}

// get returns the stored offset for a consumer, 0 if never committed.
func (o *offsetStore) get(c wire.Consumer) uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.offsets[keyFor(c)]
}

// store commits an offset, last-writer-wins, fsyncing the small 8-byte file
// (§4.4: "writes are fsynced no less often than every T_offset ms" — here
// every write fsyncs, which trivially satisfies that bound).
func (o *offsetStore) store(c wire.Consumer, offset uint64) error {
	key := keyFor(c)
	o.mu.Lock()
	o.offsets[key] = offset
	o.mu.Unlock()

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, offset)
	path := filepath.Join(o.dir, key.fileName())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return wire.New(wire.KindIOError, "streaming: open offset file: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(buf); err != nil {
		return wire.New(wire.KindIOError, "streaming: write offset file: %v", err)
	}
	return f.Sync()
}
