package records

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	body     []byte
	modified time.Time
}

// MemoryArchive is an in-process Archive for tests and single-binary
// development runs. Nothing survives a restart.
type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	clock   func() time.Time
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		objects: make(map[string]memoryObject),
		clock:   time.Now,
	}
}

// WithClock overrides the timestamp source. Used by tests that assert
// on LastModified windows.
func (a *MemoryArchive) WithClock(clock func() time.Time) *MemoryArchive {
	a.clock = clock
	return a
}

func (a *MemoryArchive) Put(ctx context.Context, key string, v any) error {
	data, err := marshalRecord(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = memoryObject{body: data, modified: a.clock().UTC()}
	return nil
}

func (a *MemoryArchive) Get(ctx context.Context, key string, out any) error {
	a.mu.RLock()
	obj, ok := a.objects[key]
	a.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(obj.body, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (a *MemoryArchive) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var infos []ObjectInfo
	for key, obj := range a.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, ObjectInfo{Key: key, LastModified: obj.modified})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (a *MemoryArchive) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, key)
	return nil
}
