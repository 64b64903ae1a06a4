package labels

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	info Info
	data []byte
}

// Memory is an in-process Archive for dev runs and tests.
type Memory struct {
	mu   sync.RWMutex
	objs map[string]memEntry
}

// NewMemory returns an empty in-memory archive.
func NewMemory() *Memory {
	return &Memory{objs: make(map[string]memEntry)}
}

// Driver returns the archive driver identifier.
func (m *Memory) Driver() string { return DriverMemory }

// Put stores a label image, replacing any previous render under the key.
func (m *Memory) Put(_ context.Context, key string, data []byte, contentType string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	info := Info{
		Key:          key,
		Size:         int64(len(cp)),
		ContentType:  contentType,
		LastModified: time.Now().UTC(),
	}
	m.objs[key] = memEntry{info: info, data: cp}
	return info, nil
}

// Get returns the archived image and its metadata.
func (m *Memory) Get(_ context.Context, key string) ([]byte, Info, error) {
	m.mu.RLock()
	obj, ok := m.objs[key]
	m.mu.RUnlock()
	if !ok {
		return nil, Info{}, fmt.Errorf("label %s not found", key)
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, obj.info, nil
}

// List returns metadata for every archived label under prefix, sorted by key.
func (m *Memory) List(_ context.Context, prefix string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Info, 0, len(m.objs))
	for k, v := range m.objs {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			out = append(out, v.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
