package reconcile

import "sync"

// NameIndex is the set of product names known to be stored. It grows after
// every flush so later pages route known names to the update path.
type NameIndex struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

func NewNameIndex(names ...string) *NameIndex {
	idx := &NameIndex{names: make(map[string]struct{}, len(names))}
	idx.Add(names...)
	return idx
}

func (i *NameIndex) Contains(name string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.names[name]
	return ok
}

func (i *NameIndex) Add(names ...string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, n := range names {
		i.names[n] = struct{}{}
	}
}

func (i *NameIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.names)
}
