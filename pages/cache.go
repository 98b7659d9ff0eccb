package pages

import "sync"

// TmplCache memoizes parsed templates by stack key.
type TmplCache[K comparable, V any] struct {
	data  map[K]V
	mutex sync.RWMutex
}

func NewTmplCache[K comparable, V any]() *TmplCache[K, V] {
	return &TmplCache[K, V]{
		data: make(map[K]V),
	}
}

func (c *TmplCache[K, V]) Get(key K) (V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	val, exists := c.data[key]
	return val, exists
}

// GetOrBuild returns the cached value for key, building and storing it on
// a miss. Build errors are not cached.
func (c *TmplCache[K, V]) GetOrBuild(key K, build func() (V, error)) (V, error) {
	if val, ok := c.Get(key); ok {
		return val, nil
	}

	val, err := build()
	if err != nil {
		return val, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if existing, ok := c.data[key]; ok {
		return existing, nil
	}
	c.data[key] = val
	return val, nil
}

func (c *TmplCache[K, V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}
