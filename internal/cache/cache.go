package cache

import (
	"sync"
	"time"
)

// Item представляет элемент кэша
type Item[V any] struct {
	Value      V
	Expiration int64
}

// IsExpired проверяет, истек ли срок жизни элемента
func (i *Item[V]) IsExpired() bool {
	if i.Expiration == 0 {
		return false
	}
	return time.Now().UnixNano() > i.Expiration
}

// Cache представляет in-memory кэш с TTL
type Cache[V any] struct {
	items             map[string]*Item[V]
	mu                sync.RWMutex
	defaultExpiration time.Duration
	cleanupInterval   time.Duration
	stopCleanup       chan struct{}
	stopOnce          sync.Once
	maxItems          int
	onEvicted         func(key string, value V)
}

// Config конфигурация кэша
type Config[V any] struct {
	DefaultExpiration time.Duration
	CleanupInterval   time.Duration
	MaxItems          int
	OnEvicted         func(key string, value V)
}

// New создает новый кэш
func New[V any](config Config[V]) *Cache[V] {
	if config.DefaultExpiration == 0 {
		config.DefaultExpiration = 5 * time.Minute
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = 10 * time.Minute
	}
	if config.MaxItems == 0 {
		config.MaxItems = 10000
	}

	c := &Cache[V]{
		items:             make(map[string]*Item[V]),
		defaultExpiration: config.DefaultExpiration,
		cleanupInterval:   config.CleanupInterval,
		stopCleanup:       make(chan struct{}),
		maxItems:          config.MaxItems,
		onEvicted:         config.OnEvicted,
	}

	go c.cleanupLoop()

	return c
}

// Set добавляет элемент в кэш с TTL по умолчанию
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultExpiration)
}

// SetWithTTL добавляет элемент с указанным TTL
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Проверяем лимит и удаляем старые элементы если нужно
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxItems {
		c.evictOldest()
	}

	c.items[key] = &Item[V]{
		Value:      value,
		Expiration: expiration,
	}
}

// Get получает элемент из кэша
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	item, found := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !found {
		return zero, false
	}

	if item.IsExpired() {
		c.Delete(key)
		return zero, false
	}

	return item.Value, true
}

// Delete удаляет элемент из кэша
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, found := c.items[key]; found {
		if c.onEvicted != nil {
			c.onEvicted(key, item.Value)
		}
		delete(c.items, key)
	}
}

// Clear очищает кэш
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvicted != nil {
		for key, item := range c.items {
			c.onEvicted(key, item.Value)
		}
	}

	c.items = make(map[string]*Item[V])
}

// Count возвращает количество элементов в кэше
func (c *Cache[V]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop останавливает фоновую очистку
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

// Stats возвращает статистику кэша
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expired := 0
	for _, item := range c.items {
		if item.IsExpired() {
			expired++
		}
	}

	return Stats{
		Items:        len(c.items),
		MaxItems:     c.maxItems,
		ExpiredItems: expired,
	}
}

// Stats статистика кэша
type Stats struct {
	Items        int `json:"items"`
	MaxItems     int `json:"max_items"`
	ExpiredItems int `json:"expired_items"`
}

func (c *Cache[V]) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCleanup:
			return
		case <-ticker.C:
			c.deleteExpired()
		}
	}
}

func (c *Cache[V]) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, item := range c.items {
		if item.IsExpired() {
			if c.onEvicted != nil {
				c.onEvicted(key, item.Value)
			}
			delete(c.items, key)
		}
	}
}

// evictOldest удаляет элемент с ближайшим сроком истечения
func (c *Cache[V]) evictOldest() {
	var (
		keyToDelete string
		soonest     int64
	)

	for key, item := range c.items {
		if item.IsExpired() {
			keyToDelete = key
			break
		}
		if keyToDelete == "" || (item.Expiration != 0 && item.Expiration < soonest) {
			keyToDelete = key
			soonest = item.Expiration
		}
	}

	if keyToDelete != "" {
		if c.onEvicted != nil {
			c.onEvicted(keyToDelete, c.items[keyToDelete].Value)
		}
		delete(c.items, keyToDelete)
	}
}
