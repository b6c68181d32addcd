package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound возвращается, когда элемента с таким ID нет в каталоге
var ErrNotFound = errors.New("media item not found")

// Catalog неизменяемый упорядоченный список роликов.
// После создания изменить его нельзя; Items возвращает копию.
type Catalog struct {
	items []MediaItem
	index map[int]int // id -> позиция
}

// New создает каталог, проверяя элементы
func New(items []MediaItem) (*Catalog, error) {
	c := &Catalog{
		items: make([]MediaItem, len(items)),
		index: make(map[int]int, len(items)),
	}
	copy(c.items, items)

	for i, item := range c.items {
		if err := validateItem(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if _, dup := c.index[item.ID]; dup {
			return nil, fmt.Errorf("item %d: duplicate id %d", i, item.ID)
		}
		c.index[item.ID] = i
	}

	return c, nil
}

func validateItem(item MediaItem) error {
	if item.ID <= 0 {
		return fmt.Errorf("id must be positive, got %d", item.ID)
	}
	if !item.Category.Valid() {
		return fmt.Errorf("unknown category %q", item.Category)
	}
	if strings.TrimSpace(item.Title) == "" {
		return errors.New("title is required")
	}
	if item.VideoURI == "" && item.ThumbURI == "" {
		return errors.New("either video or thumb is required")
	}
	return nil
}

// Items возвращает копию всех элементов в исходном порядке
func (c *Catalog) Items() []MediaItem {
	out := make([]MediaItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len возвращает количество элементов
func (c *Catalog) Len() int {
	return len(c.items)
}

// Get ищет элемент по ID
func (c *Catalog) Get(id int) (MediaItem, bool) {
	i, ok := c.index[id]
	if !ok {
		return MediaItem{}, false
	}
	return c.items[i], true
}

// Lookup то же, что Get, но с ошибкой ErrNotFound
func (c *Catalog) Lookup(id int) (MediaItem, error) {
	item, ok := c.Get(id)
	if !ok {
		return MediaItem{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return item, nil
}

// Categories возвращает панель фильтров: All и фиксированный набор
func (c *Catalog) Categories() []Category {
	out := make([]Category, 0, len(Categories)+1)
	out = append(out, CategoryAll)
	return append(out, Categories...)
}

// ReferencingPath возвращает ID элементов, ссылающихся на файл ресурса
func (c *Catalog) ReferencingPath(rel string) []int {
	var ids []int
	for _, item := range c.items {
		if sameAsset(item.VideoURI, rel) || sameAsset(item.ThumbURI, rel) {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

func sameAsset(uri, rel string) bool {
	if uri == "" {
		return false
	}
	return strings.TrimPrefix(uri, "/assets/") == strings.TrimPrefix(rel, "/")
}
