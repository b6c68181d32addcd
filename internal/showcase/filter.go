package showcase

import "github.com/skbvisuals/skb/internal/catalog"

// Filter возвращает элементы выбранной категории в исходном порядке.
// Для All возвращается весь список; неизвестная категория дает пустой срез.
func Filter(items []catalog.MediaItem, category catalog.Category) []catalog.MediaItem {
	if category == catalog.CategoryAll {
		out := make([]catalog.MediaItem, len(items))
		copy(out, items)
		return out
	}

	out := make([]catalog.MediaItem, 0)
	for _, item := range items {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out
}
