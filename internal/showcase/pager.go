package showcase

import "github.com/skbvisuals/skb/internal/catalog"

// DefaultPageSize размер страницы ленты
const DefaultPageSize = 12

// Page одна страница отфильтрованной ленты
type Page struct {
	Items      []catalog.MediaItem `json:"items"`
	Number     int                 `json:"page"`
	Size       int                 `json:"page_size"`
	TotalPages int                 `json:"total_pages"`
	TotalItems int                 `json:"total_items"`
}

// HasPrev сообщает, активна ли кнопка «назад»
func (p Page) HasPrev() bool {
	return p.Number > 1
}

// HasNext сообщает, активна ли кнопка «вперед»
func (p Page) HasNext() bool {
	return p.Number < p.TotalPages
}

// TotalPages возвращает ceil(n/size), минимум 1
func TotalPages(n, size int) int {
	if size <= 0 || n == 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Paginate возвращает срез [(page-1)*size, page*size), ограниченный границами items.
// Номер страницы не проверяется: за диапазон отвечает вызывающий.
func Paginate(items []catalog.MediaItem, size, page int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}

	start := clamp((page-1)*size, 0, len(items))
	end := clamp(page*size, start, len(items))

	return Page{
		Items:      items[start:end:end],
		Number:     page,
		Size:       size,
		TotalPages: TotalPages(len(items), size),
		TotalItems: len(items),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
