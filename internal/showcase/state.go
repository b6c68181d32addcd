package showcase

import (
	"net/url"
	"strconv"

	"github.com/skbvisuals/skb/internal/catalog"
)

// State состояние ленты, которое передается в строке запроса
type State struct {
	Category catalog.Category
	Page     int
	Selected *int
	Muted    bool
}

// DefaultState All, первая страница, без выбора, звук выключен
func DefaultState() State {
	return State{Category: catalog.CategoryAll, Page: 1, Muted: true}
}

// ParseState читает состояние из параметров запроса.
// Некорректные значения заменяются значениями по умолчанию.
func ParseState(q url.Values) State {
	st := DefaultState()

	if c := q.Get("category"); c != "" {
		st.Category = catalog.Category(c)
	}
	if p, err := strconv.Atoi(q.Get("page")); err == nil {
		st.Page = p
	}
	if s, err := strconv.Atoi(q.Get("selected")); err == nil {
		st.Selected = &s
	}
	if m := q.Get("muted"); m != "" {
		if muted, err := strconv.ParseBool(m); err == nil {
			st.Muted = muted
		}
	}

	return st
}

// Query кодирует состояние обратно в строку запроса, опуская значения по умолчанию
func (s State) Query() url.Values {
	q := url.Values{}
	if s.Category != "" && s.Category != catalog.CategoryAll {
		q.Set("category", string(s.Category))
	}
	if s.Page > 1 {
		q.Set("page", strconv.Itoa(s.Page))
	}
	if s.Selected != nil {
		q.Set("selected", strconv.Itoa(*s.Selected))
	}
	if !s.Muted {
		q.Set("muted", "false")
	}
	return q
}

// Showcase лента роликов: фильтр, пагинация, выбор и плеер
type Showcase struct {
	catalog  *catalog.Catalog
	pageSize int
	category catalog.Category
	page     int
	modal    *Modal
}

// New создает ленту в состоянии по умолчанию
func New(cat *catalog.Catalog, pageSize int) *Showcase {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Showcase{
		catalog:  cat,
		pageSize: pageSize,
		category: catalog.CategoryAll,
		page:     1,
		modal:    NewModal(cat),
	}
}

// FromState восстанавливает ленту из состояния запроса.
// Номер страницы приводится к допустимому диапазону.
func FromState(cat *catalog.Catalog, pageSize int, st State) *Showcase {
	s := New(cat, pageSize)
	if st.Category != "" {
		s.category = st.Category
	}
	s.GoToPage(st.Page)
	s.modal.SetMuted(st.Muted)
	if st.Selected != nil {
		s.modal.Open(*st.Selected)
	}
	return s
}

// State возвращает текущее состояние для построения ссылок
func (s *Showcase) State() State {
	st := State{
		Category: s.category,
		Page:     s.page,
		Muted:    s.modal.Muted(),
	}
	if id, ok := s.modal.Selected(); ok {
		st.Selected = &id
	}
	return st
}

// Category выбранная категория
func (s *Showcase) Category() catalog.Category {
	return s.category
}

// CurrentPage номер текущей страницы (с 1)
func (s *Showcase) CurrentPage() int {
	return s.page
}

// Modal плеер ленты
func (s *Showcase) Modal() *Modal {
	return s.modal
}

// SelectCategory меняет фильтр и всегда сбрасывает страницу на первую
func (s *Showcase) SelectCategory(c catalog.Category) {
	s.category = c
	s.page = 1
}

// TotalPages количество страниц для текущего фильтра
func (s *Showcase) TotalPages() int {
	return TotalPages(len(s.filtered()), s.pageSize)
}

// GoToPage переходит на страницу, ограничивая ее [1, TotalPages]
func (s *Showcase) GoToPage(p int) {
	s.page = clamp(p, 1, s.TotalPages())
}

// Next следующая страница; на последней ничего не делает
func (s *Showcase) Next() {
	s.GoToPage(s.page + 1)
}

// Prev предыдущая страница; на первой ничего не делает
func (s *Showcase) Prev() {
	s.GoToPage(s.page - 1)
}

// Select открывает плеер для элемента; флаг mute сохраняется
func (s *Showcase) Select(id int) {
	s.modal.Open(id)
}

// CloseModal закрывает плеер
func (s *Showcase) CloseModal() {
	s.modal.Close()
}

// ToggleMute переключает звук плеера
func (s *Showcase) ToggleMute() bool {
	return s.modal.ToggleMute()
}

// CurrentPageItems текущая страница отфильтрованной ленты
func (s *Showcase) CurrentPageItems() Page {
	return Paginate(s.filtered(), s.pageSize, s.page)
}

func (s *Showcase) filtered() []catalog.MediaItem {
	return Filter(s.catalog.Items(), s.category)
}

// CategoryLink пункт панели фильтров
type CategoryLink struct {
	Category catalog.Category
	Active   bool
	Query    string
}

// View данные ленты для шаблона
type View struct {
	Categories []CategoryLink
	Page       Page
	Cards      []*Card
	PrevQuery  string
	NextQuery  string
	Modal      *ModalView
	CloseQuery string
	MuteQuery  string
	State      State

	feed *Showcase
}

// SelectQuery ссылка на открытие плеера для элемента
func (v View) SelectQuery(id int) string {
	return v.feed.after(func(c *Showcase) { c.Select(id) })
}

// after применяет переход к копии ленты и кодирует получившееся состояние
func (s *Showcase) after(apply func(c *Showcase)) string {
	c := FromState(s.catalog, s.pageSize, s.State())
	apply(c)
	return c.State().Query().Encode()
}

// View собирает данные для отрисовки ленты
func (s *Showcase) View() View {
	st := s.State()
	page := s.CurrentPageItems()

	v := View{
		Page:  page,
		State: st,
		feed:  s,
	}

	// навигация по ленте закрывает плеер
	for _, c := range s.catalog.Categories() {
		v.Categories = append(v.Categories, CategoryLink{
			Category: c,
			Active:   c == s.category,
			Query: s.after(func(f *Showcase) {
				f.SelectCategory(c)
				f.CloseModal()
			}),
		})
	}

	for i, item := range page.Items {
		v.Cards = append(v.Cards, NewCard(item, i, nil))
	}

	if page.HasPrev() {
		v.PrevQuery = s.after(func(f *Showcase) {
			f.Prev()
			f.CloseModal()
		})
	}
	if page.HasNext() {
		v.NextQuery = s.after(func(f *Showcase) {
			f.Next()
			f.CloseModal()
		})
	}

	if mv, ok := s.modal.View(); ok {
		v.Modal = &mv
		v.CloseQuery = s.after((*Showcase).CloseModal)
		v.MuteQuery = s.after(func(f *Showcase) { f.ToggleMute() })
	}

	return v
}
