package showcase

import "github.com/skbvisuals/skb/internal/catalog"

// MutableElement элемент, на который модальное окно переносит флаг mute
type MutableElement interface {
	SetMuted(muted bool)
}

// Modal полноэкранный плеер для одного выбранного элемента.
// Флаг mute живет дольше одного открытия и по умолчанию включен.
type Modal struct {
	catalog  *catalog.Catalog
	selected *int
	muted    bool
	element  MutableElement
}

// ModalView то, что нужно шаблону для отрисовки плеера
type ModalView struct {
	Item     catalog.MediaItem `json:"item"`
	Muted    bool              `json:"muted"`
	Autoplay bool              `json:"autoplay"`
	Loop     bool              `json:"loop"`
}

func NewModal(cat *catalog.Catalog) *Modal {
	return &Modal{catalog: cat, muted: true}
}

// Attach привязывает активный медиа-элемент и синхронизирует mute
func (m *Modal) Attach(el MutableElement) {
	m.element = el
	if el != nil {
		el.SetMuted(m.muted)
	}
}

// Open выбирает элемент по ID. Несуществующий ID делает выбор инертным.
func (m *Modal) Open(id int) {
	m.selected = &id
}

// Close закрывает плеер кнопкой
func (m *Modal) Close() {
	m.selected = nil
	m.element = nil
}

// BackdropClick клик по фону закрывает плеер
func (m *Modal) BackdropClick() {
	m.Close()
}

// ContentClick клик внутри панели не всплывает до фона
func (m *Modal) ContentClick() {}

// ToggleMute переключает звук и сразу переносит флаг на элемент
func (m *Modal) ToggleMute() bool {
	m.muted = !m.muted
	if m.element != nil {
		m.element.SetMuted(m.muted)
	}
	return m.muted
}

// Muted текущий флаг звука
func (m *Modal) Muted() bool {
	return m.muted
}

// SetMuted восстанавливает флаг (например, из строки запроса)
func (m *Modal) SetMuted(muted bool) {
	m.muted = muted
}

// Selected возвращает выбранный ID, если он есть
func (m *Modal) Selected() (int, bool) {
	if m.selected == nil {
		return 0, false
	}
	return *m.selected, true
}

// IsOpen сообщает, отрисовывается ли плеер: выбор есть и разрешается в каталоге
func (m *Modal) IsOpen() bool {
	_, ok := m.View()
	return ok
}

// View возвращает данные для отрисовки; false, если рисовать нечего
func (m *Modal) View() (ModalView, bool) {
	if m.selected == nil {
		return ModalView{}, false
	}
	item, ok := m.catalog.Get(*m.selected)
	if !ok {
		return ModalView{}, false
	}
	return ModalView{
		Item:     item,
		Muted:    m.muted,
		Autoplay: true,
		Loop:     true,
	}, true
}
