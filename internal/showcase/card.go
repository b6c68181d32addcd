package showcase

import (
	"sync"
	"time"

	"github.com/skbvisuals/skb/internal/catalog"
)

// MediaElement примитивы воспроизведения, которыми управляет карточка
type MediaElement interface {
	Seek(pos time.Duration)
	Play() error
	Pause()
}

// SelectEvent испускается при клике по карточке
type SelectEvent struct {
	ID int
}

// Card карточка ролика с превью при наведении.
// Владеет своим элементом; состояние карточки локально.
type Card struct {
	Item     catalog.MediaItem
	Index    int // позиция на странице, задает пропорции
	media    MediaElement
	lazy     *LazySource
	hovering bool
}

// NewCard привязывает элемент каталога к медиа-элементу.
// media может быть nil, если у элемента нет видео.
func NewCard(item catalog.MediaItem, index int, media MediaElement) *Card {
	return &Card{
		Item:  item,
		Index: index,
		media: media,
		lazy:  NewLazySource(item.VideoURI),
	}
}

// Previewing сообщает, идет ли превью
func (c *Card) Previewing() bool {
	return c.hovering
}

// PointerEnter idle → previewing: перемотка в начало и запуск.
// Отказ воспроизведения (например, политика автозапуска) молча игнорируется.
func (c *Card) PointerEnter() {
	c.hovering = true
	if c.media == nil || !c.Item.HasVideo() {
		return
	}
	c.media.Seek(0)
	_ = c.media.Play()
}

// PointerLeave previewing → idle: пауза и возврат в начало
func (c *Card) PointerLeave() {
	c.hovering = false
	if c.media == nil {
		return
	}
	c.media.Pause()
	c.media.Seek(0)
}

// Click испускает событие выбора; состояние карточки не меняется
func (c *Card) Click() SelectEvent {
	return SelectEvent{ID: c.Item.ID}
}

// Lazy возвращает отложенный источник видео карточки
func (c *Card) Lazy() *LazySource {
	return c.lazy
}

// AspectRatio чередует пропорции карточек в сетке
func (c *Card) AspectRatio() string {
	switch c.Index % 3 {
	case 0:
		return "3/4"
	case 1:
		return "4/5"
	default:
		return "1/1"
	}
}

// LazySource одноразовая защелка видимости: адрес видео отдается только
// после первого попадания в область видимости, затем наблюдение отключается.
type LazySource struct {
	mu        sync.Mutex
	uri       string
	inView    bool
	connected bool
}

func NewLazySource(uri string) *LazySource {
	return &LazySource{uri: uri, connected: true}
}

// Intersect обрабатывает уведомление о пересечении
func (l *LazySource) Intersect(visible bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected || !visible {
		return
	}
	l.inView = true
	l.connected = false
}

// Connected сообщает, продолжается ли наблюдение
func (l *LazySource) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// URI отложенный адрес видео, который клиент подставит при появлении карточки
func (l *LazySource) URI() string {
	return l.uri
}

// Source возвращает адрес видео или пустую строку до появления в области видимости
func (l *LazySource) Source() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.inView {
		return ""
	}
	return l.uri
}
