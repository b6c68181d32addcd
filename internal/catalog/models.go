package catalog

// Category определяет категорию ролика
type Category string

const (
	CategoryAll       Category = "All" // фильтр-заглушка, у элементов не встречается
	CategoryCinematic Category = "Cinematic"
	CategoryDrone     Category = "Drone Shots"
	CategoryEvents    Category = "Events"
	CategoryReels     Category = "Reels"
)

// Categories фиксированный набор категорий в порядке отображения
var Categories = []Category{
	CategoryCinematic,
	CategoryDrone,
	CategoryEvents,
	CategoryReels,
}

// Valid проверяет, входит ли категория в фиксированный набор
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// MediaItem представляет ролик в ленте
type MediaItem struct {
	ID       int      `json:"id" yaml:"id"`
	Category Category `json:"category" yaml:"category"`
	Title    string   `json:"title" yaml:"title"`
	Views    string   `json:"views" yaml:"views"`                         // только для отображения: "1.2M"
	VideoURI string   `json:"video_uri,omitempty" yaml:"video"`           // путь к видео
	ThumbURI string   `json:"thumb_uri,omitempty" yaml:"thumb,omitempty"` // постер (необязателен)
}

// HasVideo сообщает, есть ли у элемента видео для превью
func (m MediaItem) HasVideo() bool {
	return m.VideoURI != ""
}

// Project представляет карточку в разделе Signature Projects
type Project struct {
	Title    string `json:"title" yaml:"title"`
	Thumb    string `json:"thumb" yaml:"thumb"`
	Duration string `json:"duration" yaml:"duration"`
	Location string `json:"location" yaml:"location"`
	Genre    string `json:"genre" yaml:"genre"`
	Year     string `json:"year" yaml:"year"`
}

// Stat пара «подпись: значение» для раздела About
type Stat struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Service услуга
type Service struct {
	Title string `json:"title" yaml:"title"`
	Desc  string `json:"desc" yaml:"desc"`
	Emoji string `json:"emoji" yaml:"emoji"`
}

// Reaction отзыв клиента в ленте
type Reaction struct {
	User   string `json:"user" yaml:"user"`
	Avatar string `json:"avatar" yaml:"avatar"`
	Text   string `json:"text" yaml:"text"`
	Time   string `json:"time" yaml:"time"`
}

// Anchor цель навигации (id секции для плавной прокрутки)
type Anchor struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Link внешняя ссылка
type Link struct {
	Label string `json:"label" yaml:"label"`
	Href  string `json:"href" yaml:"href"`
}

type Hero struct {
	Name       string   `json:"name" yaml:"name"`
	Tagline    string   `json:"tagline" yaml:"tagline"`
	Roles      []string `json:"roles" yaml:"roles"`
	Background string   `json:"background" yaml:"background"`
}

type About struct {
	Heading   string   `json:"heading" yaml:"heading"`
	Story     []string `json:"story" yaml:"story"`
	Image     string   `json:"image" yaml:"image"`
	Delivered string   `json:"delivered" yaml:"delivered"` // «Projects Delivered»
	Stats     []Stat   `json:"stats" yaml:"stats"`
}

type Contact struct {
	Heading    string `json:"heading" yaml:"heading"`
	Subheading string `json:"subheading" yaml:"subheading"`
	Background string `json:"background" yaml:"background"`
	Social     []Link `json:"social" yaml:"social"`
	Footer     string `json:"footer" yaml:"footer"`
}

// Site полное статическое описание страницы
type Site struct {
	Hero      Hero        `json:"hero" yaml:"hero"`
	Nav       []Anchor    `json:"nav" yaml:"nav"`
	Reels     []MediaItem `json:"reels" yaml:"reels"`
	Projects  []Project   `json:"projects" yaml:"projects"`
	About     About       `json:"about" yaml:"about"`
	Services  []Service   `json:"services" yaml:"services"`
	Reactions []Reaction  `json:"reactions" yaml:"reactions"`
	Contact   Contact     `json:"contact" yaml:"contact"`
}
