package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/skbvisuals/skb/internal/booking"
	"github.com/skbvisuals/skb/internal/catalog"
	"github.com/skbvisuals/skb/internal/config"
	"github.com/skbvisuals/skb/internal/logger"
	"github.com/skbvisuals/skb/internal/media"
	"github.com/skbvisuals/skb/internal/web/handlers"
	"github.com/skbvisuals/skb/internal/worker"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Server представляет веб-сервер приложения
type Server struct {
	cfg          *config.Config
	portfolio    *catalog.Portfolio
	templates    *template.Template
	router       *chi.Mux
	httpServer   *http.Server
	bookings     *booking.Service
	workerPool   *worker.Pool
	thumbGen     *media.ThumbnailGenerator
	thumbService *worker.ThumbnailService
}

// NewServer создает новый веб-сервер
func NewServer(
	cfg *config.Config,
	portfolio *catalog.Portfolio,
	bookings *booking.Service,
	workerPool *worker.Pool,
	thumbGen *media.ThumbnailGenerator,
	thumbService *worker.ThumbnailService,
) (*Server, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		cfg:          cfg,
		portfolio:    portfolio,
		templates:    tmpl,
		bookings:     bookings,
		workerPool:   workerPool,
		thumbGen:     thumbGen,
		thumbService: thumbService,
	}

	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Template functions
var funcMap = template.FuncMap{
	"sub": func(a, b int) int { return a - b },
	"add": func(a, b int) int { return a + b },
	// link собирает ссылку из пути и уже закодированной строки запроса
	"link": func(path, query string) template.URL {
		if query == "" {
			return template.URL(path)
		}
		return template.URL(path + "?" + query)
	},
	"fieldError": func(errs booking.FieldErrors, field string) string {
		return errs[field]
	},
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger.InfoLog, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(60 * time.Second))

	// Создаем handlers
	h := handlers.NewHandlers(s.cfg, s.portfolio, s.templates, s.bookings, s.workerPool, s.thumbGen, s.thumbService)

	// Встроенные скрипты и стили
	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// Видео и изображения сайта
	assets := http.FileServer(http.Dir(s.cfg.Storage.AssetsPath))
	r.Handle("/assets/*", http.StripPrefix("/assets/", assets))

	// Страницы
	r.Get("/", h.Index)
	r.Get("/reels", h.Reels)
	r.Get("/reels/{id}", h.ReelModal)
	r.Post("/booking", h.SubmitBooking)
	r.Get("/booking/{id}", h.BookingStatus)

	// Медиа-файлы
	r.Get("/media/{id}/thumb", h.ServeThumbnail)

	// API
	r.Route("/api", func(r chi.Router) {
		r.Get("/reels", h.ListReels)
		r.Get("/reels/{id}", h.GetReel)
		r.Get("/categories", h.ListCategories)
		r.Get("/site", h.GetSite)

		r.Post("/bookings", h.CreateBooking)
		r.Get("/bookings/{id}", h.GetBooking)
		r.Delete("/bookings/{id}", h.CancelBooking)

		r.Post("/thumbnails/generate", h.GenerateThumbnails)
		r.Get("/thumbnails/similar", h.SimilarPosters)

		// API для мониторинга
		r.Get("/queue", h.QueueStats)
		r.Get("/cache", h.CacheStats)
	})

	r.Get("/health", h.Health)
	r.NotFound(h.NotFound)

	s.router = r
}

// Handler возвращает корневой обработчик маршрутов
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start запускает веб-сервер и блокируется до Shutdown
func (s *Server) Start() error {
	logger.InfoLog.Printf("Starting server on http://%s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown корректно останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
