package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skbvisuals/skb/internal/booking"
	"github.com/skbvisuals/skb/internal/catalog"
	"github.com/skbvisuals/skb/internal/config"
	"github.com/skbvisuals/skb/internal/logger"
	"github.com/skbvisuals/skb/internal/media"
	"github.com/skbvisuals/skb/internal/showcase"
	"github.com/skbvisuals/skb/internal/worker"
)

// Handlers содержит все HTTP-обработчики
type Handlers struct {
	cfg          *config.Config
	site         catalog.Site
	catalog      *catalog.Catalog
	templates    *template.Template
	bookings     *booking.Service
	workerPool   *worker.Pool
	thumbGen     *media.ThumbnailGenerator
	thumbService *worker.ThumbnailService
}

// NewHandlers создает новый экземпляр обработчиков
func NewHandlers(
	cfg *config.Config,
	portfolio *catalog.Portfolio,
	templates *template.Template,
	bookings *booking.Service,
	workerPool *worker.Pool,
	thumbGen *media.ThumbnailGenerator,
	thumbService *worker.ThumbnailService,
) *Handlers {
	return &Handlers{
		cfg:          cfg,
		site:         portfolio.Site,
		catalog:      portfolio.Catalog,
		templates:    templates,
		bookings:     bookings,
		workerPool:   workerPool,
		thumbGen:     thumbGen,
		thumbService: thumbService,
	}
}

// PageData данные полной страницы
type PageData struct {
	Site    catalog.Site
	Feed    showcase.View
	Booking BookingView
}

// BookingView данные формы записи
type BookingView struct {
	Form     *booking.Form
	Services []string
}

func newBookingView(form *booking.Form) BookingView {
	return BookingView{Form: form, Services: booking.Services}
}

// === Страницы ===

// Index отображает страницу целиком; состояние ленты берется из строки запроса
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, h.feed(r), booking.NewForm())
}

// Reels отдает ленту: фрагмент для HTMX, иначе полную страницу
func (h *Handlers) Reels(w http.ResponseWriter, r *http.Request) {
	feed := h.feed(r)

	if isHTMX(r) {
		h.render(w, http.StatusOK, "reels", feed)
		return
	}
	h.renderPage(w, http.StatusOK, feed, booking.NewForm())
}

// ReelModal открывает плеер для одного ролика
func (h *Handlers) ReelModal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if _, ok := h.catalog.Get(id); !ok {
		http.NotFound(w, r)
		return
	}

	st := showcase.ParseState(r.URL.Query())
	st.Selected = &id
	feed := showcase.FromState(h.catalog, h.cfg.Showcase.PageSize, st).View()

	if isHTMX(r) {
		h.render(w, http.StatusOK, "modal", feed)
		return
	}
	h.renderPage(w, http.StatusOK, feed, booking.NewForm())
}

// === Запись на съемку ===

// SubmitBooking принимает форму записи
func (h *Handlers) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	form := booking.NewForm()
	for _, field := range []string{booking.FieldName, booking.FieldEmail, booking.FieldPhone, booking.FieldService, booking.FieldMessage} {
		form.Change(field, r.PostFormValue(field))
	}

	status := http.StatusAccepted
	if err := form.Submit(r.Context(), h.bookings); err != nil {
		logger.ErrorLog.Printf("Booking submit failed: %v", err)
		form.Errors[booking.FieldForm] = "Something went wrong. Please try again."
		status = http.StatusServiceUnavailable
	} else if form.HasErrors() {
		status = http.StatusUnprocessableEntity
	}

	if isHTMX(r) {
		h.render(w, status, "booking", newBookingView(form))
		return
	}
	h.renderPage(w, status, h.feed(r), form)
}

// BookingStatus отдает состояние формы для отправленной заявки (опрос из HTMX)
func (h *Handlers) BookingStatus(w http.ResponseWriter, r *http.Request) {
	t, err := h.bookings.Status(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	form := booking.NewForm()
	form.Apply(t)
	h.render(w, http.StatusOK, "booking", newBookingView(form))
}

// === API ===

// ReelsPage JSON-ответ со страницей ленты
type ReelsPage struct {
	Category   catalog.Category    `json:"category"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalPages int                 `json:"total_pages"`
	TotalItems int                 `json:"total_items"`
	Items      []catalog.MediaItem `json:"items"`
}

// ListReels возвращает страницу отфильтрованной ленты
func (h *Handlers) ListReels(w http.ResponseWriter, r *http.Request) {
	sc := showcase.FromState(h.catalog, h.cfg.Showcase.PageSize, showcase.ParseState(r.URL.Query()))
	page := sc.CurrentPageItems()

	items := page.Items
	if items == nil {
		items = []catalog.MediaItem{}
	}

	h.jsonResponse(w, http.StatusOK, ReelsPage{
		Category:   sc.Category(),
		Page:       page.Number,
		PageSize:   page.Size,
		TotalPages: page.TotalPages,
		TotalItems: page.TotalItems,
		Items:      items,
	})
}

// GetReel возвращает один ролик
func (h *Handlers) GetReel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}

	item, err := h.catalog.Lookup(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.jsonResponse(w, http.StatusOK, item)
}

// ListCategories возвращает категории панели фильтров
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.catalog.Categories())
}

// GetSite возвращает статическое содержимое страницы
func (h *Handlers) GetSite(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.site)
}

// CreateBooking JSON-вариант отправки формы
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	form := booking.NewForm()
	form.Values = req
	if err := form.Submit(r.Context(), h.bookings); err != nil {
		logger.ErrorLog.Printf("Booking submit failed: %v", err)
		h.jsonError(w, "booking queue unavailable", http.StatusServiceUnavailable)
		return
	}
	if form.HasErrors() {
		h.jsonResponse(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"errors": form.Errors,
		})
		return
	}

	t, err := h.bookings.Status(form.Ticket)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Location", "/api/bookings/"+t.ID)
	h.jsonResponse(w, http.StatusAccepted, t)
}

// GetBooking возвращает статус заявки.
// С ?wait=1 ответ задерживается до конечного статуса, но не дольше bookingWaitTimeout.
func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := h.bookings.Status(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusNotFound)
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait && !t.Status.Terminal() {
		ctx, cancel := context.WithTimeout(r.Context(), bookingWaitTimeout)
		defer cancel()
		if done, err := h.bookings.Wait(ctx, id); err == nil {
			t = done
		} else if t, err = h.bookings.Status(id); err != nil {
			h.jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
	}

	h.jsonResponse(w, http.StatusOK, t)
}

// CancelBooking отменяет ожидающую заявку
func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.bookings.Cancel(id)
	switch {
	case errors.Is(err, booking.ErrUnknownTicket):
		h.jsonError(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, booking.ErrNotPending):
		h.jsonError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	t, _ := h.bookings.Status(id)
	h.jsonResponse(w, http.StatusOK, t)
}

// === Медиа ===

// ServeThumbnail отдает постер карточки
func (h *Handlers) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if _, ok := h.catalog.Get(id); !ok {
		http.NotFound(w, r)
		return
	}

	if !h.thumbGen.ThumbnailExists(id) {
		// Превью нет - ставим в очередь и возвращаем placeholder.
		// После неудачи повтор только через Invalidate или /api/thumbnails/generate.
		if !h.thumbService.IsProcessing(id) && h.thumbService.Failed(id) == nil {
			h.thumbService.QueueThumbnail(id)
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write([]byte(placeholderSVG))
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, h.thumbGen.GetThumbnailPath(id))
}

// GenerateThumbnails ставит в очередь постеры, которых еще нет
func (h *Handlers) GenerateThumbnails(w http.ResponseWriter, r *http.Request) {
	retried := h.thumbService.ResetFailures()
	queued := h.thumbService.PregenerateThumbnails()
	h.jsonResponse(w, http.StatusAccepted, map[string]interface{}{
		"status":  "started",
		"queued":  queued,
		"retried": retried,
	})
}

// SimilarPosters возвращает пары роликов с почти одинаковыми постерами
func (h *Handlers) SimilarPosters(w http.ResponseWriter, r *http.Request) {
	distance := 10
	if v := r.URL.Query().Get("distance"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 0 || d > 64 {
			h.jsonError(w, "distance must be between 0 and 64", http.StatusBadRequest)
			return
		}
		distance = d
	}
	h.jsonResponse(w, http.StatusOK, h.thumbService.SimilarPosters(distance))
}

// === Мониторинг ===

// QueueStats возвращает статистику очереди задач
func (h *Handlers) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats := h.workerPool.Stats()
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"total_tasks":     stats.TotalTasks,
		"completed_tasks": stats.CompletedTasks,
		"failed_tasks":    stats.FailedTasks,
		"cancelled_tasks": stats.CancelledTasks,
		"queued_tasks":    stats.QueuedTasks,
		"active_workers":  stats.ActiveWorkers,
		"queue_length":    h.workerPool.QueueLength(),
		"processing":      h.thumbService.ProcessingCount(),
	})
}

// CacheStats возвращает статистику кэша квитанций
func (h *Handlers) CacheStats(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.bookings.TicketStats())
}

// Health простая проверка живости
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"reels":  h.catalog.Len(),
	})
}

// === Helpers ===

func (h *Handlers) feed(r *http.Request) showcase.View {
	st := showcase.ParseState(r.URL.Query())
	return showcase.FromState(h.catalog, h.cfg.Showcase.PageSize, st).View()
}

func (h *Handlers) renderPage(w http.ResponseWriter, code int, feed showcase.View, form *booking.Form) {
	h.render(w, code, "index.html", PageData{
		Site:    h.site,
		Feed:    feed,
		Booking: newBookingView(form),
	})
}

// isHTMX проверяет, пришел ли запрос от HTMX
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsHTML проверяет, запрашивает ли клиент HTML (браузер или HTMX)
func wantsHTML(r *http.Request) bool {
	if isHTMX(r) {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// NotFound отдает страницу или JSON в зависимости от клиента
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.NotFound(w, r)
		return
	}
	h.jsonError(w, "not found", http.StatusNotFound)
}

func (h *Handlers) render(w http.ResponseWriter, code int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.ErrorLog.Printf("Template error: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	buf.WriteTo(w)
}

func (h *Handlers) jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, message string, code int) {
	h.jsonResponse(w, code, map[string]string{"error": message})
}

// bookingWaitTimeout предел ожидания для GET /api/bookings/{id}?wait=1
const bookingWaitTimeout = 10 * time.Second

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="300" height="400" viewBox="0 0 300 400">
<rect fill="#0a0a0a" width="300" height="400"/>
<g fill="#222" transform="translate(110,160)">
<rect x="0" y="0" width="80" height="80" rx="8">
<animate attributeName="opacity" values="1;0.5;1" dur="1s" repeatCount="indefinite"/>
</rect>
</g>
<text x="150" y="280" fill="#555" text-anchor="middle" font-family="system-ui" font-size="12">Loading...</text>
</svg>`
