package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skbvisuals/skb/internal/booking"
	"github.com/skbvisuals/skb/internal/catalog"
	"github.com/skbvisuals/skb/internal/config"
	"github.com/skbvisuals/skb/internal/media"
	"github.com/skbvisuals/skb/internal/web/handlers"
	"github.com/skbvisuals/skb/internal/worker"
)

func newTestServer(t *testing.T, delay time.Duration) (*Server, *booking.Service) {
	t.Helper()

	cfg := config.Default()
	cfg.Storage.AssetsPath = t.TempDir()
	cfg.Storage.CachePath = t.TempDir()
	cfg.Booking.Delay = delay

	portfolio := catalog.Default()
	pool := worker.NewPool(2, 16)
	bookingPool := worker.NewPool(1, 8)
	bookings := booking.NewService(bookingPool, booking.LogSender{}, delay, time.Minute)
	gen := media.NewThumbnailGenerator(cfg)
	thumbs := worker.NewThumbnailService(pool, portfolio.Catalog, gen)
	pool.Start()
	bookingPool.Start()

	t.Cleanup(func() {
		bookingPool.Stop()
		pool.Stop()
		bookings.Close()
	})

	srv, err := NewServer(cfg, portfolio, bookings, pool, gen, thumbs)
	require.NoError(t, err)
	return srv, bookings
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, srv *Server, target string, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return do(t, srv, req)
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}

func TestIndex_FirstPageOfAllReels(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	rec := get(t, srv, "/", false)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parse(t, rec)

	assert.Equal(t, "SKB", doc.Find(".hero h1").Text())
	assert.Equal(t, 12, doc.Find("#reels .card").Length())
	assert.Equal(t, 5, doc.Find(".filters .filter").Length())
	assert.Equal(t, "All", doc.Find(".filter.active").Text())
	assert.Equal(t, "Page 1 of 2", doc.Find(".page-info").Text())
	assert.Equal(t, 1, doc.Find(".prev.disabled").Length())
	assert.Equal(t, 0, doc.Find(".modal").Length())
	assert.Equal(t, 4, doc.Find(".project").Length())
	assert.Equal(t, 6, doc.Find("select[name=service] option").Length()-1)

	first := doc.Find(".card").First()
	id, _ := first.Attr("data-id")
	assert.Equal(t, "1", id)
	aspect, _ := first.Attr("data-aspect")
	assert.Equal(t, "3/4", aspect)
	src, _ := first.Find("video").Attr("data-src")
	assert.Equal(t, "/assets/videos/cinematic/cinematic1.mp4", src)
	_, hasSrc := first.Find("video").Attr("src")
	assert.False(t, hasSrc)
}

func TestReels_FragmentForHTMX(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	rec := get(t, srv, "/reels?category=Drone+Shots&page=3", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<html")

	doc := parse(t, rec)
	cards := doc.Find(".card")
	assert.Equal(t, 4, cards.Length())
	cards.Each(func(_ int, s *goquery.Selection) {
		assert.Equal(t, "Drone Shots", s.Find(".category").Text())
	})
	assert.Equal(t, "Drone Shots", doc.Find(".filter.active").Text())
	assert.Equal(t, 0, doc.Find(".pager").Length())
}

func TestReels_SecondPageAndCategoryLinksResetPage(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	doc := parse(t, get(t, srv, "/reels?page=2", true))

	assert.Equal(t, 7, doc.Find(".card").Length())
	assert.Equal(t, "Page 2 of 2", doc.Find(".page-info").Text())
	assert.Equal(t, 1, doc.Find(".next.disabled").Length())

	prev, _ := doc.Find("a.prev").Attr("href")
	assert.Equal(t, "/", prev)

	doc.Find(".filter").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		assert.NotContains(t, href, "page=")
	})

	reels, _ := doc.Find(`.filter[data-category="Reels"]`).Attr("href")
	assert.Equal(t, "/?category=Reels", reels)
}

func TestIndex_SelectedOpensModalForThatItem(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	doc := parse(t, get(t, srv, "/?selected=3", false))

	modal := doc.Find(".modal")
	require.Equal(t, 1, modal.Length())

	video := modal.Find("video[data-modal-video]")
	id, _ := video.Attr("data-id")
	assert.Equal(t, "3", id)
	src, _ := video.Attr("src")
	assert.Equal(t, "/assets/videos/cinematic/cinematic3.mp4", src)
	_, muted := video.Attr("muted")
	assert.True(t, muted)
	_, loop := video.Attr("loop")
	assert.True(t, loop)
	assert.Equal(t, "Cinematic Vision III", modal.Find("h3").Text())

	mute, _ := modal.Find("a.mute").Attr("href")
	q, err := url.ParseQuery(strings.TrimPrefix(mute, "/?"))
	require.NoError(t, err)
	assert.Equal(t, "3", q.Get("selected"))
	assert.Equal(t, "false", q.Get("muted"))

	closeHref, _ := modal.Find("a.close").Attr("href")
	assert.Equal(t, "/", closeHref)
}

func TestIndex_UnknownSelectionRendersNoModal(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	doc := parse(t, get(t, srv, "/?selected=999", false))
	assert.Equal(t, 0, doc.Find(".modal").Length())
	assert.Equal(t, 12, doc.Find(".card").Length())
}

func TestReelModal(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	rec := get(t, srv, "/reels/14?muted=false", true)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parse(t, rec)

	video := doc.Find("#modal video")
	id, _ := video.Attr("data-id")
	assert.Equal(t, "14", id)
	_, muted := video.Attr("muted")
	assert.False(t, muted)
	assert.Equal(t, "Mute", doc.Find("a.mute").Text())

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/reels/999", true).Code)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/reels/abc", true).Code)
}

func TestReelModal_MuteTogglesPlayingVideo(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	doc := parse(t, get(t, srv, "/reels/3", true))
	mute := doc.Find("#modal a.mute")
	require.Equal(t, 1, mute.Length())

	// без hx-get ссылка не пересоздает видео, звук переключает app.js
	_, swaps := mute.Attr("hx-get")
	assert.False(t, swaps)
	assert.Equal(t, "true", mute.AttrOr("data-muted", ""))
	assert.Equal(t, 1, doc.Find("#modal video[data-modal-video]").Length())

	rec := get(t, srv, "/static/app.js", false)
	require.Equal(t, http.StatusOK, rec.Code)
	js := rec.Body.String()
	assert.Contains(t, js, "[data-muted]")
	assert.Contains(t, js, "[data-modal-video]")
	assert.Contains(t, js, "history.replaceState")
}

func TestMuteFlagCarriedIntoOtherSelections(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	doc := parse(t, get(t, srv, "/?selected=3&muted=false", false))

	href, _ := doc.Find(`.card[data-id="5"] a`).Attr("href")
	q, err := url.ParseQuery(strings.TrimPrefix(href, "/?"))
	require.NoError(t, err)
	assert.Equal(t, "5", q.Get("selected"))
	assert.Equal(t, "false", q.Get("muted"))
}

func postForm(t *testing.T, srv *Server, values url.Values, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/booking", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return do(t, srv, req)
}

func TestSubmitBooking_ValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	rec := postForm(t, srv, url.Values{
		"name":    {"   "},
		"email":   {"jane@example"},
		"service": {""},
	}, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	doc := parse(t, rec)
	assert.Equal(t, "Name is required", doc.Find(`.error[data-field="name"]`).Text())
	assert.Equal(t, "Invalid email address", doc.Find(`.error[data-field="email"]`).Text())
	assert.Equal(t, "Please select a service", doc.Find(`.error[data-field="service"]`).Text())
	assert.Equal(t, 0, doc.Find(`.error[data-field="phone"]`).Length())

	email, _ := doc.Find("input[name=email]").Attr("value")
	assert.Equal(t, "jane@example", email)
	assert.Equal(t, 0, doc.Find(".sending").Length())
}

func TestSubmitBooking_FullPageOnValidationError(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	rec := postForm(t, srv, url.Values{"email": {"jane@example.com"}, "service": {"Drone Shoots"}}, false)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	doc := parse(t, rec)
	assert.Equal(t, 12, doc.Find(".card").Length())
	assert.Equal(t, "Name is required", doc.Find(`.error[data-field="name"]`).Text())
	assert.Equal(t, 1, doc.Find(`option[selected][value="Drone Shoots"]`).Length())
}

func TestSubmitBooking_SendingThenConfirmed(t *testing.T) {
	srv, bookings := newTestServer(t, 20*time.Millisecond)

	rec := postForm(t, srv, url.Values{
		"name":    {"Jane"},
		"email":   {"jane@example.com"},
		"service": {"Wedding Film"},
		"message": {"June in Udaipur"},
	}, true)
	require.Equal(t, http.StatusAccepted, rec.Code)

	doc := parse(t, rec)
	ticket, ok := doc.Find(".sending").Attr("data-ticket")
	require.True(t, ok)
	require.NotEmpty(t, ticket)
	assert.Equal(t, 0, doc.Find("form").Length())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tk, err := bookings.Wait(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusSubmitted, tk.Status)

	doc = parse(t, get(t, srv, "/booking/"+ticket, true))
	assert.Equal(t, 1, doc.Find(".confirmation").Length())

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/booking/unknown", true).Code)
}

func TestBookingStatus_CancelledRestoresInput(t *testing.T) {
	srv, bookings := newTestServer(t, 5*time.Second)

	rec := postForm(t, srv, url.Values{
		"name":    {"Jane"},
		"email":   {"jane@example.com"},
		"service": {"Wedding Film"},
		"message": {"June in Udaipur"},
	}, true)
	require.Equal(t, http.StatusAccepted, rec.Code)

	ticket, ok := parse(t, rec).Find(".sending").Attr("data-ticket")
	require.True(t, ok)
	require.NoError(t, bookings.Cancel(ticket))

	doc := parse(t, get(t, srv, "/booking/"+ticket, true))
	assert.Equal(t, 1, doc.Find(`.error[data-field="form"]`).Length())

	name, _ := doc.Find("input[name=name]").Attr("value")
	assert.Equal(t, "Jane", name)
	email, _ := doc.Find("input[name=email]").Attr("value")
	assert.Equal(t, "jane@example.com", email)
	assert.Equal(t, "Wedding Film", doc.Find("select[name=service] option[selected]").AttrOr("value", ""))
	assert.Equal(t, "June in Udaipur", doc.Find("textarea[name=message]").Text())
}

func TestAPI_Reels(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	rec := get(t, srv, "/api/reels?category=Reels", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var page handlers.ReelsPage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, catalog.CategoryReels, page.Category)
	assert.Equal(t, 7, page.TotalItems)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Items, 7)

	rec = get(t, srv, "/api/reels?page=2", false)
	page = handlers.ReelsPage{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 12, page.PageSize)
	assert.Len(t, page.Items, 7)
	assert.Equal(t, 13, page.Items[0].ID)

	rec = get(t, srv, "/api/reels?category=Weddings", false)
	page = handlers.ReelsPage{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.TotalPages)

	rec = get(t, srv, "/api/reels/6", false)
	var item catalog.MediaItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&item))
	assert.Equal(t, "Drone Event Coverage", item.Title)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/reels/404", false).Code)
}

func TestAPI_CategoriesAndSite(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	var cats []string
	require.NoError(t, json.NewDecoder(get(t, srv, "/api/categories", false).Body).Decode(&cats))
	assert.Equal(t, []string{"All", "Cinematic", "Drone Shots", "Events", "Reels"}, cats)

	var site catalog.Site
	require.NoError(t, json.NewDecoder(get(t, srv, "/api/site", false).Body).Decode(&site))
	assert.Equal(t, "SKB", site.Hero.Name)
	assert.Equal(t, "150+", site.About.Delivered)
	assert.Len(t, site.Reels, 19)
}

func postJSON(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, srv, req)
}

func TestAPI_Bookings(t *testing.T) {
	srv, _ := newTestServer(t, 5*time.Second)

	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv, "{").Code)

	rec := postJSON(t, srv, `{"name":"Jane","email":"nope","service":"Brand Shoot"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var invalid struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&invalid))
	assert.Equal(t, map[string]string{"email": "Invalid email address"}, invalid.Errors)

	rec = postJSON(t, srv, `{"name":"Jane","email":"jane@example.com","service":"Brand Shoot"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var tk booking.Ticket
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tk))
	assert.Equal(t, booking.StatusPending, tk.Status)
	assert.Equal(t, "/api/bookings/"+tk.ID, rec.Header().Get("Location"))

	rec = get(t, srv, "/api/bookings/"+tk.ID, false)
	require.Equal(t, http.StatusOK, rec.Code)

	del := func(id string) *httptest.ResponseRecorder {
		return do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/bookings/"+id, nil))
	}

	rec = del(tk.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled booking.Ticket
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cancelled))
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)

	assert.Equal(t, http.StatusConflict, del(tk.ID).Code)
	assert.Equal(t, http.StatusNotFound, del("missing").Code)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/bookings/missing", false).Code)
}

func TestAPI_GetBookingWaitsForResult(t *testing.T) {
	srv, _ := newTestServer(t, 50*time.Millisecond)

	rec := postJSON(t, srv, `{"name":"Jane","email":"jane@example.com","service":"Wedding Film"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created booking.Ticket
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = get(t, srv, "/api/bookings/"+created.ID+"?wait=1", false)
	require.Equal(t, http.StatusOK, rec.Code)
	var done booking.Ticket
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&done))
	assert.Equal(t, booking.StatusSubmitted, done.Status)
	assert.NotNil(t, done.CompletedAt)
}

func TestServeThumbnail_PlaceholderUntilReady(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	rec := get(t, srv, "/media/1/thumb", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/media/999/thumb", false).Code)
}

func TestServeThumbnail_FailedPosterIsNotRequeued(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	queue := func() map[string]float64 {
		var stats map[string]float64
		require.NoError(t, json.NewDecoder(get(t, srv, "/api/queue", false).Body).Decode(&stats))
		return stats
	}

	// в пустом каталоге ассетов источника нет, генерация падает
	require.Equal(t, http.StatusOK, get(t, srv, "/media/1/thumb", false).Code)
	assert.Eventually(t, func() bool { return queue()["failed_tasks"] == 1 }, 2*time.Second, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		rec := get(t, srv, "/media/1/thumb", false)
		assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	}
	assert.EqualValues(t, 1, queue()["total_tasks"])

	req := httptest.NewRequest(http.MethodPost, "/api/thumbnails/generate", nil)
	rec := do(t, srv, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.EqualValues(t, 1, body["retried"])
}

func TestOperationalEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(get(t, srv, "/health", false).Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 19, health["reels"])

	rec := get(t, srv, "/api/queue", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "queue_length")

	rec = get(t, srv, "/api/cache", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "max_items")

	rec = get(t, srv, "/nope", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, time.Millisecond)

	rec := get(t, srv, "/static/app.js", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "IntersectionObserver")
}
