package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/skbvisuals/skb/internal/catalog"
	"github.com/skbvisuals/skb/internal/logger"
	"github.com/skbvisuals/skb/internal/media"
)

// ThumbnailService управляет генерацией постеров карточек
type ThumbnailService struct {
	pool     *Pool
	catalog  *catalog.Catalog
	thumbGen *media.ThumbnailGenerator

	// Отслеживание задач в процессе
	mu         sync.RWMutex
	processing map[int]bool   // itemID -> in progress
	failed     map[int]error  // itemID -> последняя ошибка генерации
	hashes     map[int]uint64 // itemID -> dHash готового постера
}

// SimilarPair два ролика с почти одинаковыми постерами
type SimilarPair struct {
	A        int `json:"a"`
	B        int `json:"b"`
	Distance int `json:"distance"`
}

// NewThumbnailService создает новый сервис генерации превью
func NewThumbnailService(pool *Pool, cat *catalog.Catalog, thumbGen *media.ThumbnailGenerator) *ThumbnailService {
	svc := &ThumbnailService{
		pool:       pool,
		catalog:    cat,
		thumbGen:   thumbGen,
		processing: make(map[int]bool),
		failed:     make(map[int]error),
		hashes:     make(map[int]uint64),
	}

	// Регистрируем обработчик
	pool.RegisterHandler(TaskGenerateThumbnail, svc.handleThumbnail)

	return svc
}

// QueueThumbnail добавляет задачу на генерацию превью.
// Элементы с неудачной генерацией не ставятся, пока их не сбросит Invalidate или ResetFailures.
func (s *ThumbnailService) QueueThumbnail(itemID int) bool {
	s.mu.Lock()
	if s.processing[itemID] {
		s.mu.Unlock()
		return false // Уже в очереди
	}
	if _, ok := s.failed[itemID]; ok {
		s.mu.Unlock()
		return false
	}
	s.processing[itemID] = true
	s.mu.Unlock()

	task := &Task{
		ID:     "thumb-" + strconv.Itoa(itemID) + "-" + strconv.FormatInt(time.Now().UnixNano(), 36),
		Type:   TaskGenerateThumbnail,
		ItemID: itemID,
	}

	if err := s.pool.Submit(task); err != nil {
		s.mu.Lock()
		delete(s.processing, itemID)
		s.mu.Unlock()
		return false
	}

	return true
}

// PregenerateThumbnails ставит в очередь превью для всех элементов без превью
func (s *ThumbnailService) PregenerateThumbnails() int {
	queued := 0
	for _, item := range s.catalog.Items() {
		if !s.thumbGen.ThumbnailExists(item.ID) && s.QueueThumbnail(item.ID) {
			queued++
		}
	}

	logger.InfoLog.Printf("Queued %d thumbnail generation tasks", queued)
	return queued
}

// Invalidate удаляет превью элементов, чтобы они сгенерировались заново
func (s *ThumbnailService) Invalidate(itemIDs ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range itemIDs {
		s.thumbGen.DeleteThumbnail(id)
		delete(s.hashes, id)
		delete(s.failed, id)
	}
}

// ResetFailures забывает все неудачные генерации, чтобы их можно было повторить
func (s *ThumbnailService) ResetFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.failed)
	s.failed = make(map[int]error)
	return n
}

// Failed возвращает ошибку последней генерации постера, если она была
func (s *ThumbnailService) Failed(itemID int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failed[itemID]
}

// SimilarPosters находит пары роликов, чьи постеры отличаются не больше чем на maxDistance бит.
// Обычно это один и тот же ролик, загруженный дважды.
func (s *ThumbnailService) SimilarPosters(maxDistance int) []SimilarPair {
	type hashed struct {
		id   int
		hash uint64
	}

	var list []hashed
	for _, item := range s.catalog.Items() {
		if h, ok := s.posterHash(item.ID); ok {
			list = append(list, hashed{item.ID, h})
		}
	}

	pairs := []SimilarPair{}
	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			if d := media.HashDistance(list[i].hash, list[j].hash); d <= maxDistance {
				pairs = append(pairs, SimilarPair{A: list[i].id, B: list[j].id, Distance: d})
			}
		}
	}
	return pairs
}

// posterHash берет hash из памяти или считает его для уже лежащего на диске постера
func (s *ThumbnailService) posterHash(itemID int) (uint64, bool) {
	s.mu.RLock()
	h, ok := s.hashes[itemID]
	s.mu.RUnlock()
	if ok {
		return h, true
	}

	if !s.thumbGen.ThumbnailExists(itemID) {
		return 0, false
	}
	h, err := s.thumbGen.PosterHash(itemID)
	if err != nil {
		logger.ErrorLog.Printf("Poster hash failed for item %d: %v", itemID, err)
		return 0, false
	}

	s.mu.Lock()
	s.hashes[itemID] = h
	s.mu.Unlock()
	return h, true
}

func (s *ThumbnailService) handleThumbnail(ctx context.Context, task *Task) (*TaskResult, error) {
	defer func() {
		s.mu.Lock()
		delete(s.processing, task.ItemID)
		s.mu.Unlock()
	}()

	item, ok := s.catalog.Get(task.ItemID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", catalog.ErrNotFound, task.ItemID)
	}

	// Проверяем контекст
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	start := time.Now()
	thumbPath, err := s.thumbGen.GenerateThumbnail(ctx, item)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() == nil {
			s.mu.Lock()
			s.failed[task.ItemID] = err
			s.mu.Unlock()
		}
		return &TaskResult{
			TaskID:   task.ID,
			Success:  false,
			Error:    err,
			Duration: duration,
		}, err
	}

	if h, err := s.thumbGen.PosterHash(task.ItemID); err == nil {
		s.mu.Lock()
		s.hashes[task.ItemID] = h
		s.mu.Unlock()
	}

	return &TaskResult{
		TaskID:     task.ID,
		Success:    true,
		Duration:   duration,
		OutputPath: thumbPath,
	}, nil
}

// IsProcessing проверяет, обрабатывается ли элемент
func (s *ThumbnailService) IsProcessing(itemID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processing[itemID]
}

// ProcessingCount возвращает количество задач в обработке
func (s *ThumbnailService) ProcessingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processing)
}
