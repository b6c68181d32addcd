package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skbvisuals/skb/internal/logger"
)

var (
	ErrQueueFull   = errors.New("task queue full")
	ErrPoolStopped = errors.New("worker pool stopped")
)

// TaskType определяет тип задачи
type TaskType string

const (
	TaskSubmitBooking     TaskType = "submit_booking"
	TaskGenerateThumbnail TaskType = "generate_thumbnail"
)

// Task представляет задачу для обработки
type Task struct {
	ID        string
	Type      TaskType
	ItemID    int         // элемент каталога (для превью)
	Payload   interface{} // данные задачи (заявка и т.п.)
	CreatedAt time.Time
}

// TaskResult содержит результат выполнения задачи
type TaskResult struct {
	TaskID     string
	Success    bool
	Cancelled  bool
	Error      error
	Duration   time.Duration
	OutputPath string
}

// Handler обрабатывает задачи определенного типа
type Handler func(ctx context.Context, task *Task) (*TaskResult, error)

// Pool управляет пулом воркеров
type Pool struct {
	numWorkers  int
	taskTimeout time.Duration
	taskQueue   chan *Task
	resultQueue chan *TaskResult
	handlers    map[TaskType]Handler
	wg          sync.WaitGroup
	resultsDone chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	started     atomic.Bool
	stopOnce    sync.Once

	// Отмена отдельных задач
	cancelMu  sync.Mutex
	queued    map[string]bool
	running   map[string]context.CancelFunc
	cancelled map[string]bool

	// Статистика
	stats Stats
}

// Stats содержит статистику пула
type Stats struct {
	TotalTasks     int64 `json:"total_tasks"`
	CompletedTasks int64 `json:"completed_tasks"`
	FailedTasks    int64 `json:"failed_tasks"`
	CancelledTasks int64 `json:"cancelled_tasks"`
	QueuedTasks    int64 `json:"queued_tasks"`
	ActiveWorkers  int64 `json:"active_workers"`
}

// NewPool создает новый пул воркеров
func NewPool(numWorkers int, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = 1000
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		numWorkers:  numWorkers,
		taskTimeout: 5 * time.Minute,
		taskQueue:   make(chan *Task, queueSize),
		resultQueue: make(chan *TaskResult, queueSize),
		handlers:    make(map[TaskType]Handler),
		resultsDone: make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		queued:      make(map[string]bool),
		running:     make(map[string]context.CancelFunc),
		cancelled:   make(map[string]bool),
	}
}

// RegisterHandler регистрирует обработчик для типа задачи
func (p *Pool) RegisterHandler(taskType TaskType, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[taskType] = handler
}

// Start запускает воркеры
func (p *Pool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	logger.InfoLog.Printf("Starting worker pool with %d workers", p.numWorkers)

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	// Горутина для обработки результатов
	go p.processResults()
}

// Stop останавливает пул, отменяя выполняющиеся задачи
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		logger.InfoLog.Println("Stopping worker pool...")
		p.cancel()
		p.wg.Wait()
		close(p.resultQueue)
		if p.started.Load() {
			<-p.resultsDone
		}
		logger.InfoLog.Println("Worker pool stopped")
	})
}

// Submit добавляет задачу в очередь без блокировки
func (p *Pool) Submit(task *Task) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	select {
	case <-p.ctx.Done():
		return ErrPoolStopped
	default:
	}

	// помечаем до отправки: воркер может забрать задачу раньше, чем Submit вернется
	p.cancelMu.Lock()
	p.queued[task.ID] = true
	p.cancelMu.Unlock()

	select {
	case p.taskQueue <- task:
		atomic.AddInt64(&p.stats.TotalTasks, 1)
		atomic.AddInt64(&p.stats.QueuedTasks, 1)
		return nil
	default:
		p.cancelMu.Lock()
		delete(p.queued, task.ID)
		p.cancelMu.Unlock()
		logger.ErrorLog.Printf("Task queue full, dropping task %s", task.ID)
		return ErrQueueFull
	}
}

// Cancel отменяет задачу: выполняющуюся через контекст, ожидающую пропуском.
// Возвращает false, если пул остановлен или задачи нет ни в очереди, ни в работе.
func (p *Pool) Cancel(taskID string) bool {
	if p.ctx.Err() != nil {
		return false
	}

	p.cancelMu.Lock()
	defer p.cancelMu.Unlock()

	if cancel, ok := p.running[taskID]; ok {
		cancel()
		return true
	}
	if !p.queued[taskID] {
		return false
	}
	p.cancelled[taskID] = true
	return true
}

// Stats возвращает статистику пула
func (p *Pool) Stats() Stats {
	return Stats{
		TotalTasks:     atomic.LoadInt64(&p.stats.TotalTasks),
		CompletedTasks: atomic.LoadInt64(&p.stats.CompletedTasks),
		FailedTasks:    atomic.LoadInt64(&p.stats.FailedTasks),
		CancelledTasks: atomic.LoadInt64(&p.stats.CancelledTasks),
		QueuedTasks:    atomic.LoadInt64(&p.stats.QueuedTasks),
		ActiveWorkers:  atomic.LoadInt64(&p.stats.ActiveWorkers),
	}
}

// QueueLength возвращает текущую длину очереди
func (p *Pool) QueueLength() int {
	return len(p.taskQueue)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.taskQueue:
			p.processTask(id, task)
		}
	}
}

// begin снимает задачу с очереди и регистрирует как выполняющуюся;
// false, если задачу отменили, пока она ждала
func (p *Pool) begin(task *Task, run bool) (context.Context, context.CancelFunc, bool) {
	p.cancelMu.Lock()
	defer p.cancelMu.Unlock()

	delete(p.queued, task.ID)
	if p.cancelled[task.ID] {
		delete(p.cancelled, task.ID)
		return nil, nil, false
	}
	if !run {
		return nil, nil, true
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.taskTimeout)
	p.running[task.ID] = cancel
	return ctx, cancel, true
}

// tracked количество задач, о которых пул помнит для отмены
func (p *Pool) tracked() int {
	p.cancelMu.Lock()
	defer p.cancelMu.Unlock()
	return len(p.queued) + len(p.running) + len(p.cancelled)
}

func (p *Pool) finish(task *Task) {
	p.cancelMu.Lock()
	delete(p.running, task.ID)
	p.cancelMu.Unlock()
}

func (p *Pool) processTask(workerID int, task *Task) {
	atomic.AddInt64(&p.stats.ActiveWorkers, 1)
	atomic.AddInt64(&p.stats.QueuedTasks, -1)
	defer atomic.AddInt64(&p.stats.ActiveWorkers, -1)

	start := time.Now()

	p.mu.RLock()
	handler, ok := p.handlers[task.Type]
	p.mu.RUnlock()

	var result *TaskResult

	switch {
	case !ok:
		p.begin(task, false)
		result = &TaskResult{
			TaskID:   task.ID,
			Error:    errors.New("no handler for task type " + string(task.Type)),
			Duration: time.Since(start),
		}
		logger.ErrorLog.Printf("Worker %d: no handler for task type %s", workerID, task.Type)
	default:
		ctx, cancel, run := p.begin(task, true)
		if !run {
			result = &TaskResult{TaskID: task.ID, Cancelled: true, Error: context.Canceled}
			break
		}

		res, err := handler(ctx, task)
		cancel()
		p.finish(task)

		if res != nil {
			result = res
		} else {
			result = &TaskResult{
				TaskID:   task.ID,
				Success:  err == nil,
				Error:    err,
				Duration: time.Since(start),
			}
		}
		if errors.Is(result.Error, context.Canceled) {
			result.Cancelled = true
		}
	}

	switch {
	case result.Success:
		atomic.AddInt64(&p.stats.CompletedTasks, 1)
	case result.Cancelled:
		atomic.AddInt64(&p.stats.CancelledTasks, 1)
	default:
		atomic.AddInt64(&p.stats.FailedTasks, 1)
	}

	// Отправляем результат
	select {
	case p.resultQueue <- result:
	default:
		// очередь результатов переполнена
	}
}

func (p *Pool) processResults() {
	defer close(p.resultsDone)
	for result := range p.resultQueue {
		if !result.Success && !result.Cancelled && result.Error != nil {
			logger.ErrorLog.Printf("Task %s failed: %v (took %v)", result.TaskID, result.Error, result.Duration)
		}
	}
}
