package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skbvisuals/skb/internal/cache"
	"github.com/skbvisuals/skb/internal/logger"
	"github.com/skbvisuals/skb/internal/worker"
)

var (
	ErrUnknownTicket = errors.New("unknown booking ticket")
	ErrNotPending    = errors.New("booking is no longer pending")
)

// FieldForm ключ ошибки, относящейся ко всей форме
const FieldForm = "form"

// Status состояние отправки заявки
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal сообщает, что статус больше не изменится
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Ticket отслеживает одну отправку
type Ticket struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Service     string     `json:"service"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	req     Request // для повторного заполнения формы после сбоя
	sending bool    // Sender уже вызван, отменить нельзя
	done    chan struct{}
}

// Sender доставляет проверенную заявку. Здесь подключается реальная отправка.
type Sender interface {
	Send(ctx context.Context, req Request) error
}

// LogSender только пишет заявку в лог
type LogSender struct{}

func (LogSender) Send(_ context.Context, req Request) error {
	logger.InfoLog.Printf("Booking submitted: name=%q email=%q service=%q", req.Name, req.Email, req.Service)
	return nil
}

// Service асинхронная отправка заявок через пул воркеров.
// Каждая отправка ждет фиксированную задержку, уважая отмену контекста.
type Service struct {
	pool    *worker.Pool
	sender  Sender
	delay   time.Duration
	tickets *cache.Cache[*Ticket]
	mu      sync.Mutex
}

// NewService создает сервис и регистрирует обработчик задач в пуле
func NewService(pool *worker.Pool, sender Sender, delay, ticketTTL time.Duration) *Service {
	if sender == nil {
		sender = LogSender{}
	}

	s := &Service{
		pool:   pool,
		sender: sender,
		delay:  delay,
		tickets: cache.New(cache.Config[*Ticket]{
			DefaultExpiration: ticketTTL,
			CleanupInterval:   time.Minute,
			MaxItems:          1000,
		}),
	}

	pool.RegisterHandler(worker.TaskSubmitBooking, s.handleSubmit)

	return s
}

// Submit ставит проверенную заявку в очередь и возвращает ID квитанции
func (s *Service) Submit(_ context.Context, req Request) (string, error) {
	t := &Ticket{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Service:   req.Service,
		CreatedAt: time.Now(),
		req:       req,
		done:      make(chan struct{}),
	}
	s.tickets.Set(t.ID, t)

	err := s.pool.Submit(&worker.Task{
		ID:      t.ID,
		Type:    worker.TaskSubmitBooking,
		Payload: req,
	})
	if err != nil {
		s.tickets.Delete(t.ID)
		return "", fmt.Errorf("failed to queue booking: %w", err)
	}

	return t.ID, nil
}

// Status возвращает копию квитанции
func (s *Service) Status(id string) (Ticket, error) {
	t, ok := s.tickets.Get(id)
	if !ok {
		return Ticket{}, ErrUnknownTicket
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return *t, nil
}

// Cancel отменяет отправку, пока заявка еще не передана Sender
func (s *Service) Cancel(id string) error {
	t, ok := s.tickets.Get(id)
	if !ok {
		return ErrUnknownTicket
	}

	s.mu.Lock()
	if t.Status != StatusPending || t.sending {
		s.mu.Unlock()
		return ErrNotPending
	}
	s.completeLocked(t, StatusCancelled, "")
	s.mu.Unlock()

	s.pool.Cancel(id)
	return nil
}

// Wait блокируется до конечного статуса квитанции или отмены ctx
func (s *Service) Wait(ctx context.Context, id string) (Ticket, error) {
	t, ok := s.tickets.Get(id)
	if !ok {
		return Ticket{}, ErrUnknownTicket
	}

	select {
	case <-t.done:
		return s.Status(id)
	case <-ctx.Done():
		return Ticket{}, ctx.Err()
	}
}

// TicketStats статистика кэша квитанций
func (s *Service) TicketStats() cache.Stats {
	return s.tickets.Stats()
}

// Close останавливает фоновую очистку квитанций
func (s *Service) Close() {
	s.tickets.Stop()
}

func (s *Service) handleSubmit(ctx context.Context, task *worker.Task) (*worker.TaskResult, error) {
	start := time.Now()

	req, ok := task.Payload.(Request)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T", task.Payload)
	}

	t, ok := s.tickets.Get(task.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTicket, task.ID)
	}

	// задержка отсчитывается от Submit, время в очереди входит в нее
	timer := time.NewTimer(max(s.delay-time.Since(t.CreatedAt), 0))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		status := StatusCancelled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			status = StatusFailed
		}
		s.complete(t, status, ctx.Err().Error())
		return nil, ctx.Err()
	case <-timer.C:
	}

	s.mu.Lock()
	if t.Status.Terminal() {
		s.mu.Unlock()
		return nil, context.Canceled
	}
	t.sending = true
	s.mu.Unlock()

	if err := s.sender.Send(ctx, req); err != nil {
		s.complete(t, StatusFailed, err.Error())
		return nil, fmt.Errorf("send booking: %w", err)
	}

	s.complete(t, StatusSubmitted, "")
	return &worker.TaskResult{
		TaskID:   task.ID,
		Success:  true,
		Duration: time.Since(start),
	}, nil
}

// complete переводит квитанцию в конечный статус один раз
func (s *Service) complete(t *Ticket, status Status, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeLocked(t, status, msg)
}

func (s *Service) completeLocked(t *Ticket, status Status, msg string) {
	if t.Status.Terminal() {
		return
	}

	now := time.Now()
	t.Status = status
	t.Error = msg
	t.CompletedAt = &now
	close(t.done)
}

// Apply переносит статус квитанции на форму
func (f *Form) Apply(t Ticket) {
	f.Ticket = t.ID
	switch t.Status {
	case StatusPending:
		f.Submitting = true
	case StatusSubmitted:
		f.Complete()
	case StatusFailed, StatusCancelled:
		f.Submitting = false
		f.Values = t.req
		f.Errors = FieldErrors{FieldForm: "Something went wrong. Please try again."}
	}
}
