package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/skbvisuals/skb/internal/logger"
)

// FileEvent представляет событие файловой системы
type FileEvent struct {
	Path      string
	Rel       string // путь относительно корня ресурсов, через "/"
	Operation string // create, modify, delete, rename
	IsDir     bool
	Time      time.Time
}

// EventHandler обрабатывает события файловой системы
type EventHandler func(event FileEvent)

// Watcher наблюдает за директорией ресурсов сайта
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	handlers []EventHandler
	debounce time.Duration

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}

	// Debouncing - группировка событий
	pendingEvents map[string]*FileEvent
	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher создает новый наблюдатель
func NewWatcher(root string) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:          absRoot,
		watcher:       fsWatcher,
		debounce:      500 * time.Millisecond,
		stopChan:      make(chan struct{}),
		pendingEvents: make(map[string]*FileEvent),
	}, nil
}

// AddHandler добавляет обработчик событий
func (w *Watcher) AddHandler(handler EventHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Start запускает наблюдение
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.eventLoop()

	logger.InfoLog.Printf("Asset watcher started: %s", w.root)
	return nil
}

// Stop останавливает наблюдение
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceMu.Unlock()

	logger.InfoLog.Println("Asset watcher stopped")
	return w.watcher.Close()
}

// addRecursive добавляет директорию и все поддиректории
func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // продолжаем при ошибках доступа
		}

		if info.IsDir() {
			// Пропускаем скрытые директории
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}

			if err := w.watcher.Add(path); err != nil {
				logger.ErrorLog.Printf("Watcher: failed to watch %s: %v", path, err)
			}
		}

		return nil
	})
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.ErrorLog.Printf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	var op string
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		op = "create"
	case event.Op&fsnotify.Write == fsnotify.Write:
		op = "modify"
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		op = "delete"
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		op = "rename"
	default:
		return
	}

	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()

		// Новая директория тоже попадает под наблюдение
		if isDir && op == "create" {
			if err := w.addRecursive(event.Name); err != nil {
				logger.ErrorLog.Printf("Watcher: failed to add new directory %s: %v", event.Name, err)
			}
		}
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}

	fileEvent := &FileEvent{
		Path:      event.Name,
		Rel:       filepath.ToSlash(rel),
		Operation: op,
		IsDir:     isDir,
		Time:      time.Now(),
	}

	// Откладываем обработку для группировки событий
	w.debounceMu.Lock()
	w.pendingEvents[event.Name] = fileEvent

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.processPendingEvents)
	w.debounceMu.Unlock()
}

func (w *Watcher) processPendingEvents() {
	w.debounceMu.Lock()
	events := w.pendingEvents
	w.pendingEvents = make(map[string]*FileEvent)
	w.debounceMu.Unlock()

	w.mu.RLock()
	handlers := w.handlers
	w.mu.RUnlock()

	for _, event := range events {
		logger.InfoLog.Printf("Watcher: %s %s (dir=%v)", event.Operation, event.Rel, event.IsDir)

		for _, handler := range handlers {
			handler(*event)
		}
	}
}

// IsRunning возвращает состояние наблюдателя
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// WatchedPaths возвращает список наблюдаемых путей
func (w *Watcher) WatchedPaths() []string {
	return w.watcher.WatchList()
}
