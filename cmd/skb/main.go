package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/skbvisuals/skb/internal/assets"
	"github.com/skbvisuals/skb/internal/booking"
	"github.com/skbvisuals/skb/internal/catalog"
	"github.com/skbvisuals/skb/internal/config"
	"github.com/skbvisuals/skb/internal/logger"
	"github.com/skbvisuals/skb/internal/media"
	"github.com/skbvisuals/skb/internal/web"
	"github.com/skbvisuals/skb/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	watch := flag.Bool("watch", true, "watch the assets directory and regenerate changed thumbnails")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Storage.LogsPath, logger.Options{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	}); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Cleanup()

	portfolio, err := catalog.Load(cfg.Storage.CatalogPath)
	if err != nil {
		logger.ErrorLog.Fatalf("Failed to load catalog: %v", err)
	}
	logger.InfoLog.Printf("Loaded %d reels", portfolio.Catalog.Len())

	pool := worker.NewPool(cfg.Workers.Count, cfg.Workers.QueueSize)

	bookingPool := worker.NewPool(cfg.Booking.Workers, cfg.Booking.QueueSize)
	bookings := booking.NewService(bookingPool, booking.LogSender{}, cfg.Booking.Delay, cfg.Booking.TicketTTL)
	defer bookings.Close()

	thumbGen := media.NewThumbnailGenerator(cfg)
	if err := thumbGen.EnsureCacheDir(); err != nil {
		logger.ErrorLog.Fatalf("Failed to create cache dir: %v", err)
	}
	thumbService := worker.NewThumbnailService(pool, portfolio.Catalog, thumbGen)

	pool.Start()
	bookingPool.Start()
	thumbService.PregenerateThumbnails()

	if *watch {
		watcher, err := assets.NewWatcher(cfg.Storage.AssetsPath)
		if err != nil {
			logger.ErrorLog.Printf("Asset watcher disabled: %v", err)
		} else {
			watcher.AddHandler(func(e assets.FileEvent) {
				if e.IsDir {
					return
				}
				ids := portfolio.Catalog.ReferencingPath(e.Rel)
				if len(ids) == 0 {
					return
				}
				thumbService.Invalidate(ids...)
				for _, id := range ids {
					thumbService.QueueThumbnail(id)
				}
			})
			if err := watcher.Start(); err != nil {
				logger.ErrorLog.Printf("Asset watcher disabled: %v", err)
			} else {
				defer watcher.Stop()
			}
		}
	}

	server, err := web.NewServer(cfg, portfolio, bookings, pool, thumbGen, thumbService)
	if err != nil {
		logger.ErrorLog.Fatalf("Failed to create server: %v", err)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-done:
		logger.InfoLog.Println("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.ErrorLog.Printf("Server error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.ErrorLog.Printf("Graceful shutdown failed: %v", err)
	}

	bookingPool.Stop()
	pool.Stop()
	logger.InfoLog.Println("Server stopped")
}
