package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Showcase   ShowcaseConfig   `yaml:"showcase"`
	Booking    BookingConfig    `yaml:"booking"`
	Thumbnails ThumbnailsConfig `yaml:"thumbnails"`
	Workers    WorkersConfig    `yaml:"workers"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tools      ToolsConfig      `yaml:"tools"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	AssetsPath  string `yaml:"assets_path"`  // видео и постеры, отдаются по /assets/
	CatalogPath string `yaml:"catalog_path"` // YAML-описание сайта; пусто = встроенный каталог
	CachePath   string `yaml:"cache_path"`
	LogsPath    string `yaml:"logs_path"`
}

type ShowcaseConfig struct {
	PageSize int `yaml:"page_size"`
}

type BookingConfig struct {
	Delay     time.Duration `yaml:"delay"`      // имитация сетевой задержки
	TicketTTL time.Duration `yaml:"ticket_ttl"` // сколько хранится статус заявки
	Workers   int           `yaml:"workers"`    // воркеры пула заявок
	QueueSize int           `yaml:"queue_size"`
}

type ThumbnailsConfig struct {
	Width   int `yaml:"width"`
	Height  int `yaml:"height"`
	Quality int `yaml:"quality"` // JPEG quality (0-100)
}

type WorkersConfig struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queue_size"`
}

type LoggingConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

type ToolsConfig struct {
	Ffmpeg string `yaml:"ffmpeg"`
}

// Load читает конфигурацию из YAML-файла.
// Отсутствующий файл не является ошибкой: используются значения по умолчанию.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	// .env необязателен
	_ = godotenv.Load()
	cfg.applyEnv()

	// Установка значений по умолчанию
	cfg.setDefaults()

	return &cfg, nil
}

// Default возвращает конфигурацию только со значениями по умолчанию
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SKB_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SKB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SKB_ASSETS_PATH"); v != "" {
		c.Storage.AssetsPath = v
	}
	if v := os.Getenv("SKB_CATALOG_PATH"); v != "" {
		c.Storage.CatalogPath = v
	}
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Storage.AssetsPath == "" {
		c.Storage.AssetsPath = "./assets"
	}
	if c.Storage.CachePath == "" {
		c.Storage.CachePath = "./cache"
	}
	if c.Storage.LogsPath == "" {
		c.Storage.LogsPath = "./logs"
	}
	if c.Showcase.PageSize <= 0 {
		c.Showcase.PageSize = 12
	}
	if c.Booking.Delay == 0 {
		c.Booking.Delay = 1500 * time.Millisecond
	}
	if c.Booking.TicketTTL == 0 {
		c.Booking.TicketTTL = 30 * time.Minute
	}
	if c.Booking.Workers <= 0 {
		c.Booking.Workers = 2
	}
	if c.Booking.QueueSize <= 0 {
		c.Booking.QueueSize = 64
	}
	if c.Thumbnails.Width == 0 {
		c.Thumbnails.Width = 480
	}
	if c.Thumbnails.Height == 0 {
		c.Thumbnails.Height = 640
	}
	if c.Thumbnails.Quality == 0 {
		c.Thumbnails.Quality = 85
	}
	if c.Workers.QueueSize == 0 {
		c.Workers.QueueSize = 256
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = 30
	}
	if c.Tools.Ffmpeg == "" {
		c.Tools.Ffmpeg = "ffmpeg"
	}
}

// Addr возвращает адрес для прослушивания
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}
