package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// До вызова Init логи пишутся в stderr
var (
	InfoLog   = log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)
	ErrorLog  = log.New(os.Stderr, "ERROR ", log.LstdFlags|log.Lshortfile)
	infoFile  *lumberjack.Logger
	errorFile *lumberjack.Logger
)

// Options параметры ротации файлов логов
type Options struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Init инициализирует логгеры для записи в файлы с ротацией
func Init(logsPath string, opts Options) error {
	// Создать директорию для логов
	if err := os.MkdirAll(logsPath, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	infoPath := filepath.Join(logsPath, "info.log")
	errorPath := filepath.Join(logsPath, "error.log")

	infoFile = newRotator(infoPath, opts)
	errorFile = newRotator(errorPath, opts)

	InfoLog = log.New(infoFile, "", log.LstdFlags|log.Lshortfile)
	ErrorLog = log.New(errorFile, "", log.LstdFlags|log.Lshortfile)

	InfoLog.Printf("Logger initialized. Logs directory: %s", logsPath)
	return nil
}

func newRotator(path string, opts Options) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
}

// Cleanup закрывает файлы логов
func Cleanup() error {
	var errInfo, errError error

	if infoFile != nil {
		errInfo = infoFile.Close()
	}
	if errorFile != nil {
		errError = errorFile.Close()
	}

	if errInfo != nil {
		return errInfo
	}
	return errError
}
