package internal

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// SetupLogging 将标准日志同时写入 stderr 与 logDir 下的日志文件。
// slog 默认 logger 经由标准日志输出，级别由 level 决定。
func SetupLogging(subcommand, logDir string, level slog.Level) error {
	slog.SetLogLoggerLevel(level)

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("docrag-%s-%s.log", subcommand, timestamp)
	logPath := filepath.Join(logDir, filename)

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	slog.Debug("log file opened", "path", logPath)
	return nil
}

// LogLevel 将配置中的级别名转换为 slog.Level；verbose 时强制为 debug。
func LogLevel(name string, verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
