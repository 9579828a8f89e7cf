package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const dateLayout = "2006-01-02"

// dailyFile writes one level's entries to <Director>/<date>/<level>.log. The
// file moves to a new directory when the date changes; lumberjack rotates it
// by size within a day.
type dailyFile struct {
	config Config
	level  string
	now    func() time.Time

	mu   sync.Mutex
	date string
	out  *lumberjack.Logger
}

func newDailyFile(config Config, level string) *dailyFile {
	return &dailyFile{config: config, level: level, now: time.Now}
}

func (f *dailyFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	date := f.now().Format(dateLayout)
	if f.out == nil || f.date != date {
		if f.out != nil {
			_ = f.out.Close()
		}
		f.out = f.open(date)
		f.date = date
	}
	return f.out.Write(p)
}

func (f *dailyFile) open(date string) *lumberjack.Logger {
	dir := filepath.Join(f.config.Director, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		dir = f.config.Director
		_ = os.MkdirAll(dir, 0o755)
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, f.level+".log"),
		MaxSize:    f.config.MaxSize,
		MaxBackups: f.config.MaxBackups,
		MaxAge:     f.config.MaxAge,
		Compress:   f.config.Compress,
		LocalTime:  true,
	}
}

// Sync is a no-op; lumberjack writes through to the file.
func (f *dailyFile) Sync() error {
	return nil
}

func (f *dailyFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.out == nil {
		return nil
	}
	err := f.out.Close()
	f.out = nil
	return err
}

var (
	openFiles   []io.Closer
	openFilesMu sync.Mutex
)

// CloseAllWriters closes every log file opened by file-output loggers.
func CloseAllWriters() error {
	openFilesMu.Lock()
	defer openFilesMu.Unlock()

	var lastErr error
	for _, f := range openFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
	}
	openFiles = nil
	return lastErr
}

// fileSyncer opens the daily file for level and tracks it for CloseAllWriters.
func fileSyncer(config Config, level string) zapcore.WriteSyncer {
	f := newDailyFile(config, level)
	openFilesMu.Lock()
	openFiles = append(openFiles, f)
	openFilesMu.Unlock()
	return f
}

var _ zapcore.WriteSyncer = (*dailyFile)(nil)
