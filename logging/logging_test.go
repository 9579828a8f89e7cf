package logging

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Director != "logs" {
		t.Errorf("expected Director 'logs', got '%s'", cfg.Director)
	}
	if cfg.Level != "info" {
		t.Errorf("expected Level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected Format 'console', got '%s'", cfg.Format)
	}
	if cfg.Output != OutputConsole {
		t.Errorf("expected Output 'console', got '%s'", cfg.Output)
	}
	if !cfg.WritesConsole() || cfg.WritesFiles() {
		t.Error("default config should write to console only")
	}
}

func TestConfigTransportLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"dpanic", zapcore.DPanicLevel},
		{"panic", zapcore.PanicLevel},
		{"fatal", zapcore.FatalLevel},
		{"unknown", zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Config{Level: tt.level}
			if got := cfg.TransportLevel(); got != tt.expected {
				t.Errorf("TransportLevel() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConfigOutputs(t *testing.T) {
	tests := []struct {
		output        string
		console, file bool
	}{
		{"", true, false},
		{OutputConsole, true, false},
		{OutputFile, false, true},
		{OutputBoth, true, true},
	}
	for _, tt := range tests {
		cfg := Config{Output: tt.output}
		if cfg.WritesConsole() != tt.console || cfg.WritesFiles() != tt.file {
			t.Errorf("Output %q: console=%v file=%v", tt.output, cfg.WritesConsole(), cfg.WritesFiles())
		}
	}
}

func TestNewLoggerToWriter(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.ColorSources = false

	logger := NewLoggerTo(cfg, &buf).Named("storyteller@1.0.0")
	logger.Info("story started", zap.String("story", "login"))
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "story started") {
		t.Fatalf("missing message: %s", out)
	}
	if !strings.Contains(out, "storyteller -") {
		t.Fatalf("missing padded source: %s", out)
	}
	if strings.Contains(out, "storyteller@1.0.0") {
		t.Fatalf("source should drop the version: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug entry written at info level: %s", out)
	}
}

func TestNewLoggerToNilWriter(t *testing.T) {
	logger := NewLoggerTo(DefaultConfig(), nil)
	if logger.Enabled(zapcore.ErrorLevel) {
		t.Error("logger without console or file output should be disabled")
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = "json"

	NewLoggerTo(cfg, &buf).With(zap.String("key", "value")).Info("test message")

	output := buf.String()
	if !strings.Contains(output, `"message":"test message"`) {
		t.Errorf("JSON output should contain message field, got: %s", output)
	}
	if !strings.Contains(output, `"key":"value"`) {
		t.Errorf("JSON output should contain key field, got: %s", output)
	}
}

func TestLoggerAtLeast(t *testing.T) {
	logger, rec := NewRecorded(zapcore.DebugLevel)

	quiet := logger.AtLeast(zapcore.InfoLevel)
	quiet.Debug("dropped")
	quiet.Info("kept")

	if got := rec.Messages(); len(got) != 1 || got[0] != "kept" {
		t.Fatalf("messages = %v, want [kept]", got)
	}
	if quiet.Enabled(zapcore.DebugLevel) {
		t.Error("AtLeast(info) should disable debug")
	}

	// AtLeast never lowers the level.
	if logger.AtLeast(zapcore.WarnLevel).AtLeast(zapcore.DebugLevel).Enabled(zapcore.InfoLevel) {
		t.Error("AtLeast must not lower the level")
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error("nothing")
	if logger.Enabled(zapcore.FatalLevel) {
		t.Error("Nop should be disabled at every level")
	}
	if err := logger.Sync(); err != nil {
		t.Errorf("Sync failed: %v", err)
	}
}

func TestVerbosityLevel(t *testing.T) {
	if VerbosityLevel(true) != zapcore.DebugLevel {
		t.Error("debug should map to DebugLevel")
	}
	if VerbosityLevel(false) != zapcore.InfoLevel {
		t.Error("non-debug should map to InfoLevel")
	}
}

func TestRecorderCapturesBoundFields(t *testing.T) {
	logger, rec := NewRecorded(zapcore.DebugLevel)

	logger.Named("counter").With(zap.String("dependency", "plugin-counter")).
		Debug("call", zap.String("field", "counterIncrement"))

	entries := rec.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "counter" {
		t.Errorf("LoggerName = %q", e.LoggerName)
	}
	if e.Fields["dependency"] != "plugin-counter" || e.Fields["field"] != "counterIncrement" {
		t.Errorf("fields = %v", e.Fields)
	}

	rec.Reset()
	if len(rec.Entries()) != 0 {
		t.Error("Reset should clear entries")
	}
}

func TestWithHooksKeepsWrappedOutput(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = "json"

	var hooked []string
	logger := WithHooks(NewLoggerTo(cfg, &buf), func(entry zapcore.Entry, _ []zapcore.Field) error {
		hooked = append(hooked, entry.Message)
		return nil
	})
	logger.Info("both")

	if len(hooked) != 1 || hooked[0] != "both" {
		t.Errorf("hook saw %v", hooked)
	}
	if !strings.Contains(buf.String(), "both") {
		t.Errorf("wrapped core did not write: %s", buf.String())
	}
	if WithHooks(logger) != logger {
		t.Error("WithHooks without hooks should return the logger unchanged")
	}
}

func TestFormatSource(t *testing.T) {
	got := FormatSource("mockserver@2.1.0", 16, nil)
	if got != "mockserver -----" {
		t.Errorf("FormatSource = %q", got)
	}

	long := FormatSource("averyveryverylongpluginname", 8, nil)
	if long != "averyveryverylongpluginname -" {
		t.Errorf("long source = %q", long)
	}

	scheme := NewDefaultColorScheme()
	colored := FormatSource("redisstore", 16, scheme)
	if !strings.HasPrefix(colored, scheme.SourceColor("redisstore")) || !strings.HasSuffix(colored, Reset) {
		t.Errorf("colored source = %q", colored)
	}
}

func TestSourceColorStable(t *testing.T) {
	scheme := NewDefaultColorScheme()
	if scheme.SourceColor("storyteller") != scheme.SourceColor("storyteller") {
		t.Error("SourceColor should be deterministic")
	}
	if (&DefaultColorScheme{}).SourceColor("x") != White {
		t.Error("empty palette should fall back to white")
	}
}

func TestCusTimeEncoder(t *testing.T) {
	cfg := Config{Prefix: "[hookforge] ", TimeFormat: "2006"}
	enc := zapcore.NewMapObjectEncoder()
	if err := enc.AddArray("t", zapcore.ArrayMarshalerFunc(func(arr zapcore.ArrayEncoder) error {
		CusTimeEncoder(cfg)(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), arr)
		return nil
	})); err != nil {
		t.Fatal(err)
	}
	arr := enc.Fields["t"].([]any)
	if arr[0] != "[hookforge] 2024" {
		t.Errorf("time = %v", arr[0])
	}
}

func TestContextFunctions(t *testing.T) {
	ctx := SetStep(SetStory(context.Background(), "login"), "arrange")
	ctx = SetRequestID(ctx, "r-1")

	if GetStory(ctx) != "login" || GetStep(ctx) != "arrange" || GetRequestID(ctx) != "r-1" {
		t.Fatal("context values not round-tripped")
	}

	logger, rec := NewRecorded(zapcore.DebugLevel)
	WithContext(logger, ctx).Info("x")
	fields := rec.Entries()[0].Fields
	if fields["story"] != "login" || fields["step"] != "arrange" || fields["request_id"] != "r-1" {
		t.Errorf("fields = %v", fields)
	}
}

func TestWithContextNilContext(t *testing.T) {
	logger := Nop()
	//nolint:staticcheck // nil context on purpose
	if WithContext(logger, nil) != logger {
		t.Error("nil context should return the logger unchanged")
	}
	if WithContext(logger, context.Background()) != logger {
		t.Error("empty context should return the logger unchanged")
	}
}

func TestContextLoggerStorage(t *testing.T) {
	logger, _ := NewRecorded(zapcore.InfoLevel)
	ctx := ToContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("FromContext should return the stored logger")
	}
	if FromContext(context.Background()).Enabled(zapcore.ErrorLevel) {
		t.Error("FromContext without a logger should return Nop")
	}
}

func TestHTTPMiddleware(t *testing.T) {
	logger, rec := NewRecorded(zapcore.DebugLevel)
	handler := HTTPMiddleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/users?x=1", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := rec.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Message != "POST /users" {
		t.Errorf("message = %q", entries[0].Message)
	}
	if entries[0].Fields["status"] != int64(http.StatusTeapot) || entries[0].Fields["bytes"] != int64(2) {
		t.Errorf("fields = %v", entries[0].Fields)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger, rec := NewRecorded(zapcore.DebugLevel)
	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
	if msgs := rec.Messages(); len(msgs) != 1 || msgs[0] != "handler panicked" {
		t.Errorf("messages = %v", msgs)
	}
}

func TestDailyFile_MovesAtMidnight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Director = t.TempDir()

	day := time.Date(2026, 3, 1, 23, 59, 0, 0, time.Local)
	f := newDailyFile(cfg, "info")
	f.now = func() time.Time { return day }

	if _, err := f.Write([]byte("first\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	day = day.Add(2 * time.Minute)
	if _, err := f.Write([]byte("second\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for date, want := range map[string]string{"2026-03-01": "first\n", "2026-03-02": "second\n"} {
		data, err := os.ReadFile(filepath.Join(cfg.Director, date, "info.log"))
		if err != nil {
			t.Fatalf("read %s: %v", date, err)
		}
		if string(data) != want {
			t.Errorf("%s content = %q, want %q", date, data, want)
		}
	}
}

func TestFileOutput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Director = t.TempDir()
	cfg.Output = OutputFile
	cfg.Level = "warn"

	logger := NewLoggerTo(cfg, nil)
	logger.Warn("to file")
	logger.Info("dropped")
	_ = logger.Sync()
	defer func() { _ = CloseAllWriters() }()

	path := filepath.Join(cfg.Director, time.Now().Format("2006-01-02"), "warn.log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !strings.Contains(string(data), "to file") || strings.Contains(string(data), "dropped") {
		t.Errorf("file content = %s", data)
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	if cfg.MessageKey != "message" || cfg.NameKey != "source" || cfg.Output != OutputConsole {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
