package logging

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SourceWidth is the column width the source name is padded to in console output.
const SourceWidth = 24

// CusTimeEncoder creates a custom time encoder that adds the prefix and formats the time.
func CusTimeEncoder(config Config) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(config.Prefix + t.Format(config.TimeFormat))
	}
}

// SourceNameEncoder renders a logger name like "storyteller@1.0.0" as a
// dash-padded "storyteller -------------" column, colorized per source when
// scheme is non-nil.
func SourceNameEncoder(width int, scheme ColorScheme) zapcore.NameEncoder {
	return func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(FormatSource(name, width, scheme))
	}
}

// FormatSource pads the short source name with dashes to width.
func FormatSource(name string, width int, scheme ColorScheme) string {
	short, _, _ := strings.Cut(name, "@")
	text := short + " -"
	if pad := width - len(text); pad > 0 {
		text += strings.Repeat("-", pad)
	}
	if scheme == nil {
		return text
	}
	return Colorize(scheme.SourceColor(short), text)
}

// GetEncoder returns a zapcore.Encoder based on the config format.
func GetEncoder(config Config) zapcore.Encoder {
	encoderConfig := getEncoderConfig(config)
	if config.Format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	if config.ColorSources {
		encoderConfig.EncodeName = SourceNameEncoder(SourceWidth, NewDefaultColorScheme())
	} else {
		encoderConfig.EncodeName = SourceNameEncoder(SourceWidth, nil)
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

// getEncoderConfig creates a zapcore.EncoderConfig from the Config.
func getEncoderConfig(config Config) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     config.MessageKey,
		LevelKey:       config.LevelKey,
		TimeKey:        config.TimeKey,
		NameKey:        config.NameKey,
		CallerKey:      config.CallerKey,
		StacktraceKey:  config.StacktraceKey,
		LineEnding:     config.LineEnding,
		EncodeLevel:    config.ZapEncodeLevel(),
		EncodeTime:     CusTimeEncoder(config),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// getLevelPriority returns a LevelEnabler that only enables the exact level.
func getLevelPriority(level zapcore.Level) zap.LevelEnablerFunc {
	return func(l zapcore.Level) bool {
		return l == level
	}
}

// getZapCores creates the console core (writing to console) and one file core
// per level >= config.Level, depending on config.Output.
func getZapCores(config Config, console zapcore.WriteSyncer) []zapcore.Core {
	minLevel := config.TransportLevel()
	cores := make([]zapcore.Core, 0, 8)

	if config.WritesConsole() && console != nil {
		cores = append(cores, zapcore.NewCore(GetEncoder(config), console, zap.NewAtomicLevelAt(minLevel)))
	}
	if config.WritesFiles() {
		fileConfig := config
		fileConfig.ColorSources = false
		encoder := GetEncoder(fileConfig)
		for level := minLevel; level <= zapcore.FatalLevel; level++ {
			writer := fileSyncer(fileConfig, level.String())
			cores = append(cores, zapcore.NewCore(encoder, writer, getLevelPriority(level)))
		}
	}
	return cores
}
