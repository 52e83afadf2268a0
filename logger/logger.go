package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/datazip-inc/fimo/constants"
	"github.com/datazip-inc/fimo/types"
	"github.com/datazip-inc/fimo/utils"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

func Info(v ...interface{}) {
	if len(v) == 1 {
		logger.Info().Interface("message", v[0]).Send()
		return
	}
	logger.Info().Msg(fmt.Sprint(v...))
}

func Infof(format string, v ...interface{}) {
	logger.Info().Msgf(format, v...)
}

func Debug(v ...interface{}) {
	logger.Debug().Msg(fmt.Sprint(v...))
}

func Warn(v ...interface{}) {
	logger.Warn().Msg(fmt.Sprint(v...))
}

func Warnf(format string, v ...interface{}) {
	logger.Warn().Msgf(format, v...)
}

func Error(v ...interface{}) {
	logger.Error().Msg(fmt.Sprint(v...))
}

func Errorf(format string, v ...interface{}) {
	logger.Error().Msgf(format, v...)
}

// Fatal logs at FATAL level and exits with status 1
func Fatal(v ...interface{}) {
	logger.Fatal().Msg(fmt.Sprint(v...))
}

func Fatalf(format string, v ...interface{}) {
	logger.Fatal().Msgf(format, v...)
}

// LogCheckpoint records a committed checkpoint together with the number of documents it covers
func LogCheckpoint(checkpoint types.Checkpoint, applied int) {
	event := logger.Info().Str("checkpoint_type", string(checkpoint.Type())).Int("applied", applied)
	switch cp := checkpoint.(type) {
	case *types.ChangeStreamCheckpoint:
		event = event.Str(constants.CursorToken, string(cp.Token))
	case *types.FieldCheckpoint:
		event = event.Str(constants.CursorValue, cp.Value.String()).Str(constants.CursorLastID, cp.LastID.Hex())
	}
	event.Msg("checkpoint committed")
}

// LogConfig prints the effective sync configuration without credentials
func LogConfig(config *types.SyncConfig) {
	redacted := *config
	redacted.Source.URI = redactURI(config.Source.URI)
	redacted.Target.URI = redactURI(config.Target.URI)

	message, err := json.Marshal(redacted)
	if err != nil {
		Errorf("failed to marshal sync config: %s", err)
		return
	}
	logger.Info().RawJSON("config", message).Msg("running sync with config")
}

func redactURI(uri string) string {
	scheme, rest, found := strings.Cut(uri, "://")
	if !found {
		return uri
	}
	credentials, host, found := strings.Cut(rest, "@")
	if !found {
		return uri
	}
	user, _, _ := strings.Cut(credentials, ":")
	return fmt.Sprintf("%s://%s:***@%s", scheme, user, host)
}

var levelColors = map[string]string{
	zerolog.DebugLevel.String(): "\033[36m",
	zerolog.InfoLevel.String():  "\033[32m",
	zerolog.WarnLevel.String():  "\033[33m",
	zerolog.ErrorLevel.String(): "\033[31m",
	zerolog.FatalLevel.String(): "\033[31m",
}

func consoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.DateTime,
		FormatLevel: func(i interface{}) string {
			level, _ := i.(string)
			return fmt.Sprintf("%s%-5s\033[0m", levelColors[level], strings.ToUpper(level))
		},
		FormatMessage: func(i interface{}) string {
			if msg, ok := i.(string); ok {
				return msg
			}
			encoded, err := json.Marshal(i)
			if err != nil {
				return err.Error()
			}
			return string(encoded)
		},
		FormatTimestamp: func(i interface{}) string {
			return fmt.Sprintf("\033[90m%s\033[0m", i)
		},
	}
}

// Init rebuilds the package logger from LOG_LEVEL, LOG_FOLDER, RUN_ID and SYNC_ID
func Init() {
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}
	level, err := zerolog.ParseLevel(viper.GetString(constants.LogLevelKey))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writer io.Writer = consoleWriter()
	if folder := viper.GetString(constants.LogFolder); folder != "" {
		// one directory per run, rotated at 100MB
		runDir := fmt.Sprintf("sync_%s", time.Now().UTC().Format("20060102T150405"))
		writer = zerolog.MultiLevelWriter(writer, &lumberjack.Logger{
			Filename:   filepath.Join(folder, "logs", runDir, utils.TimestampedFileName("log")),
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}

	context := zerolog.New(writer).With().Timestamp()
	if runID := viper.GetString(constants.RunIDKey); runID != "" {
		context = context.Str("run_id", runID)
	}
	if syncID := viper.GetString(constants.SyncIDKey); syncID != "" {
		context = context.Str("sync_id", syncID)
	}
	logger = context.Logger()
}
