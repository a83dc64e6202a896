package core

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/orderly-agent/orderly/internals/assert"
	"github.com/orderly-agent/orderly/internals/conf"
)

// InitLogger wires the daemon logger: colored output on a terminal,
// plus a rotated file under the data dir. The returned closer stops the
// rotation writer.
func InitLogger(config *conf.Config) (*slog.Logger, io.Closer) {
	logDir := filepath.Join(config.Server.DataDir, "logs")
	err := os.MkdirAll(logDir, 0o755)
	assert.AssertNil(err, "[CORE] Failed to initialize log directory")

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "orderlyd.log"),
		MaxSize:    20, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
	}

	logWriter := io.MultiWriter(os.Stdout, fileWriter)
	handler := tint.NewHandler(logWriter, &tint.Options{
		Level:     slog.LevelDebug,
		AddSource: true,
		NoColor:   !isatty.IsTerminal(os.Stdout.Fd()),
	})
	logger := slog.New(handler)

	slog.SetDefault(logger)
	return logger, fileWriter
}
