package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Messages carries every encoded log entry, the main process decides how to render them.
var Messages = make(chan []byte, 128)

const (
	ErrorLvl    = 0
	WarningLvl  = 1
	InfoLvl     = 2
	FirmwareLvl = 3 // link sessions, version checks, reflashing
	KeysLvl     = 4 // every emitted midi event
	RawLvl      = 5 // decoded wire frames and resync drops

	DebugLvl = 378
)

var (
	Error    = zap.Int("level", ErrorLvl)
	Warning  = zap.Int("level", WarningLvl)
	Info     = zap.Int("level", InfoLvl)
	Firmware = zap.Int("level", FirmwareLvl)
	Keys     = zap.Int("level", KeysLvl)
	Raw      = zap.Int("level", RawLvl)

	Debug = zap.Int("level", DebugLvl)
)

type chanWriter struct {
	sync.Mutex
}

func (w *chanWriter) Write(p []byte) (n int, err error) {
	w.Lock()
	var newSlice = make([]byte, len(p))
	copy(newSlice, p)
	Messages <- newSlice
	w.Unlock()
	return len(p), nil
}

func (w *chanWriter) Sync() error {
	return nil
}

var (
	once   sync.Once
	shared *zap.Logger
)

// GetLogger returns the process-wide logger. Every entry lands in Messages as one JSON object
// without a trailing newline, severity is carried in the "level" field instead of zap levels.
func GetLogger() *zap.Logger {
	once.Do(func() {
		cfg := zap.NewProductionEncoderConfig()
		cfg.SkipLineEnding = true
		cfg.EncodeTime = zapcore.EpochNanosTimeEncoder
		cfg.LevelKey = ""
		encoder := zapcore.NewJSONEncoder(cfg)
		writer := zapcore.Lock(&chanWriter{})

		shared = zap.New(
			zapcore.NewCore(encoder, writer, zap.DebugLevel),
			zap.AddCaller(),
		)
	})
	return shared
}

// Discard drains Messages in the background, handy for tests and silent mode.
func Discard() {
	go func() {
		for range Messages {
		}
	}()
}
