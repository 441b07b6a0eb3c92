package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewTestLogger returns a Debug+ logger named after the test that writes through the test's Log method.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	const inUTC = false
	logger := &impl{testLoggerName(tb), NewAtomicLevelAt(DEBUG), inUTC, []Appender{}}
	logger.AddAppender(newTestAppender(tb))

	observerCore, observedLogs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	logger.AddAppender(observerCore)
	return logger, observedLogs
}

// testLoggerName turns "TestScript/grasp" into "TestScript.grasp" so subloggers read as one dotted path.
func testLoggerName(tb testing.TB) string {
	return strings.ReplaceAll(tb.Name(), "/", ".")
}

// testAppender encodes entries the way ConsoleAppender does, without the timestamp, and hands each line to tb.Log
// so parallel tests keep their own output.
type testAppender struct {
	tb      testing.TB
	encoder zapcore.Encoder
}

func newTestAppender(tb testing.TB) *testAppender {
	cfg := NewZapEncoderConfig()
	cfg.TimeKey = zapcore.OmitKey
	cfg.SkipLineEnding = true
	return &testAppender{tb: tb, encoder: zapcore.NewConsoleEncoder(cfg)}
}

func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	buf, err := tapp.encoder.EncodeEntry(entry, fields)
	if err != nil {
		tapp.tb.Log(entry.Level.CapitalString(), entry.LoggerName, entry.Message)
		return err
	}
	defer buf.Free()
	tapp.tb.Log(buf.String())
	return nil
}

func (tapp *testAppender) Sync() error {
	return nil
}
