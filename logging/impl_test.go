package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

type bufferSyncer struct {
	bytes.Buffer
}

func (b *bufferSyncer) Sync() error { return nil }

func TestConsoleOutputFormat(t *testing.T) {
	var buf bufferSyncer
	logger := NewBlankLogger("octree")
	logger.AddAppender(NewWriterAppender(&buf))

	logger.Infow("split node", "depth", 3, "points", 2)
	line := strings.TrimSuffix(buf.String(), "\n")
	parts := strings.Split(line, "\t")
	test.That(t, len(parts), test.ShouldBeGreaterThanOrEqualTo, 5)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "octree")
	test.That(t, parts[3], test.ShouldContainSubstring, "logging/impl_test.go")
	test.That(t, parts[4], test.ShouldEqual, "split node")
	test.That(t, line, test.ShouldContainSubstring, `"depth": 3`)
}

func TestLevels(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.SetLevel(WARN)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warnf("kept %d", 1)
	logger.Errorw("kept", "n", 2)

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logs.All()[0].Message, test.ShouldEqual, "kept 1")
	test.That(t, logs.All()[1].Level, test.ShouldEqual, zapcore.ErrorLevel)
}

func TestSublogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("octree").Sublogger("relocate")
	sub.Debugw("rollback", "moved", 3)

	test.That(t, logs.FilterMessage("rollback").Len(), test.ShouldEqual, 1)
	entry := logs.FilterMessage("rollback").All()[0]
	test.That(t, entry.LoggerName, test.ShouldEqual, "octree.relocate")
	test.That(t, entry.ContextMap()["moved"], test.ShouldEqual, int64(3))
}

func TestUnpairedKey(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("msg", "lonely")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].ContextMap()["lonely"], test.ShouldNotBeNil)
}

func TestLevelFromString(t *testing.T) {
	level, err := LevelFromString("DEBUG")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, DEBUG)

	level, err = LevelFromString("warning")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)

	_, err = LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestGlobal(t *testing.T) {
	prev := Global()
	defer ReplaceGlobal(prev)
	test.That(t, prev, test.ShouldNotBeNil)

	logger, logs := NewObservedTestLogger(t)
	ReplaceGlobal(logger)
	Global().Sublogger("octree").Infow("installed", "points", 4)

	test.That(t, logs.FilterMessage("installed").Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].LoggerName, test.ShouldEqual, "octree")
}
