package core

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogModuleLogWritesAtExpectedLevel(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetLevel(logrus.DebugLevel)
	base.SetFormatter(&logrus.JSONFormatter{})

	mod := NewLogModule(logrus.NewEntry(base))
	ctx, mar := newTestExecutionContextWithArena(t)

	msgPtr, _ := mar.NewString("handler started")
	if _, err := mod.Invoke(ctx, "log.log", []Value{ValueI32(int32(logLevelWarning)), ValueI32(int32(msgPtr))}); err != nil {
		t.Fatalf("log.log failed: %v", err)
	}

	if !bytes.Contains(buf.Bytes(), []byte("handler started")) {
		t.Fatalf("expected log output to contain the message, got %q", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"level":"warning"`)) {
		t.Fatalf("expected log output at warning level, got %q", buf.String())
	}
}
