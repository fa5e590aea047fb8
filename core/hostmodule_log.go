package core

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LogModule implements log.log, the guest-visible logging import named in
// spec §6 — distinct from the engine's own internal logging, which never
// goes through the dispatch table.
type LogModule struct {
	Log *logrus.Entry
}

func NewLogModule(log *logrus.Entry) *LogModule {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LogModule{Log: log}
}

func (m *LogModule) Name() string { return "log" }

func (m *LogModule) Functions() []HostFunction {
	return []HostFunction{
		{Name: "log.log", Params: []ValueKind{KindI32, KindI32}, Results: nil},
	}
}

// log level tags written by the guest as the first argument.
const (
	logLevelCritical uint32 = iota
	logLevelError
	logLevelWarning
	logLevelInfo
	logLevelDebug
)

func (m *LogModule) Invoke(ctx *ExecutionContext, functionName string, args []Value) (*Value, error) {
	if functionName != "log.log" {
		return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("unknown function")}
	}
	mar := NewMarshaller(ctx.Arena)
	level := uint32(args[0].I32())
	msg, err := mar.GetString(args[1].Ptr())
	if err != nil {
		return nil, err
	}

	entry := m.Log.WithField("trace_id", ctx.TraceID)
	switch level {
	case logLevelCritical, logLevelError:
		entry.Error(msg)
	case logLevelWarning:
		entry.Warn(msg)
	case logLevelDebug:
		entry.Debug(msg)
	default:
		entry.Info(msg)
	}
	return nil, nil
}
