package core

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wasmerio/wasmer-go/wasmer"
)

// ValidModule is the opaque verified bytecode artifact spec §6 names:
// compiled guest bytes plus the fully-qualified import names it declares.
// Verification (well-formedness, the actual wasmer.NewModule compile step)
// happens once, at NewSandboxInstance time; a ValidModule carries no
// wasmer-specific state of its own so it can be constructed and cached
// ahead of instantiation.
type ValidModule struct {
	Code        []byte
	ImportNames []string
}

// InstanceConfig bundles everything NewSandboxInstance needs beyond the
// ValidModule itself: the block the invocation runs against, the Version
// Registry requirement, the ABI version, the handler timeout, any custom
// host modules, and
// the out-of-scope collaborators the supplemented built-ins depend on
// (spec SPEC_FULL §4.3).
type InstanceConfig struct {
	Block EthereumBlock

	// VersionRequirement resolves through the Version Registry to the
	// feature set (ApiVersion.features, e.g. BasicOrdering) this instance
	// runs with - it has no bearing on ABI record layout.
	VersionRequirement VersionRequirement

	// AbiVersion is the caller-supplied api_version (spec §6) that selects
	// ABI variants: the v1/v2-transaction layout, the v1/v3-call layout,
	// and whether ethereum.call's signature argument is honored. It is
	// used as-is, never resolved through the Version Registry.
	AbiVersion Version

	HandlerTimeout time.Duration
	CustomHostModules  []HostModule
	IpfsFetcher        IpfsFetcher
	ContractCaller     ContractCaller
	Log                *logrus.Entry
	Metrics            *Metrics
}

// InstanceState is the single-use state machine of spec §4.6:
// NotStarted -> Started(running_start=true) -> Ready -> Invoking -> Done.
type InstanceState int

const (
	StateNotStarted InstanceState = iota
	StateStarted
	StateReady
	StateInvoking
	StateDone
)

// SandboxInstance is a single-use, fully-instantiated guest module (spec
// §3). It exclusively owns its linear memory, ArenaHeap, and
// ExecutionContext; invoking a second handler on it is a programming error
// (ErrInstanceConsumed).
type SandboxInstance struct {
	instance *wasmer.Instance
	dispatch *DispatchTable
	ctx      *ExecutionContext

	mu    sync.Mutex
	state InstanceState
}

// NewSandboxInstance compiles valid.Code, resolves its imports against the
// builtin and custom host modules (spec §4.4), links the sandbox-library
// instance, and binds the ArenaHeap to the guest's real memory and
// allocator export. The returned instance is in state NotStarted; call
// RunStart before invoking a handler.
func NewSandboxInstance(valid *ValidModule, cfg InstanceConfig) (*SandboxInstance, error) {
	apiVersion, err := NewApiVersion(cfg.VersionRequirement)
	if err != nil {
		return nil, &InstantiationError{Reason: err}
	}

	builtin := []HostModule{
		NewTypeConversionModule(),
		NewStoreModule(),
		NewJsonModule(),
		NewCryptoModule(),
		NewIpfsModule(cfg.IpfsFetcher, cfg.Log),
		NewDataSourceModule(),
		NewEthereumModule(cfg.ContractCaller),
		NewLogModule(cfg.Log),
	}

	dispatch, err := NewDispatchTable(builtin, cfg.CustomHostModules, valid.ImportNames)
	if err != nil {
		return nil, err
	}

	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)
	mod, err := wasmer.NewModule(store, valid.Code)
	if err != nil {
		return nil, &InstantiationError{Reason: err}
	}

	arena := &ArenaHeap{reallocs: cfg.Metrics.ArenaCounter()}
	ctx := NewExecutionContext(cfg.Block, apiVersion, cfg.AbiVersion, cfg.HandlerTimeout, arena, cfg.Metrics)

	imports := buildImportObject(store, dispatch, ctx)

	inst, err := wasmer.NewInstance(mod, imports)
	if err != nil {
		return nil, &InstantiationError{Reason: err}
	}

	mem, err := inst.Exports.GetMemory("memory")
	if err != nil {
		return nil, &InstantiationError{Reason: ErrMissingMemoryExport}
	}
	arena.mem = mem

	allocateFn, err := inst.Exports.GetFunction("memory.allocate")
	if err != nil {
		return nil, &InstantiationError{Reason: ErrMissingMemoryExport}
	}
	arena.allocate = func(size uint32) (uint32, error) {
		result, err := allocateFn(int32(size))
		if err != nil {
			return 0, err
		}
		return uint32(result.(int32)), nil
	}

	return &SandboxInstance{instance: inst, dispatch: dispatch, ctx: ctx, state: StateNotStarted}, nil
}

// RunStart transitions NotStarted -> Started (running_start=true), invoking
// the guest's start export if it declares one, then immediately to Ready
// (running_start=false), starting the handler-timeout clock.
func (si *SandboxInstance) RunStart(startExport string) error {
	si.mu.Lock()
	defer si.mu.Unlock()
	if si.state != StateNotStarted {
		return ErrInstanceConsumed
	}
	si.state = StateStarted
	si.ctx.Begin()

	if startExport != "" {
		fn, err := si.instance.Exports.GetFunction(startExport)
		if err == nil {
			if _, err := fn(); err != nil {
				return translateTrap(err)
			}
		}
	}

	si.ctx.Start()
	si.state = StateReady
	return nil
}

// invoke is the shared tail of the three handler entry points (spec §4.6
// step 5-6): call the named export with one pointer argument, harvest
// BlockState on success, consume the instance either way.
func (si *SandboxInstance) invoke(handlerName string, argPtr GuestPtr) (*BlockState, error) {
	si.mu.Lock()
	if si.state != StateReady {
		si.mu.Unlock()
		return nil, ErrInstanceConsumed
	}
	si.state = StateInvoking
	si.mu.Unlock()

	defer func() {
		si.mu.Lock()
		si.state = StateDone
		si.mu.Unlock()
	}()

	fn, err := si.instance.Exports.GetFunction(handlerName)
	if err != nil {
		return nil, &HandlerFailed{HandlerName: handlerName, Underlying: &InstantiationError{Reason: err}}
	}

	start := time.Now()
	_, err = fn(int32(argPtr))
	if si.ctx.Metrics != nil {
		si.ctx.Metrics.HandlerDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, &HandlerFailed{HandlerName: handlerName, Underlying: translateTrap(err)}
	}

	return si.ctx.BlockState, nil
}

// translateTrap maps a wasmer trap's underlying error to one of the
// host-originated error kinds in spec §7 when possible, or wraps the raw
// trap description otherwise.
func translateTrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrHandlerTimeout) {
		return ErrHandlerTimeout
	}
	var aborted *MappingAborted
	if errors.As(err, &aborted) {
		return aborted
	}
	var memAccess *SandboxMemoryAccess
	if errors.As(err, &memAccess) {
		return memAccess
	}
	return err
}

func buildImportObject(store *wasmer.Store, dispatch *DispatchTable, ctx *ExecutionContext) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	externs := make(map[string]wasmer.IntoExtern, dispatch.Len())

	i32 := wasmer.ValueKind(wasmer.I32)
	externs["abort"] = wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(i32, i32, i32, i32),
			wasmer.NewValueTypes(),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			mar := NewMarshaller(ctx.Arena)
			message, file := "", ""
			if p := GuestPtr(args[0].I32()); p != 0 {
				message, _ = mar.GetString(p)
			}
			if p := GuestPtr(args[1].I32()); p != 0 {
				file, _ = mar.GetString(p)
			}
			return nil, Abort(message, file, uint32(args[2].I32()), uint32(args[3].I32()))
		},
	)

	externs["gas"] = wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(), wasmer.NewValueTypes()),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			return nil, Gas(ctx)
		},
	)

	for idx := 2; idx < dispatch.Len(); idx++ {
		module, fnName, ok := dispatch.Lookup(idx)
		if !ok {
			continue
		}
		fn, _ := dispatch.Signature(idx)
		externs[fnName] = wasmer.NewFunction(
			store,
			wasmer.NewFunctionType(wasmer.NewValueTypes(kindsToWasmer(fn.Params)...), wasmer.NewValueTypes(kindsToWasmer(fn.Results)...)),
			func(module HostModule, fnName string) func([]wasmer.Value) ([]wasmer.Value, error) {
				return func(args []wasmer.Value) ([]wasmer.Value, error) {
					ctx.Metrics.ObserveHostCall(module.Name(), fnName)
					result, err := module.Invoke(ctx, fnName, fromWasmerValues(args))
					if err != nil {
						return nil, &HostImportError{FunctionName: fnName, Err: err}
					}
					if result == nil {
						return nil, nil
					}
					return []wasmer.Value{toWasmerValue(*result)}, nil
				}
			}(module, fnName),
		)
	}

	imports.Register("env", externs)
	return imports
}

func kindsToWasmer(kinds []ValueKind) []wasmer.ValueKind {
	out := make([]wasmer.ValueKind, len(kinds))
	for i, k := range kinds {
		out[i] = toWasmerKind(k)
	}
	return out
}

func toWasmerKind(k ValueKind) wasmer.ValueKind {
	switch k {
	case KindI64:
		return wasmer.ValueKind(wasmer.I64)
	case KindF32:
		return wasmer.ValueKind(wasmer.F32)
	case KindF64:
		return wasmer.ValueKind(wasmer.F64)
	default:
		return wasmer.ValueKind(wasmer.I32)
	}
}

func fromWasmerValues(args []wasmer.Value) []Value {
	out := make([]Value, len(args))
	for i, a := range args {
		switch a.Kind() {
		case wasmer.I64:
			out[i] = ValueI64(a.I64())
		case wasmer.F32:
			out[i] = ValueF32(a.F32())
		case wasmer.F64:
			out[i] = ValueF64(a.F64())
		default:
			out[i] = ValueI32(a.I32())
		}
	}
	return out
}

func toWasmerValue(v Value) wasmer.Value {
	switch v.Kind {
	case KindI64:
		return wasmer.NewI64(v.I64())
	case KindF32:
		return wasmer.NewF32(v.F32())
	case KindF64:
		return wasmer.NewF64(v.F64())
	default:
		return wasmer.NewI32(v.I32())
	}
}
