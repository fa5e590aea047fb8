package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ExecutionContext is the per-invocation object threaded through every host
// call (spec §3, §4.5, §6). It is confined to the single goroutine driving
// one SandboxInstance for its entire lifetime; nothing here is safe to share
// across instances.
type ExecutionContext struct {
	Block EthereumBlock

	// ApiVersion is the registry-resolved feature set (spec §4.7): the
	// highest registered version satisfying the caller's
	// VersionRequirement, gating optional behaviors like BasicOrdering.
	ApiVersion ApiVersion

	// AbiVersion is the caller-supplied api_version itself (spec §6: "an
	// attribute of the ExecutionContext provided by the caller... selects
	// ABI variants"). It is never resolved through the Version Registry:
	// the registry's only entries (1.0.0, 1.1.0) both sit above every ABI
	// threshold in spec §4.6, so resolving it would make the v1 record
	// layouts and the pre-0.0.4 ethereum.call signature behavior
	// unreachable. Record marshalling and host modules branch on this
	// field, not on ApiVersion.Version.
	AbiVersion Version

	HandlerTimeout time.Duration // zero means no timeout
	StartTime      time.Time
	RunningStart   bool

	BlockState *BlockState
	Metrics    *Metrics
	TraceID    uuid.UUID

	Arena *ArenaHeap

	mu             sync.Mutex
	checkpointHits uint64
}

// NewExecutionContext builds an ExecutionContext in its initial
// running-start state (spec §4.6 state machine: construction -> NotStarted,
// then run_start moves it to Started(running_start=true)).
func NewExecutionContext(block EthereumBlock, apiVersion ApiVersion, abiVersion Version, handlerTimeout time.Duration, arena *ArenaHeap, metrics *Metrics) *ExecutionContext {
	return &ExecutionContext{
		Block:          block,
		ApiVersion:     apiVersion,
		AbiVersion:     abiVersion,
		HandlerTimeout: handlerTimeout,
		RunningStart:   true,
		BlockState:     NewBlockState(),
		Metrics:        metrics,
		TraceID:        uuid.New(),
		Arena:          arena,
	}
}

// Begin records the handler-timeout clock's start time (spec §4.6 step 1:
// the clock starts at handler entry, before the guest's start export runs,
// so a gas() call during run_start sees a real elapsed time rather than a
// zero StartTime).
func (ec *ExecutionContext) Begin() {
	ec.StartTime = time.Now()
}

// Start transitions out of the running-start window (Started -> Ready in
// spec §4.6's state machine).
func (ec *ExecutionContext) Start() {
	ec.RunningStart = false
}

// EntityKey identifies one row of the staged entity cache.
type EntityKey struct {
	Entity string
	ID     string
}

// EntityOp is a pending mutation recorded against BlockState.entity_cache
// (spec §3: "entity_cache: mapping EntityKey -> EntityOp").
type EntityOp struct {
	Kind EntityOpKind
	Data []byte // nil for Remove
}

// EntityOpKind distinguishes a staged set from a staged remove.
type EntityOpKind int

const (
	EntityOpSet EntityOpKind = iota
	EntityOpRemove
)

// CreatedDataSource is one entry appended by the DataSource host module
// (spec §4.3, dataSource.create).
type CreatedDataSource struct {
	Name   string
	Params []byte
}

// BlockState accumulates a handler invocation's effects (spec §3): the
// staged entity cache and the list of dynamically created data sources.
// Created data sources are only ever appended; an entity-cache Set or
// Remove replaces whatever op was staged earlier for the same key.
type BlockState struct {
	mu                 sync.Mutex
	entityCache        map[EntityKey]EntityOp
	createdDataSources []CreatedDataSource
}

// NewBlockState returns an empty BlockState. It is always handed out and
// shared by pointer: BlockState embeds a sync.Mutex, so copying it (e.g.
// returning it by value from a handler entry point) would copy the lock
// out from under concurrent callers and fail go vet's copylocks check.
func NewBlockState() *BlockState {
	return &BlockState{entityCache: make(map[EntityKey]EntityOp)}
}

// Set stages an entity write. Callers must have already rejected this call
// under running_start (spec §4.3: "set/remove fail when running_start=true").
func (bs *BlockState) Set(key EntityKey, data []byte) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.entityCache[key] = EntityOp{Kind: EntityOpSet, Data: data}
}

// Remove stages an entity removal.
func (bs *BlockState) Remove(key EntityKey) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.entityCache[key] = EntityOp{Kind: EntityOpRemove}
}

// Get reads back a staged entity op, reflecting this invocation's own
// writes (spec §4.3's store.get reads through the in-progress cache).
func (bs *BlockState) Get(key EntityKey) (EntityOp, bool) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	op, ok := bs.entityCache[key]
	return op, ok
}

// AddCreatedDataSource appends a newly spawned data source.
func (bs *BlockState) AddCreatedDataSource(ds CreatedDataSource) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.createdDataSources = append(bs.createdDataSources, ds)
}

// CreatedDataSources returns a snapshot of all data sources created so far.
func (bs *BlockState) CreatedDataSources() []CreatedDataSource {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	out := make([]CreatedDataSource, len(bs.createdDataSources))
	copy(out, bs.createdDataSources)
	return out
}

// EntityCache returns a snapshot of the staged entity mutations.
func (bs *BlockState) EntityCache() map[EntityKey]EntityOp {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	out := make(map[EntityKey]EntityOp, len(bs.entityCache))
	for k, v := range bs.entityCache {
		out[k] = v
	}
	return out
}
