package core

import (
	"errors"
	"testing"
)

func newTestExecutionContextWithArena(t *testing.T) (*ExecutionContext, *Marshaller) {
	t.Helper()
	mem := &fakeGuestMemory{buf: make([]byte, 0)}
	alloc, _ := newFakeAllocator(mem)
	arena := NewArenaHeap(mem, alloc, nil)
	av := MustApiVersion(VersionRequirement{Min: Version{1, 0, 0}})
	ctx := NewExecutionContext(EthereumBlock{}, av, av.Version, 0, arena, nil)
	return ctx, NewMarshaller(arena)
}

func TestStoreModuleSetGetRoundTrip(t *testing.T) {
	store := NewStoreModule()
	ctx, mar := newTestExecutionContextWithArena(t)
	ctx.Start() // leaves running_start=false

	entityPtr, _ := mar.NewString("Token")
	idPtr, _ := mar.NewString("0x1")
	dataPtr, _ := mar.NewBytes([]byte("payload"))

	if _, err := store.Invoke(ctx, "store.set", []Value{ValueI32(int32(entityPtr)), ValueI32(int32(idPtr)), ValueI32(int32(dataPtr))}); err != nil {
		t.Fatalf("store.set failed: %v", err)
	}

	entityPtr2, _ := mar.NewString("Token")
	idPtr2, _ := mar.NewString("0x1")
	result, err := store.Invoke(ctx, "store.get", []Value{ValueI32(int32(entityPtr2)), ValueI32(int32(idPtr2))})
	if err != nil {
		t.Fatalf("store.get failed: %v", err)
	}
	got, err := mar.GetBytes(result.Ptr())
	if err != nil {
		t.Fatalf("GetBytes failed: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("got %q, want %q", got, "payload")
	}
}

// TestStoreModuleSetForbiddenDuringRunningStart covers invariant 7 (spec
// §8): store.set/remove must fail while running_start is true.
func TestStoreModuleSetForbiddenDuringRunningStart(t *testing.T) {
	store := NewStoreModule()
	ctx, mar := newTestExecutionContextWithArena(t)
	// ctx.RunningStart defaults true until Start() is called.

	entityPtr, _ := mar.NewString("Token")
	idPtr, _ := mar.NewString("0x1")
	dataPtr, _ := mar.NewBytes([]byte("payload"))

	_, err := store.Invoke(ctx, "store.set", []Value{ValueI32(int32(entityPtr)), ValueI32(int32(idPtr)), ValueI32(int32(dataPtr))})
	var hostErr *HostImportError
	if !errors.As(err, &hostErr) {
		t.Fatalf("expected *HostImportError, got %v", err)
	}
}

func TestStoreModuleRemove(t *testing.T) {
	store := NewStoreModule()
	ctx, mar := newTestExecutionContextWithArena(t)
	ctx.Start()

	entityPtr, _ := mar.NewString("Token")
	idPtr, _ := mar.NewString("0x1")
	dataPtr, _ := mar.NewBytes([]byte("payload"))
	if _, err := store.Invoke(ctx, "store.set", []Value{ValueI32(int32(entityPtr)), ValueI32(int32(idPtr)), ValueI32(int32(dataPtr))}); err != nil {
		t.Fatalf("store.set failed: %v", err)
	}

	entityPtr2, _ := mar.NewString("Token")
	idPtr2, _ := mar.NewString("0x1")
	if _, err := store.Invoke(ctx, "store.remove", []Value{ValueI32(int32(entityPtr2)), ValueI32(int32(idPtr2))}); err != nil {
		t.Fatalf("store.remove failed: %v", err)
	}

	entityPtr3, _ := mar.NewString("Token")
	idPtr3, _ := mar.NewString("0x1")
	result, err := store.Invoke(ctx, "store.get", []Value{ValueI32(int32(entityPtr3)), ValueI32(int32(idPtr3))})
	if err != nil {
		t.Fatalf("store.get failed: %v", err)
	}
	if result.I32() != 0 {
		t.Fatalf("expected null (0) result for a removed entity, got %d", result.I32())
	}
}
