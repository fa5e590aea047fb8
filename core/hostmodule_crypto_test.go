package core

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestCryptoModuleKeccak256(t *testing.T) {
	mod := NewCryptoModule()
	ctx, mar := newTestExecutionContextWithArena(t)

	input := []byte("hello world")
	inputPtr, err := mar.NewBytes(input)
	if err != nil {
		t.Fatalf("NewBytes failed: %v", err)
	}

	result, err := mod.Invoke(ctx, "crypto.keccak256", []Value{ValueI32(int32(inputPtr))})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	digest, err := mar.GetBytes(result.Ptr())
	if err != nil {
		t.Fatalf("GetBytes failed: %v", err)
	}
	want := crypto.Keccak256(input)
	if len(digest) != len(want) {
		t.Fatalf("got digest length %d, want %d", len(digest), len(want))
	}
	for i := range want {
		if digest[i] != want[i] {
			t.Fatalf("digest mismatch at byte %d: got %x, want %x", i, digest, want)
		}
	}
}

func TestCryptoModuleUnknownFunction(t *testing.T) {
	mod := NewCryptoModule()
	ctx, _ := newTestExecutionContextWithArena(t)
	if _, err := mod.Invoke(ctx, "crypto.sha256", nil); err == nil {
		t.Fatalf("expected an error for an unknown function name")
	}
}
