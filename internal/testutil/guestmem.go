package testutil

import "path/filepath"

// GuestModuleWAT is literal WAT text for a minimal guest module exercising
// the sandbox engine's required exports: linear memory, a bump-style
// memory.allocate, and one handler export per event kind, each of which
// takes the marshalled record pointer, calls gas() once and returns
// nothing, plus an empty runStart export. Built the same way
// the teacher's core/contract_vm_test.go compiled literal .wat fixtures,
// via Sandbox.WriteFile + wat2wasm.
const GuestModuleWAT = `(module
  (import "env" "abort" (func $abort (param i32 i32 i32 i32)))
  (import "env" "gas" (func $gas))
  (memory (export "memory") 2)
  (global $heap_top (mut i32) (i32.const 1024))
  (func (export "memory.allocate") (param $size i32) (result i32)
    (local $ptr i32)
    (local.set $ptr (global.get $heap_top))
    (global.set $heap_top (i32.add (global.get $heap_top) (local.get $size)))
    (local.get $ptr))
  (func (export "handleLog") (param $ptr i32)
    (call $gas))
  (func (export "handleCall") (param $ptr i32)
    (call $gas))
  (func (export "handleBlock") (param $ptr i32)
    (call $gas))
  (func (export "runStart")))
`

// WriteGuestModuleWAT writes GuestModuleWAT into sb and returns its path,
// ready to be compiled with core.CompileWAT.
func WriteGuestModuleWAT(sb *Sandbox) (string, error) {
	if err := sb.WriteFile("guest.wat", []byte(GuestModuleWAT), 0o600); err != nil {
		return "", err
	}
	return sb.Path("guest.wat"), nil
}

// OutDir returns the directory WriteGuestModuleWAT's companion compiled
// artifact should be written to: the sandbox root itself.
func OutDir(sb *Sandbox) string {
	return filepath.Clean(sb.Root)
}
