package core

import (
	"fmt"
	"time"
)

// Built-in Entry Points (spec §4.5): the two reserved dispatch slots, abort
// (index 0) and gas (index 1), handled directly by the instance rather than
// through the HostModule/DispatchTable machinery since they exist before
// any host module is consulted.

// CheckpointInterval is the sampling rate for gas()'s wall-clock check
// (spec §4.5, §5: "trades timeout precision for overhead").
const CheckpointInterval uint64 = 100

// Gas implements the gas() cooperative-timeout checkpoint. It must be
// called once per guest loop back-edge/call the sandbox compiler inserts;
// only every CheckpointInterval-th call actually consults the clock.
func Gas(ctx *ExecutionContext) error {
	ctx.mu.Lock()
	ctx.checkpointHits++
	hits := ctx.checkpointHits
	ctx.mu.Unlock()

	if hits%CheckpointInterval != 0 {
		return nil
	}
	if ctx.HandlerTimeout <= 0 {
		return nil
	}
	if time.Since(ctx.StartTime) > ctx.HandlerTimeout {
		return ErrHandlerTimeout
	}
	return nil
}

// Abort implements the abort() import: it always fails, formatting a
// location and message from optionally-absent strings/coordinates exactly
// per spec §4.5 and the S1/S2 scenarios in §8.
//
//   S1: Abort("", "", 0, 0)      -> location "an unknown location", message "no message"
//   S2: Abort("bad", "m.ts", 12, 4) -> location "m.ts, line 12, column 4", message "message: bad"
func Abort(message, file string, line, column uint32) error {
	location := "an unknown location"
	if file != "" || line != 0 || column != 0 {
		location = fmt.Sprintf("%s, line %d, column %d", file, line, column)
	}
	msg := "no message"
	if message != "" {
		msg = fmt.Sprintf("message: %s", message)
	}
	return &MappingAborted{Location: location, Message: msg}
}
