package core

// Handler Entry Points (spec §4.6): the three externally invoked entry
// points, one per event kind. Each follows the same six-step protocol;
// HandleLog/HandleCall/HandleBlock differ only in which record they marshal
// and which ABI variant that record's Marshaller method selects internally
// (core/marshal_records.go branches on ExecutionContext.AbiVersion, the
// caller-supplied api_version - not ApiVersion, which is the Version
// Registry's resolved feature set and unrelated to ABI layout selection).

// HandleLog implements handle_log(handler_name, transaction, log, params)
// (spec §4.6). The transaction and params are already embedded in l.
func (si *SandboxInstance) HandleLog(handlerName string, l EthereumLog) (*BlockState, error) {
	mar := NewMarshaller(si.ctx.Arena)
	l.Block = si.ctx.Block
	ptr, err := mar.NewLog(si.ctx.AbiVersion, l)
	if err != nil {
		return nil, &HandlerFailed{HandlerName: handlerName, Underlying: err}
	}
	return si.invoke(handlerName, ptr)
}

// HandleCall implements handle_call(handler_name, transaction, call,
// inputs, outputs) (spec §4.6). The transaction, inputs, and outputs are
// already embedded in c.
func (si *SandboxInstance) HandleCall(handlerName string, c EthereumCall) (*BlockState, error) {
	mar := NewMarshaller(si.ctx.Arena)
	c.Block = si.ctx.Block
	ptr, err := mar.NewCall(si.ctx.AbiVersion, c)
	if err != nil {
		return nil, &HandlerFailed{HandlerName: handlerName, Underlying: err}
	}
	return si.invoke(handlerName, ptr)
}

// HandleBlock implements handle_block(handler_name) (spec §4.6): the only
// entry point whose record is built entirely from the ExecutionContext's
// current block, with no additional caller-supplied inputs.
func (si *SandboxInstance) HandleBlock(handlerName string) (*BlockState, error) {
	mar := NewMarshaller(si.ctx.Arena)
	ptr, err := mar.NewBlock(si.ctx.Block)
	if err != nil {
		return nil, &HandlerFailed{HandlerName: handlerName, Underlying: err}
	}
	return si.invoke(handlerName, ptr)
}
