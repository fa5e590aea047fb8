package core

// Import Resolver & Dispatch Table (spec §4.4).
//
// Built once per instantiation by a linear scan over the declared host
// modules (acceptable: it runs once, never on the hot path). The result is
// a dense index -> (host module, function name) table so that run-time
// dispatch (DispatchTable.Lookup) is O(1), matching spec §9's guidance to
// avoid reflection and keep the hot path a plain array index.

const (
	abortFuncIndex = 0
	gasFuncIndex   = 1
)

type dispatchEntry struct {
	module   HostModule
	funcName string
	fn       HostFunction
}

// DispatchTable is the index -> (host_module, function_name) map described
// in spec §3/§4.4. Indices 0 and 1 are always reserved for abort and gas.
type DispatchTable struct {
	byIndex []dispatchEntry   // byIndex[0], byIndex[1] are zero-value placeholders
	byName  map[string]int
}

// NewDispatchTable assigns a dense index to every function exposed by the
// built-in host modules (in order) followed by the custom host modules (in
// order), each module's functions in declaration order, then resolves
// importNames against that table. It fails with UnresolvedImport on the
// first import name that matches nothing.
func NewDispatchTable(builtin, custom []HostModule, importNames []string) (*DispatchTable, error) {
	dt := &DispatchTable{
		byIndex: make([]dispatchEntry, 2, 2+estimateFunctionCount(builtin, custom)),
		byName:  map[string]int{"abort": abortFuncIndex, "gas": gasFuncIndex},
	}

	appendModules := func(modules []HostModule) {
		for _, m := range modules {
			for _, fn := range m.Functions() {
				idx := len(dt.byIndex)
				dt.byIndex = append(dt.byIndex, dispatchEntry{module: m, funcName: fn.Name, fn: fn})
				// First declared function wins on a name clash, matching the
				// "first name-match" rule in spec §4.4 step 3.
				if _, exists := dt.byName[fn.Name]; !exists {
					dt.byName[fn.Name] = idx
				}
			}
		}
	}
	appendModules(builtin)
	appendModules(custom)

	for _, name := range importNames {
		if _, ok := dt.byName[name]; !ok {
			return nil, &InstantiationError{Reason: UnresolvedImport(name)}
		}
	}

	return dt, nil
}

func estimateFunctionCount(groups ...[]HostModule) int {
	n := 0
	for _, modules := range groups {
		for _, m := range modules {
			n += len(m.Functions())
		}
	}
	return n
}

// IndexOf returns the dispatch index assigned to a fully-qualified import
// name, or false if it was never resolved.
func (dt *DispatchTable) IndexOf(name string) (int, bool) {
	idx, ok := dt.byName[name]
	return idx, ok
}

// Lookup returns the host module and function name bound to a run-time
// dispatch index. It never matches index 0 or 1 (abort/gas), which are
// handled directly by the instance.
func (dt *DispatchTable) Lookup(index int) (HostModule, string, bool) {
	if index < 2 || index >= len(dt.byIndex) {
		return nil, "", false
	}
	e := dt.byIndex[index]
	if e.module == nil {
		return nil, "", false
	}
	return e.module, e.funcName, true
}

// Signature returns the declared parameter/result shape for a dispatch
// index, used to build the wasmer import's FunctionType.
func (dt *DispatchTable) Signature(index int) (HostFunction, bool) {
	if index < 2 || index >= len(dt.byIndex) {
		return HostFunction{}, false
	}
	e := dt.byIndex[index]
	if e.module == nil {
		return HostFunction{}, false
	}
	return e.fn, true
}

// Len reports the number of resolvable import slots, including the two
// reserved indices.
func (dt *DispatchTable) Len() int { return len(dt.byIndex) }
