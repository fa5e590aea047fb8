package core

import "fmt"

// StoreModule is the second built-in host module (spec §4.3): get/set/remove
// against the ExecutionContext's BlockState entity cache. set and remove
// fail while running_start=true (spec §3, invariant 7 in §8).
type StoreModule struct{}

func NewStoreModule() *StoreModule { return &StoreModule{} }

func (m *StoreModule) Name() string { return "store" }

func (m *StoreModule) Functions() []HostFunction {
	return []HostFunction{
		{Name: "store.get", Params: []ValueKind{KindI32, KindI32}, Results: []ValueKind{KindI32}},
		{Name: "store.set", Params: []ValueKind{KindI32, KindI32, KindI32}, Results: nil},
		{Name: "store.remove", Params: []ValueKind{KindI32, KindI32}, Results: nil},
	}
}

func (m *StoreModule) Invoke(ctx *ExecutionContext, functionName string, args []Value) (*Value, error) {
	mar := NewMarshaller(ctx.Arena)

	switch functionName {
	case "store.get":
		entity, id, err := readEntityKey(mar, args[0].Ptr(), args[1].Ptr())
		if err != nil {
			return nil, err
		}
		op, ok := ctx.BlockState.Get(EntityKey{Entity: entity, ID: id})
		if !ok || op.Kind == EntityOpRemove {
			v := ValueI32(0) // null sandbox value: entity absent
			return &v, nil
		}
		ptr, err := mar.NewBytes(op.Data)
		if err != nil {
			return nil, err
		}
		v := ValueI32(int32(ptr))
		return &v, nil

	case "store.set":
		if ctx.RunningStart {
			return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("store.set forbidden while running_start=true")}
		}
		entity, id, err := readEntityKey(mar, args[0].Ptr(), args[1].Ptr())
		if err != nil {
			return nil, err
		}
		data, err := mar.GetBytes(args[2].Ptr())
		if err != nil {
			return nil, err
		}
		ctx.BlockState.Set(EntityKey{Entity: entity, ID: id}, data)
		return nil, nil

	case "store.remove":
		if ctx.RunningStart {
			return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("store.remove forbidden while running_start=true")}
		}
		entity, id, err := readEntityKey(mar, args[0].Ptr(), args[1].Ptr())
		if err != nil {
			return nil, err
		}
		ctx.BlockState.Remove(EntityKey{Entity: entity, ID: id})
		return nil, nil
	}
	return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("unknown function")}
}

func readEntityKey(mar *Marshaller, entityPtr, idPtr GuestPtr) (entity, id string, err error) {
	entity, err = mar.GetString(entityPtr)
	if err != nil {
		return "", "", err
	}
	id, err = mar.GetString(idPtr)
	if err != nil {
		return "", "", err
	}
	return entity, id, nil
}
