package core

import "fmt"

// DataSourceModule implements dataSource.create (spec SPEC_FULL §4.3): pure
// bookkeeping against BlockState.created_data_sources, no I/O.
type DataSourceModule struct{}

func NewDataSourceModule() *DataSourceModule { return &DataSourceModule{} }

func (m *DataSourceModule) Name() string { return "dataSource" }

func (m *DataSourceModule) Functions() []HostFunction {
	return []HostFunction{
		{Name: "dataSource.create", Params: []ValueKind{KindI32, KindI32}, Results: nil},
	}
}

func (m *DataSourceModule) Invoke(ctx *ExecutionContext, functionName string, args []Value) (*Value, error) {
	if functionName != "dataSource.create" {
		return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("unknown function")}
	}
	mar := NewMarshaller(ctx.Arena)
	name, err := mar.GetString(args[0].Ptr())
	if err != nil {
		return nil, err
	}
	params, err := mar.GetBytes(args[1].Ptr())
	if err != nil {
		return nil, err
	}
	ctx.BlockState.AddCreatedDataSource(CreatedDataSource{Name: name, Params: params})
	return nil, nil
}
