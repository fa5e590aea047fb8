package core

import (
	"encoding/json"
	"fmt"
)

// JsonModule parses guest byte arrays as JSON into the tagged-union
// JsonValue ABI shape (spec SPEC_FULL §4.3; reconstructed from the
// commented-out json_from_bytes/json_try_from_bytes host functions in
// original_source/runtime/wasm/src/module/mod.rs).
type JsonModule struct{}

func NewJsonModule() *JsonModule { return &JsonModule{} }

func (m *JsonModule) Name() string { return "json" }

func (m *JsonModule) Functions() []HostFunction {
	return []HostFunction{
		{Name: "json.fromBytes", Params: []ValueKind{KindI32}, Results: []ValueKind{KindI32}},
		{Name: "json.try_fromBytes", Params: []ValueKind{KindI32}, Results: []ValueKind{KindI32}},
	}
}

// JsonValue tags for the union written to sandbox memory.
const (
	jsonTagNull uint32 = iota
	jsonTagBool
	jsonTagNumber
	jsonTagString
	jsonTagArray
	jsonTagObject
)

func (m *JsonModule) Invoke(ctx *ExecutionContext, functionName string, args []Value) (*Value, error) {
	mar := NewMarshaller(ctx.Arena)
	raw, err := mar.GetBytes(args[0].Ptr())
	if err != nil {
		return nil, err
	}

	var decoded interface{}
	parseErr := json.Unmarshal(raw, &decoded)

	switch functionName {
	case "json.fromBytes":
		if parseErr != nil {
			return nil, &HostImportError{FunctionName: functionName, Err: parseErr}
		}
		ptr, err := writeJSONValue(mar, decoded)
		return ptrValue(ptr, err)

	case "json.try_fromBytes":
		// Result-shaped union: tag 0 = Ok(payload), tag 1 = Err(message).
		if parseErr != nil {
			msgPtr, err := mar.NewString(parseErr.Error())
			if err != nil {
				return nil, err
			}
			ptr, err := mar.NewUnion(Union{Tag: 1, Payload: msgPtr})
			return ptrValue(ptr, err)
		}
		valuePtr, err := writeJSONValue(mar, decoded)
		if err != nil {
			return nil, err
		}
		ptr, err := mar.NewUnion(Union{Tag: 0, Payload: valuePtr})
		return ptrValue(ptr, err)
	}
	return nil, &HostImportError{FunctionName: functionName, Err: fmt.Errorf("unknown function")}
}

// writeJSONValue recursively marshals a decoded JSON value into the tagged
// JsonValue union layout: [u32 tag][payload] where payload shape depends on
// tag (null: none; bool: NewBytes of a single 0/1 byte; number: NewString
// of its decimal text; string: NewString; array: NewPtrArray of nested
// unions; object: NewOrderedMap of string keys to nested unions).
func writeJSONValue(mar *Marshaller, v interface{}) (GuestPtr, error) {
	switch val := v.(type) {
	case nil:
		return mar.NewUnion(Union{Tag: jsonTagNull})
	case bool:
		b := byte(0)
		if val {
			b = 1
		}
		payload, err := mar.NewBytes([]byte{b})
		if err != nil {
			return 0, err
		}
		return mar.NewUnion(Union{Tag: jsonTagBool, Payload: payload})
	case float64:
		payload, err := mar.NewString(fmt.Sprintf("%v", val))
		if err != nil {
			return 0, err
		}
		return mar.NewUnion(Union{Tag: jsonTagNumber, Payload: payload})
	case string:
		payload, err := mar.NewString(val)
		if err != nil {
			return 0, err
		}
		return mar.NewUnion(Union{Tag: jsonTagString, Payload: payload})
	case []interface{}:
		items := make([]GuestPtr, len(val))
		for i, elem := range val {
			ptr, err := writeJSONValue(mar, elem)
			if err != nil {
				return 0, err
			}
			items[i] = ptr
		}
		payload, err := mar.NewPtrArray(items)
		if err != nil {
			return 0, err
		}
		return mar.NewUnion(Union{Tag: jsonTagArray, Payload: payload})
	case map[string]interface{}:
		keys := make([]GuestPtr, 0, len(val))
		values := make([]GuestPtr, 0, len(val))
		for k, elem := range val {
			kPtr, err := mar.NewString(k)
			if err != nil {
				return 0, err
			}
			vPtr, err := writeJSONValue(mar, elem)
			if err != nil {
				return 0, err
			}
			keys = append(keys, kPtr)
			values = append(values, vPtr)
		}
		payload, err := mar.NewOrderedMap(keys, values)
		if err != nil {
			return 0, err
		}
		return mar.NewUnion(Union{Tag: jsonTagObject, Payload: payload})
	}
	return 0, fmt.Errorf("unsupported decoded JSON type %T", v)
}
