package materialize

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// FromJSON builds a record from the members of a JSON object. Member names
// match fields the same way header columns do. Values of the wrong type are
// coerced from their text form where possible.
func FromJSON(obj gjson.Result, schema Schema) (Record, []CoercionWarning) {
	rec := ZeroRecord(schema)
	if !obj.IsObject() {
		return rec, nil
	}
	var keys []string
	var vals []gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		keys = append(keys, k.String())
		vals = append(vals, v)
		return true
	})
	cols := MatchColumns(keys, schema)

	var warns []CoercionWarning
	for i, f := range schema {
		if cols[i] < 0 {
			continue
		}
		v := vals[cols[i]]
		val, err := fromJSONValue(v, f.Kind)
		if err != nil {
			warns = append(warns, CoercionWarning{Row: 1, Field: f.Name, Value: v.Raw, Err: err})
			val = Zero(f.Kind)
		}
		rec[i] = val
	}
	return rec, warns
}

func fromJSONValue(v gjson.Result, k Kind) (any, error) {
	switch v.Type {
	case gjson.Null:
		return Zero(k), nil
	case gjson.Number:
		switch k {
		case KindFloat:
			return v.Float(), nil
		case KindInt:
			if v.Float() != float64(v.Int()) {
				return int64(0), fmt.Errorf("not an integer: %s", v.Raw)
			}
			return v.Int(), nil
		case KindUint:
			if v.Float() < 0 || v.Float() != float64(v.Uint()) {
				return uint64(0), fmt.Errorf("not an unsigned integer: %s", v.Raw)
			}
			return v.Uint(), nil
		}
	case gjson.True, gjson.False:
		if k == KindBool {
			return v.Bool(), nil
		}
	case gjson.JSON:
		if k != KindString {
			return Zero(k), fmt.Errorf("unexpected %s for %s field", strings.TrimSpace(v.Raw)[:1], k)
		}
		return v.Raw, nil
	}
	return Coerce(v.String(), k)
}
