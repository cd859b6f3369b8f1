package fieldpath

// Value is the outcome of resolving a field: either absent, or present with
// a scalar or a list of values. Only nil and empty lists are absent; zero,
// false and "" are present.
type Value struct {
	raw     interface{}
	present bool
}

// Absent returns the absent value.
func Absent() Value {
	return Value{}
}

// Of wraps a resolved raw value, mapping nil and empty lists to Absent.
func Of(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Absent()
	case []interface{}:
		if len(t) == 0 {
			return Absent()
		}
	case []string:
		if len(t) == 0 {
			return Absent()
		}
	}
	return Value{raw: v, present: true}
}

func (v Value) IsAbsent() bool {
	return !v.present
}

// Raw returns the resolved value as found, or nil when absent.
func (v Value) Raw() interface{} {
	return v.raw
}

// Values normalizes the value into an ordered list: a list is returned
// element by element, a scalar as a singleton, absent as nil.
func (v Value) Values() []interface{} {
	if !v.present {
		return nil
	}
	switch t := v.raw.(type) {
	case []interface{}:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []interface{}{v.raw}
	}
}

// First returns the first value of the list form.
func (v Value) First() (interface{}, bool) {
	vals := v.Values()
	if len(vals) == 0 {
		return nil, false
	}
	return vals[0], true
}
