package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

// defaultKeySerializer writes keys of the form "<entity>:<arg>[:<arg>...]",
// e.g. "cart:u1" or `products:{"page":1}`. Structs and maps are written as
// JSON when they can be, which keeps filter keys readable in logs.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer returns the serializer used for every storefront key.
func NewDefaultKeySerializer() KeySerializer {
	return defaultKeySerializer{}
}

func (defaultKeySerializer) SerializeKey(entity string, args ...any) string {
	var b strings.Builder
	b.WriteString(entity)
	for _, arg := range args {
		b.WriteString(KeySeparator)
		writeArg(&b, arg)
	}
	return b.String()
}

func writeArg(b *strings.Builder, v any) {
	if v == nil {
		b.WriteString("nil")
		return
	}

	rv := reflect.ValueOf(v)
	kind := rv.Kind()

	if s, ok := v.(fmt.Stringer); ok && !(kind == reflect.Ptr && rv.IsNil()) {
		b.WriteString(s.String())
		return
	}

	switch kind {
	case reflect.String:
		b.WriteString(rv.String())
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		fmt.Fprint(b, v)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			b.WriteString("nil")
			return
		}
		writeArg(b, rv.Elem().Interface())
	case reflect.Func, reflect.Chan:
		// addresses only hold within one process
		fmt.Fprintf(b, "%s:%p", strings.ToLower(kind.String()), v)
	case reflect.Slice:
		if rv.IsNil() {
			b.WriteString("slice:nil")
			return
		}
		writeList(b, "slice", rv)
	case reflect.Array:
		writeList(b, "array", rv)
	case reflect.Map:
		if rv.IsNil() {
			b.WriteString("map:nil")
			return
		}
		if !writeJSON(b, v) {
			writePairs(b, rv)
		}
	case reflect.Struct:
		if !writeJSON(b, v) {
			writeFields(b, rv)
		}
	default:
		if !writeJSON(b, v) {
			b.WriteString("unkeyable:" + rv.Type().String())
		}
	}
}

func writeJSON(b *strings.Builder, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	b.Write(data)
	return true
}

func writeList(b *strings.Builder, label string, rv reflect.Value) {
	n := rv.Len()
	fmt.Fprintf(b, "%s[%d]:{", label, n)
	for i := range n {
		if i > 0 {
			b.WriteByte(',')
		}
		writeArg(b, rv.Index(i).Interface())
	}
	b.WriteByte('}')
}

// writePairs covers maps JSON rejects. Pairs are sorted so the key does not
// depend on map iteration order.
func writePairs(b *strings.Builder, rv reflect.Value) {
	pairs := make([]string, 0, rv.Len())
	for it := rv.MapRange(); it.Next(); {
		var pair strings.Builder
		writeArg(&pair, it.Key().Interface())
		pair.WriteByte('=')
		writeArg(&pair, it.Value().Interface())
		pairs = append(pairs, pair.String())
	}
	slices.Sort(pairs)
	fmt.Fprintf(b, "map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

// writeFields covers structs JSON rejects, such as ones holding a func.
func writeFields(b *strings.Builder, rv reflect.Value) {
	rt := rv.Type()
	b.WriteString("struct:{")
	first := true
	for i := range rt.NumField() {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(field.Name + ":")
		writeArg(b, rv.Field(i).Interface())
	}
	b.WriteByte('}')
}
