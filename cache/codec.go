package cache

import (
	"encoding"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// maxDepth bounds nesting of acyclic values.
const maxDepth = 64

// Key is the canonical encoding of a call's arguments. Equal keys mean
// structurally equal arguments.
type Key string

// Args holds the positional and named arguments of one call.
type Args struct {
	Positional []any
	Named      map[string]any
}

// A builds Args from positional values.
func A(positional ...any) Args {
	return Args{Positional: positional}
}

// With returns a copy of a with the named argument set.
func (a Args) With(name string, value any) Args {
	named := make(map[string]any, len(a.Named)+1)
	maps.Copy(named, a.Named)
	named[name] = value
	return Args{Positional: a.Positional, Named: named}
}

// Keyer derives a Key from a call input.
//
// Contract:
// - Determinism: structurally equal inputs produce equal keys.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(in any) Key
}

// KeyFunc adapts a function to a Keyer.
type KeyFunc func(in any) Key

// Key calls f.
func (f KeyFunc) Key(in any) Key { return f(in) }

// Codec is the default Keyer. It is stateless and safe to share.
//
// Encoding rules:
//   - nil encodes as null; bools, numbers and strings as literals, with
//     strings quoted so 1 and "1" differ. Integral floats encode as integers,
//     so 1000000 and 1e6 share a key. Byte slices are tagged, b"a" != "a".
//   - Maps encode as records ordered by their encoded keys. An empty or nil
//     map encodes as {} which is distinct from null.
//   - Named arguments are a map, so their order at the call site is irrelevant.
//   - Slices and arrays keep element order.
//   - Values implementing encoding.TextMarshaler encode as their text.
//   - Structs encode their exported fields in declaration order.
//   - Pointers, funcs and channels are opaque identity tokens.
//   - A slice or map reached again while it is being encoded becomes <cycle>.
type Codec struct{}

// NewCodec returns a Codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Key encodes a single-input call. Args inputs are split into their
// positional and named parts; anything else is the sole positional value.
func (c *Codec) Key(in any) Key {
	switch v := in.(type) {
	case Args:
		return c.Encode(v.Positional, v.Named)
	case *Args:
		if v != nil {
			return c.Encode(v.Positional, v.Named)
		}
	}
	return c.Encode([]any{in}, nil)
}

// Encode canonicalizes a call's positional and named arguments.
func (c *Codec) Encode(positional []any, named map[string]any) Key {
	var b strings.Builder
	e := &encoder{}
	b.WriteByte('(')
	for i, v := range positional {
		if i > 0 {
			b.WriteByte(',')
		}
		e.value(&b, v, 0)
	}
	b.WriteByte(';')
	for i, name := range slices.Sorted(maps.Keys(named)) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(name))
		b.WriteByte('=')
		e.value(&b, named[name], 0)
	}
	b.WriteByte(')')
	return Key(b.String())
}

// visit identifies a slice or map on the current encoding path.
type visit struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

// encoder carries the slices and maps currently being encoded.
type encoder struct {
	path map[visit]struct{}
}

// enter records rv on the path. It reports false if rv is already there.
func (e *encoder) enter(rv reflect.Value) (visit, bool) {
	if rv.Pointer() == 0 {
		return visit{}, true
	}
	v := visit{ptr: rv.Pointer(), typ: rv.Type(), n: rv.Len()}
	if _, ok := e.path[v]; ok {
		return v, false
	}
	if e.path == nil {
		e.path = make(map[visit]struct{})
	}
	e.path[v] = struct{}{}
	return v, true
}

func (e *encoder) leave(v visit) {
	delete(e.path, v)
}

func (e *encoder) value(b *strings.Builder, v any, depth int) {
	if depth > maxDepth {
		b.WriteString("<deep>")
		return
	}

	switch val := v.(type) {
	case nil:
		b.WriteString("null")
		return
	case string:
		b.WriteString(strconv.Quote(val))
		return
	case bool:
		b.WriteString(strconv.FormatBool(val))
		return
	case int:
		b.WriteString(strconv.Itoa(val))
		return
	case float64:
		writeFloat(b, val)
		return
	case encoding.TextMarshaler:
		if rv := reflect.ValueOf(v); rv.Kind() != reflect.Pointer {
			if text, err := val.MarshalText(); err == nil {
				b.WriteString(fmt.Sprintf("%T:", v))
				b.WriteString(strconv.Quote(string(text)))
				return
			}
		}
	}

	e.reflect(b, reflect.ValueOf(v), depth)
}

func (e *encoder) reflect(b *strings.Builder, rv reflect.Value, depth int) {
	switch rv.Kind() {
	case reflect.Invalid:
		b.WriteString("null")
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32:
		writeFloat(b, float64(float32(rv.Float())))
	case reflect.Float64:
		writeFloat(b, rv.Float())
	case reflect.Complex64, reflect.Complex128:
		b.WriteString(strconv.FormatComplex(rv.Complex(), 'g', -1, 128))
	case reflect.String:
		b.WriteString(strconv.Quote(rv.String()))
	case reflect.Interface:
		if rv.IsNil() {
			b.WriteString("null")
			return
		}
		e.value(b, rv.Elem().Interface(), depth)
	case reflect.Map:
		v, ok := e.enter(rv)
		if !ok {
			b.WriteString("<cycle>")
			return
		}
		defer e.leave(v)
		e.mapValue(b, rv, depth)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b.WriteByte('b')
			b.WriteString(strconv.Quote(string(rv.Bytes())))
			return
		}
		v, ok := e.enter(rv)
		if !ok {
			b.WriteString("<cycle>")
			return
		}
		defer e.leave(v)
		e.list(b, rv, depth)
	case reflect.Array:
		e.list(b, rv, depth)
	case reflect.Struct:
		e.structValue(b, rv, depth)
	case reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if rv.IsNil() {
			b.WriteString("null")
			return
		}
		fmt.Fprintf(b, "<%s@%#x>", rv.Type(), rv.Pointer())
	default:
		fmt.Fprintf(b, "<%s:%v>", rv.Type(), rv)
	}
}

func (e *encoder) list(b *strings.Builder, rv reflect.Value, depth int) {
	b.WriteByte('[')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		e.value(b, valueInterface(rv.Index(i)), depth+1)
	}
	b.WriteByte(']')
}

// mapValue writes a record ordered by encoded key. map[string]any takes the
// same path, so string keys appear quoted.
func (e *encoder) mapValue(b *strings.Builder, rv reflect.Value, depth int) {
	type field struct{ key, val string }

	fields := make([]field, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		var kb, vb strings.Builder
		e.value(&kb, valueInterface(iter.Key()), depth+1)
		e.value(&vb, valueInterface(iter.Value()), depth+1)
		fields = append(fields, field{kb.String(), vb.String()})
	}
	slices.SortFunc(fields, func(a, b field) int { return strings.Compare(a.key, b.key) })

	b.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.key)
		b.WriteByte(':')
		b.WriteString(f.val)
	}
	b.WriteByte('}')
}

func (e *encoder) structValue(b *strings.Builder, rv reflect.Value, depth int) {
	t := rv.Type()
	exported := 0
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			exported++
		}
	}
	if exported == 0 && t.NumField() > 0 {
		// Nothing addressable by reflection; fall back to the Go syntax form.
		fmt.Fprintf(b, "%#v", rv.Interface())
		return
	}

	b.WriteString(t.String())
	b.WriteByte('{')
	n := 0
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if n > 0 {
			b.WriteByte(',')
		}
		n++
		b.WriteString(sf.Name)
		b.WriteByte(':')
		e.value(b, rv.Field(i).Interface(), depth+1)
	}
	b.WriteByte('}')
}

// valueInterface returns rv as an interface, or nil for unexported values
// that reflection cannot surface.
func valueInterface(rv reflect.Value) any {
	if !rv.IsValid() || !rv.CanInterface() {
		return nil
	}
	return rv.Interface()
}

// writeFloat writes integral floats within the int64 or uint64 range as
// integers, matching how the equal integer encodes.
func writeFloat(b *strings.Builder, f float64) {
	switch {
	case f != math.Trunc(f) || math.IsInf(f, 0):
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case f >= -(1<<63) && f < 1<<63:
		b.WriteString(strconv.FormatInt(int64(f), 10))
	case f >= 0 && f < 1<<64:
		b.WriteString(strconv.FormatUint(uint64(f), 10))
	default:
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}

// Ensure Codec implements Keyer
var _ Keyer = (*Codec)(nil)
