// Package domain defines the core value types of the location service: the
// field-keyed equality Key, the schema-gated constructors that turn untrusted
// keyword data into typed entities, the legacy tagged JSON encoding, and the
// persistence models mapped with GORM.
package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// MaxKeyFields caps the number of fields a KeyKind can declare. Keys store
// their values in a fixed-size array so that Key stays comparable.
const MaxKeyFields = 8

// ErrUnhashableValue is returned when a key field is given a value that
// cannot be compared, directly or through an array element, struct field or
// interface it holds (slices, maps, funcs).
var ErrUnhashableValue = errors.New("unhashable key value")

// KeyKind declares the ordered field list of one key type. It is created once
// at package init and never mutated afterwards.
type KeyKind struct {
	name   string
	fields []string
	index  map[string]int
}

// DefineKey declares a key type with the given ordered field names. It panics
// on duplicate names or when more than MaxKeyFields are declared.
func DefineKey(name string, fields ...string) *KeyKind {
	if len(fields) == 0 || len(fields) > MaxKeyFields {
		panic(fmt.Sprintf("domain: key %q must declare 1..%d fields", name, MaxKeyFields))
	}
	k := &KeyKind{
		name:   name,
		fields: append([]string(nil), fields...),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, dup := k.index[f]; dup {
			panic(fmt.Sprintf("domain: key %q declares %q twice", name, f))
		}
		k.index[f] = i
	}
	return k
}

// Name returns the key type name.
func (k *KeyKind) Name() string { return k.name }

// Fields returns a copy of the declared field names in declaration order.
func (k *KeyKind) Fields() []string { return append([]string(nil), k.fields...) }

// New builds a Key from keyword data. Declared fields missing from kw are set
// to nil; keys in kw that are not declared are ignored.
func (k *KeyKind) New(kw map[string]any) (Key, error) {
	key := Key{kind: k}
	for i, f := range k.fields {
		v, ok := kw[f]
		if !ok || v == nil {
			continue
		}
		if !hashable(reflect.ValueOf(v)) {
			return Key{}, fmt.Errorf("%w: %s.%s has type %T", ErrUnhashableValue, k.name, f, v)
		}
		key.values[i] = v
	}
	return key, nil
}

// MustNew is like New but panics on unhashable values.
func (k *KeyKind) MustNew(kw map[string]any) Key {
	key, err := k.New(kw)
	if err != nil {
		panic(err)
	}
	return key
}

// Key is a unique combination of named field values, much like a named
// tuple. Two keys are equal iff they share a kind and every declared field
// is equal, so Key can be used directly as a Go map key.
type Key struct {
	kind   *KeyKind
	values [MaxKeyFields]any
}

// Kind returns the key's declaration, or nil for the zero Key.
func (k Key) Kind() *KeyKind { return k.kind }

// IsZero reports whether k was never constructed.
func (k Key) IsZero() bool { return k.kind == nil }

// Get returns the value of a declared field (nil when unset or undeclared).
func (k Key) Get(field string) any {
	if k.kind == nil {
		return nil
	}
	i, ok := k.kind.index[field]
	if !ok {
		return nil
	}
	return k.values[i]
}

// Values returns the declared field values in declaration order.
func (k Key) Values() []any {
	if k.kind == nil {
		return nil
	}
	return append([]any(nil), k.values[:len(k.kind.fields)]...)
}

// Fields returns the declared fields as a mapping.
func (k Key) Fields() map[string]any {
	if k.kind == nil {
		return nil
	}
	out := make(map[string]any, len(k.kind.fields))
	for i, f := range k.kind.fields {
		out[f] = k.values[i]
	}
	return out
}

// Equal reports whether other is a Key (or *Key) of the same kind with equal
// field values. Values of any other type are never equal.
func (k Key) Equal(other any) bool {
	switch o := other.(type) {
	case Key:
		return k == o
	case *Key:
		return o != nil && k == *o
	default:
		return false
	}
}

// Hash returns a deterministic 64-bit hash of the kind name and the ordered
// field value tuple. Equal keys always hash equally.
func (k Key) Hash() uint64 {
	d := xxhash.New()
	if k.kind == nil {
		return d.Sum64()
	}
	_, _ = d.WriteString(k.kind.name)
	for _, v := range k.values[:len(k.kind.fields)] {
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(hashToken(v))
	}
	return d.Sum64()
}

// String renders the key as name(field=value, ...).
func (k Key) String() string {
	if k.kind == nil {
		return "<zero key>"
	}
	var b strings.Builder
	b.WriteString(k.kind.name)
	b.WriteByte('(')
	for i, f := range k.kind.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", f, k.values[i])
	}
	b.WriteByte(')')
	return b.String()
}

// hashable reports whether v can be compared with ==, looking through
// interfaces, arrays and structs at the dynamic values they hold.
func hashable(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Slice, reflect.Map, reflect.Func:
		return false
	case reflect.Interface:
		return v.IsNil() || hashable(v.Elem())
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if !hashable(v.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !hashable(v.Field(i)) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// hashToken renders v with its dynamic type so that 1 and "1" differ. Values
// that compare equal render identically: every float zero is written as +0.
func hashToken(v any) string {
	var b strings.Builder
	writeToken(&b, reflect.ValueOf(v))
	return b.String()
}

func writeToken(b *strings.Builder, v reflect.Value) {
	if !v.IsValid() {
		b.WriteString("nil")
		return
	}
	b.WriteString(v.Type().String())
	b.WriteByte(':')
	switch v.Kind() {
	case reflect.String:
		b.WriteString(strconv.Quote(v.String()))
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		b.WriteString(floatToken(v.Float()))
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		b.WriteString(floatToken(real(c)))
		b.WriteByte(',')
		b.WriteString(floatToken(imag(c)))
	case reflect.Interface:
		if v.IsNil() {
			b.WriteString("nil")
			return
		}
		writeToken(b, v.Elem())
	case reflect.Array:
		b.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			writeToken(b, v.Index(i))
		}
		b.WriteByte(']')
	case reflect.Struct:
		b.WriteByte('{')
		for i := 0; i < v.NumField(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			writeToken(b, v.Field(i))
		}
		b.WriteByte('}')
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		// Compared by identity.
		b.WriteString(strconv.FormatUint(uint64(v.Pointer()), 16))
	default:
		fmt.Fprintf(b, "%v", v)
	}
}

// floatToken widens f to 64 bits, folding -0 into 0.
func floatToken(f float64) string {
	if f == 0 {
		f = 0
	}
	return strconv.FormatUint(math.Float64bits(f), 16)
}
