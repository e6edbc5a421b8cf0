// Package keygen builds cache keys from the arguments of wrapped calls.
//
// A call with exactly one positional argument and no named arguments is keyed
// by the argument itself, so single-argument functions keep natural keys.
// Every other call is keyed by a comparable Tuple holding the positional
// arguments, a separator, and the named arguments in call order. Two tuples
// are equal exactly when their elements are equal under Go's == operator.
//
// Values that are not comparable (slices, maps, structs holding them) are
// replaced by a type-tagged rendering of their contents; renderings longer
// than maxLen are hashed to keep keys small.
package keygen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/osmike/ttlcache/internal/lib/errs"
)

// Maximum length for encoded values before hashing
const maxLen = 100

// ErrBuildKey indicates a failure to build a cache key from a value.
var ErrBuildKey = fmt.Errorf("error building cache key")

// separator marks the boundary between positional and named arguments.
// It is unexported, so no caller value can be equal to it.
type separator struct{}

func (separator) String() string { return "|" }

// contextArg stands in for any context.Context argument.
type contextArg struct{}

func (contextArg) String() string { return "ctx" }

// encoded stands in for a value that is not comparable.
type encoded struct{ s string }

func (e encoded) String() string { return e.s }

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// Tuple is a composite cache key for multi-argument or named-argument calls.
// Tuples of different lengths are never equal.
type Tuple struct {
	elems any // [n]any built with reflect.ArrayOf
	n     int
}

// Len reports the number of tuple elements: positional arguments,
// the separator, and one (name, value) pair per named argument.
func (t Tuple) Len() int { return t.n }

// String renders the tuple for logs. It is not the key identity.
func (t Tuple) String() string {
	if t.elems == nil {
		return "()"
	}
	arr := reflect.ValueOf(t.elems)
	parts := make([]string, arr.Len())
	for i := range parts {
		switch v := arr.Index(i).Interface().(type) {
		case NamedArg:
			parts[i] = fmt.Sprintf("%s=%v", v.Name, v.Value)
		default:
			parts[i] = fmt.Sprintf("%v", v)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Build returns the default cache key for args.
//
//   - One positional argument and no named arguments: the argument itself,
//     or a single-element Tuple if the argument is not comparable.
//   - Anything else: a Tuple of positional args, separator, named pairs.
//
// Returns ErrBuildKey if an argument cannot be used as a key (functions).
func Build(args Args) (any, error) {
	if len(args.Named) == 0 && len(args.Positional) == 1 {
		v := args.Positional[0]
		if v == nil || reflect.ValueOf(v).Comparable() {
			return v, nil
		}
		elem, err := keyValue(v)
		if err != nil {
			return nil, err
		}
		return newTuple([]any{elem}), nil
	}

	elems := make([]any, 0, len(args.Positional)+1+len(args.Named))
	for _, v := range args.Positional {
		elem, err := keyValue(v)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
	elems = append(elems, separator{})
	for _, na := range args.Named {
		elem, err := keyValue(na.Value)
		if err != nil {
			return nil, err
		}
		elems = append(elems, NamedArg{Name: na.Name, Value: elem})
	}
	return newTuple(elems), nil
}

// newTuple copies elems into a fixed-size array so the result compares
// element by element.
func newTuple(elems []any) Tuple {
	arr := reflect.New(reflect.ArrayOf(len(elems), anyType)).Elem()
	for i, e := range elems {
		if e != nil {
			arr.Index(i).Set(reflect.ValueOf(e))
		}
	}
	return Tuple{elems: arr.Interface(), n: len(elems)}
}

// keyValue returns v itself when it is comparable, or a stand-in that is.
func keyValue(v any) (any, error) {
	switch v.(type) {
	case nil:
		return nil, nil
	case context.Context:
		// contexts are not part of a call's identity
		return contextArg{}, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Comparable() {
		return v, nil
	}
	if rv.Kind() == reflect.Func {
		return nil, errs.NewError(ErrBuildKey, map[string]interface{}{
			"operation": "building cache key",
			"type":      rv.Type().String(),
			"reason":    "functions cannot be compared",
		})
	}
	return encoded{s: encodeValue(v)}, nil
}

// encodeValue renders a non-comparable value with its type and Go syntax.
// fmt prints unexported fields, pointer addresses and sorted map keys, so
// equal contents render equally and pointers keep their identity.
func encodeValue(v any) string {
	s := fmt.Sprintf("%T:%#v", v, v)
	if len(s) > maxLen {
		s = fmt.Sprintf("%T:%s", v, hashBytes([]byte(s)))
	}
	return s
}

// hashBytes hashes the byte slice using SHA-256 and returns the hex string.
func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
