package snapshot

import (
	"fmt"
	"reflect"
	"time"
)

// Placeholders written in place of values that are not copied.
const (
	MarkerMaxDepth      = "[Max Depth Exceeded]"
	MarkerCircular      = "[Circular]"
	MarkerFunction      = "[Function]"
	MarkerChannel       = "[Channel]"
	MarkerUnsafePointer = "[Unsafe Pointer]"
)

var (
	errorType = reflect.TypeOf((*error)(nil)).Elem()
	timeType  = reflect.TypeOf(time.Time{})
)

// visit identifies a reference on the current path. Slices include their
// length since two slices may share a backing array.
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type walker struct {
	maxDepth int
	path     map[visit]struct{}
}

func newWalker(maxDepth int) *walker {
	return &walker{maxDepth: maxDepth, path: make(map[visit]struct{})}
}

func (w *walker) copy(v any) any {
	if v == nil {
		return nil
	}
	return w.value(reflect.ValueOf(v), 0)
}

func (w *walker) value(v reflect.Value, depth int) any {
	if !v.IsValid() {
		return nil
	}
	if depth > w.maxDepth {
		return MarkerMaxDepth
	}

	switch v.Kind() {
	case reflect.Func:
		return MarkerFunction
	case reflect.Chan:
		return MarkerChannel
	case reflect.UnsafePointer:
		return MarkerUnsafePointer
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return w.value(v.Elem(), depth)
	}

	if v.Type() == timeType {
		return v.Interface()
	}
	if v.Type().Implements(errorType) && v.CanInterface() {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return nil
		}
		return v.Interface().(error).Error()
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		key := visit{ptr: v.Pointer(), typ: v.Type()}
		return w.enter(key, func() any { return w.value(v.Elem(), depth) })

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		key := visit{ptr: v.Pointer(), typ: v.Type()}
		return w.enter(key, func() any {
			out := make(map[string]any, v.Len())
			iter := v.MapRange()
			for iter.Next() {
				out[fmt.Sprint(iter.Key().Interface())] = w.value(iter.Value(), depth+1)
			}
			return out
		})

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		key := visit{ptr: v.Pointer(), typ: v.Type(), len: v.Len()}
		return w.enter(key, func() any { return w.list(v, depth) })

	case reflect.Array:
		return w.list(v, depth)

	case reflect.Struct:
		t := v.Type()
		out := make(map[string]any, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			out[f.Name] = w.value(v.Field(i), depth+1)
		}
		return out
	}

	if !v.CanInterface() {
		return nil
	}
	return v.Interface()
}

func (w *walker) list(v reflect.Value, depth int) []any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = w.value(v.Index(i), depth+1)
	}
	return out
}

// enter marks key as on the path while fn runs. Revisiting a key already on
// the path yields MarkerCircular; siblings that share a reference do not.
func (w *walker) enter(key visit, fn func() any) any {
	if _, ok := w.path[key]; ok {
		return MarkerCircular
	}
	w.path[key] = struct{}{}
	defer delete(w.path, key)
	return fn()
}
