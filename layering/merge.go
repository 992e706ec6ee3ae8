package layering

import "reflect"

// MergeLayers combines layers ordered from strongest to weakest. A setting
// in a stronger layer wins unless it is unset:
//
//   - nil pointers, maps, slices and interfaces are unset
//   - zero scalars are unset, so a stronger layer cannot force false or 0
//     except through a pointer
//   - maps merge key by key, slices are replaced as a whole
//   - structs with unexported fields, such as time.Time, are unset only when
//     zero
//
// The result shares no memory with any layer.
func MergeLayers[T any](layers ...T) T {
	if len(layers) == 0 {
		var zero T
		return zero
	}
	acc := deepCopy(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		acc = over(reflect.ValueOf(layers[i]), acc)
	}
	return fromValue[T](acc)
}

// over lays strong over weak.
func over(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() {
		return deepCopy(weak)
	}
	if unset(strong) {
		if weak.IsValid() && weak.Type() == strong.Type() {
			return deepCopy(weak)
		}
		return deepCopy(strong)
	}
	switch strong.Kind() {
	case reflect.Pointer:
		out := reflect.New(strong.Type().Elem())
		out.Elem().Set(over(strong.Elem(), elemOf(weak, reflect.Pointer)))
		return out
	case reflect.Interface:
		return over(strong.Elem(), elemOf(weak, reflect.Interface)).Convert(strong.Type())
	case reflect.Map:
		return overMap(strong, weak)
	case reflect.Array:
		out := reflect.New(strong.Type()).Elem()
		for i := 0; i < strong.Len(); i++ {
			var w reflect.Value
			if sameKind(weak, reflect.Array) && weak.Len() > i {
				w = weak.Index(i)
			}
			out.Index(i).Set(over(strong.Index(i), w))
		}
		return out
	case reflect.Struct:
		if sealed(strong.Type()) {
			return deepCopy(strong)
		}
		out := reflect.New(strong.Type()).Elem()
		for i := 0; i < strong.NumField(); i++ {
			var w reflect.Value
			if weak.IsValid() && weak.Type() == strong.Type() {
				w = weak.Field(i)
			}
			out.Field(i).Set(over(strong.Field(i), w))
		}
		return out
	}
	return deepCopy(strong)
}

func overMap(strong, weak reflect.Value) reflect.Value {
	out := reflect.MakeMapWithSize(strong.Type(), strong.Len())
	if sameKind(weak, reflect.Map) && !weak.IsNil() {
		for iter := weak.MapRange(); iter.Next(); {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
	}
	for iter := strong.MapRange(); iter.Next(); {
		key := iter.Key()
		out.SetMapIndex(key, over(iter.Value(), out.MapIndex(key)))
	}
	return out
}

// unset reports whether v should let a weaker layer show through. Slices
// only fall through when nil, so an empty list can clear a weaker one.
func unset(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice,
		reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return v.IsNil()
	case reflect.Struct:
		return sealed(v.Type()) && v.IsZero()
	case reflect.Array:
		return false
	}
	return v.IsZero()
}

func elemOf(v reflect.Value, kind reflect.Kind) reflect.Value {
	if !sameKind(v, kind) || v.IsNil() {
		return reflect.Value{}
	}
	return v.Elem()
}

func sameKind(v reflect.Value, kind reflect.Kind) bool {
	return v.IsValid() && v.Kind() == kind
}
