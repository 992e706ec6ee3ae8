// Package layering copies and merges entity and configuration values by
// reflection. The views use it to keep the server copy of an entity apart
// from the working copy; instance configuration uses it to layer persisted
// settings over static ones.
package layering

import "reflect"

// DeepCopyMethod names the method a type may define when a plain field copy
// would share state, typically because of unexported fields. It takes no
// arguments and returns a value of the receiver's own type.
const DeepCopyMethod = "DeepCopy"

// Clone returns a copy of value that shares no maps, slices or pointers with
// it. Structs with unexported fields are copied as a unit unless they define
// DeepCopy.
func Clone[T any](value T) T {
	return fromValue[T](deepCopy(reflect.ValueOf(value)))
}

func fromValue[T any](v reflect.Value) T {
	var out T
	if !v.IsValid() {
		return out
	}
	target := reflect.TypeOf(&out).Elem()
	if v.Type() == target {
		return v.Interface().(T)
	}
	reflect.ValueOf(&out).Elem().Set(v.Convert(target))
	return out
}

func deepCopy(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	if copied, ok := viaMethod(v); ok {
		return copied
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopy(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		return deepCopy(v.Elem()).Convert(v.Type())
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		for iter := v.MapRange(); iter.Next(); {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		copyElems(out, v)
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		copyElems(out, v)
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		if sealed(v.Type()) {
			return out
		}
		for i := 0; i < v.NumField(); i++ {
			out.Field(i).Set(deepCopy(v.Field(i)))
		}
		return out
	}
	out := reflect.New(v.Type()).Elem()
	out.Set(v)
	return out
}

func copyElems(dst, src reflect.Value) {
	for i := 0; i < src.Len(); i++ {
		dst.Index(i).Set(deepCopy(src.Index(i)))
	}
}

// viaMethod uses the type's own DeepCopy when it has one with the expected
// signature.
func viaMethod(v reflect.Value) (reflect.Value, bool) {
	if v.Kind() == reflect.Interface || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return reflect.Value{}, false
	}
	m := v.MethodByName(DeepCopyMethod)
	if !m.IsValid() {
		return reflect.Value{}, false
	}
	t := m.Type()
	if t.NumIn() != 0 || t.NumOut() != 1 || t.Out(0) != v.Type() {
		return reflect.Value{}, false
	}
	return m.Call(nil)[0], true
}

// sealed reports structs whose fields cannot all be set through reflection.
func sealed(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			return true
		}
	}
	return false
}
