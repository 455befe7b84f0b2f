package testutil

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
)

// DeepEqual reports whether x and y are deeply equal in the way reflect.DeepEqual does. If
// trc is passed, it is set to where x and y first differ, such as `[1].Key: "a" != "b"`,
// or to "" when they are equal. Cyclic values are not supported.
func DeepEqual(x, y interface{}, trc ...*string) bool {
	if len(trc) > 1 {
		panic("testutil.DeepEqual: more than one optional argument")
	}

	var d differ
	eq := d.equal(reflect.ValueOf(x), reflect.ValueOf(y))
	if len(trc) == 1 && trc[0] != nil {
		*trc[0] = d.diff
	}
	return eq
}

type differ struct {
	path []string
	diff string
}

func (d *differ) differs(format string, args ...interface{}) bool {
	where := strings.Join(d.path, "")
	if where == "" {
		where = "value"
	}
	d.diff = where + ": " + fmt.Sprintf(format, args...)
	return false
}

func (d *differ) at(step string, v1, v2 reflect.Value) bool {
	d.path = append(d.path, step)
	eq := d.equal(v1, v2)
	d.path = d.path[:len(d.path)-1]
	return eq
}

func (d *differ) equal(v1, v2 reflect.Value) bool {
	if !v1.IsValid() || !v2.IsValid() {
		if v1.IsValid() != v2.IsValid() {
			return d.differs("%v != %v", v1, v2)
		}
		return true
	} else if v1.Type() != v2.Type() {
		return d.differs("%s != %s", v1.Type(), v2.Type())
	}

	switch v1.Kind() {
	case reflect.Slice:
		if v1.IsNil() != v2.IsNil() {
			return d.differs("%#v != %#v", v1, v2)
		}
		if v1.Type().Elem().Kind() == reflect.Uint8 {
			if !bytes.Equal(v1.Bytes(), v2.Bytes()) {
				return d.differs("%q != %q", v1.Bytes(), v2.Bytes())
			}
			return true
		}
		fallthrough
	case reflect.Array:
		if v1.Len() != v2.Len() {
			return d.differs("len %d != len %d", v1.Len(), v2.Len())
		}
		for i := 0; i < v1.Len(); i++ {
			if !d.at(fmt.Sprintf("[%d]", i), v1.Index(i), v2.Index(i)) {
				return false
			}
		}
	case reflect.Interface, reflect.Ptr:
		if v1.IsNil() || v2.IsNil() {
			if v1.IsNil() != v2.IsNil() {
				return d.differs("%v != %v", v1, v2)
			}
			return true
		}
		if v1.Kind() == reflect.Ptr && v1.Pointer() == v2.Pointer() {
			return true
		}
		return d.equal(v1.Elem(), v2.Elem())
	case reflect.Struct:
		for i := 0; i < v1.NumField(); i++ {
			if !d.at("."+v1.Type().Field(i).Name, v1.Field(i), v2.Field(i)) {
				return false
			}
		}
	case reflect.Map:
		if v1.IsNil() != v2.IsNil() || v1.Len() != v2.Len() {
			return d.differs("%v != %v", v1, v2)
		}
		for _, k := range v1.MapKeys() {
			val2 := v2.MapIndex(k)
			if !val2.IsValid() {
				return d.differs("key %v missing", k)
			}
			if !d.at(fmt.Sprintf("[%v]", k), v1.MapIndex(k), val2) {
				return false
			}
		}
	case reflect.Func:
		if !v1.IsNil() || !v2.IsNil() {
			return d.differs("non-nil functions can not be compared")
		}
	case reflect.Bool:
		if v1.Bool() != v2.Bool() {
			return d.differs("%v != %v", v1.Bool(), v2.Bool())
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v1.Int() != v2.Int() {
			return d.differs("%d != %d", v1.Int(), v2.Int())
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr:

		if v1.Uint() != v2.Uint() {
			return d.differs("%d != %d", v1.Uint(), v2.Uint())
		}
	case reflect.Float32, reflect.Float64:
		if v1.Float() != v2.Float() {
			return d.differs("%v != %v", v1.Float(), v2.Float())
		}
	case reflect.Complex64, reflect.Complex128:
		if v1.Complex() != v2.Complex() {
			return d.differs("%v != %v", v1.Complex(), v2.Complex())
		}
	case reflect.String:
		if v1.String() != v2.String() {
			return d.differs("%q != %q", v1.String(), v2.String())
		}
	default:
		if v1.Pointer() != v2.Pointer() {
			return d.differs("%v != %v", v1, v2)
		}
	}
	return true
}
