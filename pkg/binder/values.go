package binder

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// bindValues sets every field of the struct pointed to by v that carries
// tagName from lookup. Untagged fields are left alone.
func bindValues(v any, tagName string, lookup func(name string) []string, bindErr error) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: target must be a non-nil pointer", bindErr)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: target must be a pointer to struct", bindErr)
	}

	rt := rv.Type()
	for i := range rv.NumField() {
		field, sf := rv.Field(i), rt.Field(i)
		if !field.CanSet() {
			continue
		}
		name, ok := tagValue(sf, tagName)
		if !ok {
			continue
		}
		values := lookup(name)
		if len(values) == 0 || (len(values) == 1 && values[0] == "") {
			continue
		}
		if err := setValue(field, values); err != nil {
			return fmt.Errorf("%w: %s: %w", bindErr, name, err)
		}
	}
	return nil
}

func tagValue(sf reflect.StructField, tagName string) (string, bool) {
	tag := sf.Tag.Get(tagName)
	if tag == "" || tag == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	return name, name != ""
}

func setValue(field reflect.Value, values []string) error {
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return setValue(field.Elem(), values)
	}

	if field.CanAddr() && field.Addr().Type().Implements(textUnmarshalerType) {
		return field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(strings.TrimSpace(values[0])))
	}

	if field.Kind() == reflect.Slice {
		var parts []string
		for _, v := range values {
			for p := range strings.SplitSeq(v, ",") {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, p)
				}
			}
		}
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			if err := setValue(slice.Index(i), []string{p}); err != nil {
				return err
			}
		}
		field.Set(slice)
		return nil
	}

	value := strings.TrimSpace(values[0])
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", value)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", value)
		}
		field.SetUint(n)
	case reflect.Bool:
		switch strings.ToLower(value) {
		case "1", "true", "on", "yes":
			field.SetBool(true)
		case "0", "false", "off", "no":
			field.SetBool(false)
		default:
			return fmt.Errorf("invalid boolean %q", value)
		}
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}
