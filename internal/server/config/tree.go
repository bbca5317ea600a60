package config

import (
	"reflect"
	"strings"
	"time"
)

// ToMap returns cfg as nested maps keyed by the koanf tags, the same
// shape the YAML file uses. Durations become their String form.
func ToMap(cfg *ContactConfig) map[string]any {
	return structMap(reflect.ValueOf(cfg).Elem())
}

// Flatten returns cfg as dotted keys, e.g. "rate_limit.count".
func Flatten(cfg *ContactConfig) map[string]any {
	out := make(map[string]any)
	flattenInto(out, "", ToMap(cfg))
	return out
}

var durationType = reflect.TypeOf(time.Duration(0))

func structMap(v reflect.Value) map[string]any {
	t := v.Type()
	m := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := strings.Split(f.Tag.Get("koanf"), ",")[0]
		if key == "" || key == "-" || !f.IsExported() {
			continue
		}
		m[key] = plain(v.Field(i))
	}
	return m
}

func plain(v reflect.Value) any {
	switch {
	case v.Type() == durationType:
		return time.Duration(v.Int()).String()
	case v.Kind() == reflect.Struct:
		return structMap(v)
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.String:
		out := make([]string, v.Len())
		for i := range out {
			out[i] = v.Index(i).String()
		}
		return out
	}
	return v.Interface()
}

func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flattenInto(out, key, sub)
			continue
		}
		out[key] = v
	}
}
