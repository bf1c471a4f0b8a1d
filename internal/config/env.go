package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// envBinding ties one settable config field to the variable named in its `env` tag
type envBinding struct {
	variable string
	path     string
	field    reflect.Value
}

// envBindings collects every `env`-tagged leaf of cfg, descending into nested sections
func envBindings(cfg *Config) []envBinding {
	var out []envBinding
	var walk func(v reflect.Value, prefix string)
	walk = func(v reflect.Value, prefix string) {
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			fv := v.Field(i)
			if sf.Type.Kind() == reflect.Struct {
				walk(fv, prefix+sf.Name+".")
				continue
			}
			if name := sf.Tag.Get("env"); name != "" {
				out = append(out, envBinding{variable: name, path: prefix + sf.Name, field: fv})
			}
		}
	}
	walk(reflect.ValueOf(cfg).Elem(), "")
	return out
}

// applyEnv overrides cfg with every bound variable present in the environment.
// Values are trimmed; an empty variable still overrides (JWT_SECRET="" clears the secret).
func applyEnv(cfg *Config) error {
	for _, b := range envBindings(cfg) {
		raw, ok := os.LookupEnv(b.variable)
		if !ok {
			continue
		}
		if err := assign(b.field, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("%s (%s): %w", b.variable, b.path, err)
		}
	}
	return nil
}

func assign(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("expected an integer, got %q", raw)
		}
		field.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("expected a boolean, got %q", raw)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}
