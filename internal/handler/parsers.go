package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ParseYAML decodes the first YAML document in contents. Empty input yields nil.
func ParseYAML(contents []byte) (any, error) {
	var out any
	if err := yaml.Unmarshal(contents, &out); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return out, nil
}

// ParseTemplatedYAML expands contents as a text/template and parses the
// result as YAML. Templates get the env and default helpers:
//
//	password: {{ env "DB_PASSWORD" | default "secret" }}
func ParseTemplatedYAML(contents []byte) (any, error) {
	tmpl, err := template.New("config").
		Option("missingkey=error").
		Funcs(templateFuncs).
		Parse(string(contents))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return nil, fmt.Errorf("expand template: %w", err)
	}
	return ParseYAML(buf.Bytes())
}

var templateFuncs = template.FuncMap{
	"env": os.Getenv,
	"default": func(fallback, value string) string {
		if value == "" {
			return fallback
		}
		return value
	},
}

// ParseJSON decodes a single JSON value. Integral numbers become int and the
// rest float64, matching what the YAML parser produces for the same input.
func ParseJSON(contents []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(contents))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse JSON: unexpected data after top-level value")
	}
	return convertNumbers(out), nil
}

func convertNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = convertNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = convertNumbers(item)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// ParseTOML decodes a TOML document into a table.
func ParseTOML(contents []byte) (any, error) {
	out := map[string]any{}
	if err := toml.Unmarshal(contents, &out); err != nil {
		return nil, fmt.Errorf("parse TOML: %w", err)
	}
	return out, nil
}
