/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"unicode"
)

// Template is a prompt with {{name}} placeholders. Binding methods return a
// new Template; the receiver is never mutated, so a parsed role template can
// be shared and re-bound per stage.
type Template struct {
	text     string
	bindings map[string]binding
}

// New parses the template text and registers one unbound binding per
// distinct placeholder. Placeholder names must be identifiers.
func New(text string) (*Template, error) {
	bindings := make(map[string]binding)
	if _, err := walk(text, func(name string) (string, error) {
		if _, ok := bindings[name]; !ok {
			bindings[name] = &unbound{name: name}
		}
		return "", nil
	}); err != nil {
		return nil, err
	}
	return &Template{text: text, bindings: bindings}, nil
}

// Must panics when err is non-nil. For package-level role templates whose
// text is known good.
func Must(t *Template, err error) *Template {
	if err != nil {
		panic(err)
	}
	return t
}

// Placeholders returns the set of placeholder names in the template.
func (t *Template) Placeholders() map[string]struct{} {
	names := make(map[string]struct{}, len(t.bindings))
	for name := range t.bindings {
		names[name] = struct{}{}
	}
	return names
}

// BindText binds plain text to a placeholder.
func (t *Template) BindText(name, value string) (*Template, error) {
	return t.bind(name, &textBinding{val: value})
}

// BindJSON binds structured data rendered as indented JSON.
func (t *Template) BindJSON(name string, data any) (*Template, error) {
	return t.bind(name, &jsonBinding{data: data})
}

// BindYAML binds structured data rendered as YAML.
func (t *Template) BindYAML(name string, data any) (*Template, error) {
	return t.bind(name, &yamlBinding{data: data})
}

func (t *Template) bind(name string, b binding) (*Template, error) {
	current, ok := t.bindings[name]
	if !ok {
		return nil, fmt.Errorf("placeholder %q not found in template", name)
	}
	if _, isUnbound := current.(*unbound); !isUnbound {
		return nil, fmt.Errorf("placeholder %q already bound", name)
	}
	next := &Template{text: t.text, bindings: maps.Clone(t.bindings)}
	next.bindings[name] = b
	return next, nil
}

// Render substitutes every placeholder. Any placeholder still unbound is an
// error.
func (t *Template) Render() (string, error) {
	values := make(map[string]string, len(t.bindings))
	for name, b := range t.bindings {
		val, err := b.value()
		if err != nil {
			return "", err
		}
		values[name] = val
	}
	return walk(t.text, func(name string) (string, error) {
		return values[name], nil
	})
}

// walk tokenizes the template, calling resolve for each placeholder and
// splicing its return value into the output.
func walk(text string, resolve func(name string) (string, error)) (string, error) {
	var out strings.Builder
	for len(text) > 0 {
		start := strings.Index(text, "{{")
		if start == -1 {
			out.WriteString(text)
			break
		}
		out.WriteString(text[:start])

		end := strings.Index(text[start:], "}}")
		if end == -1 {
			return "", errors.New("unclosed placeholder: missing '}}'")
		}
		end += start + 2

		name := strings.TrimSpace(text[start+2 : end-2])
		if !isIdentifier(name) {
			return "", fmt.Errorf("invalid placeholder identifier %q", name)
		}
		replacement, err := resolve(name)
		if err != nil {
			return "", err
		}
		out.WriteString(replacement)

		text = text[end:]
	}
	return out.String(), nil
}

// isIdentifier reports whether s is a letter followed by letters, digits,
// or underscores.
func isIdentifier(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 || !unicode.IsLetter(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
