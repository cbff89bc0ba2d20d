// Package templates renders the object templates used for product titles and
// URIs, e.g. "{product.title} ({sku})" or "shop/{product.slug}".
package templates

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Vars is the object a template renders against. Nested objects are Vars too.
type Vars map[string]any

// Renderer renders a template against an object.
type Renderer interface {
	Render(format string, vars Vars) (string, error)
}

// ObjectRenderer is the default Renderer. It has no state.
type ObjectRenderer struct{}

func (ObjectRenderer) Render(format string, vars Vars) (string, error) {
	return Render(format, vars)
}

// Render replaces every {path} token with the value found at the dotted path.
// Braces that do not enclose a valid path are copied through unchanged.
func Render(format string, vars Vars) (string, error) {
	var out strings.Builder
	rest := format
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		path := strings.TrimSpace(rest[open+1 : open+end])
		out.WriteString(rest[:open])
		if !validPath(path) {
			out.WriteString(rest[open : open+end+1])
			rest = rest[open+end+1:]
			continue
		}
		value, err := lookup(vars, path)
		if err != nil {
			return "", err
		}
		out.WriteString(value)
		rest = rest[open+end+1:]
	}
}

// Tokens returns the paths referenced by format, in order of appearance.
func Tokens(format string) []string {
	var paths []string
	rest := format
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return paths
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return paths
		}
		if path := strings.TrimSpace(rest[open+1 : open+end]); validPath(path) {
			paths = append(paths, path)
		}
		rest = rest[open+end+1:]
	}
}

func validPath(path string) bool {
	if path == "" {
		return false
	}
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			return false
		}
		for i, r := range segment {
			isLetter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
			isDigit := r >= '0' && r <= '9'
			if !isLetter && (i == 0 || !isDigit) {
				return false
			}
		}
	}
	return true
}

func lookup(vars Vars, path string) (string, error) {
	var current any = vars
	for _, segment := range strings.Split(path, ".") {
		obj, ok := current.(Vars)
		if !ok {
			if m, isMap := current.(map[string]any); isMap {
				obj = m
			} else {
				return "", fmt.Errorf("template variable %q: %q is not an object", path, segment)
			}
		}
		next, found := obj[segment]
		if !found {
			return "", fmt.Errorf("unknown template variable %q", path)
		}
		current = next
	}
	return stringify(current), nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case decimal.Decimal:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
