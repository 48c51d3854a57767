package domain

import "os"

// Context resolves template strings found in step inputs. The adapter
// never inspects what the templates reference; the caller owns that.
type Context interface {
	ResolveTemplate(tmpl string) string
}

// ContextFunc adapts a function to the Context interface.
type ContextFunc func(tmpl string) string

func (f ContextFunc) ResolveTemplate(tmpl string) string {
	return f(tmpl)
}

// MapContext resolves ${name} references from a string map. Unknown
// references resolve to the empty string.
type MapContext map[string]string

func (m MapContext) ResolveTemplate(tmpl string) string {
	return os.Expand(tmpl, func(name string) string {
		return m[name]
	})
}

// NoContext performs no resolution; templates pass through verbatim.
var NoContext Context = ContextFunc(func(tmpl string) string { return tmpl })
