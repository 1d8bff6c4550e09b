package util

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

/*
Context is a tree of named counters attached to a context.Context. Executor
nodes record what they did (rows scanned, rows matched, groups built) into the
context of the query they serve, and the query route returns the tree when an
explain is requested.
*/

////////////////////////////////////////////////////////////////////////////////

type contextKey int

const (
	ContextKey contextKey = iota
)

// Context holds execution statistics for one query or one node.
type Context struct {
	Name     string             `json:"name"`
	Values   map[string]float64 `json:"values"`
	Data     map[string]string  `json:"data"`
	Children []*Context         `json:"children"`

	mtx sync.Mutex
}

func newContext(name string) *Context {
	return &Context{
		Name:   name,
		Values: make(map[string]float64),
		Data:   make(map[string]string),
	}
}

// WithContext attaches a new root statistics context.
func WithContext(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKey, newContext(name))
}

// IncContextValue increments a named counter.
func IncContextValue(ctx context.Context, name string, inc float64) {
	c := FromContext(ctx)
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.Values[name] += inc
}

// SetContextValue sets a named counter.
func SetContextValue(ctx context.Context, name string, value float64) {
	c := FromContext(ctx)
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.Values[name] = value
}

// SetContextData sets a named string.
func SetContextData(ctx context.Context, key string, data string) {
	c := FromContext(ctx)
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.Data[key] = data
}

// FromContext returns the statistics context, or a detached one if none is
// attached, so that callers never need to check.
func FromContext(ctx context.Context) *Context {
	if c, ok := ctx.Value(ContextKey).(*Context); ok {
		return c
	}
	return newContext("")
}

// WithChildContext attaches a child of the current statistics context.
func WithChildContext(ctx context.Context, name string) (context.Context, *Context) {
	c := FromContext(ctx)
	child := newContext(name)
	c.mtx.Lock()
	c.Children = append(c.Children, child)
	c.mtx.Unlock()
	return context.WithValue(ctx, ContextKey, child), child
}

// Print renders the context tree as indented text.
func (c *Context) Print() string {
	sb := &strings.Builder{}
	c.print(sb, 0)
	return sb.String()
}

func (c *Context) print(sb *strings.Builder, depth int) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent + c.Name)
	for _, k := range Okeys(c.Values) {
		sb.WriteString(fmt.Sprintf(" %s=%v", k, c.Values[k]))
	}
	for _, k := range Okeys(c.Data) {
		sb.WriteString(fmt.Sprintf(" %s=%q", k, c.Data[k]))
	}
	sb.WriteString("\n")
	for _, child := range c.Children {
		child.print(sb, depth+1)
	}
}
