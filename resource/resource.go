// Package resource resolves a user supplied name or ID to a single resource,
// whatever lookup capabilities the underlying client offers.
package resource

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	oscerrors "github.com/joona/osckit/errors"
)

// Filters are extra query attributes passed to Find and List.
type Filters map[string]string

type Getter[T any] interface {
	Get(ctx context.Context, id string) (T, error)
}

type Finder[T any] interface {
	Find(ctx context.Context, filters Filters) (T, error)
}

type Lister[T any] interface {
	List(ctx context.Context, filters Filters) ([]T, error)
}

// Manager describes what a client can do for one resource kind. Nil
// function fields are capabilities the client lacks.
type Manager[T any] struct {
	Kind string

	Get  func(ctx context.Context, id string) (T, error)
	Find func(ctx context.Context, filters Filters) (T, error)
	List func(ctx context.Context, filters Filters) ([]T, error)

	// IDOf and NameOf read identity off a listed item. The defaults handle
	// maps, ID()/Name() methods and ID/Name struct fields.
	IDOf   func(T) string
	NameOf func(T) string

	// NameAttr is the filter key Find receives the name under. Default "name".
	NameAttr string
}

// Describe builds a Manager from whichever of Getter, Finder and Lister
// client implements.
func Describe[T any](kind string, client any) Manager[T] {
	m := Manager[T]{Kind: kind}
	if g, ok := client.(Getter[T]); ok {
		m.Get = g.Get
	}
	if f, ok := client.(Finder[T]); ok {
		m.Find = f.Find
	}
	if l, ok := client.(Lister[T]); ok {
		m.List = l.List
	}
	return m
}

type findConfig struct {
	filters Filters
}

type FindOption func(*findConfig)

// WithFilters narrows Find and List, for example to a domain.
func WithFilters(f Filters) FindOption {
	return func(c *findConfig) { c.filters = f }
}

// Find resolves nameOrID: a direct Get, then Find by name, then a scan of
// List matching IDs first and names second.
func Find[T any](ctx context.Context, m Manager[T], nameOrID string, opts ...FindOption) (T, error) {
	var zero T
	var cfg findConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	kind := m.Kind
	if kind == "" {
		kind = "resource"
	}

	if m.Get != nil {
		res, err := m.Get(ctx, nameOrID)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, oscerrors.ErrNotFound) {
			return zero, err
		}
	}

	if m.Find != nil {
		nameAttr := m.NameAttr
		if nameAttr == "" {
			nameAttr = "name"
		}
		filters := make(Filters, len(cfg.filters)+1)
		for k, v := range cfg.filters {
			filters[k] = v
		}
		filters[nameAttr] = nameOrID

		res, err := m.Find(ctx, filters)
		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, oscerrors.ErrAmbiguousMatch):
			var amb *oscerrors.AmbiguousMatchError
			if errors.As(err, &amb) {
				named := *amb
				named.Kind, named.Query = kind, nameOrID
				return zero, &named
			}
			return zero, &oscerrors.AmbiguousMatchError{Kind: kind, Query: nameOrID}
		case !errors.Is(err, oscerrors.ErrNotFound):
			return zero, err
		}
	}

	if m.List == nil {
		return zero, &oscerrors.NotFoundError{Kind: kind, Query: nameOrID}
	}
	items, err := m.List(ctx, cfg.filters)
	if err != nil {
		return zero, err
	}

	idOf, nameOf := m.IDOf, m.NameOf
	if idOf == nil {
		idOf = func(v T) string { return field(v, "id") }
	}
	if nameOf == nil {
		nameOf = func(v T) string { return field(v, "name") }
	}

	matches := scan(items, idOf, nameOrID)
	if len(matches) == 0 {
		matches = scan(items, nameOf, nameOrID)
	}
	switch len(matches) {
	case 0:
		return zero, &oscerrors.NotFoundError{Kind: kind, Query: nameOrID}
	case 1:
		return matches[0], nil
	}
	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, idOf(match))
	}
	return zero, &oscerrors.AmbiguousMatchError{Kind: kind, Query: nameOrID, IDs: ids}
}

func scan[T any](items []T, key func(T) string, want string) []T {
	var out []T
	for _, item := range items {
		if key(item) == want {
			out = append(out, item)
		}
	}
	return out
}

// field reads the id or name of v.
func field(v any, key string) string {
	switch t := v.(type) {
	case map[string]any:
		return stringify(t[key])
	case interface{ ID() string }:
		if key == "id" {
			return t.ID()
		}
	}
	if key == "name" {
		if n, ok := v.(interface{ Name() string }); ok {
			return n.Name()
		}
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			if val := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key())); val.IsValid() {
				return stringify(val.Interface())
			}
		}
	case reflect.Struct:
		name := "Name"
		if key == "id" {
			name = "ID"
		}
		if f := rv.FieldByName(name); f.IsValid() && f.CanInterface() {
			return stringify(f.Interface())
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}
