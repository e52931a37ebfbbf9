package api

import (
	"context"
	"fmt"
	"net/url"

	oscerrors "github.com/joona/osckit/errors"
)

// FindAttr looks a resource up by attr (default "name") and then by id.
// Most services wrap the list in {"<resource>": [...]}; resource defaults
// to p.
func (a *BaseAPI) FindAttr(ctx context.Context, p, value, attr, resource string) (Record, error) {
	if attr == "" {
		attr = "name"
	}
	if resource == "" {
		resource = p
	}

	items, err := a.List(ctx, p, ListOptions{Query: url.Values{attr: {value}}, Resource: resource})
	if err != nil {
		return nil, err
	}
	switch {
	case len(items) == 1:
		return items[0], nil
	case len(items) > 1:
		return nil, &oscerrors.AmbiguousMatchError{Kind: resource, Query: value, IDs: recordIDs(items)}
	}

	items, err = a.List(ctx, p, ListOptions{Query: url.Values{"id": {value}}, Resource: resource})
	if err != nil {
		return nil, err
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return nil, &oscerrors.NotFoundError{Kind: resource, Query: value}
}

// FindBulk lists p and keeps the items whose attributes equal every entry
// of match. Items lacking a matched attribute are skipped.
func (a *BaseAPI) FindBulk(ctx context.Context, p string, match map[string]string) ([]Record, error) {
	items, err := a.List(ctx, p, ListOptions{})
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, item := range items {
		if matches(item, match) {
			out = append(out, item)
		}
	}
	return out, nil
}

func matches(item Record, match map[string]string) bool {
	for k, want := range match {
		v, ok := item[k]
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

// FindOne is FindBulk that insists on exactly one result.
func (a *BaseAPI) FindOne(ctx context.Context, p string, match map[string]string) (Record, error) {
	items, err := a.FindBulk(ctx, p, match)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, &oscerrors.NotFoundError{Kind: p, Query: describeMatch(match)}
	case 1:
		return items[0], nil
	}
	return nil, &oscerrors.AmbiguousMatchError{Kind: p, Query: describeMatch(match), IDs: recordIDs(items)}
}

// Find fetches p/value directly and, when that misses and attr is set,
// falls back to a FindOne on attr.
func (a *BaseAPI) Find(ctx context.Context, p, value, attr string) (Record, error) {
	rec, err := a.Get(ctx, p, value)
	if err == nil {
		return rec, nil
	}
	if !isLookupMiss(err) {
		return nil, err
	}
	if attr == "" {
		return nil, &oscerrors.NotFoundError{Kind: p, Query: value, Err: err}
	}
	rec, err = a.FindOne(ctx, p, map[string]string{attr: value})
	if err != nil {
		if isLookupMiss(err) {
			return nil, &oscerrors.NotFoundError{Kind: p, Query: value, Err: err}
		}
		return nil, err
	}
	return rec, nil
}

func recordIDs(items []Record) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID())
	}
	return ids
}

func describeMatch(match map[string]string) string {
	if len(match) == 1 {
		for _, v := range match {
			return v
		}
	}
	return url.Values(toValues(match)).Encode()
}

func toValues(m map[string]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = []string{v}
	}
	return out
}
