package resource

import (
	"context"
	"net/url"
	"path"

	"github.com/joona/osckit/api"
	oscerrors "github.com/joona/osckit/errors"
)

// ForAPI describes the collection at p of a BaseAPI. Find queries the
// collection with the filters and insists on a single result.
func ForAPI(base *api.BaseAPI, p, kind string) Manager[api.Record] {
	if kind == "" {
		kind = path.Base(p)
	}
	resource := path.Base(p)

	list := func(ctx context.Context, filters Filters) ([]api.Record, error) {
		q := url.Values{}
		for k, v := range filters {
			q.Set(k, v)
		}
		return base.List(ctx, p, api.ListOptions{Query: q, Resource: resource})
	}

	return Manager[api.Record]{
		Kind: kind,
		Get: func(ctx context.Context, id string) (api.Record, error) {
			return base.Get(ctx, p, id)
		},
		Find: func(ctx context.Context, filters Filters) (api.Record, error) {
			items, err := list(ctx, filters)
			if err != nil {
				return nil, err
			}
			switch len(items) {
			case 0:
				return nil, &oscerrors.NotFoundError{Kind: kind}
			case 1:
				return items[0], nil
			}
			ids := make([]string, 0, len(items))
			for _, item := range items {
				ids = append(ids, item.ID())
			}
			return nil, &oscerrors.AmbiguousMatchError{Kind: kind, IDs: ids}
		},
		List:   list,
		IDOf:   api.Record.ID,
		NameOf: api.Record.Name,
	}
}
