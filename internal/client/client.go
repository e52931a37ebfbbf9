// Package client talks to the document service the sample host manages:
// named collections holding JSON documents with a revision counter.
package client

import (
	"context"
	"net/url"
	"path"

	"github.com/joona/osckit/api"
	"github.com/joona/osckit/clientmanager"
	"github.com/joona/osckit/resource"
)

// ServiceType is the catalog type of the document service.
const ServiceType = "document"

// Client wraps the REST surface of one document service endpoint.
type Client struct {
	*api.BaseAPI
}

// New returns a client for the document service at endpoint.
func New(sess api.Requester, endpoint string, opts ...api.Option) *Client {
	return &Client{BaseAPI: api.New(sess, ServiceType, endpoint, opts...)}
}

// Factory builds the client from the manager's session and catalog.
func Factory(ctx context.Context, m *clientmanager.ClientManager) (any, error) {
	sess, err := m.Session(ctx)
	if err != nil {
		return nil, err
	}
	endpoint, err := m.EndpointFor(ctx, ServiceType, m.Config.RegionName, m.Config.Interface)
	if err != nil {
		return nil, err
	}
	return New(sess, endpoint), nil
}

// Collections lists every collection.
func (c *Client) Collections(ctx context.Context) ([]api.Record, error) {
	return c.List(ctx, "collections", api.ListOptions{})
}

func documentsPath(collection string) string {
	return path.Join("collections", url.PathEscape(collection), "documents")
}

// Documents describes the documents of collection for name-or-ID lookup.
func (c *Client) Documents(collection string) resource.Manager[api.Record] {
	return resource.ForAPI(c.BaseAPI, documentsPath(collection), "document")
}

// ListDocuments returns the documents of collection matching filters.
func (c *Client) ListDocuments(ctx context.Context, collection string, filters url.Values) ([]api.Record, error) {
	return c.List(ctx, documentsPath(collection), api.ListOptions{Query: filters})
}

// CreateDocument stores a new document.
func (c *Client) CreateDocument(ctx context.Context, collection string, doc api.Record) (api.Record, error) {
	created, err := c.Create(ctx, documentsPath(collection), map[string]any{"document": doc})
	if err != nil {
		return nil, err
	}
	if inner, ok := created["document"].(map[string]any); ok {
		return inner, nil
	}
	return created, nil
}

// SaveDocument replaces document id.
func (c *Client) SaveDocument(ctx context.Context, collection, id string, doc api.Record) (api.Record, error) {
	return c.Update(ctx, documentsPath(collection), id, map[string]any{"document": doc})
}

// DeleteDocument removes document id.
func (c *Client) DeleteDocument(ctx context.Context, collection, id string) error {
	return c.Delete(ctx, documentsPath(collection)+"/"+url.PathEscape(id))
}
