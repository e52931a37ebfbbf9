package commands

import (
	"net/url"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/joona/osckit/command"
	oscerrors "github.com/joona/osckit/errors"
	"github.com/joona/osckit/parseractions"
	"github.com/joona/osckit/utils"
)

// CollectionList lists collection names with their document counts.
func CollectionList() command.Command {
	return &command.Lister{
		Description: "List collections",
		Take: func(c *command.Context) ([]string, [][]any, error) {
			cl, err := getClient(c)
			if err != nil {
				return nil, nil, err
			}
			collections, err := cl.Collections(c.Context())
			if err != nil {
				return nil, nil, err
			}
			rows := make([][]any, 0, len(collections))
			for _, coll := range collections {
				rows = append(rows, utils.GetItemProperties(coll, []string{"name", "count"}, nil, nil))
			}
			return []string{"Name", "Documents"}, rows, nil
		},
	}
}

// DocumentList lists the documents of a collection. --filter narrows the
// listing server side.
func DocumentList() command.Command {
	filters := &parseractions.KeyValue{}
	limit := &parseractions.NonNegative{}
	return &command.Lister{
		Description: "List documents of a collection",
		Arguments:   "<collection>",
		ExtraFlags: []cli.Flag{
			&cli.BoolFlag{Name: "long", Usage: "list additional fields in output"},
			&cli.GenericFlag{Name: "filter", Usage: "only list documents with this field value (repeat for multiple)", Value: filters},
			&cli.GenericFlag{Name: "limit", Usage: "maximum number of documents to list", Value: limit},
		},
		Take: func(c *command.Context) ([]string, [][]any, error) {
			args := c.Args()
			if len(args) != 1 {
				return nil, nil, oscerrors.Commandf("a collection name is required")
			}
			cl, err := getClient(c)
			if err != nil {
				return nil, nil, err
			}

			q := url.Values{}
			for k, v := range filters.Values {
				q.Set(k, v)
			}
			if c.CLI.IsSet("limit") {
				q.Set("limit", strconv.Itoa(limit.Value))
			}
			docs, err := cl.ListDocuments(c.Context(), args[0], q)
			if err != nil {
				return nil, nil, err
			}

			headers := []string{"ID", "Name"}
			attrs := []string{"id", "name"}
			if c.CLI.Bool("long") {
				headers = append(headers, "Revision", "Modified")
				attrs = append(attrs, "revision", "modified")
			}
			rows := make([][]any, 0, len(docs))
			for _, doc := range docs {
				rows = append(rows, utils.GetItemProperties(doc, attrs, nil, nil))
			}
			return headers, rows, nil
		},
	}
}
