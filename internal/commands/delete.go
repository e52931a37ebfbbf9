package commands

import (
	"github.com/urfave/cli/v2"

	"github.com/joona/osckit/command"
	oscerrors "github.com/joona/osckit/errors"
	"github.com/joona/osckit/resource"
)

// DocumentDelete deletes documents of the collection given by --collection.
func DocumentDelete() command.Command {
	return &command.Deleter{
		Description: "Delete documents",
		Kind:        "document",
		ExtraFlags: []cli.Flag{
			&cli.StringFlag{Name: "collection", Usage: "collection holding the documents"},
		},
		Delete: func(c *command.Context, nameOrID string) error {
			coll := c.CLI.String("collection")
			if coll == "" {
				return oscerrors.Commandf("--collection is required")
			}
			cl, err := getClient(c)
			if err != nil {
				return err
			}
			doc, err := resource.Find(c.Context(), cl.Documents(coll), nameOrID)
			if err != nil {
				return err
			}
			return cl.DeleteDocument(c.Context(), coll, doc.ID())
		},
	}
}
