package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/joona/osckit/command"
	oscerrors "github.com/joona/osckit/errors"
	"github.com/joona/osckit/resource"
)

// DocumentShow shows one document, found by ID or name. --save also writes
// it to a local file for later editing with document set.
func DocumentShow() command.Command {
	return &command.ShowOne{
		Description: "Show a document",
		Arguments:   "<collection> <document>",
		ExtraFlags: []cli.Flag{
			&cli.StringFlag{
				Name:  "save",
				Usage: "also write the document to this file (.json or .yaml)",
			},
		},
		Take: func(c *command.Context) ([]string, []any, error) {
			args := c.Args()
			if len(args) != 2 {
				return nil, nil, oscerrors.Commandf("collection and document are required")
			}
			cl, err := getClient(c)
			if err != nil {
				return nil, nil, err
			}
			doc, err := resource.Find(c.Context(), cl.Documents(args[0]), args[1])
			if err != nil {
				return nil, nil, err
			}

			if path := c.CLI.String("save"); path != "" {
				if err := writeDocument(path, formatOf(path), doc); err != nil {
					return nil, nil, err
				}
				c.Log().Info(fmt.Sprintf("saved %s (revision %s) to %s", doc.ID(), revision(doc), path))
			}
			columns, values := showRecord(doc)
			return columns, values, nil
		},
	}
}
