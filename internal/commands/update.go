package commands

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/joona/osckit/api"
	"github.com/joona/osckit/command"
	oscerrors "github.com/joona/osckit/errors"
	"github.com/joona/osckit/format"
	"github.com/joona/osckit/parseractions"
	"github.com/joona/osckit/resource"
)

func documentFileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Usage: "document contents as a JSON or YAML file",
		},
		&cli.StringFlag{
			Name:  "file-format",
			Usage: "json or yaml (default: from the file extension)",
		},
	}
}

// DocumentCreate stores a new document from --file and/or --property.
func DocumentCreate() command.Command {
	props := &parseractions.KeyValue{}
	return &command.Creator{ShowOne: command.ShowOne{
		Description: "Create a document",
		Arguments:   "<collection>",
		ExtraFlags: append(documentFileFlags(),
			&cli.GenericFlag{Name: "property", Usage: "set a top-level field (repeat for multiple)", Value: props},
		),
		Take: func(c *command.Context) ([]string, []any, error) {
			args := c.Args()
			if len(args) != 1 {
				return nil, nil, oscerrors.Commandf("a collection name is required")
			}
			doc := api.Record{}
			if path := c.CLI.String("file"); path != "" {
				fromFile, _, err := readDocument(path, c.CLI.String("file-format"))
				if err != nil {
					return nil, nil, err
				}
				doc = fromFile
			}
			for k, v := range props.Values {
				doc[k] = v
			}
			if len(doc) == 0 {
				return nil, nil, oscerrors.Commandf("nothing to create, use --file or --property")
			}

			cl, err := getClient(c)
			if err != nil {
				return nil, nil, err
			}
			created, err := cl.CreateDocument(c.Context(), args[0], doc)
			if err != nil {
				return nil, nil, err
			}
			columns, values := showRecord(created)
			return columns, values, nil
		},
	}}
}

// DocumentSet replaces a document with the contents of --file. The local
// copy must carry the server's current revision; --dry-run prints the
// JSON diff without saving.
func DocumentSet() command.Command {
	return &command.Basic{
		Description: "Replace a document from a local file",
		Arguments:   "<collection> <document>",
		ExtraFlags: append(documentFileFlags(),
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "show the diff against the server copy without saving",
			},
		),
		Run: func(c *command.Context) error {
			args := c.Args()
			if len(args) != 2 {
				return oscerrors.Commandf("collection and document are required")
			}
			path := c.CLI.String("file")
			if path == "" {
				return oscerrors.Commandf("--file is required")
			}
			local, localJSON, err := readDocument(path, c.CLI.String("file-format"))
			if err != nil {
				return err
			}

			cl, err := getClient(c)
			if err != nil {
				return err
			}
			server, err := resource.Find(c.Context(), cl.Documents(args[0]), args[1])
			if err != nil {
				return err
			}
			serverJSON, err := json.MarshalIndent(server, "", "  ")
			if err != nil {
				return err
			}

			out := c.Stdout()
			delta, modified, err := format.JSONDiff(serverJSON, localJSON, false)
			if err != nil {
				return err
			}
			if !modified {
				fmt.Fprintln(out, "No changes detected, nothing to do.")
				return nil
			}
			fmt.Fprintln(out, "=== Diff (server -> local) ===")
			fmt.Fprintln(out, delta)

			if revision(local) != revision(server) {
				return oscerrors.Commandf("document changed on server (server revision %s, local revision %s)",
					revision(server), revision(local))
			}
			if c.CLI.Bool("dry-run") {
				fmt.Fprintf(out, "[DRY-RUN] would save document %s in collection %s\n", server.ID(), args[0])
				return nil
			}

			saved, err := cl.SaveDocument(c.Context(), args[0], server.ID(), local)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "updated %s: revision %s -> %s\n", server.ID(), revision(server), revision(saved))
			return nil
		},
	}
}
