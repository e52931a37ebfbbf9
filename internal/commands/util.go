// Package commands implements the sample host's collection and document
// commands on top of the osckit command bases.
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joona/osckit/api"
	"github.com/joona/osckit/clientmanager"
	"github.com/joona/osckit/command"
	oscerrors "github.com/joona/osckit/errors"
	"github.com/joona/osckit/format"
	"github.com/joona/osckit/internal/client"
	"github.com/joona/osckit/utils"
)

// Register adds every sample command to reg.
func Register(reg *command.Registry) error {
	for _, c := range []struct {
		name   string
		loader command.Loader
	}{
		{"collection list", CollectionList},
		{"document list", DocumentList},
		{"document show", DocumentShow},
		{"document create", DocumentCreate},
		{"document set", DocumentSet},
		{"document delete", DocumentDelete},
	} {
		if err := reg.Register(c.name, c.loader); err != nil {
			return err
		}
	}
	return nil
}

// getClient returns the document service client for this invocation.
func getClient(c *command.Context) (*client.Client, error) {
	return clientmanager.Get[*client.Client](c.Context(), c.Clients, client.ServiceType)
}

// hiddenFields never appear in show output.
var hiddenFields = []string{"links"}

// showRecord lays a document out as sorted field/value pairs. Nested
// objects and lists render through the format column types.
func showRecord(rec api.Record) ([]string, []any) {
	display, attrs := utils.ShowColumnsForResource(rec, nil, hiddenFields)
	return display, utils.GetItemProperties(rec, attrs, attrs, cellFormatters(rec, attrs))
}

func cellFormatters(rec api.Record, attrs []string) map[string]func(any) format.Formattable {
	formatters := map[string]func(any) format.Formattable{}
	for _, attr := range attrs {
		switch rec[attr].(type) {
		case map[string]any:
			formatters[attr] = func(v any) format.Formattable { return format.DictColumn(v.(map[string]any)) }
		case []any:
			formatters[attr] = listCell
		}
	}
	return formatters
}

func listCell(v any) format.Formattable {
	items := v.([]any)
	dicts := make([]map[string]any, 0, len(items))
	strs := make([]string, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			dicts = append(dicts, m)
			continue
		}
		strs = append(strs, format.Stringify(item))
	}
	if len(dicts) > 0 && len(strs) == 0 {
		return format.ListDictColumn(dicts)
	}
	return format.ListColumn(strs)
}

// readDocument loads a JSON or YAML document from path. An empty format is
// taken from the file extension.
func readDocument(path, formatName string) (api.Record, []byte, error) {
	raw, err := utils.ReadBlobFileContents(path)
	if err != nil {
		return nil, nil, err
	}
	if formatName == "" {
		formatName = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	var doc map[string]any
	switch strings.ToLower(formatName) {
	case "yaml", "yml":
		if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, nil, oscerrors.Commandf("invalid YAML in %s: %w", path, err)
		}
	case "json", "":
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, nil, oscerrors.Commandf("invalid JSON in %s: %w", path, err)
		}
	default:
		return nil, nil, oscerrors.Commandf("format must be json or yaml, got %q", formatName)
	}
	if doc == nil {
		return nil, nil, oscerrors.Commandf("%s does not hold a document", path)
	}

	canonical, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return doc, canonical, nil
}

// writeDocument saves rec to path as JSON or YAML, creating parent
// directories.
func writeDocument(path, formatName string, rec api.Record) error {
	var out []byte
	var err error
	switch strings.ToLower(formatName) {
	case "yaml", "yml":
		out, err = yaml.Marshal(map[string]any(rec))
	default:
		out, err = json.MarshalIndent(rec, "", "  ")
		out = append(out, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, out, 0o644)
}

// revision reads the optimistic locking counter of a document.
func revision(rec api.Record) string {
	return rec.String("revision")
}

// formatOf picks the document encoding from a file extension.
func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}
