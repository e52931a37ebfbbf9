package format

import (
	"encoding/json"
	"fmt"
	"strings"

	diff "github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// JSONDiff compares two JSON documents structurally and returns the changed
// lines of an ascii diff. modified is false when the documents are equal.
func JSONDiff(before, after []byte, color bool) (out string, modified bool, err error) {
	d, err := diff.New().Compare(before, after)
	if err != nil {
		return "", false, fmt.Errorf("compare json: %w", err)
	}
	if !d.Modified() {
		return "", false, nil
	}

	var left any
	if err := json.Unmarshal(before, &left); err != nil {
		return "", true, fmt.Errorf("decode json: %w", err)
	}
	f := formatter.NewAsciiFormatter(left, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       color,
	})
	ascii, err := f.Format(d)
	if err != nil {
		return "", true, err
	}

	var changed []string
	for _, line := range strings.Split(ascii, "\n") {
		if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") || strings.Contains(line, "\x1b[") {
			changed = append(changed, line)
		}
	}
	return strings.Join(changed, "\n"), true, nil
}
