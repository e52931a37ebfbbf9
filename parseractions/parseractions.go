// Package parseractions holds flag value types for the argument shapes
// commands commonly accept: key=value properties, ranges and non-negative
// counts. Each type is a pflag.Value and also satisfies urfave's cli.Generic.
package parseractions

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

var (
	_ pflag.Value = (*KeyValue)(nil)
	_ pflag.Value = (*KeyValueAppend)(nil)
	_ pflag.Value = (*MultiKeyValue)(nil)
	_ pflag.Value = (*MultiKeyValueComma)(nil)
	_ pflag.Value = (*Range)(nil)
	_ pflag.Value = (*NonNegative)(nil)
)

func splitPair(s string) (key, value string, err error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", fmt.Errorf("expected 'key=value' type, but got: %s", s)
	}
	if key == "" {
		return "", "", fmt.Errorf("property key must be specified: %s", s)
	}
	return key, value, nil
}

// KeyValue collects repeated key=value flags into a map. A later value for
// the same key replaces the earlier one.
type KeyValue struct {
	Values map[string]string
}

func (kv *KeyValue) Set(s string) error {
	key, value, err := splitPair(s)
	if err != nil {
		return err
	}
	if kv.Values == nil {
		kv.Values = make(map[string]string)
	}
	kv.Values[key] = value
	return nil
}

func (kv *KeyValue) String() string {
	if kv == nil {
		return ""
	}
	return joinPairs(kv.Values)
}

func (kv *KeyValue) Type() string { return "key=value" }

// KeyValueAppend collects repeated key=value flags, keeping every value
// given for a key.
type KeyValueAppend struct {
	Values map[string][]string
}

func (kv *KeyValueAppend) Set(s string) error {
	key, value, err := splitPair(s)
	if err != nil {
		return err
	}
	if kv.Values == nil {
		kv.Values = make(map[string][]string)
	}
	kv.Values[key] = append(kv.Values[key], value)
	return nil
}

func (kv *KeyValueAppend) String() string {
	if kv == nil {
		return ""
	}
	flat := make(map[string]string, len(kv.Values))
	for k, v := range kv.Values {
		flat[k] = strings.Join(v, ";")
	}
	return joinPairs(flat)
}

func (kv *KeyValueAppend) Type() string { return "key=value" }

// MultiKeyValue parses each flag value as comma separated key=value pairs
// and appends one map per flag. Neither key nor value may contain ',' or
// '='. When RequiredKeys or OptionalKeys are set, keys are validated
// against them.
type MultiKeyValue struct {
	RequiredKeys []string
	OptionalKeys []string
	Values       []map[string]string
}

func (m *MultiKeyValue) Set(s string) error {
	params := make(map[string]string)
	for _, kv := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("expected comma separated 'key=value' pairs, but got: %s", kv)
		}
		if key == "" {
			return fmt.Errorf("each property key must be specified: %s", kv)
		}
		params[key] = value
	}
	if err := m.validateKeys(params); err != nil {
		return err
	}
	m.Values = append(m.Values, params)
	return nil
}

func (m *MultiKeyValue) validateKeys(params map[string]string) error {
	keys := sortedKeys(params)

	valid := append(slices.Clone(m.RequiredKeys), m.OptionalKeys...)
	if len(valid) > 0 {
		var invalid []string
		for _, k := range keys {
			if !slices.Contains(valid, k) {
				invalid = append(invalid, k)
			}
		}
		if len(invalid) > 0 {
			return fmt.Errorf("invalid keys %s specified; valid keys are: %s",
				strings.Join(invalid, ", "), strings.Join(valid, ", "))
		}
	}

	var missing []string
	for _, k := range m.RequiredKeys {
		if _, ok := params[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required keys %s; required keys are: %s",
			strings.Join(missing, ", "), strings.Join(m.RequiredKeys, ", "))
	}
	return nil
}

func (m *MultiKeyValue) String() string {
	if m == nil {
		return ""
	}
	parts := make([]string, 0, len(m.Values))
	for _, v := range m.Values {
		parts = append(parts, joinPairs(v))
	}
	return strings.Join(parts, " ")
}

func (m *MultiKeyValue) Type() string { return "key1=value1,key2=value2" }

// MultiKeyValueComma is MultiKeyValue where a value may itself contain
// commas: "a=1,2,b=3" yields {"a": "1,2", "b": "3"}.
type MultiKeyValueComma struct {
	MultiKeyValue
}

func (m *MultiKeyValueComma) Set(s string) error {
	params := make(map[string]string)
	key := ""
	for _, kv := range strings.Split(s, ",") {
		k, value, ok := strings.Cut(kv, "=")
		if ok {
			if k == "" {
				return fmt.Errorf("a key must be specified before '=': %s", kv)
			}
			params[k] = value
			key = k
			continue
		}
		if key == "" {
			return fmt.Errorf("a key=value pair is required: %s", kv)
		}
		params[key] += "," + kv
	}
	if err := m.validateKeys(params); err != nil {
		return err
	}
	m.Values = append(m.Values, params)
	return nil
}

// Range parses "4" as 4..4 and "6:9" as 6..9.
type Range struct {
	Min, Max int
}

func (r *Range) Set(s string) error {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		n, err := strconv.Atoi(parts[0])
		if err != nil {
			return fmt.Errorf("invalid range %q: %w", s, err)
		}
		r.Min, r.Max = n, n
	case 2:
		lo, err := strconv.Atoi(parts[0])
		if err != nil {
			return fmt.Errorf("invalid range %q: %w", s, err)
		}
		hi, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf("invalid range %q: %w", s, err)
		}
		if lo > hi {
			return fmt.Errorf("invalid range, %d is not less than %d", lo, hi)
		}
		r.Min, r.Max = lo, hi
	default:
		return fmt.Errorf("invalid range, too many values")
	}
	return nil
}

func (r *Range) String() string {
	if r == nil {
		return ""
	}
	if r.Min == r.Max {
		return strconv.Itoa(r.Min)
	}
	return strconv.Itoa(r.Min) + ":" + strconv.Itoa(r.Max)
}

func (r *Range) Type() string { return "min[:max]" }

// NonNegative is an integer that must be >= 0.
type NonNegative struct {
	Value int
}

func (n *NonNegative) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return fmt.Errorf("expected a non-negative integer, but got: %s", s)
	}
	n.Value = v
	return nil
}

func (n *NonNegative) String() string {
	if n == nil {
		return "0"
	}
	return strconv.Itoa(n.Value)
}

func (n *NonNegative) Type() string { return "int" }

func joinPairs(m map[string]string) string {
	keys := sortedKeys(m)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, ",")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
