// Package utils collects the helpers command implementations share: field
// access on loosely typed resources, sorting, column bookkeeping and small
// environment and file conveniences.
package utils

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"

	oscerrors "github.com/joona/osckit/errors"
	"github.com/joona/osckit/format"
)

// Env returns the first non-empty environment variable of vars.
func Env(vars ...string) string {
	for _, v := range vars {
		if value := os.Getenv(v); value != "" {
			return value
		}
	}
	return ""
}

// EnvOr is Env with a fallback.
func EnvOr(def string, vars ...string) string {
	if v := Env(vars...); v != "" {
		return v
	}
	return def
}

// BuildKwargs returns {name: value} when value is non-zero and an empty map
// otherwise.
func BuildKwargs(name string, value any) map[string]any {
	kwargs := map[string]any{}
	if value != nil && !reflect.ValueOf(value).IsZero() {
		kwargs[name] = value
	}
	return kwargs
}

// CalculateHeaderAndAttrs narrows headers and their API attribute names to
// the requested columns. A column may be given by header or by attribute
// name; unknown columns pass through unchanged.
func CalculateHeaderAndAttrs(headers, attrs, columns []string) ([]string, []string) {
	if len(columns) == 0 {
		return headers, attrs
	}
	headerToAttr := make(map[string]string, len(headers))
	attrToHeader := make(map[string]string, len(attrs))
	for i := range min(len(headers), len(attrs)) {
		headerToAttr[headers[i]] = attrs[i]
		attrToHeader[attrs[i]] = headers[i]
	}

	outHeaders := make([]string, 0, len(columns))
	outAttrs := make([]string, 0, len(columns))
	for _, c := range columns {
		outAttrs = append(outAttrs, lookupOr(headerToAttr, c))
		outHeaders = append(outHeaders, lookupOr(attrToHeader, c))
	}
	return outHeaders, outAttrs
}

func lookupOr(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}

// BackwardCompatColLister renames list headers back to their deprecated
// names when the user asked for a deprecated column. columnMap maps old
// names to new ones.
func BackwardCompatColLister(headers, columns []string, columnMap map[string]string, logger *slog.Logger) []string {
	if len(columns) == 0 {
		return headers
	}
	out := slices.Clone(headers)
	for _, oldCol := range sortedKeys(columnMap) {
		newCol := columnMap[oldCol]
		if !slices.Contains(columns, oldCol) {
			continue
		}
		warnDeprecatedColumn(logger, oldCol, newCol)
		if i := slices.Index(out, newCol); i >= 0 {
			out[i] = oldCol
		}
	}
	return out
}

// BackwardCompatColShowOne is BackwardCompatColLister for a show record.
// The input map is left untouched.
func BackwardCompatColShowOne(obj map[string]any, columns []string, columnMap map[string]string, logger *slog.Logger) map[string]any {
	if len(columns) == 0 {
		return obj
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	for _, oldCol := range sortedKeys(columnMap) {
		newCol := columnMap[oldCol]
		if !slices.Contains(columns, oldCol) {
			continue
		}
		warnDeprecatedColumn(logger, oldCol, newCol)
		if v, ok := out[newCol]; ok {
			delete(out, newCol)
			out[oldCol] = v
		}
	}
	return out
}

func warnDeprecatedColumn(logger *slog.Logger, oldCol, newCol string) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(fmt.Sprintf("The column %q was deprecated, please use %q replace.", oldCol, newCol))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var errNoField = errors.New("no such field")

// GetField reads field from a map or struct. Struct fields match by name,
// case-insensitively, or by json tag.
func GetField(item any, field string) (any, error) {
	v, err := getField(item, field)
	if err != nil {
		return nil, oscerrors.Commandf("Resource doesn't have field %s", field)
	}
	return v, nil
}

func getField(item any, field string) (any, error) {
	rv := reflect.ValueOf(item)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, errNoField
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, errNoField
		}
		val := rv.MapIndex(reflect.ValueOf(field).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, errNoField
		}
		return val.Interface(), nil
	case reflect.Struct:
		t := rv.Type()
		for i := range t.NumField() {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
			if tag == field || strings.EqualFold(sf.Name, field) ||
				strings.EqualFold(sf.Name, strings.ReplaceAll(field, "_", "")) {
				return rv.Field(i).Interface(), nil
			}
		}
	}
	return nil, errNoField
}

// GetItemProperties returns the values of fields from item in order. A
// field "Display Name" reads attribute "display_name"; fields listed in
// mixedCase keep their case. Missing attributes read as "". Formatters wrap
// a raw value for output.
func GetItemProperties(item any, fields, mixedCase []string, formatters map[string]func(any) format.Formattable) []any {
	row := make([]any, 0, len(fields))
	for _, field := range fields {
		name := strings.ReplaceAll(field, " ", "_")
		if !slices.Contains(mixedCase, field) {
			name = strings.ToLower(name)
		}
		data, err := getField(item, name)
		if err != nil {
			data = ""
		}
		if f, ok := formatters[field]; ok {
			data = f(data)
		}
		row = append(row, data)
	}
	return row
}

// SortItems sorts items by sortStr, "key1:asc,key2:desc". The direction
// defaults to ascending and the first key is the most significant.
func SortItems[T any](items []T, sortStr string) ([]T, error) {
	sortStr = strings.TrimSpace(sortStr)
	if sortStr == "" {
		return items, nil
	}
	out := slices.Clone(items)
	keys := strings.Split(sortStr, ",")
	for i := len(keys) - 1; i >= 0; i-- {
		key, direction, hasDirection := strings.Cut(keys[i], ":")
		if hasDirection {
			if key == "" {
				return nil, oscerrors.Commandf("'<empty string>' is not a valid sort key")
			}
			if direction != "asc" && direction != "desc" {
				if direction == "" {
					direction = "<empty string>"
				}
				return nil, oscerrors.Commandf("'%s' is not a valid sort direction for sort key %s, use 'asc' or 'desc' instead", direction, key)
			}
		}

		values := make([]any, len(out))
		for j, item := range out {
			v, err := GetField(item, key)
			if err != nil {
				return nil, err
			}
			values[j] = v
		}
		idx := make([]int, len(out))
		for j := range idx {
			idx[j] = j
		}
		sort.SliceStable(idx, func(a, b int) bool {
			c := compareAny(values[idx[a]], values[idx[b]])
			if direction == "desc" {
				return c > 0
			}
			return c < 0
		})
		sorted := make([]T, len(out))
		for j, k := range idx {
			sorted[j] = out[k]
		}
		out = sorted
	}
	return out, nil
}

func compareAny(a, b any) int {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return cmp.Compare(fa, fb)
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		f, err := strconv.ParseFloat(rv.String(), 64)
		return f, err == nil
	}
	return 0, false
}

// FindMinMatch keeps the items whose attributes are all at least the given
// minimums and sorts them by sortAttr.
func FindMinMatch[T any](items []T, sortAttr string, minimums map[string]float64) ([]T, error) {
	var kept []T
	for _, item := range items {
		ok := true
		for attr, minimum := range minimums {
			v, err := GetField(item, attr)
			if err != nil {
				return nil, err
			}
			f, isNum := toFloat(v)
			if !isNum {
				return nil, oscerrors.Commandf("field %s is not numeric", attr)
			}
			if f < minimum {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, item)
		}
	}
	return SortItems(kept, sortAttr)
}

// SelectVersion returns the entry of versions registered for version.
func SelectVersion[T any](api, version string, versions map[string]T) (T, error) {
	if v, ok := versions[version]; ok {
		return v, nil
	}
	var zero T
	supported := sortedKeys(versions)
	sort.SliceStable(supported, func(i, j int) bool {
		return compareVersions(supported[i], supported[j]) < 0
	})
	return zero, &oscerrors.UnsupportedVersionError{API: api, Version: version, Supported: supported}
}

func compareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := range max(len(pa), len(pb)) {
		var na, nb int
		if i < len(pa) {
			na, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			nb, _ = strconv.Atoi(pb[i])
		}
		if c := cmp.Compare(na, nb); c != 0 {
			return c
		}
	}
	return 0
}

// IsASCII reports whether s is pure ASCII.
func IsASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// ReadBlobFileContents returns the trimmed contents of path.
func ReadBlobFileContents(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", oscerrors.Commandf("Error occurred trying to read from file %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ShowColumnsForResource derives the display columns and matching attribute
// names for a show command. columnMap renames attributes for display and
// invisible attributes are hidden. Display columns come back sorted.
func ShowColumnsForResource(res map[string]any, columnMap map[string]string, invisible []string) ([]string, []string) {
	var display []string
	for k := range res {
		if !slices.Contains(invisible, k) {
			display = append(display, k)
		}
	}

	displayToAttr := map[string]string{}
	for _, attr := range sortedKeys(columnMap) {
		shown := columnMap[attr]
		if i := slices.Index(display, attr); i >= 0 {
			displayToAttr[shown] = attr
			display = slices.Delete(display, i, i+1)
		}
		if !slices.Contains(display, shown) {
			display = append(display, shown)
		}
	}
	sort.Strings(display)

	attrs := make([]string, 0, len(display))
	for _, col := range display {
		attrs = append(attrs, lookupOr(displayToAttr, col))
	}
	return display, attrs
}
