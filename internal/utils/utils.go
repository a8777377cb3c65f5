// Package utils holds small helpers shared by the commands
package utils

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/fatih/structs"
)

// FieldTagNames returns the names set in the passed tag for the passed
// fields; fields without the tag or with "-" are skipped
func FieldTagNames(fields []*structs.Field, tag string) (names []string) {
	for _, f := range fields {
		if f == nil || !f.IsExported() {
			continue
		}
		t := f.Tag(tag)
		if i := strings.Index(t, ","); i != -1 {
			t = t[:i]
		}
		if t == "" || t == "-" {
			continue
		}
		names = append(names, t)
	}
	return
}

// KeyValueLines renders the exported fields of a struct as "key: value"
// lines using the json tag names as keys. Fields tagged with "-" and nil
// pointers are skipped; nested structs are not expanded.
func KeyValueLines(v any) []string {
	s := structs.New(v)
	var lines []string
	for _, f := range s.Fields() {
		if !f.IsExported() || f.Tag("json") == "-" {
			continue
		}
		switch f.Kind() {
		case reflect.Ptr:
			if f.IsZero() {
				continue
			}
		case reflect.Struct:
			if _, ok := f.Value().(time.Time); !ok {
				continue
			}
		}
		names := FieldTagNames([]*structs.Field{f}, "json")
		name := f.Name()
		if len(names) > 0 {
			name = names[0]
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, formatValue(f.Value())))
	}
	return lines
}

func formatValue(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case *time.Time:
		return t.UTC().Format(time.RFC3339)
	case *int:
		return fmt.Sprint(*t)
	case *bool:
		return fmt.Sprint(*t)
	case *string:
		return *t
	default:
		return fmt.Sprint(t)
	}
}
