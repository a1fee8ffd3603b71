package core

import (
	"fmt"
	"strings"
)

// ViewID identifies a materialized view by schema and name.
// Two identifiers are equal iff both fields match exactly.
type ViewID struct {
	Schema string
	Name   string
}

// String returns the schema-qualified name as printed in statements.
func (v ViewID) String() string {
	return v.Schema + "." + v.Name
}

// ParseViewID splits a "schema.view" reference.
func ParseViewID(s string) (ViewID, error) {
	schema, name, ok := strings.Cut(s, ".")
	if !ok || schema == "" || name == "" {
		return ViewID{}, fmt.Errorf("invalid view reference %q: expected schema.view", s)
	}
	return ViewID{Schema: schema, Name: name}, nil
}

// Edge records that Dependent reads from Source, so Source must be
// refreshed before Dependent.
type Edge struct {
	Dependent ViewID
	Source    ViewID
}

func (e Edge) String() string {
	return e.Dependent.String() + " -> " + e.Source.String()
}
