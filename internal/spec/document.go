// Package spec loads upstream API description documents and exposes
// them through one flavor-independent view: named subjects (endpoints
// and schemas) with field mappings, plus named enums with ordered
// values. Two adapters implement the view, one for OpenAPI 3 documents
// and one for the WebSocket message schema format.
package spec

import (
	"fmt"
	"sort"
)

// Flavor identifies the document format.
type Flavor string

const (
	// FlavorREST is an OpenAPI 3 document
	FlavorREST Flavor = "rest"
	// FlavorWebSocket is a WebSocket message schema document
	FlavorWebSocket Flavor = "websocket"
)

// Field describes one field of a subject.
type Field struct {
	// Type is the declared type ("string", "array", "Content", ...)
	Type string
	// Required reports whether the field is mandatory
	Required bool
	// Ref is the name of a referenced schema subject, if the field
	// embeds one (directly or as array items). Empty otherwise.
	Ref string
}

// FieldMap maps field names to their descriptors.
type FieldMap map[string]Field

// Document is the flavor-independent view of a spec snapshot.
type Document interface {
	// Flavor identifies the underlying format.
	Flavor() Flavor

	// Endpoints returns the operation-like subjects: "METHOD /path"
	// keys for REST, "client.Name"/"server.Name" message types for
	// WebSocket.
	Endpoints() map[string]FieldMap

	// Schemas returns the pure data subjects: component schemas for
	// REST (excluding enum schemas), config types for WebSocket.
	Schemas() map[string]FieldMap

	// Enums returns enum names mapped to their ordered allowed values.
	Enums() map[string][]string

	// Resolve maps a schema reference name to its field mapping.
	// The second result is false when the name is unknown.
	Resolve(name string) (FieldMap, bool)
}

// InputDocumentError indicates a spec file whose structure is missing
// a required top-level element. It is fatal: no partial diff is
// attempted against a malformed document.
type InputDocumentError struct {
	Path    string
	Missing string // the absent top-level key
	Reason  string
}

func (e *InputDocumentError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("invalid spec document %s: missing top-level %q", e.Path, e.Missing)
	}
	return fmt.Sprintf("invalid spec document %s: %s", e.Path, e.Reason)
}

// SubjectNames returns the sorted keys of a subject map. Sorted access
// keeps every consumer deterministic.
func SubjectNames(subjects map[string]FieldMap) []string {
	names := make([]string, 0, len(subjects))
	for name := range subjects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SubjectCount returns the total number of subjects in a document,
// endpoints plus schemas plus enums.
func SubjectCount(doc Document) int {
	return len(doc.Endpoints()) + len(doc.Schemas()) + len(doc.Enums())
}
