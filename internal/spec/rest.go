package spec

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// restDocument adapts an OpenAPI 3 document. Endpoints are
// "METHOD /path" keys, schemas come from components.schemas, and
// component schemas carrying enum values surface as enums instead.
type restDocument struct {
	endpoints map[string]FieldMap
	schemas   map[string]FieldMap
	enums     map[string][]string
}

var restMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

func parseREST(data []byte, path string) (Document, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, &InputDocumentError{Path: path, Reason: fmt.Sprintf("invalid OpenAPI document: %v", err)}
	}

	d := &restDocument{
		endpoints: make(map[string]FieldMap),
		schemas:   make(map[string]FieldMap),
		enums:     make(map[string][]string),
	}

	if doc.Paths != nil {
		for p, item := range doc.Paths.Map() {
			for _, method := range restMethods {
				op := item.GetOperation(method)
				if op == nil {
					continue
				}
				d.endpoints[method+" "+p] = operationFields(op)
			}
		}
	}

	if doc.Components != nil {
		for name, sr := range doc.Components.Schemas {
			if sr == nil || sr.Value == nil {
				continue
			}
			if len(sr.Value.Enum) > 0 {
				values := make([]string, 0, len(sr.Value.Enum))
				for _, v := range sr.Value.Enum {
					values = append(values, fmt.Sprint(v))
				}
				d.enums[name] = values
				continue
			}
			d.schemas[name] = schemaFields(sr.Value)
		}
	}

	return d, nil
}

func (d *restDocument) Flavor() Flavor                 { return FlavorREST }
func (d *restDocument) Endpoints() map[string]FieldMap { return d.endpoints }
func (d *restDocument) Schemas() map[string]FieldMap   { return d.schemas }
func (d *restDocument) Enums() map[string][]string     { return d.enums }

func (d *restDocument) Resolve(name string) (FieldMap, bool) {
	fields, ok := d.schemas[name]
	return fields, ok
}

// operationFields flattens an operation into a field mapping:
// parameters by name, plus a "body" pseudo-field when the operation
// takes a request body.
func operationFields(op *openapi3.Operation) FieldMap {
	fields := make(FieldMap)

	for _, pr := range op.Parameters {
		if pr.Value == nil {
			continue
		}
		fields[pr.Value.In+":"+pr.Value.Name] = Field{
			Type:     schemaRefType(pr.Value.Schema),
			Required: pr.Value.Required,
			Ref:      schemaRefName(pr.Value.Schema),
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		for _, mt := range op.RequestBody.Value.Content {
			if mt.Schema == nil {
				continue
			}
			fields["body"] = Field{
				Type:     schemaRefType(mt.Schema),
				Required: op.RequestBody.Value.Required,
				Ref:      schemaRefName(mt.Schema),
			}
			break
		}
	}

	return fields
}

func schemaFields(schema *openapi3.Schema) FieldMap {
	required := make(map[string]bool, len(schema.Required))
	for _, r := range schema.Required {
		required[r] = true
	}

	fields := make(FieldMap, len(schema.Properties))
	for name, pr := range schema.Properties {
		fields[name] = Field{
			Type:     schemaRefType(pr),
			Required: required[name],
			Ref:      schemaRefName(pr),
		}
	}
	return fields
}

// schemaRefType reports the declared type of a schema reference. A
// bare $ref with no inline schema reports the referenced name.
func schemaRefType(sr *openapi3.SchemaRef) string {
	if sr == nil {
		return ""
	}
	if sr.Value != nil {
		if types := sr.Value.Type.Slice(); len(types) > 0 {
			return types[0]
		}
	}
	if name := refName(sr.Ref); name != "" {
		return name
	}
	return ""
}

// schemaRefName reports the schema name a reference points at,
// looking one level into array items so embedded list elements count
// as references too.
func schemaRefName(sr *openapi3.SchemaRef) string {
	if sr == nil {
		return ""
	}
	if name := refName(sr.Ref); name != "" {
		return name
	}
	if sr.Value != nil && sr.Value.Items != nil {
		return refName(sr.Value.Items.Ref)
	}
	return ""
}

// refName extracts the schema name from a "#/components/schemas/Name"
// reference string.
func refName(ref string) string {
	if ref == "" {
		return ""
	}
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}
