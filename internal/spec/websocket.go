package spec

import (
	"encoding/json"
	"fmt"
	"strings"
)

// websocketDocument adapts the WebSocket message schema format:
// message_types.client / message_types.server become endpoint-like
// subjects ("client.Name", "server.Name"), config_types become schema
// subjects, enums map names to ordered value lists.
type websocketDocument struct {
	endpoints map[string]FieldMap
	schemas   map[string]FieldMap
	enums     map[string][]string
}

type websocketRaw struct {
	MessageTypes *struct {
		Client map[string]map[string]json.RawMessage `json:"client"`
		Server map[string]map[string]json.RawMessage `json:"server"`
	} `json:"message_types"`
	ConfigTypes map[string]map[string]json.RawMessage `json:"config_types"`
	Enums       map[string][]string                   `json:"enums"`
}

func parseWebSocket(data []byte, path string) (Document, error) {
	var raw websocketRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &InputDocumentError{Path: path, Reason: fmt.Sprintf("invalid schema document: %v", err)}
	}
	if raw.MessageTypes == nil {
		return nil, &InputDocumentError{Path: path, Missing: "message_types"}
	}

	d := &websocketDocument{
		endpoints: make(map[string]FieldMap),
		schemas:   make(map[string]FieldMap),
		enums:     make(map[string][]string),
	}

	knownTypes := make(map[string]bool, len(raw.ConfigTypes))
	for name := range raw.ConfigTypes {
		knownTypes[name] = true
	}

	for name, fields := range raw.MessageTypes.Client {
		fm, err := websocketFields(fields, knownTypes)
		if err != nil {
			return nil, &InputDocumentError{Path: path, Reason: fmt.Sprintf("message type %q: %v", name, err)}
		}
		d.endpoints["client."+name] = fm
	}
	for name, fields := range raw.MessageTypes.Server {
		fm, err := websocketFields(fields, knownTypes)
		if err != nil {
			return nil, &InputDocumentError{Path: path, Reason: fmt.Sprintf("message type %q: %v", name, err)}
		}
		d.endpoints["server."+name] = fm
	}
	for name, fields := range raw.ConfigTypes {
		fm, err := websocketFields(fields, knownTypes)
		if err != nil {
			return nil, &InputDocumentError{Path: path, Reason: fmt.Sprintf("config type %q: %v", name, err)}
		}
		d.schemas[name] = fm
	}
	for name, values := range raw.Enums {
		d.enums[name] = values
	}

	return d, nil
}

func (d *websocketDocument) Flavor() Flavor                 { return FlavorWebSocket }
func (d *websocketDocument) Endpoints() map[string]FieldMap { return d.endpoints }
func (d *websocketDocument) Schemas() map[string]FieldMap   { return d.schemas }
func (d *websocketDocument) Enums() map[string][]string     { return d.enums }

func (d *websocketDocument) Resolve(name string) (FieldMap, bool) {
	fields, ok := d.schemas[name]
	return fields, ok
}

// websocketFields decodes one field mapping. Each field value is
// either a shorthand type string ("string", "Content", "Content[]",
// "Content?") or an object {"type": ..., "required": ...}. A trailing
// "?" marks the shorthand optional; "[]" marks a list. Types naming a
// config type become references.
func websocketFields(fields map[string]json.RawMessage, knownTypes map[string]bool) (FieldMap, error) {
	fm := make(FieldMap, len(fields))
	for name, rawField := range fields {
		var typeStr string
		if err := json.Unmarshal(rawField, &typeStr); err == nil {
			fm[name] = shorthandField(typeStr, knownTypes)
			continue
		}

		var obj struct {
			Type     string `json:"type"`
			Required bool   `json:"required"`
		}
		if err := json.Unmarshal(rawField, &obj); err != nil {
			return nil, fmt.Errorf("field %q: expected type string or object, got %s", name, rawField)
		}
		f := shorthandField(obj.Type, knownTypes)
		f.Required = obj.Required
		fm[name] = f
	}
	return fm, nil
}

func shorthandField(typeStr string, knownTypes map[string]bool) Field {
	f := Field{Required: true}

	if strings.HasSuffix(typeStr, "?") {
		typeStr = strings.TrimSuffix(typeStr, "?")
		f.Required = false
	}
	f.Type = typeStr

	element := strings.TrimSuffix(typeStr, "[]")
	if knownTypes[element] {
		f.Ref = element
	}
	return f
}
