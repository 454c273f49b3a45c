package spec

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Load reads and parses a spec document from disk. YAML files are
// converted to JSON before flavor sniffing so both formats go through
// the same path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec document: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, &InputDocumentError{Path: path, Reason: fmt.Sprintf("invalid YAML: %v", err)}
		}
	}

	return Parse(data, path)
}

// Parse sniffs the document flavor from its top-level keys and hands
// off to the matching adapter. The path is only used in error text.
func Parse(data []byte, path string) (Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, &InputDocumentError{Path: path, Reason: "not valid JSON"}
	}

	switch {
	case gjson.GetBytes(data, "openapi").Exists(), gjson.GetBytes(data, "swagger").Exists():
		if !gjson.GetBytes(data, "paths").Exists() {
			return nil, &InputDocumentError{Path: path, Missing: "paths"}
		}
		return parseREST(data, path)

	case gjson.GetBytes(data, "message_types").Exists():
		return parseWebSocket(data, path)

	default:
		return nil, &InputDocumentError{
			Path:   path,
			Reason: `unrecognized document: expected top-level "openapi" (REST) or "message_types" (WebSocket)`,
		}
	}
}

// yamlToJSON re-encodes a YAML document as JSON.
func yamlToJSON(data []byte) ([]byte, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return json.Marshal(stringifyKeys(raw))
}

// stringifyKeys rewrites map[interface{}]interface{} (yaml.v3 output
// for some nested shapes) into map[string]interface{} so the result
// survives json.Marshal.
func stringifyKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			out[k] = stringifyKeys(inner)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			out[fmt.Sprint(k)] = stringifyKeys(inner)
		}
		return out
	case []interface{}:
		for i, inner := range val {
			val[i] = stringifyKeys(inner)
		}
		return val
	default:
		return v
	}
}
