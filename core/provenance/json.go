package provenance

import (
	"encoding/json"
	"fmt"
	"strconv"

	perrors "github.com/cran/provTraceR/core/errors"
)

// FormatJSON names the PROV-JSON serialization.
const FormatJSON = "PROV-JSON"

const environmentID = "rdt:environment"

// provJSON is the subset of a PROV-JSON document we read.
type provJSON struct {
	Entity         map[string]map[string]any `json:"entity"`
	Used           map[string]map[string]any `json:"used"`
	WasGeneratedBy map[string]map[string]any `json:"wasGeneratedBy"`
}

// ParseJSON parses a PROV-JSON document as written by rdt and rdtLite.
// location is only used for error messages and Record.Location.
func ParseJSON(data []byte, location string) (*Record, error) {
	var doc provJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &perrors.ParseError{Format: FormatJSON, Path: location, Message: err.Error(), Err: err}
	}

	env, ok := doc.Entity[environmentID]
	if !ok {
		return nil, perrors.NewParse(FormatJSON, location, "missing environment entity")
	}

	rec := &Record{
		Location: location,
		Format:   FormatJSON,
		Environment: Environment{
			Script:             jsonString(env, "rdt:script"),
			ScriptTimestamp:    jsonString(env, "rdt:scriptTimeStamp"),
			ScriptHash:         jsonString(env, "rdt:scriptHash"),
			ExecutionTimestamp: jsonString(env, "rdt:provTimestamp"),
			HashAlgorithm:      jsonString(env, "rdt:hashAlgorithm"),
			ProvDirectory:      jsonString(env, "rdt:provDirectory"),
		},
	}

	entities := make(map[string]Entity, len(doc.Entity))
	for id, attrs := range doc.Entity {
		if id == environmentID {
			continue
		}
		entities[id] = Entity{
			ID:        id,
			Name:      jsonString(attrs, "rdt:name"),
			Value:     jsonString(attrs, "rdt:value"),
			Type:      jsonString(attrs, "rdt:type"),
			Hash:      jsonString(attrs, "rdt:hash"),
			Timestamp: jsonString(attrs, "rdt:timestamp"),
			Location:  jsonString(attrs, "rdt:location"),
		}
	}

	rec.Inputs = selectFiles(entities, jsonRefs(doc.Used), TypeFile, TypeURL)
	rec.Outputs = selectFiles(entities, jsonRefs(doc.WasGeneratedBy), TypeFile)
	return rec, nil
}

// jsonRefs collects the prov:entity ids of a relation table.
func jsonRefs(relations map[string]map[string]any) map[string]bool {
	refs := make(map[string]bool, len(relations))
	for _, rel := range relations {
		if id := jsonString(rel, "prov:entity"); id != "" {
			refs[id] = true
		}
	}
	return refs
}

// jsonString reads an attribute as a string. Collectors write some
// attributes as numbers or booleans, and "NA" for missing values.
func jsonString(attrs map[string]any, key string) string {
	v, ok := attrs[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		if val == "NA" {
			return ""
		}
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
		return ""
	default:
		return fmt.Sprint(val)
	}
}
