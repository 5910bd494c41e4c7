package provenance

import (
	"bytes"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	perrors "github.com/cran/provTraceR/core/errors"
)

// FormatXML names the PROV-XML serialization.
const FormatXML = "PROV-XML"

// Compiled once; element names are matched by local name so any prefix
// bound to the PROV namespace works.
var (
	xmlEntityExpr    = xpath.MustCompile(`/*/*[local-name()='entity']`)
	xmlUsedExpr      = xpath.MustCompile(`//*[local-name()='used']/*[local-name()='entity']`)
	xmlGeneratedExpr = xpath.MustCompile(`//*[local-name()='wasGeneratedBy']/*[local-name()='entity']`)
)

// environment field names, keyed by the rdt element local name.
var xmlEnvironmentFields = map[string]func(*Environment, string){
	"script":          func(e *Environment, v string) { e.Script = v },
	"scriptTimeStamp": func(e *Environment, v string) { e.ScriptTimestamp = v },
	"scriptHash":      func(e *Environment, v string) { e.ScriptHash = v },
	"provTimestamp":   func(e *Environment, v string) { e.ExecutionTimestamp = v },
	"hashAlgorithm":   func(e *Environment, v string) { e.HashAlgorithm = v },
	"provDirectory":   func(e *Environment, v string) { e.ProvDirectory = v },
}

// ParseXML parses a W3C PROV-XML document carrying rdt attributes.
func ParseXML(data []byte, location string) (*Record, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &perrors.ParseError{Format: FormatXML, Path: location, Message: err.Error(), Err: err}
	}

	rec := &Record{Location: location, Format: FormatXML}
	entities := make(map[string]Entity)
	foundEnv := false

	for _, n := range xmlquery.QuerySelectorAll(doc, xmlEntityExpr) {
		id := xmlAttr(n, "id")
		fields := xmlFields(n)
		if id == environmentID {
			foundEnv = true
			for name, set := range xmlEnvironmentFields {
				set(&rec.Environment, fields[name])
			}
			continue
		}
		entities[id] = Entity{
			ID:        id,
			Name:      fields["name"],
			Value:     fields["value"],
			Type:      fields["type"],
			Hash:      fields["hash"],
			Timestamp: fields["timestamp"],
			Location:  fields["location"],
		}
	}
	if !foundEnv {
		return nil, perrors.NewParse(FormatXML, location, "missing environment entity")
	}

	rec.Inputs = selectFiles(entities, xmlRefs(doc, xmlUsedExpr), TypeFile, TypeURL)
	rec.Outputs = selectFiles(entities, xmlRefs(doc, xmlGeneratedExpr), TypeFile)
	return rec, nil
}

func xmlRefs(doc *xmlquery.Node, expr *xpath.Expr) map[string]bool {
	refs := make(map[string]bool)
	for _, n := range xmlquery.QuerySelectorAll(doc, expr) {
		if ref := xmlAttr(n, "ref"); ref != "" {
			refs[ref] = true
		}
	}
	return refs
}

// xmlAttr returns the value of the attribute with the given local name.
func xmlAttr(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// xmlFields maps child element local names to their trimmed text.
func xmlFields(n *xmlquery.Node) map[string]string {
	fields := make(map[string]string)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		v := strings.TrimSpace(c.InnerText())
		if v == "NA" {
			v = ""
		}
		fields[c.Data] = v
	}
	return fields
}
