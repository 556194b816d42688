// Package formatter reshapes decoded MFT records into output documents.
//
// Both Standard and Timeline are pure: they touch nothing but their
// arguments and are safe to call from any number of goroutines as long as
// each call owns its record.
package formatter

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/cdtdelta/mft2es/internal/model"
)

// ParseTags turns a comma-separated tag list into the tag sequence attached
// to every document. The default "mft" tag always comes first; extra tags are
// trimmed and empty ones dropped.
func ParseTags(extra string) []string {
	tags := []string{model.DefaultTag}
	for _, t := range strings.Split(extra, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ByType re-keys an attribute list by header.type_code. When a record holds
// several attributes of one type the last one wins. Attributes without a
// string type_code are dropped.
func ByType(attrs []any) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, a := range attrs {
		attr, ok := a.(map[string]any)
		if !ok {
			continue
		}
		code, ok := asMap(attr[model.KeyHeader])[model.KeyTypeCode].(string)
		if !ok {
			continue
		}
		out[code] = attr
	}
	return out
}

// HexVCN renders a virtual cluster number as lowercase hex with a 0x prefix.
// It returns false for zero, null and anything that is not an unsigned
// integer. Not re-entrant: a value that is already a hex string is reported
// as not convertible and must be left alone by the caller.
func HexVCN(v any) (string, bool) {
	var n uint64
	switch val := v.(type) {
	case json.Number:
		u, err := strconv.ParseUint(val.String(), 10, 64)
		if err != nil {
			return "", false
		}
		n = u
	case uint64:
		n = val
	case uint32:
		n = uint64(val)
	case uint:
		n = uint64(val)
	case int:
		if val < 0 {
			return "", false
		}
		n = uint64(val)
	case int64:
		if val < 0 {
			return "", false
		}
		n = uint64(val)
	case float64:
		if val < 0 || val >= 1<<64 || val != float64(uint64(val)) {
			return "", false
		}
		n = uint64(val)
	default:
		return "", false
	}
	if n == 0 {
		return "", false
	}
	return fmt.Sprintf("0x%x", n), true
}

// Standard converts one record into the default document shape: attributes
// keyed by type, the resolved path injected into FileName, VCN extents of
// Data and Bitmap in hex, and the tag list. rec is modified in place and
// returned; it must not be formatted twice.
func Standard(rec model.Record, path string, tags []string) model.Document {
	attrs, _ := rec[model.KeyAttributes].([]any)
	byType := ByType(attrs)
	rec[model.KeyAttributes] = byType

	for code, a := range byType {
		attr := a.(map[string]any)
		switch tc := model.ParseTypeCode(code); {
		case tc == model.TypeFileName:
			setPath(attr, path)
		case tc.HasVCN():
			hexResidential(asMap(attr[model.KeyHeader]))
			hexResidential(asMap(attr[model.KeyData]))
		}
	}

	rec[model.KeyTags] = slices.Clone(tags)
	return rec
}

func setPath(attr map[string]any, path string) {
	switch data := attr[model.KeyData].(type) {
	case map[string]any:
		data[model.KeyPath] = path
	case nil:
		attr[model.KeyData] = map[string]any{model.KeyPath: path}
	}
}

func hexResidential(m map[string]any) {
	rh := asMap(m[model.KeyResidential])
	if rh == nil {
		return
	}
	for _, f := range model.VCNFields {
		if s, ok := HexVCN(rh[f]); ok {
			rh[f] = s
		}
	}
}

// Timeline fans a record out into one document per MACB timestamp of its
// StandardInformation and FileName attributes, at most eight in all.
// Attributes that are missing or carry no data mapping contribute nothing,
// as do individual timestamps that are absent or null. rec is not modified.
func Timeline(rec model.Record, path, mftPath string, tags []string) []model.Document {
	header := asMap(rec[model.KeyHeader])
	recordNumber := header[model.KeyRecordNumber]
	recHeader := without(header, model.KeyRecordNumber)

	attrs, _ := rec[model.KeyAttributes].([]any)
	byType := ByType(attrs)
	name := fileName(byType, path)

	var docs []model.Document
	for _, tc := range []model.TypeCode{model.TypeStandardInformation, model.TypeFileName} {
		code, attr, ok := findType(byType, tc)
		if !ok {
			continue
		}
		data, ok := attr[model.KeyData].(map[string]any)
		if !ok {
			continue
		}
		attrHeader := without(asMap(attr[model.KeyHeader]), model.KeyTypeCode)
		rest := make(map[string]any, len(data))
		for k, v := range data {
			if !model.IsMACBField(k) {
				rest[k] = v
			}
		}

		for _, m := range model.MACBCodes {
			ts := data[m.Field]
			if ts == nil || ts == "" {
				continue
			}
			docs = append(docs, model.Document{
				"@timestamp": ts,
				"event": map[string]any{
					"action":   model.Action(code, m),
					"kind":     "event",
					"category": []any{"file"},
					"type":     []any{m.EventType},
					"provider": model.DefaultTag,
				},
				"mft": map[string]any{
					model.KeyRecordNumber: recordNumber,
					model.KeyHeader:       maps.Clone(recHeader),
					"attribute": map[string]any{
						"type":          code,
						model.KeyHeader: maps.Clone(attrHeader),
						model.KeyData:   maps.Clone(rest),
					},
				},
				"file": map[string]any{
					model.KeyName: name,
					model.KeyPath: path,
				},
				"log": map[string]any{
					"file": map[string]any{model.KeyPath: mftPath},
				},
				model.KeyTags: slices.Clone(tags),
			})
		}
	}
	return docs
}

// findType returns the attribute of the given variant. Keys are visited in
// sorted order so a record spelling one type two ways resolves the same way
// every run.
func findType(byType map[string]any, tc model.TypeCode) (string, map[string]any, bool) {
	for _, code := range slices.Sorted(maps.Keys(byType)) {
		if model.ParseTypeCode(code) == tc {
			attr, ok := byType[code].(map[string]any)
			return code, attr, ok
		}
	}
	return "", nil, false
}

// fileName prefers the FileName attribute's name and falls back to the
// last element of the resolved path.
func fileName(byType map[string]any, path string) string {
	if _, attr, ok := findType(byType, model.TypeFileName); ok {
		if name, ok := asMap(attr[model.KeyData])[model.KeyName].(string); ok && name != "" {
			return name
		}
	}
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func without(m map[string]any, key string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}
