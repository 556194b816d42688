package model

import "strings"

// Record is one decoded MFT entry as produced by the external decoder.
// Numbers are kept as json.Number so 64-bit unsigned values survive decoding.
type Record = map[string]any

// Document is a single output document ready for the store or the JSON export.
type Document = map[string]any

// Top-level keys of a decoded record and its attributes.
const (
	KeyHeader       = "header"
	KeyAttributes   = "attributes"
	KeyData         = "data"
	KeyTypeCode     = "type_code"
	KeyRecordNumber = "record_number"
	KeyTags         = "tags"
	KeyPath         = "path"
	KeyName         = "name"
	KeyResidential  = "residential_header"
)

// VCNFields are the non-resident header fields rewritten to hex strings.
var VCNFields = []string{"vnc_first", "vnc_last"}

// DefaultTag is always the first tag of every document.
const DefaultTag = "mft"

// MACB is one of the four timestamp semantics used in filesystem timelines.
type MACB struct {
	Code      string // single letter: m, a, c or b
	Field     string // timestamp field in StandardInformation/FileName data
	EventType string // event.type value of the timeline document
}

// MACBCodes lists the timestamp semantics in M, A, C, B order.
var MACBCodes = []MACB{
	{Code: "m", Field: "modified", EventType: "modified"},
	{Code: "a", Field: "accessed", EventType: "accessed"},
	{Code: "c", Field: "mft_modified", EventType: "changed"},
	{Code: "b", Field: "created", EventType: "created"},
}

// IsMACBField reports whether name is one of the four MACB timestamp fields.
func IsMACBField(name string) bool {
	for _, m := range MACBCodes {
		if m.Field == name {
			return true
		}
	}
	return false
}

// Action returns the event.action value for an attribute type and MACB code,
// e.g. "mft-standardinformation-m".
func Action(typeCode string, m MACB) string {
	return strings.ToLower(DefaultTag + "-" + typeCode + "-" + m.Code)
}
