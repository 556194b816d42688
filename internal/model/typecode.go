package model

// TypeCode classifies an attribute's header.type_code.
// The decoder spells some codes in upper case (DATA, BITMAP); both
// spellings map to the same variant.
type TypeCode int

const (
	TypeOther TypeCode = iota
	TypeStandardInformation
	TypeFileName
	TypeData
	TypeBitmap
)

var typeCodeNames = map[string]TypeCode{
	"StandardInformation": TypeStandardInformation,
	"FileName":            TypeFileName,
	"Data":                TypeData,
	"DATA":                TypeData,
	"Bitmap":              TypeBitmap,
	"BITMAP":              TypeBitmap,
}

// ParseTypeCode maps a raw type_code string to its variant.
// Unknown codes map to TypeOther; the raw string is kept by the caller.
func ParseTypeCode(raw string) TypeCode {
	if tc, ok := typeCodeNames[raw]; ok {
		return tc
	}
	return TypeOther
}

// String returns the canonical name of the variant.
func (tc TypeCode) String() string {
	switch tc {
	case TypeStandardInformation:
		return "StandardInformation"
	case TypeFileName:
		return "FileName"
	case TypeData:
		return "Data"
	case TypeBitmap:
		return "Bitmap"
	default:
		return "Other"
	}
}

// HasMACB reports whether attributes of this type carry MACB timestamps.
func (tc TypeCode) HasMACB() bool {
	return tc == TypeStandardInformation || tc == TypeFileName
}

// HasVCN reports whether attributes of this type may carry VCN extents.
func (tc TypeCode) HasVCN() bool {
	return tc == TypeData || tc == TypeBitmap
}
