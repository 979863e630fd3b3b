package magic

import "strings"

// ValType is the closed set of value types the rule language understands.
// The numeric values are not meaningful outside this package; unlike the
// teacher's FILE_* constants they do not need to track libmagic's on-disk
// .mgc layout because this implementation never reads or writes that
// binary format (see database.go).
type ValType uint8

const (
	Invalid ValType = iota

	Byte
	Short
	BeShort
	LeShort

	Long
	BeLong
	LeLong
	MeLong

	Quad
	BeQuad
	LeQuad

	Date
	BeDate
	LeDate
	MeDate
	LDate
	BeLDate
	LeLDate
	MeLDate
	QDate
	BeQDate
	LeQDate
	QLDate
	BeQLDate
	LeQLDate
	QWDate
	BeQWDate
	LeQWDate
	MSDosDate
	BeMSDosDate
	LeMSDosDate
	MSDosTime
	BeMSDosTime
	LeMSDosTime

	Float
	BeFloat
	LeFloat
	Double
	BeDouble
	LeDouble

	String
	PString
	BeString16
	LeString16
	Regex
	Search
	Octal

	BeID3
	LeID3
	Der
	Guid
	Offset
	BeVarint
	LeVarint

	// Control pseudo-types. The parser accepts these names and stores
	// them as a line's CompareType like any other type; it performs no
	// name/use resolution and no clear or default handling. Their
	// SizeInBytes is 0, so the match engine treats such a line as a
	// non-match.
	Name
	Use
	Clear
	Indirect
	Default
	NamesSize
)

var valTypeNames = map[ValType]string{
	Invalid:     "invalid",
	Byte:        "byte",
	Short:       "short",
	BeShort:     "beshort",
	LeShort:     "leshort",
	Long:        "long",
	BeLong:      "belong",
	LeLong:      "lelong",
	MeLong:      "melong",
	Quad:        "quad",
	BeQuad:      "bequad",
	LeQuad:      "lequad",
	Date:        "date",
	BeDate:      "bedate",
	LeDate:      "ledate",
	MeDate:      "medate",
	LDate:       "ldate",
	BeLDate:     "beldate",
	LeLDate:     "leldate",
	MeLDate:     "meldate",
	QDate:       "qdate",
	BeQDate:     "beqdate",
	LeQDate:     "leqdate",
	QLDate:      "qldate",
	BeQLDate:    "beqldate",
	LeQLDate:    "leqldate",
	QWDate:      "qwdate",
	BeQWDate:    "beqwdate",
	LeQWDate:    "leqwdate",
	MSDosDate:   "msdosdate",
	BeMSDosDate: "bemsdosdate",
	LeMSDosDate: "lemsdosdate",
	MSDosTime:   "msdostime",
	BeMSDosTime: "bemsdostime",
	LeMSDosTime: "lemsdostime",
	Float:       "float",
	BeFloat:     "befloat",
	LeFloat:     "lefloat",
	Double:      "double",
	BeDouble:    "bedouble",
	LeDouble:    "ledouble",
	String:      "string",
	PString:     "pstring",
	BeString16:  "bestring16",
	LeString16:  "lestring16",
	Regex:       "regex",
	Search:      "search",
	Octal:       "octal",
	BeID3:       "beid3",
	LeID3:       "leid3",
	Der:         "der",
	Guid:        "guid",
	Offset:      "offset",
	BeVarint:    "bevarint",
	LeVarint:    "levarint",
	Name:        "name",
	Use:         "use",
	Clear:       "clear",
	Indirect:    "indirect",
	Default:     "default",
	NamesSize:   "namessize",
}

var valTypeByName map[string]ValType

func init() {
	valTypeByName = make(map[string]ValType, len(valTypeNames))
	for t, name := range valTypeNames {
		valTypeByName[name] = t
	}
}

func (t ValType) String() string {
	if name, ok := valTypeNames[t]; ok {
		return name
	}
	return "invalid"
}

// oneCharTypes is the single-character type table from the rule grammar:
// a bare letter in a magic file stands for one of the common numeric
// types.
var oneCharTypes = map[byte]ValType{
	'l': LeLong,
	'L': BeLong,
	'm': MeLong,
	'h': LeShort,
	's': LeShort,
	'H': BeShort,
	'S': BeShort,
	'c': Byte,
	'b': Byte,
	'C': Byte,
	'B': Byte,
	'e': LeDouble,
	'f': LeDouble,
	'g': LeDouble,
	'E': BeDouble,
	'F': BeDouble,
	'G': BeDouble,
	'i': LeID3,
	'I': BeID3,
	'q': LeQuad,
	'Q': BeQuad,
}

// ParseValType recognizes a type name, honoring the single-character table
// before falling back to the canonical lowercase name lookup.
func ParseValType(s string) (ValType, bool) {
	if len(s) == 1 {
		if t, ok := oneCharTypes[s[0]]; ok {
			return t, true
		}
	}
	t, ok := valTypeByName[strings.ToLower(s)]
	return t, ok
}

func (t ValType) IsString() bool {
	switch t {
	case String, PString, BeString16, LeString16, Regex, Search, Octal:
		return true
	}
	return false
}

func (t ValType) IsI8() bool { return t == Byte }

func (t ValType) IsI16() bool {
	switch t {
	case Short, BeShort, LeShort, MSDosDate, BeMSDosDate, LeMSDosDate, MSDosTime, BeMSDosTime, LeMSDosTime:
		return true
	}
	return false
}

func (t ValType) IsI32() bool {
	switch t {
	case Long, BeLong, LeLong, MeLong, Date, BeDate, LeDate, MeDate, LDate, BeLDate, LeLDate, MeLDate, Offset:
		return true
	}
	return false
}

func (t ValType) IsI64() bool {
	switch t {
	case Quad, BeQuad, LeQuad, QDate, BeQDate, LeQDate, QLDate, BeQLDate, LeQLDate, QWDate, BeQWDate, LeQWDate,
		BeVarint, LeVarint:
		return true
	}
	return false
}

func (t ValType) IsF32() bool {
	switch t {
	case Float, BeFloat, LeFloat:
		return true
	}
	return false
}

func (t ValType) IsF64() bool {
	switch t {
	case Double, BeDouble, LeDouble:
		return true
	}
	return false
}

func (t ValType) IsBE() bool {
	switch t {
	case BeShort, BeLong, BeQuad, BeDate, BeLDate, BeQDate, BeQLDate, BeQWDate,
		BeMSDosDate, BeMSDosTime, BeFloat, BeDouble, BeID3, BeString16, BeVarint:
		return true
	}
	return false
}

func (t ValType) IsLE() bool {
	switch t {
	case LeShort, LeLong, LeQuad, LeDate, LeLDate, LeQDate, LeQLDate, LeQWDate,
		LeMSDosDate, LeMSDosTime, LeFloat, LeDouble, LeID3, LeString16, LeVarint:
		return true
	}
	return false
}

// IsME reports middle-endian (32-bit only): byte order [2,3,0,1].
func (t ValType) IsME() bool {
	switch t {
	case MeLong, MeDate, MeLDate:
		return true
	}
	return false
}

// SizeInBytes returns the number of bytes a scalar fetch of this type
// consumes. String-class types have no fixed size; callers determine
// their length from a mask/range instead (see mask.go, parser.go).
func (t ValType) SizeInBytes() int {
	switch {
	case t.IsI8():
		return 1
	case t.IsI16():
		return 2
	case t.IsI32(), t.IsF32():
		return 4
	case t.IsI64(), t.IsF64():
		return 8
	}
	return 0
}

// SignValType pairs a ValType with its signedness. The zero value is the
// grammar's default: signed, invalid.
type SignValType struct {
	Unsigned bool
	Type     ValType
}
