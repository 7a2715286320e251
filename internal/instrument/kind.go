package instrument

import "fmt"

// Kind identifies one of the built-in base kinds every type resolves to.
//
// The set is closed: nine scalar kinds plus the two composite kinds. All
// dispatch on Kind is by exhaustive switch so that adding a kind fails to
// compile anywhere a case is missing, rather than falling through a
// string-keyed lookup at runtime.
type Kind int

const (
	KindFloat Kind = iota
	KindInteger
	KindText
	KindEnumeration
	KindEnumerationSet
	KindBoolean
	KindDate
	KindTime
	KindDateTime
	KindRecordList
	KindMatrix
)

// kindNames maps the wire-format base names to kinds.
var kindNames = map[string]Kind{
	"float":          KindFloat,
	"integer":        KindInteger,
	"text":           KindText,
	"enumeration":    KindEnumeration,
	"enumerationSet": KindEnumerationSet,
	"boolean":        KindBoolean,
	"date":           KindDate,
	"time":           KindTime,
	"dateTime":       KindDateTime,
	"recordList":     KindRecordList,
	"matrix":         KindMatrix,
}

// KindFromName resolves a built-in base name.
func KindFromName(name string) (Kind, bool) {
	k, ok := kindNames[name]
	return k, ok
}

// IsBuiltinName reports whether name is one of the built-in base names.
func IsBuiltinName(name string) bool {
	_, ok := kindNames[name]
	return ok
}

// String returns the wire-format name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInteger:
		return "integer"
	case KindText:
		return "text"
	case KindEnumeration:
		return "enumeration"
	case KindEnumerationSet:
		return "enumerationSet"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "dateTime"
	case KindRecordList:
		return "recordList"
	case KindMatrix:
		return "matrix"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Composite reports whether the kind owns nested field definitions.
func (k Kind) Composite() bool {
	return k == KindRecordList || k == KindMatrix
}
