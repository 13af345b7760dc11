// Package mrz parses and validates the text lines of a machine readable zone
// as found on passports, ID cards and visas (ICAO 9303).
package mrz

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type DocumentType int

const (
	DocumentTypeUnknown = DocumentType(iota)
	DocumentTypeTD1
	DocumentTypeTD2
	DocumentTypeTD3
	DocumentTypeMRVA
	DocumentTypeMRVB
)

func (d DocumentType) String() string {
	switch d {
	case DocumentTypeTD1:
		return "TD1"
	case DocumentTypeTD2:
		return "TD2"
	case DocumentTypeTD3:
		return "TD3"
	case DocumentTypeMRVA:
		return "MRVA"
	case DocumentTypeMRVB:
		return "MRVB"
	}
	return "UNKNOWN"
}

func (d DocumentType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *DocumentType) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.Wrap(err, "document type must be a string")
	}
	*d = DocumentTypeUnknown
	for t := DocumentTypeTD1; t <= DocumentTypeMRVB; t++ {
		if t.String() == s {
			*d = t
		}
	}
	return nil
}

var (
	ErrLineCount     = errors.New("expecting 2 or 3 lines")
	ErrLineLength    = errors.New("all lines must have same length")
	ErrUnknownFormat = errors.New("invalid MRZ format")
)

// Field is a named MRZ field. Names may repeat (e.g. "hash").
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Document struct {
	Type   DocumentType `json:"type"`
	Lines  []string     `json:"lines"`
	Fields []Field      `json:"fields"`
}

// Get returns the first field with the given name.
func (d *Document) Get(name string) (string, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

const (
	reAny = `[A-Z0-9<]`
	re09  = `[0-9]`
	reAZ  = `[A-Z]`
	reSex = `[MFX<]`
)

func group(class string, n int) string {
	return fmt.Sprintf("(%s{%d})", class, n)
}

type lineLayout struct {
	re     *regexp.Regexp
	fields []string
}

func layout(prefix string, parts []string, fields ...string) lineLayout {
	return lineLayout{
		re:     regexp.MustCompile("^" + prefix + strings.Join(parts, "") + "$"),
		fields: fields,
	}
}

// names is a placeholder field name expanded into surname and given names.
const names = "<names>"

var layouts = map[DocumentType][]lineLayout{
	DocumentTypeTD1: {
		layout(`([ACI][A-Z0-9<])`, []string{group(reAZ, 3), group(reAny, 9), group(re09, 1), group(reAny, 15)},
			"doc", "country", "doc_number", "hash", "optional_data1"),
		layout("", []string{group(re09, 6), group(re09, 1), group(reSex, 1), group(re09, 6), group(re09, 1),
			group(reAZ, 3), group(reAny, 11), group(re09, 1)},
			"birth_date", "hash", "sex", "expiry_date", "hash", "nationality", "optional_data2", "final_hash"),
		layout("", []string{group(reAny, 30)}, names),
	},
	DocumentTypeTD2: {
		layout(`([ACI][A-Z0-9<])`, []string{group(reAZ, 3), group(reAny, 31)}, "doc", "country", names),
		layout("", []string{group(reAny, 9), group(re09, 1), group(reAZ, 3), group(re09, 6), group(re09, 1),
			group(reSex, 1), group(re09, 6), group(re09, 1), group(reAny, 7), group(re09, 1)},
			"doc_number", "hash", "nationality", "birth_date", "hash", "sex", "expiry_date", "hash",
			"optional_data1", "final_hash"),
	},
	DocumentTypeTD3: {
		layout(`(P[A-Z0-9<])`, []string{group(reAZ, 3), group(reAny, 39)}, "doc", "country", names),
		layout("", []string{group(reAny, 9), group(re09, 1), group(reAZ, 3), group(re09, 6), group(re09, 1),
			group(reSex, 1), group(re09, 6), group(re09, 1), group(reAny, 14), group(re09, 1), group(re09, 1)},
			"doc_number", "hash", "nationality", "birth_date", "hash", "sex", "expiry_date", "hash",
			"personal_number", "hash", "final_hash"),
	},
	DocumentTypeMRVA: {
		layout(`(V[A-Z0-9<])`, []string{group(reAZ, 3), group(reAny, 39)}, "doc", "country", names),
		layout("", []string{group(reAny, 9), group(re09, 1), group(reAZ, 3), group(re09, 6), group(re09, 1),
			group(reSex, 1), group(re09, 6), group(re09, 1), group(reAny, 16)},
			"doc_number", "hash", "nationality", "birth_date", "hash", "sex", "expiry_date", "hash",
			"optional_data"),
	},
	DocumentTypeMRVB: {
		layout(`(V[A-Z0-9<])`, []string{group(reAZ, 3), group(reAny, 31)}, "doc", "country", names),
		layout("", []string{group(reAny, 9), group(re09, 1), group(reAZ, 3), group(re09, 6), group(re09, 1),
			group(reSex, 1), group(re09, 6), group(re09, 1), group(reAny, 8)},
			"doc_number", "hash", "nationality", "birth_date", "hash", "sex", "expiry_date", "hash",
			"optional_data"),
	},
}

// DetectType checks the line count and lengths and returns the document type.
func DetectType(lines []string) (DocumentType, error) {
	if len(lines) != 2 && len(lines) != 3 {
		return DocumentTypeUnknown, errors.Wrapf(ErrLineCount, "%d not a valid number of lines", len(lines))
	}
	for i := 1; i < len(lines); i++ {
		if len(lines[0]) != len(lines[i]) {
			return DocumentTypeUnknown, errors.Wrapf(ErrLineLength, "%d != %d", len(lines[0]), len(lines[i]))
		}
	}

	first := lines[0]
	switch {
	case len(lines) == 3 && len(first) == 30:
		return DocumentTypeTD1, nil
	case len(lines) == 2 && len(first) == 44:
		if first[0] == 'P' {
			return DocumentTypeTD3, nil
		}
		return DocumentTypeMRVA, nil
	case len(lines) == 2 && len(first) == 36:
		if first[0] == 'V' {
			return DocumentTypeMRVB, nil
		}
		return DocumentTypeTD2, nil
	}
	return DocumentTypeUnknown, ErrUnknownFormat
}

// Parse detects the document type and splits the lines into fields.
func Parse(lines []string) (*Document, error) {
	docType, err := DetectType(lines)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Type:  docType,
		Lines: append([]string(nil), lines...),
	}
	for i, l := range layouts[docType] {
		matches := l.re.FindStringSubmatch(lines[i])
		if matches == nil {
			return nil, errors.Wrapf(ErrUnknownFormat, "%s line %d does not match", docType, i)
		}
		for j, name := range l.fields {
			if name == names {
				doc.Fields = append(doc.Fields, splitNames(matches[j+1])...)
				continue
			}
			doc.Fields = append(doc.Fields, Field{Name: name, Value: matches[j+1]})
		}
	}
	return doc, nil
}

// splitNames turns "ERIKSSON<<ANNA<MARIA<<<" into surname and given names.
// Surname and given names are separated by "<<"; single fillers separate words.
func splitNames(field string) []Field {
	field = strings.TrimRight(field, "<")
	if field == "" {
		return nil
	}

	surname, given := field, ""
	if idx := strings.Index(field, "<<"); idx >= 0 {
		surname, given = field[:idx], field[idx+2:]
	}

	var fields []Field
	if s := strings.Join(strings.FieldsFunc(surname, isFiller), " "); s != "" {
		fields = append(fields, Field{Name: "surname", Value: s})
	}
	for i, g := range strings.FieldsFunc(given, isFiller) {
		fields = append(fields, Field{Name: "given_name_" + strconv.Itoa(i), Value: g})
	}
	return fields
}

func isFiller(r rune) bool {
	return r == '<'
}
