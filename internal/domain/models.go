package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ValueKind identifies the scalar type carried by a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

// Value is a scalar field value: string, number, or boolean.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
}

// String builds a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number builds a numeric Value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Boolean builds a boolean Value.
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Equal reports scalar equality across kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindNumber:
		return v.Num == o.Num
	default:
		return v.Bool == o.Bool
	}
}

// Literal renders the value the way it appears in serialized output.
func (v Value) Literal() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// MarshalJSON emits the scalar as its natural JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return []byte(strconv.FormatFloat(v.Num, 'g', -1, 64)), nil
	case KindBool:
		return []byte(strconv.FormatBool(v.Bool)), nil
	default:
		return json.Marshal(v.Str)
	}
}

// Field is a single named value inside an Entity.
type Field struct {
	Name  string
	Value Value
}

// Entity is a flat record extracted from a page. Field order is insertion
// order and is significant for encoding determinism.
type Entity struct {
	Fields []Field
}

// Set appends a field, replacing an existing field of the same name in place.
func (e *Entity) Set(name string, v Value) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			e.Fields[i].Value = v
			return
		}
	}
	e.Fields = append(e.Fields, Field{Name: name, Value: v})
}

// Get returns the value for name, if present.
func (e *Entity) Get(name string) (Value, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// FieldNames returns the field names in insertion order.
func (e *Entity) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// Equal reports structural equality with field order significant.
func (e *Entity) Equal(o *Entity) bool {
	if len(e.Fields) != len(o.Fields) {
		return false
	}
	for i, f := range e.Fields {
		if f.Name != o.Fields[i].Name || !f.Value.Equal(o.Fields[i].Value) {
			return false
		}
	}
	return true
}

// MarshalJSON renders the entity as a JSON object preserving field order.
func (e Entity) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range e.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Table is an ordered sequence of rows. Homogeneity across rows is what
// qualifies it for header-amortized encoding; mismatched rows still belong
// to the table but take the per-row fallback path.
type Table struct {
	Rows []Entity `json:"rows"`
}

// Page holds the structured content recognized on one physical page.
type Page struct {
	Number   int      `json:"number"`
	Entities []Entity `json:"entities,omitempty"`
	Tables   []Table  `json:"tables,omitempty"`
	Text     string   `json:"text,omitempty"`
}

// Empty reports whether extraction produced nothing for this page.
func (p *Page) Empty() bool {
	return len(p.Entities) == 0 && len(p.Tables) == 0 && p.Text == ""
}

// PageImage is one rasterized PDF page handed to the OCR collaborator.
type PageImage struct {
	PageNumber int
	ImagePath  string
	Width      int
	Height     int
}

// Document is the assembled structural content of one source file.
// Immutable once assembled; pages are ordered by physical page number.
type Document struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Pages       []Page `json:"pages"`
}

// Validate checks the page-numbering invariant: contiguous from 1.
func (d *Document) Validate() error {
	for i, p := range d.Pages {
		if p.Number != i+1 {
			return ValidationError(fmt.Sprintf("page at index %d has number %d, want %d", i, p.Number, i+1), nil)
		}
	}
	return nil
}

// Equal reports structural equality between two documents.
func (d *Document) Equal(o *Document) bool {
	if d.ID != o.ID || d.Fingerprint != o.Fingerprint || len(d.Pages) != len(o.Pages) {
		return false
	}
	for i := range d.Pages {
		a, b := &d.Pages[i], &o.Pages[i]
		if a.Number != b.Number || a.Text != b.Text ||
			len(a.Entities) != len(b.Entities) || len(a.Tables) != len(b.Tables) {
			return false
		}
		for j := range a.Entities {
			if !a.Entities[j].Equal(&b.Entities[j]) {
				return false
			}
		}
		for j := range a.Tables {
			if len(a.Tables[j].Rows) != len(b.Tables[j].Rows) {
				return false
			}
			for k := range a.Tables[j].Rows {
				if !a.Tables[j].Rows[k].Equal(&b.Tables[j].Rows[k]) {
					return false
				}
			}
		}
	}
	return true
}

// PageError records a page that failed extraction inside an otherwise
// successful batch.
type PageError struct {
	Page    int    `json:"page"`
	Message string `json:"message"`
}

// CompressedDocument is the derived artifact returned by compression.
// Never mutated after creation.
type CompressedDocument struct {
	DocumentID       string        `json:"document_id"`
	Fingerprint      string        `json:"fingerprint"`
	Text             string        `json:"text"`
	OriginalTokens   int           `json:"original_tokens"`
	CompressedTokens int           `json:"compressed_tokens"`
	CompressionRatio float64       `json:"compression_ratio"`
	ProcessingTime   time.Duration `json:"processing_time"`
	CacheHit         bool          `json:"cache_hit"`
	PageErrors       []PageError   `json:"page_errors,omitempty"`
}

// TokensSaved is the token reduction achieved by the compact encoding.
func (c *CompressedDocument) TokensSaved() int {
	saved := c.OriginalTokens - c.CompressedTokens
	if saved < 0 {
		return 0
	}
	return saved
}
