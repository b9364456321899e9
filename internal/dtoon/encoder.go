package dtoon

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deepcompress/deepcompress/internal/domain"
)

// Encode serializes a Document into canonical D-TOON text. Encoding is
// deterministic: the same Document always yields byte-identical output.
func Encode(doc *domain.Document) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(Version)
	b.WriteByte('\n')
	b.WriteString("doc:")
	b.WriteString(escapeText(doc.ID))
	b.WriteByte('\n')

	if doc.Fingerprint != "" {
		writeLine(&b, 1, "fp:"+escapeText(doc.Fingerprint))
	}

	for i := range doc.Pages {
		page := &doc.Pages[i]
		writeLine(&b, 1, "page:"+strconv.Itoa(page.Number))

		if len(page.Entities) > 0 {
			encodeCollection(&b, 2, "entities", page.Entities)
		}
		for j := range page.Tables {
			encodeCollection(&b, 2, "table", page.Tables[j].Rows)
		}
		if page.Text != "" {
			writeLine(&b, 2, "text:"+escapeText(page.Text))
		}
	}

	return b.String(), nil
}

// encodeCollection emits a sibling collection as either a header-amortized
// block (homogeneous) or one name:value line per member (heterogeneous).
func encodeCollection(b *strings.Builder, depth int, name string, records []domain.Entity) {
	schema := InferSchema(records)
	if schema.Homogeneous {
		header := fmt.Sprintf("%s[%d]:%s", name, len(records), joinFieldNames(schema.Fields))
		writeLine(b, depth, header)
		for i := range records {
			writeLine(b, depth+1, encodeRow(&records[i], schema.Fields))
		}
		return
	}

	writeLine(b, depth, name+":")
	for i := range records {
		writeLine(b, depth+1, encodeMember(&records[i]))
	}
}

// encodeRow lists only the values, in the fixed header field order.
func encodeRow(e *domain.Entity, fields []string) string {
	parts := make([]string, len(fields))
	for i, name := range fields {
		v, _ := e.Get(name)
		parts[i] = encodeValue(v)
	}
	return strings.Join(parts, string(sepValue))
}

// encodeMember emits a full name:value listing for one record. This is the
// fallback, lower-compression path.
func encodeMember(e *domain.Entity) string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = encodeName(f.Name) + string(sepName) + encodeValue(f.Value)
	}
	return strings.Join(parts, string(sepValue))
}

func joinFieldNames(fields []string) string {
	escaped := make([]string, len(fields))
	for i, name := range fields {
		escaped[i] = encodeName(name)
	}
	return strings.Join(escaped, string(sepValue))
}

func writeLine(b *strings.Builder, depth int, content string) {
	for i := 0; i < depth; i++ {
		b.WriteString(indentUnit)
	}
	b.WriteString(content)
	b.WriteByte('\n')
}
