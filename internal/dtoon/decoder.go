package dtoon

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deepcompress/deepcompress/internal/domain"
)

// Decode parses D-TOON text back into a Document. It is total over anything
// Encode can produce and rejects structure outside the grammar with a
// malformed-encoding error; it never silently coerces. Unescaped brackets
// and colons inside a scalar position read as literal text so that
// post-encoding rewrites, such as PII scrubbing inserting [REDACTED-SSN]
// markers, leave the artifact decodable.
func Decode(text string) (*domain.Document, error) {
	lines := strings.Split(text, "\n")
	// A single trailing newline is canonical; anything beyond that is not.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) < 2 {
		return nil, domain.MalformedEncodingError("input too short for a document", nil)
	}
	if lines[0] != Version {
		return nil, domain.MalformedEncodingError(fmt.Sprintf("unsupported or missing version header %q", lines[0]), nil)
	}

	d := &decoder{lines: lines, pos: 1}
	doc, err := d.document()
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, domain.MalformedEncodingError("page numbers are not contiguous from 1", err)
	}
	return doc, nil
}

type decoder struct {
	lines []string
	pos   int

	// entitiesSeen guards against a second entities block on the current
	// page, which the encoder never emits.
	entitiesSeen bool
}

func (d *decoder) document() (*domain.Document, error) {
	depth, content, err := splitIndent(d.lines[d.pos])
	if err != nil {
		return nil, err
	}
	if depth != 0 || !strings.HasPrefix(content, "doc:") {
		return nil, d.fail("expected doc line")
	}
	id, err := unescapeText(content[len("doc:"):])
	if err != nil {
		return nil, err
	}
	d.pos++

	doc := &domain.Document{ID: id}
	var page *domain.Page

	for d.pos < len(d.lines) {
		depth, content, err := splitIndent(d.lines[d.pos])
		if err != nil {
			return nil, err
		}

		switch depth {
		case 1:
			d.pos++
			switch {
			case strings.HasPrefix(content, "fp:"):
				fp, err := unescapeText(content[len("fp:"):])
				if err != nil {
					return nil, err
				}
				doc.Fingerprint = fp
			case strings.HasPrefix(content, "page:"):
				n, err := parseCount(content[len("page:"):])
				if err != nil || n < 1 {
					return nil, d.fail("invalid page number")
				}
				doc.Pages = append(doc.Pages, domain.Page{Number: n})
				page = &doc.Pages[len(doc.Pages)-1]
				d.entitiesSeen = false
			default:
				return nil, d.fail("unexpected line at document level")
			}
		case 2:
			if page == nil {
				return nil, d.fail("page content before any page line")
			}
			if err := d.pageBlock(page, content); err != nil {
				return nil, err
			}
		default:
			return nil, d.fail("line indentation skips a depth level")
		}
	}

	return doc, nil
}

// pageBlock parses one depth-2 block: an entity collection, a table, or the
// raw-text fallback. Consumes the block's rows as well.
func (d *decoder) pageBlock(page *domain.Page, content string) error {
	if strings.HasPrefix(content, "text:") {
		text, err := unescapeText(content[len("text:"):])
		if err != nil {
			return err
		}
		page.Text = text
		d.pos++
		return nil
	}

	name, rest, ok := blockHeader(content)
	if !ok {
		return d.fail("unrecognized page block")
	}
	if name == "entities" {
		if d.entitiesSeen {
			return d.fail("page declares a second entities block")
		}
		d.entitiesSeen = true
	}
	d.pos++

	var records []domain.Entity
	var err error
	if rest == ":" {
		records, err = d.members()
	} else {
		records, err = d.rows(rest)
	}
	if err != nil {
		return err
	}

	switch name {
	case "entities":
		page.Entities = records
	case "table":
		page.Tables = append(page.Tables, domain.Table{Rows: records})
	}
	return nil
}

// blockHeader recognizes "entities" / "table" followed by either ":" (the
// heterogeneous form) or "[N]:fields" (the homogeneous form).
func blockHeader(content string) (name, rest string, ok bool) {
	for _, candidate := range []string{"entities", "table"} {
		if strings.HasPrefix(content, candidate) {
			rest = content[len(candidate):]
			if rest == ":" || strings.HasPrefix(rest, "[") {
				return candidate, rest, true
			}
		}
	}
	return "", "", false
}

// rows reads the fixed number of value rows declared by a homogeneous
// collection header of the form "[N]:f1|f2|...".
func (d *decoder) rows(header string) ([]domain.Entity, error) {
	closing := strings.IndexByte(header, byte(bracketEnd))
	if closing < 0 {
		return nil, d.fail("unterminated collection count bracket")
	}
	count, err := parseCount(header[1:closing])
	if err != nil {
		return nil, d.fail("invalid collection count")
	}
	after := header[closing+1:]
	if !strings.HasPrefix(after, ":") {
		return nil, d.fail("missing field separator after collection count")
	}

	var fields []string
	if raw := after[1:]; raw != "" {
		for _, tok := range splitEscaped(raw, byte(sepValue)) {
			name, err := unescapeText(tok)
			if err != nil {
				return nil, err
			}
			fields = append(fields, name)
		}
	}

	records := make([]domain.Entity, 0, count)
	for i := 0; i < count; i++ {
		if d.pos >= len(d.lines) {
			return nil, d.fail(fmt.Sprintf("collection header declares %d rows, found %d", count, i))
		}
		depth, content, err := splitIndent(d.lines[d.pos])
		if err != nil {
			return nil, err
		}
		if depth != 3 {
			return nil, d.fail(fmt.Sprintf("collection header declares %d rows, found %d", count, i))
		}
		e, err := d.row(content, fields)
		if err != nil {
			return nil, err
		}
		records = append(records, e)
		d.pos++
	}

	// A row beyond the declared count violates the header contract.
	if d.pos < len(d.lines) {
		if depth, _, err := splitIndent(d.lines[d.pos]); err == nil && depth == 3 {
			return nil, d.fail(fmt.Sprintf("collection holds more rows than the declared %d", count))
		}
	}
	return records, nil
}

func (d *decoder) row(content string, fields []string) (domain.Entity, error) {
	var e domain.Entity
	if len(fields) == 0 {
		if content != "" {
			return e, d.fail("row values present for an empty field set")
		}
		return e, nil
	}
	toks := splitEscaped(content, byte(sepValue))
	if len(toks) != len(fields) {
		return e, d.fail(fmt.Sprintf("row has %d values, header declares %d fields", len(toks), len(fields)))
	}
	for i, tok := range toks {
		v, err := decodeValue(tok)
		if err != nil {
			return e, err
		}
		e.Set(fields[i], v)
	}
	return e, nil
}

// members reads the per-record lines of a heterogeneous collection until the
// next dedent.
func (d *decoder) members() ([]domain.Entity, error) {
	var records []domain.Entity
	for d.pos < len(d.lines) {
		depth, content, err := splitIndent(d.lines[d.pos])
		if err != nil {
			return nil, err
		}
		if depth <= 2 {
			break
		}
		if depth != 3 {
			return nil, d.fail("line indentation skips a depth level")
		}

		var e domain.Entity
		if content != "" {
			for _, pair := range splitEscaped(content, byte(sepValue)) {
				rawName, rawValue, found := cutEscaped(pair, byte(sepName))
				if !found {
					return nil, d.fail("record pair is missing a name separator")
				}
				name, err := unescapeText(rawName)
				if err != nil {
					return nil, err
				}
				v, err := decodeValue(rawValue)
				if err != nil {
					return nil, err
				}
				e.Set(name, v)
			}
		}
		records = append(records, e)
		d.pos++
	}
	return records, nil
}

func (d *decoder) fail(msg string) *domain.DomainError {
	return domain.MalformedEncodingError(fmt.Sprintf("line %d: %s", d.pos+1, msg), nil)
}

// splitIndent separates a line into its depth and content. The indent must
// be an exact multiple of the indentation unit.
func splitIndent(line string) (int, string, error) {
	spaces := 0
	for spaces < len(line) && line[spaces] == ' ' {
		spaces++
	}
	if spaces%len(indentUnit) != 0 {
		return 0, "", domain.MalformedEncodingError("indentation is not a multiple of the unit", nil)
	}
	return spaces / len(indentUnit), line[spaces:], nil
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty count")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("non-digit in count")
		}
	}
	return strconv.Atoi(s)
}
