package dtoon

import (
	"strings"
	"testing"

	"github.com/deepcompress/deepcompress/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *domain.Document {
	var e1, e2 domain.Entity
	e1.Set("name", domain.String("Acme"))
	e1.Set("amount", domain.Number(1200))
	e1.Set("active", domain.Boolean(true))
	e2.Set("name", domain.String("Beta"))
	e2.Set("amount", domain.Number(300))
	e2.Set("active", domain.Boolean(false))

	var r1, r2 domain.Entity
	r1.Set("col", domain.String("a"))
	r2.Set("col", domain.String("b"))

	return &domain.Document{
		ID: "loan-001",
		Pages: []domain.Page{
			{
				Number:   1,
				Entities: []domain.Entity{e1, e2},
				Tables:   []domain.Table{{Rows: []domain.Entity{r1, r2}}},
				Text:     "raw fallback",
			},
		},
	}
}

func TestEncode_CanonicalForm(t *testing.T) {
	text, err := Encode(sampleDocument())
	require.NoError(t, err)

	want := "dtoon/1\n" +
		"doc:loan-001\n" +
		"  page:1\n" +
		"    entities[2]:name|amount|active\n" +
		"      Acme|1200|true\n" +
		"      Beta|300|false\n" +
		"    table[2]:col\n" +
		"      a\n" +
		"      b\n" +
		"    text:raw fallback\n"
	assert.Equal(t, want, text)
}

func TestEncode_Idempotent(t *testing.T) {
	doc := sampleDocument()

	first, err := Encode(doc)
	require.NoError(t, err)
	second, err := Encode(doc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRoundTrip_StructuralEquality(t *testing.T) {
	doc := sampleDocument()

	text, err := Encode(doc)
	require.NoError(t, err)
	decoded, err := Decode(text)
	require.NoError(t, err)

	assert.True(t, doc.Equal(decoded), "decode(encode(doc)) differs:\n%s", text)
}

func TestRoundTrip_HeterogeneousCollection(t *testing.T) {
	var e1, e2 domain.Entity
	e1.Set("name", domain.String("Acme"))
	e1.Set("role", domain.String("borrower"))
	e2.Set("name", domain.String("Beta"))

	doc := &domain.Document{
		ID:    "het-doc",
		Pages: []domain.Page{{Number: 1, Entities: []domain.Entity{e1, e2}}},
	}

	text, err := Encode(doc)
	require.NoError(t, err)
	assert.Contains(t, text, "entities:\n")
	assert.Contains(t, text, "name:Acme|role:borrower")

	decoded, err := Decode(text)
	require.NoError(t, err)
	assert.True(t, doc.Equal(decoded))
}

func TestRoundTrip_EscapedReservedCharacters(t *testing.T) {
	var e domain.Entity
	e.Set("desc", domain.String("a|b:c[d]e\nsecond line"))
	e.Set("note", domain.String("backslash \\ here"))

	doc := &domain.Document{
		ID:    "weird|id:with[specials]",
		Pages: []domain.Page{{Number: 1, Entities: []domain.Entity{e}, Text: "line one\nline two|pipe"}},
	}

	text, err := Encode(doc)
	require.NoError(t, err)
	decoded, err := Decode(text)
	require.NoError(t, err)

	assert.True(t, doc.Equal(decoded))
	require.Len(t, decoded.Pages, 1)
	v, ok := decoded.Pages[0].Entities[0].Get("desc")
	require.True(t, ok)
	assert.Equal(t, "a|b:c[d]e\nsecond line", v.Str)
	assert.Equal(t, "line one\nline two|pipe", decoded.Pages[0].Text)
}

func TestRoundTrip_AmbiguousStringValues(t *testing.T) {
	var e domain.Entity
	e.Set("looks_numeric", domain.String("42.5"))
	e.Set("looks_bool", domain.String("true"))
	e.Set("empty", domain.String(""))
	e.Set("leading_space", domain.String(" padded"))
	e.Set("real_number", domain.Number(42.5))
	e.Set("real_bool", domain.Boolean(true))

	doc := &domain.Document{
		ID:    "typed",
		Pages: []domain.Page{{Number: 1, Entities: []domain.Entity{e}}},
	}

	text, err := Encode(doc)
	require.NoError(t, err)
	decoded, err := Decode(text)
	require.NoError(t, err)

	got := decoded.Pages[0].Entities[0]
	for _, tc := range []struct {
		field string
		want  domain.Value
	}{
		{"looks_numeric", domain.String("42.5")},
		{"looks_bool", domain.String("true")},
		{"empty", domain.String("")},
		{"leading_space", domain.String(" padded")},
		{"real_number", domain.Number(42.5)},
		{"real_bool", domain.Boolean(true)},
	} {
		v, ok := got.Get(tc.field)
		require.True(t, ok, tc.field)
		assert.True(t, tc.want.Equal(v), "field %s: got kind %d %q", tc.field, v.Kind, v.Literal())
	}
}

func TestRoundTrip_LeadingSpaceFieldName(t *testing.T) {
	var e1, e2 domain.Entity
	e1.Set(" amount", domain.Number(1200))
	e1.Set("name", domain.String("Acme"))
	e2.Set("other", domain.String("x"))

	doc := &domain.Document{
		ID:    "padded-name",
		Pages: []domain.Page{{Number: 1, Entities: []domain.Entity{e1, e2}}},
	}

	text, err := Encode(doc)
	require.NoError(t, err)
	decoded, err := Decode(text)
	require.NoError(t, err, "decode failed on:\n%s", text)

	assert.True(t, doc.Equal(decoded))
	v, ok := decoded.Pages[0].Entities[0].Get(" amount")
	require.True(t, ok)
	assert.True(t, domain.Number(1200).Equal(v))
}

func TestRoundTrip_EmptyFieldName(t *testing.T) {
	var e domain.Entity
	e.Set("", domain.String("orphan value"))

	doc := &domain.Document{
		ID:    "nameless",
		Pages: []domain.Page{{Number: 1, Entities: []domain.Entity{e}}},
	}

	text, err := Encode(doc)
	require.NoError(t, err)
	assert.Contains(t, text, "entities[1]:\\.\n")

	decoded, err := Decode(text)
	require.NoError(t, err, "decode failed on:\n%s", text)
	assert.True(t, doc.Equal(decoded))
}

func TestRoundTrip_MultiPageWithFingerprintAndEmptyTable(t *testing.T) {
	var e domain.Entity
	e.Set("k", domain.String("v"))

	doc := &domain.Document{
		ID:          "multi",
		Fingerprint: "abc123",
		Pages: []domain.Page{
			{Number: 1, Entities: []domain.Entity{e}},
			{Number: 2, Tables: []domain.Table{{}}},
			{Number: 3},
		},
	}

	text, err := Encode(doc)
	require.NoError(t, err)
	assert.Contains(t, text, "fp:abc123\n")
	assert.Contains(t, text, "table[0]:\n")

	decoded, err := Decode(text)
	require.NoError(t, err)
	assert.True(t, doc.Equal(decoded))
}

func TestEncode_RejectsNonContiguousPages(t *testing.T) {
	doc := &domain.Document{
		ID:    "bad",
		Pages: []domain.Page{{Number: 2}},
	}

	_, err := Encode(doc)
	require.Error(t, err)
}

func TestDecode_RowCountShortfall(t *testing.T) {
	text := "dtoon/1\n" +
		"doc:d\n" +
		"  page:1\n" +
		"    entities[3]:a|b\n" +
		"      1|2\n" +
		"      3|4\n"

	_, err := Decode(text)
	require.Error(t, err)
	assert.True(t, domain.IsMalformed(err), "got %v", err)
	assert.Contains(t, err.Error(), "declares 3 rows")
}

func TestDecode_RowFieldCountMismatch(t *testing.T) {
	text := "dtoon/1\n" +
		"doc:d\n" +
		"  page:1\n" +
		"    entities[1]:a|b\n" +
		"      1|2|3\n"

	_, err := Decode(text)
	require.Error(t, err)
	assert.True(t, domain.IsMalformed(err))
}

func TestDecode_ExtraRowBeyondDeclaredCount(t *testing.T) {
	text := "dtoon/1\n" +
		"doc:d\n" +
		"  page:1\n" +
		"    entities[1]:a\n" +
		"      1\n" +
		"      2\n"

	_, err := Decode(text)
	require.Error(t, err)
	assert.True(t, domain.IsMalformed(err))
}

func TestDecode_UnrecognizedEscape(t *testing.T) {
	text := "dtoon/1\n" +
		"doc:d\n" +
		"  page:1\n" +
		"    text:bad\\zescape\n"

	_, err := Decode(text)
	require.Error(t, err)
	assert.True(t, domain.IsMalformed(err))
}

func TestDecode_UnterminatedEscape(t *testing.T) {
	text := "dtoon/1\n" +
		"doc:d\n" +
		"  page:1\n" +
		"    text:trailing\\\n"

	_, err := Decode(text)
	require.Error(t, err)
	assert.True(t, domain.IsMalformed(err))
}

func TestDecode_OddIndentation(t *testing.T) {
	text := "dtoon/1\n" +
		"doc:d\n" +
		"   page:1\n"

	_, err := Decode(text)
	require.Error(t, err)
	assert.True(t, domain.IsMalformed(err))
}

func TestDecode_SkippedDepthLevel(t *testing.T) {
	text := "dtoon/1\n" +
		"doc:d\n" +
		"      stray|row\n"

	_, err := Decode(text)
	require.Error(t, err)
	assert.True(t, domain.IsMalformed(err))
}

func TestDecode_RejectsSecondEntitiesBlock(t *testing.T) {
	text := "dtoon/1\n" +
		"doc:d\n" +
		"  page:1\n" +
		"    entities[1]:a\n" +
		"      1\n" +
		"    entities[1]:b\n" +
		"      2\n"

	_, err := Decode(text)
	require.Error(t, err)
	assert.True(t, domain.IsMalformed(err))
	assert.Contains(t, err.Error(), "second entities block")
}

func TestDecode_EntitiesBlockAllowedPerPage(t *testing.T) {
	text := "dtoon/1\n" +
		"doc:d\n" +
		"  page:1\n" +
		"    entities[1]:a\n" +
		"      1\n" +
		"  page:2\n" +
		"    entities[1]:a\n" +
		"      2\n"

	doc, err := Decode(text)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 2)
	assert.Len(t, doc.Pages[1].Entities, 1)
}

func TestDecode_ScrubbedArtifactStillParses(t *testing.T) {
	var e domain.Entity
	e.Set("ssn", domain.String("123-45-6789"))

	doc := &domain.Document{
		ID:    "scrubbed",
		Pages: []domain.Page{{Number: 1, Entities: []domain.Entity{e}}},
	}
	text, err := Encode(doc)
	require.NoError(t, err)

	redacted := strings.ReplaceAll(text, "123-45-6789", "[REDACTED-SSN]")
	decoded, err := Decode(redacted)
	require.NoError(t, err)

	v, ok := decoded.Pages[0].Entities[0].Get("ssn")
	require.True(t, ok)
	assert.Equal(t, "[REDACTED-SSN]", v.Str)
}

func TestDecode_UnknownVersionHeader(t *testing.T) {
	_, err := Decode("dtoon/9\ndoc:d\n")
	require.Error(t, err)
	assert.True(t, domain.IsMalformed(err))
}

func TestDecode_NonContiguousPages(t *testing.T) {
	text := "dtoon/1\n" +
		"doc:d\n" +
		"  page:2\n"

	_, err := Decode(text)
	require.Error(t, err)
	assert.True(t, domain.IsMalformed(err))
}
