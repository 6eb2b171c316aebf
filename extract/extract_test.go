package extract

import (
	"strings"
	"testing"
)

func TestContentTypeFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want ContentType
	}{
		{".md", TypeMarkdown},
		{"markdown", TypeMarkdown},
		{".html", TypeHTML},
		{"htm", TypeHTML},
		{".pdf", TypePDF},
		{".txt", TypePlainText},
		{"", TypePlainText},
	}
	for _, tt := range tests {
		if got := ContentTypeFromExtension(tt.ext); got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.ext, tt.want, got)
		}
	}
}

func TestForContentTypeDefaults(t *testing.T) {
	if _, ok := ForContentType(TypeMarkdown).(MarkdownExtractor); !ok {
		t.Error("markdown should map to MarkdownExtractor")
	}
	if _, ok := ForContentType("application/unknown").(PlainTextExtractor); !ok {
		t.Error("unknown type should map to PlainTextExtractor")
	}
}

func TestPlainTextExtract(t *testing.T) {
	out, err := PlainTextExtractor{}.Extract([]byte("hello world"))
	if err != nil || out != "hello world" {
		t.Errorf("unexpected %q, %v", out, err)
	}
}

func TestMarkdownExtractStripsFormatting(t *testing.T) {
	md := []byte("# Luigi's Trattoria\n\nServing **fresh pasta** with [local wine](https://example.com).\n\n- Carbonara\n- Cacio e pepe\n")
	out, err := MarkdownExtractor{}.Extract(md)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "#") || strings.Contains(out, "**") || strings.Contains(out, "](") {
		t.Errorf("formatting leaked into output: %q", out)
	}
	for _, want := range []string{"Luigi's Trattoria", "fresh pasta", "local wine", "Carbonara"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestMarkdownExtractSkipsCodeBlocks(t *testing.T) {
	md := []byte("Prose here.\n\n```\ncode that should vanish\n```\n\nMore prose.")
	out, err := MarkdownExtractor{}.Extract(md)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "vanish") {
		t.Errorf("code block leaked: %q", out)
	}
	if !strings.Contains(out, "Prose here.") || !strings.Contains(out, "More prose.") {
		t.Errorf("prose missing: %q", out)
	}
}

const jsonldPage = `<!DOCTYPE html>
<html><head>
<title>Some Title</title>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Restaurant",
  "name": "Luigi's Trattoria",
  "servesCuisine": ["Italian", "Roman"],
  "description": "Family-run trattoria.",
  "priceRange": "$$",
  "openingHours": "Mo-Sa 11:00-22:00",
  "telephone": "555-0101",
  "address": {
    "@type": "PostalAddress",
    "streetAddress": "12 Via Roma",
    "addressLocality": "Portland"
  }
}
</script>
</head><body><h1>Welcome</h1></body></html>`

func TestExtractRecordJSONLD(t *testing.T) {
	record, err := ExtractRecord([]byte(jsonldPage), "https://example.com/luigis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Name() != "Luigi's Trattoria" {
		t.Errorf("unexpected name %q", record.Name())
	}
	if record.String("cuisine", "") != "Italian, Roman" {
		t.Errorf("unexpected cuisine %q", record.String("cuisine", ""))
	}
	if record.String("price_range", "") != "$$" {
		t.Errorf("unexpected price range %q", record.String("price_range", ""))
	}
	loc := record.Map("location")
	if loc == nil || loc["address"] != "12 Via Roma" || loc["city"] != "Portland" {
		t.Errorf("unexpected location %v", loc)
	}
	contact := record.Map("contact")
	if contact == nil || contact["phone"] != "555-0101" {
		t.Errorf("unexpected contact %v", contact)
	}

	meta := record.Extraction()
	if meta.Method != "jsonld" || meta.Confidence != 0.9 {
		t.Errorf("unexpected extraction meta %+v", meta)
	}
	if meta.URL != "https://example.com/luigis" {
		t.Errorf("unexpected url %q", meta.URL)
	}
}

const graphPage = `<html><head>
<script type="application/ld+json">
{"@graph": [
  {"@type": "WebSite", "name": "Nope"},
  {"@type": "FoodEstablishment", "name": "The Corner Bistro"}
]}
</script>
</head><body></body></html>`

func TestExtractRecordJSONLDGraph(t *testing.T) {
	record, err := ExtractRecord([]byte(graphPage), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Name() != "The Corner Bistro" {
		t.Errorf("expected graph node, got %q", record.Name())
	}
}

const heuristicPage = `<html><head>
<title>Chez Nous | Fine Dining</title>
<meta name="description" content="Seasonal French cooking downtown.">
</head><body><h1>Chez Nous</h1></body></html>`

func TestExtractRecordHeuristicFallback(t *testing.T) {
	record, err := ExtractRecord([]byte(heuristicPage), "https://example.com/chez")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Name() != "Chez Nous | Fine Dining" {
		t.Errorf("unexpected name %q", record.Name())
	}
	if record.String("description", "") != "Seasonal French cooking downtown." {
		t.Errorf("unexpected description %q", record.String("description", ""))
	}

	meta := record.Extraction()
	if meta.Method != "heuristic" || meta.Confidence != 0.6 {
		t.Errorf("unexpected extraction meta %+v", meta)
	}
}

func TestExtractRecordMalformedJSONLDFallsBack(t *testing.T) {
	page := `<html><head>
<title>Broken</title>
<script type="application/ld+json">{not json</script>
</head><body></body></html>`
	record, err := ExtractRecord([]byte(page), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Extraction().Method != "heuristic" {
		t.Error("malformed JSON-LD should fall back to heuristics")
	}
}

func TestStringProp(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"  plain  ", "plain"},
		{[]any{"a", "b"}, "a, b"},
		{[]any{"a", 3, "b"}, "a, b"},
		{42, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := stringProp(tt.in); got != tt.want {
			t.Errorf("stringProp(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseURL(t *testing.T) {
	u, err := ParseURL("https://example.com/menu")
	if err != nil || u.Host != "example.com" {
		t.Errorf("unexpected %v, %v", u, err)
	}
}
