package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	maitre "github.com/platewise/maitre"
)

// HTMLExtractor extracts readable article text from a webpage, dropping
// navigation, ads, and boilerplate.
type HTMLExtractor struct{}

var _ Extractor = HTMLExtractor{}

func (HTMLExtractor) Extract(content []byte) (string, error) {
	return extractReadable(content, &url.URL{Scheme: "https", Host: "localhost"})
}

// ExtractFromURL extracts readable text, resolving relative links against
// the page URL.
func (HTMLExtractor) ExtractFromURL(content []byte, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{Scheme: "https", Host: "localhost"}
	}
	return extractReadable(content, u)
}

func extractReadable(content []byte, u *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(content), u)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

// ExtractRecord parses restaurant structured data out of a webpage.
// Schema.org Restaurant JSON-LD is preferred; when absent, page heuristics
// (title, headings, meta description) produce a lower-confidence record.
// The returned record always carries _metadata with the extraction method,
// confidence, source URL, and scrape timestamp.
func ExtractRecord(content []byte, pageURL string) (maitre.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	record, found := recordFromJSONLD(doc)
	method, confidence := "jsonld", 0.9
	if !found {
		record = recordFromHeuristics(doc)
		method, confidence = "heuristic", 0.6
	}

	record["_metadata"] = map[string]any{
		"extraction_method": method,
		"confidence":        confidence,
		"url":               pageURL,
		"scrape_timestamp":  maitre.NowUTC(),
	}
	return record, nil
}

// recordFromJSONLD scans <script type="application/ld+json"> blocks for a
// schema.org Restaurant node, including nodes nested inside @graph.
func recordFromJSONLD(doc *goquery.Document) (maitre.Record, bool) {
	var record maitre.Record
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(sel.Text()), &payload); err != nil {
			return true // malformed block, keep scanning
		}
		if node := findRestaurantNode(payload); node != nil {
			record = recordFromSchema(node)
			return false
		}
		return true
	})
	return record, record != nil
}

func findRestaurantNode(payload any) map[string]any {
	switch v := payload.(type) {
	case map[string]any:
		if isRestaurantType(v["@type"]) {
			return v
		}
		if graph, ok := v["@graph"].([]any); ok {
			return findRestaurantNode(graph)
		}
	case []any:
		for _, item := range v {
			if node := findRestaurantNode(item); node != nil {
				return node
			}
		}
	}
	return nil
}

func isRestaurantType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Restaurant" || v == "FoodEstablishment"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && (s == "Restaurant" || s == "FoodEstablishment") {
				return true
			}
		}
	}
	return false
}

// recordFromSchema maps schema.org Restaurant properties onto record fields.
func recordFromSchema(node map[string]any) maitre.Record {
	record := maitre.Record{}

	if name := stringProp(node["name"]); name != "" {
		record["name"] = name
	}
	if cuisine := stringProp(node["servesCuisine"]); cuisine != "" {
		record["cuisine"] = cuisine
	}
	if desc := stringProp(node["description"]); desc != "" {
		record["description"] = desc
	}
	if pr := stringProp(node["priceRange"]); pr != "" {
		record["price_range"] = pr
	}
	if hours := stringProp(node["openingHours"]); hours != "" {
		record["hours"] = hours
	}

	contact := map[string]any{}
	if tel := stringProp(node["telephone"]); tel != "" {
		contact["phone"] = tel
	}
	if email := stringProp(node["email"]); email != "" {
		contact["email"] = email
	}
	if len(contact) > 0 {
		record["contact"] = contact
	}

	if addr, ok := node["address"].(map[string]any); ok {
		location := map[string]any{}
		if street := stringProp(addr["streetAddress"]); street != "" {
			location["address"] = street
		}
		if city := stringProp(addr["addressLocality"]); city != "" {
			location["city"] = city
		}
		if len(location) > 0 {
			record["location"] = location
		}
	} else if addr := stringProp(node["address"]); addr != "" {
		record["location"] = map[string]any{"address": addr}
	}

	return record
}

// stringProp renders a schema.org property that may be a string or a list
// of strings.
func stringProp(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		var parts []string
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// recordFromHeuristics falls back to page structure when no structured data
// exists: og:site_name or <title> or first <h1> for the name, the meta
// description for the description.
func recordFromHeuristics(doc *goquery.Document) maitre.Record {
	record := maitre.Record{}

	name, _ := doc.Find(`meta[property="og:site_name"]`).Attr("content")
	if name == "" {
		name = doc.Find("title").First().Text()
	}
	if name == "" {
		name = doc.Find("h1").First().Text()
	}
	if name = strings.TrimSpace(name); name != "" {
		record["name"] = name
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			record["description"] = desc
		}
	}

	return record
}

// ParseURL is a small convenience for callers that need the article URL as
// *url.URL for readability-based extraction.
func ParseURL(raw string) (*url.URL, error) {
	return url.Parse(raw)
}
