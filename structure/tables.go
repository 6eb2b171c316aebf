package structure

import "regexp"

// Static lookup tables driving the relationship detectors and the enricher.
// These are fixed configuration data, read-only after init.

// fieldHierarchy is the three-level restaurant field tree used by the
// hierarchical relationship detector. A parent field present in the record
// links to every chunk of every present child field via has_<child>.
var fieldHierarchy = map[string][]string{
	"name":     {"cuisine", "description", "menu", "location", "hours", "contact"},
	"menu":     {"price_range", "dietary_options", "specialties"},
	"location": {"parking", "accessibility", "nearby_attractions"},
}

// relatedFieldGroups boosts Jaccard similarity between chunks whose source
// fields belong to the same conceptual group.
var relatedFieldGroups = [][]string{
	{"menu", "cuisine", "price_range"},
	{"location", "hours", "contact"},
	{"ambiance", "description", "specialties"},
	{"specials", "events", "hours"},
}

// crossReferenceTable maps a source field to the fields its chunks
// cross-reference.
var crossReferenceTable = map[string][]string{
	"menu":     {"price_range", "cuisine"},
	"location": {"hours", "contact"},
	"specials": {"menu", "hours"},
	"reviews":  {"menu", "ambiance"},
}

// dependencyTable maps a dependent field to its prerequisites.
var dependencyTable = map[string][]string{
	"hours":    {"location"},
	"menu":     {"cuisine"},
	"specials": {"menu"},
	"delivery": {"location", "hours"},
}

// temporalFields are fields whose chunks are inherently time-sensitive.
var temporalFields = map[string]bool{
	"hours":    true,
	"specials": true,
	"events":   true,
	"schedule": true,
}

// mainFields mark the chunks treated as "main" by the containment detector.
var mainFields = map[string]bool{
	"name":        true,
	"description": true,
}

// domainKeywords is the fixed per-field keyword vocabulary attached by the
// enricher. The record's cuisine value is appended at enrichment time.
var domainKeywords = map[string][]string{
	"menu":        {"menu", "dishes", "meals", "ingredients"},
	"hours":       {"hours", "schedule", "open", "closed"},
	"location":    {"address", "directions", "parking", "neighborhood"},
	"contact":     {"phone", "email", "reservations", "booking"},
	"cuisine":     {"cuisine", "food", "cooking", "style"},
	"price_range": {"price", "cost", "budget", "affordable"},
	"ambiance":    {"atmosphere", "ambiance", "decor", "setting"},
	"specials":    {"specials", "deals", "offers", "promotions"},
}

// relationshipHints is the static field-adjacency table used for the
// relationship_hints enrichment block.
var relationshipHints = map[string][]string{
	"menu":     {"cuisine", "price_range", "ambiance", "location"},
	"hours":    {"location", "contact", "specials"},
	"location": {"hours", "contact", "parking"},
	"cuisine":  {"menu", "specialties", "price_range"},
	"contact":  {"location", "hours"},
	"specials": {"menu", "hours", "events"},
}

// importanceWeights assigns the static per-field embedding importance,
// defaulting to 0.5 for unlisted fields.
var importanceWeights = map[string]float64{
	"name":        1.0,
	"cuisine":     0.9,
	"menu":        0.9,
	"description": 0.8,
	"location":    0.8,
	"hours":       0.7,
	"contact":     0.7,
	"specialties": 0.6,
	"ambiance":    0.6,
	"price_range": 0.5,
}

const defaultImportance = 0.5

// queryTemplates supplies three suggested retrieval queries per field. %s is
// the entity name.
var queryTemplates = map[string][3]string{
	"name":        {"What is %s?", "Tell me about %s", "Information about %s"},
	"menu":        {"What dishes does %s serve?", "What is on the menu at %s?", "What can I eat at %s?"},
	"hours":       {"When is %s open?", "What are the opening hours of %s?", "Is %s open now?"},
	"location":    {"Where is %s located?", "How do I get to %s?", "What is the address of %s?"},
	"contact":     {"How do I contact %s?", "What is the phone number of %s?", "How do I book a table at %s?"},
	"cuisine":     {"What kind of food does %s serve?", "What cuisine is %s?", "What style of cooking does %s offer?"},
	"price_range": {"How expensive is %s?", "What are the prices at %s?", "Is %s affordable?"},
	"description": {"Describe %s", "What is %s like?", "What makes %s special?"},
}

var defaultQueryTemplates = [3]string{
	"What does %s offer?", "Details about %s", "More information on %s",
}

// fieldNodes are the stable field-level node IDs used by the basic
// relationship builder in the structurer.
var fieldNodes = map[string]string{
	"name":        "restaurant_info",
	"menu":        "menu_items",
	"hours":       "operating_hours",
	"location":    "location_info",
	"contact":     "contact_info",
	"cuisine":     "cuisine_info",
	"price_range": "price_info",
	"description": "description_info",
}

// expectedFields is the field set the missing-data report is computed
// against: top-level restaurant fields plus location/contact sub-fields.
var expectedFields = []string{
	"name", "cuisine", "description", "menu", "hours",
	"location", "contact", "price_range",
	"location.address", "location.city",
	"contact.phone", "contact.email",
}

// Temporal keyword detection: month names, weekday names, relative-date words.
var (
	monthPattern    = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	weekdayPattern  = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	relativePattern = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|yesterday|weekend|daily|weekly|monthly|seasonal|now)\b`)
)

func hasTemporalKeywords(text string) bool {
	return monthPattern.MatchString(text) ||
		weekdayPattern.MatchString(text) ||
		relativePattern.MatchString(text)
}
