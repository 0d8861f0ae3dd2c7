package payload

import "strings"

// Document is the applicant's accumulating answer tree. Values are nullable
// scalars, nested objects, or small arrays, addressed by dot-delimited paths
// like "personal.spouse.surnames".
type Document map[string]any

// Top-level sections every application document starts with.
var sections = []string{
	"personal",
	"contact",
	"passport",
	"travel",
	"previous_travel",
	"family",
	"work_history",
	"security_questions",
}

// Root-level triage scalars that live outside the sections.
var rootScalars = map[string]bool{
	"primary_occupation":  true,
	"monthly_income":      true,
	"marital_status":      true,
	"triage_has_children": true,
	"triage_property":     true,
	"has_refusals":        true,
	"has_previous_visa":   true,
}

// New returns an empty document with all top-level sections present.
func New() Document {
	doc := Document{}
	for _, s := range sections {
		doc[s] = map[string]any{}
	}
	return doc
}

// ValidPath reports whether a dot-delimited path roots in the document
// schema. Guards writes from untrusted path sources (classifier side
// extractions) against typos creating phantom fields.
func ValidPath(path string) bool {
	if path == "" {
		return false
	}
	root := path
	if i := strings.IndexByte(path, '.'); i >= 0 {
		root = path[:i]
	}
	if rootScalars[root] {
		return root == path
	}
	for _, s := range sections {
		if root == s {
			return true
		}
	}
	return false
}

// Get descends the document along a dot-delimited path. A missing path means
// "unanswered" and returns (nil, false), never an error.
func Get(doc Document, path string) (any, bool) {
	if doc == nil || path == "" {
		return nil, false
	}
	var cur any = map[string]any(doc)
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set writes a value at a dot-delimited path, creating intermediate objects
// as needed. This is the only mutation primitive for the document; writing
// through an existing non-object value replaces it with an object.
func Set(doc Document, path string, value any) {
	if doc == nil || path == "" {
		return
	}
	keys := strings.Split(path, ".")
	cur := map[string]any(doc)
	for _, key := range keys[:len(keys)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = value
}

// Answered reports whether a value counts as an answer: not nil and not the
// empty string. Zero numbers and false booleans are answers.
func Answered(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// IsAnswered reports whether the field at path holds an answer.
func IsAnswered(doc Document, path string) bool {
	v, ok := Get(doc, path)
	return ok && Answered(v)
}

// Reset wipes the field at path back to unanswered. Used both by
// confirmation rejection and by the admin reset-field operation.
func Reset(doc Document, path string) {
	Set(doc, path, nil)
}

// GetString returns the field at path as a string, or "" if unanswered or
// not a string.
func GetString(doc Document, path string) string {
	v, ok := Get(doc, path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetFloat returns the field at path as a float64. JSON round-trips store
// numbers as float64; ints written in-process are converted.
func GetFloat(doc Document, path string) (float64, bool) {
	v, ok := Get(doc, path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
