package content

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/ashureev/learnpath/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "schema://learnpath/content.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error

	slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// reservedSlugs are root paths served before section pages.
var reservedSlugs = map[string]struct{}{
	"api":     {},
	"health":  {},
	"metrics": {},
	"ping":    {},
	"static":  {},
	"ws":      {},
}

// IsReservedSlug reports whether slug collides with a fixed route.
func IsReservedSlug(slug string) bool {
	_, ok := reservedSlugs[slug]
	return ok
}

// ValidationError describes a semantic problem in a content document.
type ValidationError struct {
	Section string
	Lesson  string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Lesson != "" {
		return fmt.Sprintf("content: section %q lesson %q: %s", e.Section, e.Lesson, e.Reason)
	}
	return fmt.Sprintf("content: section %q: %s", e.Section, e.Reason)
}

func getSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal(schemaJSON, &doc); err != nil {
			schemaErr = fmt.Errorf("parse content schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add content schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// decodeGeneric decodes the document into plain JSON values so both
// formats can be checked against the same schema.
func decodeGeneric(data []byte, format Format) (any, error) {
	var v any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return v, nil
	case FormatYAML:
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		// Round-trip through JSON to normalize numbers and reject non-string keys.
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("normalize YAML: %w", err)
		}
		var normalized any
		if err := json.Unmarshal(raw, &normalized); err != nil {
			return nil, fmt.Errorf("normalize YAML: %w", err)
		}
		return normalized, nil
	default:
		return nil, fmt.Errorf("unsupported content format %q", format)
	}
}

func validateSchema(doc any) error {
	schema, err := getSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func validateSection(s *domain.Section) error {
	if !slugPattern.MatchString(s.Slug) {
		return &ValidationError{Section: s.Slug, Reason: "invalid section slug"}
	}
	if IsReservedSlug(s.Slug) {
		return &ValidationError{Section: s.Slug, Reason: "reserved section slug"}
	}
	if len(s.Lessons) == 0 {
		return &ValidationError{Section: s.Slug, Reason: "no lessons"}
	}

	seen := make(map[string]struct{}, len(s.Lessons))
	for _, l := range s.Lessons {
		if !slugPattern.MatchString(l.Slug) {
			return &ValidationError{Section: s.Slug, Lesson: l.Slug, Reason: "invalid lesson slug"}
		}
		if _, dup := seen[l.Slug]; dup {
			return &ValidationError{Section: s.Slug, Lesson: l.Slug, Reason: "duplicate lesson slug"}
		}
		seen[l.Slug] = struct{}{}

		if len(l.Challenges) == 0 {
			return &ValidationError{Section: s.Slug, Lesson: l.Slug, Reason: "no challenges"}
		}
		for i, c := range l.Challenges {
			if !c.HasAnswer(c.CorrectAnswerIndex) {
				return &ValidationError{
					Section: s.Slug,
					Lesson:  l.Slug,
					Reason:  fmt.Sprintf("challenge %d: correctAnswerIndex %d out of range", i, c.CorrectAnswerIndex),
				}
			}
		}
	}
	return nil
}
