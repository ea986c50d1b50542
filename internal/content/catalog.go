// Package content loads the static course catalog: sections, their ordered
// lessons and each lesson's challenges. A catalog is read-only after load.
package content

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ashureev/learnpath/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed learn.json
var defaultCatalog []byte

// Format identifies the encoding of a content document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Catalog maps section slugs to sections.
type Catalog struct {
	sections map[string]*domain.Section
	order    []string
}

type sectionDoc struct {
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Lessons     []lessonDoc `json:"lessons" yaml:"lessons"`
}

type lessonDoc struct {
	Slug       string         `json:"slug" yaml:"slug"`
	Title      string         `json:"title" yaml:"title"`
	Content    string         `json:"content" yaml:"content"`
	Challenges []challengeDoc `json:"challenges" yaml:"challenges"`
}

type challengeDoc struct {
	Question           string   `json:"question" yaml:"question"`
	Answers            []string `json:"answers" yaml:"answers"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex" yaml:"correctAnswerIndex"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog, FormatJSON)
}

// Load reads a catalog file. The format is chosen by file extension.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content file: %w", err)
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	cat, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cat, nil
}

// FormatFromPath maps a file extension to a Format.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported content format %q", filepath.Ext(path))
	}
}

// Parse decodes, schema-checks and validates a content document.
func Parse(data []byte, format Format) (*Catalog, error) {
	generic, err := decodeGeneric(data, format)
	if err != nil {
		return nil, err
	}
	if err := validateSchema(generic); err != nil {
		return nil, err
	}

	var docs map[string]sectionDoc
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &docs)
	case FormatYAML:
		err = yaml.Unmarshal(data, &docs)
	}
	if err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}

	cat := &Catalog{sections: make(map[string]*domain.Section, len(docs))}
	for slug, doc := range docs {
		section := doc.toSection(slug)
		if err := validateSection(section); err != nil {
			return nil, err
		}
		cat.sections[slug] = section
		cat.order = append(cat.order, slug)
	}
	sort.Strings(cat.order)

	return cat, nil
}

// NewCatalog builds a catalog directly from sections. It skips schema
// checks, so sections without lessons are allowed.
func NewCatalog(sections ...domain.Section) *Catalog {
	cat := &Catalog{sections: make(map[string]*domain.Section, len(sections))}
	for i := range sections {
		s := sections[i]
		cat.sections[s.Slug] = &s
		cat.order = append(cat.order, s.Slug)
	}
	sort.Strings(cat.order)
	return cat
}

// Section returns the section with the given slug, or nil.
func (c *Catalog) Section(slug string) *domain.Section {
	return c.sections[slug]
}

// Sections returns all sections ordered by slug.
func (c *Catalog) Sections() []*domain.Section {
	out := make([]*domain.Section, 0, len(c.order))
	for _, slug := range c.order {
		out = append(out, c.sections[slug])
	}
	return out
}

// Len returns the number of sections.
func (c *Catalog) Len() int {
	return len(c.order)
}

func (d sectionDoc) toSection(slug string) *domain.Section {
	s := &domain.Section{
		Slug:        slug,
		Title:       d.Title,
		Description: d.Description,
		Lessons:     make([]domain.Lesson, 0, len(d.Lessons)),
	}
	for _, l := range d.Lessons {
		lesson := domain.Lesson{
			Slug:       l.Slug,
			Title:      l.Title,
			Content:    l.Content,
			Challenges: make([]domain.Challenge, 0, len(l.Challenges)),
		}
		for _, c := range l.Challenges {
			lesson.Challenges = append(lesson.Challenges, domain.Challenge{
				Question:           c.Question,
				Answers:            c.Answers,
				CorrectAnswerIndex: c.CorrectAnswerIndex,
			})
		}
		s.Lessons = append(s.Lessons, lesson)
	}
	return s
}
