// Package questionbank loads question banks from YAML files and serves
// read-only question pools keyed by category or pathway.
package questionbank

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/neurlyn/internal/model"
)

// PathwayCategory is the category used by pathway-specific questions.
const PathwayCategory = "pathway"

//go:embed default.yaml
var defaultBank []byte

type bankFile struct {
	Version   int              `yaml:"version"`
	Questions []model.Question `yaml:"questions"`
}

// Bank is an immutable, validated set of questions.
type Bank struct {
	questions []model.Question
	byID      map[string]int
}

// Default returns the embedded question bank.
func Default() (*Bank, error) {
	return Parse(defaultBank)
}

// LoadFile reads a YAML question bank from the provided file path.
func LoadFile(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	bank, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bank, nil
}

// Parse decodes and validates a YAML question bank.
func Parse(data []byte) (*Bank, error) {
	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode question bank: %w", err)
	}
	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}
	bank := &Bank{byID: make(map[string]int, len(file.Questions))}
	for i, q := range file.Questions {
		q = applyDefaults(q)
		if err := validate(q); err != nil {
			return nil, fmt.Errorf("question %d (%q): %w", i, q.ID, err)
		}
		if _, dup := bank.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		bank.byID[q.ID] = len(bank.questions)
		bank.questions = append(bank.questions, q)
	}
	return bank, nil
}

// Len returns the number of questions in the bank.
func (b *Bank) Len() int {
	return len(b.questions)
}

// All returns a copy of every question in file order.
func (b *Bank) All() []model.Question {
	out := make([]model.Question, len(b.questions))
	copy(out, b.questions)
	return out
}

// Lookup returns the question with the given id.
func (b *Bank) Lookup(id string) (model.Question, bool) {
	idx, ok := b.byID[id]
	if !ok {
		return model.Question{}, false
	}
	return b.questions[idx], true
}

// Pool returns the questions for a category or pathway key in file order.
func (b *Bank) Pool(key string) []model.Question {
	keep := FilterForKey(key)
	var out []model.Question
	for _, q := range b.questions {
		if keep(q) {
			out = append(out, q)
		}
	}
	return out
}

func applyDefaults(q model.Question) model.Question {
	q.ID = strings.TrimSpace(q.ID)
	q.Category = strings.ToLower(strings.TrimSpace(q.Category))
	q.Trait = strings.ToLower(strings.TrimSpace(q.Trait))
	if q.Type == "" {
		q.Type = model.ResponseLikert
	}
	if q.ScaleMin == 0 && q.ScaleMax == 0 {
		switch q.Type {
		case model.ResponseSlider:
			q.ScaleMin, q.ScaleMax = 0, 100
		case model.ResponseChoice:
			q.ScaleMin, q.ScaleMax = choiceBounds(q.Choices)
		default:
			q.ScaleMin, q.ScaleMax = 1, 5
		}
	}
	if q.Pathway != "" && q.Category == "" {
		q.Category = PathwayCategory
	}
	return q
}

func choiceBounds(choices []model.Choice) (float64, float64) {
	if len(choices) == 0 {
		return 0, 0
	}
	lo, hi := choices[0].Value, choices[0].Value
	for _, c := range choices[1:] {
		if c.Value < lo {
			lo = c.Value
		}
		if c.Value > hi {
			hi = c.Value
		}
	}
	return lo, hi
}

func validate(q model.Question) error {
	if q.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("text is required")
	}
	switch q.Type {
	case model.ResponseLikert, model.ResponseSlider:
	case model.ResponseChoice:
		if len(q.Choices) < 2 {
			return fmt.Errorf("choice question needs at least 2 choices")
		}
	default:
		return fmt.Errorf("unknown response type %q", q.Type)
	}
	if q.ScaleMax <= q.ScaleMin {
		return fmt.Errorf("scale_max must be greater than scale_min")
	}
	if q.Pathway != "" {
		if _, ok := model.LookupPathway(q.Pathway); !ok {
			return fmt.Errorf("unknown pathway %q", q.Pathway)
		}
		return nil
	}
	if !isBaseCategory(q.Category) {
		return fmt.Errorf("unknown category %q", q.Category)
	}
	return nil
}

func isBaseCategory(category string) bool {
	for _, c := range model.CategoryRotation {
		if c == category {
			return true
		}
	}
	return false
}
