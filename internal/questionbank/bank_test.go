package questionbank

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/neurlyn/internal/model"
)

func TestDefaultBankCoversEveryPool(t *testing.T) {
	bank, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	base := 0
	for _, category := range model.CategoryRotation {
		pool := bank.Pool(category)
		if len(pool) == 0 {
			t.Fatalf("expected questions for category %s", category)
		}
		base += len(pool)
	}
	if base < model.DefaultPolicy().Tiers[model.TierDeep] {
		t.Fatalf("base pool (%d) smaller than the deep tier budget", base)
	}
	for _, def := range model.Pathways {
		if len(bank.Pool(string(def.ID))) == 0 {
			t.Fatalf("expected questions for pathway %s", def.ID)
		}
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	data := []byte(`
version: 1
questions:
  - id: q1
    text: "Likert item"
    category: Self-Awareness
    trait: openness
  - id: q2
    text: "Slider item"
    category: cognitive-patterns
    type: slider
  - id: q3
    text: "Choice item"
    pathway: adhd_pathway
    type: choice
    choices:
      - {label: Never, value: 0}
      - {label: Often, value: 4}
`)
	bank, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	q1, _ := bank.Lookup("q1")
	if q1.Type != model.ResponseLikert || q1.ScaleMin != 1 || q1.ScaleMax != 5 {
		t.Fatalf("unexpected likert defaults: %+v", q1)
	}
	if q1.Category != model.CategorySelfAwareness {
		t.Fatalf("expected normalized category, got %q", q1.Category)
	}
	q2, _ := bank.Lookup("q2")
	if q2.ScaleMin != 0 || q2.ScaleMax != 100 {
		t.Fatalf("unexpected slider bounds: %+v", q2)
	}
	q3, _ := bank.Lookup("q3")
	if q3.Category != PathwayCategory || q3.ScaleMin != 0 || q3.ScaleMax != 4 {
		t.Fatalf("unexpected choice defaults: %+v", q3)
	}
}

func TestParseRejectsInvalidBanks(t *testing.T) {
	cases := map[string]string{
		"duplicate": `questions:
  - {id: a, text: x, category: self-awareness}
  - {id: a, text: y, category: self-awareness}`,
		"category": `questions:
  - {id: a, text: x, category: nowhere}`,
		"pathway": `questions:
  - {id: a, text: x, pathway: dyslexia_pathway}`,
		"empty": `questions: []`,
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	content := "questions:\n  - {id: a, text: x, category: behavioral-traits}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write bank: %v", err)
	}
	bank, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if bank.Len() != 1 {
		t.Fatalf("expected 1 question, got %d", bank.Len())
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("questions: [{id: a}]"), 0o644); err != nil {
		t.Fatalf("write bank: %v", err)
	}
	if _, err := LoadFile(bad); err == nil || !strings.Contains(err.Error(), bad) {
		t.Fatalf("expected error mentioning path, got %v", err)
	}
}

type countingSource struct {
	*Bank
	calls int
}

func (c *countingSource) Pool(key string) []model.Question {
	c.calls++
	return c.Bank.Pool(key)
}

func TestCacheMemoizesPools(t *testing.T) {
	bank, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	src := &countingSource{Bank: bank}
	cache, err := NewCache(src, 4)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	first := cache.Pool(model.CategorySelfAwareness)
	second := cache.Pool(model.CategorySelfAwareness)
	if src.calls != 1 {
		t.Fatalf("expected 1 source call, got %d", src.calls)
	}
	if len(first) != len(second) || len(first) == 0 {
		t.Fatalf("unexpected pools: %d vs %d", len(first), len(second))
	}
	if _, ok := cache.Lookup(first[0].ID); !ok {
		t.Fatalf("expected lookup through cache to succeed")
	}
}
