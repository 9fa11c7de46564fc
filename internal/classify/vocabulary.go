package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleConfig is one category rule in the vocabulary file.
type RuleConfig struct {
	Label       string   `yaml:"label"`
	Counterpart []string `yaml:"counterpart"`
	Keywords    []string `yaml:"keywords"`
}

// Vocabulary is the on-disk form of the vendor list and category rules:
//
//	vendors: [Swiggy, Zomato, ...]
//	rules:
//	  - label: Food & Dining
//	    counterpart: [Swiggy, Zomato]
//	  - label: Payments
//	    counterpart: [Paytm]
//	    keywords: [upi]
type Vocabulary struct {
	Vendors []string     `yaml:"vendors"`
	Rules   []RuleConfig `yaml:"rules"`
}

// LoadVocabulary reads a vocabulary file. Rule order in the file is the
// precedence order.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadVocabulary: reading %s: %w", path, err)
	}

	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("LoadVocabulary: parsing %s: %w", path, err)
	}

	for i, r := range v.Rules {
		if strings.TrimSpace(r.Label) == "" {
			return nil, fmt.Errorf("LoadVocabulary: rule %d has no label", i)
		}
		if len(r.Counterpart) == 0 && len(r.Keywords) == 0 {
			return nil, fmt.Errorf("LoadVocabulary: rule %q matches nothing", r.Label)
		}
	}
	return &v, nil
}

// BuildRules turns the configured rules into classifier rules. It returns nil
// when the file defines none, so NewClassifier falls back to DefaultRules.
func (v *Vocabulary) BuildRules() []Rule {
	if v == nil || len(v.Rules) == 0 {
		return nil
	}

	rules := make([]Rule, 0, len(v.Rules))
	for _, rc := range v.Rules {
		var preds []Predicate
		if len(rc.Counterpart) > 0 {
			preds = append(preds, CounterpartContains(rc.Counterpart...))
		}
		if len(rc.Keywords) > 0 {
			preds = append(preds, TextContains(rc.Keywords...))
		}
		rules = append(rules, Rule{Label: rc.Label, Match: Any(preds...)})
	}
	return rules
}
