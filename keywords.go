package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigError marks a malformed keywords file. It is fatal: a broken or
// ambiguous registry invalidates every verdict of the run.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "keywords config: " + e.Msg
}

// KeywordRegistry holds the three rule families driving the classifier:
// EDAM terms (exact membership), keyword fragments (substring regex) and
// acronyms (whole-token). All matching is case-insensitive. A fourth list
// of exclusion phrases feeds the deny overlay. The registry is immutable
// after load.
type KeywordRegistry struct {
	edamOrder  []string
	edamTerms  map[string]bool
	patterns   []compiledRule
	acronyms   []compiledRule
	exclusions []compiledRule
}

type compiledRule struct {
	id string
	re *regexp.Regexp
}

type keywordsFile struct {
	EDAM struct {
		Topics     []string `yaml:"topics"`
		Operations []string `yaml:"operations"`
	} `yaml:"edam"`
	Keywords   []string `yaml:"keywords"`
	Acronyms   []string `yaml:"acronyms"`
	Exclusions []string `yaml:"exclusions"`
}

// LoadKeywords reads and validates the community-maintained keywords file.
// Validation failures return a *ConfigError; the caller is expected to abort
// before classifying anything.
func LoadKeywords(path string) (*KeywordRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords: %w", err)
	}
	return ParseKeywords(data)
}

// ParseKeywords builds a registry from raw YAML. Split out of LoadKeywords
// so tests can feed documents directly.
func ParseKeywords(data []byte) (*KeywordRegistry, error) {
	var f keywordsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("parse yaml: %v", err)}
	}

	reg := &KeywordRegistry{edamTerms: make(map[string]bool)}

	for _, term := range append(append([]string{}, f.EDAM.Topics...), f.EDAM.Operations...) {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if reg.edamTerms[key] {
			continue
		}
		reg.edamTerms[key] = true
		reg.edamOrder = append(reg.edamOrder, term)
	}
	if len(reg.edamOrder) == 0 {
		// An empty term list would silently reject every ontology-annotated
		// resource; treat it as a misconfiguration rather than a choice.
		return nil, &ConfigError{Msg: "edam.topics and edam.operations are both empty"}
	}

	seen := make(map[string]string)
	for id := range reg.edamTerms {
		seen[id] = "edam"
	}

	for _, raw := range f.Keywords {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		key := strings.ToLower(raw)
		if family, ok := seen[key]; ok {
			return nil, &ConfigError{Msg: fmt.Sprintf("rule %q declared in both keywords and %s", raw, family)}
		}
		seen[key] = "keywords"
		re, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			return nil, &ConfigError{Msg: fmt.Sprintf("keyword pattern %q: %v", raw, err)}
		}
		reg.patterns = append(reg.patterns, compiledRule{id: raw, re: re})
	}

	for _, raw := range f.Acronyms {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		key := strings.ToLower(raw)
		if family, ok := seen[key]; ok {
			return nil, &ConfigError{Msg: fmt.Sprintf("rule %q declared in both acronyms and %s", raw, family)}
		}
		seen[key] = "acronyms"
		reg.acronyms = append(reg.acronyms, compiledRule{id: raw, re: wordBoundaryRegexp(raw)})
	}

	for _, raw := range f.Exclusions {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(raw))
		reg.exclusions = append(reg.exclusions, compiledRule{id: raw, re: re})
	}

	return reg, nil
}

// wordBoundaryRegexp matches the acronym as a whole token: no letter may
// touch it on either side, so OTU matches "OTU table" but not "rotundus".
// Case-insensitive like every other rule family, since sources lowercase
// their tags. RE2 has no lookaround, hence the explicit boundary groups.
func wordBoundaryRegexp(acronym string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(^|[^A-Za-z])` + regexp.QuoteMeta(acronym) + `([^A-Za-z]|$)`)
}

// EDAMTerms returns the in-scope ontology terms in declared order.
func (r *KeywordRegistry) EDAMTerms() []string {
	return append([]string{}, r.edamOrder...)
}

// Patterns returns the keyword fragment rule ids in declared order.
func (r *KeywordRegistry) Patterns() []string {
	return ruleIDs(r.patterns)
}

// Acronyms returns the acronym rule ids in declared order.
func (r *KeywordRegistry) Acronyms() []string {
	return ruleIDs(r.acronyms)
}

// Exclusions returns the deny-phrase ids in declared order.
func (r *KeywordRegistry) Exclusions() []string {
	return ruleIDs(r.exclusions)
}

func ruleIDs(rules []compiledRule) []string {
	out := make([]string, len(rules))
	for i, rule := range rules {
		out[i] = rule.id
	}
	return out
}

// hasEDAMTerm reports the first registry term (declared order) present in
// the given term set. Membership is exact up to case; record terms arrive
// lowercased from the extractor.
func (r *KeywordRegistry) hasEDAMTerm(terms map[string]bool) (string, bool) {
	for _, term := range r.edamOrder {
		if terms[strings.ToLower(term)] {
			return term, true
		}
	}
	return "", false
}

// firstPatternMatch reports the first fragment rule (declared order)
// matching any of the given texts.
func (r *KeywordRegistry) firstPatternMatch(texts []string) (string, bool) {
	return firstMatch(r.patterns, texts)
}

// firstAcronymMatch reports the first acronym rule (declared order)
// matching any of the given texts as a whole token.
func (r *KeywordRegistry) firstAcronymMatch(texts []string) (string, bool) {
	return firstMatch(r.acronyms, texts)
}

// firstExclusionMatch reports the first deny phrase found in the texts.
func (r *KeywordRegistry) firstExclusionMatch(texts []string) (string, bool) {
	return firstMatch(r.exclusions, texts)
}

func firstMatch(rules []compiledRule, texts []string) (string, bool) {
	for _, rule := range rules {
		for _, text := range texts {
			if text != "" && rule.re.MatchString(text) {
				return rule.id, true
			}
		}
	}
	return "", false
}
