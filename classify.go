package main

import "strings"

// Classify runs the rule cascade over one canonical record. Stages are
// ordered by trust: controlled-vocabulary membership first, free-text
// description last. The first stage that matches wins and short-circuits the
// rest; within a stage the first rule in the registry's declared order wins.
// The function is pure: identical (record, registry) inputs always produce
// the identical verdict.
func Classify(rec ResourceRecord, reg *KeywordRegistry, runID string) Verdict {
	v := Verdict{
		ResourceID: rec.ID,
		Stage:      StageNone,
		RunID:      runID,
	}

	if rule, ok := matchOntology(rec, reg); ok {
		v.Included, v.Stage, v.Rule = true, StageOntology, rule
	} else if rule, ok := matchTags(rec, reg); ok {
		v.Included, v.Stage, v.Rule = true, StageTag, rule
	} else if rule, ok := matchTitle(rec, reg); ok {
		v.Included, v.Stage, v.Rule = true, StageTitle, rule
	} else if rule, ok := reg.firstPatternMatch([]string{rec.Description}); ok {
		// Acronyms are deliberately skipped for descriptions: bare tokens in
		// free text produce too many false positives.
		v.Included, v.Stage, v.Rule = true, StageDescription, rule
	}

	// Exclusion overlay: a curated deny phrase in the title or description
	// flips an accept into a reject. It can only ever flip true to false.
	if v.Included {
		if phrase, ok := reg.firstExclusionMatch([]string{rec.Title, rec.Description}); ok {
			v.Included = false
			v.ExcludedBy = phrase
		}
	}

	return v
}

func matchOntology(rec ResourceRecord, reg *KeywordRegistry) (string, bool) {
	terms := make(map[string]bool, len(rec.Topics)+len(rec.Operations))
	for _, t := range rec.Topics {
		terms[strings.ToLower(t)] = true
	}
	for _, op := range rec.Operations {
		terms[strings.ToLower(op)] = true
	}
	return reg.hasEDAMTerm(terms)
}

func matchTags(rec ResourceRecord, reg *KeywordRegistry) (string, bool) {
	if rule, ok := reg.firstPatternMatch(rec.Tags); ok {
		return rule, true
	}
	return reg.firstAcronymMatch(rec.Tags)
}

func matchTitle(rec ResourceRecord, reg *KeywordRegistry) (string, bool) {
	if rule, ok := reg.firstPatternMatch([]string{rec.Title}); ok {
		return rule, true
	}
	return reg.firstAcronymMatch([]string{rec.Title})
}

// ClassifyAll classifies a batch of records, keyed by nothing but input
// order. Records are independent; the registry is read-only.
func ClassifyAll(records []ResourceRecord, reg *KeywordRegistry, runID string) []Verdict {
	verdicts := make([]Verdict, 0, len(records))
	for _, rec := range records {
		verdicts = append(verdicts, Classify(rec, reg, runID))
	}
	return verdicts
}
