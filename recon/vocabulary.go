/*
vocabulary.go - Configurable visit-name canonicalization table

PURPOSE:
  Converts JSON canonicalization rules into a VisitVocabulary. Visit-name
  spelling varies between site EDC exports and central-lab exports
  ("Screening Visit", "SCREENING", "Screening (Day -30)"); without
  canonicalization the same visit lands on both sides of the join as two
  different keys and every record at it becomes a false gap.

WHY CONFIGURATION?
  The set of spelling variants is inherently incomplete: new site-specific
  spellings appear as trials onboard new sites. Data managers grow the
  table from observed data without code changes.

JSON SCHEMA:
  {
    "substrings": [
      {"contains": "screening", "canonical": "Screening"}
    ],
    "replacements": [
      {"from": "(Day-", "to": "(Day -"},
      {"from": "(Day  ", "to": "(Day "}
    ]
  }

RULE SEMANTICS:
  - Substring rules match case-insensitively; the first match wins and the
    whole name collapses to the canonical token.
  - Replacement rules are literal, ordered rewrites applied when no
    substring rule matched.
  - Names matching no rule pass through unchanged: canonicalization is
    additive, never destructive of information needed for matching.

USAGE:
  vocab := recon.DefaultVisitVocabulary()
  // or from configuration:
  vocab, err := recon.ParseVisitVocabulary(jsonStr)
  canonical := vocab.Canonicalize("SCREENING VISIT 1")  // "Screening"

SEE ALSO:
  - normalize.go: Applies the vocabulary during normalization
*/
package recon

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// VocabularyJSON is the JSON representation of a canonicalization table.
type VocabularyJSON struct {
	Substrings   []SubstringRuleJSON `json:"substrings"`
	Replacements []ReplacementJSON   `json:"replacements"`
}

// SubstringRuleJSON collapses any visit name containing a substring
// (case-insensitive) to one canonical token.
type SubstringRuleJSON struct {
	Contains  string `json:"contains"`
	Canonical string `json:"canonical"`
}

// ReplacementJSON is a literal text rewrite, applied in order.
type ReplacementJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// =============================================================================
// VISIT VOCABULARY
// =============================================================================

type substringRule struct {
	contains  string // lowercase
	canonical VisitName
}

type replacement struct {
	from, to string
}

// VisitVocabulary canonicalizes raw visit names before matching.
// Immutable after construction; safe for concurrent runs.
type VisitVocabulary struct {
	substrings   []substringRule
	replacements []replacement
}

// DefaultVisitVocabulary returns the table seeded with the known variants:
// the screening-visit collapse and the day-offset spacing fixes.
func DefaultVisitVocabulary() *VisitVocabulary {
	return &VisitVocabulary{
		substrings: []substringRule{
			{contains: "screening", canonical: "Screening"},
		},
		replacements: []replacement{
			{from: "(Day-", to: "(Day -"},
			{from: "(Day  ", to: "(Day "},
		},
	}
}

// ParseVisitVocabulary builds a vocabulary from its JSON representation.
func ParseVisitVocabulary(jsonStr string) (*VisitVocabulary, error) {
	var cfg VocabularyJSON
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return nil, fmt.Errorf("invalid vocabulary JSON: %w", err)
	}

	v := &VisitVocabulary{}
	for _, r := range cfg.Substrings {
		if r.Contains == "" || r.Canonical == "" {
			return nil, fmt.Errorf("substring rule requires both contains and canonical")
		}
		v.substrings = append(v.substrings, substringRule{
			contains:  strings.ToLower(r.Contains),
			canonical: VisitName(r.Canonical),
		})
	}
	for _, r := range cfg.Replacements {
		if r.From == "" {
			return nil, fmt.Errorf("replacement rule requires from")
		}
		v.replacements = append(v.replacements, replacement{from: r.From, to: r.To})
	}
	return v, nil
}

// Canonicalize maps a raw visit name to its canonical form. Unrecognized
// names pass through with surrounding whitespace trimmed.
func (v *VisitVocabulary) Canonicalize(raw string) VisitName {
	name := strings.TrimSpace(raw)
	if name == "" {
		return ""
	}

	lower := strings.ToLower(name)
	for _, r := range v.substrings {
		if strings.Contains(lower, r.contains) {
			return r.canonical
		}
	}

	for _, r := range v.replacements {
		name = strings.ReplaceAll(name, r.from, r.to)
	}
	return VisitName(name)
}
