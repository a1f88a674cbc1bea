// Package matching associates inconsistently named conversations, meetings and deals
// with canonical companies
package matching

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// Config holds matching configuration
type Config struct {
	// Threshold is the minimum similarity ratio for two names to match
	Threshold float64
	// MinSubstringLength is the normalized length both names need before containment counts
	MinSubstringLength int
	// ReservedFragments disable containment matching when present in either name
	ReservedFragments []string
	// RatioConfidenceFloor is the ratio a pair has to exceed to earn a ratio based confidence
	RatioConfidenceFloor float64
}

// DefaultConfig returns default matching configuration
func DefaultConfig() Config {
	return Config{
		Threshold:            0.85,
		MinSubstringLength:   6,
		ReservedFragments:    []string{"-bit", "-safe", "-minter"},
		RatioConfidenceFloor: 0.8,
	}
}

const (
	confidenceExact       = 1.0
	confidenceBaseCompany = 0.95
	confidenceContainment = 0.9
	confidencePartial     = 0.85
)

// bitsafeSuffix is the trailing marker some shared channels carry
const bitsafeSuffix = "-bitsafe"

// Matcher performs fuzzy company matching. It is safe for concurrent use.
// Only names and companies passed to Warm are cached, so memory stays bounded by the catalog
// however many distinct channel names pass through.
type Matcher struct {
	cfg      Config
	scorer   *Scorer
	variants sync.Map // catalog name -> []string
	patterns sync.Map // *models.Company -> []*regexp.Regexp
}

// NewMatcher creates a new Matcher
func NewMatcher(cfg Config) *Matcher {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	return &Matcher{
		cfg:    cfg,
		scorer: NewScorer(),
	}
}

// Config returns the matcher configuration
func (m *Matcher) Config() Config {
	return m.cfg
}

// ScoredMatch is a record that matched a company, with its ranking confidence
type ScoredMatch struct {
	RecordID   string  `json:"record_id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// IsMatch reports whether two names refer to the same company
func (m *Matcher) IsMatch(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	na := normalizers.NormalizeCompanyName(a)
	nb := normalizers.NormalizeCompanyName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if m.scorer.Ratio(na, nb) >= m.cfg.Threshold {
		return true
	}
	return m.contains(a, b, na, nb)
}

// contains applies the guarded substring rule on normalized forms
func (m *Matcher) contains(a, b, na, nb string) bool {
	if utf8.RuneCountInString(na) < m.cfg.MinSubstringLength || utf8.RuneCountInString(nb) < m.cfg.MinSubstringLength {
		return false
	}
	if m.hasReservedFragment(a) || m.hasReservedFragment(b) {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

func (m *Matcher) hasReservedFragment(s string) bool {
	s = strings.ToLower(s)
	for _, fragment := range m.cfg.ReservedFragments {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}

// Warm precomputes variants and mention patterns for the catalog companies. The companies
// must not move afterwards since patterns are keyed by company pointer.
func (m *Matcher) Warm(companies []models.Company) {
	for i := range companies {
		company := &companies[i]
		for _, name := range company.Names() {
			m.variants.Store(name, normalizers.GenerateVariants(name))
		}
		m.patterns.Store(company, m.buildMentionPatterns(company))
	}
}

// VariantsOf returns the variant set for a name, from the cache when the name was warmed
func (m *Matcher) VariantsOf(name string) []string {
	if cached, ok := m.variants.Load(name); ok {
		return cached.([]string)
	}
	return normalizers.GenerateVariants(name)
}

// MatchCompanyToChannel reports whether a conversation name belongs to the company.
// Every variant of every company name is compared against every variant of the channel name.
func (m *Matcher) MatchCompanyToChannel(company *models.Company, channelName string, sourceType models.SourceType) bool {
	channelName = strings.TrimSpace(channelName)
	if company == nil || channelName == "" {
		return false
	}

	if sourceType != "" {
		if group := company.GroupNames[sourceType.Platform()]; group != "" &&
			normalizers.NormalizeCompanyName(group) == normalizers.NormalizeCompanyName(channelName) {
			return true
		}
	}

	if m.matchVariants(company, channelName) {
		return true
	}

	lower := strings.ToLower(channelName)
	if strings.HasSuffix(lower, bitsafeSuffix) {
		stripped := strings.TrimSpace(channelName[:len(channelName)-len(bitsafeSuffix)])
		if stripped != "" {
			return m.matchVariants(company, stripped)
		}
	}
	return false
}

func (m *Matcher) matchVariants(company *models.Company, channelName string) bool {
	channelVariants := m.VariantsOf(channelName)
	for _, name := range company.Names() {
		for _, cv := range m.VariantsOf(name) {
			for _, chv := range channelVariants {
				if m.IsMatch(cv, chv) {
					return true
				}
			}
		}
	}
	return false
}

// CalculateConfidence ranks how strongly a name points at the company, between 0.0 and 1.0.
// It is used for ordering candidates only; it does not gate matching.
func (m *Matcher) CalculateConfidence(company *models.Company, channelName string) float64 {
	channelName = strings.TrimSpace(channelName)
	if company == nil || channelName == "" {
		return 0
	}

	channelNames := []string{channelName}
	if lower := strings.ToLower(channelName); strings.HasSuffix(lower, bitsafeSuffix) {
		if stripped := strings.TrimSpace(channelName[:len(channelName)-len(bitsafeSuffix)]); stripped != "" {
			channelNames = append(channelNames, stripped)
		}
	}

	channelSet := make(map[string]bool)
	for _, n := range channelNames {
		for _, v := range m.VariantsOf(n) {
			channelSet[v] = true
		}
	}

	if m.anyVariantIn(company.PrimaryNames(), channelSet) {
		return confidenceExact
	}
	if company.BaseCompany != "" && m.anyVariantIn([]string{company.BaseCompany}, channelSet) {
		return confidenceBaseCompany
	}

	best := 0.0
	channelForms := m.normalizedForms(channelNames)
	for _, companyForm := range m.normalizedForms(company.Names()) {
		for _, channelForm := range channelForms {
			best = max(best, m.pairConfidence(companyForm, channelForm))
		}
	}
	return best
}

func (m *Matcher) anyVariantIn(names []string, set map[string]bool) bool {
	for _, n := range names {
		for _, v := range m.VariantsOf(n) {
			if set[v] {
				return true
			}
		}
	}
	return false
}

// normalizedForms returns the distinct normalized forms of every variant of the names
func (m *Matcher) normalizedForms(names []string) []string {
	seen := make(map[string]bool)
	var forms []string
	for _, n := range names {
		for _, v := range m.VariantsOf(n) {
			f := normalizers.NormalizeCompanyName(v)
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			forms = append(forms, f)
		}
	}
	sort.Strings(forms)
	return forms
}

// pairConfidence scores two normalized forms with the containment and ratio rules
func (m *Matcher) pairConfidence(a, b string) float64 {
	confidence := 0.0
	if m.contains(a, b, a, b) {
		shorter, longer := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		confidence = confidencePartial
		if shorter*2 >= longer {
			confidence = confidenceContainment
		}
	}
	if ratio := m.scorer.Ratio(a, b); ratio > m.cfg.RatioConfidenceFloor {
		confidence = max(confidence, ratio)
	}
	return confidence
}

// FindBestMatches returns the conversations that belong to the company, best first.
// Duplicate record ids are collapsed and ties are ordered by record id.
func (m *Matcher) FindBestMatches(company *models.Company, records []models.ConversationRecord) []ScoredMatch {
	seen := make(map[string]bool, len(records))
	var matches []ScoredMatch
	for _, record := range records {
		if seen[record.ID] {
			continue
		}
		seen[record.ID] = true

		if !m.MatchCompanyToChannel(company, record.RawName, record.SourceType) {
			continue
		}
		matches = append(matches, ScoredMatch{
			RecordID:   record.ID,
			Name:       record.RawName,
			Confidence: m.CalculateConfidence(company, record.RawName),
		})
	}

	SortMatches(matches)
	return matches
}

// SortMatches orders matches by confidence descending, then record id ascending
func SortMatches(matches []ScoredMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].RecordID < matches[j].RecordID
	})
}
