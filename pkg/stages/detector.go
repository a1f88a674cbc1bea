// Package stages detects sales stages in message text by keyword
package stages

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// ErrInvalidStages is returned when a stage set cannot be used for scoring
var ErrInvalidStages = errors.New("invalid stage definitions")

// TotalWeight is the sum every stage set must add up to
const TotalWeight = 100

const (
	baseConfidence     = 0.3
	confidencePerMatch = 0.4
)

type stage struct {
	name     string
	weight   int
	keywords []string
}

// Detector finds stage hits in text. It is immutable and safe for concurrent use.
type Detector struct {
	stages []stage
}

// Validate checks a stage set: names present and unique, weights in range,
// weights summing to 100 and at least one keyword per stage
func Validate(definitions []models.StageDefinition) error {
	if len(definitions) == 0 {
		return fmt.Errorf("%w: no stages defined", ErrInvalidStages)
	}

	var problems []string
	seen := make(map[string]bool, len(definitions))
	total := 0
	for i, def := range definitions {
		name := strings.TrimSpace(def.Name)
		switch {
		case name == "":
			problems = append(problems, fmt.Sprintf("stage %d has no name", i))
		case seen[name]:
			problems = append(problems, fmt.Sprintf("stage %q is defined more than once", name))
		}
		seen[name] = true

		if def.Weight < 0 || def.Weight > TotalWeight {
			problems = append(problems, fmt.Sprintf("stage %q weight %d is outside 0-100", name, def.Weight))
		}
		total += def.Weight

		keywords := 0
		for _, kw := range def.Keywords {
			if strings.TrimSpace(kw) != "" {
				keywords++
			}
		}
		if keywords == 0 {
			problems = append(problems, fmt.Sprintf("stage %q has no keywords", name))
		}
	}
	if total != TotalWeight {
		problems = append(problems, fmt.Sprintf("stage weights sum to %d, expected %d", total, TotalWeight))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidStages, strings.Join(problems, "; "))
	}
	return nil
}

// NewDetector validates the stage set and builds a detector for it
func NewDetector(definitions []models.StageDefinition) (*Detector, error) {
	if err := Validate(definitions); err != nil {
		return nil, err
	}

	d := &Detector{stages: make([]stage, 0, len(definitions))}
	for _, def := range definitions {
		s := stage{name: strings.TrimSpace(def.Name), weight: def.Weight}
		for _, kw := range def.Keywords {
			if kw = normalizers.NormalizeText(kw); kw != "" {
				s.keywords = append(s.keywords, kw)
			}
		}
		d.stages = append(d.stages, s)
	}
	return d, nil
}

// Weight returns the weight of a stage, or 0 for unknown stages
func (d *Detector) Weight(name string) int {
	for _, s := range d.stages {
		if s.name == name {
			return s.weight
		}
	}
	return 0
}

// Weights returns the weight of every stage keyed by name
func (d *Detector) Weights() map[string]int {
	weights := make(map[string]int, len(d.stages))
	for _, s := range d.stages {
		weights[s.name] = s.weight
	}
	return weights
}

// StageNames returns the stage names in declaration order
func (d *Detector) StageNames() []string {
	names := make([]string, len(d.stages))
	for i, s := range d.stages {
		names[i] = s.name
	}
	return names
}

// Detect returns every stage whose keywords occur in the text, in declaration order.
// Keywords match as case-insensitive substrings and each occurrence counts.
// Confidence is min(1.0, 0.3 + 0.4 * count).
func (d *Detector) Detect(text string) []models.StageHit {
	text = normalizers.NormalizeText(text)
	if text == "" {
		return nil
	}

	var hits []models.StageHit
	for _, s := range d.stages {
		count := 0
		for _, kw := range s.keywords {
			count += strings.Count(text, kw)
		}
		if count == 0 {
			continue
		}
		hits = append(hits, models.StageHit{
			Stage:      s.name,
			Count:      count,
			Confidence: Confidence(count),
		})
	}
	return hits
}

// Confidence converts a keyword count into a stage confidence
func Confidence(count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(1.0, baseConfidence+confidencePerMatch*float64(count))
}
