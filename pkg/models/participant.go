package models

// Participant is an internal team member eligible for commission
type Participant struct {
	Key           string              `json:"key" yaml:"key" validate:"required"`
	CanonicalName string              `json:"canonical_name" yaml:"canonical_name" validate:"required"`
	PlatformIDs   map[Platform]string `json:"platform_ids,omitempty" yaml:"platform_ids"`
	Founder       bool                `json:"founder,omitempty" yaml:"founder"`
}

// StageDefinition describes one sales stage and the keywords that signal it
type StageDefinition struct {
	Name     string   `json:"name" yaml:"name" validate:"required"`
	Weight   int      `json:"weight" yaml:"weight" validate:"gte=0,lte=100"`
	Keywords []string `json:"keywords" yaml:"keywords" validate:"required,min=1,dive,required"`
}

// StageHit is a single stage detected in a piece of text
type StageHit struct {
	Stage      string  `json:"stage"`
	Count      int     `json:"count"`
	Confidence float64 `json:"confidence"`
}
