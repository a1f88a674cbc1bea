// Package catalog loads and validates the business data an attribution run needs:
// companies, participants, stages and the commission policy
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/clover/pkg/attribution"
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/stages"
)

// ErrInvalidCatalog is returned when the catalog violates any rule. It is fatal at startup.
var ErrInvalidCatalog = errors.New("invalid catalog")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Catalog is the immutable business configuration of a run
type Catalog struct {
	Version         string                   `yaml:"version" json:"version"`
	InternalDomains []string                 `yaml:"internal_domains" json:"internal_domains" validate:"dive,fqdn"`
	Companies       []models.Company         `yaml:"companies" json:"companies" validate:"required,min=1,dive"`
	Participants    []models.Participant     `yaml:"participants" json:"participants" validate:"dive"`
	Stages          []models.StageDefinition `yaml:"stages" json:"stages" validate:"required,min=1,dive"`
	Policy          attribution.Policy       `yaml:"policy" json:"policy"`
}

// Load reads and validates a YAML catalog file
func Load(path string) (*Catalog, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog. Policy fields missing from the document keep
// their defaults. When no version is given the content fingerprint is used.
func Parse(data []byte) (*Catalog, error) {
	c := &Catalog{Policy: attribution.DefaultPolicy()}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	c.normalize()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	if c.Version == "" {
		version, err := fingerprint.GenerateFrom(c)
		if err != nil {
			return nil, fmt.Errorf("failed to fingerprint catalog: %w", err)
		}
		c.Version = version[:12]
	}
	return c, nil
}

// normalize cleans up hand-edited values before validation. Domains are trimmed and lowercased
// and email platform ids go through the same chain the directory resolves them with.
func (c *Catalog) normalize() {
	for i, domain := range c.InternalDomains {
		c.InternalDomains[i] = normalizers.ApplyChain(domain, "trim", "lowercase")
	}
	for i := range c.Companies {
		company := &c.Companies[i]
		company.ID = normalizers.Apply(company.ID, "trim")
		company.Domain = normalizers.ApplyChain(company.Domain, "trim", "lowercase")
	}
	for i := range c.Participants {
		p := &c.Participants[i]
		p.Key = normalizers.Apply(p.Key, "trim")
		if email, ok := p.PlatformIDs[models.PlatformEmail]; ok {
			p.PlatformIDs[models.PlatformEmail] = attribution.PlatformKey(models.PlatformEmail, email)
		}
	}
}

// Validate checks struct level rules and every cross record rule, reporting all violations at once
func (c *Catalog) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		problems = append(problems, validationProblems(err)...)
	}

	if err := stages.Validate(c.Stages); err != nil {
		problems = append(problems, err.Error())
	}
	if err := c.Policy.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	problems = append(problems, c.companyProblems()...)
	problems = append(problems, c.participantProblems()...)

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n • %s", ErrInvalidCatalog, strings.Join(problems, "\n • "))
	}
	return nil
}

func (c *Catalog) companyProblems() []string {
	var problems []string
	seen := make(map[string]bool, len(c.Companies))
	names := make(map[string]string, len(c.Companies))
	for i, company := range c.Companies {
		id := strings.TrimSpace(company.ID)
		if id == "" {
			problems = append(problems, fmt.Sprintf("company %d has no id", i))
		} else if seen[id] {
			problems = append(problems, fmt.Sprintf("company id %q is used more than once", id))
		}
		seen[id] = true

		if strings.TrimSpace(company.DisplayName) == "" {
			problems = append(problems, fmt.Sprintf("company %q has an empty display name", id))
		} else {
			name := normalizers.Apply(company.DisplayName, "ncompany")
			if other, ok := names[name]; ok && other != id {
				problems = append(problems, fmt.Sprintf("companies %q and %q share the normalized name %q", other, id, name))
			}
			names[name] = id
		}
		for _, alias := range company.Aliases {
			if strings.TrimSpace(alias) == "" {
				problems = append(problems, fmt.Sprintf("company %q has an empty alias", id))
			}
		}
	}
	return problems
}

func (c *Catalog) participantProblems() []string {
	var problems []string
	seen := make(map[string]bool, len(c.Participants))
	claimed := make(map[string]string)
	for i, p := range c.Participants {
		key := strings.TrimSpace(p.Key)
		if key == "" {
			problems = append(problems, fmt.Sprintf("participant %d has no key", i))
		} else if seen[key] {
			problems = append(problems, fmt.Sprintf("participant key %q is used more than once", key))
		}
		seen[key] = true

		if strings.TrimSpace(p.CanonicalName) == "" {
			problems = append(problems, fmt.Sprintf("participant %q has an empty name", key))
		}

		for platform, id := range p.PlatformIDs {
			if strings.TrimSpace(id) == "" {
				continue
			}
			claim := string(platform) + ":" + attribution.PlatformKey(platform, id)
			if owner, ok := claimed[claim]; ok && owner != key {
				problems = append(problems, fmt.Sprintf("%s id %q is claimed by both %q and %q", platform, id, owner, key))
				continue
			}
			claimed[claim] = key
		}
	}
	return problems
}

func validationProblems(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("field '%s' failed rule '%s' (param '%s', got '%v')", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return problems
}

// Company returns a company by id
func (c *Catalog) Company(id string) (*models.Company, bool) {
	for i := range c.Companies {
		if c.Companies[i].ID == id {
			return &c.Companies[i], true
		}
	}
	return nil, false
}
