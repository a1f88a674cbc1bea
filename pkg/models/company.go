package models

// Platform identifies the system a platform id or group name belongs to
type Platform string

const (
	PlatformSlack    Platform = "slack"
	PlatformTelegram Platform = "telegram"
	PlatformEmail    Platform = "email"
	PlatformCRM      Platform = "crm"
)

// Company is the canonical identity of a customer relationship
type Company struct {
	ID          string              `json:"id" yaml:"id" validate:"required"`
	DisplayName string              `json:"display_name" yaml:"display_name" validate:"required"`
	Aliases     []string            `json:"aliases,omitempty" yaml:"aliases"`
	BaseCompany string              `json:"base_company,omitempty" yaml:"base_company"`
	Domain      string              `json:"domain,omitempty" yaml:"domain" validate:"omitempty,fqdn"`
	GroupNames  map[Platform]string `json:"group_names,omitempty" yaml:"group_names"`
}

// PrimaryNames returns the display name, aliases and declared group names.
// Empty values are skipped.
func (c *Company) PrimaryNames() []string {
	names := make([]string, 0, 1+len(c.Aliases)+len(c.GroupNames))
	add := func(n string) {
		if n != "" {
			names = append(names, n)
		}
	}
	add(c.DisplayName)
	for _, alias := range c.Aliases {
		add(alias)
	}
	for _, platform := range []Platform{PlatformSlack, PlatformTelegram, PlatformEmail, PlatformCRM} {
		add(c.GroupNames[platform])
	}
	return names
}

// Names returns every name the company may be referred to by, including the base company
func (c *Company) Names() []string {
	names := c.PrimaryNames()
	if c.BaseCompany != "" {
		names = append(names, c.BaseCompany)
	}
	return names
}
