package attribution

import (
	"sort"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// platformNormalizers are the normalizer chains applied to platform ids before they are
// compared. Platforms without an entry are only trimmed.
var platformNormalizers = map[models.Platform][]string{
	models.PlatformEmail: {"nemail"},
}

// Directory resolves platform ids to participant keys
type Directory struct {
	participants map[string]models.Participant
	byPlatform   map[models.Platform]map[string]string
}

// NewDirectory indexes participants by every platform id they declare.
// Email ids are matched case-insensitively.
func NewDirectory(participants []models.Participant) *Directory {
	d := &Directory{
		participants: make(map[string]models.Participant, len(participants)),
		byPlatform:   make(map[models.Platform]map[string]string),
	}
	for _, p := range participants {
		d.participants[p.Key] = p
		for platform, id := range p.PlatformIDs {
			if id == "" {
				continue
			}
			if d.byPlatform[platform] == nil {
				d.byPlatform[platform] = make(map[string]string)
			}
			d.byPlatform[platform][PlatformKey(platform, id)] = p.Key
		}
	}
	return d
}

// PlatformKey returns the form of a platform id used for lookups and uniqueness checks
func PlatformKey(platform models.Platform, id string) string {
	chain, ok := platformNormalizers[platform]
	if !ok {
		chain = []string{"trim"}
	}
	return normalizers.ApplyChain(id, chain...)
}

// Resolve returns the participant key for a platform id
func (d *Directory) Resolve(platform models.Platform, id string) (string, bool) {
	key, ok := d.byPlatform[platform][PlatformKey(platform, id)]
	return key, ok
}

// Participant returns a participant by key
func (d *Directory) Participant(key string) (models.Participant, bool) {
	p, ok := d.participants[key]
	return p, ok
}

// Founders returns the set of participant keys tagged as founders
func (d *Directory) Founders() map[string]bool {
	founders := make(map[string]bool)
	for key, p := range d.participants {
		if p.Founder {
			founders[key] = true
		}
	}
	return founders
}

// Keys returns every participant key, sorted
func (d *Directory) Keys() []string {
	keys := make([]string, 0, len(d.participants))
	for key := range d.participants {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
