package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

const validCatalog = `
internal_domains: [clover.xyz]
companies:
  - id: acme
    display_name: Acme Corp
    aliases: [Acme Rockets]
    domain: acme.io
    group_names:
      telegram: Acme Telegram Group
participants:
  - key: alice
    canonical_name: Alice Adams
    platform_ids:
      slack: U1
      email: alice@clover.xyz
  - key: bob
    canonical_name: Bob Brown
    founder: true
    platform_ids:
      slack: U2
stages:
  - name: discovery
    weight: 40
    keywords: [intro]
  - name: contract_legal
    weight: 60
    keywords: [msa, docusign]
policy:
  presence_floor: 2
`

func TestParse(t *testing.T) {
	t.Run("should load a valid catalog and keep policy defaults", func(t *testing.T) {
		c, err := Parse([]byte(validCatalog))
		require.NoError(t, err)

		require.Len(t, c.Companies, 1)
		assert.Equal(t, "Acme Telegram Group", c.Companies[0].GroupNames[models.PlatformTelegram])
		assert.Equal(t, "U1", c.Participants[0].PlatformIDs[models.PlatformSlack])
		assert.True(t, c.Participants[1].Founder)
		assert.Equal(t, 2.0, c.Policy.PresenceFloor)
		assert.Equal(t, 10.0, c.Policy.CloserBonus)
		assert.Len(t, c.Version, 12)

		company, ok := c.Company("acme")
		require.True(t, ok)
		assert.Equal(t, "Acme Corp", company.DisplayName)
	})

	t.Run("should produce a stable version for identical content", func(t *testing.T) {
		a, err := Parse([]byte(validCatalog))
		require.NoError(t, err)
		b, err := Parse([]byte(validCatalog))
		require.NoError(t, err)

		assert.Equal(t, a.Version, b.Version)
	})

	t.Run("should reject stage weights that do not sum to 100", func(t *testing.T) {
		_, err := Parse([]byte(strings.ReplaceAll(validCatalog, "weight: 60", "weight: 50")))

		require.ErrorIs(t, err, ErrInvalidCatalog)
		assert.Contains(t, err.Error(), "stage weights sum to 90")
	})

	t.Run("should reject duplicate participant keys", func(t *testing.T) {
		_, err := Parse([]byte(strings.ReplaceAll(validCatalog, "key: bob", "key: alice")))

		require.ErrorIs(t, err, ErrInvalidCatalog)
		assert.Contains(t, err.Error(), `participant key "alice" is used more than once`)
	})

	t.Run("should reject empty names", func(t *testing.T) {
		_, err := Parse([]byte(strings.ReplaceAll(validCatalog, "canonical_name: Bob Brown", `canonical_name: " "`)))

		require.ErrorIs(t, err, ErrInvalidCatalog)
		assert.Contains(t, err.Error(), `participant "bob" has an empty name`)
	})

	t.Run("should reject a platform id claimed twice", func(t *testing.T) {
		_, err := Parse([]byte(strings.ReplaceAll(validCatalog, "slack: U2", "slack: U1")))

		require.ErrorIs(t, err, ErrInvalidCatalog)
		assert.Contains(t, err.Error(), `slack id "U1" is claimed by both "alice" and "bob"`)
	})

	t.Run("should compare chat ids exactly", func(t *testing.T) {
		_, err := Parse([]byte(strings.ReplaceAll(validCatalog, "slack: U2", "slack: u1")))

		assert.NoError(t, err)
	})

	t.Run("should compare emails the way the directory resolves them", func(t *testing.T) {
		_, err := Parse([]byte(strings.ReplaceAll(validCatalog, "      slack: U2\n", "      slack: U2\n      email: ALICE@Clover.xyz\n")))

		require.ErrorIs(t, err, ErrInvalidCatalog)
		assert.Contains(t, err.Error(), `email id "alice@clover.xyz" is claimed by both "alice" and "bob"`)
	})

	t.Run("should normalize domains and emails", func(t *testing.T) {
		doc := strings.ReplaceAll(validCatalog, "email: alice@clover.xyz", "email: ' Alice@Clover.XYZ'")
		doc = strings.ReplaceAll(doc, "domain: acme.io", "domain: ACME.io")

		c, err := Parse([]byte(doc))
		require.NoError(t, err)

		assert.Equal(t, "alice@clover.xyz", c.Participants[0].PlatformIDs[models.PlatformEmail])
		assert.Equal(t, "acme.io", c.Companies[0].Domain)
	})

	t.Run("should reject companies that normalize to the same name", func(t *testing.T) {
		doc := strings.ReplaceAll(validCatalog, "participants:\n", "  - id: acme-2\n    display_name: ACME Corp.\nparticipants:\n")

		_, err := Parse([]byte(doc))

		require.ErrorIs(t, err, ErrInvalidCatalog)
		assert.Contains(t, err.Error(), `companies "acme" and "acme-2" share the normalized name "acme"`)
	})

	t.Run("should reject a catalog without companies", func(t *testing.T) {
		_, err := Parse([]byte("stages: []\n"))

		assert.ErrorIs(t, err, ErrInvalidCatalog)
	})

	t.Run("should reject malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("companies: [\n"))

		assert.ErrorIs(t, err, ErrInvalidCatalog)
	})
}

func TestStore_Reload(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validCatalog), 0o600))

	store, err := NewStore(path, logger)
	require.NoError(t, err)
	first := store.Current()

	var reloaded *Catalog
	store.OnReload(func(c *Catalog) { reloaded = c })

	t.Run("should keep the previous catalog when the new one is invalid", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(validCatalog, "weight: 60", "weight: 10")), 0o600))

		assert.ErrorIs(t, store.Reload(), ErrInvalidCatalog)
		assert.Same(t, first, store.Current())
		assert.Nil(t, reloaded)
	})

	t.Run("should activate a valid catalog and notify listeners", func(t *testing.T) {
		updated := strings.ReplaceAll(validCatalog, "display_name: Acme Corp", "display_name: Acme Corporation")
		require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

		require.NoError(t, store.Reload())
		assert.Equal(t, "Acme Corporation", store.Current().Companies[0].DisplayName)
		assert.Same(t, store.Current(), reloaded)
	})

	t.Run("should ignore a rewrite with identical content", func(t *testing.T) {
		active := store.Current()
		reloaded = nil
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o600))

		require.NoError(t, store.Reload())
		assert.Same(t, active, store.Current())
		assert.Nil(t, reloaded)
	})
}
