package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func testStages() []models.StageDefinition {
	return []models.StageDefinition{
		{Name: "discovery", Weight: 20, Keywords: []string{"intro", "discovery call", "pain point"}},
		{Name: "technical", Weight: 30, Keywords: []string{"integration", "api", "sandbox"}},
		{Name: "contract_legal", Weight: 35, Keywords: []string{"msa", "docusign", "redline"}},
		{Name: "closing", Weight: 15, Keywords: []string{"signed", "invoice", "po number"}},
	}
}

func TestValidate(t *testing.T) {
	t.Run("should accept a valid stage set", func(t *testing.T) {
		assert.NoError(t, Validate(testStages()))
	})

	t.Run("should reject weights that do not sum to 100", func(t *testing.T) {
		stages := testStages()
		stages[0].Weight = 25

		err := Validate(stages)
		require.ErrorIs(t, err, ErrInvalidStages)
		assert.Contains(t, err.Error(), "sum to 105")
	})

	t.Run("should reject duplicate and empty names", func(t *testing.T) {
		stages := testStages()
		stages[1].Name = "discovery"
		stages[2].Name = " "

		err := Validate(stages)
		require.ErrorIs(t, err, ErrInvalidStages)
		assert.Contains(t, err.Error(), `stage "discovery" is defined more than once`)
		assert.Contains(t, err.Error(), "stage 2 has no name")
	})

	t.Run("should reject stages without keywords", func(t *testing.T) {
		stages := testStages()
		stages[3].Keywords = []string{" "}

		assert.ErrorIs(t, Validate(stages), ErrInvalidStages)
	})

	t.Run("should reject an empty stage set", func(t *testing.T) {
		assert.ErrorIs(t, Validate(nil), ErrInvalidStages)
	})
}

func TestDetector_Detect(t *testing.T) {
	d, err := NewDetector(testStages())
	require.NoError(t, err)

	t.Run("should detect contract legal for an msa sent via docusign", func(t *testing.T) {
		hits := d.Detect("Sending over the MSA via DocuSign now")

		require.Len(t, hits, 1)
		assert.Equal(t, "contract_legal", hits[0].Stage)
		assert.Equal(t, 2, hits[0].Count)
		assert.GreaterOrEqual(t, hits[0].Confidence, 0.3)
		assert.Equal(t, 1.0, hits[0].Confidence)
	})

	t.Run("should detect several stages in one message", func(t *testing.T) {
		hits := d.Detect("Thanks for the intro! Can we get sandbox API keys?")

		require.Len(t, hits, 2)
		assert.Equal(t, "discovery", hits[0].Stage)
		assert.InDelta(t, 0.7, hits[0].Confidence, 1e-9)
		assert.Equal(t, "technical", hits[1].Stage)
		assert.Equal(t, 2, hits[1].Count)
	})

	t.Run("should match keywords as substrings", func(t *testing.T) {
		hits := d.Detect("the integrations are live")

		require.Len(t, hits, 1)
		assert.Equal(t, "technical", hits[0].Stage)
	})

	t.Run("should return nothing for text without keywords", func(t *testing.T) {
		assert.Empty(t, d.Detect("gm, how was the weekend?"))
		assert.Empty(t, d.Detect(""))
	})
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, Confidence(0))
	assert.InDelta(t, 0.7, Confidence(1), 1e-9)
	assert.Equal(t, 1.0, Confidence(2))
	assert.Equal(t, 1.0, Confidence(10))
}

func TestDetector_Weights(t *testing.T) {
	d, err := NewDetector(testStages())
	require.NoError(t, err)

	assert.Equal(t, 35, d.Weight("contract_legal"))
	assert.Equal(t, 0, d.Weight("unknown"))
	assert.Equal(t, []string{"discovery", "technical", "contract_legal", "closing"}, d.StageNames())
}
