package scenario_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialogue-generator/internal/scenario"
)

func TestLoad_FullCatalog(t *testing.T) {
	scenarios, err := scenario.Load(scenario.MaxScenarios)
	require.NoError(t, err)
	require.Len(t, scenarios, scenario.MaxScenarios)

	known := make(map[string]bool, len(scenario.SpecialTags))
	for _, tag := range scenario.SpecialTags {
		known[tag] = true
	}

	ids := make(map[string]bool)
	for _, s := range scenarios {
		assert.False(t, ids[s.ID], "дубликат id сценария: %s", s.ID)
		ids[s.ID] = true

		require.NotEmpty(t, s.SpecialTags, "сценарий %s без тегов", s.ID)
		for _, tag := range s.SpecialTags {
			assert.True(t, known["("+tag+")"], "сценарий %s ссылается на неизвестный тег %q", s.ID, tag)
		}
	}
}

func TestLoad_Prefix(t *testing.T) {
	scenarios, err := scenario.Load(10)
	require.NoError(t, err)
	require.Len(t, scenarios, 10)
	assert.Equal(t, "basic_payment_willing", scenarios[0].ID)
}

func TestLoad_Bounds(t *testing.T) {
	for _, n := range []int{0, -1, scenario.MaxScenarios + 1} {
		_, err := scenario.Load(n)
		assert.Error(t, err, "Load(%d) должен вернуть ошибку", n)
	}
}

func TestValidate(t *testing.T) {
	scenarios, err := scenario.Load(1)
	require.NoError(t, err)

	s := scenarios[0]
	require.NoError(t, scenario.Validate(&s))

	s.Outcome = ""
	assert.Error(t, scenario.Validate(&s))
}
