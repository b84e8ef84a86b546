package sm2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/spacedrep/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := map[domain.Response]Quality{
		domain.Forgot: 0,
		domain.Hard:   3,
		domain.Good:   4,
		domain.Easy:   5,
	}
	for r, want := range cases {
		got, err := Classify(r)
		require.NoError(t, err, r.String())
		assert.Equal(t, want, got, r.String())
	}
}

func TestClassifyRejectsUnknownResponses(t *testing.T) {
	for _, r := range []domain.Response{0, -1, domain.Easy + 1, 42} {
		_, err := Classify(r)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "response %d", int(r))
	}
}

func TestPassingBoundary(t *testing.T) {
	assert.False(t, Quality(0).Passed())
	assert.False(t, Quality(2).Passed())
	assert.True(t, Quality(3).Passed())
	assert.True(t, Quality(5).Passed())

	q, err := Classify(domain.Hard)
	require.NoError(t, err)
	assert.True(t, q.Passed(), "Hard must count as a pass")
}
