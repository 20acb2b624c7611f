package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(1000))
}

func TestBoundsNormalize(t *testing.T) {
	b := Bounds{Default: 20, Max: 40}

	assert.Equal(t, Params{Limit: 20, Offset: 0}, b.Normalize(Params{Offset: -5}))
	assert.Equal(t, Params{Limit: 40, Offset: 80}, b.Normalize(Params{Limit: 41, Offset: 80}))

	var zero Bounds
	assert.Equal(t, Params{Limit: DefaultLimit}, zero.Normalize(Params{}))
}
