package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEmptying(t *testing.T) {
	cases := []struct {
		old, level int
		want       bool
	}{
		{80, 20, true},
		{100, 0, true},
		{85, 15, true},
		{79, 10, false},
		{90, 21, false},
		{50, 10, false},
		{10, 90, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsEmptying(c.old, c.level), "old=%d level=%d", c.old, c.level)
	}
}

func TestIsCritical(t *testing.T) {
	assert.True(t, IsCritical(80))
	assert.True(t, IsCritical(100))
	assert.False(t, IsCritical(79))
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel(0))
	assert.True(t, ValidLevel(100))
	assert.False(t, ValidLevel(-1))
	assert.False(t, ValidLevel(101))
}
