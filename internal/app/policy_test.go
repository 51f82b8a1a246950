package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimplePolicy(t *testing.T) {
	p := SimplePolicy{MaxDropped: 3}
	assert.Equal(t, DropEvent, p.OnBackPressure("s-1", 1))
	assert.Equal(t, DropEvent, p.OnBackPressure("s-1", 2))
	assert.Equal(t, CloseObserver, p.OnBackPressure("s-1", 3))

	assert.Equal(t, CloseObserver, SimplePolicy{}.OnBackPressure("s-1", 1))
}
