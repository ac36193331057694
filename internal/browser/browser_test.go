package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupported(t *testing.T) {
	for _, d := range Drivers {
		assert.True(t, Supported(d), d)
	}
	assert.False(t, Supported("selenium"))
	assert.Equal(t, DriverRod, Drivers[0])
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "selenium"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestSessionCloseOrder(t *testing.T) {
	var order []int
	s := &Session{}
	s.onClose(func() error { order = append(order, 1); return nil })
	s.onClose(func() error { order = append(order, 2); return assert.AnError })

	assert.ErrorIs(t, s.Close(), assert.AnError)
	assert.Equal(t, []int{2, 1}, order)
	assert.NoError(t, s.Close())
}
