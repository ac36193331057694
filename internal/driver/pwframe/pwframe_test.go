package pwframe

import (
	"context"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/pagewait/internal/driver"
)

func TestTimeoutFromDeadline(t *testing.T) {
	ms, err := timeout(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, *ms)

	ms, err = timeout(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, *ms)

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	ms, err = timeout(ctx, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, *ms)

	ms, err = timeout(ctx, 0)
	require.NoError(t, err)
	assert.Greater(t, *ms, 3500_000.0)
}

func TestTimeoutExpiredContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := timeout(ctx, time.Second)
	assert.ErrorIs(t, err, driver.ErrTimeout)

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = timeout(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, driver.ErrTimeout)
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(playwright.ErrTimeout), driver.ErrTimeout)
	assert.ErrorIs(t, mapErr(playwright.ErrTimeout), playwright.ErrTimeout)
}

func TestStateMapping(t *testing.T) {
	assert.Equal(t, playwright.LoadStateLoad, loadState(driver.LoadStateLoad))
	assert.Equal(t, playwright.LoadStateNetworkidle, loadState(driver.LoadStateNetworkIdle))
	assert.Equal(t, playwright.WaitForSelectorStateVisible, selectorState(""))
	assert.Equal(t, playwright.WaitForSelectorStateDetached, selectorState(driver.StateDetached))
}

func TestNilWrappers(t *testing.T) {
	assert.Nil(t, New(nil))
	assert.Nil(t, NewPage(nil))
}
