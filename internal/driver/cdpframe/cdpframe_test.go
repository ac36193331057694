package cdpframe

import (
	"context"
	"fmt"
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"

	"github.com/v0xg/pagewait/internal/driver"
)

func TestPick(t *testing.T) {
	a, b := &cdp.Node{NodeName: "A"}, &cdp.Node{NodeName: "B"}
	nodes := []*cdp.Node{a, b}

	assert.Same(t, a, pick(nodes, 0))
	assert.Same(t, b, pick(nodes, 1))
	assert.Nil(t, pick(nodes, -1))
	assert.Nil(t, pick(nodes, 2))
	assert.Nil(t, pick(nil, 0))
}

func TestVisiblePredicatesAgree(t *testing.T) {
	sel := `".cf-modal:not(.hidden)"`
	visible := fmt.Sprintf(predicates[driver.StateVisible], sel)
	first := fmt.Sprintf(firstVisible, sel)

	// the resolve step must select with the same test the wait polled on
	assert.Contains(t, visible, isVisible)
	assert.Contains(t, first, isVisible)
	assert.Contains(t, first, "findIndex")
}

func TestNewNilTab(t *testing.T) {
	var tab context.Context
	assert.Nil(t, New(tab))
	assert.NotNil(t, New(context.Background()))
}
