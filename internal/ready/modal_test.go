package ready

import (
	"context"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/pagewait/internal/driver/docframe"
)

const modals = `
<button id="publish-button">Publish all</button>
<button id="delete-button">Delete</button>
<div id="publish" class="cf-modal hidden"><button class="cf-modal-close">Close</button></div>
<div id="delete" class="cf-modal hidden"><button class="cf-modal-close">Close</button></div>`

// modalFrame wires the trigger and close controls the way the application's
// modal script does: triggers reveal their modal shortly after the click and
// close buttons hide the open one.
func modalFrame(t *testing.T) *modalPage {
	t.Helper()
	f := mustFrame(t, page(readyBody, modals))
	for _, id := range []string{"publish", "delete"} {
		require.NoError(t, f.OnClick("#"+id+"-button", func(*goquery.Document) {
			time.AfterFunc(5*time.Millisecond, func() {
				f.Mutate(func(doc *goquery.Document) { doc.Find("#" + id).RemoveClass("hidden") })
			})
		}))
	}
	require.NoError(t, f.OnClick(".cf-modal-close", func(doc *goquery.Document) {
		doc.Find(".cf-modal:not(.hidden)").AddClass("hidden")
	}))
	return &modalPage{f}
}

type modalPage struct {
	*docframe.Frame
}

func (p *modalPage) hidden(t *testing.T, id string) bool {
	t.Helper()
	els, err := p.QueryAll(context.Background(), "#"+id+".hidden")
	require.NoError(t, err)
	return len(els) == 1
}

func TestClickAndWaitForModalThenDismiss(t *testing.T) {
	p := modalFrame(t)
	w := newWaiter(Options{})
	ctx := context.Background()

	require.True(t, p.hidden(t, "publish"))

	require.NoError(t, w.ClickAndWaitForModal(ctx, p, "publish"))
	assert.False(t, p.hidden(t, "publish"))
	assert.True(t, p.hidden(t, "delete"))

	require.NoError(t, w.DismissModal(ctx, p))
	assert.True(t, p.hidden(t, "publish"))
}

func TestWaitForAnyModalReturnsCurrentModal(t *testing.T) {
	p := modalFrame(t)
	w := newWaiter(Options{})
	ctx := context.Background()

	for _, id := range []string{"publish", "delete"} {
		require.NoError(t, p.Click(ctx, "#"+id+"-button"))

		el, err := w.WaitForAnyModal(ctx, p)
		require.NoError(t, err)
		got, ok, err := el.Attribute(ctx, "id")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, id, got)

		require.NoError(t, w.DismissModal(ctx, p))
	}
}

func TestDismissModalRequiresExactlyOne(t *testing.T) {
	p := modalFrame(t)
	w := newWaiter(Options{})
	ctx := context.Background()

	assert.ErrorIs(t, w.DismissModal(ctx, p), ErrNoVisibleModal)

	p.Mutate(func(doc *goquery.Document) { doc.Find(".cf-modal").RemoveClass("hidden") })
	assert.ErrorIs(t, w.DismissModal(ctx, p), ErrMultipleVisibleModals)
}

func TestClickAndWaitForModalNeverOpens(t *testing.T) {
	f := mustFrame(t, page(readyBody, modals))
	w := newWaiter(Options{Timeout: 30 * time.Millisecond})

	err := w.ClickAndWaitForModal(context.Background(), f, "publish")

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "#publish:not(.hidden)", te.Selector)
}

func TestModalContractViolations(t *testing.T) {
	w := newWaiter(Options{})
	ctx := context.Background()

	assert.ErrorIs(t, w.ClickAndWaitForModal(ctx, nil, "x"), ErrNilFrame)
	assert.ErrorIs(t, w.ClickAndWaitForModal(ctx, mustFrame(t, page("", "")), ""), ErrEmptyModalID)
	_, err := w.WaitForAnyModal(ctx, nil)
	assert.ErrorIs(t, err, ErrNilFrame)
	assert.ErrorIs(t, w.DismissModal(ctx, nil), ErrNilFrame)
}

func TestModalIDNeedingEscape(t *testing.T) {
	f := mustFrame(t, page(readyBody, `
		<button id="step:1-button"></button>
		<div id="step:1" class="cf-modal"></div>`))

	require.NoError(t, newWaiter(Options{}).ClickAndWaitForModal(context.Background(), f, "step:1"))
	assert.Contains(t, f.Calls(), `Click [id="step:1-button"]`)
}

func TestByID(t *testing.T) {
	assert.Equal(t, "#publish-modal", byID("publish-modal"))
	assert.Equal(t, `[id="1st"]`, byID("1st"))
	assert.Equal(t, `[id="a\"b"]`, byID(`a"b`))
}
