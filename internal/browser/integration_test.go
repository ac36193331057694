//go:build browser

package browser

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/pagewait/internal/driver"
	"github.com/v0xg/pagewait/internal/ready"
)

const lazyPage = `<html><body>
<script src="/lazy.js" data-has-loaded="false"></script>
<script>
setTimeout(function () {
  document.querySelector('script[src="/lazy.js"]').setAttribute('data-has-loaded', 'true');
  document.body.setAttribute('data-load-main', 'true');
  document.body.setAttribute('data-load-modal', 'true');
}, 200);
</script>
</body></html>`

func TestDriversWaitForReadiness(t *testing.T) {
	if !Available() {
		t.Skip("no Chrome/Chromium binary found")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, lazyPage)
	}))
	defer srv.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)

	for _, d := range []string{DriverRod, DriverChromedp} {
		t.Run(d, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			s, err := Open(ctx, Options{Driver: d, Headless: true})
			require.NoError(t, err)
			defer s.Close()

			require.NoError(t, s.Page.Navigate(ctx, srv.URL))
			w := ready.New(ready.Options{ScriptTimeout: 5 * time.Second, Timeout: 10 * time.Second, Logger: log})
			require.NoError(t, w.WaitForPageJsLoad(ctx, s.Page))
		})
	}
}

const mixedPage = `<html><body>
<div class="item" style="display:none" id="first"></div>
<div class="item" id="second">shown</div>
</body></html>`

func TestDriversVisibleWaitWithHiddenMatches(t *testing.T) {
	if !Available() {
		t.Skip("no Chrome/Chromium binary found")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, mixedPage)
	}))
	defer srv.Close()

	for _, d := range []string{DriverRod, DriverChromedp} {
		t.Run(d, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			s, err := Open(ctx, Options{Driver: d, Headless: true})
			require.NoError(t, err)
			defer s.Close()

			require.NoError(t, s.Page.Navigate(ctx, srv.URL))
			el, err := s.Page.WaitForSelector(ctx, ".item", driver.WaitOptions{State: driver.StateVisible, Timeout: 2 * time.Second})
			require.NoError(t, err)
			require.NotNil(t, el)

			id, _, err := el.Attribute(ctx, "id")
			require.NoError(t, err)
			require.Equal(t, "second", id)
		})
	}
}
