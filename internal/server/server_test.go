package server

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/livetemplate/scrollytell"
	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/viz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testArticle = "---\ntitle: Essai\nlang: fr\n---\n" +
	"# Essai\n\n" +
	"```viz id=\"a\"\n```\n\n```step viz=\"a\"\nun\n```\n\n```step viz=\"a\"\ndeux\n```\n\n" +
	"```viz id=\"b\"\n```\n\n```step viz=\"b\"\ntrois\n```\n"

const testConfig = `
datasets:
  rows:
    type: csv
    file: data/rows.csv
`

// labelViz draws "<id>-<step>" on every step.
func labelViz(id string, steps int) viz.Visualization {
	return &viz.Func{
		Name: id,
		Size: scene.Frame{Width: 100, Height: 50},
		SetupFunc: func(ctx context.Context, vc *viz.Context) ([]viz.Step, error) {
			if _, err := vc.Dataset(ctx, "rows"); err != nil {
				return nil, err
			}
			out := make([]viz.Step, steps)
			for i := range out {
				out[i] = func(sc *scene.Scene) {
					sc.Root().Clear().Append("text").SetText(fmt.Sprintf("%s-%d", id, i))
				}
			}
			return out, nil
		},
	}
}

func failingViz(id string) viz.Visualization {
	return &viz.Func{
		Name: id,
		SetupFunc: func(context.Context, *viz.Context) ([]viz.Step, error) {
			return nil, errors.New("no data")
		},
	}
}

type fixture struct {
	dir string
	srv *Server
	ts  *httptest.Server
	reg *prometheus.Registry
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newFixture(t *testing.T, config string, vizzes ...viz.Visualization) *fixture {
	t.Helper()
	if len(vizzes) == 0 {
		vizzes = []viz.Visualization{labelViz("a", 2), labelViz("b", 1)}
	}
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"article.md":       testArticle,
		"scrollytell.yaml": testConfig + config,
		"data/rows.csv":    "x\n1\n2\n",
	})

	reg := prometheus.NewRegistry()
	load := func() (*scrollytell.Project, error) {
		return scrollytell.Open(dir, scrollytell.Options{Logger: zerolog.Nop(), Visualizations: vizzes})
	}
	srv, err := New(context.Background(), load, Options{Logger: zerolog.Nop(), Registry: reg, ReloadSettle: 50 * time.Millisecond})
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return &fixture{dir: dir, srv: srv, ts: ts, reg: reg}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(f.ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServePage(t *testing.T) {
	f := newFixture(t, "")
	resp, body := f.get(t, "/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "connect-src 'self'")
	assert.Contains(t, body, `<html lang="fr">`)
	assert.Contains(t, body, "<title>Essai</title>")
	assert.Contains(t, body, `id="viz-a"`)
	assert.Contains(t, body, `data-step="b:0"`)
	assert.Contains(t, body, `<script src="/assets/scrollytell.js" defer></script>`)
	assert.NotContains(t, body, "scrolly-banner")

	resp, _ = f.get(t, "/nothing-here")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeInactive(t *testing.T) {
	f := newFixture(t, "features:\n  error_banner: true\n", labelViz("a", 2), failingViz("b"))
	assert.False(t, f.srv.Active())

	resp, body := f.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="viz-a"`)
	assert.NotContains(t, body, "scrollytell.js")
	assert.Contains(t, body, "Les visualisations n&#39;ont pas pu être chargées")

	resp, body = f.get(t, "/api/steps")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "no data")

	resp, _ = f.get(t, "/ws")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, body = f.get(t, "/healthz")
	assert.JSONEq(t, `{"status":"ok","active":false,"sessions":0}`, body)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.srv.Metrics().Reloads.WithLabelValues("inactive")))
}

func TestServeInactiveWithoutBanner(t *testing.T) {
	f := newFixture(t, "", failingViz("a"), labelViz("b", 1))
	_, body := f.get(t, "/")
	assert.NotContains(t, body, "scrolly-banner")
	assert.Contains(t, body, `data-error-banner="false"`)
}

func TestServeSteps(t *testing.T) {
	f := newFixture(t, "scroller:\n  mode: replay\n  trigger_offset: 0.25\n")
	resp, body := f.get(t, "/api/steps")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got StepsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "replay", got.Mode)
	assert.Equal(t, 0.25, got.TriggerOffset)
	require.Len(t, got.Steps, 3)
	assert.Equal(t, viz.StepInfo{Global: 2, Viz: "b", Local: 0, Key: "b:0"}, got.Steps[2])
}

func TestServeAssets(t *testing.T) {
	f := newFixture(t, "features:\n  minify: false\n")
	resp, body := f.get(t, "/assets/scrollytell.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/javascript", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "// Thin client")

	resp, _ = f.get(t, "/assets/scrollytell.css")
	assert.Equal(t, "text/css", resp.Header.Get("Content-Type"))

	resp, _ = f.get(t, "/assets/missing.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeAssetsMinified(t *testing.T) {
	f := newFixture(t, "")
	resp, body := f.get(t, "/assets/scrollytell.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "// Thin client")
	assert.Contains(t, body, "/ws")
}

func TestServeData(t *testing.T) {
	f := newFixture(t, "")
	resp, body := f.get(t, "/data/data/rows.csv")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "x\n1\n2\n", body)

	for _, path := range []string{"/data/scrollytell.yaml", "/data/article.md", "/data/data/other.csv"} {
		resp, _ := f.get(t, path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestServeDataCompressed(t *testing.T) {
	f := newFixture(t, "")
	req, err := http.NewRequest(http.MethodGet, f.ts.URL+"/data/data/rows.csv", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "x\n1\n2\n", string(body))
}

func TestServeMetrics(t *testing.T) {
	f := newFixture(t, "")
	resp, body := f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "scrollytell_sessions 0")
	assert.Contains(t, body, `scrollytell_reloads_total{result="ok"} 1`)
	assert.Contains(t, body, "scrollytell_activation_seconds_count 1")
}

// wsClient reads session messages with a deadline.
type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func (f *fixture) dial(t *testing.T) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(msg ClientMessage) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

func (c *wsClient) next() map[string]interface{} {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg map[string]interface{}
	require.NoError(c.t, c.conn.ReadJSON(&msg))
	return msg
}

// offsets places a:0, a:1 and b:0 at 100, 500 and 900.
var offsets = map[string]float64{"a:0": 100, "a:1": 500, "b:0": 900}

// measure sends offsets with the reading line at y+100.
func (c *wsClient) measure(y float64) {
	c.send(ClientMessage{Type: MsgMeasure, Steps: offsets, Y: y, Viewport: 200})
}

func (c *wsClient) scroll(y float64) {
	c.send(ClientMessage{Type: MsgScroll, Y: y, Viewport: 200})
}

func (c *wsClient) expectScene(key, text string) {
	c.t.Helper()
	msg := c.next()
	require.Equal(c.t, MsgScene, msg["type"], "got %v", msg)
	assert.Equal(c.t, key, msg["key"])
	assert.Contains(c.t, msg["svg"], text)
}

func (c *wsClient) expectState(step int, key string) {
	c.t.Helper()
	msg := c.next()
	require.Equal(c.t, MsgState, msg["type"], "got %v", msg)
	assert.Equal(c.t, float64(step), msg["step"])
	assert.Equal(c.t, key, msg["key"])
}

// expectSilence asserts that nothing arrives within d. The connection is
// unusable afterwards.
func (c *wsClient) expectSilence(d time.Duration) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(d)))
	_, data, err := c.conn.ReadMessage()
	require.Error(c.t, err, "unexpected message %s", data)
	var ne net.Error
	require.ErrorAs(c.t, err, &ne)
	assert.True(c.t, ne.Timeout())
}

func TestSessionProtocol(t *testing.T) {
	f := newFixture(t, "")
	c := f.dial(t)

	c.measure(0)
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")

	c.scroll(450)
	c.expectScene("a:1", "a-1")
	c.expectState(1, "a:1")

	c.scroll(850)
	c.expectScene("b:0", "b-0")
	c.expectState(2, "b:0")

	c.scroll(-1000)
	c.expectState(-1, "")

	assert.Equal(t, 1.0, testutil.ToFloat64(f.srv.Metrics().Sessions))
	assert.Equal(t, 3.0, testutil.ToFloat64(f.srv.Metrics().Transitions.WithLabelValues("forward")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.srv.Metrics().Transitions.WithLabelValues("backward")))

	_, body := f.get(t, "/healthz")
	assert.JSONEq(t, `{"status":"ok","active":true,"sessions":1}`, body)
}

func TestSessionAboveFirstStep(t *testing.T) {
	f := newFixture(t, "")
	c := f.dial(t)

	c.measure(-500)
	c.scroll(0)
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")
}

func TestSessionIgnoresBadMessages(t *testing.T) {
	f := newFixture(t, "")
	c := f.dial(t)

	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	c.send(ClientMessage{Type: "wiggle"})
	c.measure(0)
	c.expectScene("a:0", "a-0")
}

func TestSessionRemeasure(t *testing.T) {
	f := newFixture(t, "")
	c := f.dial(t)

	c.measure(0)
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")

	// after a reflow a:1 starts where a:0 did
	c.send(ClientMessage{Type: MsgMeasure, Steps: map[string]float64{"a:0": 0, "a:1": 50, "b:0": 900}, Viewport: 200})
	c.expectScene("a:1", "a-1")
	c.expectState(1, "a:1")
}

func TestSessionRemeasureAtNewPosition(t *testing.T) {
	f := newFixture(t, "")
	c := f.dial(t)

	c.measure(0)
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")

	// Under the new layout the old position falls on a:1, but only the step
	// at the new position is rendered.
	c.send(ClientMessage{Type: MsgMeasure, Steps: map[string]float64{"a:0": 0, "a:1": 50, "b:0": 900}, Y: 900, Viewport: 200})
	c.expectScene("b:0", "b-0")
	c.expectState(2, "b:0")
	c.expectSilence(300 * time.Millisecond)
}

func TestSessionMissingStepElement(t *testing.T) {
	f := newFixture(t, "")
	c := f.dial(t)

	c.send(ClientMessage{Type: MsgMeasure, Steps: map[string]float64{"a:0": 100, "b:0": 900}, Viewport: 200})
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")

	c.scroll(450)
	c.scroll(850)
	c.expectScene("b:0", "b-0")
	c.expectState(2, "b:0")
}

func TestSessionReplayMode(t *testing.T) {
	f := newFixture(t, "scroller:\n  mode: replay\n")
	c := f.dial(t)

	c.measure(0)
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")

	c.scroll(850)
	c.expectScene("a:1", "a-1")
	c.expectState(1, "a:1")
	c.expectScene("b:0", "b-0")
	c.expectState(2, "b:0")
}

func TestSessionDebounce(t *testing.T) {
	f := newFixture(t, "scroller:\n  debounce: 200ms\n")
	c := f.dial(t)

	c.measure(0)
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")

	c.scroll(450)
	c.scroll(850)
	c.expectScene("b:0", "b-0")
	c.expectState(2, "b:0")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.srv.Metrics().ScrollDropped))
}

func TestSessionMeasureCancelsPendingScroll(t *testing.T) {
	f := newFixture(t, "scroller:\n  debounce: 200ms\n")
	c := f.dial(t)

	c.measure(0)
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")

	// The measure arrives before the debounce fires and wins.
	c.scroll(850)
	c.measure(0)
	c.expectSilence(500 * time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.srv.Metrics().ScrollDropped))
}

func TestSessionMeasureCancelsTrailingScroll(t *testing.T) {
	f := newFixture(t, "scroller:\n  max_rate: 1\n")
	c := f.dial(t)

	c.measure(0)
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")

	c.scroll(450)
	c.expectScene("a:1", "a-1")
	c.expectState(1, "a:1")

	// 850 waits for the trailing flush; the measure back at the top
	// replaces it.
	c.scroll(850)
	c.measure(0)
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")
	c.expectSilence(1500 * time.Millisecond)
}

func TestSessionRateLimitConverges(t *testing.T) {
	f := newFixture(t, "scroller:\n  max_rate: 5\n")
	c := f.dial(t)

	c.measure(0)
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")

	// The first report passes the limiter, the rest coalesce into one
	// trailing evaluation of the last position.
	c.scroll(450)
	for y := 460.0; y < 850; y += 40 {
		c.scroll(y)
	}
	c.scroll(850)
	c.expectScene("a:1", "a-1")
	c.expectState(1, "a:1")
	c.expectScene("b:0", "b-0")
	c.expectState(2, "b:0")
}

func TestSessionCallbackPanic(t *testing.T) {
	broken := &viz.Func{
		Name: "a",
		SetupFunc: func(context.Context, *viz.Context) ([]viz.Step, error) {
			return []viz.Step{
				func(sc *scene.Scene) { sc.Root().Append("text").SetText("a-0") },
				func(*scene.Scene) { panic("boom") },
			}, nil
		},
	}
	f := newFixture(t, "", broken, labelViz("b", 1))
	c := f.dial(t)

	c.measure(0)
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")

	c.scroll(450)
	msg := c.next()
	assert.Equal(t, MsgError, msg["type"])
	assert.Contains(t, msg["message"], "a:1")
	c.expectState(1, "a:1")

	// later transitions are unaffected
	c.scroll(850)
	c.expectScene("b:0", "b-0")
	c.expectState(2, "b:0")

	assert.Equal(t, 1.0, testutil.ToFloat64(f.srv.Metrics().CallbackErrors.WithLabelValues("a")))
}

func TestSessionsAreIndependent(t *testing.T) {
	f := newFixture(t, "")
	one, two := f.dial(t), f.dial(t)

	one.measure(0)
	one.expectScene("a:0", "a-0")
	one.expectState(0, "a:0")

	two.measure(850)
	two.expectScene("b:0", "b-0")
	two.expectState(2, "b:0")

	one.scroll(450)
	one.expectScene("a:1", "a-1")
	one.expectState(1, "a:1")
}

func TestBroadcastReload(t *testing.T) {
	f := newFixture(t, "")
	c := f.dial(t)
	c.measure(0)
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")

	f.srv.BroadcastReload([]string{"article.md"})
	msg := c.next()
	assert.Equal(t, MsgReload, msg["type"])
	assert.Equal(t, "article.md", msg["message"])
}

func TestReloadKeepsPreviousProjectOnError(t *testing.T) {
	f := newFixture(t, "")
	writeFiles(t, f.dir, map[string]string{"article.md": "```step viz=\"zzz\"\nx\n```\n"})

	err := f.srv.Reload(context.Background())
	var pe *scrollytell.ParseError
	require.ErrorAs(t, err, &pe)
	assert.True(t, f.srv.Active())
	assert.Equal(t, "Essai", f.srv.Project().Article.Title)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.srv.Metrics().Reloads.WithLabelValues("error")))
}

func TestWatchReloadsAndBroadcasts(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.srv.EnableWatch())

	c := f.dial(t)
	c.measure(0)
	c.expectScene("a:0", "a-0")
	c.expectState(0, "a:0")

	writeFiles(t, f.dir, map[string]string{"article.md": strings.Replace(testArticle, "title: Essai", "title: Nouveau", 1)})
	msg := c.next()
	assert.Equal(t, MsgReload, msg["type"])
	assert.Contains(t, msg["message"], "article.md")
	assert.Equal(t, "Nouveau", f.srv.Project().Article.Title)
}
