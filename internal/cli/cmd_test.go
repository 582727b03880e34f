package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewDefaultTmplCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderWithDataFiles(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "page.tmpl", "{{ .name }}: {{ .nested.x }}/{{ .nested.y }} {{ .port }}")
	base := writeFile(t, dir, "base.yml", "name: base\nnested:\n  x: 1\n  y: 2\n")
	override := writeFile(t, dir, "override.json", `{"nested": {"y": 3}}`)
	settings := writeFile(t, dir, "settings.toml", "port = 8080\n")

	out, err := runCmd(t, "-f", tpl, "-d", base, "-d", override, "-d", settings)
	require.NoError(t, err)
	assert.Equal(t, "base: 1/3 8080", out)
}

func TestRenderWithSetOverrides(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "page.tmpl", "{{ .server.port }} {{ .server.host }} {{ if .debug }}debug{{ end }}")
	data := writeFile(t, dir, "data.yml", "server:\n  host: localhost\n  port: 80\n")

	out, err := runCmd(t, "render", "-f", tpl, "-d", data, "--set", "server.port=9090", "--set", "debug=true")
	require.NoError(t, err)
	assert.Equal(t, "9090 localhost debug", out)
}

func TestRenderNamedTemplateAndDelims(t *testing.T) {
	dir := t.TempDir()
	defs := writeFile(t, dir, "defs.tmpl", `<% define "row" %>[<% . %>]<% end %><% define "solo" %>(<% .x %>)<% end %>`)
	page := writeFile(t, dir, "page.tmpl", `<% range .items %><% template "row" . %><% end %> {{ kept }}`)
	data := writeFile(t, dir, "data.yml", "items: [a, b]\n")

	out, err := runCmd(t, "-f", defs, "-f", page, "-d", data, "--left-delim", "<%", "--right-delim", "%>")
	require.NoError(t, err)
	assert.Equal(t, "[a][b] {{ kept }}", out)

	out, err = runCmd(t, "-f", defs, "-f", page, "--left-delim", "<%", "--right-delim", "%>", "-t", "solo", "--set", "x=1")
	require.NoError(t, err)
	assert.Equal(t, "(1)", out)
}

func TestRenderToOutputFile(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "page.tmpl", "hello {{ .who }}")
	target := filepath.Join(dir, "out.txt")

	out, err := runCmd(t, "-f", tpl, "--set", "who=file", "-o", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello file", string(written))
}

func TestDataFuncs(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "page.tmpl", "{{ toYAML .list }}\n{{ toTOML .server }}\n{{ (fromYAML \"a: 5\").a }}")
	data := writeFile(t, dir, "data.yml", "list: [a, b]\nserver:\n  port: 8080\n")

	out, err := runCmd(t, "-f", tpl, "-d", data)
	require.NoError(t, err)
	assert.Equal(t, "- a\n- b\nport = 8080\n5", out)
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "page.tmpl", "{{ .x }}")
	list := writeFile(t, dir, "list.yml", "- a\n")

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"no template", []string{"--set", "a=1"}, "at least one template file"},
		{"missing template", []string{"-f", filepath.Join(dir, "nope.tmpl")}, "nope.tmpl"},
		{"bad set", []string{"-f", tpl, "--set", "novalue"}, "key=value"},
		{"bad missingkey", []string{"-f", tpl, "--missingkey", "sometimes"}, "--missingkey"},
		{"non-map data", []string{"-f", tpl, "-d", list}, "must contain a map"},
		{"metrics without watch", []string{"-f", tpl, "--metrics-addr", ":0"}, "requires --watch"},
		{"extra args", []string{"-f", tpl, "extra"}, "does not accept extra arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDescribeError(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "page.tmpl", "ok\n{{ .x | nope }}")

	_, err := runCmd(t, "-f", tpl)
	require.Error(t, err)

	described := DescribeError(err)
	assert.Contains(t, described, "unknown function")
	assert.Contains(t, described, " page.tmpl ")
	assert.Contains(t, described, "2 > {{ .x | nope }}")

	assert.Equal(t, "plain", DescribeError(errors.New("plain")))
}

func TestMissingKeyError(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "page.tmpl", "{{ .absent }}")

	_, err := runCmd(t, "-f", tpl, "--missingkey", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing key")
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tmpl version ")
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.observe(2*time.Millisecond, 42, nil)
	m.observe(time.Millisecond, 0, errors.New("boom"))
	m.observe(time.Millisecond, 7, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.renders.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues("error")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.outputBytes))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tmpl_renders_total")
	assert.Contains(t, string(body), "tmpl_render_duration_seconds_bucket")

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.observe(time.Second, 1, nil) })
}

func TestWatcherRelevant(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "page.tmpl", "x")

	w, err := NewWatcher([]string{tpl}, DefaultDebounce, newLogger(io.Discard, false))
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.Relevant(fsnotify.Event{Name: tpl, Op: fsnotify.Write}))
	assert.True(t, w.Relevant(fsnotify.Event{Name: tpl, Op: fsnotify.Create}))
	assert.False(t, w.Relevant(fsnotify.Event{Name: tpl, Op: fsnotify.Chmod}))
	assert.False(t, w.Relevant(fsnotify.Event{Name: filepath.Join(dir, "other.tmpl"), Op: fsnotify.Write}))
}

func TestWatcherCallsOnChange(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "page.tmpl", "x")

	w, err := NewWatcher([]string{tpl}, 10*time.Millisecond, newLogger(io.Discard, false))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Keep writing until the watcher reports, since the watch loop may not
	// be receiving yet when the first write lands.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-changed:
			break loop
		case <-ticker.C:
			require.NoError(t, os.WriteFile(tpl, []byte("y"), 0o644))
		case <-deadline:
			t.Fatal("no change reported")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
