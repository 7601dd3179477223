package common

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapviz/internal/figure"
	"github.com/leapstack-labs/leapviz/internal/grid"
	"github.com/leapstack-labs/leapviz/internal/layout"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

func TestPage(t *testing.T) {
	content := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div id="content"></div>`)
		return err
	})
	ctx := templ.WithChildren(context.Background(), content)

	tests := []struct {
		name    string
		shell   ShellData
		want    []string
		notWant []string
	}{
		{
			name:  "board",
			shell: ShellData{Title: "Board", CurrentPath: "/board", Theme: core.ThemeDark},
			want: []string{
				"<!doctype html>",
				`<html lang="en" data-theme="dark">`,
				"<title>Board - LeapViz</title>",
				`<a href="/board" class="active">Board</a>`,
				`<a href="/builder">Builder</a>`,
				`<main><div id="content"></div></main>`,
				`data-init="@post(&#39;/board/viewport&#39;)"`,
			},
			notWant: []string{"/reload"},
		},
		{
			name:  "dev reload hook",
			shell: ShellData{Title: "Builder", CurrentPath: "/builder", Theme: core.ThemeLight, IsDev: true},
			want:  []string{`<a href="/builder" class="active">Builder</a>`, "/reload"},
		},
		{
			name:  "escaped title",
			shell: ShellData{Title: "</title><script>", Theme: core.ThemeLight},
			want:  []string{"<title>&lt;/title&gt;&lt;script&gt; - LeapViz</title>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := render(t, ctx, Page(tt.shell, "/board/viewport"))
			for _, want := range tt.want {
				assert.Contains(t, page, want)
			}
			for _, notWant := range tt.notWant {
				assert.NotContains(t, page, notWant)
			}
		})
	}
}

func TestAlert(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, `<div id="board-error" class="alert" hidden></div>`, render(t, ctx, Alert("board-error", "")))
	assert.Equal(t,
		`<div id="board-error" class="alert alert-error" role="alert">&lt;b&gt;failed&lt;/b&gt;</div>`,
		render(t, ctx, Alert("board-error", "<b>failed</b>")))
}

func TestChartPanel(t *testing.T) {
	ctx := context.Background()

	t.Run("chart", func(t *testing.T) {
		out := render(t, ctx, ChartPanel(grid.Panel{
			ID:     "c1",
			Title:  `Sales "by" <region>`,
			Height: 480,
			Figure: core.Figure{Data: []map[string]any{{"type": "bar"}}, Layout: map[string]any{}},
			Config: figure.Config{Responsive: true},
		}))
		assert.Contains(t, out, `<section class="panel" id="panel-c1">`)
		assert.Contains(t, out, "<h3>Sales &#34;by&#34; &lt;region&gt;</h3>")
		assert.Contains(t, out, `data-height="480"`)
		assert.Contains(t, out, `data-figure="{&#34;data&#34;:[{&#34;type&#34;:&#34;bar&#34;}],&#34;layout&#34;:{}}"`)
		assert.Contains(t, out, `&#34;responsive&#34;:true`)
	})

	t.Run("placeholder", func(t *testing.T) {
		out := render(t, ctx, ChartPanel(grid.Panel{Placeholder: true, Title: grid.EmptyTitle, Hint: grid.EmptyHint}))
		assert.Contains(t, out, `id="panel-placeholder"`)
		assert.Contains(t, out, grid.EmptyTitle)
		assert.NotContains(t, out, "data-figure")
	})
}

func TestGrid(t *testing.T) {
	l := grid.Layout{
		Viewport: layout.Viewport{Width: 400, Class: core.ViewportXS, PlotHeight: 300},
		Panels:   []grid.Panel{{ID: "a", Height: 300}, {ID: "b", Height: 300}},
	}
	out := render(t, context.Background(), Grid("board-grid", l))

	assert.Contains(t, out, `<div id="board-grid" class="grid" data-viewport="xs">`)
	assert.Contains(t, out, `id="panel-a"`)
	assert.Contains(t, out, `id="panel-b"`)
}

func TestPost(t *testing.T) {
	assert.Equal(t, "@post('/board/remove/42')", Post("/board/remove/42"))
}
