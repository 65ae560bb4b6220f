package markup

import (
	"strings"
	"testing"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/schema"
)

func newCodec(t *testing.T) (*Parser, *Renderer) {
	t.Helper()
	reg := schema.New("https://blog.example.com/")
	return NewParser(reg), NewRenderer(reg)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"paragraph", `<p>hello world</p>`},
		{"heading with id", `<h2 id="intro">Intro</h2>`},
		{"heading without id", `<h3>Deep dive</h3>`},
		{"marks", `<p>a <strong>b <em>c</em></strong> d</p>`},
		{"link", `<p><a href="https://example.com/x">go</a></p>`},
		{"code mark", `<p>run <code>go test</code> now</p>`},
		{"bullet list", `<ul><li><p>one</p></li><li><p>two</p></li></ul>`},
		{"ordered list", `<ol><li><p>one</p></li></ol>`},
		{"blockquote", `<blockquote><p>quoted</p></blockquote>`},
		{"code block", `<pre><code>x := 1</code></pre>`},
		{"divider", `<p>a</p><hr><p>b</p>`},
		{"figure", `<figure class="image-figure"><img src="https://example.com/a.png" alt="a pic" class="figure-image"><figcaption class="figure-caption">caption</figcaption></figure>`},
		{"table", `<table><tbody><tr><th><p>h</p></th></tr><tr><td><p>c</p></td></tr></tbody></table>`},
		{"toc", `<nav class="toc-block"><p><strong>Table of Contents</strong></p><ul><li data-level="0"><a href="#intro" data-toc-link="intro">Intro</a></li><li data-level="1"><a href="#setup" data-toc-link="setup">Setup</a></li></ul></nav>`},
		{"hard break", `<p>a<br>b</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, r := newCodec(t)
			d1, err := p.ParseDocument(tt.html)
			if err != nil {
				t.Fatalf("first parse: %v", err)
			}
			out := r.RenderDocument(d1)
			d2, err := p.ParseDocument(out)
			if err != nil {
				t.Fatalf("reparse of %q: %v", out, err)
			}
			if !d1.Eq(d2) {
				t.Errorf("round trip changed document\nfirst:  %#v\nrender: %s\nsecond: %#v", d1.Root, out, d2.Root)
			}
		})
	}
}

func TestParseRejectsScriptContent(t *testing.T) {
	p, r := newCodec(t)
	d, err := p.ParseDocument(`<p>ok</p><script>alert(1)</script>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := r.RenderDocument(d)
	if strings.Contains(out, "script") || strings.Contains(out, "alert") {
		t.Errorf("script content survived: %q", out)
	}
}

func TestParseFigureWithBadSrc(t *testing.T) {
	p, r := newCodec(t)
	d, err := p.ParseDocument(`<figure><img src="javascript:alert(1)" alt="x"><figcaption>still here</figcaption></figure>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fig := d.Root.Child(0)
	if fig == nil || fig.Type != "figure" {
		t.Fatalf("expected figure, got %v", fig)
	}
	if fig.StringAttr("src") != "" {
		t.Errorf("src = %q, want rejected empty", fig.StringAttr("src"))
	}
	out := r.RenderDocument(d)
	if strings.Contains(out, "<img") {
		t.Errorf("rendered HTML contains img for invalid src: %q", out)
	}
	if !strings.Contains(out, "<figcaption") || !strings.Contains(out, "still here") {
		t.Errorf("caption slot missing from %q", out)
	}
}

func TestParseLinkWithBadProtocolKeepsText(t *testing.T) {
	p, _ := newCodec(t)
	d, err := p.ParseDocument(`<p><a href="javascript:alert(1)">click</a></p>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	para := d.Root.Child(0)
	if got := para.TextContent(); got != "click" {
		t.Fatalf("text = %q, want %q", got, "click")
	}
	if para.Child(0).HasMark("link") {
		t.Error("link mark survived invalid protocol")
	}
}

func TestParseTocValidatesHrefs(t *testing.T) {
	p, _ := newCodec(t)
	in := `<div class="toc-block"><ul>` +
		`<li><a href="#good">Good</a></li>` +
		`<li><a href="https://evil.example.com">Evil</a></li>` +
		`<li><a href="#">Bare</a></li>` +
		`</ul></div>`
	d, err := p.ParseDocument(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	toc := d.Root.Child(0)
	if toc == nil || toc.Type != "tableOfContents" {
		t.Fatalf("expected tableOfContents, got %v", toc)
	}
	items, _ := toc.Attr("items").([]doc.TocItem)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 (only the internal anchor)", len(items))
	}
	if items[0].ID != "good" {
		t.Errorf("item id = %q, want %q", items[0].ID, "good")
	}
}

func TestParseLegacyTocPaddingLevels(t *testing.T) {
	p, _ := newCodec(t)
	in := `<div class="toc-block"><ul>` +
		`<li style="padding-left: 0"><a href="#a">A</a></li>` +
		`<li style="padding-left: 1.25rem"><a href="#b">B</a></li>` +
		`<li style="padding-left: 2.5rem"><a href="#c">C</a></li>` +
		`<li style="padding-left: 3.75rem"><a href="#d">D</a></li>` +
		`</ul></div>`
	d, err := p.ParseDocument(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	items, _ := d.Root.Child(0).Attr("items").([]doc.TocItem)
	if len(items) != 4 {
		t.Fatalf("items = %d, want 4", len(items))
	}
	for i, want := range []int{0, 1, 2, 3} {
		if items[i].Level != want {
			t.Errorf("item %d level = %d, want %d", i, items[i].Level, want)
		}
	}
}

func TestParseEmptyInputYieldsEmptyParagraph(t *testing.T) {
	p, _ := newCodec(t)
	d, err := p.ParseDocument("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Root.ChildCount() != 1 || d.Root.Child(0).Type != "paragraph" {
		t.Errorf("empty input parsed to %v, want single empty paragraph", d.Root.Children)
	}
}

func TestParseWrapsLooseListItemText(t *testing.T) {
	p, _ := newCodec(t)
	d, err := p.ParseDocument(`<ul><li>bare text</li></ul>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	li := d.Root.Child(0).Child(0)
	if li.Type != "listItem" {
		t.Fatalf("expected listItem, got %s", li.Type)
	}
	if li.Child(0).Type != "paragraph" {
		t.Errorf("loose text not wrapped: child is %s", li.Child(0).Type)
	}
}

func TestParseMarkdown(t *testing.T) {
	p, r := newCodec(t)
	src := []byte("# Title\n\nSome *emphasis* and **strong** text.\n\n- one\n- two\n\n```\ncode here\n```\n\n---\n")
	d, err := p.ParseMarkdown(src)
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}

	types := make([]string, 0, d.Root.ChildCount())
	for _, c := range d.Root.Children {
		types = append(types, c.Type)
	}
	want := []string{"heading", "paragraph", "bulletList", "codeBlock", "horizontalRule"}
	if len(types) != len(want) {
		t.Fatalf("block types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("block %d = %s, want %s", i, types[i], want[i])
		}
	}

	out := r.RenderDocument(d)
	if !strings.Contains(out, "<em>emphasis</em>") {
		t.Errorf("emphasis missing from %q", out)
	}
	if !strings.Contains(out, "<strong>strong</strong>") {
		t.Errorf("strong missing from %q", out)
	}
	if got := d.Root.Child(3).TextContent(); got != "code here" {
		t.Errorf("code block text = %q, want %q", got, "code here")
	}
}

func TestParseMarkdownMultilineCodeBlock(t *testing.T) {
	p, _ := newCodec(t)
	d, err := p.ParseMarkdown([]byte("```\nfirst line\nsecond line\n```\n"))
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}
	cb := d.Root.Child(0)
	if cb.Type != "codeBlock" {
		t.Fatalf("block = %s, want codeBlock", cb.Type)
	}
	if got := cb.TextContent(); got != "first line\nsecond line" {
		t.Errorf("text = %q, want both source lines", got)
	}
}

func TestParseMarkdownDropsRawHTML(t *testing.T) {
	p, r := newCodec(t)
	d, err := p.ParseMarkdown([]byte("safe\n\n<script>alert(1)</script>\n"))
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}
	out := r.RenderDocument(d)
	if strings.Contains(out, "script") {
		t.Errorf("raw HTML survived markdown import: %q", out)
	}
}

func TestParseMarkdownImageBecomesFigure(t *testing.T) {
	p, _ := newCodec(t)
	d, err := p.ParseMarkdown([]byte(`![alt text](https://example.com/a.png "the caption")`))
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}
	var fig *doc.Node
	for _, c := range d.Root.Children {
		if c.Type == "figure" {
			fig = c
		}
	}
	if fig == nil {
		t.Fatalf("no figure block in %v", d.Root.Children)
	}
	if fig.StringAttr("src") != "https://example.com/a.png" {
		t.Errorf("src = %q", fig.StringAttr("src"))
	}
	if got := fig.Child(0).TextContent(); got != "the caption" {
		t.Errorf("caption = %q, want %q", got, "the caption")
	}
}
