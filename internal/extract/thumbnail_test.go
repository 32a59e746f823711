package extract

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseDoc(t *testing.T, rawHTML string) (*goquery.Document, *url.URL) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		t.Fatalf("parsing test HTML: %v", err)
	}
	base, _ := url.Parse("https://fareharbor.com/embeds/book/acmetours/items/1/")
	return doc, base
}

func TestStructuredThumbnailPrefersJSONLD(t *testing.T) {
	rawHTML := `<html><head>
<script type="application/ld+json">{"@type":"Product","image":"https://cdn.example.com/ld.jpg"}</script>
<meta property="og:image" content="https://cdn.example.com/og.jpg">
</head><body></body></html>`

	doc, base := parseDoc(t, rawHTML)
	picked, _ := structuredThumbnail(doc, base)
	if picked != "https://cdn.example.com/ld.jpg" {
		t.Errorf("got %q, want the JSON-LD image", picked)
	}
}

func TestStructuredThumbnailJSONLDShapes(t *testing.T) {
	tests := []struct {
		name string
		ld   string
		want string
	}{
		{
			name: "image list",
			ld:   `{"image":["https://cdn.example.com/a.jpg","https://cdn.example.com/b.jpg"]}`,
			want: "https://cdn.example.com/a.jpg",
		},
		{
			name: "image object",
			ld:   `{"image":{"@type":"ImageObject","url":"https://cdn.example.com/obj.jpg"}}`,
			want: "https://cdn.example.com/obj.jpg",
		},
		{
			name: "thumbnailUrl",
			ld:   `{"thumbnailUrl":"https://cdn.example.com/thumb.jpg"}`,
			want: "https://cdn.example.com/thumb.jpg",
		},
		{
			name: "graph wrapper",
			ld:   `{"@graph":[{"@type":"Event"},{"image":"https://cdn.example.com/graph.jpg"}]}`,
			want: "https://cdn.example.com/graph.jpg",
		},
		{
			name: "top-level array",
			ld:   `[{"image":"https://cdn.example.com/arr.jpg"}]`,
			want: "https://cdn.example.com/arr.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, base := parseDoc(t,
				`<html><head><script type="application/ld+json">`+tt.ld+`</script></head><body></body></html>`)
			picked, _ := structuredThumbnail(doc, base)
			if picked != tt.want {
				t.Errorf("got %q, want %q", picked, tt.want)
			}
		})
	}
}

func TestThumbnailDenylist(t *testing.T) {
	rawHTML := `<html><head>
<script type="application/ld+json">{"image":"https://cdn.example.com/defaults/item.jpg"}</script>
<meta property="og:image" content="https://cdn.example.com/real-photo.jpg">
</head><body></body></html>`

	doc, base := parseDoc(t, rawHTML)
	picked, _ := structuredThumbnail(doc, base)
	if picked != "https://cdn.example.com/real-photo.jpg" {
		t.Errorf("generic JSON-LD image should be skipped, got %q", picked)
	}
}

func TestThumbnailGenericMetaAsLastResort(t *testing.T) {
	rawHTML := `<html><head>
<meta property="og:image" content="https://cdn.example.com/placeholder.jpg">
</head><body></body></html>`

	doc, base := parseDoc(t, rawHTML)
	picked, lastResort := structuredThumbnail(doc, base)
	if picked != "" {
		t.Errorf("generic image must not be picked outright, got %q", picked)
	}
	if lastResort != "https://cdn.example.com/placeholder.jpg" {
		t.Errorf("generic meta image should survive as last resort, got %q", lastResort)
	}

	// FromHTML falls through to the last resort when nothing qualifies.
	facts, err := FromHTML(rawHTML, "https://fareharbor.com/embeds/book/acmetours/items/1/")
	if err != nil {
		t.Fatal(err)
	}
	if facts.Thumbnail != "https://cdn.example.com/placeholder.jpg" {
		t.Errorf("got %q", facts.Thumbnail)
	}
}

func TestInlineThumbnail(t *testing.T) {
	rawHTML := `<html><body>
<img src="https://cdn.example.com/spacer.gif" width="1" height="1">
<img src="icon.png" width="32" height="32">
<img src="/media/boat.jpg">
<div style="background-image: url('/media/bg.jpg')"></div>
</body></html>`

	doc, base := parseDoc(t, rawHTML)
	got := inlineThumbnail(doc, base)
	want := "https://fareharbor.com/media/boat.jpg"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInlineThumbnailBackgroundImage(t *testing.T) {
	rawHTML := `<html><body>
<div style="color: red; background-image: url('https://cdn.example.com/hero-bg.jpg');"></div>
</body></html>`

	doc, base := parseDoc(t, rawHTML)
	if got := inlineThumbnail(doc, base); got != "https://cdn.example.com/hero-bg.jpg" {
		t.Errorf("got %q", got)
	}
}

func TestBestScored(t *testing.T) {
	imgs := []scoredImage{
		{URL: "https://cdn.example.com/big-placeholder.jpg", Score: 2000000},
		{URL: "https://cdn.example.com/hero.jpg", Score: 1500000},
		{URL: "https://cdn.example.com/small.jpg", Score: 300},
	}
	if got := bestScored(imgs); got != "https://cdn.example.com/hero.jpg" {
		t.Errorf("denylisted top candidate should be skipped, got %q", got)
	}

	if got := bestScored(nil); got != "" {
		t.Errorf("empty candidates: got %q", got)
	}
}
