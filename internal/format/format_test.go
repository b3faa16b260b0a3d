package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const base = "https://api.aiot.example"

func TestFormat_RewritesUploadPaths(t *testing.T) {
	f := New(base + "/")
	in := `<p><img src="/uploads/a.jpg"> <a href='/storage/doc.pdf'>doc</a> <img src="https://cdn.example/uploads/b.jpg"></p>`
	got := f.Format(in)
	assert.Contains(t, got, `src="https://api.aiot.example/uploads/a.jpg"`)
	assert.Contains(t, got, `href='https://api.aiot.example/storage/doc.pdf'`)
	assert.Contains(t, got, `src="https://cdn.example/uploads/b.jpg"`)
}

func TestFormat_EmptyBaseKeepsRelativePaths(t *testing.T) {
	in := `<img src="/uploads/a.jpg">`
	assert.Equal(t, in, New("").Format(in))
}

func TestFormat_WrapsVideoIframe(t *testing.T) {
	in := `<p>intro</p><iframe src="https://www.youtube.com/embed/abc" width="560" height="315" frameborder="1" allow="autoplay"></iframe>`
	got := New(base).Format(in)
	assert.Equal(t,
		`<p>intro</p><div class="video-wrapper"><iframe src="https://www.youtube.com/embed/abc" allow="autoplay" width="100%" height="100%" frameborder="0" allowfullscreen></iframe></div>`,
		got)
}

func TestFormat_LeavesOtherIframes(t *testing.T) {
	in := `<iframe src="https://maps.example.com/embed?q=x"></iframe>`
	assert.Equal(t, in, New(base).Format(in))
}

func TestFormat_SkipsAlreadyWrapped(t *testing.T) {
	cases := []string{
		`<div class="video-wrapper"><iframe src="https://player.vimeo.com/video/1" width="640"></iframe></div>`,
		`<div class="video-wrapper"><div class="ratio"></div><iframe src="https://www.youtube.com/embed/c"></iframe></div>`,
		`<div class="embed video-wrapper"><div><span>x</span></div><iframe src="https://youtu.be/d"></iframe></div>`,
	}
	for _, in := range cases {
		assert.Equal(t, in, New(base).Format(in))
	}
}

func TestFormat_WrapsAfterClosedWrapper(t *testing.T) {
	in := `<div class="video-wrapper"><div class="ratio"></div></div><iframe src="https://www.youtube.com/embed/e"></iframe>`
	got := New(base).Format(in)
	assert.Equal(t, 2, strings.Count(got, `class="video-wrapper"`))
	assert.True(t, strings.HasSuffix(got, `allowfullscreen></iframe></div>`))
}

func TestFormat_QuotedGreaterThanInAttribute(t *testing.T) {
	in := `<iframe src="https://www.youtube.com/embed/c" title="a > b"></iframe>`
	assert.Equal(t,
		`<div class="video-wrapper"><iframe src="https://www.youtube.com/embed/c" title="a > b" width="100%" height="100%" frameborder="0" allowfullscreen></iframe></div>`,
		New(base).Format(in))
}

func TestFormat_ConvertsOEmbed(t *testing.T) {
	in := `<figure class="media"><oembed url="https://youtu.be/xyz"></oembed></figure><oembed url="https://vimeo.com/76979871"></oembed>`
	got := New(base).Format(in)
	assert.Equal(t,
		`<div class="video-wrapper"><iframe src="https://www.youtube.com/embed/xyz" width="100%" height="100%" frameborder="0" allowfullscreen></iframe></div>`+
			`<div class="video-wrapper"><iframe src="https://player.vimeo.com/video/76979871" width="100%" height="100%" frameborder="0" allowfullscreen></iframe></div>`,
		got)
}

func TestFormat_Idempotent(t *testing.T) {
	f := New(base)
	inputs := []string{
		"",
		"plain text",
		`<img src="/uploads/x.png">`,
		`<iframe src="https://youtu.be/a" width=400 allowfullscreen></iframe><iframe src="//www.youtube-nocookie.com/embed/b">`,
		`<div class="video-wrapper"><iframe src="https://www.youtube.com/embed/c"></iframe></div><iframe src="https://vimeo.com/2"></iframe>`,
		`<figure class="media"><oembed url="https://www.youtube.com/watch?v=d&t=3"></oembed></figure><oembed url="https://example.com/not-a-video"></oembed>`,
		`<IFRAME SRC="https://www.youtube.com/embed/E"></IFRAME><a href="/storage/f.pdf">f</a>`,
		`<div class="video-wrapper"><div class="ratio"></div><iframe src="https://www.youtube.com/embed/c"></iframe></div>`,
		`<iframe src="https://player.vimeo.com/video/9" title='x > y'></iframe>`,
	}
	for _, in := range inputs {
		once := f.Format(in)
		assert.Equal(t, once, f.Format(once), "input: %s", in)
	}
}

func TestFormat_NoDoubleWrap(t *testing.T) {
	f := New(base)
	out := f.Format(f.Format(`<iframe src="https://www.youtube.com/embed/abc"></iframe>`))
	assert.Equal(t, 1, strings.Count(out, "video-wrapper"))
}

func TestEmbedURL(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=abc":  "https://www.youtube.com/embed/abc",
		"https://youtu.be/abc":                 "https://www.youtube.com/embed/abc",
		"https://youtube.com/shorts/abc":       "https://www.youtube.com/embed/abc",
		"https://vimeo.com/123":                "https://player.vimeo.com/video/123",
		"https://player.vimeo.com/video/123":   "https://player.vimeo.com/video/123",
	}
	for in, want := range cases {
		got, ok := EmbedURL(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := EmbedURL("https://vimeo.com/channels/staff")
	assert.False(t, ok)
	_, ok = EmbedURL("not a url")
	assert.False(t, ok)
}
