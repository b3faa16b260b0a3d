// Package format prepares stored rich-text content for display: upload paths
// become absolute and video embeds are wrapped in a responsive container.
package format

import (
	"net/url"
	"regexp"
	"strings"
)

const wrapperClass = "video-wrapper"

var (
	uploadRe = regexp.MustCompile(`(?i)(\b(?:src|href|poster)\s*=\s*["'])/(uploads|storage)/`)
	oembedRe = regexp.MustCompile(`(?is)(?:<figure[^>]*\bclass="media"[^>]*>\s*)?<oembed\s+url="([^"]+)"[^>]*>\s*(?:</oembed>)?(?:\s*</figure>)?`)
	iframeRe = regexp.MustCompile(`(?is)<iframe\b((?:[^>"']|"[^"]*"|'[^']*')*)>(?:\s*</iframe>)?`)
	divRe    = regexp.MustCompile(`(?is)<div\b((?:[^>"']|"[^"]*"|'[^']*')*)>|</div\s*>`)
	attrRe   = regexp.MustCompile(`([^\s=/>"']+)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>"']+)))?`)
)

// Formatter rewrites content against one uploads host.
type Formatter struct {
	uploadsBase string
}

// New returns a formatter that prefixes /uploads/ and /storage/ paths with
// uploadsBaseURL. An empty base leaves paths relative.
func New(uploadsBaseURL string) *Formatter {
	return &Formatter{uploadsBase: strings.TrimRight(uploadsBaseURL, "/")}
}

// Format is pure and idempotent.
func (f *Formatter) Format(html string) string {
	if html == "" {
		return html
	}
	html = f.RewriteUploads(html)
	html = oembedRe.ReplaceAllStringFunc(html, func(m string) string {
		sub := oembedRe.FindStringSubmatch(m)
		src, ok := EmbedURL(sub[1])
		if !ok {
			return m
		}
		return wrap(renderIframe([]attr{{name: "src", value: src}}))
	})
	return WrapVideos(html)
}

// RewriteUploads makes relative upload paths absolute.
func (f *Formatter) RewriteUploads(html string) string {
	if f.uploadsBase == "" {
		return html
	}
	return uploadRe.ReplaceAllStringFunc(html, func(m string) string {
		sub := uploadRe.FindStringSubmatch(m)
		return sub[1] + f.uploadsBase + "/" + sub[2] + "/"
	})
}

// WrapVideos wraps YouTube and Vimeo iframes that are not already inside a wrapper.
func WrapVideos(html string) string {
	locs := iframeRe.FindAllStringSubmatchIndex(html, -1)
	if len(locs) == 0 {
		return html
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		attrs := parseAttrs(html[loc[2]:loc[3]])
		b.WriteString(html[last:start])
		last = end
		if !isVideo(attrValue(attrs, "src")) || insideWrapper(html[:start]) {
			b.WriteString(html[start:end])
			continue
		}
		b.WriteString(wrap(renderIframe(attrs)))
	}
	b.WriteString(html[last:])
	return b.String()
}

// insideWrapper reports whether a wrapper div opened in before is still open
// at its end. Other divs nested inside the wrapper are balanced out.
func insideWrapper(before string) bool {
	var open []bool // one entry per unclosed div, true for wrappers
	wrappers := 0
	for _, m := range divRe.FindAllStringSubmatchIndex(before, -1) {
		if m[2] < 0 {
			if n := len(open); n > 0 {
				if open[n-1] {
					wrappers--
				}
				open = open[:n-1]
			}
			continue
		}
		w := hasClass(attrValue(parseAttrs(before[m[2]:m[3]]), "class"), wrapperClass)
		if w {
			wrappers++
		}
		open = append(open, w)
	}
	return wrappers > 0
}

func hasClass(classes, name string) bool {
	for _, c := range strings.Fields(classes) {
		if c == name {
			return true
		}
	}
	return false
}

func wrap(iframe string) string {
	return `<div class="` + wrapperClass + `">` + iframe + `</div>`
}

type attr struct {
	name  string
	value string
	bare  bool
}

func parseAttrs(s string) []attr {
	var out []attr
	for _, m := range attrRe.FindAllStringSubmatchIndex(s, -1) {
		a := attr{name: strings.ToLower(s[m[2]:m[3]]), bare: true}
		for g := 2; g <= 4; g++ {
			if lo, hi := m[2*g], m[2*g+1]; lo >= 0 {
				a.value, a.bare = s[lo:hi], false
				break
			}
		}
		out = append(out, a)
	}
	return out
}

func attrValue(attrs []attr, name string) string {
	for _, a := range attrs {
		if a.name == name {
			return a.value
		}
	}
	return ""
}

var normalized = map[string]bool{"width": true, "height": true, "frameborder": true, "allowfullscreen": true}

func renderIframe(attrs []attr) string {
	var b strings.Builder
	b.WriteString("<iframe")
	for _, a := range attrs {
		if normalized[a.name] {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(a.name)
		if !a.bare {
			b.WriteString(`="`)
			b.WriteString(strings.ReplaceAll(a.value, `"`, "&quot;"))
			b.WriteByte('"')
		}
	}
	b.WriteString(` width="100%" height="100%" frameborder="0" allowfullscreen></iframe>`)
	return b.String()
}

func isVideo(src string) bool {
	u, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	switch host {
	case "youtube.com", "youtube-nocookie.com", "youtu.be", "m.youtube.com", "player.vimeo.com", "vimeo.com":
		return true
	}
	return false
}

// EmbedURL turns a YouTube or Vimeo page URL into its player URL.
func EmbedURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.Trim(u.Path, "/")
	switch host {
	case "youtu.be":
		if path != "" {
			return "https://www.youtube.com/embed/" + path, true
		}
	case "youtube.com", "m.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return "https://www.youtube.com/embed/" + id, true
		}
		for _, prefix := range []string{"embed/", "shorts/", "live/"} {
			if id := strings.TrimPrefix(path, prefix); id != path && id != "" {
				return "https://www.youtube.com/embed/" + id, true
			}
		}
	case "vimeo.com":
		if path != "" && isDigits(path) {
			return "https://player.vimeo.com/video/" + path, true
		}
	case "player.vimeo.com":
		if strings.HasPrefix(path, "video/") {
			return u.String(), true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
