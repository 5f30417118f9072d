package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnmangleExtension(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		ext string
		out string
	}{
		{ext: ".png||", out: ".png"},
		{ext: ".png", out: ".png"},
		{ext: ".jpg**", out: ".jpg"},
		{ext: ".png)||", out: ".png"},
		{ext: ".gif_)*||", out: ".gif"},
		{ext: ".jpeg%3E", out: ".jpeg"},
		{ext: ".png>", out: ".png"},
		{ext: ".p*n_g", out: ".png"},
		{ext: "", out: ""},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, UnmangleExtension(fix.ext), fix.ext)
	}
}

func TestImageIDFromPath(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		host string
		path string
		id   string
	}{
		{host: "derpicdn.net", path: "/img/view/2020/1/1/123456.png", id: "123456"},
		{host: "derpicdn.net", path: "/img/2020/1/1/123456/full.png", id: "123456"},
		{host: "derpicdn.net", path: "/img/download/2019/12/31/42__safe_artist.jpg", id: "42"},
		{host: "derpicdn.net", path: "/avatars/2020/1/1/abc.png", id: ""},
		{host: "derpibooru.org", path: "/images/654321", id: "654321"},
		{host: "www.derpibooru.org", path: "/654321", id: "654321"},
		{host: "derpibooru.org", path: "/search", id: ""},
		{host: "example.com", path: "/images/654321", id: ""},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.id, ImageIDFromPath(fix.host, fix.path), fix.host+fix.path)
	}
}

func TestNormalizeImageURL(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		raw string
		ok  bool
		ref ImageRef
	}{
		{raw: "https://example.com/a.png||", ok: true, ref: ImageRef{URL: "https://example.com/a.png"}},
		{raw: "https://example.com/a.png)", ok: true, ref: ImageRef{URL: "https://example.com/a.png"}},
		{raw: "https://example.com/a.png>", ok: true, ref: ImageRef{URL: "https://example.com/a.png"}},
		{raw: "https://example.com/a.png%3E", ok: true, ref: ImageRef{URL: "https://example.com/a.png"}},
		{raw: "https://example.com/dir/a.PNG*_", ok: true, ref: ImageRef{URL: "https://example.com/dir/a.PNG"}},
		{raw: "https://EXAMPLE.com:443/a.gif", ok: true, ref: ImageRef{URL: "https://example.com/a.gif"}},
		{raw: "https://derpicdn.net/img/view/2020/1/1/123456.png", ok: true, ref: ImageRef{ImageID: "123456"}},
		{raw: "https://derpicdn.net/img/view/2020/1/1/123456.png||", ok: true, ref: ImageRef{ImageID: "123456"}},
		{raw: "https://derpibooru.org/images/654321", ok: true, ref: ImageRef{ImageID: "654321"}},
		{raw: "https://derpibooru.org/search?q=pony", ok: true, ref: ImageRef{URL: "https://derpibooru.org/search?q=pony"}},
		{raw: "https://derpicdn.net/avatars/abc.png", ok: true, ref: ImageRef{URL: "https://derpicdn.net/avatars/abc.png"}},
		{raw: "https://example.com/page.html", ok: false},
		{raw: "https://example.com/noext", ok: false},
		{raw: "https://example.com", ok: false},
		{raw: "::not a url", ok: false},
	}

	for _, fix := range fixtures {
		ref, ok := NormalizeImageURL(fix.raw)
		assert.Equal(fix.ok, ok, fix.raw)
		if !fix.ok {
			continue
		}
		assert.Equal(fix.ref, ref, fix.raw)
	}
}

// markup glued between or after links must not hide an image
func TestCollectedURLsNormalize(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text string
		refs []ImageRef
	}{
		{
			text: "||https://a.example/x.png||nice",
			refs: []ImageRef{{URL: "https://a.example/x.png"}},
		},
		{
			text: "||https://a.example/x.png||||https://b.example/y.png||",
			refs: []ImageRef{{URL: "https://a.example/x.png"}, {URL: "https://b.example/y.png"}},
		},
		{
			text: "**https://a.example/x.png**lol",
			refs: []ImageRef{{URL: "https://a.example/x.png"}},
		},
		{
			text: "||https://derpicdn.net/img/view/2020/1/1/123456.png||see?",
			refs: []ImageRef{{ImageID: "123456"}},
		},
	}

	for _, fix := range fixtures {
		var refs []ImageRef
		for _, raw := range CollectURLs(fix.text, nil) {
			ref, ok := NormalizeImageURL(raw)
			assert.True(ok, raw)
			refs = append(refs, ref)
		}
		assert.Equal(fix.refs, refs, fix.text)
	}
}

func TestNormalizeImageURLIdempotent(t *testing.T) {
	assert := assert.New(t)

	for _, raw := range []string{
		"https://example.com/a.png||",
		"https://example.com/dir/a.jpg**",
		"https://EXAMPLE.com:443/a.gif",
		"https://derpibooru.org/search?q=pony",
		"https://media.example.org/x/y/z.jpeg_)",
	} {
		first, ok := NormalizeImageURL(raw)
		assert.True(ok, raw)
		assert.False(first.IsDirect())
		second, ok := NormalizeImageURL(first.URL)
		assert.True(ok, first.URL)
		assert.Equal(first, second, raw)
	}
}

func TestImageRefKey(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("id:123", ImageRef{ImageID: "123"}.Key())
	assert.Equal("url:https://example.com/a.png", ImageRef{URL: "https://example.com/a.png"}.Key())
}
