package helpers

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// Reference to an image which can be looked up in the tag service. Exactly one of the fields is set.
type ImageRef struct {
	// numeric booru image id, when the URL pointed at a known booru or CDN path
	ImageID string
	// cleaned image URL, for reverse image search
	URL string
}

func (r ImageRef) IsDirect() bool {
	return r.ImageID != ""
}

// Stable key for this reference, suitable for caching and logging.
func (r ImageRef) Key() string {
	if r.IsDirect() {
		return "id:" + r.ImageID
	}
	return "url:" + r.URL
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// Chat formatting which ends up glued to the end of a link. Order matters: "||" has to go before any single-character artifact.
//
// ">" is the decoded form of "%3E" (net/url decodes the path).
var extensionArtifacts = []string{"||", "%3E", ">", "*", "_", ")"}

var booruHosts = map[string]bool{
	"derpibooru.org":  true,
	"trixiebooru.org": true,
}

var cdnHosts = map[string]bool{
	"derpicdn.net": true,
}

var booruPathRegex = regexp.MustCompile(`^/(?:images/)?(\d+)`)

// eg: /img/view/2020/1/1/123456.png or /img/2020/1/1/123456/full.png
var cdnPathRegex = regexp.MustCompile(`^/img/(?:view/|download/)?\d+/\d+/\d+/(\d+)`)

const normalizeFlags = purell.FlagsSafe | purell.FlagRemoveFragment

// Removes chat formatting artifacts from a file extension, repeating until none are left.
func UnmangleExtension(ext string) string {
	for {
		prev := ext
		for _, a := range extensionArtifacts {
			ext = strings.ReplaceAll(ext, a, "")
		}
		if ext == prev {
			return ext
		}
	}
}

func canonicalHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func IsKnownImageHost(host string) bool {
	h := canonicalHost(host)
	return booruHosts[h] || cdnHosts[h]
}

// Extracts a numeric image id from a booru or booru CDN path. Returns empty string if the host is not recognized or the path doesn't have the expected shape.
func ImageIDFromPath(host, p string) string {
	h := canonicalHost(host)
	var re *regexp.Regexp
	switch {
	case booruHosts[h]:
		re = booruPathRegex
	case cdnHosts[h]:
		re = cdnPathRegex
	default:
		return ""
	}
	m := re.FindStringSubmatch(p)
	if m == nil {
		return ""
	}
	return m[1]
}

// Turns a raw candidate URL into something the tag service can look up.
//
// Returns false if the URL does not look like an image (or can't be parsed at all). Links to known booru hosts are resolved to an image id when the path allows it, and otherwise fall back to a cleaned URL like any other image link.
func NormalizeImageURL(raw string) (ImageRef, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ImageRef{}, false
	}

	ext := path.Ext(u.Path)
	clean := UnmangleExtension(ext)
	known := IsKnownImageHost(u.Hostname())
	if !imageExtensions[strings.ToLower(clean)] && !known {
		return ImageRef{}, false
	}

	if known {
		if id := ImageIDFromPath(u.Hostname(), u.Path); id != "" {
			return ImageRef{ImageID: id}, true
		}
	}

	u.Path = strings.TrimSuffix(u.Path, ext) + clean
	u.RawPath = ""
	return ImageRef{URL: purell.NormalizeURL(u, normalizeFlags)}, true
}
