package helpers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spaolacci/murmur3"
)

func DedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

// returns a fast, compact hash of a string
//
// current implementation uses murmur3, default seed, and hex encoding
func HashOfString(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}

// Matches http(s) URLs up to the next whitespace, quote-like character, or spoiler bar ("|" is never legal unescaped in a URL).
//
// Other chat markup which hugs a link (emphasis, closing parens, suppress-embed angle brackets) is captured along with the URL; NormalizeImageURL strips it from the extension later.
var urlRegex = regexp.MustCompile(`(?i)https?://[^\s<"'\x60|]+`)

// sentence punctuation which is never meaningful at the very end of a link
const trailingPunct = ".,;:!?"

// Returns all http(s) URLs found in free text, in order of appearance. Malformed text just yields no URLs.
func ExtractTextURLs(raw string) []string {
	var out []string
	for _, m := range urlRegex.FindAllString(raw, -1) {
		// bold markup, possibly with more text glued on after it
		if i := strings.Index(m, "**"); i >= 0 {
			m = m[:i]
		}
		m = strings.TrimRight(m, trailingPunct)
		if strings.HasSuffix(strings.ToLower(m), "://") {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Builds the de-duplicated list of candidate URLs for a message.
//
// Links found in the text come first, in order of appearance, followed by attachment URLs in attachment order.
func CollectURLs(text string, attachmentURLs []string) []string {
	all := ExtractTextURLs(text)
	for _, u := range attachmentURLs {
		if u != "" {
			all = append(all, u)
		}
	}
	return DedupeStrings(all)
}
