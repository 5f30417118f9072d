// Banned-tag policy: which image tags get a message removed, depending on whether the channel allows adult content.
package policy

// Operator-supplied banned tag lists, in the same shape as the "bannedTags" config section.
type BannedTags struct {
	// banned everywhere
	Both []string `json:"both"`
	// banned only in general-audience channels
	SFW []string `json:"sfw"`
	// banned only in channels which permit adult content
	NSFW []string `json:"nsfw"`
}

// Set of tag strings. Membership is exact, case-sensitive string equality.
type TagSet map[string]bool

func (s TagSet) Has(tag string) bool {
	return s[tag]
}

// Effective banned-tag sets for both channel classifications, computed once. Immutable after construction, so safe for concurrent reads.
type Policy struct {
	sfw  TagSet
	nsfw TagSet
}

func newTagSet(lists ...[]string) TagSet {
	s := make(TagSet)
	for _, l := range lists {
		for _, tag := range l {
			if tag == "" {
				continue
			}
			s[tag] = true
		}
	}
	return s
}

func New(bt BannedTags) *Policy {
	return &Policy{
		sfw:  newTagSet(bt.Both, bt.SFW),
		nsfw: newTagSet(bt.Both, bt.NSFW),
	}
}

// Returns the effective banned tags for a channel: "both" plus either the "nsfw" or "sfw" list. The returned set must not be modified.
func (p *Policy) BannedTags(adultAllowed bool) TagSet {
	if adultAllowed {
		return p.nsfw
	}
	return p.sfw
}

// Returns the banned tags present in any of the provided tag sets (one per matched image), de-duplicated, in order of first appearance. An empty result means clean.
func MatchBanned(banned TagSet, tagSets ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tags := range tagSets {
		for _, tag := range tags {
			if banned.Has(tag) && !seen[tag] {
				out = append(out, tag)
				seen[tag] = true
			}
		}
	}
	return out
}

// Helper combining BannedTags and MatchBanned.
func (p *Policy) Evaluate(adultAllowed bool, tagSets ...[]string) []string {
	return MatchBanned(p.BannedTags(adultAllowed), tagSets...)
}
