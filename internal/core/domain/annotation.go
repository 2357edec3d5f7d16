package domain

import "strings"

const (
	// MaxTags is the cap on tags per annotation.
	MaxTags = 5

	// MaxReasonLen is the cap on the reason text, in runes.
	MaxReasonLen = 280
)

// Annotation is the LLM's verdict on a chunk: whether it is worth
// indexing, plus a handful of topic tags and a short justification.
type Annotation struct {
	// Keep is true when the chunk should proceed to indexing.
	Keep bool

	// Tags are short topic labels, at most MaxTags after Normalize.
	Tags []string

	// Reason is a brief justification for the verdict.
	Reason string
}

// Normalize trims, dedupes and caps the annotation fields in place.
// Models occasionally return more tags than asked for, repeat them,
// or pad the reason; callers persist only the normalised form.
func (a *Annotation) Normalize() {
	seen := make(map[string]struct{}, len(a.Tags))
	tags := a.Tags[:0]
	for _, tag := range a.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == MaxTags {
			break
		}
	}
	a.Tags = tags

	a.Reason = strings.TrimSpace(a.Reason)
	if runes := []rune(a.Reason); len(runes) > MaxReasonLen {
		a.Reason = string(runes[:MaxReasonLen])
	}
}
