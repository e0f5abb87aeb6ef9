package emoji

import (
	"strings"

	"github.com/kyokomi/emoji/v2"
)

var emojiSet = func() map[string]struct{} {
	out := map[string]struct{}{}
	for e := range emoji.RevCodeMap() {
		out[e] = struct{}{}
	}
	return out
}()

// variationSelector is appended by most pickers to force emoji presentation.
const variationSelector = "️"

// IsValid reports whether s is a single known emoji.
func IsValid(s string) bool {
	if s == "" {
		return false
	}

	_, ok := emojiSet[s]
	if !ok && strings.Contains(s, variationSelector) {
		return IsValid(strings.ReplaceAll(s, variationSelector, ""))
	}
	return ok
}
