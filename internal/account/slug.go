// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package account

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Slugify derives a URL-safe, lower-cased slug from a title.
// Accents are stripped ("Pokémon" -> "pokemon") and every run of other
// characters becomes a single dash: "Kanto Living Dex" -> "kanto-living-dex".
func Slugify(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// IsValidSlug reports whether s is already in slug form.
func IsValidSlug(s string) bool {
	return slugRegex.MatchString(s)
}

// resolveSlug returns the explicit slug when supplied, otherwise one
// derived from the title.
func resolveSlug(title, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	slug := Slugify(title)
	if slug == "" {
		return "", invalidInput("slug", "a slug cannot be derived from title %q; supply one explicitly", title)
	}
	return slug, nil
}
