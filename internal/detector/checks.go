package detector

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/robalyx/sentinel/internal/setup/config"
)

var (
	urlPattern    = regexp.MustCompile(`(?i)https?://\S+`)
	invitePattern = regexp.MustCompile(`(?i)discord\.gg/\S+|discord\.com/invite/\S+`)
	domainPattern = regexp.MustCompile(`(?i)https?://([^/\s]+)`)
)

// checkLinks applies the link policy. The first sub-check that fires decides the reason.
func checkLinks(content string, trusted bool, det *config.Detector) (string, bool) {
	if !det.AllowLinks && !trusted && urlPattern.MatchString(content) {
		return "Links not allowed", true
	}

	// Invites are checked regardless of trust
	if det.BlockAllInvites {
		if invite := invitePattern.FindString(content); invite != "" && !whitelisted(invite, det.LinkWhitelist) {
			return "Unauthorized Discord invite", true
		}
	}

	if trusted {
		return "", false
	}

	for _, match := range domainPattern.FindAllStringSubmatch(content, -1) {
		if domain := match[1]; !whitelisted(domain, det.LinkWhitelist) {
			return "Non-whitelisted link: " + domain, true
		}
	}

	return "", false
}

// whitelisted reports whether any whitelist entry occurs in s.
func whitelisted(s string, whitelist []string) bool {
	s = strings.ToLower(s)
	for _, allowed := range whitelist {
		if allowed != "" && strings.Contains(s, strings.ToLower(allowed)) {
			return true
		}
	}

	return false
}

// checkContent looks for excessive caps and repeated character runs.
func checkContent(content string, det *config.Detector) (string, bool) {
	length := utf8.RuneCountInString(content)
	if length == 0 {
		return "", false
	}

	if length >= det.MinCapsLength {
		upper := 0
		for _, r := range content {
			if unicode.IsUpper(r) {
				upper++
			}
		}

		ratio := float64(upper) / float64(length)
		if ratio >= det.MaxCapsRatio {
			return fmt.Sprintf("Excessive caps (%d%%)", int(ratio*100)), true
		}
	}

	if longestRun(content) >= det.RepeatedCharThreshold {
		return "Repeated character spam", true
	}

	return "", false
}

// longestRun returns the longest run of one repeated character, ignoring newlines.
func longestRun(content string) int {
	var (
		longest int
		current int
		prev    rune = -1
	)

	for _, r := range content {
		if r == '\n' {
			current = 0
			prev = -1
			continue
		}

		if r == prev {
			current++
		} else {
			current = 1
			prev = r
		}

		longest = max(longest, current)
	}

	return longest
}
