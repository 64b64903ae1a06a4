package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	prefixedRe = regexp.MustCompile(`(?i)\bITM-([0-9A-F]{8})\b`)
	bareRe     = regexp.MustCompile(`(?i)^[0-9A-F]{8}$`)
)

// ItemRef extracts the canonical item identifier from manually entered text.
// When a label will not scan, people fall back to typing or pasting whatever
// they have: the bare id, the prefixed id in any case, the label's JSON
// payload, or a copied label URL. All of them normalize to "ITM-XXXXXXXX".
func ItemRef(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty item reference")
	}

	if m := prefixedRe.FindStringSubmatch(s); m != nil {
		return "ITM-" + strings.ToUpper(m[1]), nil
	}
	if bareRe.MatchString(s) {
		return "ITM-" + strings.ToUpper(s), nil
	}
	return "", fmt.Errorf("unable to parse item reference: %q", raw)
}
