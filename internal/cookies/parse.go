package cookies

import (
	"net/http"
	"regexp"
	"strings"
	"time"
)

var expiresPattern = regexp.MustCompile(`(?i)expires=([^;]+)`)

// expiresLayouts are tried in order after http.ParseTime.
var expiresLayouts = []string{
	"Mon, 02-Jan-2006 15:04:05 MST",
	"Mon, 02-Jan-06 15:04:05 MST",
	time.RFC3339,
}

// Parse splits a raw cookie header into entries, preserving input order.
//
// Parsing is total: segments without '=' become entries with an empty value, unknown
// names are kept, and an unreadable expiry date simply leaves Expires nil. Filtering
// happens in Clean and Merge.
func Parse(raw string) []Entry {
	segments := strings.Split(raw, ";")
	entries := make([]Entry, 0, len(segments))

	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		name, value, _ := strings.Cut(segment, "=")
		entry := Entry{
			Name:     strings.TrimSpace(name),
			Value:    strings.TrimSpace(value),
			HTTPOnly: strings.Contains(segment, "HttpOnly"),
			Secure:   strings.Contains(segment, "Secure"),
		}

		for _, d := range instagramDomains {
			if strings.Contains(segment, "Domain="+d) {
				entry.Domain = d
				break
			}
		}
		if strings.Contains(segment, "Path=/") {
			entry.Path = "/"
		}
		if m := expiresPattern.FindStringSubmatch(segment); m != nil {
			entry.Expires = parseExpires(m[1])
		}

		entries = append(entries, entry)
	}

	return entries
}

// FromHTTP converts cookies read from Set-Cookie headers into entries.
func FromHTTP(cs []*http.Cookie) []Entry {
	if len(cs) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(cs))
	for _, c := range cs {
		e := Entry{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if !c.Expires.IsZero() {
			exp := c.Expires.UTC()
			e.Expires = &exp
		}
		out = append(out, e)
	}
	return out
}

func parseExpires(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := http.ParseTime(s); err == nil {
		t = t.UTC()
		return &t
	}
	for _, layout := range expiresLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
