package domain

import (
	"net/url"
	"sort"
	"strings"
)

// DomainBlocklist holds domains for which sessions may not be saved.
// Entries are exact hostnames or "*.suffix" wildcards.
type DomainBlocklist struct {
	Entries []string `json:"entries"`
}

// NormalizeDomain lowercases a hostname and strips scheme, port and path
// when given a URL.
func NormalizeDomain(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	if i := strings.IndexAny(raw, "/:"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSuffix(raw, ".")
}

// Blocked reports whether domain matches an entry.
func (b *DomainBlocklist) Blocked(domain string) bool {
	domain = NormalizeDomain(domain)
	for _, entry := range b.Entries {
		if entry == domain {
			return true
		}
		if strings.HasPrefix(entry, "*.") {
			suffix := entry[1:] // ".example.com"
			if strings.HasSuffix(domain, suffix) {
				return true
			}
		}
	}
	return false
}

// Add inserts an entry; returns false if it was already present.
func (b *DomainBlocklist) Add(entry string) bool {
	entry = normalizeEntry(entry)
	if entry == "" {
		return false
	}
	for _, e := range b.Entries {
		if e == entry {
			return false
		}
	}
	b.Entries = append(b.Entries, entry)
	sort.Strings(b.Entries)
	return true
}

// Remove deletes an entry; returns false if it was absent.
func (b *DomainBlocklist) Remove(entry string) bool {
	entry = normalizeEntry(entry)
	for i, e := range b.Entries {
		if e == entry {
			b.Entries = append(b.Entries[:i], b.Entries[i+1:]...)
			return true
		}
	}
	return false
}

func normalizeEntry(entry string) string {
	entry = strings.TrimSpace(strings.ToLower(entry))
	if strings.HasPrefix(entry, "*.") {
		return "*." + NormalizeDomain(entry[2:])
	}
	return NormalizeDomain(entry)
}
