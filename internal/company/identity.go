// Package company resolves canonical company identity and merges findings
// into canonical records.
package company

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes lists legal entity suffix tokens stripped during name
// normalization. Tokens are matched after punctuation removal.
var legalSuffixes = map[string]bool{
	"LLC": true, "INC": true, "INCORPORATED": true,
	"CORP": true, "CORPORATION": true,
	"LTD": true, "LIMITED": true,
	"LP": true, "LLP": true, "PLLC": true,
	"PC": true, "PA": true, "CO": true, "COMPANY": true,
	"PLC": true, "NA": true, "DBA": true,
	"GMBH": true, "AG": true, "SA": true, "SAS": true, "SARL": true,
	"BV": true, "NV": true, "SRL": true, "SL": true, "SPA": true,
	"AB": true, "AS": true, "OY": true, "PTY": true, "KK": true,
}

var (
	dropRe       = regexp.MustCompile(`[.'"’]`)
	separatorRe  = regexp.MustCompile(`[^A-Z0-9 ]+`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// genericHosts are shared platforms that never identify a single company.
var genericHosts = map[string]bool{
	"linkedin.com": true, "crunchbase.com": true, "facebook.com": true,
	"twitter.com": true, "x.com": true, "wikipedia.org": true,
	"github.com": true, "medium.com": true, "youtube.com": true,
	"instagram.com": true, "pitchbook.com": true,
}

// NormalizeName standardizes a company name for matching by:
//  1. Folding diacritics and converting to uppercase
//  2. Dropping periods and apostrophes, so "L.L.C." becomes "LLC"
//  3. Replacing "&" with "AND" and other punctuation with spaces
//  4. Removing trailing legal suffixes (LLC, Inc, GmbH, etc.)
//  5. Collapsing whitespace
//
// "Biome Makers" and "biome makers, inc." both normalize to "BIOME MAKERS".
func NormalizeName(name string) string {
	name = strings.TrimSpace(foldDiacritics(name))
	if name == "" {
		return ""
	}

	name = strings.ToUpper(name)
	name = dropRe.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, "&", " AND ")
	name = separatorRe.ReplaceAllString(name, " ")
	name = multiSpaceRe.ReplaceAllString(strings.TrimSpace(name), " ")

	// Strip up to two trailing suffixes ("Co Ltd") but keep at least one token.
	tokens := strings.Fields(name)
	for i := 0; i < 2 && len(tokens) > 1 && legalSuffixes[tokens[len(tokens)-1]]; i++ {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeDomain reduces a website or URL to its lowercase host without
// scheme, "www." prefix, port, or path.
func NormalizeDomain(rawURL string) string {
	d := strings.ToLower(strings.TrimSpace(rawURL))
	if d == "" {
		return ""
	}
	if !strings.Contains(d, "://") {
		d = "http://" + d
	}
	u, err := url.Parse(d)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// identifyingDomain returns the normalized domain if it can identify a
// single company.
func identifyingDomain(rawURL string) string {
	d := NormalizeDomain(rawURL)
	if d == "" || !strings.Contains(d, ".") || genericHosts[d] {
		return ""
	}
	return d
}

// SameWebsite reports whether two websites share a domain.
func SameWebsite(a, b string) bool {
	da, db := NormalizeDomain(a), NormalizeDomain(b)
	return da != "" && da == db
}
