// Package classify scores job URLs and page content against known ATS
// vendor signatures. Classification is pure and concurrency-safe: the
// pattern tables are compiled once at package init and never mutated.
package classify

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/jonathan/auto-applier/internal/types"
)

const (
	// urlConfidence is assigned when a URL pattern matches. URL
	// signatures are near-certain, so they short-circuit content checks.
	urlConfidence = 0.9
	// contentBase and contentPerMatch scale content-keyword confidence:
	// min(contentBase + matches*contentPerMatch, contentCap).
	contentBase     = 0.5
	contentPerMatch = 0.2
	contentCap      = 0.85
	// fallbackConfidence is returned when nothing matched. The caller
	// must still attempt the universal filler, so the result is a usable
	// low-confidence "custom" tag rather than unknown with zero signal.
	fallbackConfidence = 0.3
)

// urlPatterns maps each vendor to URL signatures matched against
// host+path, case-insensitively.
var urlPatterns = map[types.Vendor][]string{
	types.VendorWorkday: {
		`\.myworkdayjobs\.com`,
		`\.wd\d+\.myworkdayjobs\.com`,
		`workday\.com/.*apply`,
		`myworkday\.com`,
	},
	types.VendorAshby: {
		`jobs\.ashbyhq\.com`,
		`app\.ashbyhq\.com`,
	},
	types.VendorGreenhouse: {
		`boards\.greenhouse\.io`,
		`\.greenhouse\.io`,
		`job-boards\.greenhouse\.io`,
	},
	types.VendorLever: {
		`jobs\.lever\.co`,
		`\.lever\.co`,
	},
	types.VendorOracle: {
		`\.taleo\.net`,
		`\.oraclecloud\.com/hcmui`,
		`oracle\.com/.*careers`,
	},
	types.VendorADP: {
		`\.adp\.com`,
		`workforcenow\.adp\.com`,
	},
	types.VendorICIMS: {
		`\.icims\.com`,
		`careers-.*\.icims\.com`,
	},
	types.VendorTaleo: {
		`\.taleo\.net`,
		`tbe\.taleo\.net`,
	},
	types.VendorJobvite: {
		`\.jobvite\.com`,
		`jobs\.jobvite\.com`,
	},
	types.VendorSmartRecruiters: {
		`\.smartrecruiters\.com`,
		`careers\.smartrecruiters\.com`,
	},
	types.VendorRedirector: {
		`builtin\.com/job/`,
		`builtin\.com/jobs/`,
		`builtinnyc\.com/job/`,
		`builtinsf\.com/job/`,
		`builtinboston\.com/job/`,
		`builtincolorado\.com/job/`,
		`builtinla\.com/job/`,
		`builtinseattle\.com/job/`,
	},
}

// contentPatterns maps each vendor to markers found in rendered page
// HTML. Used when the URL alone is not conclusive (custom career-site
// domains embedding a hosted form).
var contentPatterns = map[types.Vendor][]string{
	types.VendorWorkday: {
		`workday`,
		`wd-apply`,
		`WDAY_`,
	},
	types.VendorAshby: {
		`ashbyhq`,
		`ashby-apply`,
	},
	types.VendorGreenhouse: {
		`greenhouse\.io`,
		`gh-apply`,
		`greenhouse-application`,
	},
	types.VendorLever: {
		`lever\.co`,
		`lever-apply`,
	},
	types.VendorRedirector: {
		`Apply on company site`,
		`>Apply Now<`,
	},
}

// vendorOrder fixes the iteration order over the pattern tables so that
// classification is deterministic. More specific platforms come first.
var vendorOrder = []types.Vendor{
	types.VendorWorkday,
	types.VendorAshby,
	types.VendorGreenhouse,
	types.VendorLever,
	types.VendorOracle,
	types.VendorADP,
	types.VendorICIMS,
	types.VendorTaleo,
	types.VendorJobvite,
	types.VendorSmartRecruiters,
	types.VendorRedirector,
}

var (
	compiledURL     = compileTable(urlPatterns)
	compiledContent = compileTable(contentPatterns)
)

func compileTable(table map[types.Vendor][]string) map[types.Vendor][]*regexp.Regexp {
	out := make(map[types.Vendor][]*regexp.Regexp, len(table))
	for vendor, patterns := range table {
		compiled := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
		}
		out[vendor] = compiled
	}
	return out
}

// Result is a vendor classification with its confidence in [0,1].
type Result struct {
	Vendor     types.Vendor
	Confidence float64
}

// FromURL classifies a URL alone. A pattern hit yields confidence 0.9;
// no hit yields (unknown, 0).
func FromURL(rawURL string) Result {
	if rawURL == "" {
		return Result{Vendor: types.VendorUnknown}
	}

	parsed, err := url.Parse(strings.ToLower(rawURL))
	if err != nil {
		return Result{Vendor: types.VendorUnknown}
	}
	target := parsed.Host + parsed.Path

	for _, vendor := range vendorOrder {
		for _, re := range compiledURL[vendor] {
			if re.MatchString(target) {
				return Result{Vendor: vendor, Confidence: urlConfidence}
			}
		}
	}
	return Result{Vendor: types.VendorUnknown}
}

// FromContent classifies rendered page HTML. Confidence scales with the
// number of matching markers for the first vendor with any hit, capped
// below the URL confidence so a URL signature always wins.
func FromContent(html string) Result {
	if html == "" {
		return Result{Vendor: types.VendorUnknown}
	}

	for _, vendor := range vendorOrder {
		matches := 0
		for _, re := range compiledContent[vendor] {
			if re.MatchString(html) {
				matches++
			}
		}
		if matches > 0 {
			conf := contentBase + float64(matches)*contentPerMatch
			if conf > contentCap {
				conf = contentCap
			}
			return Result{Vendor: vendor, Confidence: conf}
		}
	}
	return Result{Vendor: types.VendorUnknown}
}

// Classify resolves a URL and optional page content to a vendor tag.
// The URL result wins outright at full confidence; otherwise the higher
// scoring of the two signals is returned. With no signal at all the
// result is (custom, 0.3) so callers always have a fallback path.
func Classify(rawURL, html string) Result {
	urlRes := FromURL(rawURL)
	if urlRes.Confidence >= urlConfidence {
		return urlRes
	}

	if html != "" {
		contentRes := FromContent(html)
		if contentRes.Confidence > urlRes.Confidence {
			return contentRes
		}
	}

	if urlRes.Confidence > 0 {
		return urlRes
	}
	return Result{Vendor: types.VendorCustom, Confidence: fallbackConfidence}
}
