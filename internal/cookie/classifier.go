package cookie

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// idLikeName flags cookie names built around an identifier.
var idLikeName = regexp.MustCompile(`(?i)(id|uid|user|visitor|session|tracking)`)

// Classifier applies a rule set to cookie dumps.
type Classifier struct {
	rules Rules

	// now is swappable for tests.
	now func() time.Time
}

func NewClassifier(rules Rules) *Classifier {
	return &Classifier{rules: rules, now: time.Now}
}

// Classify runs every cookie through the heuristics and aggregates a report.
func (c *Classifier) Classify(cookies []Cookie) Report {
	// Collect first-party candidate domains, including base domains of
	// subdomain entries, so third-party detection can compare against them.
	domains := make(map[string]struct{})
	for _, ck := range cookies {
		d := strings.TrimPrefix(ck.Domain, ".")
		if d == "" {
			continue
		}
		domains[d] = struct{}{}
		if base := baseDomain(d); base != "" {
			domains[base] = struct{}{}
		}
	}

	var report Report
	for _, ck := range cookies {
		v := c.classifyOne(ck, domains)
		if v.Features.ThirdParty {
			report.Summary.ThirdPartyCookies++
		}
		if v.IsTracking {
			report.Tracking = append(report.Tracking, v)
		} else {
			report.NonTracking = append(report.NonTracking, v)
		}
	}

	total := len(cookies)
	report.Summary.TotalCookies = total
	report.Summary.TrackingCookies = len(report.Tracking)
	report.Summary.NonTrackingCookies = len(report.NonTracking)
	report.Summary.UniqueDomains = len(domains)
	report.Summary.FirstPartyCookies = total - report.Summary.ThirdPartyCookies
	if total > 0 {
		pct := float64(len(report.Tracking)) / float64(total) * 100
		report.Summary.TrackingPercentage = float64(int(pct*10+0.5)) / 10
	}
	return report
}

func (c *Classifier) classifyOne(ck Cookie, domains map[string]struct{}) Verdict {
	v := Verdict{Cookie: ck}
	name := strings.ToLower(ck.Name)
	domain := strings.TrimPrefix(ck.Domain, ".")

	for _, prefix := range c.rules.TrackingPrefixes {
		if strings.HasPrefix(name, strings.ToLower(prefix)) {
			v.mark(fmt.Sprintf("name starts with tracking prefix %q", prefix))
			v.Features.KnownTracker = true
			break
		}
	}

	if idLikeName.MatchString(ck.Name) {
		v.mark("name contains tracking identifiers")
		v.Features.SuspiciousName = true
	}

	for _, td := range c.rules.TrackingDomains {
		if strings.Contains(domain, td) {
			v.mark(fmt.Sprintf("domain contains known tracking pattern %q", td))
			v.Features.KnownTracker = true
			break
		}
	}

	if thirdParty, reason := c.isThirdParty(ck, domains); thirdParty {
		v.mark(reason)
		v.Features.ThirdParty = true
	}

	if days := ck.ExpiryDays(c.now()); days > c.rules.LongExpiryDays {
		v.mark(fmt.Sprintf("long-lived cookie (expires in %d days)", days))
		v.Features.LongExpiration = true
	}

	for _, term := range c.rules.FingerprintTerms {
		if strings.Contains(name, term) {
			v.mark("cookie name suggests fingerprinting")
			v.Features.FingerprintRelated = true
			break
		}
	}

	return v
}

// isThirdParty decides whether a cookie belongs to a different party than
// the pages that produced the dump. Known trackers and SameSite=None;Secure
// cookies are third-party outright; domains sharing a base with any
// first-party candidate are not.
func (c *Classifier) isThirdParty(ck Cookie, domains map[string]struct{}) (bool, string) {
	domain := strings.TrimPrefix(ck.Domain, ".")
	if domain == "" {
		return false, ""
	}

	for _, td := range c.rules.TrackingDomains {
		if strings.Contains(domain, td) {
			return true, fmt.Sprintf("domain contains known tracking pattern %q", td)
		}
	}

	for _, tn := range c.rules.TrackingNames {
		if ck.Name == tn {
			return true, fmt.Sprintf("cookie name matches known tracking cookie %q", tn)
		}
	}

	if ck.SameSite == SameSiteNone && ck.Secure {
		return true, "SameSite=None with Secure indicates third-party usage"
	}

	base := baseDomain(domain)
	for d := range domains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return false, ""
		}
		if base != "" && base == baseDomain(d) {
			return false, ""
		}
	}

	for _, pattern := range c.rules.ThirdPartyPatterns {
		if strings.Contains(strings.ToLower(domain), pattern) {
			return true, fmt.Sprintf("domain contains third-party pattern %q", pattern)
		}
	}

	return true, "domain does not match any first-party domain"
}

func (v *Verdict) mark(reason string) {
	v.IsTracking = true
	v.Reasons = append(v.Reasons, reason)
}

// baseDomain returns the last two labels of a host, or "" when there are
// fewer than two. Good enough for the heuristics here; a public-suffix
// list would be overkill.
func baseDomain(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[len(parts)-2:], ".")
}
