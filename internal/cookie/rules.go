package cookie

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules are the classification heuristics. Every list extends or replaces
// the built-in defaults via a YAML overlay, so deployments can teach the
// classifier new trackers without a rebuild.
type Rules struct {
	// TrackingDomains are substrings matched against cookie domains.
	TrackingDomains []string `yaml:"tracking_domains"`

	// TrackingPrefixes are case-insensitive cookie-name prefixes.
	TrackingPrefixes []string `yaml:"tracking_prefixes"`

	// TrackingNames are exact cookie names known to be trackers.
	TrackingNames []string `yaml:"tracking_names"`

	// FingerprintTerms flag cookies whose names reference a
	// fingerprinting surface.
	FingerprintTerms []string `yaml:"fingerprint_terms"`

	// ThirdPartyPatterns are domain substrings typical of third-party
	// services (ad servers, consent platforms, social widgets).
	ThirdPartyPatterns []string `yaml:"third_party_patterns"`

	// LongExpiryDays marks a cookie long-lived past this horizon.
	LongExpiryDays int `yaml:"long_expiry_days"`
}

// DefaultRules returns the built-in heuristics.
func DefaultRules() Rules {
	return Rules{
		TrackingDomains: []string{
			"analytics", "tracker", "pixel", "ad.", "ads.", "adservice",
			"doubleclick", "google-analytics", "googletagmanager",
			"googlesyndication", "facebook", "fbcdn", "twitter", "linkedin",
			"pinterest", "tiktok", "criteo", "quantserve", "mediamath",
			"adroll", "taboola", "outbrain", "pubmatic", "rubiconproject",
			"adnxs", "amazon-adsystem", "scorecardresearch", "casalemedia",
			"hotjar", "mixpanel", "amplitude", "segment.io", "chartbeat",
			"clarity.ms", "demdex", "rlcdn", "sharedid", "mathtag",
			"adsystem", "adserver", "adsrvr", "moatads", "optimizely",
		},
		TrackingPrefixes: []string{
			"_ga", "_gid", "_gcl", "_fbp", "_uetsid", "_uetvid", "_hjid",
			"_hj", "AMP_TOKEN", "AMCV_", "AMCVS_", "NID", "IDE", "uuid",
			"UIDR", "VISITOR", "segment_", "track", "mp_", "mixpanel",
			"amplitude", "parsely_", "personalization_id", "utag_",
			"intercom-", "km_",
		},
		TrackingNames: []string{
			"_ga", "_gcl_au", "_fbp", "_scid", "_uetsid", "_uetvid",
			"MUID", "NID", "_sharedid", "OptanonConsent", "cf_clearance",
		},
		FingerprintTerms: []string{
			"canvas", "webgl", "audio", "fingerprint", "device",
		},
		ThirdPartyPatterns: []string{
			"tracking", "tracker", "analytics", "pixel", "stat",
			"advert", "banner", "sponsor", "marketing",
			"consent", "gdpr", "ccpa", "cookie-law",
			"share", "social", "widget",
		},
		LongExpiryDays: 365,
	}
}

// LoadRules overlays a YAML rules file onto the defaults. Lists present in
// the file replace the default list; absent lists keep the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules: %w", err)
	}
	var overlay Rules
	if err := yaml.Unmarshal(buf, &overlay); err != nil {
		return rules, fmt.Errorf("parse rules: %w", err)
	}
	if overlay.TrackingDomains != nil {
		rules.TrackingDomains = overlay.TrackingDomains
	}
	if overlay.TrackingPrefixes != nil {
		rules.TrackingPrefixes = overlay.TrackingPrefixes
	}
	if overlay.TrackingNames != nil {
		rules.TrackingNames = overlay.TrackingNames
	}
	if overlay.FingerprintTerms != nil {
		rules.FingerprintTerms = overlay.FingerprintTerms
	}
	if overlay.ThirdPartyPatterns != nil {
		rules.ThirdPartyPatterns = overlay.ThirdPartyPatterns
	}
	if overlay.LongExpiryDays > 0 {
		rules.LongExpiryDays = overlay.LongExpiryDays
	}
	return rules, nil
}
