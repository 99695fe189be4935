// Package cookie classifies browser cookies as tracking or benign using
// name, domain, lifetime, and attribute heuristics. It backs the offline
// reporting CLI; the live interception path never touches it.
package cookie

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// SameSite follows the browser cookie-store encoding: 0 is None,
// 1 is Lax, 2 is Strict. -1 means the attribute was absent.
type SameSite int

const (
	SameSiteUnset  SameSite = -1
	SameSiteNone   SameSite = 0
	SameSiteLax    SameSite = 1
	SameSiteStrict SameSite = 2
)

// Cookie is one entry from an exported browser cookie store.
type Cookie struct {
	Name     string   `json:"name"`
	Value    string   `json:"value,omitempty"`
	Domain   string   `json:"domain"`
	Path     string   `json:"path,omitempty"`
	Expires  float64  `json:"expires,omitempty"` // unix seconds; 0 = session cookie
	Secure   bool     `json:"secure,omitempty"`
	HTTPOnly bool     `json:"httpOnly,omitempty"`
	SameSite SameSite `json:"sameSite"`
}

// Features are the individual signals that contributed to a verdict.
type Features struct {
	KnownTracker       bool `json:"known_tracker"`
	FingerprintRelated bool `json:"fingerprinting_related"`
	LongExpiration     bool `json:"long_expiration"`
	ThirdParty         bool `json:"third_party"`
	SuspiciousName     bool `json:"suspicious_name"`
}

// Verdict is the classification for a single cookie.
type Verdict struct {
	Cookie     Cookie   `json:"cookie"`
	IsTracking bool     `json:"is_tracking"`
	Reasons    []string `json:"reasons,omitempty"`
	Features   Features `json:"features"`
}

// Summary aggregates a classification run.
type Summary struct {
	TotalCookies       int     `json:"total_cookies"`
	TrackingCookies    int     `json:"tracking_cookies"`
	NonTrackingCookies int     `json:"non_tracking_cookies"`
	TrackingPercentage float64 `json:"tracking_percentage"`
	UniqueDomains      int     `json:"unique_domains"`
	ThirdPartyCookies  int     `json:"third_party_cookies"`
	FirstPartyCookies  int     `json:"first_party_cookies"`
}

// Report is the full output of Classify.
type Report struct {
	Tracking    []Verdict `json:"tracking"`
	NonTracking []Verdict `json:"non_tracking"`
	Summary     Summary   `json:"summary"`
}

// UnmarshalJSON maps both string ("None"/"Lax"/"Strict") and numeric
// SameSite encodings; real cookie exports use either.
func (s *SameSite) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = SameSite(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("sameSite: %w", err)
	}
	switch str {
	case "None", "none", "no_restriction":
		*s = SameSiteNone
	case "Lax", "lax":
		*s = SameSiteLax
	case "Strict", "strict":
		*s = SameSiteStrict
	default:
		*s = SameSiteUnset
	}
	return nil
}

// LoadCookies reads a JSON array of cookies, the format browser cookie
// exporters and CDP dumps produce.
func LoadCookies(r io.Reader) ([]Cookie, error) {
	var cookies []Cookie
	dec := json.NewDecoder(r)
	if err := dec.Decode(&cookies); err != nil {
		return nil, fmt.Errorf("decode cookies: %w", err)
	}
	return cookies, nil
}

// LoadCookiesCSV reads a header-led CSV dump. Recognized columns are
// name, domain, path, expires, secure, sameSite; anything else is ignored.
func LoadCookiesCSV(r io.Reader) ([]Cookie, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var cookies []Cookie
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		ck := Cookie{
			Name:     field(row, "name"),
			Domain:   field(row, "domain"),
			Path:     field(row, "path"),
			SameSite: SameSiteUnset,
		}
		if v := field(row, "expires"); v != "" {
			ck.Expires, _ = strconv.ParseFloat(v, 64)
		}
		if v := field(row, "secure"); v != "" {
			ck.Secure, _ = strconv.ParseBool(v)
		}
		switch strings.ToLower(field(row, "samesite")) {
		case "none", "no_restriction":
			ck.SameSite = SameSiteNone
		case "lax":
			ck.SameSite = SameSiteLax
		case "strict":
			ck.SameSite = SameSiteStrict
		}
		cookies = append(cookies, ck)
	}
	return cookies, nil
}

// LoadCookiesFile loads a cookie dump, picking the codec by extension:
// .csv parses as CSV, everything else as JSON.
func LoadCookiesFile(path string) ([]Cookie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cookies: %w", err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return LoadCookiesCSV(f)
	}
	return LoadCookies(f)
}

// ExpiryDays is the number of days until the cookie expires relative to
// now. Session cookies (no expiry) return 0.
func (c Cookie) ExpiryDays(now time.Time) int {
	if c.Expires <= 0 {
		return 0
	}
	exp := time.Unix(int64(c.Expires), 0)
	return int(exp.Sub(now).Hours() / 24)
}
