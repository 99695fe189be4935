// Command cookiereport classifies an exported browser cookie dump and
// writes a JSON report plus an optional CSV of the tracking cookies.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/cookie"
)

func main() {
	input := flag.String("cookies", "", "path to a JSON or CSV cookie export (required)")
	rulesPath := flag.String("rules", "", "optional YAML rules overlay")
	outDir := flag.String("out", "output", "output directory for reports")
	writeCSV := flag.Bool("csv", false, "also write tracking cookies as CSV")
	domains := flag.String("domains", "", "comma-separated domain substrings to focus on")
	flag.Parse()

	_ = godotenv.Load()

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*input, *rulesPath, *outDir, *domains, *writeCSV); err != nil {
		log.Fatalf("cookiereport: %v", err)
	}
}

func run(input, rulesPath, outDir, domains string, writeCSV bool) error {
	cookies, err := cookie.LoadCookiesFile(input)
	if err != nil {
		return err
	}
	log.Printf("loaded %d cookies from %s", len(cookies), input)

	if domains != "" {
		cookies = filterByDomain(cookies, strings.Split(domains, ","))
		log.Printf("filtered to %d cookies for the requested domains", len(cookies))
	}

	rules, err := cookie.LoadRules(rulesPath)
	if err != nil {
		return err
	}

	report := cookie.NewClassifier(rules).Classify(cookies)
	logSummary(report.Summary)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	reportPath := filepath.Join(outDir, "cookie_report.json")
	if err := writeJSONFile(reportPath, report); err != nil {
		return err
	}
	log.Printf("wrote %s", reportPath)

	if writeCSV {
		csvPath := filepath.Join(outDir, "tracking_cookies.csv")
		if err := writeTrackingCSV(csvPath, report.Tracking); err != nil {
			return err
		}
		log.Printf("wrote %s", csvPath)
	}
	return nil
}

func filterByDomain(cookies []cookie.Cookie, wanted []string) []cookie.Cookie {
	var out []cookie.Cookie
	for _, ck := range cookies {
		for _, w := range wanted {
			w = strings.TrimSpace(w)
			if w != "" && strings.Contains(ck.Domain, w) {
				out = append(out, ck)
				break
			}
		}
	}
	return out
}

func logSummary(s cookie.Summary) {
	log.Printf("total=%d tracking=%d (%.1f%%) third-party=%d first-party=%d domains=%d",
		s.TotalCookies, s.TrackingCookies, s.TrackingPercentage,
		s.ThirdPartyCookies, s.FirstPartyCookies, s.UniqueDomains)
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func writeTrackingCSV(path string, verdicts []cookie.Verdict) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"name", "domain", "path", "expires", "secure", "third_party", "reasons"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, v := range verdicts {
		row := []string{
			v.Cookie.Name,
			v.Cookie.Domain,
			v.Cookie.Path,
			strconv.FormatFloat(v.Cookie.Expires, 'f', 0, 64),
			strconv.FormatBool(v.Cookie.Secure),
			strconv.FormatBool(v.Features.ThirdParty),
			strings.Join(v.Reasons, "; "),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
