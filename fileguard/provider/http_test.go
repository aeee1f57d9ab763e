package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/FileGuard/go-engine/fileguard/scan"
)

type fakeSearcher struct {
	links []string
	err   error

	lastQuery string
	lastLimit int
}

func (f *fakeSearcher) SearchReferences(ctx context.Context, query string, limit int) ([]string, error) {
	f.lastQuery = query
	f.lastLimit = limit
	return f.links, f.err
}

func testFile() scan.FileRef {
	return scan.NewFileRef("sample.exe", "application/octet-stream", []byte("MZ binary bytes"))
}

func TestAnalyzeSendsMultipartFormAndDecodesVerdict(t *testing.T) {
	t.Log("\n🔍 Testing analyze request and response...")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/analyze" {
			t.Errorf("❌ Unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("❌ Unexpected method: %s", r.Method)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("❌ Request is not multipart: %v", err)
		}

		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("❌ Missing file part: %v", err)
		}
		defer f.Close()
		if header.Filename != "sample.exe" {
			t.Errorf("❌ Wrong filename: %s", header.Filename)
		}
		content, _ := io.ReadAll(f)
		if string(content) != "MZ binary bytes" {
			t.Errorf("❌ File content mangled: %q", content)
		}

		if got := r.FormValue("depth"); got != "deep" {
			t.Errorf("❌ Expected depth deep, got %q", got)
		}
		if got := r.FormValue("heuristics"); got != "true" {
			t.Errorf("❌ Expected heuristics true, got %q", got)
		}
		if got := r.FormValue("signatures"); got != "false" {
			t.Errorf("❌ Expected signatures false, got %q", got)
		}
		if got := r.FormValue("sensitivity"); got != "75" {
			t.Errorf("❌ Expected sensitivity 75, got %q", got)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"file_name":         "sample.exe",
			"threat_level":      "malicious",
			"summary":           "Known trojan signature",
			"vulnerabilities":   []string{"CVE-2024-3094"},
			"confidence_score":  0.93,
			"technical_details": "signature match at offset 0x40",
		})
	}))
	defer server.Close()

	analyzer := NewHTTPAnalyzer(server.URL, nil)
	opts := scan.ScanOptions{
		Depth:                scan.DepthDeep,
		EnableHeuristics:     true,
		EnableSignatures:     false,
		SensitivityThreshold: 75,
	}

	result, err := analyzer.Analyze(context.Background(), testFile(), opts)
	if err != nil {
		t.Fatalf("❌ Analyze failed: %v", err)
	}
	if result.ThreatLevel != scan.ThreatMalicious {
		t.Errorf("❌ Expected malicious, got %s", result.ThreatLevel)
	}
	if result.Summary != "Known trojan signature" {
		t.Errorf("❌ Summary mismatch: %q", result.Summary)
	}
	if len(result.Vulnerabilities) != 1 || result.Vulnerabilities[0] != "CVE-2024-3094" {
		t.Errorf("❌ Vulnerabilities mismatch: %v", result.Vulnerabilities)
	}
	if result.ConfidenceScore != 0.93 {
		t.Errorf("❌ Confidence mismatch: %v", result.ConfidenceScore)
	}
	t.Log("✅ Multipart request carries file and options, verdict decodes")
}

func TestAnalyzeMapsUnknownVerdicts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"threat_level": "catastrophic"})
	}))
	defer server.Close()

	analyzer := NewHTTPAnalyzer(server.URL, nil)
	result, err := analyzer.Analyze(context.Background(), testFile(), scan.DefaultScanOptions())
	if err != nil {
		t.Fatalf("❌ Analyze failed: %v", err)
	}
	if result.ThreatLevel != scan.ThreatUnknown {
		t.Errorf("❌ Unrecognized level should map to unknown, got %s", result.ThreatLevel)
	}
	if result.FileName != "sample.exe" {
		t.Errorf("❌ Missing file name should fall back to the upload name, got %q", result.FileName)
	}
	t.Log("✅ Unknown verdicts and missing names are normalized")
}

func TestAnalyzeNon200IsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	analyzer := NewHTTPAnalyzer(server.URL, nil)
	_, err := analyzer.Analyze(context.Background(), testFile(), scan.DefaultScanOptions())
	if err == nil {
		t.Fatal("❌ Expected an error for a 503 response")
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Errorf("❌ Expected ProviderError, got %T: %v", err, err)
	}
	t.Log("✅ Non-200 responses surface as ProviderError")
}

func TestAnalyzeMalformedBodyIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	defer server.Close()

	analyzer := NewHTTPAnalyzer(server.URL, nil)
	_, err := analyzer.Analyze(context.Background(), testFile(), scan.DefaultScanOptions())
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Errorf("❌ Expected ProviderError for malformed body, got %v", err)
	}
	t.Log("✅ Malformed verdicts surface as ProviderError")
}

func TestLookupReferences(t *testing.T) {
	t.Log("\n🔍 Testing reference lookup...")

	searcher := &fakeSearcher{links: []string{"https://nvd.nist.gov/vuln/detail/CVE-2024-3094"}}
	analyzer := NewHTTPAnalyzer("http://unused", searcher)

	links, err := analyzer.LookupReferences(context.Background(), "CVE-2024-3094")
	if err != nil {
		t.Fatalf("❌ Lookup failed: %v", err)
	}
	if len(links) != 1 {
		t.Errorf("❌ Expected 1 link, got %v", links)
	}
	if searcher.lastQuery != "CVE-2024-3094" {
		t.Errorf("❌ Query not forwarded: %q", searcher.lastQuery)
	}
	if searcher.lastLimit != referenceLimit {
		t.Errorf("❌ Expected limit %d, got %d", referenceLimit, searcher.lastLimit)
	}

	searcher.err = errors.New("rate limited")
	_, err = analyzer.LookupReferences(context.Background(), "openssl vulnerabilities")
	var cerr *CorrelationError
	if !errors.As(err, &cerr) {
		t.Fatalf("❌ Expected CorrelationError, got %v", err)
	}
	if cerr.Query != "openssl vulnerabilities" {
		t.Errorf("❌ Query missing from error: %q", cerr.Query)
	}
	t.Log("✅ Lookups forward the query and wrap failures")
}

func TestLookupWithoutSearcherFails(t *testing.T) {
	analyzer := NewHTTPAnalyzer("http://unused", nil)
	_, err := analyzer.LookupReferences(context.Background(), "anything")
	var cerr *CorrelationError
	if !errors.As(err, &cerr) {
		t.Errorf("❌ Expected CorrelationError when no searcher is configured, got %v", err)
	}
	t.Log("✅ Missing searcher is a correlation failure")
}
