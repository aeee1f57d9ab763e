package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/FileGuard/go-engine/fileguard/scan"
)

// ReferenceSearcher resolves a correlation query to reference URLs. The nvd
// package's Client satisfies this.
type ReferenceSearcher interface {
	SearchReferences(ctx context.Context, query string, limit int) ([]string, error)
}

// referenceLimit caps how many links a correlation lookup attaches.
const referenceLimit = 5

// HTTPAnalyzer talks to the analysis service over HTTP: the file and scan
// options go out as a multipart form, the verdict comes back as JSON.
// The client deliberately carries no timeout; a scan runs as long as the
// provider takes.
type HTTPAnalyzer struct {
	baseURL    string
	httpClient *http.Client
	refs       ReferenceSearcher
}

// NewHTTPAnalyzer creates an analyzer against the given service base URL.
// refs backs LookupReferences and may be nil, in which case every lookup
// reports a correlation failure.
func NewHTTPAnalyzer(baseURL string, refs ReferenceSearcher) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		refs:       refs,
	}
}

// analyzeResponse is the wire shape of the provider's verdict.
type analyzeResponse struct {
	FileName         string   `json:"file_name"`
	ThreatLevel      string   `json:"threat_level"`
	Summary          string   `json:"summary"`
	Vulnerabilities  []string `json:"vulnerabilities"`
	ConfidenceScore  float64  `json:"confidence_score"`
	TechnicalDetails string   `json:"technical_details"`
}

// Analyze implements Analyzer by POSTing the file to the analysis service.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, file scan.FileRef, opts scan.ScanOptions) (*scan.ScanResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, &ProviderError{Op: "analyze", Err: err}
	}
	if _, err := io.Copy(part, file.Reader()); err != nil {
		return nil, &ProviderError{Op: "analyze", Err: err}
	}

	fields := map[string]string{
		"depth":       string(opts.Depth),
		"heuristics":  strconv.FormatBool(opts.EnableHeuristics),
		"signatures":  strconv.FormatBool(opts.EnableSignatures),
		"sensitivity": strconv.FormatFloat(opts.SensitivityThreshold, 'f', -1, 64),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, &ProviderError{Op: "analyze", Err: err}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, &ProviderError{Op: "analyze", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/v1/analyze", &body)
	if err != nil {
		return nil, &ProviderError{Op: "analyze", Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Op: "analyze", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Op: "analyze", Err: fmt.Errorf("analysis service returned status %d", resp.StatusCode)}
	}

	var wire analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &ProviderError{Op: "analyze", Err: fmt.Errorf("malformed verdict: %w", err)}
	}

	level := scan.ThreatLevel(wire.ThreatLevel)
	if !scan.IsValidThreatLevel(wire.ThreatLevel) {
		level = scan.ThreatUnknown
	}

	fileName := wire.FileName
	if fileName == "" {
		fileName = file.Name
	}

	return &scan.ScanResult{
		FileName:         fileName,
		ThreatLevel:      level,
		Summary:          wire.Summary,
		Vulnerabilities:  wire.Vulnerabilities,
		ConfidenceScore:  wire.ConfidenceScore,
		TechnicalDetails: wire.TechnicalDetails,
	}, nil
}

// LookupReferences implements Analyzer via the configured reference searcher.
func (a *HTTPAnalyzer) LookupReferences(ctx context.Context, query string) ([]string, error) {
	if a.refs == nil {
		return nil, &CorrelationError{Query: query, Err: fmt.Errorf("no reference searcher configured")}
	}
	links, err := a.refs.SearchReferences(ctx, query, referenceLimit)
	if err != nil {
		return nil, &CorrelationError{Query: query, Err: err}
	}
	return links, nil
}
