// Package nvd is a client for the NVD CVE API 2.0, used for the correlation
// lookup that enriches non-safe verdicts with external reference links.
package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
)

// DefaultBaseURL is the public NVD CVE API 2.0 endpoint.
const DefaultBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

// =============== Types ===============

// Top-level response
type NVDResponse struct {
	ResultsPerPage  int          `json:"resultsPerPage"`
	StartIndex      int          `json:"startIndex"`
	TotalResults    int          `json:"totalResults"`
	Format          string       `json:"format"`
	Version         string       `json:"version"`
	Timestamp       string       `json:"timestamp"`
	Vulnerabilities []DefCVEItem `json:"vulnerabilities"`
}

// An item in the "vulnerabilities" array
type DefCVEItem struct {
	CVE CveItem `json:"cve"`
}

// CVE object per NVD schema
type CveItem struct {
	ID               string       `json:"id"`
	SourceIdentifier string       `json:"sourceIdentifier"`
	VulnStatus       string       `json:"vulnStatus"`
	Published        string       `json:"published"`
	LastModified     string       `json:"lastModified"`
	Descriptions     []LangString `json:"descriptions"`
	References       []Reference  `json:"references"`
	Metrics          Metrics      `json:"metrics,omitempty"`
}

// "descriptions" array items
type LangString struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

// "references" array items
type Reference struct {
	URL    string   `json:"url"`
	Source string   `json:"source,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// Container for CVSS metrics; only v3.1 is consumed here.
type Metrics struct {
	CvssMetricV31 []CvssV31 `json:"cvssMetricV31,omitempty"`
}

// CVSS v3.1
type CvssV31 struct {
	Source              string      `json:"source"`
	Type                string      `json:"type"`
	CvssData            CvssDataV31 `json:"cvssData"`
	ExploitabilityScore float64     `json:"exploitabilityScore,omitempty"`
	ImpactScore         float64     `json:"impactScore,omitempty"`
}

// CVSS v3.1 data
type CvssDataV31 struct {
	Version      string  `json:"version"`
	VectorString string  `json:"vectorString"`
	BaseScore    float64 `json:"baseScore"`
	BaseSeverity string  `json:"baseSeverity"`
}

// cveIDPattern matches queries that are already a CVE identifier, e.g.
// CVE-2019-1010218.
var cveIDPattern = regexp.MustCompile(`(?i)^CVE-\d{4}-\d{4,}$`)

// Client queries the NVD REST API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client against the public NVD endpoint.
func NewClient() *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{},
	}
}

// GetCVE fetches a single CVE record by id. An unknown id yields a zero
// CveItem and no error, matching the API's empty result set.
func (c *Client) GetCVE(ctx context.Context, vid string) (CveItem, error) {
	resp, err := c.query(ctx, url.Values{"cveId": {vid}})
	if err != nil {
		return CveItem{}, err
	}
	if len(resp.Vulnerabilities) == 0 {
		return CveItem{}, nil
	}
	return resp.Vulnerabilities[0].CVE, nil
}

// SearchReferences resolves a free-form correlation query to reference URLs.
// A query that is itself a CVE id is looked up directly; anything else goes
// through keyword search. Results are de-duplicated and capped at limit.
func (c *Client) SearchReferences(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	if cveIDPattern.MatchString(query) {
		params.Set("cveId", query)
	} else {
		params.Set("keywordSearch", query)
		params.Set("resultsPerPage", "5")
	}

	resp, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var links []string
	for _, item := range resp.Vulnerabilities {
		for _, ref := range item.CVE.References {
			if ref.URL == "" || seen[ref.URL] {
				continue
			}
			seen[ref.URL] = true
			links = append(links, ref.URL)
			if len(links) >= limit {
				return links, nil
			}
		}
	}
	return links, nil
}

func (c *Client) query(ctx context.Context, params url.Values) (*NVDResponse, error) {
	reqURL := c.BaseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d from NVD API", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var nvdResp NVDResponse
	if err := json.Unmarshal(bodyBytes, &nvdResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return &nvdResp, nil
}
