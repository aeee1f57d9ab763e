package scan

import (
	"bytes"
	"io"
)

// ScanStatus is the lifecycle state of a submitted file.
// Transitions: idle → scanning → analyzing → completed, with
// scanning|analyzing → error on failure. completed and error are terminal.
type ScanStatus string

const (
	StatusIdle      ScanStatus = "idle"
	StatusScanning  ScanStatus = "scanning"
	StatusAnalyzing ScanStatus = "analyzing"
	StatusCompleted ScanStatus = "completed"
	StatusError     ScanStatus = "error"
)

// Terminal reports whether no further transitions occur for this status.
func (s ScanStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Active reports whether the item currently occupies the single scan slot.
func (s ScanStatus) Active() bool {
	return s == StatusScanning || s == StatusAnalyzing
}

// ThreatLevel is the verdict classification returned by the analysis provider.
type ThreatLevel string

const (
	ThreatSafe       ThreatLevel = "safe"
	ThreatSuspicious ThreatLevel = "suspicious"
	ThreatMalicious  ThreatLevel = "malicious"
	ThreatUnknown    ThreatLevel = "unknown"
)

// IsValidThreatLevel checks if a threat level value is one of the known levels.
func IsValidThreatLevel(level string) bool {
	switch ThreatLevel(level) {
	case ThreatSafe, ThreatSuspicious, ThreatMalicious, ThreatUnknown:
		return true
	default:
		return false
	}
}

// FileRef is an opaque handle to a submitted file: name, size, content type
// and the raw bytes. It is owned exclusively by its ScanItem until the scan
// reaches a terminal state.
type FileRef struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`

	data []byte
}

// NewFileRef builds a FileRef from an uploaded file's metadata and content.
func NewFileRef(name, contentType string, data []byte) FileRef {
	return FileRef{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		data:        data,
	}
}

// Reader returns a fresh reader over the file content.
func (f FileRef) Reader() io.Reader {
	return bytes.NewReader(f.data)
}

// Bytes returns the raw file content.
func (f FileRef) Bytes() []byte {
	return f.data
}

// ScanResult is the terminal verdict for one file.
type ScanResult struct {
	FileName         string      `json:"file_name"`
	ThreatLevel      ThreatLevel `json:"threat_level"`
	Summary          string      `json:"summary"`
	Vulnerabilities  []string    `json:"vulnerabilities"`
	CVEMatches       []string    `json:"cve_matches,omitempty"`
	ConfidenceScore  float64     `json:"confidence_score"`
	TechnicalDetails string      `json:"technical_details"`
}

// ScanItem is one submitted file under queue management.
// Progress is meaningful only while the item is scanning or analyzing; ETA is
// the remaining-seconds estimate and is nil until a scan starts.
type ScanItem struct {
	ID       string      `json:"id"`
	File     FileRef     `json:"file"`
	Status   ScanStatus  `json:"status"`
	Progress float64     `json:"progress"`
	ETA      *float64    `json:"eta,omitempty"`
	Result   *ScanResult `json:"result,omitempty"`
}

// ItemPatch names the ScanItem fields to replace in an update. Nil fields are
// left untouched.
type ItemPatch struct {
	Status   *ScanStatus
	Progress *float64
	ETA      *float64
	Result   *ScanResult
}
