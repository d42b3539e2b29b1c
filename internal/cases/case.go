package cases

import (
	"sort"
	"strings"
	"time"
)

// Origin records where a case was first created.
type Origin string

const (
	// OriginLocal marks a case created on this device with no backend presence.
	OriginLocal Origin = "local"
	// OriginRemote marks a case whose identifier was assigned by a backend.
	OriginRemote Origin = "remote"
)

// ParseOrigin converts a stored string into a known Origin.
func ParseOrigin(value string) (Origin, bool) {
	normalized := Origin(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case OriginLocal, OriginRemote:
		return normalized, true
	}
	return "", false
}

// Case is one echocardiography exam record.
type Case struct {
	CaseID            string    `json:"caseId"`
	PatientName       string    `json:"patientName"`
	MedicalID         string    `json:"medicalId"`
	ExamDate          string    `json:"examDate"`
	UpdatedAt         time.Time `json:"updatedAt"`
	VideoURL          string    `json:"videoUrl,omitempty"`
	SegmentedVideoURL string    `json:"segmentedVideoUrl,omitempty"`
	ClinicalNotes     string    `json:"clinicalNotes,omitempty"`
	Age               int       `json:"age,omitempty"`
	Gender            string    `json:"gender,omitempty"`
	Origin            Origin    `json:"origin"`
}

// Clone returns a deep copy so snapshots handed to subscribers cannot alias
// store-internal state.
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Matches reports whether the case matches a case-insensitive substring query
// against the patient name, medical ID, or case ID. An empty query matches.
func (c *Case) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.PatientName), query) ||
		strings.Contains(strings.ToLower(c.MedicalID), query) ||
		strings.Contains(strings.ToLower(c.CaseID), query)
}

// Wall motion status labels produced by analysis.
const (
	WallMotionNormal      = "normal"
	WallMotionHypokinetic = "hypokinetic"
)

// WallRegions lists the anatomical regions reported by the analyzer, in
// presentation order.
var WallRegions = []string{"anterior", "lateral", "inferior", "septal"}

// Result is the analysis output for a single case.
type Result struct {
	CaseID            string            `json:"caseId"`
	EF                float64           `json:"ef"`
	EDV               float64           `json:"edv"`
	ESV               float64           `json:"esv"`
	WallMotion        map[string]string `json:"wallMotion,omitempty"`
	Confidence        float64           `json:"confidence"`
	SegmentedVideoURL string            `json:"segmentedVideoUrl,omitempty"`
}

// EF classification labels.
const (
	EFNormal   = "Normal"
	EFMild     = "Mild Dysfunction"
	EFModerate = "Moderate Dysfunction"
	EFSevere   = "Severe Dysfunction"
)

// EFStatus maps an ejection fraction to its clinical classification band.
// Boundaries are inclusive at 50, 40, and 30.
func EFStatus(ef float64) string {
	switch {
	case ef >= 50:
		return EFNormal
	case ef >= 40:
		return EFMild
	case ef >= 30:
		return EFModerate
	default:
		return EFSevere
	}
}

// Patient is the grouped view of cases sharing a medical ID. MedicalID is a
// grouping key only; uniqueness per patient is not enforced.
type Patient struct {
	MedicalID   string `json:"medicalId"`
	PatientName string `json:"patientName"`
	DOB         string `json:"dob,omitempty"`
	CaseCount   int    `json:"caseCount,omitempty"`
}

// SortByUpdatedDesc orders cases most-recently-updated first, in place.
// Ties keep their existing relative order so store insertion order survives.
func SortByUpdatedDesc(list []*Case) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
}
