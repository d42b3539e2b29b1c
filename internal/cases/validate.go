package cases

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MaxVideoSizeBytes bounds uploaded echo clips. Typical studies are well
// under this; anything larger is almost certainly not a single exam clip.
const MaxVideoSizeBytes = 512 << 20

var allowedVideoExtensions = map[string]struct{}{
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".webm": {},
	".dcm":  {},
}

// FieldErrors maps field names to human-readable validation messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	if len(f) == 0 {
		return "invalid case payload"
	}
	fields := make([]string, 0, len(f))
	for name := range f {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, name := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", name, f[name]))
	}
	return strings.Join(parts, "; ")
}

// ValidateUpload checks the fields of a case about to be created, before any
// storage or network attempt. Video checks apply only when a filename is
// supplied. Returns an ErrValidation-tagged error carrying per-field detail.
func ValidateUpload(c *Case, videoName string, videoSize int64) error {
	fields := FieldErrors{}
	if c == nil {
		return Wrap(ErrValidation, "cases", "validate", "missing payload", nil)
	}
	if strings.TrimSpace(c.PatientName) == "" {
		fields["patientName"] = "required"
	}
	if strings.TrimSpace(c.MedicalID) == "" {
		fields["medicalId"] = "required"
	}
	switch date := strings.TrimSpace(c.ExamDate); {
	case date == "":
		fields["examDate"] = "required"
	default:
		if _, err := time.Parse("2006-01-02", date); err != nil {
			fields["examDate"] = "must be YYYY-MM-DD"
		}
	}
	if c.Age < 0 || c.Age > 130 {
		fields["age"] = "out of range"
	}
	if videoName != "" {
		ext := strings.ToLower(filepath.Ext(videoName))
		if _, ok := allowedVideoExtensions[ext]; !ok {
			fields["video"] = fmt.Sprintf("unsupported file type %q", ext)
		} else if videoSize > MaxVideoSizeBytes {
			fields["video"] = "file too large"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, fields.Error())
}
