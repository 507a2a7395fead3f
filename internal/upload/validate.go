// Package upload validates pre-recorded audio files before submission.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// MaxSizeBytes is the submission size ceiling (50 MiB).
const MaxSizeBytes = 50 * 1024 * 1024

// Type and extension checks are OR'd: either one passing admits the file.
var allowedTypes = map[string]struct{}{
	"audio/mpeg": {},
	"audio/wav":  {},
	"audio/ogg":  {},
	"audio/m4a":  {},
	"audio/webm": {},
}

var allowedExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".ogg":  {},
	".m4a":  {},
	".webm": {},
}

// Submission is one audio file offered for slide generation.
type Submission struct {
	Filename     string
	DeclaredType string
	Size         int64
	Open         func() (io.ReadCloser, error)
}

// ValidationError rejects a submission before any network activity.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidation reports whether err is a submission validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Validate applies the type/extension allow-list and the size ceiling.
// It is a cheap synchronous gate: the audio payload is never inspected.
func Validate(sub Submission) error {
	if strings.TrimSpace(sub.Filename) == "" {
		return &ValidationError{Reason: "no file selected"}
	}

	if !typeAllowed(sub.DeclaredType) && !extensionAllowed(sub.Filename) {
		return &ValidationError{
			Reason: "invalid audio file; allowed formats are MP3, WAV, OGG, M4A, and WebM",
		}
	}

	if sub.Size > MaxSizeBytes {
		return &ValidationError{
			Reason: fmt.Sprintf("file too large (%d bytes); the limit is 50 MB", sub.Size),
		}
	}

	return nil
}

// FromFile builds a Submission from a file on disk. The declared type is
// derived from the extension, mirroring what a file picker would report.
func FromFile(path string) (Submission, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Submission{}, fmt.Errorf("stat %q: %w", path, err)
	}
	if info.IsDir() {
		return Submission{}, fmt.Errorf("%q is a directory", path)
	}

	declared := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if idx := strings.Index(declared, ";"); idx >= 0 {
		declared = declared[:idx]
	}

	return Submission{
		Filename:     filepath.Base(path),
		DeclaredType: strings.TrimSpace(declared),
		Size:         info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func typeAllowed(declared string) bool {
	declared = strings.ToLower(strings.TrimSpace(declared))
	_, ok := allowedTypes[declared]
	return ok
}

func extensionAllowed(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := allowedExtensions[ext]
	return ok
}
