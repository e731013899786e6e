package validation

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

const unknownType = "application/octet-stream"

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	// MediaType is the top-level type a file must have, e.g. "image".
	MediaType string
	MaxSize   int64
}

var (
	// ImageConstraints applies to the image attachment of a task
	ImageConstraints = FileConstraints{
		MediaType: "image",
		MaxSize:   10 << 20, // 10MB
	}

	// VideoConstraints applies to the video attachment of a task
	VideoConstraints = FileConstraints{
		MediaType: "video",
		MaxSize:   50 << 20, // 50MB
	}
)

// ValidateFile validates a file upload against one or more constraint sets
// If multiple constraints are provided, file must match at least one (OR logic)
// It returns the content type for the first matching set.
func ValidateFile(header *multipart.FileHeader, constraints ...FileConstraints) (string, error) {
	if len(constraints) == 0 {
		return "", fmt.Errorf("no file constraints provided")
	}

	detected, err := sniff(header)
	if err != nil {
		return "", err
	}

	var lastErr error
	for _, constraint := range constraints {
		contentType, err := validateAgainstConstraint(header, detected, constraint)
		if err == nil {
			return contentType, nil
		}
		lastErr = err
	}

	return "", lastErr
}

// sniff reads the magic number of the upload.
func sniff(header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// http.DetectContentType reads max 512 bytes to determine MIME type
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return http.DetectContentType(buffer[:n]), nil
}

// validateAgainstConstraint accepts any subtype of the wanted media type,
// whether sniffed from the content or declared by the browser. Formats the
// sniffer does not know (HEIC, QuickTime) usually arrive declared. The file
// extension is only consulted when neither says anything.
func validateAgainstConstraint(header *multipart.FileHeader, detected string, constraints FileConstraints) (string, error) {
	if header.Size > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return "", fmt.Errorf("file too large: maximum size is %d MB", maxMB)
	}

	if contentType, ok := mediaType(detected, constraints.MediaType); ok {
		return contentType, nil
	}

	declared := header.Header.Get("Content-Type")
	if contentType, ok := mediaType(declared, constraints.MediaType); ok {
		return contentType, nil
	}

	if detected == unknownType && (declared == "" || declared == unknownType) {
		byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(header.Filename)))
		if contentType, ok := mediaType(byExt, constraints.MediaType); ok {
			return contentType, nil
		}
	}

	return "", fmt.Errorf("invalid file type: want %s/* (detected: %s, declared: %q)", constraints.MediaType, detected, declared)
}

// mediaType returns contentType without parameters if it is a want/* type.
func mediaType(contentType, want string) (string, bool) {
	if contentType == "" {
		return "", false
	}
	parsed, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(parsed, want+"/") {
		return "", false
	}
	return parsed, true
}
