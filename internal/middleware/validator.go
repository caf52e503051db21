package middleware

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Upload validation: bad file type/size is rejected at the boundary and never
// reaches the background analysis path.

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".ppt":  true,
	".pptx": true,
	".txt":  true,
	".md":   true,
	".csv":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ValidateUpload checks filename extension and size against the configured cap.
func ValidateUpload(filename string, size, maxSize int64) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("filename is required")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("file type %q is not allowed", ext)
	}
	if size <= 0 {
		return fmt.Errorf("file is empty")
	}
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("file exceeds maximum size of %d bytes", maxSize)
	}
	return nil
}

var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// ValidateTenantID rejects identifiers that could smuggle path or SQL metacharacters.
func ValidateTenantID(tenant string) error {
	if !tenantIDPattern.MatchString(tenant) {
		return fmt.Errorf("invalid tenant id")
	}
	return nil
}

// SanitizeFilename strips directory components and unsafe characters from an
// uploaded filename before it becomes part of an object key.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_', r == ' ':
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		out = "upload"
	}
	return out
}
