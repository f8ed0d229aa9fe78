package validation

import (
	"path"
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Photo file names: letters, digits, dot, dash, underscore.
var fileNameRe = regexp.MustCompile(`^[A-Za-z0-9._\-]+$`)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true}

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsImageFileName accepts a bare image file name (no directories).
func IsImageFileName(name string) bool {
	if name == "" || len(name) > 200 || !fileNameRe.MatchString(name) {
		return false
	}
	return imageExts[strings.ToLower(path.Ext(name))]
}
