package constants

import "strings"

// Document formats understood by the rasterizer.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// FileTypes holds the document formats accepted for extraction.
var FileTypes = []string{PDF, IMAGE}

// AllowedExtensions holds the default allowed file extensions for proposal ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
	"heif": {},
}

// MaxDocumentBytes caps how much of a single document is read into memory.
const MaxDocumentBytes = 50 << 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat returns PDF or IMAGE for a known extension, "" otherwise.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "heic", "heif", "heics", "heifs":
		return IMAGE
	default:
		return ""
	}
}

// IsHEICExt reports whether ext is one of the HEIC/HEIF variants.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif", "heics", "heifs":
		return true
	}
	return false
}

// IsAllowedExt reports whether ext is in AllowedExtensions.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MimeForExt returns the MIME type for an image/document extension.
func MimeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return "application/pdf"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "heic", "heics":
		return "image/heic"
	case "heif", "heifs":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
