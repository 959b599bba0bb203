package raster

import (
	"bytes"
)

// Format is the sniffed container type of an input document.
type Format string

const (
	FormatUnknown Format = ""
	FormatPDF     Format = "pdf"
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatHEIC    Format = "heic"
)

var (
	magicPDF  = []byte("%PDF")
	magicPNG  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	magicJPEG = []byte{0xff, 0xd8, 0xff}
)

// heifBrands are the ISO-BMFF major brands used by HEIC/HEIF encoders.
var heifBrands = []string{"heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1"}

// DetectFormat sniffs magic bytes. A leading byte-order mark or whitespace
// before %PDF is tolerated.
func DetectFormat(doc []byte) Format {
	switch {
	case bytes.HasPrefix(doc, magicPNG):
		return FormatPNG
	case bytes.HasPrefix(doc, magicJPEG):
		return FormatJPEG
	case isHEIF(doc):
		return FormatHEIC
	}
	head := doc
	if len(head) > 1024 {
		head = head[:1024]
	}
	if bytes.Contains(head, magicPDF) {
		return FormatPDF
	}
	return FormatUnknown
}

func isHEIF(doc []byte) bool {
	if len(doc) < 12 || string(doc[4:8]) != "ftyp" {
		return false
	}
	brand := string(doc[8:12])
	for _, b := range heifBrands {
		if brand == b {
			return true
		}
	}
	return false
}

// MIMEType returns the image MIME type for raster formats.
func (f Format) MIMEType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatPDF:
		return "application/pdf"
	case FormatHEIC:
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}
