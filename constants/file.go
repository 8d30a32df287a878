package constants

import "strings"

// Regions of a photographed bottle label. The front frames name, price
// and volume; the side frames the sell-by date and batch code.
const (
	RegionFront = "front"
	RegionSide  = "side"
)

// AllowedExtensions holds the image extensions accepted for intake uploads.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MIMEForExt maps an already-normalized extension to the MIME type sent
// to the vision API. Unknown extensions fall back to JPEG, which is what
// phone cameras produce in practice.
func MIMEForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
