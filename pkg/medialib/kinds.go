package medialib

import (
	"path"
	"strings"
)

// Per-kind lookup tables, constructed once. Each concern that varies by kind
// (upload directory, gateway folder, gateway resource type, placeholder
// thumbnail) has exactly one table keyed by the ContentKind enum.

var kindDirs = map[ContentKind]string{
	KindPDF:          "pdfs",
	KindImage:        "images",
	KindVideo:        "videos",
	KindPresentation: "presentations",
}

// ResourceType is the remote gateway's storage class for a kind.
type ResourceType string

const (
	ResourceImage ResourceType = "image"
	ResourceVideo ResourceType = "video"
	ResourceRaw   ResourceType = "raw"
)

var kindResourceTypes = map[ContentKind]ResourceType{
	KindPDF:          ResourceRaw,
	KindImage:        ResourceImage,
	KindVideo:        ResourceVideo,
	KindPresentation: ResourceRaw,
}

// Raw uploads cannot produce derived thumbnails; those kinds fall back to a
// static placeholder icon.
var kindPlaceholderThumbs = map[ContentKind]string{
	KindPDF:          "https://static.edulib.dev/placeholders/pdf-icon.svg",
	KindPresentation: "https://static.edulib.dev/placeholders/ppt-icon.svg",
}

type extInfo struct {
	kind ContentKind
	mime string
}

var extTable = map[string]extInfo{
	".pdf": {KindPDF, "application/pdf"},

	".jpg":  {KindImage, "image/jpeg"},
	".jpeg": {KindImage, "image/jpeg"},
	".png":  {KindImage, "image/png"},
	".gif":  {KindImage, "image/gif"},
	".bmp":  {KindImage, "image/bmp"},
	".webp": {KindImage, "image/webp"},
	".svg":  {KindImage, "image/svg+xml"},

	".mp4":  {KindVideo, "video/mp4"},
	".avi":  {KindVideo, "video/x-msvideo"},
	".mov":  {KindVideo, "video/quicktime"},
	".wmv":  {KindVideo, "video/x-ms-wmv"},
	".flv":  {KindVideo, "video/x-flv"},
	".webm": {KindVideo, "video/webm"},
	".mkv":  {KindVideo, "video/x-matroska"},

	".ppt":  {KindPresentation, "application/vnd.ms-powerpoint"},
	".pptx": {KindPresentation, "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	".odp":  {KindPresentation, "application/vnd.oasis.opendocument.presentation"},
}

// KindDir returns the /uploads directory segment for a kind.
func KindDir(k ContentKind) string {
	if d, ok := kindDirs[k]; ok {
		return d
	}
	return "other"
}

// KindResourceType returns the gateway resource type for a kind.
func KindResourceType(k ContentKind) ResourceType {
	if rt, ok := kindResourceTypes[k]; ok {
		return rt
	}
	return ResourceRaw
}

// PlaceholderThumbnail returns the static placeholder thumbnail URL for kinds
// that cannot have a derived thumbnail, or "" when the kind produces one.
func PlaceholderThumbnail(k ContentKind) string {
	return kindPlaceholderThumbs[k]
}

// KindForFilename infers the content kind from a filename's extension.
func KindForFilename(name string) (ContentKind, bool) {
	info, ok := extTable[strings.ToLower(path.Ext(name))]
	if !ok {
		return "", false
	}
	return info.kind, true
}

// MimeForFilename returns the canonical MIME type for a filename's extension,
// falling back to application/octet-stream.
func MimeForFilename(name string) string {
	if info, ok := extTable[strings.ToLower(path.Ext(name))]; ok {
		return info.mime
	}
	return "application/octet-stream"
}

// SupportedExtensions returns the upload allow-list, kind to extensions.
func SupportedExtensions() map[ContentKind][]string {
	out := make(map[ContentKind][]string, len(kindDirs))
	for ext, info := range extTable {
		out[info.kind] = append(out[info.kind], ext)
	}
	return out
}
