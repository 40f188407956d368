package parser

import "bytes"

// FileType identifies a track format
type FileType string

const (
	FileTypeFIT     FileType = "fit"
	FileTypeGPX     FileType = "gpx"
	FileTypeJSONL   FileType = "jsonl"
	FileTypeUnknown FileType = "unknown"
)

// DetectFileTypeFromData sniffs the leading bytes of a file
func DetectFileTypeFromData(data []byte) FileType {
	// FIT header: size byte, then ".FIT" at offset 8
	if len(data) >= 12 && bytes.Equal(data[8:12], []byte(".FIT")) {
		return FileTypeFIT
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.TrimSpace(head)

	if bytes.HasPrefix(head, []byte("<?xml")) || bytes.HasPrefix(head, []byte("<gpx")) {
		if bytes.Contains(head, []byte("<gpx")) {
			return FileTypeGPX
		}
	}

	if bytes.HasPrefix(head, []byte("{")) {
		return FileTypeJSONL
	}

	return FileTypeUnknown
}
