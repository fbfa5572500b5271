package security

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// DocumentValidator screens rule documents before the scanner parses
// them. The pool accepts arbitrary directories, so a scan has to
// survive oversized files and binary payloads carrying a markdown name.

type DocumentValidator struct {
	MaxDocumentSize int64 // Documents larger than this are rejected before reading
	SniffSize       int   // Leading bytes inspected for binary content
}

func NewDocumentValidator(maxSizeKB int64) *DocumentValidator {
	return &DocumentValidator{
		MaxDocumentSize: maxSizeKB * 1024,
		SniffSize:       8 * 1024, // 8KB sniff window
	}
}

// CheckSize stats path and rejects documents over the size cap. Runs
// before the file is read so an oversized file never reaches memory.
func (dv *DocumentValidator) CheckSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Size() > dv.MaxDocumentSize {
		return fmt.Errorf("document is %d bytes, limit is %d", info.Size(), dv.MaxDocumentSize)
	}

	return nil
}

// CheckContent rejects content that is not text: known binary formats
// renamed to .md, or data with a control-character density no text
// document has.
func (dv *DocumentValidator) CheckContent(data []byte) error {
	header := data
	if len(header) > dv.SniffSize {
		header = header[:dv.SniffSize]
	}

	if format := knownBinaryFormat(header); format != "" {
		return fmt.Errorf("content is %s data, not a text document", format)
	}

	if isBinaryData(header) {
		return errors.New("content is binary, not a text document")
	}

	return nil
}

// knownBinaryFormat matches the header against common binary file
// signatures. Valid UTF-8 text never starts with any of these.
func knownBinaryFormat(header []byte) string {
	signatures := []struct {
		name  string
		magic []byte
	}{
		{"PNG", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
		{"JPEG", []byte{0xFF, 0xD8, 0xFF}},
		{"GIF", []byte("GIF87a")},
		{"GIF", []byte("GIF89a")},
		{"PDF", []byte("%PDF-")},
		{"ZIP", []byte{0x50, 0x4B, 0x03, 0x04}},
		{"gzip", []byte{0x1F, 0x8B}},
		{"ELF executable", []byte{0x7F, 0x45, 0x4C, 0x46}},
	}

	for _, sig := range signatures {
		if bytes.HasPrefix(header, sig.magic) {
			return sig.name
		}
	}

	return ""
}

// isBinaryData checks if the bytes look like binary content. Control
// characters outside tab/LF/CR over a 30% share mean binary; CJK text
// stays well below because UTF-8 continuation bytes are not counted.
func isBinaryData(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	nonPrintable := 0
	for _, b := range data {
		// Control characters (0-31 except tab, LF, CR) and DEL (127)
		if b < 9 || (b > 13 && b < 32) || b == 127 {
			nonPrintable++
		}
	}

	ratio := float64(nonPrintable) / float64(len(data))
	return ratio > 0.3
}
