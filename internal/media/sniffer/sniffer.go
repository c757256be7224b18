package sniffer

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"path"
	"strings"
)

const DefaultContentType = "application/octet-stream"

const headSize = 512

var magicTypes = []struct {
	magic []byte
	mime  string
}{
	{[]byte{0xff, 0xd8, 0xff}, "image/jpeg"},
	{[]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, "image/png"},
	{[]byte("GIF87a"), "image/gif"},
	{[]byte("GIF89a"), "image/gif"},
	{[]byte("%PDF-"), "application/pdf"},
	{[]byte{'P', 'K', 0x03, 0x04}, "application/zip"},
	{[]byte{0x1f, 0x8b}, "application/gzip"},
}

// ByName returns the content type implied by the file name's extension.
func ByName(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return DefaultContentType
	}
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}
	return DefaultContentType
}

// Detect reads up to 512 bytes from r and returns the content type along with
// a reader that replays the consumed head followed by the rest of r.
func Detect(name string, r io.Reader) (string, io.Reader, error) {
	head := make([]byte, headSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]

	return DetectHead(name, head), io.MultiReader(bytes.NewReader(head), r), nil
}

// DetectHead prefers the extension and falls back to magic numbers.
func DetectHead(name string, head []byte) string {
	if contentType := ByName(name); contentType != DefaultContentType {
		return contentType
	}
	for _, m := range magicTypes {
		if bytes.HasPrefix(head, m.magic) {
			return m.mime
		}
	}
	if isWEBP(head) {
		return "image/webp"
	}
	return DefaultContentType
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}
