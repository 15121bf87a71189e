package content

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fruitsalade/attachments/internal/attachment"
)

const (
	sniffLen       = 3072
	defaultUnknown = "application/octet-stream"
)

// Normalize strips parameters and lowercases a media type.
func Normalize(mediaType string) string {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		return mt
	}
	return strings.ToLower(mediaType)
}

// ByFileName returns the media type registered for the file extension.
func ByFileName(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return ""
	}
	return Normalize(mime.TypeByExtension(strings.ToLower(ext)))
}

// Sniff resolves the media type of an upload. A declared type wins unless it
// is empty or generic; then the file extension is used, then the leading
// bytes of the content. The returned reader yields the full content,
// including any bytes inspected.
func Sniff(r io.Reader, fileName, declared string) (string, io.Reader, error) {
	if mt := Normalize(declared); mt != "" && mt != defaultUnknown {
		return mt, r, nil
	}
	if mt := ByFileName(fileName); mt != "" {
		return mt, r, nil
	}

	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", nil, fmt.Errorf("sniff content: %w: %w", attachment.ErrStorageIO, err)
	}
	return Normalize(mimetype.Detect(head).String()), br, nil
}

// Validate checks a media type and file name against the acceptable media
// type patterns ("image/png", "image/*", "*/*"). No patterns accepts anything.
func Validate(fileName, mediaType string, acceptable []string) error {
	if len(acceptable) == 0 {
		return nil
	}

	mt := Normalize(mediaType)
	if mt == "" {
		mt = ByFileName(fileName)
	}
	if mt == "" || !accepted(mt, acceptable) {
		return fmt.Errorf("%q (%s): %w", fileName, mediaType, attachment.ErrUnsupportedMediaType)
	}

	// The extension must not contradict the allow list either.
	if byName := ByFileName(fileName); byName != "" && !accepted(byName, acceptable) {
		return fmt.Errorf("file name %q: %w", fileName, attachment.ErrUnsupportedMediaType)
	}
	return nil
}

func accepted(mt string, patterns []string) bool {
	for _, p := range patterns {
		p = Normalize(p)
		switch {
		case p == "*/*" || p == mt:
			return true
		case strings.HasSuffix(p, "/*") && strings.HasPrefix(mt, strings.TrimSuffix(p, "*")):
			return true
		}
	}
	return false
}
