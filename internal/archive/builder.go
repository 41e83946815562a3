// Package archive provides the in-memory ZIP accumulator used by the bulk
// export pipeline.
package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// zipMagic is the local-file-header signature every valid ZIP starts with.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// ErrEmptyArchive is returned by Finalize when no entries were added.
var ErrEmptyArchive = errors.New("archive contains no entries")

// Builder accumulates named byte payloads and produces a single compressed
// ZIP buffer on demand. It is used by exactly one job goroutine and is not
// safe for concurrent use.
type Builder struct {
	buf       bytes.Buffer
	zw        *zip.Writer
	names     map[string]int
	count     int
	finalized bool
}

// NewBuilder returns an empty accumulator using moderate deflate compression.
func NewBuilder() *Builder {
	b := &Builder{names: make(map[string]int)}
	b.zw = zip.NewWriter(&b.buf)
	b.zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
	return b
}

// Len returns the number of entries added so far.
func (b *Builder) Len() int {
	return b.count
}

// Add writes one named payload into the archive. Duplicate names receive a
// numeric suffix so no entry is silently overwritten.
func (b *Builder) Add(name string, data []byte) error {
	if b.finalized {
		return errors.New("archive already finalized")
	}
	if name == "" {
		return errors.New("entry name is required and cannot be empty")
	}

	w, err := b.zw.Create(b.uniqueName(name))
	if err != nil {
		return fmt.Errorf("create archive entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write archive entry %s: %w", name, err)
	}
	b.count++
	return nil
}

// AddErrorLog writes a small text entry recording a failed fetch, so the
// archive always reflects what was attempted.
func (b *Builder) AddErrorLog(recordID, recordName, message string) error {
	name := fmt.Sprintf("error_log_%s_%s.txt", recordID, SanitizeName(recordName))
	body := fmt.Sprintf("record: %s (%s)\nerror: %s\n", recordName, recordID, message)
	return b.Add(name, []byte(body))
}

// Finalize closes the archive and returns the compressed buffer. The buffer
// is validated to be non-empty and to begin with the ZIP magic header.
// Finalize may be called at most once.
func (b *Builder) Finalize() ([]byte, error) {
	if b.finalized {
		return nil, errors.New("archive already finalized")
	}
	b.finalized = true

	if b.count == 0 {
		return nil, ErrEmptyArchive
	}
	if err := b.zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}

	out := b.buf.Bytes()
	if len(out) < len(zipMagic) || !bytes.HasPrefix(out, zipMagic) {
		return nil, errors.New("produced buffer is not a valid zip archive")
	}
	return out, nil
}

// uniqueName disambiguates duplicate entry names with _2, _3, ... suffixes
// inserted before the extension.
func (b *Builder) uniqueName(name string) string {
	b.names[name]++
	n := b.names[name]
	if n == 1 {
		return name
	}

	ext := ""
	base := name
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i:]
	}
	return base + "_" + strconv.Itoa(n) + ext
}

// SanitizeName replaces every non-alphanumeric rune with an underscore so the
// result is safe as an archive entry name on any platform.
func SanitizeName(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

// EntryName builds the archive entry name for a successfully fetched record.
func EntryName(recordID, recordName string) string {
	return fmt.Sprintf("%s_%s.pdf", recordID, SanitizeName(recordName))
}
