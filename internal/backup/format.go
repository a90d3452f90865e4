package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Magic identifies wirelogic archives in the header line.
const Magic = "wirelogic-backup"

// FormatVersion is the archive layout written by Write.
const FormatVersion = 1

// MaxDecompressedSize is the maximum allowed size of a decompressed archive payload (200MB).
const MaxDecompressedSize = 200 * 1024 * 1024

// ErrChecksumMismatch is returned when the payload does not match the header checksum.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Header is the plain JSON first line of an archive. It can be read
// without touching the compressed payload that follows it.
type Header struct {
	Magic        string    `json:"magic"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	Checksum     string    `json:"checksum"`
	CircuitCount int       `json:"circuit_count"`
}

// Write stores a as a header line followed by the gzip-compressed JSON payload.
func Write(path string, a *Archive) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(payload); err != nil {
		return fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	header, err := json.Marshal(Header{
		Magic:        Magic,
		Version:      FormatVersion,
		CreatedAt:    a.CreatedAt,
		Checksum:     checksum(compressed.Bytes()),
		CircuitCount: len(a.Circuits),
	})
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}

	w := bufio.NewWriter(f)
	w.Write(header)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing archive: %w", err)
	}
	return f.Close()
}

// Read loads an archive, verifying its checksum before decompressing.
func Read(path string) (*Archive, error) {
	header, payload, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := verify(header, payload); err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	data, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if len(data) > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing archive: %w", err)
	}
	if len(a.Circuits) != header.CircuitCount {
		return nil, fmt.Errorf("archive holds %d circuits, header says %d", len(a.Circuits), header.CircuitCount)
	}
	return &a, nil
}

// ReadHeader reads only the header line of an archive.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return parseHeader(bufio.NewReader(f))
}

// VerifyChecksum checks the payload against the header without decompressing it.
func VerifyChecksum(path string) error {
	header, payload, err := readFile(path)
	if err != nil {
		return err
	}
	return verify(header, payload)
}

func readFile(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header, err := parseHeader(r)
	if err != nil {
		return nil, nil, err
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading payload: %w", err)
	}
	return header, payload, nil
}

func parseHeader(r *bufio.Reader) (*Header, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("not a wirelogic archive: missing header line")
		}
		return nil, fmt.Errorf("reading header line: %w", err)
	}

	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, fmt.Errorf("not a wirelogic archive: %w", err)
	}
	if header.Magic != Magic {
		return nil, fmt.Errorf("not a wirelogic archive")
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported archive version %d", header.Version)
	}
	return &header, nil
}

func verify(header *Header, payload []byte) error {
	if actual := checksum(payload); actual != header.Checksum {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, header.Checksum, actual)
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
