package bundle

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
)

// ReadBundleFile loads an xz-compressed bundle from disk.
func ReadBundleFile(path string) (*Bundle, error) {
	data, err := readCompressed(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalBundle(data)
}

// WriteBundleFile writes an xz-compressed bundle to disk.
func WriteBundleFile(path string, b *Bundle) error {
	data, err := MarshalBundle(b)
	if err != nil {
		return err
	}
	return writeCompressed(path, data)
}

// ReadDumpFile loads an xz-compressed dump from disk.
func ReadDumpFile(path string) (*Dump, error) {
	data, err := readCompressed(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalDump(data)
}

// WriteDumpFile writes an xz-compressed dump to disk.
func WriteDumpFile(path string, d *Dump) error {
	data, err := MarshalDump(d)
	if err != nil {
		return err
	}
	return writeCompressed(path, data)
}

func readCompressed(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: open %s: %w", path, err)
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("bundle: xz reader for %s: %w", path, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("bundle: decompress %s: %w", path, err)
	}
	return data, nil
}

func writeCompressed(path string, data []byte) error {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("bundle: xz writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("bundle: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("bundle: compress: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("bundle: write %s: %w", path, err)
	}
	return nil
}
