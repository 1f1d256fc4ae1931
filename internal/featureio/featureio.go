// Package featureio writes WFS responses to disk untouched and reads GML or
// GeoJSON responses back as a frame.
package featureio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/ogc"
	"github.com/mohammed-shakir/adp-wfs-client/internal/frame"
)

const (
	ExtGML     = ".gml"
	ExtGeoJSON = ".geojson"
)

var ErrUnknownEncoding = errors.New("featureio: body is neither GeoJSON nor GML")

// FileExt is the conventional file extension for a response requested with
// outputFormat.
func FileExt(outputFormat string) string {
	if ogc.IsJSONFormat(outputFormat) {
		return ExtGeoJSON
	}
	return ExtGML
}

// Save copies r to path verbatim, creating parent directories. A partially
// written file is removed on error.
func Save(path string, r io.Reader) (int64, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return n, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}

// Load reads and decodes a saved response.
func Load(path string) (*frame.Frame, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return f, nil
}

// Decode sniffs the encoding of b and decodes it into a frame.
func Decode(b []byte) (*frame.Frame, error) {
	head := bytes.TrimLeft(bytes.TrimPrefix(b, []byte("\xef\xbb\xbf")), " \t\r\n")
	if len(head) == 0 {
		return nil, ErrUnknownEncoding
	}
	switch head[0] {
	case '{':
		return DecodeGeoJSON(head)
	case '<':
		return DecodeGML(head)
	default:
		return nil, ErrUnknownEncoding
	}
}
