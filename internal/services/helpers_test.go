package services_test

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"regexp"
	"strconv"
	"testing"

	"gabarito/pkg/pdf/pdftest"

	"github.com/stretchr/testify/require"
)

var (
	drawImagePattern  = regexp.MustCompile(`q\n([0-9.]+) 0 0 ([0-9.]+) 0 0 cm\n/\w+ Do\nQ`)
	diagnosticPattern = regexp.MustCompile(`BT\n(?:.*\n)*?10 10 Td\n(?:.*\n)*?.* T[jJ]\nET`)
)

func parsePDF(t *testing.T, doc []byte) *pdftest.Document {
	t.Helper()
	parsed, err := pdftest.Parse(doc)
	require.NoError(t, err)
	return parsed
}

func mediaBox(t *testing.T, doc []byte) (float64, float64) {
	t.Helper()
	parsed := parsePDF(t, doc)
	return parsed.Width, parsed.Height
}

func pageContent(t *testing.T, doc []byte) string {
	t.Helper()
	return parsePDF(t, doc).Content
}

// firstImage returns the first image XObject with its decoded samples, or nil.
func firstImage(t *testing.T, doc []byte) *pdftest.Image {
	t.Helper()
	parsed := parsePDF(t, doc)
	if len(parsed.Images) == 0 {
		return nil
	}
	return &parsed.Images[0]
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// pngHeader returns a PNG signature and IHDR chunk declaring width x height
// 8-bit RGBA, with no pixel data behind it.
func pngHeader(width, height uint32) []byte {
	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8], ihdr[9] = 8, 6

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr[:]...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}
