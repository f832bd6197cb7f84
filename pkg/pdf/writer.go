// Package pdf writes single-page PDF documents made of filled rectangles,
// raster images and lines of Helvetica text on top of seehuhn.de/go/pdf.
//
// Coordinates are PDF user-space points with the origin at the bottom-left
// corner of the page. Drawing calls are recorded and replayed on every
// WriteTo, so a Writer can be serialized more than once with the same result.
package pdf

import (
	"bytes"
	"fmt"
	"io"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/font/standard"
	"seehuhn.de/go/pdf/font/type1"
)

const producer = "gabarito"

type drawOp func(p *document.Page, helvetica *type1.Instance)

// Writer is an append-only, single-page PDF writer.
type Writer struct {
	size     PageSize
	title    string
	fontSize float64
	usesFont bool
	ops      []drawOp
}

// New creates a writer for one page of the given size.
func New(size PageSize) (*Writer, error) {
	if err := size.Validate(); err != nil {
		return nil, err
	}
	return &Writer{size: size, fontSize: 10}, nil
}

// PaperSize returns the page size in points.
func (w *Writer) PaperSize() PageSize { return w.size }

// SetTitle sets the document information title.
func (w *Writer) SetTitle(title string) { w.title = title }

// SetFillColor sets the color used by Rect and Text.
func (w *Writer) SetFillColor(c Color) {
	w.ops = append(w.ops, func(p *document.Page, _ *type1.Instance) {
		p.SetFillColor(c)
	})
}

// Rect fills the rectangle with the current fill color.
func (w *Writer) Rect(x, y, width, height float64) {
	w.ops = append(w.ops, func(p *document.Page, _ *type1.Instance) {
		p.Rectangle(x, y, width, height)
		p.Fill()
	})
}

// DrawImage paints img stretched to exactly fill the target rectangle.
func (w *Writer) DrawImage(img *Image, x, y, width, height float64) {
	w.ops = append(w.ops, func(p *document.Page, _ *type1.Instance) {
		p.PushGraphicsState()
		p.Transform(matrix.Matrix{width, 0, 0, height, x, y})
		p.DrawXObject(img.xobject())
		p.PopGraphicsState()
	})
}

func (w *Writer) SetFont(size float64) {
	if size > 0 {
		w.fontSize = size
	}
}

// Text draws a single line with its baseline starting at (x, y).
func (w *Writer) Text(x, y float64, text string) {
	w.usesFont = true
	size := w.fontSize
	w.ops = append(w.ops, func(p *document.Page, helvetica *type1.Instance) {
		p.TextSetFont(helvetica, size)
		p.TextBegin()
		p.TextFirstLine(x, y)
		p.TextShow(text)
		p.TextEnd()
	})
}

// ProduceBytes serializes the document into memory.
func (w *Writer) ProduceBytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo serializes the document to out.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	cw := &countingWriter{w: out}
	page, err := document.WriteSinglePage(cw, &pdf.Rectangle{URx: w.size.Width, URy: w.size.Height}, pdf.V1_7, nil)
	if err != nil {
		return cw.n, fmt.Errorf("pdf: start document: %w", err)
	}

	info := page.Out.GetMeta().Info
	info.Title = pdf.TextString(w.title)
	info.Producer = producer

	var helvetica *type1.Instance
	if w.usesFont {
		if helvetica, err = standard.Helvetica.New(); err != nil {
			return cw.n, fmt.Errorf("pdf: load Helvetica: %w", err)
		}
	}
	for _, op := range w.ops {
		op(page, helvetica)
	}

	if err := page.Close(); err != nil {
		return cw.n, fmt.Errorf("pdf: write document: %w", err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
