// Package pdftest reads back documents produced by package pdf so tests can
// assert on page geometry, content operators and embedded image samples.
package pdftest

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"seehuhn.de/go/pdf"
	pdfimage "seehuhn.de/go/pdf/graphics/image"
	"seehuhn.de/go/pdf/pagetree"
)

// Image is an image XObject found in the page resources.
type Image struct {
	Name    string
	Width   int
	Height  int
	Space   string
	Samples []byte
}

// Document is the first page of a parsed PDF file.
type Document struct {
	Pages   int
	Width   float64
	Height  float64
	Title   string
	Content string
	Images  []Image
}

// Parse decodes doc and extracts its first page.
func Parse(doc []byte) (*Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)), nil)
	if err != nil {
		return nil, fmt.Errorf("pdftest: open: %w", err)
	}
	defer r.Close()

	out := &Document{}
	if info := r.GetMeta().Info; info != nil {
		out.Title = string(info.Title)
	}
	if out.Pages, err = pagetree.NumPages(r); err != nil {
		return nil, fmt.Errorf("pdftest: page count: %w", err)
	}

	_, pageDict, err := pagetree.GetPage(r, 0)
	if err != nil {
		return nil, fmt.Errorf("pdftest: first page: %w", err)
	}
	c := pdf.NewCursor(r)

	box, err := c.Rectangle(pageDict["MediaBox"])
	if err != nil || box == nil {
		return nil, fmt.Errorf("pdftest: MediaBox: %v", err)
	}
	out.Width, out.Height = box.URx-box.LLx, box.URy-box.LLy

	content, err := pagetree.ContentStream(r, pageDict)
	if err != nil {
		return nil, fmt.Errorf("pdftest: content stream: %w", err)
	}
	raw, err := io.ReadAll(content)
	content.Close()
	if err != nil {
		return nil, fmt.Errorf("pdftest: content stream: %w", err)
	}
	out.Content = string(raw)

	resources, err := c.Dict(pageDict["Resources"])
	if err != nil {
		return nil, fmt.Errorf("pdftest: resources: %w", err)
	}
	xobjects, err := c.Dict(resources["XObject"])
	if err != nil {
		return nil, fmt.Errorf("pdftest: xobjects: %w", err)
	}
	names := make([]string, 0, len(xobjects))
	for name := range xobjects {
		names = append(names, string(name))
	}
	sort.Strings(names)
	for _, name := range names {
		dict, err := pdfimage.ExtractDict(c, xobjects[pdf.Name(name)], false)
		if err != nil {
			return nil, fmt.Errorf("pdftest: image %s: %w", name, err)
		}
		samples, err := dict.Data.Pixels()
		if err != nil {
			return nil, fmt.Errorf("pdftest: image %s samples: %w", name, err)
		}
		img := Image{Name: name, Width: dict.Width, Height: dict.Height, Samples: samples}
		if dict.ColorSpace != nil {
			img.Space = string(dict.ColorSpace.Family())
		}
		out.Images = append(out.Images, img)
	}
	return out, nil
}
