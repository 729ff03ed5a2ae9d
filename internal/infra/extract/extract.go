package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"edumind-service/internal/domain"
	"edumind-service/internal/logging"
	pdf "github.com/ledongthuc/pdf"
)

// MaxPDFPages caps how many leading pages of a PDF are read.
const MaxPDFPages = 50

// Extractor pulls plain text out of uploaded study material.
type Extractor struct {
	log      *logging.Logger
	maxPages int
}

func New(log *logging.Logger) *Extractor {
	if log == nil {
		log = logging.Nop()
	}
	return &Extractor{log: log, maxPages: MaxPDFPages}
}

// Extract dispatches on the file extension. Only .docx and .pdf are accepted.
func (e *Extractor) Extract(filename string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		text, err = extractDOCX(data)
	case ".pdf":
		text, err = e.extractPDF(data)
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFile, filename)
	}
	if err != nil {
		e.log.Error("text extraction failed", "file", filename, "error", err)
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrNoText
	}
	e.log.Info("extracted text", "file", filename, "chars", len(text))
	return text, nil
}

// extractDOCX returns the text of word/document.xml, one line per paragraph.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx open: %w", err)
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx: word/document.xml missing")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("docx read: %w", err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		out  []string
		para strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx xml: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				var v string
				if err := dec.DecodeElement(&v, &el); err == nil {
					para.WriteString(v)
				}
			case "tab":
				para.WriteString("\t")
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				out = append(out, para.String())
				para.Reset()
			}
		}
	}
	if para.Len() > 0 {
		out = append(out, para.String())
	}
	return strings.Join(out, "\n"), nil
}

func (e *Extractor) extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	total := r.NumPage()
	pages := total
	if pages > e.maxPages {
		e.log.Warn("pdf exceeds page limit, truncating", "pages", total, "limit", e.maxPages)
		pages = e.maxPages
	}
	var out []string
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		if strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
	}
	e.log.Info("processed pdf", "pages", pages)
	return strings.Join(out, "\n"), nil
}
