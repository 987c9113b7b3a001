package docsource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"ragchat/internal/domain"
)

// ReadDocument loads one document from disk. PDF files are parsed page
// by page; anything else is treated as plain text. The title is the
// filename stem with spaces replaced by underscores.
func ReadDocument(path string) (domain.Document, error) {
	var contents string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		contents, err = readPDF(path)
	default:
		contents, err = readText(path)
	}
	if err != nil {
		return domain.Document{}, &domain.SourceReadError{Path: path, Err: err}
	}
	return domain.Document{Title: titleFromPath(path), Contents: contents}, nil
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(stem, " ", "_")
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var contents strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages the extractor cannot decode.
			continue
		}
		if contents.Len() > 0 {
			contents.WriteString("\n\n")
		}
		contents.WriteString(strings.TrimSpace(text))
	}
	if contents.Len() == 0 {
		return "", fmt.Errorf("no extractable text")
	}
	return contents.String(), nil
}
