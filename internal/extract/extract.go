package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

var (
	// ErrUnsupportedFormat is returned for file types outside PDF, DOCX and plain text.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileTooLarge is returned when the payload exceeds the configured ceiling.
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmptyFile is returned for zero-byte uploads.
	ErrEmptyFile = errors.New("file is empty")
)

// FromBytes extracts plain text from an in-memory payload.
// Supported formats: PDF (github.com/ledongthuc/pdf), DOCX, plain text.
func FromBytes(ctx context.Context, data []byte, mimeType, fileName string, maxBytes int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, len(data), maxBytes)
	}

	switch normalizeMimeType(mimeType, fileName, data) {
	case mimePDF:
		return extractPDF(data)
	case mimeDOCX:
		return extractDOCX(data)
	case mimeText:
		return extractPlainText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, describeType(mimeType, fileName))
	}
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a readable pdf: %v", ErrUnsupportedFormat, err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func extractDOCX(data []byte) (string, error) {
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a readable docx: %v", ErrUnsupportedFormat, err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("%w: document.xml not found", ErrUnsupportedFormat)
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return stripDocxXML(string(raw)), nil
}

func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: not valid utf-8 text", ErrUnsupportedFormat)
	}
	return strings.TrimSpace(string(data)), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if last := buf.Len(); last > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func normalizeMimeType(mimeType, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case mimePDF, mimeDOCX:
		return clean
	case mimeText, "text/markdown":
		return mimeText
	case "application/zip":
		if mapped := mapOOXMLFromZip(data); mapped != "" {
			return mapped
		}
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF
	case ".docx":
		return mimeDOCX
	case ".txt", ".md", ".text":
		return mimeText
	}
	return clean
}

func mapOOXMLFromZip(data []byte) string {
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return mimeDOCX
		}
	}
	return ""
}

func describeType(mimeType, fileName string) string {
	if strings.TrimSpace(mimeType) != "" {
		return mimeType
	}
	if ext := filepath.Ext(fileName); ext != "" {
		return ext
	}
	return "unknown"
}
