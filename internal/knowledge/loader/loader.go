// Package loader turns uploaded corpus files into index documents.
package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"sdr_assistant_backend/internal/knowledge/index"
	"sdr_assistant_backend/platform/phone"

	"github.com/ledongthuc/pdf"
)

// Format is a supported corpus file type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
	FormatTXT Format = "txt"
)

var (
	// ErrUnsupportedFormat is returned for files other than CSV, PDF and TXT.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyCorpus is returned when a file yields no text.
	ErrEmptyCorpus = errors.New("file contains no text")
)

// Options tune how a file is read.
type Options struct {
	// MetadataColumns selects CSV columns attached to each row as metadata.
	// They are used only when every named column exists.
	MetadataColumns []string
	// PhoneRegion interprets national phone numbers in phone-like columns.
	PhoneRegion string
}

// Result is the outcome of reading one file.
type Result struct {
	Format    Format
	Documents []index.Document
	Warnings  []string
}

// DetectFormat maps a file name to its Format.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".pdf":
		return FormatPDF, nil
	case ".txt", ".text", ".md":
		return FormatTXT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// Load reads data according to the extension of filename.
func Load(filename string, data []byte, opts Options) (Result, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch format {
	case FormatCSV:
		res, err = loadCSV(data, opts)
	case FormatPDF:
		res, err = loadPDF(data)
	case FormatTXT:
		res, err = loadText(data)
	}
	if err != nil {
		return Result{}, err
	}
	res.Format = format
	if len(res.Documents) == 0 {
		return Result{}, ErrEmptyCorpus
	}
	return res, nil
}

// loadCSV makes one document per row: all cells joined with " | ".
func loadCSV(data []byte, opts Options) (Result, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, ErrEmptyCorpus
	}
	if err != nil {
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var res Result
	metaIdx, missing := columnIndexes(header, opts.MetadataColumns)
	if len(missing) > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("metadata columns not found, metadata skipped: %s", strings.Join(missing, ", ")))
		metaIdx = nil
	}
	phoneCols := make(map[int]bool)
	for i, name := range header {
		if phone.IsPhoneField(name) {
			phoneCols[i] = true
		}
	}

	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Result{}, fmt.Errorf("read csv line %d: %w", line, err)
		}

		cells := make([]string, len(header))
		blank := true
		for i := range header {
			if i < len(record) {
				cells[i] = strings.TrimSpace(record[i])
			}
			if phoneCols[i] {
				cells[i] = phone.NormalizeE164(cells[i], opts.PhoneRegion)
			}
			if cells[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}

		doc := index.Document{Text: strings.Join(cells, " | ")}
		if len(metaIdx) > 0 {
			doc.Metadata = make(map[string]string, len(metaIdx))
			for name, i := range metaIdx {
				doc.Metadata[name] = cells[i]
			}
		}
		res.Documents = append(res.Documents, doc)
	}
	return res, nil
}

func columnIndexes(header, wanted []string) (map[string]int, []string) {
	if len(wanted) == 0 {
		return nil, nil
	}
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[strings.ToLower(name)] = i
	}
	out := make(map[string]int, len(wanted))
	var missing []string
	for _, w := range wanted {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		i, ok := positions[strings.ToLower(w)]
		if !ok {
			missing = append(missing, w)
			continue
		}
		out[header[i]] = i
	}
	return out, missing
}

func loadPDF(data []byte) (Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return Result{}, fmt.Errorf("extract pdf text: %w", err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return Result{}, fmt.Errorf("read pdf text: %w", err)
	}
	return textResult(string(text)), nil
}

func loadText(data []byte) (Result, error) {
	if !utf8.Valid(data) {
		return Result{}, fmt.Errorf("text file is not valid UTF-8")
	}
	return textResult(string(data)), nil
}

func textResult(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}
	}
	return Result{Documents: []index.Document{{Text: text}}}
}
