package editor

import (
	"os"
	"strings"

	"latex-refiner/internal/layout"
	"latex-refiner/internal/types"
)

// LineFormat records how a file terminated its lines.
type LineFormat struct {
	CRLF         bool
	FinalNewline bool
}

// SplitLines breaks text into a Document. CRLF files lose their '\r' here
// and get it back from JoinLines.
func SplitLines(text string) (layout.Document, LineFormat) {
	var format LineFormat
	if text == "" {
		return layout.Document{}, format
	}

	if strings.HasSuffix(text, "\n") {
		format.FinalNewline = true
		text = text[:len(text)-1]
	}
	lines := strings.Split(text, "\n")

	terminated := lines
	if !format.FinalNewline {
		terminated = lines[:len(lines)-1]
	}
	format.CRLF = len(terminated) > 0
	for _, l := range terminated {
		if !strings.HasSuffix(l, "\r") {
			format.CRLF = false
			break
		}
	}
	if format.CRLF {
		for i := range terminated {
			lines[i] = strings.TrimSuffix(lines[i], "\r")
		}
	}
	return layout.Document(lines), format
}

// JoinLines is the inverse of SplitLines.
func JoinLines(doc layout.Document, format LineFormat) string {
	if len(doc) == 0 {
		return ""
	}
	sep := "\n"
	if format.CRLF {
		sep = "\r\n"
	}
	out := strings.Join(doc, sep)
	if format.FinalNewline {
		out += sep
	}
	return out
}

// Source is a chapter file loaded for editing.
type Source struct {
	Path     string
	Document layout.Document
	Encoding Encoding
	Format   LineFormat
	Perm     os.FileMode
}

// ReadSource reads, decodes and splits a chapter file.
func ReadSource(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrFileNotFound, "cannot open chapter", path, err)
	}
	if info.IsDir() {
		return nil, types.NewAppErrorWithDetails(types.ErrInvalidInput, "path is a directory", path, nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrFileNotFound, "failed to read file", path, err)
	}
	text, enc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	doc, format := SplitLines(text)
	return &Source{
		Path:     path,
		Document: doc,
		Encoding: enc,
		Format:   format,
		Perm:     info.Mode().Perm(),
	}, nil
}

// Render turns doc back into bytes using the source's encoding and line format.
func (s *Source) Render(doc layout.Document) ([]byte, error) {
	return Encode(JoinLines(doc, s.Format), s.Encoding)
}

// Save atomically writes doc back to the source path.
func (s *Source) Save(doc layout.Document) error {
	data, err := s.Render(doc)
	if err != nil {
		return err
	}
	return WriteAtomic(s.Path, data, s.Perm)
}
