package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	drawingNS        = "http://schemas.openxmlformats.org/drawingml/2006/main"
	presentationNS   = "http://schemas.openxmlformats.org/presentationml/2006/main"
)

var slidePath = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// maxPartSize caps a single decompressed OOXML part.
const maxPartSize = 64 << 20

// extractWordDoc returns paragraph text, one paragraph per line.
func extractWordDoc(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	part, err := readPart(archive, "word/document.xml")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	err = walkXML(part, func(dec *xml.Decoder, start xml.StartElement) error {
		if start.Name.Space != wordprocessingNS || start.Name.Local != "p" {
			return nil
		}
		text, err := collectText(dec, start, wordprocessingNS)
		if err != nil {
			return err
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("parse docx body: %w", err)
	}
	return sb.String(), nil
}

// extractSlides returns, slide by slide, the text of every text-bearing shape followed by a newline.
func extractSlides(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pptx: %w", err)
	}

	type slide struct {
		number int
		file   *zip.File
	}
	var slides []slide
	for _, f := range archive.File {
		m := slidePath.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{number: n, file: f})
	}
	if len(slides) == 0 {
		return "", errors.New("pptx has no slides")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	var sb strings.Builder
	for _, s := range slides {
		part, err := readFile(s.file)
		if err != nil {
			return "", err
		}
		err = walkXML(part, func(dec *xml.Decoder, start xml.StartElement) error {
			if start.Name.Space != presentationNS || start.Name.Local != "sp" {
				return nil
			}
			text, hasBody, err := collectShapeText(dec, start)
			if err != nil || !hasBody {
				return err
			}
			sb.WriteString(text)
			sb.WriteByte('\n')
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("parse slide %d: %w", s.number, err)
		}
	}
	return sb.String(), nil
}

func readPart(archive *zip.Reader, name string) ([]byte, error) {
	for _, f := range archive.File {
		if f.Name == name {
			return readFile(f)
		}
	}
	return nil, fmt.Errorf("missing part %s", name)
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", f.Name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, fmt.Errorf("read part %s: %w", f.Name, err)
	}
	if len(raw) > maxPartSize {
		return nil, fmt.Errorf("part %s exceeds %d bytes", f.Name, maxPartSize)
	}
	return raw, nil
}

// walkXML calls visit for every start element; visit may consume the element's subtree.
func walkXML(part []byte, visit func(*xml.Decoder, xml.StartElement) error) error {
	dec := xml.NewDecoder(bytes.NewReader(part))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if start, ok := tok.(xml.StartElement); ok {
			if err := visit(dec, start); err != nil {
				return err
			}
		}
	}
}

// collectText concatenates the character data of every <t> element in namespace ns until start is closed.
func collectText(dec *xml.Decoder, start xml.StartElement, ns string) (string, error) {
	var sb strings.Builder
	inText := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == ns && t.Name.Local == "t" {
				inText++
			}
			if ns == wordprocessingNS && t.Name.Space == ns && t.Name.Local == "tab" {
				sb.WriteByte('\t')
			}
		case xml.EndElement:
			if t.Name.Space == ns && t.Name.Local == "t" && inText > 0 {
				inText--
			}
			if t.Name == start.Name {
				return sb.String(), nil
			}
		case xml.CharData:
			if inText > 0 {
				sb.Write(t)
			}
		}
	}
}

// collectShapeText returns the paragraphs of a shape's text body joined by newlines.
func collectShapeText(dec *xml.Decoder, start xml.StartElement) (string, bool, error) {
	var paragraphs []string
	hasBody := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", false, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == presentationNS && t.Name.Local == "txBody" {
				hasBody = true
			}
			if t.Name.Space == drawingNS && t.Name.Local == "p" {
				text, err := collectText(dec, t, drawingNS)
				if err != nil {
					return "", false, err
				}
				paragraphs = append(paragraphs, text)
			}
		case xml.EndElement:
			if t.Name == start.Name {
				return strings.Join(paragraphs, "\n"), hasBody, nil
			}
		}
	}
}
