package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// TextExtractor turns a validated upload on disk into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, path, ext string) (string, error)
}

type FileExtractService struct{}

func NewFileExtractService() *FileExtractService {
	return &FileExtractService{}
}

func (s *FileExtractService) ExtractText(ctx context.Context, path, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch NormalizeExtension(ext) {
	case "txt":
		text, err = s.extractTXT(path)
	case "pdf":
		text, err = s.extractPDF(ctx, path)
	case "docx":
		text, err = s.extractOfficeXML(path, isDOCXPart, docxReplacer)
	case "pptx":
		text, err = s.extractOfficeXML(path, isSlidePart, pptxReplacer)
	default:
		return "", fmt.Errorf("unsupported file type for text extraction: %s", ext)
	}
	if err != nil {
		return "", err
	}

	text = normalizeExtractedText(text)
	if text == "" {
		return "", fmt.Errorf("no extractable text found in %s file", NormalizeExtension(ext))
	}
	return text, nil
}

// extractTXT accepts UTF-8 and falls back to Windows-1254 for legacy files.
func (s *FileExtractService) extractTXT(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))

	if utf8.Valid(b) {
		return string(b), nil
	}

	decoded, err := charmap.Windows1254.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("failed to decode text file: %w", err)
	}
	return string(decoded), nil
}

func (s *FileExtractService) extractPDF(ctx context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	return b.String(), nil
}

var slidePartPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func isDOCXPart(name string) (int, bool) {
	return 0, name == docxManifest
}

func isSlidePart(name string) (int, bool) {
	m := slidePartPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, _ := strconv.Atoi(m[1])
	return n, true
}

var (
	docxReplacer = strings.NewReplacer(
		"</w:p>", "\n",
		"<w:br/>", "\n",
		"<w:br />", "\n",
		"<w:tab/>", "\t",
	)
	pptxReplacer = strings.NewReplacer(
		"</a:p>", "\n",
		"<a:br/>", "\n",
		"<a:br />", "\n",
	)
)

type xmlPart struct {
	order int
	body  []byte
}

// extractOfficeXML reads the matching parts of an OOXML package in order and strips markup.
func (s *FileExtractService) extractOfficeXML(path string, match func(string) (int, bool), breaks *strings.Replacer) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	var parts []xmlPart
	for _, f := range r.File {
		order, ok := match(f.Name)
		if !ok {
			continue
		}
		body, err := readZipFile(f)
		if err != nil {
			return "", err
		}
		parts = append(parts, xmlPart{order: order, body: body})
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts found in package")
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].order < parts[j].order })

	var b strings.Builder
	for _, p := range parts {
		b.WriteString(stripOfficeXML(p.body, breaks))
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

var xmlEntityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
)

func stripOfficeXML(src []byte, breaks *strings.Replacer) string {
	s := breaks.Replace(string(src))
	s = xmlTagPattern.ReplaceAllString(s, "")
	return xmlEntityReplacer.Replace(s)
}

func normalizeExtractedText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	buf := bytes.Buffer{}

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}

const (
	charsPerToken   = 4
	truncationFloor = 0.8
	truncationNote  = "\n\n[Note: text truncated]"
)

// EstimateTokens is a rough 4-characters-per-token estimate.
func EstimateTokens(text string) int {
	return len(text) / charsPerToken
}

// TruncateText caps text at maxTokens*4 bytes. It prefers to cut at the last
// sentence or paragraph end, but only when that keeps at least 80% of the budget.
func TruncateText(text string, maxTokens int) (string, bool) {
	maxChars := maxTokens * charsPerToken
	if maxTokens <= 0 || len(text) <= maxChars {
		return text, false
	}

	end := maxChars
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	cut := text[:end]

	boundary := strings.LastIndex(cut, ".")
	if nl := strings.LastIndex(cut, "\n"); nl > boundary {
		boundary = nl
	}
	if boundary > int(float64(maxChars)*truncationFloor) {
		cut = cut[:boundary+1]
	}

	return cut + truncationNote, true
}
