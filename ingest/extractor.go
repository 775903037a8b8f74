package ingest

import (
	"bytes"
	"html"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-readability"
	tandem "github.com/tandem-ai/tandem"
)

// Extractor converts raw file content to plain text.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// ContentType identifies the format of uploaded content.
type ContentType string

const (
	TypePlainText ContentType = "text/plain"
	TypeMarkdown  ContentType = "text/markdown"
	TypeHTML      ContentType = "text/html"
	TypePDF       ContentType = "application/pdf"
)

// contentTypeFromExtension maps a file extension to a content type.
// Unknown extensions are not mapped; the caller rejects them.
func contentTypeFromExtension(ext string) (ContentType, bool) {
	switch strings.ToLower(ext) {
	case "txt", "text":
		return TypePlainText, true
	case "md", "markdown":
		return TypeMarkdown, true
	case "html", "htm":
		return TypeHTML, true
	case "pdf":
		return TypePDF, true
	}
	return "", false
}

// Extract converts file content to plain text based on the filename
// extension. Unsupported types are a validation failure, surfaced to the
// caller immediately.
func Extract(content []byte, filename string) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	ct, ok := contentTypeFromExtension(ext)
	if !ok {
		return "", &tandem.ValidationError{Msg: "unsupported file type: ." + ext}
	}
	return extractors[ct].Extract(content)
}

var extractors = map[ContentType]Extractor{
	TypePlainText: PlainTextExtractor{},
	TypeMarkdown:  MarkdownExtractor{},
	TypeHTML:      HTMLExtractor{},
	TypePDF:       PDFExtractor{},
}

// PlainTextExtractor returns content as-is.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(content []byte) (string, error) {
	return string(content), nil
}

// MarkdownExtractor strips common markdown formatting so headings and
// emphasis markers do not pollute embeddings.
type MarkdownExtractor struct{}

func (MarkdownExtractor) Extract(content []byte) (string, error) {
	var out strings.Builder
	inFence := false

	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}

		trimmed = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, ">"))
		for _, marker := range []string{"- ", "* ", "+ "} {
			if strings.HasPrefix(trimmed, marker) {
				trimmed = trimmed[len(marker):]
				break
			}
		}
		trimmed = strings.NewReplacer("***", "", "**", "", "~~", "", "`", "").Replace(trimmed)
		trimmed = stripLinks(trimmed)

		out.WriteString(trimmed)
		out.WriteByte('\n')
	}

	return strings.TrimSpace(out.String()), nil
}

// HTMLExtractor extracts readable text from an HTML page. Readability
// pulls out the main content; pages it cannot make sense of fall back
// to a plain tag stripper.
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(content []byte) (string, error) {
	pageURL, _ := url.Parse("file:///upload")
	article, err := readability.FromReader(bytes.NewReader(content), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return strings.TrimSpace(article.TextContent), nil
	}
	return stripTags(string(content)), nil
}

// stripTags drops tags and script/style bodies, keeping line breaks at
// block boundaries.
func stripTags(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	i := 0
	for i < len(s) {
		if s[i] != '<' {
			out.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			break
		}
		raw := strings.TrimSpace(s[i+1 : i+end])
		closing := strings.HasPrefix(raw, "/")
		tag := strings.ToLower(strings.TrimLeft(raw, "/ "))
		if cut := strings.IndexAny(tag, " \t\n/"); cut >= 0 {
			tag = tag[:cut]
		}
		i += end + 1

		if !closing && (tag == "script" || tag == "style") {
			if close := strings.Index(strings.ToLower(s[i:]), "</"+tag); close >= 0 {
				i += close
			} else {
				break
			}
			continue
		}
		if blockTags[tag] {
			out.WriteByte('\n')
		}
	}

	var lines []string
	for _, line := range strings.Split(html.UnescapeString(out.String()), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "table": true, "tr": true,
	"blockquote": true, "pre": true, "section": true, "article": true,
}

// stripLinks rewrites [text](url) as text.
func stripLinks(s string) string {
	var out strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '[' {
			if close := strings.IndexByte(s[i:], ']'); close > 0 {
				closeBracket := i + close
				if closeBracket+1 < len(s) && s[closeBracket+1] == '(' {
					if paren := strings.IndexByte(s[closeBracket+1:], ')'); paren > 0 {
						out.WriteString(s[i+1 : closeBracket])
						i = closeBracket + 1 + paren + 1
						continue
					}
				}
			}
		}
		out.WriteByte(s[i])
		i++
	}
	return out.String()
}
