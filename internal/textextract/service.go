package textextract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

const (
	maxPDFBytes  = 20 << 20
	maxPageBytes = 4 << 20
)

var (
	ErrEmptyDocument = fmt.Errorf("no text could be extracted")
	ErrInvalidURL    = fmt.Errorf("invalid url")
)

type ServiceConfig struct {
	HTTPClient *http.Client
}

type Service struct {
	client *http.Client
}

// Metadata carries page details picked up during a scrape.
type Metadata struct {
	Title string `json:"title"`
}

func NewService(cfg ServiceConfig) *Service {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Service{client: client}
}

// ExtractPDF pulls the plain text out of a PDF document.
func (s *Service) ExtractPDF(r io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxPDFBytes))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	text, err := pdfPlainText(raw)
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(text)
	if out == "" {
		return "", fmt.Errorf("pdf: %w", ErrEmptyDocument)
	}
	return out, nil
}

// pdfPlainText isolates the parser, which panics on some malformed
// documents. A panic here means a bad upload, not a server fault.
func pdfPlainText(raw []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parse pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	data, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return string(data), nil
}

// ScrapeWebsite fetches a page and returns its visible text with scripts
// and styles stripped out.
func (s *Service) ScrapeWebsite(ctx context.Context, rawURL string) (string, Metadata, error) {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !target.IsAbs() || (target.Scheme != "http" && target.Scheme != "https") {
		return "", Metadata{}, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", Metadata{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "quizgen/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", Metadata{}, fmt.Errorf("failed to access website: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", Metadata{}, fmt.Errorf("failed to access website: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", Metadata{}, fmt.Errorf("parse page: %w", err)
	}

	meta := Metadata{Title: strings.TrimSpace(doc.Find("title").First().Text())}

	doc.Find("script, style, noscript").Remove()
	text := collapseWhitespace(doc.Find("body").Text())
	if text == "" {
		text = collapseWhitespace(doc.Text())
	}
	if text == "" {
		return "", meta, fmt.Errorf("website: %w", ErrEmptyDocument)
	}
	return text, meta, nil
}

// collapseWhitespace flattens the raggedy text goquery returns into
// single-space separated prose.
func collapseWhitespace(raw string) string {
	var chunks []string
	for _, line := range strings.Split(raw, "\n") {
		for _, phrase := range strings.Split(line, "  ") {
			phrase = strings.TrimSpace(phrase)
			if phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, " ")
}
