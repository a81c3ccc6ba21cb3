package textextract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractPDFRejectsGarbage(t *testing.T) {
	svc := NewService(ServiceConfig{})

	if _, err := svc.ExtractPDF(strings.NewReader("this is not a pdf")); err == nil {
		t.Fatal("expected error for non-pdf input")
	}
}

func TestExtractPDFMalformedDocument(t *testing.T) {
	svc := NewService(ServiceConfig{})

	// Documents with a plausible header but broken innards make the
	// parser panic rather than error. Both must come back as an error.
	cases := []struct {
		name string
		body string
	}{
		{name: "truncated after header", body: "%PDF-1.4\n"},
		{name: "startxref into garbage", body: "%PDF-1.4\ngarbage body\nstartxref\n9\n%%EOF"},
		{name: "xref with bogus offsets", body: "%PDF-1.4\nxref\n0 1\n9999999999 00000 n \ntrailer\n<< /Root 1 0 R >>\nstartxref\n9\n%%EOF"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ExtractPDF(strings.NewReader(tc.body)); err == nil {
				t.Fatal("expected error for malformed pdf")
			}
		})
	}
}

func TestScrapeWebsite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Cell Biology</title><script>var hidden = 1;</script></head>
<body><style>p{color:red}</style><h1>Mitochondria</h1><p>The mitochondria is the powerhouse
of the cell.</p></body></html>`))
	}))
	defer srv.Close()

	svc := NewService(ServiceConfig{HTTPClient: srv.Client()})
	text, meta, err := svc.ScrapeWebsite(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ScrapeWebsite: %v", err)
	}
	if meta.Title != "Cell Biology" {
		t.Fatalf("title = %q, want Cell Biology", meta.Title)
	}
	if !strings.Contains(text, "powerhouse") {
		t.Fatalf("text missing body content: %q", text)
	}
	if strings.Contains(text, "hidden") || strings.Contains(text, "color:red") {
		t.Fatalf("script or style leaked into text: %q", text)
	}
}

func TestScrapeWebsiteEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><script>ignored()</script></body></html>`))
	}))
	defer srv.Close()

	svc := NewService(ServiceConfig{HTTPClient: srv.Client()})
	if _, _, err := svc.ScrapeWebsite(context.Background(), srv.URL); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("err = %v, want ErrEmptyDocument", err)
	}
}

func TestScrapeWebsiteBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewService(ServiceConfig{HTTPClient: srv.Client()})
	if _, _, err := svc.ScrapeWebsite(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404 page")
	}
}

func TestScrapeWebsiteRejectsBadURL(t *testing.T) {
	svc := NewService(ServiceConfig{})

	for _, raw := range []string{"", "notaurl", "ftp://example.com/x", "//missing-scheme"} {
		if _, _, err := svc.ScrapeWebsite(context.Background(), raw); !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("url %q: err = %v, want ErrInvalidURL", raw, err)
		}
	}
}
