package tools

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/thesis-scout/pkg/firecrawl"
	"github.com/sells-group/thesis-scout/pkg/jina"
)

// page is fetched content before sanitization.
type page struct {
	URL     string
	Title   string
	Content string
	Source  string
}

// pageReader fetches a single URL. Readers are tried in order by fetch_page.
type pageReader interface {
	Name() string
	Read(ctx context.Context, url string) (*page, error)
}

type jinaReader struct {
	client jina.Client
}

func (r *jinaReader) Name() string { return "jina" }

func (r *jinaReader) Read(ctx context.Context, url string) (*page, error) {
	resp, err := r.client.Read(ctx, url)
	if err != nil {
		return nil, err
	}
	return &page{URL: url, Title: resp.Data.Title, Content: resp.Data.Content, Source: "jina"}, nil
}

type firecrawlReader struct {
	client firecrawl.Client
}

func (r *firecrawlReader) Name() string { return "firecrawl" }

func (r *firecrawlReader) Read(ctx context.Context, url string) (*page, error) {
	resp, err := r.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "scrape not successful"
		}
		return nil, eris.New("firecrawl: " + msg)
	}
	return &page{URL: url, Title: resp.Data.Metadata.Title, Content: resp.Data.Markdown, Source: "firecrawl"}, nil
}

// BlockType describes the kind of anti-bot page a reader returned.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// maxBlockPageBytes bounds the pages inspected for block markers. Challenge
// pages are short; real pages that merely mention a captcha are not.
const maxBlockPageBytes = 5000

// DetectBlock checks fetched content for signs of anti-bot protection.
func DetectBlock(content string) BlockType {
	if len(content) > maxBlockPageBytes {
		return BlockNone
	}
	lower := strings.ToLower(content)

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return BlockCloudflare
	}

	if strings.Contains(lower, "captcha") {
		return BlockCaptcha
	}

	if len(content) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, "enable javascript") {
			return BlockJSShell
		}
	}
	return BlockNone
}
