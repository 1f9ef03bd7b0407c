package tools

import (
	"context"
	"encoding/json"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/pkg/firecrawl"
	"github.com/sells-group/thesis-scout/pkg/jina"
)

const maxPageRunes = 8000

// FetchPage reads a web page and returns sanitized text. Jina Reader is
// tried first; Firecrawl, when configured, handles pages Jina cannot read
// or that come back as an anti-bot challenge.
type FetchPage struct {
	readers []pageReader
}

// NewFetchPage creates the fetch_page tool. fc may be nil.
func NewFetchPage(j jina.Client, fc firecrawl.Client) *FetchPage {
	t := &FetchPage{}
	if j != nil {
		t.readers = append(t.readers, &jinaReader{client: j})
	}
	if fc != nil {
		t.readers = append(t.readers, &firecrawlReader{client: fc})
	}
	return t
}

// Spec implements gateway.Tool.
func (t *FetchPage) Spec() gateway.ToolSpec {
	return gateway.ToolSpec{
		Name:        FetchPageName,
		Description: "Fetch a web page and return its readable text content.",
		Params: []gateway.Param{
			{Name: "url", Type: "string", Description: "Absolute URL of the page", Required: true},
		},
	}
}

// Destination implements gateway.Destinationer.
func (t *FetchPage) Destination(args []any, kwargs map[string]any) string {
	return gateway.Arg(args, kwargs, "url", 0)
}

// Invoke implements gateway.Tool.
func (t *FetchPage) Invoke(ctx context.Context, args []any, kwargs map[string]any) (json.RawMessage, error) {
	target := strings.TrimSpace(gateway.Arg(args, kwargs, "url", 0))
	if target == "" {
		return nil, missingArg(FetchPageName, "url")
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	p, err := t.read(ctx, target)
	if err != nil {
		return nil, classify(FetchPageName, err)
	}

	text := strings.TrimSpace(collapseBlankLines(plainText(p.Content)))
	return json.Marshal(map[string]any{
		"url":       target,
		"title":     plainText(p.Title),
		"source":    p.Source,
		"text":      truncateRunes(text, maxPageRunes),
		"truncated": utf8.RuneCountInString(text) > maxPageRunes,
	})
}

// read returns the first readable page from the reader chain.
func (t *FetchPage) read(ctx context.Context, target string) (*page, error) {
	var lastErr error
	for _, r := range t.readers {
		p, err := r.Read(ctx, target)
		if err == nil {
			block := DetectBlock(p.Content)
			if block == BlockNone {
				return p, nil
			}
			err = eris.Errorf("page blocked (%s)", block)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		zap.L().Debug("tools: page reader failed, trying next",
			zap.String("reader", r.Name()),
			zap.String("url", target),
			zap.Error(err),
		)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = eris.New("no page reader configured")
	}
	return nil, lastErr
}

// pagePolicy strips all markup from fetched content.
var pagePolicy = bluemonday.StrictPolicy()

// plainText removes markup and decodes the entities the policy escapes.
func plainText(s string) string {
	return html.UnescapeString(pagePolicy.Sanitize(s))
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
