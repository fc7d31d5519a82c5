package loader

import (
	"bytes"
	"context"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/parser/html"
	"github.com/cloudwego/eino/components/document/parser"
)

// htmlText 用 eino-ext 的 html parser 取 <body> 文本
type htmlText struct {
	p parser.Parser
}

func newHTMLText(ctx context.Context) (*htmlText, error) {
	sel := "body"
	p, err := html.NewParser(ctx, &html.Config{Selector: &sel})
	if err != nil {
		return nil, err
	}
	return &htmlText{p: p}, nil
}

// Extract 返回去掉标签后的正文，连续空行压成一个
func (h *htmlText) Extract(ctx context.Context, markup []byte) (string, error) {
	docs, err := h.p.Parse(ctx, bytes.NewReader(markup))
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		if s := normalizeText(d.Content); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, ln)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
