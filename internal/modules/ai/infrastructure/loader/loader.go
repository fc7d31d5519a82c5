package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrInvalidEncoding   = errors.New("document is not valid UTF-8")
)

const (
	FormatPDF  = "pdf"
	FormatEPUB = "epub"
	FormatMOBI = "mobi"
)

// 文档元数据 key
const (
	MetaSource   = "source"
	MetaFileName = "file_name"
	MetaFormat   = "format"
	MetaPage     = "page"
	MetaItem     = "item"
)

var supported = map[string]string{
	".pdf":  FormatPDF,
	".epub": FormatEPUB,
	".mobi": FormatMOBI,
}

// FormatOf 按扩展名（不区分大小写）判断格式
func FormatOf(path string) (string, bool) {
	f, ok := supported[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Loader 把 pdf / epub / mobi 文件读成 []*schema.Document
//
// 内部是一个 eino ExtParser：按扩展名分发到各格式 parser，未知扩展名落到 unsupportedParser。
type Loader struct {
	ext *parser.ExtParser
}

func NewLoader(ctx context.Context) (*Loader, error) {
	pdfParser, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: true})
	if err != nil {
		return nil, fmt.Errorf("init pdf parser: %w", err)
	}
	text, err := newHTMLText(ctx)
	if err != nil {
		return nil, fmt.Errorf("init html parser: %w", err)
	}

	parsers := map[string]parser.Parser{}
	parsers[".pdf"] = &pagedPDFParser{inner: pdfParser}
	parsers[".epub"] = NewEPUBParser(text)
	parsers[".mobi"] = NewMOBIParser(text)

	ext, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		Parsers:        parsers,
		FallbackParser: unsupportedParser{},
	})
	if err != nil {
		return nil, err
	}
	return &Loader{ext: ext}, nil
}

// Load 解析单个文件；扩展名不支持时返回 ErrUnsupportedFormat，且不会打开文件
func (l *Loader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	meta := map[string]any{
		MetaSource:   path,
		MetaFileName: filepath.Base(path),
		MetaFormat:   format,
	}
	// ExtParser 按扩展名精确分发，统一成小写
	uri := strings.TrimSuffix(path, filepath.Ext(path)) + strings.ToLower(filepath.Ext(path))
	docs, err := l.ext.Parse(ctx, f, parser.WithURI(uri), parser.WithExtraMeta(meta))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	out := make([]*schema.Document, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		if d.MetaData == nil {
			d.MetaData = map[string]any{}
		}
		for k, v := range meta {
			d.MetaData[k] = v
		}
		out = append(out, d)
	}
	return out, nil
}

// pagedPDFParser 给每页补上从 0 开始的页码
type pagedPDFParser struct {
	inner parser.Parser
}

func (p *pagedPDFParser) Parse(ctx context.Context, reader io.Reader, opts ...parser.Option) ([]*schema.Document, error) {
	docs, err := p.inner.Parse(ctx, reader, opts...)
	if err != nil {
		return nil, err
	}
	for i, d := range docs {
		if d == nil {
			continue
		}
		if d.MetaData == nil {
			d.MetaData = map[string]any{}
		}
		d.MetaData[MetaPage] = i
	}
	return docs, nil
}

type unsupportedParser struct{}

func (unsupportedParser) Parse(_ context.Context, _ io.Reader, opts ...parser.Option) ([]*schema.Document, error) {
	o := parser.GetCommonOptions(&parser.Options{}, opts...)
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(o.URI))
}

func applyExtraMeta(docs []*schema.Document, opts ...parser.Option) {
	o := parser.GetCommonOptions(&parser.Options{}, opts...)
	if len(o.ExtraMeta) == 0 {
		return
	}
	for _, d := range docs {
		if d.MetaData == nil {
			d.MetaData = map[string]any{}
		}
		for k, v := range o.ExtraMeta {
			d.MetaData[k] = v
		}
	}
}
