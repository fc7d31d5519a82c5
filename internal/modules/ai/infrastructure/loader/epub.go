package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
)

const containerPath = "META-INF/container.xml"

type epubContainer struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Manifest []epubItem `xml:"manifest>item"`
}

type epubItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// EPUBParser 每个 XHTML 文档项（按 manifest 顺序）生成一个 Document
//
// 文档项的原始字节必须是合法 UTF-8，否则整本书报错，不做编码兜底。
type EPUBParser struct {
	text *htmlText
}

func NewEPUBParser(text *htmlText) *EPUBParser {
	return &EPUBParser{text: text}
}

func (p *EPUBParser) Parse(ctx context.Context, reader io.Reader, opts ...parser.Option) ([]*schema.Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	opfPath, err := rootfilePath(files)
	if err != nil {
		return nil, err
	}
	var pkg epubPackage
	if err := decodeXML(files, opfPath, &pkg); err != nil {
		return nil, fmt.Errorf("read package %s: %w", opfPath, err)
	}

	base := path.Dir(opfPath)
	docs := make([]*schema.Document, 0, len(pkg.Manifest))
	for _, it := range pkg.Manifest {
		if !isDocumentItem(it) {
			continue
		}
		href, err := url.PathUnescape(it.Href)
		if err != nil {
			href = it.Href
		}
		name := path.Clean(path.Join(base, href))
		raw, err := readZipFile(files, name)
		if err != nil {
			return nil, fmt.Errorf("read item %s: %w", name, err)
		}
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidEncoding, name)
		}
		text, err := p.text.Extract(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("extract item %s: %w", name, err)
		}
		if text == "" {
			continue
		}
		docs = append(docs, &schema.Document{
			Content: text,
			MetaData: map[string]any{
				MetaItem: href,
			},
		})
	}
	applyExtraMeta(docs, opts...)
	return docs, nil
}

// isDocumentItem 正文 XHTML；导航文档(nav)不算
func isDocumentItem(it epubItem) bool {
	if it.MediaType != "application/xhtml+xml" {
		return false
	}
	for _, prop := range strings.Fields(it.Properties) {
		if prop == "nav" {
			return false
		}
	}
	return true
}

func rootfilePath(files map[string]*zip.File) (string, error) {
	var c epubContainer
	if err := decodeXML(files, containerPath, &c); err != nil {
		return "", fmt.Errorf("read %s: %w", containerPath, err)
	}
	for _, rf := range c.Rootfiles {
		if rf.FullPath != "" && (rf.MediaType == "" || rf.MediaType == "application/oebps-package+xml") {
			return rf.FullPath, nil
		}
	}
	return "", errors.New("epub has no package document")
}

func decodeXML(files map[string]*zip.File, name string, v any) error {
	raw, err := readZipFile(files, name)
	if err != nil {
		return err
	}
	return xml.Unmarshal(raw, v)
}

func readZipFile(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("missing %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
