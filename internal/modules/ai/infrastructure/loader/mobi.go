package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/text/encoding/charmap"
)

const (
	palmDBHeaderLen = 78

	compressionNone     = 1
	compressionPalmDOC  = 2
	compressionHuffCDIC = 17480

	encodingCP1252 = 1252
	encodingUTF8   = 65001
)

var errMalformedMOBI = errors.New("malformed mobi file")

// MOBIParser 把整本书的正文合成一个 Document
//
// 支持未压缩和 PalmDOC 压缩；HUFF/CDIC 压缩和加密书直接报错。
type MOBIParser struct {
	text *htmlText
}

func NewMOBIParser(text *htmlText) *MOBIParser {
	return &MOBIParser{text: text}
}

func (p *MOBIParser) Parse(ctx context.Context, reader io.Reader, opts ...parser.Option) ([]*schema.Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	markup, err := extractMOBIText(data)
	if err != nil {
		return nil, err
	}
	text, err := p.text.Extract(ctx, markup)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return []*schema.Document{}, nil
	}
	docs := []*schema.Document{{Content: text, MetaData: map[string]any{}}}
	applyExtraMeta(docs, opts...)
	return docs, nil
}

// extractMOBIText 读取 PalmDB 记录并解压正文，返回 UTF-8 的 HTML
func extractMOBIText(data []byte) ([]byte, error) {
	records, err := palmRecords(data)
	if err != nil {
		return nil, err
	}
	rec0 := records[0]
	if len(rec0) < 16 {
		return nil, fmt.Errorf("%w: short record 0", errMalformedMOBI)
	}

	compression := binary.BigEndian.Uint16(rec0[0:2])
	textLength := int(binary.BigEndian.Uint32(rec0[4:8]))
	textRecords := int(binary.BigEndian.Uint16(rec0[8:10]))
	encryption := binary.BigEndian.Uint16(rec0[12:14])
	if encryption != 0 {
		return nil, errors.New("encrypted mobi files are not supported")
	}

	textEncoding := uint32(encodingCP1252)
	extraFlags := uint16(0)
	if len(rec0) >= 24 && string(rec0[16:20]) == "MOBI" {
		headerLen := binary.BigEndian.Uint32(rec0[20:24])
		if len(rec0) >= 32 {
			textEncoding = binary.BigEndian.Uint32(rec0[28:32])
		}
		if headerLen >= 0xE4 && len(rec0) >= 0xF4 {
			extraFlags = binary.BigEndian.Uint16(rec0[0xF2:0xF4])
		}
	}

	if textRecords >= len(records) {
		textRecords = len(records) - 1
	}

	var out bytes.Buffer
	for i := 1; i <= textRecords; i++ {
		rec := records[i]
		rec = rec[:len(rec)-trailingSize(rec, extraFlags)]
		switch compression {
		case compressionNone:
			out.Write(rec)
		case compressionPalmDOC:
			out.Write(palmDOCDecompress(rec))
		case compressionHuffCDIC:
			return nil, errors.New("HUFF/CDIC compressed mobi files are not supported")
		default:
			return nil, fmt.Errorf("unknown mobi compression %d", compression)
		}
	}

	raw := out.Bytes()
	if textLength > 0 && len(raw) > textLength {
		raw = raw[:textLength]
	}

	if textEncoding == encodingUTF8 {
		if !utf8.Valid(raw) {
			raw = []byte(strings.ToValidUTF8(string(raw), "�"))
		}
		return raw, nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode cp1252: %w", err)
	}
	return decoded, nil
}

// palmRecords 按 PalmDB 记录表切出每条记录
func palmRecords(data []byte) ([][]byte, error) {
	if len(data) < palmDBHeaderLen {
		return nil, fmt.Errorf("%w: short header", errMalformedMOBI)
	}
	kind := string(data[60:68])
	if kind != "BOOKMOBI" && kind != "TEXtREAd" {
		return nil, fmt.Errorf("%w: unexpected type %q", errMalformedMOBI, kind)
	}
	n := int(binary.BigEndian.Uint16(data[76:78]))
	if n == 0 || len(data) < palmDBHeaderLen+8*n {
		return nil, fmt.Errorf("%w: bad record list", errMalformedMOBI)
	}

	offsets := make([]int, n+1)
	for i := 0; i < n; i++ {
		off := palmDBHeaderLen + 8*i
		offsets[i] = int(binary.BigEndian.Uint32(data[off : off+4]))
	}
	offsets[n] = len(data)

	records := make([][]byte, n)
	for i := 0; i < n; i++ {
		start, end := offsets[i], offsets[i+1]
		if start < 0 || end > len(data) || start > end {
			return nil, fmt.Errorf("%w: record %d out of range", errMalformedMOBI, i)
		}
		records[i] = data[start:end]
	}
	return records, nil
}

// trailingSize 计算记录尾部附加数据的长度（extra data flags）
func trailingSize(rec []byte, flags uint16) int {
	size := len(rec)
	num := 0
	for f := flags >> 1; f != 0; f >>= 1 {
		if f&1 == 1 {
			num += trailingEntrySize(rec, size-num)
		}
	}
	if flags&1 == 1 && size-num-1 >= 0 {
		num += int(rec[size-num-1]&0x3) + 1
	}
	if num > size {
		return size
	}
	return num
}

// trailingEntrySize 从末尾往前读变长整数，最高位为 1 的字节结束
func trailingEntrySize(rec []byte, size int) int {
	result, bitpos := 0, 0
	for size > 0 {
		v := rec[size-1]
		result |= int(v&0x7F) << bitpos
		bitpos += 7
		size--
		if v&0x80 != 0 || bitpos >= 28 {
			break
		}
	}
	return result
}

// palmDOCDecompress PalmDOC 的 LZ77 变体
func palmDOCDecompress(in []byte) []byte {
	out := make([]byte, 0, len(in)*2)
	for i := 0; i < len(in); {
		c := in[i]
		i++
		switch {
		case c == 0 || (c >= 0x09 && c <= 0x7F):
			out = append(out, c)
		case c >= 0x01 && c <= 0x08:
			end := i + int(c)
			if end > len(in) {
				end = len(in)
			}
			out = append(out, in[i:end]...)
			i = end
		case c >= 0xC0:
			out = append(out, ' ', c^0x80)
		default:
			if i >= len(in) {
				return out
			}
			pair := (int(c)<<8 | int(in[i])) & 0x3FFF
			i++
			distance := pair >> 3
			length := pair&0x7 + 3
			if distance == 0 || distance > len(out) {
				continue
			}
			start := len(out) - distance
			for k := 0; k < length; k++ {
				out = append(out, out[start+k])
			}
		}
	}
	return out
}
