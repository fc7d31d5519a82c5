package util

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成一个标准的 UUID (v4)
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateID 生成带前缀的短 ID，例如 S3f2a...
func GenerateID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// StableUUID 由若干片段派生确定性的 UUID（同样的输入得到同样的 ID）
//
// qdrant 只接受 UUID / 整数作为 point id，所以这里返回 UUID 格式而不是裸哈希
func StableUUID(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	sum := h.Sum(nil)
	return uuid.NewSHA1(uuid.NameSpaceOID, sum).String()
}

// Truncate 按 rune 截断，超出部分用 ... 代替
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:n]))
}
