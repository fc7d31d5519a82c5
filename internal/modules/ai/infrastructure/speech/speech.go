package speech

import (
	"context"
	"errors"
)

var (
	// ErrUnknownValue 识别服务正常返回，但没有听出任何内容
	ErrUnknownValue = errors.New("could not understand audio")
	// ErrRequest 识别服务请求失败，包装底层错误
	ErrRequest = errors.New("could not request results from speech recognition service")
)

// Recognizer 语音转文字
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Synthesizer 文字转语音，返回 mp3 字节
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
