package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"ChatBooks/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIRecognizer Whisper 转写（OpenAI 兼容接口）
type OpenAIRecognizer struct {
	cli      *openai.Client
	model    string
	language string
}

// OpenAISynthesizer OpenAI TTS
type OpenAISynthesizer struct {
	cli   *openai.Client
	model string
	voice string
}

// NewFromConfig provider 为空或 disabled 时返回 nil, nil，语音功能关闭
func NewFromConfig(conf *config.Config) (*OpenAIRecognizer, *OpenAISynthesizer, error) {
	if conf == nil {
		return nil, nil, fmt.Errorf("nil config")
	}
	sc := conf.AIConfig.Speech
	switch strings.ToLower(strings.TrimSpace(sc.Provider)) {
	case "", "disabled", "none":
		return nil, nil, nil
	case "openai", "whisper":
	default:
		return nil, nil, fmt.Errorf("unknown speech provider: %s", sc.Provider)
	}

	apiKey := strings.TrimSpace(sc.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if apiKey == "" {
		return nil, nil, fmt.Errorf("speech provider missing apiKey")
	}

	cfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(sc.BaseURL); base != "" {
		cfg.BaseURL = base
	}
	timeout := 60 * time.Second
	if sc.TimeoutSeconds > 0 {
		timeout = time.Duration(sc.TimeoutSeconds) * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	cli := openai.NewClientWithConfig(cfg)

	model := strings.TrimSpace(sc.Model)
	if model == "" {
		model = openai.Whisper1
	}
	rec := &OpenAIRecognizer{cli: cli, model: model, language: strings.TrimSpace(sc.Language)}

	var syn *OpenAISynthesizer
	if tts := strings.TrimSpace(sc.TTSModel); tts != "" {
		voice := strings.TrimSpace(sc.TTSVoice)
		if voice == "" {
			voice = string(openai.VoiceAlloy)
		}
		syn = &OpenAISynthesizer{cli: cli, model: tts, voice: voice}
	}
	return rec, syn, nil
}

func (r *OpenAIRecognizer) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if filename == "" {
		filename = "speech.webm"
	}
	resp, err := r.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    r.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: r.language,
	})
	if err != nil {
		return "", fmt.Errorf("%w; %v", ErrRequest, err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrUnknownValue
	}
	return text, nil
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.cli.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Close()
	return io.ReadAll(resp)
}

var (
	_ Recognizer  = (*OpenAIRecognizer)(nil)
	_ Synthesizer = (*OpenAISynthesizer)(nil)
)
