package service

import (
	"context"
	"strings"

	"ChatBooks/internal/modules/ai/infrastructure/speech"
	"ChatBooks/pkg/xerr"
	"ChatBooks/pkg/zlog"

	"go.uber.org/zap"
)

// VoiceResult 一次语音问答；Audio 为空表示没有配置语音合成
type VoiceResult struct {
	Transcript string
	Answer     string
	Audio      []byte
}

// VoiceService 录音 → 转写 → 走同一条问答链路 → 可选语音合成
type VoiceService interface {
	Enabled() bool
	Ask(ctx context.Context, sessionID string, audio []byte, filename string) (*VoiceResult, error)
}

type voiceService struct {
	recognizer  speech.Recognizer
	synthesizer speech.Synthesizer
	assistant   AssistantService
}

// NewVoiceService recognizer 为 nil 时语音入口关闭；synthesizer 可以为 nil
func NewVoiceService(rec speech.Recognizer, syn speech.Synthesizer, assistant AssistantService) VoiceService {
	return &voiceService{recognizer: rec, synthesizer: syn, assistant: assistant}
}

func (s *voiceService) Enabled() bool { return s.recognizer != nil }

func (s *voiceService) Ask(ctx context.Context, sessionID string, audio []byte, filename string) (*VoiceResult, error) {
	if s.recognizer == nil {
		return nil, xerr.New(xerr.ServiceUnavailable, "speech recognition is not configured")
	}
	if len(audio) == 0 {
		return nil, speech.ErrUnknownValue
	}

	text, err := s.recognizer.Transcribe(ctx, audio, filename)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, speech.ErrUnknownValue
	}

	ans, err := s.assistant.Ask(ctx, sessionID, text)
	if err != nil {
		return nil, err
	}
	res := &VoiceResult{Transcript: text, Answer: ans.Answer}

	if s.synthesizer != nil {
		audioOut, err := s.synthesizer.Synthesize(ctx, ans.Answer)
		if err != nil {
			zlog.Warn("speech synthesis failed", zap.String("session_id", sessionID), zap.Error(err))
		} else {
			res.Audio = audioOut
		}
	}
	return res, nil
}
