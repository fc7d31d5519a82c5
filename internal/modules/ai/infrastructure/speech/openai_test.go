package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ChatBooks/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSpeechServer(t *testing.T, handler http.HandlerFunc) *config.Config {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := config.Default()
	conf.AIConfig.Speech.Provider = "openai"
	conf.AIConfig.Speech.APIKey = "test-key"
	conf.AIConfig.Speech.BaseURL = srv.URL + "/v1"
	conf.AIConfig.Speech.TTSModel = "tts-1"
	return conf
}

func TestTranscribe(t *testing.T) {
	conf := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/audio/transcriptions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":" Who is Ahab? "}`))
	})
	rec, _, err := NewFromConfig(conf)
	require.NoError(t, err)

	text, err := rec.Transcribe(context.Background(), []byte("audio"), "q.webm")
	require.NoError(t, err)
	assert.Equal(t, "Who is Ahab?", text)
}

func TestTranscribeUnknownValue(t *testing.T) {
	conf := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":""}`))
	})
	rec, _, err := NewFromConfig(conf)
	require.NoError(t, err)

	_, err = rec.Transcribe(context.Background(), []byte("noise"), "")
	assert.ErrorIs(t, err, ErrUnknownValue)
	assert.EqualError(t, err, "could not understand audio")
}

func TestTranscribeRequestError(t *testing.T) {
	conf := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"backend exploded","type":"server_error"}}`))
	})
	rec, _, err := NewFromConfig(conf)
	require.NoError(t, err)

	_, err = rec.Transcribe(context.Background(), []byte("audio"), "a.webm")
	require.ErrorIs(t, err, ErrRequest)
	assert.True(t, strings.HasPrefix(err.Error(), "could not request results from speech recognition service; "))
	assert.NotErrorIs(t, err, ErrUnknownValue)
}

func TestSynthesize(t *testing.T) {
	conf := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/audio/speech"))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake"))
	})
	_, syn, err := NewFromConfig(conf)
	require.NoError(t, err)
	require.NotNil(t, syn)

	audio, err := syn.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3fake"), audio)
}

func TestNewFromConfigDisabled(t *testing.T) {
	rec, syn, err := NewFromConfig(config.Default())
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Nil(t, syn)

	conf := config.Default()
	conf.AIConfig.Speech.Provider = "carrier-pigeon"
	_, _, err = NewFromConfig(conf)
	assert.Error(t, err)
}
