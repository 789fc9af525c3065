package adapter

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAISpeech implements Speech with Whisper transcription and OpenAI TTS
type OpenAISpeech struct {
	client openai.Client
	voice  openai.AudioSpeechNewParamsVoice
}

type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL string
	voice   string
}

// WithOpenAIBaseURL points the client at a compatible endpoint
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) {
		c.baseURL = url
	}
}

// WithVoice sets the TTS voice name
func WithVoice(voice string) OpenAIOption {
	return func(c *openAIConfig) {
		if voice != "" {
			c.voice = voice
		}
	}
}

// NewOpenAISpeech creates a speech backend. apiKey is required.
func NewOpenAISpeech(apiKey string, opts ...OpenAIOption) (*OpenAISpeech, error) {
	if apiKey == "" {
		return nil, goerr.New("OpenAI API key is required")
	}

	cfg := openAIConfig{voice: string(openai.AudioSpeechNewParamsVoiceAlloy)}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &OpenAISpeech{
		client: openai.NewClient(reqOpts...),
		voice:  openai.AudioSpeechNewParamsVoice(cfg.voice),
	}, nil
}

func (x *OpenAISpeech) Transcribe(ctx context.Context, audio *model.Audio) (string, error) {
	if audio.Empty() {
		return "", goerr.New("no audio to transcribe")
	}

	mimeType := audio.MIMEType
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	resp, err := x.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio.Data), "speech.wav", mimeType),
		Model: openai.AudioModelWhisper1,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to transcribe audio", goerr.V("size", len(audio.Data)))
	}

	return resp.Text, nil
}

func (x *OpenAISpeech) Synthesize(ctx context.Context, text string) (*model.Audio, error) {
	resp, err := x.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModelTTS1,
		Voice:          x.voice,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to synthesize speech", goerr.V("voice", x.voice))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("unexpected speech response", goerr.V("status", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read speech response")
	}

	return &model.Audio{Data: data, MIMEType: "audio/wav"}, nil
}
