package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	orchestration "github.com/koscakluka/ema-interview/core"
	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/llms/gemini"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/core/speechtotext/cloudspeech"
	sttdeepgram "github.com/koscakluka/ema-interview/core/speechtotext/deepgram"
	ttsdeepgram "github.com/koscakluka/ema-interview/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-interview/core/turndetection"
	llmdecider "github.com/koscakluka/ema-interview/core/turndetection/llm"
	"github.com/koscakluka/ema-interview/internal/config"
	"github.com/koscakluka/ema-interview/internal/server"
	"github.com/samber/do/v2"
)

const readHeaderTimeout = 10 * time.Second

// RecognizerFactory creates the recognizer of one connection. Recognizers
// hold a single upstream stream, so they are never shared.
type RecognizerFactory func() orchestration.SpeechToText

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, slog.Default())
	registerCollaborators(injector)
	registerServer(injector)

	return injector
}

func registerCollaborators(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*gemini.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return gemini.NewClient(context.Background(), cfg.GeminiAPIKey,
			gemini.WithModel(cfg.GeminiModel),
			gemini.WithSystemPrompt(systemPrompt(cfg)),
		)
	})

	do.Provide(injector, func(i do.Injector) (turndetection.Decider, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.TurnDecision {
		case config.TurnDecisionHeuristic:
			return turndetection.NewHeuristic(
				turndetection.WithWordThreshold(cfg.TurnWordThreshold),
				turndetection.WithWaits(cfg.ShortWait(), cfg.TurnLongWait),
			), nil
		case config.TurnDecisionModel:
			client, err := gemini.NewClient(context.Background(), cfg.GeminiAPIKey,
				gemini.WithModel(cfg.TurnDecisionModelName()),
				gemini.WithTemperature(0),
			)
			if err != nil {
				return nil, fmt.Errorf("failed to create decision client: %w", err)
			}
			return llmdecider.NewDecider(client, llmdecider.WithWaits(cfg.ShortWait(), cfg.TurnLongWait))
		default:
			return nil, fmt.Errorf("unknown turn decision strategy %q", cfg.TurnDecision)
		}
	})

	do.Provide(injector, func(i do.Injector) (RecognizerFactory, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.STTProvider {
		case config.STTProviderDeepgram:
			return func() orchestration.SpeechToText {
				return sttdeepgram.NewTranscriptionClient(cfg.DeepgramAPIKey)
			}, nil
		case config.STTProviderCloudSpeech:
			speechConfig := cloudspeech.Config{
				ProjectID:       cfg.GoogleCloudProjectID,
				CredentialsJSON: cfg.GoogleCloudCredentialsJSON,
				Location:        cfg.GoogleCloudSpeechLocation,
				Model:           cfg.GoogleCloudSpeechModel,
			}
			return func() orchestration.SpeechToText {
				return cloudspeech.NewTranscriptionClient(speechConfig)
			}, nil
		default:
			return nil, fmt.Errorf("unknown speech-to-text provider %q", cfg.STTProvider)
		}
	})

	do.Provide(injector, func(i do.Injector) (orchestration.TextToSpeech, error) {
		cfg := do.MustInvoke[*config.Config](i)
		voice, ok := ttsdeepgram.ParseVoice(cfg.TTSVoice)
		if !ok {
			return nil, fmt.Errorf("unknown TTS_VOICE %q, see the voices command", cfg.TTSVoice)
		}
		return ttsdeepgram.NewTextToSpeechClient(cfg.DeepgramAPIKey, voice)
	})
}

func registerServer(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (server.SessionFactory, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*slog.Logger](i)
		newRecognizer := do.MustInvoke[RecognizerFactory](i)
		textToSpeech := do.MustInvoke[orchestration.TextToSpeech](i)
		llm := do.MustInvoke[*gemini.Client](i)
		decider := do.MustInvoke[turndetection.Decider](i)

		encodingInfo := audio.EncodingInfo{SampleRate: cfg.SampleRate, Format: audio.EncodingLinear16}
		return func(_ context.Context, client orchestration.ClientSink) (server.Session, error) {
			return orchestration.NewSession(client,
				orchestration.WithLogger(logger),
				orchestration.WithSpeechToTextClient(newRecognizer()),
				orchestration.WithTranscriptionOptions(
					speechtotext.WithModel(cfg.STTModel),
					speechtotext.WithLanguage(cfg.STTLanguage),
					speechtotext.WithKeepAliveInterval(cfg.STTKeepAliveInterval),
				),
				orchestration.WithTextToSpeechClient(textToSpeech),
				orchestration.WithStreamingLLM(llm),
				orchestration.WithTurnDecider(decider),
				orchestration.WithSystemPrompt(systemPrompt(cfg)),
				orchestration.WithGreeting(cfg.Greeting(), cfg.GreetingDelay),
				orchestration.WithStatusText(cfg.StatusGeneratingText),
				orchestration.WithEncodingInfo(encodingInfo),
				orchestration.WithPacketLatency(cfg.AudioPacketLatency),
			), nil
		}, nil
	})

	do.Provide(injector, func(i do.Injector) (*server.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return server.NewHandler(do.MustInvoke[server.SessionFactory](i),
			server.WithStaticDir(cfg.StaticDir),
			server.WithHandlerLogger(do.MustInvoke[*slog.Logger](i)),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*http.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*server.Handler](i)
		return &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler.Routes(),
			ReadHeaderTimeout: readHeaderTimeout,
		}, nil
	})
}

func systemPrompt(cfg *config.Config) string {
	if cfg.SystemPrompt != "" {
		return cfg.SystemPrompt
	}
	return orchestration.DefaultSystemPrompt
}
