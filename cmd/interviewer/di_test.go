package main

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/koscakluka/ema-interview/core/turndetection"
	llmdecider "github.com/koscakluka/ema-interview/core/turndetection/llm"
	"github.com/koscakluka/ema-interview/internal/config"
	"github.com/samber/do/v2"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                 3123,
		DeepgramAPIKey:       "deepgram-key",
		GeminiAPIKey:         "gemini-key",
		GeminiModel:          "gemini-2.5-flash",
		STTProvider:          config.STTProviderDeepgram,
		STTModel:             "nova-3",
		STTLanguage:          "en-IN",
		STTKeepAliveInterval: 3 * time.Second,
		TTSVoice:             "aura-2-thalia-en",
		SampleRate:           16000,
		AudioPacketLatency:   160 * time.Millisecond,
		TurnDecision:         config.TurnDecisionHeuristic,
		TurnWordThreshold:    20,
		TurnLongWait:         4 * time.Second,
		GreetingEnabled:      true,
		GreetingPrompt:       "Hello, let's start the interview.",
		GreetingDelay:        500 * time.Millisecond,
	}
}

func TestSetupDIBuildsServer(t *testing.T) {
	injector := setupDI(testConfig())
	defer injector.Shutdown()

	srv, err := do.Invoke[*http.Server](injector)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if srv.Addr != ":3123" {
		t.Fatalf("expected addr :3123, got %q", srv.Addr)
	}
}

func TestSetupDISelectsDecider(t *testing.T) {
	cfg := testConfig()
	injector := setupDI(cfg)
	defer injector.Shutdown()
	decider, err := do.Invoke[turndetection.Decider](injector)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := decider.(*turndetection.Heuristic); !ok {
		t.Fatalf("expected the heuristic decider, got %T", decider)
	}

	cfg = testConfig()
	cfg.TurnDecision = config.TurnDecisionModel
	injector = setupDI(cfg)
	defer injector.Shutdown()
	decider, err = do.Invoke[turndetection.Decider](injector)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := decider.(*llmdecider.Decider); !ok {
		t.Fatalf("expected the model decider, got %T", decider)
	}
}

func TestSetupDIRejectsUnknownVoice(t *testing.T) {
	cfg := testConfig()
	cfg.TTSVoice = "robot"
	injector := setupDI(cfg)
	defer injector.Shutdown()

	if _, err := do.Invoke[*http.Server](injector); err == nil {
		t.Fatal("expected error for an unknown voice")
	}
}

func TestRecognizerFactoryCreatesFreshClients(t *testing.T) {
	for _, provider := range []string{config.STTProviderDeepgram, config.STTProviderCloudSpeech} {
		t.Run(provider, func(t *testing.T) {
			cfg := testConfig()
			cfg.STTProvider = provider
			cfg.GoogleCloudProjectID = "project-id"
			injector := setupDI(cfg)
			defer injector.Shutdown()

			newRecognizer, err := do.Invoke[RecognizerFactory](injector)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if newRecognizer() == newRecognizer() {
				t.Fatal("expected a new recognizer per call")
			}
		})
	}
}

func TestVoicesCommandListsVoices(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"voices"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out.String(), "aura-2-thalia-en") {
		t.Fatalf("expected the default voice in the list, got %q", out.String())
	}
}
