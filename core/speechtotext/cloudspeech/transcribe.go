// Package cloudspeech recognizes speech with Google Cloud Speech-to-Text v2
// streaming recognition.
package cloudspeech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	speechAPIEndpointPort = 443
	globalLocation        = "global"
	defaultModel          = "long"
	cloudPlatformScope    = "https://www.googleapis.com/auth/cloud-platform"
)

var ErrNotConnected = errors.New("cloud speech stream is not open")

type Config struct {
	ProjectID       string
	CredentialsJSON string
	Location        string
	Model           string
}

// TranscriptionClient serves a single recognition stream, create one per
// connection.
type TranscriptionClient struct {
	projectID       string
	credentialsJSON string
	location        string
	model           string

	mu          sync.Mutex
	closed      bool
	client      *speech.Client
	stream      speechpb.Speech_StreamingRecognizeClient
	newStreamFn func() (speechpb.Speech_StreamingRecognizeClient, error)
	callbacks   callbackConfig
}

func NewTranscriptionClient(cfg Config) *TranscriptionClient {
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = globalLocation
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	return &TranscriptionClient{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		location:        location,
		model:           model,
	}
}

// Transcribe opens the stream. The model in the options is ignored, the
// client always uses the model it was configured with.
func (t *TranscriptionClient) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	options := speechtotext.DefaultTranscriptionOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.EncodingInfo.Format != audio.EncodingLinear16 {
		return fmt.Errorf("unsupported encoding %q", options.EncodingInfo.Format.Name())
	}

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(t.credentialsJSON),
		Scopes:          []string{cloudPlatformScope},
	})
	if err != nil {
		return fmt.Errorf("detect credentials: %w", err)
	}

	clientOpts := []option.ClientOption{option.WithAuthCredentials(creds)}
	if endpoint := endpointFor(t.location); endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(endpoint))
	}

	ctx = context.WithoutCancel(ctx)
	client, err := speech.NewClient(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf("create speech client: %w", err)
	}

	request := t.configRequest(options)
	newStream := func() (speechpb.Speech_StreamingRecognizeClient, error) {
		stream, err := client.StreamingRecognize(ctx)
		if err != nil {
			return nil, err
		}
		if err := stream.Send(request); err != nil {
			_ = stream.CloseSend()
			return nil, err
		}
		return stream, nil
	}

	stream, err := newStream()
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("open streaming recognition: %w", err)
	}

	t.mu.Lock()
	t.client = client
	t.stream = stream
	t.newStreamFn = newStream
	t.callbacks = newCallbackConfig(options)
	t.closed = false
	t.mu.Unlock()

	logger.Info("cloud speech stream initialized", "location", t.location, "language", options.Language, "model", t.model)
	t.startReceiver(stream)
	return nil
}

func (t *TranscriptionClient) configRequest(options speechtotext.TranscriptionOptions) *speechpb.StreamingRecognizeRequest {
	return &speechpb.StreamingRecognizeRequest{
		Recognizer: recognizerName(t.projectID, t.location),
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Model:         t.model,
					LanguageCodes: []string{options.Language},
					DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
						ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
							Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
							SampleRateHertz:   int32(options.EncodingInfo.SampleRate),
							AudioChannelCount: 1,
						},
					},
					Features: &speechpb.RecognitionFeatures{EnableAutomaticPunctuation: true},
				},
				StreamingFeatures: &speechpb.StreamingRecognitionFeatures{
					InterimResults: options.PartialInterimTranscriptionCallback != nil,
				},
			},
		},
	}
}

func (t *TranscriptionClient) SendAudio(pcm []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.stream == nil {
		return ErrNotConnected
	}

	req := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{Audio: pcm},
	}
	if err := t.stream.Send(req); err != nil {
		if !isReconnectableStreamError(err) {
			return err
		}
		logger.Warn("recognition send failed with reconnectable error, reconnecting", "error", err)
		if err := t.reconnectLocked(); err != nil {
			return fmt.Errorf("reconnect stream: %w", err)
		}
		return t.stream.Send(req)
	}
	return nil
}

func (t *TranscriptionClient) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.stream == nil {
		return nil
	}
	t.closed = true

	return errors.Join(t.stream.CloseSend(), t.client.Close())
}

func (t *TranscriptionClient) reconnectLocked() error {
	_ = t.stream.CloseSend()
	next, err := t.newStreamFn()
	if err != nil {
		logger.Error("failed to reconnect recognition stream", "error", err)
		return err
	}
	t.stream = next
	t.startReceiver(next)
	logger.Info("recognition stream reconnected")
	return nil
}

func (t *TranscriptionClient) startReceiver(stream speechpb.Speech_StreamingRecognizeClient) {
	t.mu.Lock()
	callbacks := t.callbacks
	t.mu.Unlock()

	go func() {
		for {
			resp, err := stream.Recv()
			if err != nil {
				t.onReceiveEnded(stream, err, callbacks)
				return
			}
			dispatchResults(resp.GetResults(), callbacks)
		}
	}()
}

func (t *TranscriptionClient) onReceiveEnded(stream speechpb.Speech_StreamingRecognizeClient, err error, callbacks callbackConfig) {
	t.mu.Lock()
	current := t.stream == stream
	closed := t.closed
	t.mu.Unlock()

	switch {
	case !current:
		return
	case closed || err == io.EOF || status.Code(err) == codes.Canceled:
		callbacks.closedCallback()
	case isReconnectableStreamError(err):
		logger.Warn("recognition stream ended with reconnectable abort", "error", err)
	default:
		callbacks.errorCallback(err)
		callbacks.closedCallback()
	}
}

func dispatchResults(results []*speechpb.StreamingRecognitionResult, callbacks callbackConfig) {
	for _, result := range results {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		transcript := strings.TrimSpace(result.GetAlternatives()[0].GetTranscript())
		if transcript == "" {
			continue
		}
		if result.GetIsFinal() {
			callbacks.partialTranscriptionCallback(transcript)
		} else {
			callbacks.partialInterimTranscriptionCallback(transcript)
		}
	}
}

func recognizerName(projectID, location string) string {
	return fmt.Sprintf("projects/%s/locations/%s/recognizers/_", projectID, location)
}

func endpointFor(location string) string {
	if location == globalLocation {
		return ""
	}
	return fmt.Sprintf("%s-speech.googleapis.com:%d", location, speechAPIEndpointPort)
}

func isReconnectableStreamError(err error) bool {
	if err == io.EOF || strings.Contains(strings.ToLower(err.Error()), "eof") {
		return true
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return false
	}
	msg := strings.ToLower(st.Message())
	return strings.Contains(msg, "max duration of 5 minutes") ||
		strings.Contains(msg, "stream timed out after receiving no more client requests")
}
