package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/audio/miniaudio"
	"github.com/koscakluka/ema-interview/core/audio/portaudio"
	"github.com/spf13/cobra"
)

const (
	backendMiniaudio = "miniaudio"
	backendPortaudio = "portaudio"

	portaudioBufferSize = 1024
)

type audioDevice interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	SendAudio(audio []byte) error
	ClearBuffer()
	Close() error
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		url        string
		backend    string
		sampleRate int
	)

	cmd := &cobra.Command{
		Use:          "talk",
		Short:        "Talk to the interview server from the terminal",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			encodingInfo := audio.EncodingInfo{SampleRate: sampleRate, Format: audio.EncodingLinear16}
			device, err := openDevice(backend, encodingInfo)
			if err != nil {
				return err
			}
			defer device.Close()

			return run(ctx, url, device)
		},
	}

	cmd.Flags().StringVar(&url, "url", "ws://localhost:3000/ws", "interview server WebSocket URL")
	cmd.Flags().StringVar(&backend, "backend", backendMiniaudio, fmt.Sprintf("audio backend (%s or %s)", backendMiniaudio, backendPortaudio))
	cmd.Flags().IntVar(&sampleRate, "sample-rate", audio.DefaultSampleRate, "sample rate of captured and played audio")
	return cmd
}

func openDevice(backend string, encodingInfo audio.EncodingInfo) (audioDevice, error) {
	switch backend {
	case backendMiniaudio:
		return miniaudio.NewClient(encodingInfo)
	case backendPortaudio:
		return portaudio.NewClient(portaudioBufferSize, encodingInfo)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}

func run(ctx context.Context, url string, device audioDevice) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, err := dial(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close()

	interrupt := func() {
		device.ClearBuffer()
		conn.SendInterrupt()
	}
	program := tea.NewProgram(newModel(interrupt), tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		if err := conn.WriteLoop(ctx); err != nil {
			program.Send(connectionClosedMsg{err: err})
		}
	}()
	go func() {
		err := conn.ReadLoop(program.Send, func(packet []byte) {
			// Playback errors only cost the packet.
			_ = device.SendAudio(packet)
		})
		program.Send(connectionClosedMsg{err: err})
	}()

	if err := device.StartCapture(ctx, conn.SendAudio); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	final, err := program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if m, ok := final.(model); ok && m.err != nil {
		return m.err
	}
	return nil
}
