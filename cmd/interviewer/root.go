package main

import (
	"fmt"

	ttsdeepgram "github.com/koscakluka/ema-interview/core/texttospeech/deepgram"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "interviewer",
		Short:        "Voice interview server",
		Long:         "interviewer runs a spoken interview over WebSocket: it transcribes the candidate, decides when they finished speaking, and answers with a synthesized interviewer voice.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newVoicesCmd(),
	)
	return rootCmd
}

func newVoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the voices TTS_VOICE accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, voice := range ttsdeepgram.GetAvailableVoices() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), voice); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
