package orchestration

import "time"

const DefaultSystemPrompt = `You are a professional job interviewer.
YOUR TASK: Conduct a structured interview for an AI Developer position.
RULES:
- Respond in one paragraph, under 60 words.
- Ask one creative question at a time.
- Never stop asking questions until asked to end.
- Gradually increase complexity.
- Do not repeat questions or cross-examine.
- Stay in character. Do not answer off-topic questions.`

const (
	DefaultPrimedReply   = "Understood. I am ready to begin the interview."
	DefaultGreeting      = "Hello, let's start the interview."
	DefaultGreetingDelay = 500 * time.Millisecond
	DefaultStatusText    = "Interviewing..."

	// DefaultPacketLatency is how much audio one packet sent to the client
	// holds, 5120 bytes at 16 kHz 16-bit mono.
	DefaultPacketLatency = 160 * time.Millisecond
)
