package llms

// PromptOptions contains all the options for a prompt. The same options are
// used for plain, structured and streaming prompts.
type PromptOptions struct {
	Instructions string
	Turns        []Turn
	Temperature  *float32
}

type PromptOption func(*PromptOptions)

// WithSystemPrompt sets the system instructions for the prompt.
// Repeating this option will overwrite the previous system prompt.
func WithSystemPrompt(prompt string) PromptOption {
	return func(opts *PromptOptions) {
		opts.Instructions = prompt
	}
}

// WithTurns adds turns to the prompt.
// Repeating this option will sequentially add more turns.
func WithTurns(turns ...Turn) PromptOption {
	return func(opts *PromptOptions) {
		opts.Turns = append(opts.Turns, turns...)
	}
}

func WithTemperature(temperature float32) PromptOption {
	return func(opts *PromptOptions) {
		opts.Temperature = &temperature
	}
}

func ApplyPromptOptions(options PromptOptions, opts ...PromptOption) PromptOptions {
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
