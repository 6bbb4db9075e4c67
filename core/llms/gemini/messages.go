package gemini

import (
	"github.com/koscakluka/ema-interview/core/llms"
	"google.golang.org/genai"
)

func toContents(turns []llms.Turn, prompt *string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns)+1)
	for _, turn := range turns {
		if turn.Content == "" {
			continue
		}

		switch turn.Role {
		case llms.TurnRoleUser:
			contents = append(contents, genai.NewContentFromText(turn.Content, genai.RoleUser))
		case llms.TurnRoleModel:
			contents = append(contents, genai.NewContentFromText(turn.Content, genai.RoleModel))
		}
	}

	if prompt != nil && *prompt != "" {
		contents = append(contents, genai.NewContentFromText(*prompt, genai.RoleUser))
	}
	return contents
}

func (c *Client) toConfig(options llms.PromptOptions) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if options.Instructions != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(options.Instructions)},
		}
	}

	if options.Temperature != nil {
		config.Temperature = genai.Ptr(*options.Temperature)
	} else if c.temperature != nil {
		config.Temperature = genai.Ptr(*c.temperature)
	}
	return config
}

func (c *Client) promptOptions(opts ...llms.PromptOption) llms.PromptOptions {
	return llms.ApplyPromptOptions(llms.PromptOptions{Instructions: c.systemPrompt}, opts...)
}

func finishReason(resp *genai.GenerateContentResponse) *string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].FinishReason == "" {
		return nil
	}
	reason := string(resp.Candidates[0].FinishReason)
	return &reason
}
