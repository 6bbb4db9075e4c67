package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/ema-interview/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const jsonMIMEType = "application/json"

// Prompt sends a single prompt and returns the whole text of the response.
func (c *Client) Prompt(ctx context.Context, prompt string, opts ...llms.PromptOption) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", c.model))

	options := c.promptOptions(opts...)
	resp, err := c.models.GenerateContent(ctx, c.model, toContents(options.Turns, &prompt), c.toConfig(options))
	if err != nil {
		err = fmt.Errorf("error generating content: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return resp.Text(), nil
}

// PromptWithStructure asks the model for a JSON response following the schema
// reflected from outputSchema and unmarshals the response into it.
// outputSchema must be a pointer.
func (c *Client) PromptWithStructure(ctx context.Context, prompt string, outputSchema any, opts ...llms.PromptOption) error {
	ctx, span := tracer.Start(ctx, "prompt llm structured")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", c.model))

	outputType := reflect.TypeOf(outputSchema)
	if outputType == nil || outputType.Kind() != reflect.Pointer {
		err := fmt.Errorf("output schema must be a pointer, got %T", outputSchema)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.ReflectFromType(outputType.Elem())
	schema.Version = ""
	schema.ID = ""
	if schemaString, err := schema.MarshalJSON(); err == nil {
		span.SetAttributes(attribute.String("request.schema", string(schemaString)))
	}

	options := c.promptOptions(opts...)
	config := c.toConfig(options)
	config.ResponseMIMEType = jsonMIMEType
	config.ResponseJsonSchema = schema

	resp, err := c.models.GenerateContent(ctx, c.model, toContents(options.Turns, &prompt), config)
	if err != nil {
		err = fmt.Errorf("error generating content: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	content := resp.Text()
	if split := strings.Split(content, "```"); len(split) > 1 {
		content = strings.TrimPrefix(strings.TrimSpace(split[1]), "json")
	}
	if err := json.Unmarshal([]byte(content), outputSchema); err != nil {
		err = fmt.Errorf("error unmarshalling response: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Debug("structured response did not match schema", "content", content)
		return err
	}

	return nil
}
