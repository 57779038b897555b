// Package llm provides options pattern for LLM generation parameters.
//
// This package implements functional options for runtime parameter overrides
// while maintaining backward compatibility with existing code.
package llm

// GenerateOptions holds parameters for LLM generation.
// These options can be set at initialization (from config.yaml) and
// overridden at runtime (from prompts or direct calls).
type GenerateOptions struct {
	// Model is the model identifier (e.g., "gpt-4o-mini", "deepseek-chat")
	Model string

	// Temperature controls randomness in responses.
	// Pointer so that an explicit 0 (deterministic sampling) is
	// distinguishable from "not set, use provider default".
	Temperature *float64

	// TopP is the nucleus sampling cutoff. Pointer for the same reason
	// as Temperature. Vendors recommend altering either temperature or
	// top_p, not both.
	TopP *float64

	// MaxTokens limits the response length (0 = provider default)
	MaxTokens int

	// Format specifies response format: "" (plain text), FormatJSON
	// ("json_object") or FormatJSONSchema (requires JSONSchema field).
	Format string

	// JSONSchema carries the schema for Format == FormatJSONSchema.
	JSONSchema *JSONSchemaSpec

	// Stop lists sequences that terminate generation.
	Stop []string
}

// Response format identifiers understood by providers.
const (
	FormatJSON       = "json_object"
	FormatJSONSchema = "json_schema"
)

// GenerateOption is a functional option for configuring GenerateOptions.
type GenerateOption func(*GenerateOptions)

// BuildOptions collects every GenerateOption found in a mixed argument
// list, ignoring values of other types (tool definitions, stream options).
// Providers use it to assemble the effective options for a request.
func BuildOptions(args ...any) GenerateOptions {
	var opts GenerateOptions
	for _, arg := range args {
		if opt, ok := arg.(GenerateOption); ok {
			opt(&opts)
		}
	}
	return opts
}

// WithModel sets the model for generation.
// Runtime override: takes precedence over config.yaml default.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithTemperature sets the temperature for generation.
// Runtime override: takes precedence over config.yaml default.
// An explicit 0 is honoured (sent to the API as temperature=0).
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = &temp
	}
}

// WithTopP sets the nucleus sampling parameter for generation.
func WithTopP(topP float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.TopP = &topP
	}
}

// WithMaxTokens sets the maximum tokens for generation.
// Runtime override: takes precedence over config.yaml default.
func WithMaxTokens(tokens int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = tokens
	}
}

// WithFormat sets the response format for generation.
// Use "json_object" for structured JSON output.
// Runtime override: takes precedence over config.yaml default.
func WithFormat(format string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Format = format
	}
}

// WithJSONMode is shorthand for WithFormat("json_object").
func WithJSONMode() GenerateOption {
	return func(o *GenerateOptions) {
		o.Format = FormatJSON
	}
}

// WithJSONSchema requests structured output validated against a JSON
// schema. Providers that support it send response_format=json_schema;
// providers without native support fall back to json mode.
func WithJSONSchema(spec JSONSchemaSpec) GenerateOption {
	return func(o *GenerateOptions) {
		o.Format = FormatJSONSchema
		o.JSONSchema = &spec
	}
}

// WithStop sets stop sequences that terminate generation.
func WithStop(stop ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Stop = stop
	}
}
