// File: internal/codegen/convert.go
package codegen

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sankalpgunturi/stagehand/api/schemas"
)

// conversionSystemPrompt defines the persona and rules for the conversion
// collaborator. The model must answer with code only; any prose would end up
// inside the generated test file.
const conversionSystemPrompt = `You are an expert test automation engineer.
You convert Playwright test scripts into other test frameworks while preserving
the exact sequence of browser interactions, selectors, and input values.
Respond with the converted source code only. Do not add explanations,
comments about the conversion, or markdown fences.`

// ConvertCode hands natively generated source to the LLM collaborator and
// returns whatever it produces for the target framework. The correlation id
// ties the request to its log lines; collaborator failures are returned to
// the caller unchanged.
func ConvertCode(ctx context.Context, sourceCode, targetFramework string, client schemas.LLMClient, correlationID string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("convert").With(zap.String("correlationId", correlationID))

	userPrompt := fmt.Sprintf(
		"Convert the following Playwright script to the %s test framework.\n\n%s",
		targetFramework, sourceCode)

	req := schemas.GenerationRequest{
		SystemPrompt: conversionSystemPrompt,
		UserPrompt:   userPrompt,
		Options: schemas.GenerationOptions{
			Temperature: 0.2,
		},
	}

	log.Debug("Requesting framework conversion",
		zap.String("framework", targetFramework),
		zap.Int("source_bytes", len(sourceCode)))

	response, err := client.GenerateResponse(ctx, req)
	if err != nil {
		return "", err
	}

	converted := stripCodeFences(response)
	log.Debug("Framework conversion complete", zap.Int("converted_bytes", len(converted)))
	return converted, nil
}

// stripCodeFences removes a surrounding markdown code fence when the model
// ignores the instruction not to emit one.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	// Drop the opening fence (with optional language tag) and a closing fence.
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
