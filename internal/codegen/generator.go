// File: internal/codegen/generator.go
//
// Package codegen converts an ordered sequence of recorded steps into
// runnable Playwright test source in TypeScript or Python, and optionally
// hands the result to an LLM collaborator to retarget it at a third party
// test framework.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sankalpgunturi/stagehand/api/schemas"
	"github.com/sankalpgunturi/stagehand/internal/cache"
)

// Natively supported output targets.
const (
	LanguageTypeScript = "typescript"
	LanguagePython     = "python"

	// NativeFramework is the framework the generator renders directly.
	// Anything else goes through the conversion collaborator.
	NativeFramework = "playwright"
)

// ErrUnsupportedLanguage is returned when the requested language has no
// native skeleton. Callers receive it wrapped with the offending name.
var ErrUnsupportedLanguage = errors.New("unsupported target language")

// StepSource supplies the recorded steps to render. The recorder satisfies
// it; a nil source means zero recorded steps, which is valid and yields a
// bare navigation-free skeleton.
type StepSource interface {
	GetAllActions() []cache.Entry
}

// Generator synthesizes test source code from recorded steps.
type Generator struct {
	steps StepSource
	llm   schemas.LLMClient
	log   *zap.Logger
}

// NewGenerator wires a generator. steps and llm may each be nil: steps nil
// means no recorder is configured, llm nil means only the native framework
// can be requested.
func NewGenerator(steps StepSource, llm schemas.LLMClient, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		steps: steps,
		llm:   llm,
		log:   logger.Named("codegen"),
	}
}

// GenerateCode renders the recorded steps as test source for the given
// language, then converts it to testFramework when that differs from the
// native one. The language is validated before any step is translated.
func (g *Generator) GenerateCode(ctx context.Context, language, testFramework string) (string, error) {
	if language != LanguageTypeScript && language != LanguagePython {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	entries := g.recordedSteps()
	code := g.renderNative(language, entries)

	if testFramework == "" || testFramework == NativeFramework {
		return code, nil
	}

	if g.llm == nil {
		return "", fmt.Errorf("conversion to framework %q requires an LLM client and none is configured", testFramework)
	}

	correlationID := uuid.NewString()
	g.log.Info("Converting generated code to non-native framework",
		zap.String("framework", testFramework),
		zap.String("correlationId", correlationID))

	// Collaborator failures propagate unchanged; there is no retry here.
	return ConvertCode(ctx, code, testFramework, g.llm, correlationID, g.log)
}

// recordedSteps fetches the step sequence and re-sorts it by timestamp.
// The recorder already sorts, but the ordering contract belongs to this
// pipeline, not to whichever StepSource happens to be wired in.
func (g *Generator) recordedSteps() []cache.Entry {
	if g.steps == nil {
		return nil
	}
	entries := g.steps.GetAllActions()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})
	return entries
}

// renderNative emits the full native program: skeleton, one statement per
// usable step, teardown.
func (g *Generator) renderNative(language string, entries []cache.Entry) string {
	navigationURL := ""
	if len(entries) > 0 {
		navigationURL = entries[0].Data.URL
	}

	var lines []string
	switch language {
	case LanguageTypeScript:
		lines = g.renderTypeScript(navigationURL, entries)
	case LanguagePython:
		lines = g.renderPython(navigationURL, entries)
	}
	return strings.Join(lines, "\n")
}

func (g *Generator) renderTypeScript(navigationURL string, entries []cache.Entry) []string {
	lines := []string{
		"import { chromium } from 'playwright';",
		"",
		"(async () => {",
		"  const browser = await chromium.launch();",
		"  const context = await browser.newContext();",
		"  const page = await context.newPage();",
		fmt.Sprintf("  await page.goto(%s);", quote(navigationURL)),
	}

	for _, entry := range entries {
		stmt, ok := g.typeScriptStatement(entry.Data)
		if !ok {
			continue
		}
		lines = append(lines, "  "+stmt)
	}

	lines = append(lines,
		"  await context.close();",
		"  await browser.close();",
		"})();",
	)
	return lines
}

func (g *Generator) renderPython(navigationURL string, entries []cache.Entry) []string {
	lines := []string{
		"from playwright.sync_api import sync_playwright",
		"",
		"with sync_playwright() as p:",
		"    browser = p.chromium.launch()",
		"    context = browser.new_context()",
		"    page = context.new_page()",
		fmt.Sprintf("    page.goto(%s)", quote(navigationURL)),
	}

	for _, entry := range entries {
		stmt, ok := g.pythonStatement(entry.Data)
		if !ok {
			continue
		}
		lines = append(lines, "    "+stmt)
	}

	lines = append(lines,
		"    context.close()",
		"    browser.close()",
	)
	return lines
}

// typeScriptStatement maps one recorded step to a TypeScript statement.
// Steps without a usable locator and unknown command methods are skipped,
// by policy rather than by error: upstream recorders evolve their command
// vocabulary independently of this generator.
func (g *Generator) typeScriptStatement(data schemas.ActionEntry) (string, bool) {
	selector, ok := stepSelector(data)
	if !ok {
		return "", false
	}
	cmd := data.PlaywrightCommand
	switch cmd.Method {
	case "click":
		return fmt.Sprintf("await page.click(%s);", quote(selector)), true
	case "fill":
		return fmt.Sprintf("await page.fill(%s, %s);", quote(selector), quote(firstArg(cmd.Args))), true
	case "press":
		return fmt.Sprintf("await page.keyboard.press(%s);", quote(firstArg(cmd.Args))), true
	case "type":
		return fmt.Sprintf("await page.type(%s, %s);", quote(selector), quote(firstArg(cmd.Args))), true
	case "scrollIntoView":
		return fmt.Sprintf("await page.locator(%s).scrollIntoViewIfNeeded();", quote(selector)), true
	default:
		g.log.Debug("Skipping step with unknown command method", zap.String("method", cmd.Method))
		return "", false
	}
}

// pythonStatement maps one recorded step to a Python statement under the
// same skip policy as the TypeScript renderer.
func (g *Generator) pythonStatement(data schemas.ActionEntry) (string, bool) {
	selector, ok := stepSelector(data)
	if !ok {
		return "", false
	}
	cmd := data.PlaywrightCommand
	switch cmd.Method {
	case "click":
		return fmt.Sprintf("page.click(%s)", quote(selector)), true
	case "fill":
		return fmt.Sprintf("page.fill(%s, %s)", quote(selector), quote(firstArg(cmd.Args))), true
	case "press":
		return fmt.Sprintf("page.keyboard.press(%s)", quote(firstArg(cmd.Args))), true
	case "type":
		return fmt.Sprintf("page.type(%s, %s)", quote(selector), quote(firstArg(cmd.Args))), true
	case "scrollIntoView":
		return fmt.Sprintf("page.locator(%s).scroll_into_view_if_needed()", quote(selector)), true
	default:
		g.log.Debug("Skipping step with unknown command method", zap.String("method", cmd.Method))
		return "", false
	}
}

// stepSelector resolves the authoritative locator for a step: the first
// xpath candidate, rewritten to the native selector form. Steps without any
// xpath are skipped.
func stepSelector(data schemas.ActionEntry) (string, bool) {
	if len(data.Xpaths) == 0 || data.Xpaths[0] == "" {
		return "", false
	}
	return NativeSelector(data.Xpaths[0]), true
}

// firstArg returns the first command argument or empty string; recorded
// steps are best effort and may arrive with fewer arguments than the method
// normally carries.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// quote renders a string as a single quoted literal valid in both target
// languages.
func quote(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "'", `\'`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	return "'" + escaped + "'"
}
