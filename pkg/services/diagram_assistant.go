package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
	"github.com/sketchwork-app/sketchwork-engine/pkg/llm"
	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
	"github.com/sketchwork-app/sketchwork-engine/pkg/prompts"
	"github.com/sketchwork-app/sketchwork-engine/pkg/retry"
)

// Generation gets a slightly higher temperature than editing: a fresh
// diagram benefits from some latitude, while an edit must stay close to
// the document it was given.
const (
	generateTemperature = 0.3
	editTemperature     = 0.2
)

// typeDetectionOrder fixes the tie-break for DetermineType: earlier types
// win ties, and the database type is the fallback when nothing matches.
var typeDetectionOrder = []string{
	models.DiagramTypeER,
	models.DiagramTypeUseCase,
	models.DiagramTypeClass,
}

// typeKeywords maps each diagram type to request phrases that suggest it.
var typeKeywords = map[string][]string{
	models.DiagramTypeER:      {"database", "table", "entity", "schema", "column", "foreign key", "er diagram", "erd"},
	models.DiagramTypeUseCase: {"use case", "usecase", "actor", "scenario", "user interaction"},
	models.DiagramTypeClass:   {"class", "interface", "inheritance", "method", "attribute", "object model"},
}

// DiagramAssistant turns free-form text into diagram documents through an
// LLM. Generate builds a document from scratch; Edit asks the model for a
// change set and applies it to the given document, so untouched content
// survives the round trip verbatim.
type DiagramAssistant interface {
	// Generate produces a new document of the given diagram type from a
	// free-form request. The result is the kind's parsed document type.
	Generate(ctx context.Context, diagramType, request string) (any, error)

	// Edit applies a free-form instruction to an existing document and
	// returns the updated, validated document.
	Edit(ctx context.Context, diagramType, document, instruction string) (any, error)

	// DetermineType infers the diagram type a free-form request asks for.
	DetermineType(request string) string
}

type diagramAssistant struct {
	client   llm.LLMClient
	kinds    map[string]DiagramKind
	retryCfg *retry.Config
	logger   *zap.Logger
}

// NewDiagramAssistant creates an assistant backed by the given LLM client.
// A nil retryCfg selects the default retry policy.
func NewDiagramAssistant(client llm.LLMClient, retryCfg *retry.Config, logger *zap.Logger) DiagramAssistant {
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &diagramAssistant{
		client:   client,
		kinds:    builtinKinds(),
		retryCfg: retryCfg,
		logger:   logger.Named("diagram-assistant"),
	}
}

var _ DiagramAssistant = (*diagramAssistant)(nil)

func (a *diagramAssistant) Generate(ctx context.Context, diagramType, request string) (any, error) {
	kind, ok := a.kinds[diagramType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedDiagramType, diagramType)
	}

	prompt := prompts.BuildGeneratePrompt(diagramType, request)
	systemMessage := prompts.BuildGenerateSystemMessage(diagramType)
	ctx = llm.WithOperation(ctx, "diagram-generate")

	start := time.Now()
	var doc any
	err := retry.DoIfRetryable(ctx, a.retryCfg, func() error {
		result, err := a.client.GenerateResponse(ctx, prompt, systemMessage, generateTemperature)
		if err != nil {
			return err
		}
		parsed, err := parseDiagramResponse(kind, result.Content)
		if err != nil {
			return err
		}
		doc = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate diagram: %w", err)
	}

	a.logger.Info("diagram generated",
		zap.String("diagram_type", diagramType),
		zap.String("diagram_name", kind.DocumentName(doc)),
		zap.Duration("elapsed", time.Since(start)))
	return doc, nil
}

func (a *diagramAssistant) Edit(ctx context.Context, diagramType, document, instruction string) (any, error) {
	kind, ok := a.kinds[diagramType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedDiagramType, diagramType)
	}
	if _, err := kind.Parse(document); err != nil {
		return nil, fmt.Errorf("edit diagram: %w", err)
	}

	prompt := prompts.BuildEditPrompt(diagramType, document, instruction)
	systemMessage := prompts.BuildEditSystemMessage(diagramType)
	ctx = llm.WithOperation(ctx, "diagram-edit")

	start := time.Now()
	var doc any
	err := retry.DoIfRetryable(ctx, a.retryCfg, func() error {
		result, err := a.client.GenerateResponse(ctx, prompt, systemMessage, editTemperature)
		if err != nil {
			return err
		}
		// Each attempt starts from a fresh parse: applying a change set
		// mutates the document, and a failed attempt must not leak partial
		// changes into the next one.
		current, err := kind.Parse(document)
		if err != nil {
			return err
		}
		updated, err := applyChangeSet(current, result.Content)
		if err != nil {
			return llm.NewError(llm.ErrorTypeUnknown, "change set could not be applied", true, err)
		}
		doc = updated
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("edit diagram: %w", err)
	}

	a.logger.Info("diagram edited",
		zap.String("diagram_type", diagramType),
		zap.String("diagram_name", kind.DocumentName(doc)),
		zap.Duration("elapsed", time.Since(start)))
	return doc, nil
}

func (a *diagramAssistant) DetermineType(request string) string {
	text := strings.ToLower(request)
	best := models.DiagramTypeER
	bestScore := 0
	for _, diagramType := range typeDetectionOrder {
		score := 0
		for _, keyword := range typeKeywords[diagramType] {
			if strings.Contains(text, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = diagramType
			bestScore = score
		}
	}
	return best
}

// parseDiagramResponse extracts the JSON payload from a model response and
// parses it with the kind's codec. Failures are flagged retryable so the
// caller's retry loop samples the model again instead of giving up on one
// malformed response.
func parseDiagramResponse(kind DiagramKind, content string) (any, error) {
	jsonStr, err := llm.ExtractJSON(content)
	if err != nil {
		return nil, llm.NewError(llm.ErrorTypeUnknown, "response carried no JSON", true, err)
	}
	doc, err := kind.Parse(jsonStr)
	if err != nil {
		return nil, llm.NewError(llm.ErrorTypeUnknown, "response document invalid", true, err)
	}
	return doc, nil
}
