package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/reswave/internal/logger"
	"github.com/spigell/reswave/internal/optimizer"
	"github.com/spigell/reswave/internal/utils"
	"go.uber.org/zap"
)

const defaultMaxLogLength = 200

// Rewriter is an optimizer.Attempter that rewrites a local resume section by
// section through a Generator. The resource id is the resume path.
type Rewriter struct {
	generator Generator
	jobTitle  string
	logger    *zap.Logger
	maxLogLen int
	now       func() time.Time
}

func NewRewriter(generator Generator, jobTitle string, maxLogLength int, log *zap.Logger) *Rewriter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Rewriter{
		generator: generator,
		jobTitle:  jobTitle,
		logger:    log,
		maxLogLen: maxLogLength,
		now:       time.Now,
	}
}

func (r *Rewriter) Attempt(ctx context.Context, req optimizer.Request) (*optimizer.Result, error) {
	started := r.now()
	log := logger.WithFields(r.logger, logger.OperationFields(req.ResourceID, req.InvocationID)...)

	text, err := ExtractText(req.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("read resume %s: %w", req.ResourceID, err)
	}

	sections := ClassifySections(text)
	if len(sections) == 0 {
		return nil, &optimizer.LogicalFailureError{Message: "resume has no text"}
	}

	optimized := make([]Section, 0, len(sections))
	for _, section := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prompt := SectionPrompt(section, r.jobTitle)
		log.Debug("generate section",
			zap.String("section", section.Name),
			zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
			zap.String("prompt_preview", utils.TruncateForLog(prompt, r.maxLogLen)),
		)

		raw, err := r.generator.GenerateContent(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("optimize section %s: %w", section.Name, err)
		}

		cleaned := CleanGenerated(raw)
		log.Debug("section generated",
			zap.String("section", section.Name),
			zap.Int("response_length", utf8.RuneCountInString(cleaned)),
			zap.String("response_preview", utils.TruncateForLog(cleaned, r.maxLogLen)),
		)

		if strings.TrimSpace(cleaned) == "" {
			return nil, &optimizer.LogicalFailureError{
				Message: fmt.Sprintf("empty output for section %s", section.Name),
			}
		}

		optimized = append(optimized, Section{Name: section.Name, Content: cleaned})
	}

	return &optimizer.Result{
		OptimizedContent: Assemble(optimized),
		Metadata: &optimizer.Metadata{
			RetryCount:      req.Attempt,
			ProcessingTime:  float64(r.now().Sub(started).Milliseconds()),
			ChunksProcessed: len(optimized),
			TotalChunks:     len(sections),
		},
	}, nil
}
