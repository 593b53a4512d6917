package service

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/reframe/internal/ai"
	"github.com/xxxsen/reframe/internal/corpus"
	"github.com/xxxsen/reframe/internal/model"
	appErr "github.com/xxxsen/reframe/internal/pkg/errors"
)

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// AugmentService asks an LLM for synthetic example sentences per distortion
// so that thin classes get more training rows.
type AugmentService struct {
	generator ai.IGenerator
	timeout   time.Duration
}

func NewAugmentService(generator ai.IGenerator, timeout time.Duration) *AugmentService {
	return &AugmentService{generator: generator, timeout: timeout}
}

func (s *AugmentService) Generate(ctx context.Context, perLabel int) ([]corpus.LabeledRow, error) {
	if s.generator == nil {
		return nil, ai.ErrUnavailable
	}
	if perLabel <= 0 || perLabel > 200 {
		return nil, fmt.Errorf("%w: per-label count must be within [1, 200]", appErr.ErrInvalid)
	}
	rows := make([]corpus.LabeledRow, 0, perLabel*len(model.Distortions))
	seen := make(map[string]bool)
	for _, d := range model.Distortions {
		logger := logutil.GetLogger(ctx).With(zap.String("label", d.Label))
		out, err := s.generate(ctx, buildAugmentPrompt(d, perLabel))
		if err != nil {
			logger.Error("generate examples failed", zap.Error(err))
			return nil, err
		}
		added := 0
		for _, sentence := range parseExamples(out) {
			key := strings.ToLower(sentence)
			if seen[key] {
				continue
			}
			seen[key] = true
			rows = append(rows, corpus.LabeledRow{Text: sentence, Label: d.Label})
			added++
			if added >= perLabel {
				break
			}
		}
		logger.Info("examples generated", zap.Int("count", added))
	}
	return rows, nil
}

// WriteCSV generates rows and writes them in the augmented dataset format.
func (s *AugmentService) WriteCSV(ctx context.Context, w io.Writer, perLabel int) (int, error) {
	rows, err := s.Generate(ctx, perLabel)
	if err != nil {
		return 0, err
	}
	if err := corpus.WriteLabeled(w, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *AugmentService) generate(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	out, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return out, nil
}

func buildAugmentPrompt(d model.Distortion, n int) string {
	return fmt.Sprintf(`You are helping build a training set for a cognitive distortion classifier.
Write %d different short first-person sentences that clearly show the distortion below.
- One sentence per line.
- No numbering, quotes or explanations.
- Vary the topic: work, school, family, friends, health.

DISTORTION: %s
DEFINITION: %s`, n, d.Label, d.Definition)
}

func parseExamples(output string) []string {
	lines := strings.Split(output, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Trim(strings.TrimSpace(line), `"'“”`)
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		out = append(out, line)
	}
	return out
}
