package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/physbench/physbench/internal/dataset"
	"github.com/physbench/physbench/internal/models"
)

// ErrDatasetCovered means no unprocessed question could be found: the
// sequential cursor ran out, or every draw within the attempt budget hit a
// question that was already claimed.
var ErrDatasetCovered = errors.New("orchestration: no unprocessed question left")

// selectQuestion draws until it claims a question nobody has processed.
// A random source is reset once per call when it runs dry; a sequential
// source running dry ends the search.
func (o *Orchestrator) selectQuestion(ctx context.Context, category models.Category, mode models.DrawMode) (models.Question, error) {
	src, err := o.source(category)
	if err != nil {
		return models.Question{}, err
	}

	attempts := o.cfg.MaxDrawAttempts()
	reset := false
	for draws := 0; draws < attempts; {
		if err := ctx.Err(); err != nil {
			return models.Question{}, err
		}

		q, err := draw(src, mode)
		if errors.Is(err, dataset.ErrExhausted) {
			if mode == models.DrawSequential || reset {
				return models.Question{}, fmt.Errorf("%w: %s source exhausted", ErrDatasetCovered, category)
			}
			src.ResetRandom()
			reset = true
			continue
		}
		if err != nil {
			return models.Question{}, err
		}
		draws++

		owned, err := o.claims.Claim(ctx, category, q.ID)
		if err != nil {
			return models.Question{}, fmt.Errorf("claiming question %s: %w", q.ID, err)
		}
		if owned {
			return q, nil
		}
		o.logger.Debug("question_already_processed",
			slog.String("category", string(category)),
			slog.String("question_id", q.ID))
	}

	return models.Question{}, fmt.Errorf("%w after %d draws", ErrDatasetCovered, attempts)
}

func draw(src dataset.QuestionSource, mode models.DrawMode) (models.Question, error) {
	if mode == models.DrawSequential {
		return src.DrawNext()
	}
	return src.DrawRandom()
}
