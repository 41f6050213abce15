package evalcmd

import (
	"context"
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/linker/internal/domain"
	"github.com/lehigh-university-libraries/linker/internal/linkage"
)

func executeScore(ctx context.Context, w io.Writer, configPath string, mappings []string, appendLog, verbose bool) error {
	ctx, cfg, err := setup(ctx, configPath, verbose)
	if err != nil {
		return err
	}
	defer syncLogger(ctx)

	issues := domain.NewIssues()
	for _, path := range mappings {
		if err := ctx.Err(); err != nil {
			return err
		}
		score, err := linkage.ScoreMapping(ctx, cfg, path, appendLog, issues)
		if err != nil {
			return fmt.Errorf("failed to score %s: %w", path, err)
		}
		score.Print(w)
		fmt.Fprintln(w)
	}
	printIssues(w, issues)
	return nil
}
