package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/musicblah/internal/formatter"
	"github.com/desertthunder/musicblah/internal/repositories"
	"github.com/desertthunder/musicblah/internal/shared"
	"github.com/urfave/cli/v3"
)

// ExportReviews writes all of a user's reviews in the requested format.
func (r *Runner) ExportReviews(ctx context.Context, cmd *cli.Command) error {
	username := cmd.String("user")
	format := cmd.String("format")
	output := cmd.String("output")

	db, err := r.database()
	if err != nil {
		return err
	}

	user, err := repositories.NewUserRepository(db).GetByUsername(username)
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", username, err)
	}
	reviews, err := repositories.NewPostRepository(db).ReviewsByUser(user.ID(), 0)
	if err != nil {
		return fmt.Errorf("failed to load reviews: %w", err)
	}

	export := &formatter.ReviewExport{User: user, Reviews: reviews}
	r.logger.Info("exporting reviews", "user", username, "count", len(reviews), "format", format)

	switch format {
	case "csv":
		result, err := formatter.WriteCSVExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d reviews\n", len(reviews))
		r.writePlain("  Reviews: %s\n", result.ReviewsFile)
		r.writePlain("  Metadata: %s\n", result.MetadataFile)
	case "markdown", "md":
		result, err := formatter.WriteMarkdownExport(export, output, user.Photo(), r.output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d reviews to %s\n", len(reviews), result.Directory)
		for _, f := range result.Files {
			r.writePlain("  %s\n", f)
		}
	case "json":
		data, err := formatter.ExportToJSON(export)
		if err != nil {
			return err
		}
		if output == "" {
			output = user.Username + "_reviews.json"
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write JSON file: %w", err)
		}
		r.writePlain("✓ Exported %d reviews to %s\n", len(reviews), output)
	case "text", "txt":
		path, err := formatter.WriteTextExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d reviews to %s\n", len(reviews), path)
	default:
		return fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, format)
	}
	return nil
}
