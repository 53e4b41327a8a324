// package formatter exports reviews to various formats (CSV, Markdown, JSON, plain text)
// and formats catalog values for display.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/musicblah/internal/models"
)

// ReviewExport is a user's reviews prepared for export.
type ReviewExport struct {
	User    *models.User
	Reviews []*models.Post
}

// ExportMetadata summarizes a [ReviewExport].
type ExportMetadata struct {
	Username      string    `json:"username"`
	Name          string    `json:"name"`
	ReviewCount   int       `json:"reviewCount"`
	AverageRating float64   `json:"averageRating"`
	ExportedAt    time.Time `json:"exportedAt"`
}

// Metadata computes the export summary.
func (e *ReviewExport) Metadata() ExportMetadata {
	meta := ExportMetadata{ReviewCount: len(e.Reviews), ExportedAt: time.Now().UTC()}
	if e.User != nil {
		meta.Username = e.User.Username
		meta.Name = e.User.Name
	}

	total := 0
	for _, r := range e.Reviews {
		total += r.Rating
	}
	if len(e.Reviews) > 0 {
		meta.AverageRating = float64(total) / float64(len(e.Reviews))
	}
	return meta
}

func (e *ReviewExport) base() string {
	if e.User != nil && e.User.Username != "" {
		return e.User.Username
	}
	return "reviews"
}

func itemKind(p *models.Post) string {
	if p.Track != nil {
		return "track"
	}
	return "album"
}

// ExportToCSV converts a ReviewExport to CSV format with columns: ID, Date, Type, Title, Artist, Rating, Text
func ExportToCSV(export *ReviewExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Date", "Type", "Title", "Artist", "Rating", "Text"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range export.Reviews {
		record := []string{
			r.ID(),
			r.CreatedAt().Format(time.DateOnly),
			itemKind(r),
			r.ItemName(),
			r.ArtistName(),
			strconv.Itoa(r.Rating),
			r.Text,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a ReviewExport to Markdown with an optional avatar image
func ExportToMarkdown(export *ReviewExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer
	meta := export.Metadata()

	fmt.Fprintf(&buf, "# Reviews by @%s\n\n", meta.Username)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Avatar](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Reviews**: %d\n", meta.ReviewCount)
	fmt.Fprintf(&buf, "**Average rating**: %.1f\n\n", meta.AverageRating)

	buf.WriteString("## Reviews\n\n")
	for i, r := range export.Reviews {
		fmt.Fprintf(&buf, "%d. %s - %s %s\n", i+1, r.ArtistName(), r.ItemName(), Stars(r.Rating))
		if text := strings.TrimSpace(r.Text); text != "" {
			fmt.Fprintf(&buf, "   > %s\n", strings.ReplaceAll(text, "\n", " "))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a ReviewExport to plain text format
func ExportToText(export *ReviewExport) ([]byte, error) {
	var buf bytes.Buffer
	meta := export.Metadata()

	fmt.Fprintf(&buf, "Reviews by %s (@%s)\n", meta.Name, meta.Username)
	fmt.Fprintf(&buf, "Reviews: %d\n\n", meta.ReviewCount)

	for i, r := range export.Reviews {
		fmt.Fprintf(&buf, "%d. %s - %s [%d/5]\n", i+1, r.ArtistName(), r.ItemName(), r.Rating)
	}

	return buf.Bytes(), nil
}

type jsonReview struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"createdAt"`
	Rating    int              `json:"rating"`
	Text      string           `json:"text"`
	Album     *models.AlbumRef `json:"album,omitempty"`
	Track     *models.TrackRef `json:"track,omitempty"`
}

// ExportToJSON converts a ReviewExport to indented JSON with its metadata.
func ExportToJSON(export *ReviewExport) ([]byte, error) {
	out := struct {
		Metadata ExportMetadata `json:"metadata"`
		Reviews  []jsonReview   `json:"reviews"`
	}{Metadata: export.Metadata(), Reviews: make([]jsonReview, 0, len(export.Reviews))}

	for _, r := range export.Reviews {
		out.Reviews = append(out.Reviews, jsonReview{
			ID: r.ID(), CreatedAt: r.CreatedAt(), Rating: r.Rating, Text: r.Text, Album: r.Album, Track: r.Track,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ReviewsFile  string
	MetadataFile string
}

// WriteCSVExport exports reviews to CSV format with accompanying metadata JSON file.
//
// Defaults to the username as the base filename & creates {base}_reviews.csv and {base}_metadata.json
func WriteCSVExport(export *ReviewExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.base()
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	reviewsFile := baseFilepath + "_reviews.csv"
	if err := os.WriteFile(reviewsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := json.MarshalIndent(export.Metadata(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		ReviewsFile:  reviewsFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Avatar    string
}

// WriteMarkdownExport exports reviews to Markdown in a dedicated directory.
//
// Directory name defaults to the username. When imageURL is an absolute http(s) URL the avatar is downloaded next to the README;
// download failures are reported in warn and do not abort the export.
func WriteMarkdownExport(export *ReviewExport, outputDir, imageURL string, warn io.Writer) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.base()
	}
	if warn == nil {
		warn = io.Discard
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var avatarFilename string
	if strings.HasPrefix(imageURL, "http://") || strings.HasPrefix(imageURL, "https://") {
		if imageData, err := DownloadImage(imageURL); err != nil {
			fmt.Fprintf(warn, "Warning: failed to download avatar: %v\n", err)
		} else {
			avatarFilename = "avatar.jpg"
			avatarPath := filepath.Join(outputDir, avatarFilename)
			if err := os.WriteFile(avatarPath, imageData, 0644); err != nil {
				fmt.Fprintf(warn, "Warning: failed to save avatar: %v\n", err)
				avatarFilename = ""
			} else {
				result.Avatar = avatarPath
				result.Files = append(result.Files, avatarPath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, avatarFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteTextExport exports reviews to plain text format.
//
// Defaults to {username}_reviews.txt as the filename.
func WriteTextExport(export *ReviewExport, path string) (string, error) {
	if path == "" {
		path = export.base() + "_reviews.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}
