package formatter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/musicblah/internal/models"
	th "github.com/desertthunder/musicblah/internal/testing"
)

func testExport() *ReviewExport {
	user := models.NewUser(1, "Ana Souza", "ana", "ana@example.com")
	user.SetID("user1")

	albumReview := models.NewPost(1, models.KindReview, "user1", "Disco perfeito")
	albumReview.SetID("post1")
	albumReview.Rating = 5
	albumReview.Album = &models.AlbumRef{ID: "alb1", Name: "Dois", Artist: "Legião Urbana", ArtistID: "art1", Year: "1986"}

	trackReview := models.NewPost(2, models.KindReview, "user1", "Boa,\nmas longa")
	trackReview.SetID("post2")
	trackReview.Rating = 3
	trackReview.Track = &models.TrackRef{ID: "trk1", Name: "Faroeste Caboclo", Artist: "Legião Urbana", ArtistID: "art1"}

	return &ReviewExport{User: user, Reviews: []*models.Post{albumReview, trackReview}}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "ID,Date,Type,Title,Artist,Rating,Text") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "post1") {
			t.Errorf("CSV missing post1 ID")
		}
		if !strings.Contains(output, ",album,Dois,Legião Urbana,5,") {
			t.Errorf("CSV missing album review row, got: %s", output)
		}
		if !strings.Contains(output, ",track,Faroeste Caboclo,") {
			t.Errorf("CSV missing track review row, got: %s", output)
		}
		if !strings.Contains(output, "\"Boa,\nmas longa\"") {
			t.Errorf("CSV should quote text with commas, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without avatar", func(t *testing.T) {
			data, err := ExportToMarkdown(testExport(), "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			if !strings.Contains(output, "# Reviews by @ana") {
				t.Errorf("Markdown missing title, got: %s", output)
			}
			if strings.Contains(output, "![Avatar]") {
				t.Error("Markdown should not reference an avatar")
			}
			if !strings.Contains(output, "**Average rating**: 4.0") {
				t.Errorf("Markdown missing average rating, got: %s", output)
			}
			if !strings.Contains(output, "1. Legião Urbana - Dois ★★★★★") {
				t.Errorf("Markdown missing first review, got: %s", output)
			}
			if !strings.Contains(output, "   > Boa, mas longa") {
				t.Errorf("Markdown should flatten review text, got: %s", output)
			}
		})

		t.Run("with avatar", func(t *testing.T) {
			data, err := ExportToMarkdown(testExport(), "avatar.jpg")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if !strings.Contains(string(data), "![Avatar](avatar.jpg)") {
				t.Errorf("Markdown missing avatar reference, got: %s", data)
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Reviews by Ana Souza (@ana)") {
			t.Errorf("Text missing header, got: %s", output)
		}
		if !strings.Contains(output, "2. Legião Urbana - Faroeste Caboclo [3/5]") {
			t.Errorf("Text missing second review, got: %s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(testExport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded struct {
			Metadata ExportMetadata `json:"metadata"`
			Reviews  []struct {
				ID     string           `json:"id"`
				Rating int              `json:"rating"`
				Album  *models.AlbumRef `json:"album"`
				Track  *models.TrackRef `json:"track"`
			} `json:"reviews"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}

		if decoded.Metadata.Username != "ana" || decoded.Metadata.ReviewCount != 2 {
			t.Errorf("unexpected metadata: %+v", decoded.Metadata)
		}
		if len(decoded.Reviews) != 2 {
			t.Fatalf("expected 2 reviews, got %d", len(decoded.Reviews))
		}
		if decoded.Reviews[0].Album == nil || decoded.Reviews[0].Track != nil {
			t.Errorf("first review should only carry an album: %+v", decoded.Reviews[0])
		}
	})

	t.Run("Metadata with no reviews", func(t *testing.T) {
		meta := (&ReviewExport{}).Metadata()
		if meta.ReviewCount != 0 || meta.AverageRating != 0 {
			t.Errorf("unexpected metadata: %+v", meta)
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(""); err == nil {
			t.Error("expected error for empty URL")
		}
	})

	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpeg-bytes"))
		}))
		defer srv.Close()

		data, err := DownloadImage(srv.URL)
		if err != nil {
			t.Fatalf("DownloadImage failed: %v", err)
		}
		if string(data) != "jpeg-bytes" {
			t.Errorf("unexpected data: %q", data)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		if _, err := DownloadImage(srv.URL); err == nil {
			t.Error("expected error for 404")
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			wd := th.MustGetwd(t)
			th.MustChdir(t, t.TempDir())
			defer th.MustChdir(t, wd)

			result, err := WriteCSVExport(testExport(), "")
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			if result.ReviewsFile != "ana_reviews.csv" {
				t.Errorf("expected ana_reviews.csv, got %s", result.ReviewsFile)
			}
			if result.MetadataFile != "ana_metadata.json" {
				t.Errorf("expected ana_metadata.json, got %s", result.MetadataFile)
			}
			th.AssertFileExists(t, result.ReviewsFile)
			th.AssertFileExists(t, result.MetadataFile)
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "export")

			result, err := WriteCSVExport(testExport(), base)
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			content := th.MustReadFile(t, result.MetadataFile)
			if !strings.Contains(content, `"reviewCount": 2`) {
				t.Errorf("metadata missing review count: %s", content)
			}
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("WithAvatar", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("img"))
			}))
			defer srv.Close()

			dir := filepath.Join(t.TempDir(), "out")
			result, err := WriteMarkdownExport(testExport(), dir, srv.URL+"/a.jpg", nil)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}

			th.AssertDirExists(t, dir)
			th.AssertFileExists(t, filepath.Join(dir, "README.md"))
			th.AssertFileExists(t, result.Avatar)
			if len(result.Files) != 2 {
				t.Errorf("expected 2 files, got %v", result.Files)
			}
			if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "README.md")), "![Avatar](avatar.jpg)") {
				t.Error("README should reference the downloaded avatar")
			}
		})

		t.Run("RelativeAvatarIsSkipped", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			result, err := WriteMarkdownExport(testExport(), dir, models.DefaultPhotoURL, nil)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if result.Avatar != "" {
				t.Errorf("expected no avatar, got %s", result.Avatar)
			}
		})

		t.Run("FailedDownloadWarns", func(t *testing.T) {
			srv := httptest.NewServer(http.NotFoundHandler())
			defer srv.Close()

			var warn strings.Builder
			dir := filepath.Join(t.TempDir(), "out")
			if _, err := WriteMarkdownExport(testExport(), dir, srv.URL, &warn); err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if !strings.Contains(warn.String(), "failed to download avatar") {
				t.Errorf("expected warning, got %q", warn.String())
			}
		})
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reviews.txt")
		got, err := WriteTextExport(testExport(), path)
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("text file not written: %v", err)
		}
	})
}
