package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ngascope/ngascope/internal/types"
)

// timestampLayout names report files uniquely per run.
const timestampLayout = "20060102_150405"

// FileWriter writes run reports to an output directory.
type FileWriter struct {
	dir    string
	logger *slog.Logger
}

// NewFileWriter creates the output directory if needed.
func NewFileWriter(dir string, logger *slog.Logger) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileWriter{
		dir:    dir,
		logger: logger.With("component", "file_writer"),
	}, nil
}

// WriteJSON writes the full report (posts + statistics) as indented JSON
// and returns the file path.
func (w *FileWriter) WriteJSON(report *types.Report) (string, error) {
	path := filepath.Join(w.dir, fmt.Sprintf("nga_classification_%s.json", report.GeneratedAt.Format(timestampLayout)))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return "", fmt.Errorf("encode JSON report: %w", err)
	}

	w.logger.Info("JSON report written", "path", path, "posts", len(report.Posts))
	return path, nil
}

// WriteCSV writes one row per classified post and returns the file path.
func (w *FileWriter) WriteCSV(report *types.Report) (string, error) {
	path := filepath.Join(w.dir, fmt.Sprintf("nga_classification_%s.csv", report.GeneratedAt.Format(timestampLayout)))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"title", "author", "url", "categories", "keywords", "confidence"}); err != nil {
		return "", err
	}

	for _, post := range report.Posts {
		row := []string{
			post.Title,
			post.Author,
			post.URL,
			strings.Join(post.Classification.Categories, "; "),
			strings.Join(post.Classification.Keywords, "; "),
			strconv.FormatFloat(post.Classification.Confidence, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return "", err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("write CSV report: %w", err)
	}

	w.logger.Info("CSV report written", "path", path, "posts", len(report.Posts))
	return path, nil
}

// WriteSummary writes the human-readable text digest: per-category
// percentages plus top-10 keywords and authors.
func (w *FileWriter) WriteSummary(report *types.Report) (string, error) {
	path := filepath.Join(w.dir, fmt.Sprintf("nga_summary_%s.txt", report.GeneratedAt.Format(timestampLayout)))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create summary file: %w", err)
	}
	defer f.Close()

	s := report.Statistics

	fmt.Fprintf(f, "NGA二次元国家地理版块内容分析报告\n")
	fmt.Fprintf(f, "生成时间: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(f, "%s\n\n", strings.Repeat("=", 50))
	fmt.Fprintf(f, "总帖子数: %d\n\n", s.TotalPosts)

	fmt.Fprintln(f, "分类统计:")
	for _, kc := range sortByCount(s.Categories) {
		percentage := 0.0
		if s.TotalPosts > 0 {
			percentage = float64(kc.count) / float64(s.TotalPosts) * 100
		}
		fmt.Fprintf(f, "  %s: %d (%.1f%%)\n", kc.key, kc.count, percentage)
	}

	fmt.Fprintln(f, "\n热门关键词:")
	for _, kc := range topN(sortByCount(s.Keywords), 10) {
		fmt.Fprintf(f, "  %s: %d\n", kc.key, kc.count)
	}

	fmt.Fprintln(f, "\n活跃作者:")
	for _, kc := range topN(sortByCount(s.Authors), 10) {
		fmt.Fprintf(f, "  %s: %d\n", kc.key, kc.count)
	}

	w.logger.Info("summary written", "path", path)
	return path, nil
}

type keyCount struct {
	key   string
	count int
}

// sortByCount orders map entries by descending count, breaking ties by key
// so output is stable.
func sortByCount(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func topN(entries []keyCount, n int) []keyCount {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}
