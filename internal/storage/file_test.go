package storage

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ngascope/ngascope/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testReport() *types.Report {
	posts := []types.ClassifiedPost{
		{
			PostStub: types.PostStub{
				Title:   "这季度的新番讨论",
				URL:     "https://ngabbs.com/read.php?tid=100",
				TopicID: "100",
				Author:  "甲",
			},
			Content: "新番正文",
			Classification: types.ClassificationResult{
				Categories: []string{"动画/番剧"},
				Keywords:   []string{"新番", "声优"},
				Confidence: 0.9,
			},
			ProcessedAt: time.Now(),
		},
		{
			PostStub: types.PostStub{
				Title:   "手游开荒求助",
				URL:     "https://ngabbs.com/read.php?tid=200",
				TopicID: "200",
				Author:  "乙",
			},
			Classification: types.ClassificationResult{
				Categories: []string{"游戏"},
				Keywords:   []string{},
				Confidence: 0.3,
			},
			ProcessedAt: time.Now(),
		},
	}
	return &types.Report{
		Posts: posts,
		Statistics: types.Statistics{
			TotalPosts: 2,
			Categories: map[string]int{"动画/番剧": 1, "游戏": 1},
			Keywords:   map[string]int{"新番": 1, "声优": 1},
			Authors:    map[string]int{"甲": 1, "乙": 1},
			Summary:    types.Summary{MostCommonCategory: "动画/番剧", ClassificationRate: 0.5},
		},
		GeneratedAt: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestWriteJSON(t *testing.T) {
	w, err := NewFileWriter(t.TempDir(), testLogger)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	path, err := w.WriteJSON(testReport())
	if err != nil {
		t.Fatalf("write error: %v", err)
	}
	if !strings.HasSuffix(path, "nga_classification_20240601_123000.json") {
		t.Errorf("unexpected file name %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var got types.Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("written JSON unparseable: %v", err)
	}
	if len(got.Posts) != 2 {
		t.Errorf("round-tripped %d posts", len(got.Posts))
	}
	if got.Posts[0].Classification.Category() != "动画/番剧" {
		t.Errorf("classification lost: %v", got.Posts[0].Classification)
	}
	// Chinese text must not be HTML-escaped in the output.
	if strings.Contains(string(data), `\u`) {
		t.Errorf("output is escaped: %s", data)
	}
}

func TestWriteCSV(t *testing.T) {
	w, err := NewFileWriter(t.TempDir(), testLogger)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	path, err := w.WriteCSV(testReport())
	if err != nil {
		t.Fatalf("write error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("written CSV unparseable: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "title" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][3] != "动画/番剧" {
		t.Errorf("categories column = %q", rows[1][3])
	}
	if rows[1][4] != "新番; 声优" {
		t.Errorf("keywords column = %q", rows[1][4])
	}
}

func TestWriteSummary(t *testing.T) {
	w, err := NewFileWriter(t.TempDir(), testLogger)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	path, err := w.WriteSummary(testReport())
	if err != nil {
		t.Fatalf("write error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	for _, want := range []string{"总帖子数: 2", "动画/番剧: 1 (50.0%)", "热门关键词", "活跃作者"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestSortByCount(t *testing.T) {
	got := sortByCount(map[string]int{"b": 2, "c": 1, "a": 2})
	if got[0].key != "a" || got[1].key != "b" || got[2].key != "c" {
		t.Errorf("unexpected order %v", got)
	}
}
