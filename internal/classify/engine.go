package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ngascope/ngascope/internal/types"
)

// promptTemplate instructs the model to pick exactly one taxonomy category
// and reply in JSON.
const promptTemplate = `请分析以下NGA论坛帖子的内容，判断其主要讨论的二次元内容类型。

帖子标题：%s
帖子内容：%s

请从以下分类中选择最合适的1个分类（只选择最主要的分类）：
1. 动画/番剧
2. 游戏
3. 漫画
4. 轻小说
5. 虚拟主播/VTuber
6. 手办/周边
7. 音乐/歌曲
8. 其他

同时请尝试提取具体的作品名称、角色名或其他关键词。

请以JSON格式回复，包含以下字段：
- categories: 分类列表
- keywords: 关键词列表
- confidence: 置信度(0-1)

示例格式：
{"categories": ["动画/番剧"], "keywords": ["某某动画", "某某角色"], "confidence": 0.9}
`

// FallbackConfidence signals reduced reliability when the keyword-matching
// path was used instead of the model's JSON.
const FallbackConfidence = 0.3

// Generator produces free-form text for a prompt. Satisfied by OllamaClient.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Engine classifies posts into the fixed taxonomy. Stateless across calls.
type Engine struct {
	llm    Generator
	logger *slog.Logger
}

// NewEngine creates a classification engine backed by the given generator.
func NewEngine(llm Generator, logger *slog.Logger) *Engine {
	return &Engine{
		llm:    llm,
		logger: logger.With("component", "classify_engine"),
	}
}

// Classify runs one title+content pair through the model and parses the
// result. The returned error only ever means "classification unavailable"
// (transport or timeout); malformed model output is absorbed by the
// fallback parser and never surfaces.
func (e *Engine) Classify(ctx context.Context, title, content string) (types.ClassificationResult, error) {
	prompt := fmt.Sprintf(promptTemplate, title, content)

	raw, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		return types.ClassificationResult{}, &types.ClassifyError{Title: title, Err: err}
	}
	return e.ParseResponse(raw), nil
}

// ParseResponse turns raw model output into a normalized result. The
// structured path extracts the first {...} span as JSON; anything that fails
// there goes through the keyword fallback, so a usable single-category
// result always comes back.
func (e *Engine) ParseResponse(raw string) types.ClassificationResult {
	span := extractJSON(raw)
	if span == "" {
		return e.FallbackParse(raw)
	}

	var parsed struct {
		Categories []string `json:"categories"`
		Keywords   []string `json:"keywords"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		e.logger.Warn("model JSON unparseable, using fallback", "error", err)
		return e.FallbackParse(raw)
	}

	result := types.ClassificationResult{
		Categories: parsed.Categories,
		Keywords:   parsed.Keywords,
		Confidence: 0.5,
	}
	if result.Categories == nil {
		result.Categories = []string{}
	}
	if result.Keywords == nil {
		result.Keywords = []string{}
	}
	if parsed.Confidence != nil {
		result.Confidence = *parsed.Confidence
	}

	// Mutual exclusivity: collapse to the first category, with a trace of
	// what was discarded.
	if len(result.Categories) > 1 {
		e.logger.Warn("model proposed multiple categories, keeping first",
			"kept", result.Categories[0],
			"discarded", result.Categories[1:],
		)
		result.Categories = result.Categories[:1]
	}

	return result
}

// FallbackParse assigns exactly one category by testing ordered keyword
// groups against the lower-cased response text, with the catch-all bucket
// when nothing matches.
func (e *Engine) FallbackParse(raw string) types.ClassificationResult {
	lower := strings.ToLower(raw)

	category := CategoryOther
	for _, rule := range fallbackRules {
		if containsAny(lower, rule.terms) {
			category = rule.category
			break
		}
	}

	result := types.ClassificationResult{
		Categories: []string{category},
		Keywords:   []string{},
		Confidence: FallbackConfidence,
	}
	e.logger.Debug("fallback classification", "category", category)
	return result
}

// BatchClassify applies Classify sequentially to every post, stamping a
// processing time. A post whose classification is unavailable still yields a
// record, defaulted to the catch-all category with zero confidence and an
// error marker. Every input produces exactly one output.
func (e *Engine) BatchClassify(ctx context.Context, posts []types.ClassifiedPost) []types.ClassifiedPost {
	results := make([]types.ClassifiedPost, 0, len(posts))

	for i, post := range posts {
		e.logger.Info("classifying post",
			"index", i+1,
			"total", len(posts),
			"title", truncateTitle(post.Title),
		)

		classification, err := e.Classify(ctx, post.Title, post.Content)
		post.ProcessedAt = time.Now()
		if err != nil {
			e.logger.Error("classification unavailable",
				"title", truncateTitle(post.Title),
				"url", post.URL,
				"error", err,
			)
			post.Classification = types.ClassificationResult{
				Categories: []string{CategoryOther},
				Keywords:   []string{},
				Confidence: 0,
			}
			post.Error = "分类失败"
		} else {
			post.Classification = classification
		}
		results = append(results, post)
	}

	return results
}

// extractJSON returns the first '{' through last '}' span, or "" when the
// text holds no such span.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// truncateTitle keeps log lines short while leaving enough to diagnose.
func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= 50 {
		return title
	}
	return string(runes[:50]) + "..."
}
