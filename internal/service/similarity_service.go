package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"interview_bot_backend/internal/config"
	"interview_bot_backend/internal/util"
	"interview_bot_backend/pkg/monitoring"
	"io"
	"math"
	"net/http"
	"time"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// SimilarityService 语义相似度打分，基于向量接口的余弦相似度。
// 向量接口不可用时返回 ErrScoringUnavailable，调用方决定是否重试。
type SimilarityService struct {
	config config.AIConfig
	client *http.Client
}

func NewSimilarityService(cfg config.AIConfig) *SimilarityService {
	return &SimilarityService{
		config: cfg,
		client: &http.Client{},
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Score 两段文本的余弦相似度，范围 [-1, 1]
func (s *SimilarityService) Score(ctx context.Context, a, b string) (float64, error) {
	vectors, err := s.embed(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	if len(vectors) != 2 {
		return 0, fmt.Errorf("%w: expected 2 embeddings, got %d", util.ErrScoringUnavailable, len(vectors))
	}
	return cosineSimilarity(vectors[0], vectors[1]), nil
}

func (s *SimilarityService) embed(ctx context.Context, inputs []string) ([][]float64, error) {
	reqBody := embeddingRequest{
		Model: s.config.EmbeddingModel,
		Input: inputs,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	monitoring.ObserveUpstream("embedding", start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrScoringUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", util.ErrScoringUnavailable, resp.StatusCode, string(body))
	}

	var result embeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrScoringUnavailable, err)
	}
	if len(result.Data) != len(inputs) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", util.ErrScoringUnavailable, len(inputs), len(result.Data))
	}

	// 接口不保证返回顺序，按index排列
	vectors := make([][]float64, len(inputs))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(inputs) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", util.ErrScoringUnavailable, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FuzzyRatio 归一化后的编辑距离比值（0-100）
func FuzzyRatio(a, b string) int {
	return fuzzy.Ratio(util.NormalizeText(a), util.NormalizeText(b))
}
