package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
)

// Accepted 是通过过滤的候选事实，附带写入时使用的 meta。
type Accepted struct {
	Kind    models.Kind
	Content string
	Score   float64
	Hash    string
	Meta    map[string]interface{}
}

// ContentHash 计算 sha256(userID|kind|normalized content) 的十六进制表示。
func ContentHash(userID string, kind models.Kind, content string) string {
	sum := sha256.Sum256([]byte(userID + "|" + string(kind) + "|" + models.NormalizeContent(content)))
	return hex.EncodeToString(sum[:])
}

// FilterCandidates 按顺序执行：长度过滤、分数过滤、批内去重、计算 hash。
// 批内去重以 (kind, 小写 content) 为键，保留第一次出现的条目。
func FilterCandidates(userID string, candidates []models.CandidateFact, minScore float64, minContentLength int) []Accepted {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Accepted, 0, len(candidates))

	for _, c := range candidates {
		content := models.NormalizeContent(c.Content)
		if utf8.RuneCountInString(content) < minContentLength {
			continue
		}
		if c.Score < minScore {
			continue
		}
		kind := models.NormalizeKind(string(c.Kind))
		key := string(kind) + "\x00" + strings.ToLower(content)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		hash := ContentHash(userID, kind, content)
		out = append(out, Accepted{
			Kind:    kind,
			Content: content,
			Score:   c.Score,
			Hash:    hash,
			Meta: map[string]interface{}{
				models.MetaSource: models.SourceAuto,
				models.MetaScore:  c.Score,
				models.MetaHash:   hash,
			},
		})
	}
	return out
}
