package models

import (
	"strings"
	"time"
)

// Kind 是记忆条目的分类。
type Kind string

const (
	KindProfile    Kind = "profile"
	KindPreference Kind = "preference"
	KindFact       Kind = "fact"
	KindTask       Kind = "task"
	KindCompany    Kind = "company"
	KindContact    Kind = "contact"
	KindNote       Kind = "note"
)

var validKinds = map[Kind]struct{}{
	KindProfile:    {},
	KindPreference: {},
	KindFact:       {},
	KindTask:       {},
	KindCompany:    {},
	KindContact:    {},
	KindNote:       {},
}

// NormalizeKind 将任意字符串映射到合法的 Kind，未知值一律视为 note。
func NormalizeKind(s string) Kind {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validKinds[k]; ok {
		return k
	}
	return KindNote
}

// Memory 是持久化的一条用户长期记忆。
// 创建后不会被修改或删除。
type Memory struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	Kind      Kind                   `json:"kind"`
	Content   string                 `json:"content"`
	Embedding []float32              `json:"-"`
	Meta      map[string]interface{} `json:"meta"`
	CreatedAt time.Time              `json:"created_at"`
}

// CandidateFact 是抽取器产出的候选事实，尚未过滤。
type CandidateFact struct {
	Kind    Kind    `json:"kind"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Recall 是一次向量检索的命中结果。Distance 越小越相似。
type Recall struct {
	Content  string                 `json:"content"`
	Meta     map[string]interface{} `json:"meta,omitempty"`
	Distance float64                `json:"distance"`
}

// Meta 中使用的键。
const (
	MetaSource = "source"
	MetaScore  = "score"
	MetaHash   = "hash"

	SourceAuto = "auto"
)

// NormalizeContent 折叠空白字符并去掉首尾空白。
func NormalizeContent(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
