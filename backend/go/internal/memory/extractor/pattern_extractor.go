package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
)

// RE2 的 \b 只认 ASCII 单词字符，土耳其语字母（ı、ş…）会被当成边界，
// 所以这里用 \p{L}\p{N}_ 自己写左右边界。
const (
	leftEdge  = `(?:^|[^\p{L}\p{N}_])`
	rightEdge = `(?:[^\p{L}\p{N}_]|$)`
)

var (
	nameRe = regexp.MustCompile(`(?i)` + leftEdge +
		trFold(`(?:benim\s+adım|adım)`) + `\s+(?P<name>[a-zçğıöşüÇĞİÖŞÜ]+)` + rightEdge)
	ageRe = regexp.MustCompile(`(?i)` + leftEdge +
		`(?P<age>\d{1,2})\s*` + trFold(`yaş(?:ındayım|ında|ım)?`) + rightEdge)
	jobRe = regexp.MustCompile(`(?i)` + leftEdge +
		`(?P<job>iOS|Android|frontend|back[- ]?end|full[- ]?stack|data science|ml|ai|` +
		trFold(`veri bilimi|yapay zeka|yazılım geliştiricisiyim|mobil geliştiriciyim`) + `)` + rightEdge)

	// 没有匹配到具体事实、但出现这些词时，把整条消息记为低分笔记
	noteTriggers = []string{"adım", "yaş", "meslek", "öğrenci", "geliştirici"}
)

// trFold 把关键词里的 i/ı 换成 [ıIiİ]。
// (?i) 用的是 Unicode simple folding，İ 和 ı 不和 i/I 互相折叠，
// 全大写的土耳其语（ADIM、YAŞINDAYIM、BENİM）需要显式列出。
func trFold(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case 'i', 'ı', 'I', 'İ':
			b.WriteString("[ıIiİ]")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PatternExtractor 是不依赖模型的规则抽取器，识别姓名、年龄和职业。
type PatternExtractor struct {
	maxFacts int
}

// NewPatternExtractor 创建规则抽取器。
func NewPatternExtractor(maxFacts int) *PatternExtractor {
	if maxFacts <= 0 {
		maxFacts = DefaultMaxFacts
	}
	return &PatternExtractor{maxFacts: maxFacts}
}

// Extract 不会返回错误。
func (p *PatternExtractor) Extract(_ context.Context, message string) ([]models.CandidateFact, error) {
	return p.extract(message), nil
}

func (p *PatternExtractor) extract(message string) []models.CandidateFact {
	var out []models.CandidateFact

	if name := group(nameRe, message, "name"); name != "" {
		out = append(out, models.CandidateFact{
			Kind:    models.KindProfile,
			Content: fmt.Sprintf("Kullanıcının adı %s.", name),
			Score:   0.9,
		})
	}
	if age := group(ageRe, message, "age"); age != "" {
		out = append(out, models.CandidateFact{
			Kind:    models.KindProfile,
			Content: fmt.Sprintf("Kullanıcı %s yaşında.", age),
			Score:   0.85,
		})
	}
	if job := group(jobRe, message, "job"); job != "" {
		out = append(out, models.CandidateFact{
			Kind:    models.KindProfile,
			Content: fmt.Sprintf("Kullanıcının alanı/işi: %s.", job),
			Score:   0.75,
		})
	}

	if len(out) == 0 {
		lower := strings.ToLowerSpecial(unicode.TurkishCase, message)
		for _, k := range noteTriggers {
			if strings.Contains(lower, k) {
				if content := models.NormalizeContent(message); content != "" {
					out = append(out, models.CandidateFact{Kind: models.KindNote, Content: content, Score: 0.6})
				}
				break
			}
		}
	}

	if len(out) > p.maxFacts {
		out = out[:p.maxFacts]
	}
	return out
}

// group 返回第一个匹配中命名分组的值（已折叠空白）。
func group(re *regexp.Regexp, s, name string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return models.NormalizeContent(m[re.SubexpIndex(name)])
}
