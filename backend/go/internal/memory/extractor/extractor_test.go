package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	reply string
	err   error

	calls       int
	temperature float32
	messages    []models.Message
}

func (s *stubLLM) Complete(_ context.Context, messages []models.Message, temperature float32) (string, error) {
	s.calls++
	s.messages = messages
	s.temperature = temperature
	return s.reply, s.err
}

func TestPatternNameAndAge(t *testing.T) {
	facts := NewPatternExtractor(0).extract("Merhaba, adım Yusuf, 28 yaşındayım.")
	require.Len(t, facts, 2)

	assert.Equal(t, models.KindProfile, facts[0].Kind)
	assert.Equal(t, "Kullanıcının adı Yusuf.", facts[0].Content)
	assert.InDelta(t, 0.9, facts[0].Score, 1e-9)

	assert.Equal(t, "Kullanıcı 28 yaşında.", facts[1].Content)
	assert.InDelta(t, 0.85, facts[1].Score, 1e-9)
}

func TestPatternBenimAdimUppercase(t *testing.T) {
	facts := NewPatternExtractor(0).extract("BENIM ADIM Ayşe")
	require.Len(t, facts, 1)
	assert.Equal(t, "Kullanıcının adı Ayşe.", facts[0].Content)
}

func TestPatternTurkishAllCaps(t *testing.T) {
	facts := NewPatternExtractor(0).extract("BENİM ADIM YUSUF, 28 YAŞINDAYIM.")
	require.Len(t, facts, 2)
	assert.Equal(t, "Kullanıcının adı YUSUF.", facts[0].Content)
	assert.Equal(t, "Kullanıcı 28 yaşında.", facts[1].Content)

	facts = NewPatternExtractor(0).extract("28 YAŞINDA")
	require.Len(t, facts, 1)
	assert.Equal(t, "Kullanıcı 28 yaşında.", facts[0].Content)

	facts = NewPatternExtractor(0).extract("MOBİL GELİŞTİRİCİYİM")
	require.Len(t, facts, 1)
	assert.Equal(t, "Kullanıcının alanı/işi: MOBİL GELİŞTİRİCİYİM.", facts[0].Content)
}

func TestPatternNoteTriggerAllCaps(t *testing.T) {
	// 大写 I 按土耳其语规则小写成 ı
	facts := NewPatternExtractor(0).extract("BU SON ADIM.")
	require.Len(t, facts, 1)
	assert.Equal(t, models.KindNote, facts[0].Kind)
}

func TestPatternJob(t *testing.T) {
	facts := NewPatternExtractor(0).extract("Ben full-stack çalışıyorum")
	require.Len(t, facts, 1)
	assert.Equal(t, "Kullanıcının alanı/işi: full-stack.", facts[0].Content)
	assert.InDelta(t, 0.75, facts[0].Score, 1e-9)
}

func TestPatternJobNeedsWordBoundary(t *testing.T) {
	// "aile" 以 "ai" 开头，但不是职业
	facts := NewPatternExtractor(0).extract("Bugün ailemle yemek yedik")
	assert.Empty(t, facts)
}

func TestPatternAgeSuffixMustEndWord(t *testing.T) {
	facts := NewPatternExtractor(0).extract("Köpeğim 12 yaşlı bir golden")
	// 年龄不匹配，但 "yaş" 触发整条笔记
	require.Len(t, facts, 1)
	assert.Equal(t, models.KindNote, facts[0].Kind)
	assert.Equal(t, "Köpeğim 12 yaşlı bir golden", facts[0].Content)
	assert.InDelta(t, 0.6, facts[0].Score, 1e-9)
}

func TestPatternNoteNormalizesWhitespace(t *testing.T) {
	facts := NewPatternExtractor(0).extract("  meslek   olarak\töğretmenim  ")
	require.Len(t, facts, 1)
	assert.Equal(t, "meslek olarak öğretmenim", facts[0].Content)
}

func TestPatternNothing(t *testing.T) {
	assert.Empty(t, NewPatternExtractor(0).extract("selam nasılsın"))
}

func TestParseFacts(t *testing.T) {
	raw := "```json\n" + `[
		{"kind": " Preference ", "content": "  Kahveyi   sütsüz içer. ", "score": 0.8},
		{"kind": "hobby", "content": "Satranç oynar.", "score": 3},
		{"kind": "fact", "content": "Ankara'da yaşar."},
		{"kind": "fact", "content": "   "},
		"not an object",
		{"kind": "task", "content": "Pazartesi toplantı.", "score": "0.7"},
		{"kind": "task", "content": "Negatif.", "score": -1}
	]` + "\n```"

	facts, err := ParseFacts(raw)
	require.NoError(t, err)
	require.Len(t, facts, 5)

	assert.Equal(t, models.CandidateFact{Kind: models.KindPreference, Content: "Kahveyi sütsüz içer.", Score: 0.8}, facts[0])
	assert.Equal(t, models.KindNote, facts[1].Kind)
	assert.InDelta(t, 1.0, facts[1].Score, 1e-9)
	assert.InDelta(t, 0.6, facts[2].Score, 1e-9)
	assert.InDelta(t, 0.7, facts[3].Score, 1e-9)
	assert.InDelta(t, 0.0, facts[4].Score, 1e-9)
}

func TestParseFactsRejectsProse(t *testing.T) {
	_, err := ParseFacts("Sure! Here are the facts: ...")
	assert.ErrorIs(t, err, apperr.ErrParse)

	_, err = ParseFacts(`{"kind":"fact","content":"x"}`)
	assert.ErrorIs(t, err, apperr.ErrParse)
}

func TestLlmExtractorPrompt(t *testing.T) {
	llm := &stubLLM{reply: `[{"kind":"profile","content":"Adı Yusuf.","score":0.9}]`}
	facts, err := NewLlmExtractor(llm, 0, 0).Extract(context.Background(), "adım Yusuf")
	require.NoError(t, err)
	require.Len(t, facts, 1)

	assert.Equal(t, float32(0), llm.temperature)
	require.Len(t, llm.messages, 2)
	assert.Equal(t, models.RoleSystem, llm.messages[0].Role)
	assert.Equal(t, ExtractSystemPrompt, llm.messages[0].Content)
	assert.Equal(t, "Message:\nadım Yusuf\n\nJSON array only.", llm.messages[1].Content)
}

func TestLlmExtractorCapsFacts(t *testing.T) {
	llm := &stubLLM{reply: `[
		{"content":"a1 a1 a1 a1"},{"content":"a2 a2 a2 a2"},{"content":"a3 a3 a3 a3"},
		{"content":"a4 a4 a4 a4"},{"content":"a5 a5 a5 a5"},{"content":"a6 a6 a6 a6"},
		{"content":"a7 a7 a7 a7"},{"content":"a8 a8 a8 a8"},{"content":"a9 a9 a9 a9"},
		{"content":"a10 a10 a10"}
	]`}
	facts, err := NewLlmExtractor(llm, 0, 0).Extract(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, facts, DefaultMaxFacts)
}

func TestFactExtractorPrefersModel(t *testing.T) {
	llm := &stubLLM{reply: `[{"kind":"company","content":"Acme'de çalışıyor.","score":0.9}]`}
	fe := NewFactExtractor(NewLlmExtractor(llm, 0, 0), nil, nil)

	facts, err := fe.Extract(context.Background(), "adım Yusuf, Acme'de çalışıyorum")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, models.KindCompany, facts[0].Kind)
}

func TestFactExtractorFallsBack(t *testing.T) {
	cases := map[string]*stubLLM{
		"upstream error": {err: apperr.Upstream("llm", errors.New("boom"))},
		"prose":          {reply: "I could not find anything."},
		"empty array":    {reply: "[]"},
	}
	for name, llm := range cases {
		t.Run(name, func(t *testing.T) {
			fe := NewFactExtractor(NewLlmExtractor(llm, 0, 0), nil, nil)
			facts, err := fe.Extract(context.Background(), "adım Yusuf")
			require.NoError(t, err)
			require.Len(t, facts, 1)
			assert.Equal(t, "Kullanıcının adı Yusuf.", facts[0].Content)
			assert.Equal(t, 1, llm.calls)
		})
	}
}

func TestFactExtractorWithoutModel(t *testing.T) {
	facts, err := NewFactExtractor(nil, nil, nil).Extract(context.Background(), "25 yaşındayım")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "Kullanıcı 25 yaşında.", facts[0].Content)
}
