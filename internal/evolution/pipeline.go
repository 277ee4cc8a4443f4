package evolution

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/LolHubFun/server-vps/internal/model"
)

// Generator 图像生成能力，外部协作方
// 约定：要么返回可用的制品URL，要么返回错误且没有任何可见副作用
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// 建议池为空时的降级输出
const (
	defaultPrompt = "a mysterious evolving mascot creature, vibrant colors, digital art, token logo"
	defaultName   = "Mystery Evolution"
)

// Pipeline 内容生成管线：按进化模式从建议池合成提示词，再调用生成器
type Pipeline struct {
	generator Generator
	rng       *rand.Rand
}

// NewPipeline 创建管线
func NewPipeline(generator Generator, rng *rand.Rand) *Pipeline {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Pipeline{generator: generator, rng: rng}
}

// Run 执行一次生成，返回新名字和图片URL
func (p *Pipeline) Run(ctx context.Context, project *model.Project, suggestions []model.Suggestion) (string, string, error) {
	var prompt, name string
	switch project.EvolutionMode {
	case model.ModeChaos:
		prompt, name = p.buildChaos(suggestions)
	default:
		prompt, name = p.buildDemocracy(suggestions)
	}

	url, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return "", "", fmt.Errorf("generate artifact: %w", err)
	}
	return name, url, nil
}

// buildDemocracy 民主模式：建议文本里的高频显著词拼成描述短语，
// 名字从建议池里抽一个
func (p *Pipeline) buildDemocracy(suggestions []model.Suggestion) (string, string) {
	if len(suggestions) == 0 {
		return defaultPrompt, defaultName
	}

	freq := make(map[string]int)
	for _, s := range suggestions {
		for _, word := range significantWords(s.CharSuggestion + " " + s.NameSuggestion) {
			freq[word]++
		}
	}

	terms := make([]string, 0, len(freq))
	for w := range freq {
		terms = append(terms, w)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > 6 {
		terms = terms[:6]
	}

	name := p.sampleName(suggestions)
	if len(terms) == 0 {
		return defaultPrompt, name
	}
	prompt := fmt.Sprintf("a mascot character that is %s, community chosen design, vibrant colors, token logo",
		strings.Join(terms, ", "))
	return prompt, name
}

// buildChaos 混沌模式：随机抽一小撮建议硬拼成一段荒诞提示词，
// 名字独立再抽一次
func (p *Pipeline) buildChaos(suggestions []model.Suggestion) (string, string) {
	if len(suggestions) == 0 {
		return defaultPrompt, defaultName
	}

	picked := make([]model.Suggestion, len(suggestions))
	copy(picked, suggestions)
	p.rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if len(picked) > 3 {
		picked = picked[:3]
	}

	fragments := make([]string, 0, len(picked))
	for _, s := range picked {
		text := strings.TrimSpace(s.CharSuggestion)
		if text == "" {
			text = strings.TrimSpace(s.NameSuggestion)
		}
		if text != "" {
			fragments = append(fragments, text)
		}
	}

	name := p.sampleName(suggestions)
	if len(fragments) == 0 {
		return defaultPrompt, name
	}
	prompt := fmt.Sprintf("an absurd fusion of %s, surreal, unexpected, chaotic collage, token logo",
		strings.Join(fragments, " crossed with "))
	return prompt, name
}

// sampleName 从池子里非空的名字建议中随机取一个
func (p *Pipeline) sampleName(suggestions []model.Suggestion) string {
	names := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		if n := strings.TrimSpace(s.NameSuggestion); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return defaultName
	}
	return names[p.rng.Intn(len(names))]
}

// 过滤提示词时跳过的停用词
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "with": {}, "that": {}, "this": {}, "for": {},
	"from": {}, "have": {}, "like": {}, "very": {}, "some": {}, "what": {},
	"make": {}, "made": {}, "into": {}, "them": {}, "they": {}, "will": {},
	"would": {}, "should": {}, "could": {}, "about": {}, "more": {},
}

// significantWords 小写分词后去掉停用词和短词
func significantWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 3 {
			continue
		}
		if _, ok := stopWords[f]; ok {
			continue
		}
		words = append(words, f)
	}
	return words
}
