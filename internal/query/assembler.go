package query

import (
	"fmt"
	"strings"

	"smart-recruit-go/internal/config"
	"smart-recruit-go/internal/constants"
	"smart-recruit-go/internal/types"
)

// AssembledContext 组装后的生成上下文
type AssembledContext struct {
	Text string
	// Sources 上下文中出现过的来源，(name,type)去重，按首次出现顺序
	Sources []types.SourceRef
	// Truncated 因预算不足被截断时为true
	Truncated bool
	// Empty 没有任何可用上下文时为true
	Empty bool
}

// Assembler 在token预算内将检索结果组装为生成上下文
type Assembler struct {
	budgetChars int
}

// NewAssembler 创建组装器
func NewAssembler(cfg config.AssemblerConfig) *Assembler {
	charsPerToken := cfg.CharsPerToken
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	budget := cfg.TokenBudget * charsPerToken
	if budget <= 0 {
		budget = 32000
	}
	return &Assembler{budgetChars: budget}
}

// Assemble 组装上下文
// 结构化评分事实体积小且信息密度高，优先放入；
// 分块按相似度降序填充，预算耗尽即停止
func (a *Assembler) Assemble(result *RetrievalResult) *AssembledContext {
	out := &AssembledContext{}
	if result == nil || (len(result.Chunks) == 0 && len(result.Structured) == 0) {
		out.Empty = true
		return out
	}

	var b strings.Builder
	used := 0
	seen := make(map[types.SourceRef]struct{})

	appendBlock := func(text string) bool {
		cost := len(text) + 1
		if used+cost > a.budgetChars {
			out.Truncated = true
			return false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(text)
		used += cost
		return true
	}
	addSource := func(ref types.SourceRef) {
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		out.Sources = append(out.Sources, ref)
	}

	for _, m := range result.Structured {
		if !appendBlock(formatMatchFact(m)) {
			break
		}
	}

	for _, ch := range result.Chunks {
		ref := sourceOf(ch)
		// 来源标记与正文同属一块，预算按整块计，不会截断到块中间
		block := fmt.Sprintf("[来源: %s | %s]\n%s", ref.Name, ref.Type, ch.Text)
		if !appendBlock(block) {
			break
		}
		addSource(ref)
	}

	out.Text = b.String()
	if out.Text == "" {
		out.Empty = true
	}
	return out
}

// formatMatchFact 将评分结果压缩成单行事实
func formatMatchFact(m *types.MatchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[评分] 候选人%s 对 岗位%s: 总分%d(%s)", m.CandidateID, m.JobID, m.TotalScore, m.Grade)
	if len(m.MatchedSkills) > 0 {
		fmt.Fprintf(&b, "，命中技能: %s", strings.Join(m.MatchedSkills, ", "))
	}
	if len(m.MissingSkills) > 0 {
		fmt.Fprintf(&b, "，缺失技能: %s", strings.Join(m.MissingSkills, ", "))
	}
	return b.String()
}

// sourceOf 从分块元数据提取来源标识
func sourceOf(ch types.RetrievedChunk) types.SourceRef {
	sourceType, _ := ch.Metadata[constants.MetaKeySourceType].(string)
	if sourceType == constants.SourceTypeJobDescription {
		name, _ := ch.Metadata[constants.MetaKeyName].(string)
		if name == "" {
			name = "岗位描述"
		}
		return types.SourceRef{Name: name, Type: constants.SourceTypeJobDescription}
	}

	name, _ := ch.Metadata[constants.MetaKeyName].(string)
	if name == "" {
		name = "未知候选人"
	}
	if sourceType == "" {
		sourceType = constants.SourceTypeCV
	}
	return types.SourceRef{Name: name, Type: sourceType}
}
