package matching

import (
	"strings"
	"unicode"
)

// NormalizeSkill 将技能名归一化为比较用的规范形式：
// 小写、去首尾空白、去标点（保留+和#，C++/C#等名称依赖它们）、压缩连续空白
func NormalizeSkill(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
				lastSpace = true
			}
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			if r == '+' || r == '#' {
				b.WriteRune(r)
				lastSpace = false
			}
			// 其余标点直接丢弃
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// CleanSkills 清洗技能列表：去掉归一化后为空的条目，其余条目保留原始写法
func CleanSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, raw := range skills {
		if NormalizeSkill(raw) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(raw))
	}
	return out
}

// DeduplicateSkills 按归一化形式去重，保留首次出现条目的原始写法和顺序
func DeduplicateSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, raw := range skills {
		norm := NormalizeSkill(raw)
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, raw)
	}
	return out
}
