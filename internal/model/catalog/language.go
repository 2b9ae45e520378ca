package catalog

import "strings"

// DefaultLanguage 未指定语言时使用
const DefaultLanguage = "en"

// Language 支持的对话语言
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var languages = []Language{
	{Code: "hi", Name: "Hindi"},
	{Code: "bn", Name: "Bengali"},
	{Code: "ta", Name: "Tamil"},
	{Code: "te", Name: "Telugu"},
	{Code: "mr", Name: "Marathi"},
	{Code: "gu", Name: "Gujarati"},
	{Code: "kn", Name: "Kannada"},
	{Code: "ml", Name: "Malayalam"},
	{Code: "pa", Name: "Punjabi"},
	{Code: "en", Name: "English"},
}

// Languages 返回支持的语言列表（副本）
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// LanguageName 语言代码对应的显示名，未知代码返回 English
func LanguageName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, l := range languages {
		if l.Code == code {
			return l.Name
		}
	}
	return "English"
}

// IsSupported 是否为支持的语言代码
func IsSupported(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, l := range languages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// NormalizeLanguage 将语言代码或语言名（如 Whisper 返回的 "hindi"）归一化为代码
// 无法识别时原样返回小写结果
func NormalizeLanguage(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	for _, l := range languages {
		if s == l.Code || s == strings.ToLower(l.Name) {
			return l.Code
		}
	}
	// Whisper 偶尔返回 "hi-IN" 形式
	if i := strings.IndexAny(s, "-_"); i > 0 && IsSupported(s[:i]) {
		return s[:i]
	}
	return s
}
