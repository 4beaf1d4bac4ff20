package report

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Language is a report locale code.
type Language string

const (
	LangEnglish Language = "en"
	// LangChinese renders the report in Simplified Chinese.
	LangChinese Language = "zh"
)

var (
	// ErrUnsupportedLanguage is returned when an unknown language code is requested.
	ErrUnsupportedLanguage = errors.New("report: unsupported language")
	// ErrFontRequired is returned for a language the PDF core fonts cannot
	// render when no TrueType font was given.
	ErrFontRequired = errors.New("report: language needs a UTF-8 TrueType font")
)

type languageInfo struct {
	file    string
	aliases []string
	// coreFont is true when Helvetica with cp1252 covers the locale.
	coreFont bool
}

var languages = map[Language]languageInfo{
	LangEnglish: {file: "en.json", aliases: []string{"en-us", "en-gb", "english"}, coreFont: true},
	LangChinese: {file: "zh.json", aliases: []string{"zh-cn", "zh-hans", "chinese", "中文"}},
}

//go:embed en.json zh.json
var localeFS embed.FS

var locales = map[Language]map[string]string{}

func init() {
	for lang, info := range languages {
		data, err := localeFS.ReadFile(info.file)
		if err != nil {
			panic(fmt.Sprintf("report: load locale %s: %v", lang, err))
		}
		var parsed map[string]string
		if err := json.Unmarshal(data, &parsed); err != nil {
			panic(fmt.Sprintf("report: parse locale %s: %v", lang, err))
		}
		locales[lang] = parsed
	}
}

// Languages lists the supported codes in order, for flag help.
func Languages() []string {
	out := make([]string, 0, len(languages))
	for lang := range languages {
		out = append(out, string(lang))
	}
	sort.Strings(out)
	return out
}

// ParseLanguage converts a flag or config value into a Language. Empty
// means English.
func ParseLanguage(lang string) (Language, error) {
	s := strings.ToLower(strings.TrimSpace(lang))
	if s == "" {
		return LangEnglish, nil
	}
	for code, info := range languages {
		if s == string(code) {
			return code, nil
		}
		for _, a := range info.aliases {
			if s == a {
				return code, nil
			}
		}
	}
	return LangEnglish, fmt.Errorf("%w: %s (want one of %s)", ErrUnsupportedLanguage, lang, strings.Join(Languages(), ", "))
}

// CheckFont reports whether a report in l can be rendered with fontPath,
// which may be empty for the core fonts.
func (l Language) CheckFont(fontPath string) error {
	if strings.TrimSpace(fontPath) != "" {
		return nil
	}
	if info, ok := languages[l]; ok && !info.coreFont {
		return fmt.Errorf("%w: %s (set --font or font in the config)", ErrFontRequired, l)
	}
	return nil
}

// Translator resolves report labels for one language, falling back to
// English and then to the key itself.
type Translator struct {
	lang Language
	data map[string]string
}

func NewTranslator(lang Language) Translator {
	data, ok := locales[lang]
	if !ok {
		lang = LangEnglish
		data = locales[LangEnglish]
	}
	return Translator{lang: lang, data: data}
}

func (t Translator) Lang() Language {
	return t.lang
}

func (t Translator) T(key string) string {
	if val, ok := t.data[key]; ok {
		return val
	}
	if val, ok := locales[LangEnglish][key]; ok {
		return val
	}
	return key
}
