package i18n

import (
	"fmt"
	"strings"

	"github.com/portfolio-next/internal/constants"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// ContextKey 中间件写入的语言键
const ContextKey = "locale"

var (
	supportedTags = []language.Tag{
		language.MustParse(constants.LocaleEnUS),
		language.MustParse(constants.LocaleZhCN),
	}
	matcher = language.NewMatcher(supportedTags)
)

// Match 按 Accept-Language 协商站点语言，未命中时回退 en-US
func Match(acceptLanguage string) string {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" {
		return constants.LocaleEnUS
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return constants.LocaleEnUS
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return constants.LocaleEnUS
	}
	return constants.SupportedLocales[index]
}

// ResolveLocale 解析请求语言：上下文缓存优先，其次 ?lang=，最后 Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return constants.LocaleEnUS
	}
	if value, ok := c.Get(ContextKey); ok {
		if locale, ok := value.(string); ok && locale != "" {
			return locale
		}
	}
	if c.Request == nil {
		return constants.LocaleEnUS
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return Match(lang)
	}
	return Match(c.GetHeader("Accept-Language"))
}

// T 翻译消息键，缺失时回退英文，再缺失时返回键本身
func T(locale, key string) string {
	if table, ok := catalog[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := catalog[constants.LocaleEnUS][key]; ok {
		return msg
	}
	return key
}

// Tf 翻译并格式化
func Tf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
