package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/portfolio-next/internal/constants"

	"github.com/gin-gonic/gin"
)

func TestMatch(t *testing.T) {
	cases := map[string]string{
		"":                        constants.LocaleEnUS,
		"zh-CN,zh;q=0.9":          constants.LocaleZhCN,
		"zh":                      constants.LocaleZhCN,
		"fr-FR":                   constants.LocaleEnUS,
		"en-GB,en;q=0.8":          constants.LocaleEnUS,
		"de;q=0.9, zh-Hans;q=0.8": constants.LocaleZhCN,
		";;;":                     constants.LocaleEnUS,
	}
	for header, want := range cases {
		if got := Match(header); got != want {
			t.Fatalf("Match(%q) = %s, want %s", header, got, want)
		}
	}
}

func TestResolveLocalePrefersQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?lang=zh-CN", nil)
	c.Request.Header.Set("Accept-Language", "en-US")
	if got := ResolveLocale(c); got != constants.LocaleZhCN {
		t.Fatalf("expected zh-CN, got %s", got)
	}
	c.Set(ContextKey, constants.LocaleEnUS)
	if got := ResolveLocale(c); got != constants.LocaleEnUS {
		t.Fatalf("context locale must win, got %s", got)
	}
}

func TestTranslateFallsBack(t *testing.T) {
	if got := T(constants.LocaleZhCN, "error.unauthorized"); got != "请先登录" {
		t.Fatalf("unexpected zh message: %s", got)
	}
	if got := T("ja-JP", "error.unauthorized"); got != "Please sign in first" {
		t.Fatalf("expected english fallback, got %s", got)
	}
	if got := T(constants.LocaleEnUS, "error.unknown_key"); got != "error.unknown_key" {
		t.Fatalf("expected key fallback, got %s", got)
	}
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	en := catalog[constants.LocaleEnUS]
	zh := catalog[constants.LocaleZhCN]
	for key := range en {
		if _, ok := zh[key]; !ok {
			t.Fatalf("zh-CN catalog missing %s", key)
		}
	}
	if len(en) != len(zh) {
		t.Fatalf("catalog sizes differ: %d vs %d", len(en), len(zh))
	}
}
