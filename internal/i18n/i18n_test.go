package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslateChinese(t *testing.T) {
	ctx := initLang(t, "zh")

	if got := T(ctx, "Correct"); got != "正确" {
		t.Errorf("T(Correct) = %q, want '正确'", got)
	}
	if got := T(ctx, "AIGradingFailed"); got != "AI批改失败" {
		t.Errorf("T(AIGradingFailed) = %q, want 'AI批改失败'", got)
	}
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "Incorrect"); got != "Incorrect" {
		t.Errorf("T(Incorrect) = %q, want 'Incorrect'", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "zh")

	got := Td(ctx, "ExplanationSubjective", map[string]any{"Question": "什么是协程？", "Comment": "partial"})
	if got != "题目：什么是协程？，AI评语：partial" {
		t.Errorf("Td(ExplanationSubjective) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "MistakeCount", 1); got != "wrong 1 time" {
		t.Errorf("Tp(MistakeCount, 1) = %q, want 'wrong 1 time'", got)
	}
	if got := Tp(ctx, "MistakeCount", 3); got != "wrong 3 times" {
		t.Errorf("Tp(MistakeCount, 3) = %q, want 'wrong 3 times'", got)
	}
}

func TestBackgroundContextUsesDefault(t *testing.T) {
	initLang(t, "zh")

	if got := T(context.Background(), "Incorrect"); got != "错误" {
		t.Errorf("T(Incorrect) without localizer = %q, want '错误'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestMiddlewareAcceptLanguage(t *testing.T) {
	initLang(t, "zh")

	var got string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "Correct")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Correct" {
		t.Errorf("with Accept-Language en: got %q, want 'Correct'", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "正确" {
		t.Errorf("without Accept-Language: got %q, want '正确'", got)
	}
}
