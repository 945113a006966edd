package i18n

import "testing"

func TestGetCatalogFallback(t *testing.T) {
	base := GetCatalog("en-US")
	if base == nil {
		t.Fatal("expected base catalog")
	}
	if fallback := GetCatalog("missing-locale"); fallback != base {
		t.Fatal("expected fallback to en-US catalog")
	}
	if empty := GetCatalog(""); empty != base {
		t.Fatal("expected empty locale to use en-US catalog")
	}
}

func TestGetCatalogMatchesAcceptLanguage(t *testing.T) {
	cat := GetCatalog("pt-BR,pt;q=0.9,en;q=0.5")
	if cat.Locale() != "pt-BR" {
		t.Fatalf("locale = %q, want pt-BR", cat.Locale())
	}
	if cat := GetCatalog("pt"); cat.Locale() != "pt-BR" {
		t.Fatalf("locale = %q, want pt-BR for bare pt", cat.Locale())
	}
	if cat := GetCatalog("en-GB"); cat.Locale() != "en-US" {
		t.Fatalf("locale = %q, want en-US for en-GB", cat.Locale())
	}
}

func TestEveryCodeHasBothLocales(t *testing.T) {
	for code := range enUSMessages {
		if _, ok := ptBRMessages[code]; !ok {
			t.Fatalf("pt-BR message missing for %s", code)
		}
	}
	if len(enUSMessages) != len(ptBRMessages) {
		t.Fatalf("catalog sizes differ: en-US=%d pt-BR=%d", len(enUSMessages), len(ptBRMessages))
	}
}

func TestFormatRendersMetadata(t *testing.T) {
	got := GetCatalog("en-US").Format(CodeUnauthorized, map[string]string{"Role": "owner"})
	if got != "This action requires the owner role." {
		t.Fatalf("format = %q", got)
	}
}

func TestFormatFallbacks(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "hello {{.Name}}",
	})

	if cat.Format("unknown", nil) != "unknown" {
		t.Fatal("expected code fallback when template missing")
	}
	if cat.Format("code", nil) != "hello <no value>" {
		t.Fatal("expected template to render missing metadata")
	}
}

func TestFormatTemplateErrorFallback(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "{{ if .Name }}",
	})
	if cat.Format("code", map[string]string{"Name": "X"}) != "{{ if .Name }}" {
		t.Fatal("expected template fallback on parse error")
	}
}

func TestRegisterCatalog(t *testing.T) {
	custom := NewCatalog("custom", map[Code]string{"code": "ok"})
	RegisterCatalog("custom", custom)
	if got := GetCatalog("custom"); got != custom {
		t.Fatal("expected registered catalog")
	}
}
