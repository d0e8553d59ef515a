package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey is the request-context key holding the resolved narration locale.
var LocaleKey = localeContextKey{}

const fallbackLocale = "en-US"

// supportedLocales are the narration locales the vendor accepts. The first
// entry is the matcher's fallback.
var supportedLocales = []language.Tag{
	language.MustParse("en-US"),
	language.MustParse("en-GB"),
	language.MustParse("es-ES"),
	language.MustParse("fr-FR"),
	language.MustParse("de-DE"),
	language.MustParse("it-IT"),
	language.MustParse("pt-BR"),
	language.MustParse("ja-JP"),
	language.MustParse("ko-KR"),
	language.MustParse("zh-CN"),
	language.MustParse("hi-IN"),
	language.MustParse("id-ID"),
}

var localeMatcher = language.NewMatcher(supportedLocales)

// countryLocales maps GeoIP country codes to a default narration locale for
// visitors that send no language preference at all.
var countryLocales = map[string]string{
	"GB": "en-GB",
	"ES": "es-ES",
	"FR": "fr-FR",
	"DE": "de-DE",
	"IT": "it-IT",
	"BR": "pt-BR",
	"JP": "ja-JP",
	"KR": "ko-KR",
	"CN": "zh-CN",
	"IN": "hi-IN",
	"ID": "id-ID",
}

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// Locale resolves the default narration locale for each request, from the
// X-Locale header, then Accept-Language, then a GeoIP country hint. The
// result fills in localeCode when a generation request omits one.
func Locale(lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := resolveLocale(r, lookup)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleFromContext returns the resolved locale, defaulting to en-US.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok && v != "" {
		return v
	}
	return fallbackLocale
}

func resolveLocale(r *http.Request, lookup CountryLookup) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		return matchLocale(v)
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		if tags, _, err := language.ParseAcceptLanguage(v); err == nil && len(tags) > 0 {
			_, idx, conf := localeMatcher.Match(tags...)
			if conf > language.No {
				return supportedLocales[idx].String()
			}
		}
	}
	if lookup != nil {
		if ip := ClientIP(r); ip != "" {
			if country, err := lookup(ip); err == nil {
				if locale, ok := countryLocales[strings.ToUpper(country)]; ok {
					return locale
				}
			}
		}
	}
	return fallbackLocale
}

func matchLocale(value string) string {
	tag, err := language.Parse(value)
	if err != nil {
		return fallbackLocale
	}
	_, idx, conf := localeMatcher.Match(tag)
	if conf == language.No {
		return fallbackLocale
	}
	return supportedLocales[idx].String()
}

// ClientIP returns the best-effort client IP address for the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
