// Package i18n renders localized user-facing messages for error codes.
//
// Catalogs are keyed by BCP 47 locale. Lookup always succeeds: unknown
// locales fall back to the base locale and unknown codes render as the code
// itself, so transport layers can present any error without guards.
package i18n

import (
	"bytes"
	"sync"
	"text/template"

	"golang.org/x/text/language"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"
)

// BaseLocale is the fallback for empty or unmatched locale requests.
const BaseLocale = "en-US"

// Catalog holds parsed message templates for one locale.
type Catalog struct {
	locale    string
	raw       map[apperrors.Code]string
	templates map[apperrors.Code]*template.Template
}

var (
	mu       sync.RWMutex
	catalogs = map[string]*Catalog{}
	ordered  []string
	matcher  language.Matcher
)

func init() {
	// The base locale must be registered first so the matcher falls back
	// to it.
	Register(NewCatalog(BaseLocale, enUS))
	Register(NewCatalog("pt-BR", ptBR))
}

// NewCatalog parses messages into a catalog. Messages are text/template
// bodies rendered against error metadata.
func NewCatalog(locale string, messages map[apperrors.Code]string) *Catalog {
	c := &Catalog{
		locale:    locale,
		raw:       make(map[apperrors.Code]string, len(messages)),
		templates: make(map[apperrors.Code]*template.Template, len(messages)),
	}
	for code, message := range messages {
		c.raw[code] = message
		if tmpl, err := template.New(string(code)).Parse(message); err == nil {
			c.templates[code] = tmpl
		}
	}
	return c
}

// Locale returns the catalog's locale.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message for code with the given metadata. Unknown
// codes render as the code string so errors never vanish in translation.
func (c *Catalog) Format(code apperrors.Code, metadata map[string]string) string {
	tmpl, ok := c.templates[code]
	if !ok {
		return string(code)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, metadata); err != nil {
		return c.raw[code]
	}
	return buf.String()
}

// FormatError renders the localized message for a domain error, falling
// back to the UNKNOWN message for plain errors.
func (c *Catalog) FormatError(err error) string {
	if domainErr, ok := apperrors.As(err); ok {
		return c.Format(domainErr.Code, domainErr.Metadata)
	}
	return c.Format(apperrors.CodeUnknown, nil)
}

// Register adds or replaces the catalog for its locale and rebuilds the
// locale matcher.
func Register(c *Catalog) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := catalogs[c.locale]; !exists {
		ordered = append(ordered, c.locale)
	}
	catalogs[c.locale] = c

	tags := make([]language.Tag, 0, len(ordered))
	for _, locale := range ordered {
		tags = append(tags, language.Make(locale))
	}
	matcher = language.NewMatcher(tags)
}

// Resolve picks the best catalog for an Accept-Language header value.
// Empty or unparseable values resolve to the base locale.
func Resolve(acceptLanguage string) *Catalog {
	mu.RLock()
	defer mu.RUnlock()
	if acceptLanguage == "" {
		return catalogs[BaseLocale]
	}
	_, index := language.MatchStrings(matcher, acceptLanguage)
	if index < 0 || index >= len(ordered) {
		return catalogs[BaseLocale]
	}
	return catalogs[ordered[index]]
}
