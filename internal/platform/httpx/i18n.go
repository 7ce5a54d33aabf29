package httpx

import (
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys for localized problem details.
const (
	MsgForbidden    = "You do not have permission to perform this action."
	MsgUnauthorized = "Authentication is required."
	MsgBadCompany   = "The company header must be a positive integer."
)

var (
	supportedLanguages = []language.Tag{language.English, language.Russian, language.Indonesian}
	languageMatcher    = language.NewMatcher(supportedLanguages)
	messages           = newMessageCatalog()
)

func newMessageCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, key := range []string{MsgForbidden, MsgUnauthorized, MsgBadCompany} {
		_ = b.SetString(language.English, key, key)
	}
	_ = b.SetString(language.Russian, MsgForbidden, "У вас нет прав на выполнение этого действия.")
	_ = b.SetString(language.Russian, MsgUnauthorized, "Требуется аутентификация.")
	_ = b.SetString(language.Russian, MsgBadCompany, "Заголовок компании должен быть положительным целым числом.")
	_ = b.SetString(language.Indonesian, MsgForbidden, "Anda tidak memiliki izin untuk melakukan tindakan ini.")
	_ = b.SetString(language.Indonesian, MsgUnauthorized, "Autentikasi diperlukan.")
	_ = b.SetString(language.Indonesian, MsgBadCompany, "Header perusahaan harus berupa bilangan bulat positif.")
	return b
}

// RequestLanguage picks the best supported language from Accept-Language.
func RequestLanguage(r *http.Request) language.Tag {
	if r == nil {
		return language.English
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := languageMatcher.Match(tags...)
	return supportedLanguages[idx]
}

// Localize translates a message key for the request's language.
func Localize(r *http.Request, key string) string {
	return message.NewPrinter(RequestLanguage(r), message.Catalog(messages)).Sprintf(key)
}
