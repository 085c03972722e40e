package handlers

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys for user-facing texts.
const (
	msgContactReceived = "contact.received"
	msgContactFailed   = "contact.failed"
)

// supportedLanguages lists the response languages; the first is the default.
var supportedLanguages = []language.Tag{language.Turkish, language.English}

var (
	languageMatcher = language.NewMatcher(supportedLanguages)
	messages        = newMessageCatalog()
)

func newMessageCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.Turkish))
	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}
	set(language.Turkish, msgContactReceived, "Mesajınız başarıyla alındı. En kısa sürede size dönüş yapacağız.")
	set(language.Turkish, msgContactFailed, "Mesaj gönderilemedi. Lütfen daha sonra tekrar deneyin.")
	set(language.English, msgContactReceived, "Your message has been received. We will get back to you as soon as possible.")
	set(language.English, msgContactFailed, "Your message could not be sent. Please try again later.")
	return b
}

// requestLanguage picks the response language from Accept-Language.
// Missing, malformed, or unsupported preferences fall back to Turkish.
func requestLanguage(c *gin.Context) language.Tag {
	prefs, _, _ := language.ParseAcceptLanguage(c.GetHeader("Accept-Language"))
	_, idx, conf := languageMatcher.Match(prefs...)
	if conf == language.No {
		return supportedLanguages[0]
	}
	return supportedLanguages[idx]
}

// localize renders key in the request language and advertises that language
// on the response.
func localize(c *gin.Context, key string) string {
	tag := requestLanguage(c)
	c.Header("Content-Language", tag.String())
	return message.NewPrinter(tag, message.Catalog(messages)).Sprintf(key)
}
