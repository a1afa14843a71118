package translation

import (
	"fmt"
	"strings"
)

const segmentPrompt = `You are a professional website translator.
Translate the text inside <text> from the source language to the target language, both given as BCP 47 codes.

Rules:
- Output only the translated text. No quotes, notes or explanations.
- Keep every placeholder token exactly as written and in a sensible position: [HV1], [HE1]...[/HE1], [HA1]...[/HA1], [S1] and so on. Never translate, renumber, add or remove them.
- Keep numbers, URLs, email addresses and code unchanged.
- Keep leading and trailing punctuation and the capitalization style of the source.
- Follow the requested <style>: "literal" stays close to the source wording, "balanced" reads naturally while preserving meaning, "natural" prefers idiomatic phrasing for native readers.
- If the text needs no translation, return it unchanged.`

const pathnamePrompt = `You translate URL pathnames for localized websites.
Translate the pathname inside <text> from the source language to the target language, both given as BCP 47 codes.

Rules:
- Output only the translated pathname.
- Keep the leading slash, every slash separator and any trailing slash.
- Use lowercase words joined by hyphens. Use only URL-safe ASCII letters, digits and hyphens; transliterate where needed.
- Keep numbers, IDs, file extensions, query strings and fragments unchanged.
- If a segment is a brand, product code or already language neutral, keep it as is.`

func systemPrompt(t ItemType) string {
	if t == Pathname {
		return pathnamePrompt
	}
	return segmentPrompt
}

// userPrompt embeds the text in the request envelope. Only segments carry a
// style hint.
func userPrompt(text string, t ItemType, sourceLang, targetLang string, style Style) string {
	var b strings.Builder
	b.WriteString("<translate>\n")
	fmt.Fprintf(&b, "<sourceLanguageCode>%s</sourceLanguageCode>\n", sourceLang)
	fmt.Fprintf(&b, "<targetLanguageCode>%s</targetLanguageCode>\n", targetLang)
	if t != Pathname {
		if style == "" {
			style = Balanced
		}
		fmt.Fprintf(&b, "<style>%s</style>\n", style)
	}
	fmt.Fprintf(&b, "<text>%s</text>\n", text)
	b.WriteString("</translate>")
	return b.String()
}
