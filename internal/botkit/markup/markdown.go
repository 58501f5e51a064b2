package markup

import (
	"strings"
	"unicode/utf8"
)

// Спецсимволы MarkdownV2, которые телеграм требует экранировать в обычном тексте
var replacer = strings.NewReplacer(
	`\`, `\\`,
	"_", `\_`,
	"*", `\*`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
	"~", `\~`,
	"`", "\\`",
	">", `\>`,
	"#", `\#`,
	"+", `\+`,
	"-", `\-`,
	"=", `\=`,
	"|", `\|`,
	"{", `\{`,
	"}", `\}`,
	".", `\.`,
	"!", `\!`,
)

func EscapeForMarkdown(src string) string {
	return replacer.Replace(src)
}

// Лимит телеграма на длину одного сообщения
const MaxMessageLength = 4096

// Truncate обрезает уже размеченный текст до лимита сообщения, не разрывая руну
// и не оставляя висящий обратный слеш
func Truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	text = text[:cut]

	trailing := len(text) - len(strings.TrimRight(text, `\`))
	if trailing%2 == 1 {
		text = text[:len(text)-1]
	}
	return text
}
