package format

import "strings"

// Characters Telegram's Markdown (V1) parser treats as markup.
var mdV1Escaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// EscapeMarkdown escapes Markdown control characters so user-influenced
// text renders literally when a message is sent with ParseMode set.
func EscapeMarkdown(text string) string {
	return mdV1Escaper.Replace(text)
}

// CodeBlock wraps text in a fenced monospace block. Backticks inside the
// text would terminate the fence early, so they are stripped.
func CodeBlock(text string) string {
	text = strings.ReplaceAll(text, "`", "")
	return "```\n" + text + "\n```"
}
