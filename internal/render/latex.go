package render

import "strings"

// backslashMark keeps the replacement braces of \textbackslash{} out of the
// brace escaping pass.
const backslashMark = "\x00bs\x00"

var latexReplacer = strings.NewReplacer(
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"~", `\textasciitilde{}`,
	"^", `\textasciicircum{}`,
)

// Escape protects LaTeX special characters in dynamic text. Applied to every
// value flowing into the template; the template itself is trusted.
func Escape(text string) string {
	text = strings.ReplaceAll(text, `\`, backslashMark)
	text = latexReplacer.Replace(text)
	return strings.ReplaceAll(text, backslashMark, `\textbackslash{}`)
}
