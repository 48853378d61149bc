package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

/*
Text normalization prepares scraped review text for sentence embedding.

Steps, in order
- Drop emoji and pictographs
- Drop HTML markup, keeping text content with entities decoded
- Drop http and https links
- Trim, lowercase and collapse every whitespace run into one space

The function is pure; the same input always yields the same output.
*/

// emojiRanges are inclusive rune ranges treated as emoji. The last range is
// wide and also covers dingbats, enclosed characters and CJK blocks.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // symbols and pictographs
	{0x1F680, 0x1F6FF}, // transport and map
	{0x1F700, 0x1F77F}, // alchemical
	{0x1F780, 0x1F7FF}, // geometric shapes extended
	{0x1F800, 0x1F8FF}, // supplemental arrows
	{0x1F900, 0x1F9FF}, // supplemental symbols and pictographs
	{0x1FA00, 0x1FA6F}, // chess
	{0x1FA70, 0x1FAFF}, // symbols and pictographs extended
	{0x2702, 0x27B0},   // dingbats
	{0x24C2, 0x1F251},
}

var linkPattern = regexp.MustCompile(`http[^\s\p{Z}]+`)

// Text returns the normalized form of raw.
func Text(raw string) string {
	text := stripEmoji(raw)
	text = stripMarkup(text)
	text = linkPattern.ReplaceAllString(text, "")
	text = strings.ToLower(strings.TrimSpace(text))
	return strings.Join(strings.Fields(text), " ")
}

// Texts normalizes every entry of raws.
func Texts(raws []string) []string {
	out := make([]string, len(raws))
	for i, raw := range raws {
		out[i] = Text(raw)
	}
	return out
}

func stripEmoji(s string) string {
	return strings.Map(func(r rune) rune {
		if isEmoji(r) {
			return -1
		}
		return r
	}, s)
}

func isEmoji(r rune) bool {
	for _, rg := range emojiRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

// stripMarkup keeps only the text tokens of s. Input without markup passes
// through unchanged apart from entity decoding.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	b.Grow(len(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF is the only error a strings.Reader produces.
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
