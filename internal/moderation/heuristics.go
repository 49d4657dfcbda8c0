package moderation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/iamwavecut/groupwarden/internal/utils/text"
)

const (
	maxEmojiCount      = 15
	maxEmojiRatio      = 0.4
	emojiRatioMinChars = 10
)

var (
	urlPattern = regexp.MustCompile(`(?i)(?:https?://\S+|\bwww\.\S+\.\S+|\b(?:t|telegram)\.me/\S+|\btg://\S+)`)

	deepLinkPattern = regexp.MustCompile(`(?i)^\s*(?:https?://)?(?:t\.me|telegram\.me|telegram\.dog)/\S+|^\s*tg://\S+`)

	commercialPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:price|prices|cost)\s*[:\-]?\s*[$€£]?\s*\d`),
		regexp.MustCompile(`(?i)\b(?:dm|pm|message|write|text)\s+(?:me\s+)?(?:to|for)\s+(?:buy|order|purchase|details|prices?)\b`),
		regexp.MustCompile(`(?i)\b(?:for sale|selling|resell(?:ing)?|wholesale|cheapest|best price)\b`),
		regexp.MustCompile(`(?i)\b(?:buy|order)\s+now\b`),
		regexp.MustCompile(`(?i)\b(?:earn|make)\s+[$€£]?\d+k?\s*(?:per|a|/)\s*(?:day|week|hour)\b`),
		regexp.MustCompile(`(?i)[$€£]\s?\d+|\b\d+\s?(?:usd|usdt|eur|rub)\b`),
	}

	foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	lowerCaser      = cases.Lower(language.Und)
)

func isPromotion(msg Message) bool {
	if msg.IsForward || msg.SenderIsChannel || msg.ViaBot || msg.SenderIsBot {
		return true
	}
	if hasHiddenForwardMarker(msg) {
		return true
	}
	for _, re := range commercialPatterns {
		if re.MatchString(msg.Text) {
			return true
		}
	}
	return emojiDense(msg.Text)
}

// hasHiddenForwardMarker catches reposts with stripped forward metadata,
// which keep the source channel as a leading bold or linked deep link.
func hasHiddenForwardMarker(msg Message) bool {
	for _, e := range msg.Entities {
		if e.Offset != 0 {
			continue
		}
		switch e.Type {
		case EntityTextLink:
			if deepLinkPattern.MatchString(e.URL) {
				return true
			}
		case EntityBold:
			if deepLinkPattern.MatchString(msg.entityText(e)) {
				return true
			}
		}
	}
	return false
}

func emojiDense(text string) bool {
	emoji, chars := emojiStats(text)
	if emoji > maxEmojiCount {
		return true
	}
	return chars > emojiRatioMinChars && float64(emoji)/float64(chars) > maxEmojiRatio
}

func emojiStats(text string) (emoji, chars int) {
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		chars++
		if isEmojiCluster(gr.Runes()) {
			emoji++
		}
	}
	return emoji, chars
}

// isEmojiCluster reports whether a grapheme cluster renders as an emoji:
// it starts in a pictographic block or asks for emoji presentation.
func isEmojiCluster(cluster []rune) bool {
	if len(cluster) == 0 {
		return false
	}
	for _, r := range cluster[1:] {
		if r == emojiPresentation {
			return true
		}
	}
	return isEmojiRune(cluster[0])
}

const emojiPresentation = '\uFE0F'

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FFFF: // pictographs, emoticons, transport, flags
	case r >= 0x2300 && r <= 0x23FF: // ⌚ ⏰ ⏳
	case r >= 0x2600 && r <= 0x27BF: // misc symbols and dingbats: ☀ ❤ ✅ ✨
	case r >= 0x2B00 && r <= 0x2BFF: // ⭐ ⬆
	default:
		return false
	}
	return true
}

func hasLink(msg Message) bool {
	if urlPattern.MatchString(msg.Text) {
		return true
	}
	for _, e := range msg.Entities {
		if e.Type == EntityURL || e.Type == EntityTextLink {
			return true
		}
	}
	return false
}

// NormalizeText lowercases s, strips combining marks and folds mixed-script lookalikes.
func NormalizeText(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return text.FoldMixedScript(lowerCaser.String(folded))
}

// NormalizeWord is the stored form of a banned word.
func NormalizeWord(s string) string {
	return strings.Join(strings.Fields(NormalizeText(s)), " ")
}

func bannedWordsPattern(words []string) *regexp.Regexp {
	alternatives := make([]string, 0, len(words))
	for _, w := range words {
		if w = NormalizeWord(w); w != "" {
			alternatives = append(alternatives, regexp.QuoteMeta(w))
		}
	}
	if len(alternatives) == 0 {
		return nil
	}
	re, err := regexp.Compile(`(?:^|[^\pL\pN_])(?:` + strings.Join(alternatives, "|") + `)(?:$|[^\pL\pN_])`)
	if err != nil {
		return nil
	}
	return re
}

func containsBannedWord(text string, words []string) bool {
	if text == "" || len(words) == 0 {
		return false
	}
	re := bannedWordsPattern(words)
	return re != nil && re.MatchString(NormalizeText(text))
}
