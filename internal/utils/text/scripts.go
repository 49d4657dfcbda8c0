// Package text holds script-aware helpers for matching user text.
package text

import (
	"strings"
	"unicode"
)

// latinToCyrillic maps lowercase Latin letters to the Cyrillic letters they imitate.
var latinToCyrillic = map[rune]rune{
	'a': 'а', 'c': 'с', 'e': 'е', 'i': 'і', 'k': 'к',
	'o': 'о', 'p': 'р', 'x': 'х', 'y': 'у',
}

var cyrillicToLatin = func() map[rune]rune {
	m := make(map[rune]rune, len(latinToCyrillic))
	for lat, cyr := range latinToCyrillic {
		m[cyr] = lat
	}
	return m
}()

// HasCyrillics checks if the given string contains any Cyrillic characters
func HasCyrillics(content string) bool {
	for _, r := range content {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

// FoldMixedScript rewrites words that mix Latin and Cyrillic lookalikes into
// the word's dominant script. Input is expected to be lowercase.
func FoldMixedScript(content string) string {
	if !HasCyrillics(content) {
		return content
	}
	var b strings.Builder
	b.Grow(len(content))
	word := make([]rune, 0, 16)
	flush := func() {
		b.WriteString(foldWord(word))
		word = word[:0]
	}
	for _, r := range content {
		if unicode.IsLetter(r) {
			word = append(word, r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}

func foldWord(word []rune) string {
	var latin, cyrillic int
	for _, r := range word {
		switch {
		case unicode.Is(unicode.Latin, r):
			latin++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		}
	}
	if latin == 0 || cyrillic == 0 {
		return string(word)
	}
	table := latinToCyrillic
	if latin > cyrillic {
		table = cyrillicToLatin
	}
	out := make([]rune, len(word))
	for i, r := range word {
		if repl, ok := table[r]; ok {
			r = repl
		}
		out[i] = r
	}
	return string(out)
}
