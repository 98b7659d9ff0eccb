package spotify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

const guffSymbols = "1234567890!@#$%^&*()-=_+[]{};\"|;'\\<>?/.,~`"

// Words that mark a bracketed or dashed suffix as edition noise rather than
// part of the title.
var guffWords = []string{
	"a cappella", "acoustic", "bonus", "censored", "clean", "club", "clubmix", "composition",
	"cut", "dance", "demo", "dialogue", "dirty", "edit", "excerpt", "explicit", "extended",
	"instrumental", "interlude", "intro", "karaoke", "live", "long", "main", "maxi", "megamix",
	"mix", "mono", "official", "orchestral", "original", "outro", "outtake", "outtakes", "piano",
	"quadraphonic", "radio", "rap", "re-edit", "reedit", "refix", "rehearsal", "reinterpreted",
	"released", "release", "remake", "remastered", "remaster", "master", "remix", "remixed",
	"remode", "reprise", "rework", "reworked", "rmx", "session", "short", "single", "skit",
	"stereo", "studio", "take", "takes", "tape", "track", "tryout", "uncensored", "unknown",
	"unplugged", "untitled", "version", "ver", "video", "vocal", "vs", "with", "without",
}

var bracketPairs = [][2]string{{"(", ")"}, {"[", "]"}, {"{", "}"}, {"<", ">"}}

// TitleCleaner strips suffixes that make a catalog search miss: featured
// artist credits, and bracketed or dashed edition noise such as
// "(Remastered 2011)" or "- Live". Titles whose suffix carries real words
// are left alone.
type TitleCleaner struct {
	enclosed *regexp2.Regexp
	featured *regexp2.Regexp
	dashed   *regexp2.Regexp
	years    *regexp2.Regexp
}

func NewTitleCleaner() *TitleCleaner {
	compile := func(pattern string) *regexp2.Regexp {
		return regexp2.MustCompile(`(?i)`+pattern, regexp2.None)
	}
	return &TitleCleaner{
		enclosed: compile(`(?<title>.+?)\s+(?<suffix>\(.+\)|\[.+\]|\{.+\}|\<.+\>)$`),
		featured: compile(`(?<title>.+?)\s+?(?<suffix>[\[\(]?(?:feat(?:uring)?|ft)\b\.?)\s*?.+`),
		dashed:   compile(`(?<title>.+?)(?:\s+?[\u2010\u2012\u2013\u2014~/-])(?![^(]*\))(?<suffix>.*)`),
		years:    compile(`(20[0-9]{2}|19[0-9]{2})`),
	}
}

// Clean returns the trimmed title with at most one noise suffix removed,
// and whether anything was removed.
func (c *TitleCleaner) Clean(title string) (string, bool) {
	title = strings.TrimSpace(title)
	if !balanced(title) {
		return title, false
	}

	if head, suffix, ok := split(c.enclosed, title); ok && c.isGuff(suffix) {
		return head, true
	}
	if head, _, ok := split(c.featured, title); ok {
		return head, true
	}
	if head, suffix, ok := split(c.dashed, title); ok && suffix != "" && c.isGuff(suffix) {
		return head, true
	}
	return title, false
}

// isGuff reports whether s is mostly edition words, years and punctuation.
func (c *TitleCleaner) isGuff(s string) bool {
	s = strings.ToLower(s)
	before := utf8.RuneCountInString(s)

	for _, w := range guffWords {
		s = strings.ReplaceAll(s, w, "")
	}
	s, _ = c.years.Replace(s, "", -1, -1)

	noise := before - utf8.RuneCountInString(s)
	letters := 0
	for _, r := range s {
		switch {
		case strings.ContainsRune(guffSymbols, r):
			noise++
		case unicode.IsLetter(r):
			letters++
		}
	}
	return noise > letters
}

func split(re *regexp2.Regexp, s string) (head, suffix string, ok bool) {
	m, err := re.FindStringMatch(s)
	if err != nil || m == nil {
		return "", "", false
	}
	head = strings.TrimSpace(m.GroupByName("title").String())
	suffix = strings.TrimSpace(m.GroupByName("suffix").String())
	return head, suffix, head != ""
}

func balanced(s string) bool {
	for _, p := range bracketPairs {
		if strings.Count(s, p[0]) != strings.Count(s, p[1]) {
			return false
		}
	}
	return true
}
