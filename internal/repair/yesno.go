package repair

import (
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Answer is the classification of a reply to a yes/no prompt
type Answer int

const (
	AnswerInvalid Answer = iota
	AnswerYes
	AnswerNo
)

// yesNoTable lists the reply prefixes accepted per language. English
// replies are accepted in every locale.
var yesNoTable = []struct {
	tag language.Tag
	yes []string
	no  []string
}{
	{tag: language.English, yes: []string{"y"}, no: []string{"n"}},
	{tag: language.German, yes: []string{"j"}, no: []string{"n"}},
	{tag: language.Dutch, yes: []string{"j"}, no: []string{"n"}},
	{tag: language.Swedish, yes: []string{"j"}, no: []string{"n"}},
	{tag: language.French, yes: []string{"o"}, no: []string{"n"}},
	{tag: language.Spanish, yes: []string{"s"}, no: []string{"n"}},
	{tag: language.Italian, yes: []string{"s"}, no: []string{"n"}},
	{tag: language.Portuguese, yes: []string{"s"}, no: []string{"n"}},
	{tag: language.Polish, yes: []string{"t"}, no: []string{"n"}},
	{tag: language.Czech, yes: []string{"a"}, no: []string{"n"}},
	{tag: language.Russian, yes: []string{"д"}, no: []string{"н"}},
}

var yesNoLanguages = func() language.Matcher {
	tags := make([]language.Tag, len(yesNoTable))
	for i, entry := range yesNoTable {
		tags[i] = entry.tag
	}
	return language.NewMatcher(tags)
}()

// YesNoMatcher classifies replies using the conventions of a locale
type YesNoMatcher struct {
	tag  language.Tag
	yes  []string
	no   []string
	fold cases.Caser
}

// NewYesNoMatcher builds a matcher for a POSIX locale name such as de_DE.UTF-8
func NewYesNoMatcher(locale string) *YesNoMatcher {
	_, index := language.MatchStrings(yesNoLanguages, normalizeLocale(locale))
	entry := yesNoTable[index]

	yes := append([]string{"+", "1"}, entry.yes...)
	no := append([]string{"-", "0"}, entry.no...)
	if entry.tag != language.English {
		yes = append(yes, "y")
		no = append(no, "n")
	}

	return &YesNoMatcher{
		tag:  entry.tag,
		yes:  yes,
		no:   no,
		fold: cases.Fold(),
	}
}

// Language returns the language the matcher settled on
func (m *YesNoMatcher) Language() language.Tag {
	return m.tag
}

// Match classifies reply by its leading characters
func (m *YesNoMatcher) Match(reply string) Answer {
	folded := m.fold.String(strings.TrimSpace(reply))
	if folded == "" {
		return AnswerInvalid
	}
	for _, prefix := range m.yes {
		if strings.HasPrefix(folded, prefix) {
			return AnswerYes
		}
	}
	for _, prefix := range m.no {
		if strings.HasPrefix(folded, prefix) {
			return AnswerNo
		}
	}
	return AnswerInvalid
}

// LocaleFromEnv returns the message locale from the environment
func LocaleFromEnv() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "C"
}

// normalizeLocale turns de_DE.UTF-8@euro into de-DE
func normalizeLocale(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return "en"
	}
	return strings.ReplaceAll(locale, "_", "-")
}
