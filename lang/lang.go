package lang

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gertd/go-pluralize"
)

const (
	DefaultPattern   = "%s"
	DefaultSeparator = ","
	DefaultOperator  = "and"
	DefaultWidth     = 78
)

var (
	pluralizer = pluralize.NewClient()
)

type Tense int

const (
	NoTense Tense = iota
	Present
	Past
)

type Enumerator struct {
	Pattern   string
	Separator string
	Operator  string
	Tense     Tense
}

// Do joins elements into a sentence fragment, using an Oxford comma for three or more.
func (e Enumerator) Do(elements ...string) string {
	pattern, separator, operator := DefaultPattern, DefaultSeparator, DefaultOperator
	if e.Pattern != "" {
		pattern = e.Pattern
	}
	if e.Separator != "" {
		separator = e.Separator
	}
	if e.Operator != "" {
		operator = e.Operator
	}
	res := &bytes.Buffer{}
	for idx, element := range elements {
		fmt.Fprintf(res, pattern, element)
		switch {
		case idx+2 < len(elements):
			fmt.Fprintf(res, "%s ", separator)
		case idx+2 == len(elements) && len(elements) > 2:
			fmt.Fprintf(res, "%s %s ", separator, operator)
		case idx+2 == len(elements):
			fmt.Fprintf(res, " %s ", operator)
		}
	}
	switch e.Tense {
	case Present:
		if len(elements) == 1 {
			res.WriteString(" is")
		} else {
			res.WriteString(" are")
		}
	case Past:
		if len(elements) == 1 {
			res.WriteString(" was")
		} else {
			res.WriteString(" were")
		}
	}
	return res.String()
}

func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Count renders n followed by word, pluralized when n != 1.
func Count(n int, word string) string {
	return pluralizer.Pluralize(word, n, true)
}

func Plural(word string) string {
	return pluralizer.Plural(word)
}

func Possessive(name string) string {
	if name == "" {
		return ""
	}
	if strings.HasSuffix(strings.ToLower(name), "s") {
		return name + "'"
	}
	return name + "'s"
}

// Fill wraps text at word boundaries into lines of at most width runes.
// Words longer than width get a line of their own.
func Fill(text string, width int) string {
	buf := &strings.Builder{}
	lineLen := 0
	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)
		if lineLen > 0 && lineLen+1+wordLen > width {
			buf.WriteByte('\n')
			lineLen = 0
		} else if lineLen > 0 {
			buf.WriteByte(' ')
			lineLen++
		}
		buf.WriteString(word)
		lineLen += wordLen
	}
	return buf.String()
}
