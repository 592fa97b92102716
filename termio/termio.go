// Package termio implements the menu prompts of the login flow.
package termio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zond/wizmud"
	"github.com/zond/wizmud/lang"
	"golang.org/x/term"
)

// Execute prompts until the user picks one of the options, then runs it.
func Execute(t *term.Terminal, options map[string]func() error) error {
	names := make(sort.StringSlice, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Sort(names)
	prompt := fmt.Sprintf("%s\n", lang.Enumerator{Pattern: "[%s]", Operator: "or"}.Do(names...))
	for {
		fmt.Fprint(t, prompt)
		line, err := t.ReadLine()
		if err != nil {
			return wizmud.WithStack(err)
		}
		if f, found := options[strings.TrimSpace(line)]; found {
			return f()
		}
	}
}

// Select prompts until the user answers one of the options, ignoring case.
func Select(t *term.Terminal, prompt string, options []string) (string, error) {
	for {
		fmt.Fprintf(t, "%s [%s]\n", prompt, strings.Join(options, "/"))
		line, err := t.ReadLine()
		if err != nil {
			return "", wizmud.WithStack(err)
		}
		for _, option := range options {
			if strings.EqualFold(strings.TrimSpace(line), option) {
				return option, nil
			}
		}
	}
}
