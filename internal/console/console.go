// Package console is the line-oriented diagnostic output used during boot.
package console

import (
	"io"
)

// Console accepts one line of human readable progress text. *textbuf.Buffer satisfies it.
type Console interface {
	Println(s string) error
}

type writer struct {
	w io.Writer
}

// Writer returns a Console that writes each line, newline terminated, to w.
func Writer(w io.Writer) Console {
	return writer{w: w}
}

func (c writer) Println(s string) error {
	_, err := io.WriteString(c.w, s+"\n")
	return err
}

type multi []Console

// Multi fans each line out to all consoles. The first error is returned after every console has
// been written to.
func Multi(consoles ...Console) Console {
	m := make(multi, 0, len(consoles))
	for _, c := range consoles {
		if c != nil {
			m = append(m, c)
		}
	}
	return m
}

func (m multi) Println(s string) error {
	var first error
	for _, c := range m {
		if err := c.Println(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type discard struct{}

func (discard) Println(string) error { return nil }

// Discard drops every line.
var Discard Console = discard{}
