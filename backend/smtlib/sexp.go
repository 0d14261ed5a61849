package smtlib

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// sexp is a parsed solver response.
type sexp struct {
	atom   string
	list   []sexp
	isList bool
}

func (s sexp) String() string {
	if !s.isList {
		return s.atom
	}
	parts := make([]string, len(s.list))
	for i, e := range s.list {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// head returns the first atom of a list, "" otherwise.
func (s sexp) head() string {
	if !s.isList || len(s.list) == 0 || s.list[0].isList {
		return ""
	}
	return s.list[0].atom
}

var errUnbalanced = errors.New("unbalanced parenthesis")

type reader struct {
	r *bufio.Reader
}

func newReader(r io.Reader) *reader {
	return &reader{r: bufio.NewReader(r)}
}

// skip consumes whitespace and comments.
func (rd *reader) skip() error {
	for {
		c, err := rd.r.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case c == ';':
			if _, err := rd.r.ReadString('\n'); err != nil {
				return err
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		default:
			return rd.r.UnreadByte()
		}
	}
}

func (rd *reader) read() (sexp, error) {
	if err := rd.skip(); err != nil {
		return sexp{}, err
	}
	c, err := rd.r.ReadByte()
	if err != nil {
		return sexp{}, err
	}
	switch c {
	case '(':
		out := sexp{isList: true}
		for {
			if err := rd.skip(); err != nil {
				return sexp{}, err
			}
			next, err := rd.r.ReadByte()
			if err != nil {
				return sexp{}, err
			}
			if next == ')' {
				return out, nil
			}
			if err := rd.r.UnreadByte(); err != nil {
				return sexp{}, err
			}
			e, err := rd.read()
			if err != nil {
				return sexp{}, err
			}
			out.list = append(out.list, e)
		}
	case ')':
		return sexp{}, errUnbalanced
	case '|':
		s, err := rd.r.ReadString('|')
		if err != nil {
			return sexp{}, err
		}
		return sexp{atom: "|" + s}, nil
	case '"':
		var sb strings.Builder
		sb.WriteByte('"')
		for {
			s, err := rd.r.ReadString('"')
			if err != nil {
				return sexp{}, err
			}
			sb.WriteString(s)
			// "" is an escaped quote.
			if peek, err := rd.r.Peek(1); err != nil || peek[0] != '"' {
				return sexp{atom: sb.String()}, nil
			}
			q, _ := rd.r.ReadByte()
			sb.WriteByte(q)
		}
	}
	var sb strings.Builder
	sb.WriteByte(c)
	for {
		next, err := rd.r.ReadByte()
		if err == io.EOF {
			return sexp{atom: sb.String()}, nil
		}
		if err != nil {
			return sexp{}, err
		}
		if strings.IndexByte(" \t\r\n()|\";", next) >= 0 {
			if err := rd.r.UnreadByte(); err != nil {
				return sexp{}, err
			}
			return sexp{atom: sb.String()}, nil
		}
		sb.WriteByte(next)
	}
}

func parseSexp(s string) (sexp, error) {
	return newReader(strings.NewReader(s)).read()
}
