package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/okian/racearchive/internal/domain/model"
	"github.com/okian/racearchive/internal/review"
)

const historyRows = 5

const uncertainHelp = "[a] accept  [c ID] choose runner  [n] new runner  [l] later  [q] skip remaining  [x] exit"
const duplicateHelp = "[s] same person  [d] different people  [l] later  [q] skip remaining  [x] exit"

// prompter drives a review session from line-based input.
type prompter struct {
	scanner     *bufio.Scanner
	out         io.Writer
	interactive bool
	lookup      func(id string) (*model.Runner, error)
}

func newPrompter(in io.Reader, out io.Writer, interactive bool) *prompter {
	return &prompter{scanner: bufio.NewScanner(in), out: out, interactive: interactive}
}

// stdinIsTerminal reports whether in is an interactive terminal.
func stdinIsTerminal(in io.Reader) bool {
	file, ok := in.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// drive returns a session driver. End of input and the exit action stop the
// session without error; every ruling made so far is already saved.
func (p *prompter) drive(ctx context.Context) func(*review.Session) error {
	return func(s *review.Session) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			it, ok := s.Next()
			if !ok {
				fmt.Fprintln(p.out, "Nothing left to review.")
				return nil
			}
			fmt.Fprintf(p.out, "\n%s (%d remaining)\n", it.Kind, s.Remaining())
			p.show(s, it)

			line, ok := p.read(it.Kind)
			if !ok {
				return nil
			}
			done, err := p.apply(ctx, s, line)
			switch {
			case errors.Is(err, review.ErrUnknownRunner), errors.Is(err, review.ErrWrongKind):
				fmt.Fprintln(p.out, err)
			case err != nil:
				return err
			}
			if done {
				return nil
			}
		}
	}
}

func (p *prompter) read(k review.Kind) (string, bool) {
	if p.interactive {
		help := uncertainHelp
		if k == review.KindDuplicate {
			help = duplicateHelp
		}
		fmt.Fprintf(p.out, "%s\n> ", help)
	}
	if !p.scanner.Scan() {
		return "", false
	}
	line := strings.TrimSpace(p.scanner.Text())
	if !p.interactive {
		fmt.Fprintf(p.out, "> %s\n", line)
	}
	return line, true
}

// apply performs one action and reports whether the session should stop.
func (p *prompter) apply(ctx context.Context, s *review.Session, line string) (bool, error) {
	action, arg, _ := strings.Cut(line, " ")
	switch strings.ToLower(action) {
	case "a":
		return false, s.Accept(ctx)
	case "c":
		if strings.TrimSpace(arg) == "" {
			fmt.Fprintln(p.out, "usage: c RUNNER_ID")
			return false, nil
		}
		return false, s.Choose(ctx, arg)
	case "n":
		id, err := s.NewRunner(ctx)
		if err == nil {
			fmt.Fprintf(p.out, "new runner %s\n", id)
		}
		return false, err
	case "s":
		id, err := s.SamePerson(ctx)
		if err == nil {
			fmt.Fprintf(p.out, "both entries assigned to %s\n", id)
		}
		return false, err
	case "d":
		ids, err := s.DifferentPeople(ctx)
		if err == nil {
			fmt.Fprintf(p.out, "new runners %s and %s\n", ids[0], ids[1])
		}
		return false, err
	case "l":
		return false, s.Defer()
	case "q":
		k, err := s.SkipRemaining()
		if err == nil {
			fmt.Fprintf(p.out, "skipping remaining %s items\n", k)
		}
		return false, err
	case "x":
		return true, nil
	default:
		fmt.Fprintf(p.out, "unknown action %q\n", line)
		return false, nil
	}
}

func (p *prompter) show(s *review.Session, it review.Item) {
	if it.Kind == review.KindDuplicate {
		fmt.Fprintln(p.out, entriesTable(s, it.Pair.Positions[:]))
		fmt.Fprintf(p.out, "similarity %s\n", strconv.FormatFloat(it.Pair.Similarity, 'f', 4, 64))
		return
	}
	m := it.Match
	fmt.Fprintln(p.out, entriesTable(s, []int{m.Result.Position}))
	fmt.Fprintf(p.out, "suggested %s, confidence %s, reason %s\n",
		m.SuggestedID, strconv.FormatFloat(m.Confidence, 'f', 4, 64), m.Reason)
	if p.lookup == nil {
		return
	}
	r, err := p.lookup(m.SuggestedID)
	if err != nil {
		return
	}
	history := r.History
	if len(history) > historyRows {
		history = history[len(history)-historyRows:]
	}
	fmt.Fprintln(p.out, historyTable(history))
}

func entriesTable(s *review.Session, positions []int) string {
	rows := make([][]string, 0, len(positions))
	for _, pos := range positions {
		e, ok := s.Entry(pos)
		if !ok {
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Position), e.Name, e.Category, e.Club, e.FinishTime(),
		})
	}
	return renderTable(
		[]string{"Pos", "Name", "Category", "Club", "Time"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight})
}
