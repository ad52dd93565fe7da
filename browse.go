package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/moviepolls/cliparse"
	"github.com/danielhkuo/moviepolls/controllers"
	"github.com/danielhkuo/moviepolls/models"
	"github.com/danielhkuo/moviepolls/source"
)

const consoleHelp = `commands:
  list                 show loaded polls
  more                 load the next page
  genre <name|All>     filter by genre
  status <Active|Closed|All>
  search <text>        search titles (applied after a short pause)
  suggest              show title suggestions for the current search
  choose <n>           search for suggestion n right away
  vote <poll> <n>      vote for option n of a poll
  rate <poll> <1-5>    rate a poll
  select <poll>        open the results view
  show                 print the results view
  close                close the results view
  refresh              refresh loaded polls now
  debug                print the store summary
  help, quit`

// syncWriter serialises console output from the REPL and notifications
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// console is a line-oriented presentation over a session
type console struct {
	ctx context.Context
	s   *controllers.Session
	out io.Writer
}

func newConsole(ctx context.Context, src source.PollSource, cfg cliparse.Config, out io.Writer) *console {
	w := &syncWriter{w: out}
	s := controllers.NewSession(ctx, src, controllers.Config{
		PageSize:        cfg.PageSize,
		RefreshInterval: cfg.RefreshInterval,
		DebounceDelay:   cfg.SearchDebounce,
		ConfirmRatings:  true,
		Notifier: controllers.NotifierFunc(func(n controllers.Notification) {
			fmt.Fprintf(w, "[%s] %s (%s)\n", n.Kind, n.Message, n.PollID)
		}),
	})
	return &console{ctx: ctx, s: s, out: w}
}

// run reads commands until quit, EOF or cancellation
func (c *console) run(in io.Reader) error {
	c.s.Start()
	defer c.s.Close()

	fmt.Fprintln(c.out, "movie polls, type help for commands")

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-c.ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
		close(lines)
	}()

	for {
		select {
		case <-c.ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if c.exec(line) {
				return nil
			}
		}
	}
}

// exec runs one command line and reports whether the console should exit
func (c *console) exec(line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
		fmt.Fprintf(c.out, "genres: %s\n", strings.Join(models.Genres, ", "))
	case "list", "ls":
		c.list()
	case "more", "scroll":
		if !c.s.Pages.LoadMore() {
			fmt.Fprintln(c.out, "nothing more to load")
		}
	case "genre":
		c.s.SetGenre(orAll(arg))
	case "status":
		c.s.SetStatus(orAll(arg))
	case "search":
		c.s.Search.Input(arg)
	case "suggest":
		c.suggest()
	case "choose":
		c.choose(arg)
	case "vote":
		c.vote(arg)
	case "rate":
		c.rate(arg)
	case "select":
		if !c.s.Select(arg) {
			fmt.Fprintf(c.out, "poll %q is not loaded\n", arg)
			return false
		}
		c.show()
	case "show":
		c.show()
	case "close":
		c.s.Store.ClearSelection()
	case "refresh":
		ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
		n, err := c.s.Refresh.Refresh(ctx)
		cancel()
		if err != nil {
			fmt.Fprintf(c.out, "refresh failed: %v\n", err)
			return false
		}
		fmt.Fprintf(c.out, "refreshed %d polls\n", n)
	case "debug":
		fmt.Fprintln(c.out, c.s.Store.Summary())
	default:
		fmt.Fprintf(c.out, "unknown command %q, type help\n", cmd)
	}
	return false
}

func orAll(v string) string {
	if v == "" || strings.EqualFold(v, models.FilterAll) {
		return models.FilterAll
	}
	return v
}

func (c *console) list() {
	st := c.s.Store.Snapshot()
	if len(st.Polls) == 0 {
		if st.Loading {
			fmt.Fprintln(c.out, "loading...")
		} else {
			fmt.Fprintln(c.out, "no polls")
		}
		return
	}

	for _, p := range st.Polls {
		mark := " "
		if p.HasVoted() {
			mark = "*"
		}
		fmt.Fprintf(c.out, "%s %-10s %-40s %-12s %-7s %8s votes  %.1f\n",
			mark, p.ID, p.Title, p.Genre, p.Status, humanize.Comma(int64(p.TotalVotes)), p.Rating)
	}

	more := "end of list"
	if st.Loading {
		more = "loading..."
	} else if st.HasMore {
		more = "more available"
	}
	fmt.Fprintf(c.out, "%s polls, %s\n", humanize.Comma(int64(len(st.Polls))), more)
}

func (c *console) suggest() {
	suggestions := c.s.Search.Suggestions()
	if len(suggestions) == 0 {
		fmt.Fprintln(c.out, "no suggestions")
		return
	}
	for i, s := range suggestions {
		fmt.Fprintf(c.out, "%d. %s\n", i+1, s.Title)
	}
}

func (c *console) choose(arg string) {
	suggestions := c.s.Search.Suggestions()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(suggestions) {
		fmt.Fprintf(c.out, "choose a suggestion between 1 and %d\n", len(suggestions))
		return
	}
	c.s.Search.Choose(suggestions[n-1].Title)
}

func (c *console) vote(arg string) {
	pollID, nStr, _ := strings.Cut(arg, " ")
	p, ok := c.s.Store.Poll(pollID)
	if !ok {
		fmt.Fprintf(c.out, "poll %q is not loaded\n", pollID)
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(nStr))
	if err != nil || n < 1 || n > len(p.Options) {
		fmt.Fprintf(c.out, "pick an option between 1 and %d\n", len(p.Options))
		return
	}

	a, err := c.s.Votes.Vote(pollID, p.Options[n-1].ID)
	switch {
	case err != nil:
		fmt.Fprintf(c.out, "vote not sent: %v\n", err)
	case a == nil:
		fmt.Fprintln(c.out, "already your vote")
	default:
		fmt.Fprintf(c.out, "voting for %s...\n", p.Options[n-1].Label)
	}
}

func (c *console) rate(arg string) {
	pollID, nStr, _ := strings.Cut(arg, " ")
	n, err := strconv.Atoi(strings.TrimSpace(nStr))
	if err != nil {
		fmt.Fprintln(c.out, "rate <poll> <1-5>")
		return
	}
	rating, err := c.s.Votes.Rate(pollID, n)
	if err != nil {
		if errors.Is(err, controllers.ErrInvalidStar) {
			fmt.Fprintln(c.out, "rate <poll> <1-5>")
			return
		}
		fmt.Fprintf(c.out, "rating not applied: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "rating now %.1f\n", rating)
}

func (c *console) show() {
	p, ok := c.s.Store.Selected()
	if !ok {
		fmt.Fprintln(c.out, "no poll selected")
		return
	}

	fmt.Fprintf(c.out, "%s (%s, %s)  rating %.1f  %s voters\n",
		p.Title, p.Genre, p.Status, p.Rating, humanize.Comma(int64(p.TotalVotes)))
	for i, r := range p.Results() {
		mark := " "
		if r.Selected {
			mark = "*"
		}
		fmt.Fprintf(c.out, "%s %d. %-24s %8s  %5.1f%%\n", mark, i+1, r.Label, humanize.Comma(int64(r.Votes)), r.Percent)
	}
}
