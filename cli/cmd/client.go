package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/wkalt/tsjoin/cli/client"
	"github.com/wkalt/tsjoin/cli/util"
)

const (
	prompt         = "tsjoin # "
	continuePrompt = "...... # "
	artwork        = `
 _             _       _
| |_ ___      (_) ___ (_)_ __
| __/ __|_____| |/ _ \| | '_ \
| |_\__ \_____| | (_) | | | | |
 \__|___/    _/ |\___/|_|_| |_|
            |__/
`
)

func withPaging(pager string, f func(io.Writer) error) error {
	if pager == "" {
		return f(os.Stdout)
	}
	cmd := exec.Command(pager)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	w, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open pager: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start pager: %w", err)
	}
	ferr := f(w)
	if err := w.Close(); err != nil {
		return errors.Join(ferr, err)
	}
	return errors.Join(ferr, cmd.Wait())
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return !os.IsNotExist(err)
}

func maybePager() string {
	pager := os.Getenv("PAGER")
	if pager != "" {
		return pager
	}
	if fileExists("/usr/bin/less") {
		return "/usr/bin/less"
	}
	return ""
}

// session holds the state of an interactive client.
type session struct {
	client *client.Client
	out    io.Writer
	pager  string
	format outputFormat
	lines  []string

	explain bool
}

// handle processes one line of input. It returns a complete query when the
// line terminates one, and true when the session should end.
func (s *session) handle(ctx context.Context, line string) (query string, quit bool) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return "", false
	case line == "help", strings.HasPrefix(line, "\\h"):
		_, topic, _ := strings.Cut(line, " ")
		text, ok := help[strings.TrimSpace(topic)]
		if !ok {
			text = help[""]
		}
		fmt.Fprintln(s.out, text)
		return "", false
	case line == "\\q", line == "quit", line == "exit":
		return "", true
	case line == "\\x":
		s.format.expanded = !s.format.expanded
		fmt.Fprintf(s.out, "Expanded display is %s.\n", onOff(s.format.expanded))
		return "", false
	case line == "\\explain":
		s.explain = !s.explain
		fmt.Fprintf(s.out, "Explain is %s.\n", onOff(s.explain))
		return "", false
	case strings.HasPrefix(line, "\\d"):
		if err := s.describe(ctx, strings.Fields(line)[1:]); err != nil {
			printError(s.out, err)
		}
		return "", false
	case strings.HasPrefix(line, "\\import"):
		if err := s.importFiles(ctx, strings.Fields(line)[1:]); err != nil {
			printError(s.out, err)
		}
		return "", false
	case strings.HasPrefix(line, "\\"):
		printError(s.out, fmt.Errorf("unrecognized command: %s", line))
		return "", false
	}
	s.lines = append(s.lines, line)
	if !strings.HasSuffix(line, ";") {
		return "", false
	}
	query = strings.Join(s.lines, " ")
	s.lines = s.lines[:0]
	return query, false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (s *session) pending() bool {
	return len(s.lines) > 0
}

func (s *session) reset() {
	s.lines = s.lines[:0]
}

func (s *session) describe(ctx context.Context, args []string) error {
	if len(args) == 0 {
		entries, err := s.client.Tables(ctx)
		if err != nil {
			return err
		}
		return printTable(s.out, entriesTable(entries), s.format)
	}
	entries, err := s.client.Versions(ctx, args[0])
	if err != nil {
		return err
	}
	return printTable(s.out, entriesTable(entries), s.format)
}

func (s *session) importFiles(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: \\import table file-or-glob...")
	}
	paths, err := util.Glob(args[1:]...)
	if err != nil {
		return err
	}
	t, err := util.LoadTables(args[0], nil, paths...)
	if err != nil {
		return err
	}
	entry, err := s.client.Put(ctx, args[0], t)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "imported %s version %d (%d rows)\n", entry.Name, entry.Version, entry.Rows)
	return nil
}

func (s *session) execute(ctx context.Context, query string) error {
	resp, err := s.client.Query(ctx, query, s.explain)
	if err != nil {
		return err
	}
	if s.out != os.Stdout || s.pager == "" {
		return printResult(s.out, resp, s.format)
	}
	return withPaging(s.pager, func(w io.Writer) error {
		return printResult(w, resp, s.format)
	})
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "tsjoin-history")
	}
	return filepath.Join(home, ".tsjoin_history")
}

func run() error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer l.Close()
	l.CaptureExitSignal()
	fmt.Print(artwork)
	fmt.Println(`Type "help" for help.`)
	fmt.Println()

	ctx := context.Background()
	s := &session{client: newClient(), out: os.Stdout, pager: maybePager()}
	for {
		line, err := l.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				s.reset()
				l.SetPrompt(prompt)
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		query, quit := s.handle(ctx, line)
		if quit {
			return nil
		}
		if s.pending() {
			l.SetPrompt(continuePrompt)
			continue
		}
		l.SetPrompt(prompt)
		if query == "" {
			continue
		}
		if err := l.SaveHistory(query); err != nil {
			printError(s.out, err)
		}
		if err := s.execute(ctx, query); err != nil {
			printError(s.out, err)
		}
	}
}

var help = map[string]string{
	"": `The tsjoin client is an interactive interpreter for tsjoin, a server for
as-of joins over time series tables.

The client supports interaction via either queries or slash commands. The
supported slash commands are:

  \h [topic]             print help text. If topic is blank, prints this text.
  \d [table]             list tables, or the versions of one table
  \import table files... import CSV or JSON files as a new table version
  \x                     toggle expanded display
  \explain               toggle plans and execution statistics
  \q                     quit

Available help topics are:
  query: Show examples of query syntax.
  import: Explain the \import command.

Any input aside from "help" that does not start with a backslash is interpreted
as a query. Queries are terminated with a semicolon.`,

	"query": `Queries read one table, or as-of join two. They can span multiple lines and
are terminated with a semicolon.

Read a table:
    from quotes;

Read a time range of a table:
    from quotes between "2024-01-01" and "2024-01-02";

Match each quote with the latest trade at or before it, per symbol:
    from quotes as q asof join trades as t on q.time >= t.time by q.sym = t.sym;

Require a strictly earlier trade within two seconds, dropping unmatched quotes:
    from quotes as q asof inner join trades as t on q.time > t.time by sym within "2s";

Filtering and paging:
    from quotes as q asof join trades as t on q.time >= t.time
      where t.price > 100 limit 10 offset 5;`,

	"import": `The \import command uploads files as a new version of a table. The syntax is:
  \import table file...

Files must be CSV with a header row, or JSON in the format returned by the
server. Column types of CSV files are inferred. Globs, including ** for
recursive matching, are expanded and the matching files are concatenated in
path order, so they must share a schema.`,
}

// clientCmd represents the client command
var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "tsjoin interactive client",
	Run: func(cmd *cobra.Command, args []string) {
		if err := run(); err != nil {
			bailf("error running client: %s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(clientCmd)
}
