package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"mqldb/internal/engine"
	"mqldb/internal/logger"
	"mqldb/internal/result"
	"mqldb/internal/sql"
)

const (
	prompt     = "mql> "
	contPrompt = "...> "
)

const shellHelp = `Statements end with ';' and may span lines.
  .tables   list tables
  .help     show this text
  .quit     leave the shell
`

func runShell(eng *engine.DBEngine, historyPath string, out io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
		defer saveHistory(line, historyPath)
	}

	var buf strings.Builder
	for {
		p := prompt
		if buf.Len() > 0 {
			p = contPrompt
		}
		input, err := line.Prompt(p)
		if errors.Is(err, liner.ErrPromptAborted) {
			buf.Reset()
			continue
		}
		if err == io.EOF {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		if buf.Len() == 0 && strings.HasPrefix(trimmed, ".") {
			line.AppendHistory(trimmed)
			switch trimmed {
			case ".quit", ".exit":
				return nil
			case ".help":
				fmt.Fprint(out, shellHelp)
			case ".tables":
				execPrint(eng, "SHOW ALL TABLES", out)
			default:
				fmt.Fprintf(out, "unknown command %s, try .help\n", trimmed)
			}
			continue
		}

		buf.WriteString(input)
		buf.WriteByte('\n')
		if !strings.HasSuffix(trimmed, ";") {
			continue
		}

		script := buf.String()
		buf.Reset()
		line.AppendHistory(strings.Join(strings.Fields(script), " "))
		for _, q := range sql.SplitStatements(script) {
			execPrint(eng, q, out)
		}
	}
}

func execPrint(eng *engine.DBEngine, query string, out io.Writer) {
	r := eng.Exec(result.KindString, query)
	defer result.Free(r)

	text := engine.Render(r)
	if !result.IsSuccess(r) {
		text = fmt.Sprintf("ERROR %d: %s", result.ErrorCode(r), text)
	}
	fmt.Fprint(out, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(out)
	}
}

func saveHistory(line *liner.State, path string) {
	f, err := os.Create(path)
	if err != nil {
		logger.Warn("cannot save history", "path", path, "error", err)
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		logger.Warn("cannot save history", "path", path, "error", err)
	}
}
