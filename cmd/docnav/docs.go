package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/ingest"
	"github.com/dgallion1/docnav/internal/navigator"
	"github.com/dgallion1/docnav/internal/render"
	"github.com/dgallion1/docnav/internal/search"
)

func queryCMD(cfgPath *string) *cobra.Command {
	var (
		maxSteps int
		timeout  time.Duration
		trace    bool
	)
	query := &cobra.Command{
		Use:   "query <source> <question...>",
		Short: "Answer one question about a document",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, idx, err := openDocument(cmd.Context(), *cfgPath, args[0])
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}

			question := strings.Join(args[1:], " ")
			res, err := a.engine.Query(cmd.Context(), idx, question,
				navigator.WithMaxSteps(maxSteps),
				navigator.WithTimeout(timeout),
			)
			if err != nil {
				return err
			}
			return render.Result(cmd.OutOrStdout(), res, trace)
		},
	}
	query.Flags().IntVar(&maxSteps, "max-steps", 0, "navigation step budget (default is navigation.max_steps)")
	query.Flags().DurationVar(&timeout, "timeout", 0, "navigation time limit, e.g. 30s")
	query.Flags().BoolVar(&trace, "trace", false, "print the navigation trace")
	return query
}

func outlineCMD(cfgPath *string) *cobra.Command {
	var depth int
	outline := &cobra.Command{
		Use:   "outline <source>",
		Short: "Print a document's section tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if depth < 1 {
				return fmt.Errorf("--depth must be at least 1, got %d", depth)
			}
			a, idx, err := openDocument(cmd.Context(), *cfgPath, args[0])
			if err != nil {
				return err
			}
			defer a.Close()
			return render.Structure(cmd.OutOrStdout(), idx, depth)
		},
	}
	outline.Flags().IntVar(&depth, "depth", 3, "levels below the root to show")
	return outline
}

func searchCMD(cfgPath *string) *cobra.Command {
	var limit int
	searchCmd := &cobra.Command{
		Use:   "search <source> <terms...>",
		Short: "Find sections by keyword",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, idx, err := openDocument(cmd.Context(), *cfgPath, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			si, err := search.Build(idx)
			if err != nil {
				return err
			}
			defer si.Close()
			hits, err := si.Search(strings.Join(args[1:], " "), limit)
			if err != nil {
				return err
			}
			return render.Hits(cmd.OutOrStdout(), hits)
		},
	}
	searchCmd.Flags().IntVar(&limit, "limit", 10, "maximum number of hits")
	return searchCmd
}

func interactiveCMD(cfgPath *string) *cobra.Command {
	var trace bool
	interactive := &cobra.Command{
		Use:   "interactive <source>",
		Short: "Ask questions about a document until you type quit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, idx, err := openDocument(cmd.Context(), *cfgPath, args[0])
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := render.Structure(out, idx, 2); err != nil {
				return err
			}
			return interactiveLoop(cmd.Context(), cmd.InOrStdin(), out, idx, func(ctx context.Context, q string) (*navigator.Result, error) {
				return a.engine.Query(ctx, idx, q)
			}, trace)
		},
	}
	interactive.Flags().BoolVar(&trace, "trace", true, "print the navigation trace after each answer")
	return interactive
}

type queryFunc func(ctx context.Context, query string) (*navigator.Result, error)

// interactiveLoop reads one question per line until EOF or quit, exit or q.
// A failed query is reported and the loop continues.
func interactiveLoop(ctx context.Context, in io.Reader, out io.Writer, idx *doctree.Index, ask queryFunc, trace bool) error {
	fmt.Fprintf(out, "\nInteractive Query Mode - %s\n", idx.DocumentType())
	fmt.Fprintln(out, "Type your questions about the document. Type 'quit' to exit.")

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nQuery: ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		q := strings.TrimSpace(sc.Text())
		switch strings.ToLower(q) {
		case "quit", "exit", "q":
			return nil
		case "":
			continue
		}

		fmt.Fprintln(out, "\nNavigating document structure...")
		res, err := ask(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "Query failed: %v\n", err)
			continue
		}
		if err := render.Result(out, res, trace); err != nil {
			return err
		}
		if err := render.Separator(out); err != nil {
			return err
		}
	}
}

// openDocument loads config (logging to stderr) and the document at source.
func openDocument(ctx context.Context, cfgPath, source string) (*app, *doctree.Index, error) {
	a, err := newApp(cfgPath, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	idx, err := ingest.Load(ctx, source, a.ingest)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	a.log.Debug("document loaded", "doc_id", idx.DocumentID, "sections", idx.Len())
	return a, idx, nil
}
