package app

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/phasegrid/internal/artifact"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
)

// renderArtifact writes a human-readable rendition of a under a header
// naming its phase.
func renderArtifact(w io.Writer, p phase.Phase, a artifact.Artifact) error {
	if _, err := fmt.Fprintf(w, "== %s (%s) ==\n", p, a.Kind()); err != nil {
		return err
	}
	switch v := a.(type) {
	case artifact.SourceText:
		_, err := fmt.Fprintln(w, v.Code)
		return err
	case artifact.TokenSet:
		return renderTokens(w, v)
	case artifact.SyntaxTree:
		return renderTree(w, v)
	case artifact.SymbolTable:
		return renderSymbols(w, v)
	case artifact.TranslatedCode:
		for _, line := range v.Lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintf(w, "%v\n", a)
		return err
	}
}

func renderTokens(w io.Writer, ts artifact.TokenSet) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tVALUE")
	for _, t := range ts.Tokens {
		fmt.Fprintf(tw, "%s\t%s\n", t.Type, t.Value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(ts.Unidentified) > 0 {
		_, err := fmt.Fprintf(w, "unidentified: %s\n", strings.Join(ts.Unidentified, " "))
		return err
	}
	return nil
}

func renderTree(w io.Writer, t artifact.SyntaxTree) error {
	if t.Root == nil {
		_, err := fmt.Fprintln(w, "(empty tree)")
		return err
	}
	var err error
	t.Walk(func(n *artifact.Node, depth int) bool {
		label := n.Symbol
		if n.Value != "" {
			label += " " + fmt.Sprintf("%q", n.Value)
		}
		_, err = fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), label)
		return err == nil
	})
	return err
}

func renderSymbols(w io.Writer, st artifact.SymbolTable) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tSCOPE")
	for _, r := range st.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Type, r.Name, r.Scope)
	}
	return tw.Flush()
}

// renderStatuses writes one row per phase with its status and, for failed
// phases, the error message.
func renderStatuses(w io.Writer, states []phasestate.State) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PHASE\tSTATUS\tDETAIL")
	for _, st := range states {
		detail := ""
		if st.Detail != nil {
			detail = fmt.Sprintf("%s: %s", st.Detail.Action, st.Detail.Message)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Phase, st.Status, detail)
	}
	return tw.Flush()
}
