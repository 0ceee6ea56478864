package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/jackpatch"
	"github.com/aretw0/jackpatch/internal/presentation/graph"
	"github.com/aretw0/jackpatch/internal/presentation/tui"
	"github.com/aretw0/jackpatch/pkg/adapters/file"
	"github.com/aretw0/jackpatch/pkg/domain"
)

const (
	FormatTable   = "table"
	FormatMermaid = "mermaid"
	FormatXML     = "xml"
	FormatJSON    = "json"
)

// ShowOptions selects what Show prints.
type ShowOptions struct {
	// Path is a patch file. Ignored when From is set.
	Path string
	// From is the base URL of a running patcher's control API.
	From   string
	Format string
}

// Show prints a saved patch, or the live status of a running patcher.
func Show(ctx context.Context, opts ShowOptions, out io.Writer) error {
	var (
		title string
		view  graph.PatchView
		live  domain.ConnectionSet
	)

	if opts.From != "" {
		st, err := fetchStatus(ctx, opts.From)
		if err != nil {
			return err
		}
		title = st.Path
		if title == "" {
			title = "(no session)"
		}
		view = graph.PatchView{Ports: st.Ports, Live: st.Live, Desired: st.Desired}
		live = st.Live.Clone()
		if live == nil {
			live = domain.ConnectionSet{}
		}
	} else {
		set, err := file.New().Load(ctx, opts.Path)
		if err != nil {
			return err
		}
		title = opts.Path
		view = graph.PatchView{Desired: set}
	}

	switch opts.Format {
	case "", FormatTable:
		render, err := tui.NewRenderer()
		if err != nil {
			return err
		}
		s, err := render(tui.PatchMarkdown(title, view.Desired, live))
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, s)
		return err
	case FormatMermaid:
		_, err := io.WriteString(out, graph.GenerateMermaid(view))
		return err
	case FormatXML:
		data, err := file.Encode(view.Desired)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	return fmt.Errorf("unknown format %q", opts.Format)
}

func fetchStatus(ctx context.Context, base string) (jackpatch.Status, error) {
	var st jackpatch.Status

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(base, "/")+"/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, fmt.Errorf("failed to reach patcher: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("patcher returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("invalid status response: %w", err)
	}
	return st, nil
}
