package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/pipeboard/internal/assemble"
	"github.com/lherron/pipeboard/internal/cli/appctx"
	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/render"
	"github.com/lherron/pipeboard/internal/sheet"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the dashboard hierarchy",
	Long: `Tree runs the read path (the same one behind GET /exec?action=getData) and
prints the assembled hierarchy. The default output is an indented outline;
--json and --yaml print the exact payload data, --tsv flattens it to one line
per requirement.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runTree),
}

var treeFormat formatFlags

func init() {
	rootCmd.AddCommand(treeCmd)
	treeFormat.register(treeCmd)
}

func runTree(app *appctx.App, cmd *cobra.Command, args []string) error {
	tree, err := app.Store.Tree(commandContext(cmd), app.Config.DashboardVariant())
	if err != nil {
		return exitError(1, err)
	}

	r := treeFormat.renderer(cmd.OutOrStdout())
	switch r.Format() {
	case render.FormatJSON:
		return r.RenderJSON(tree.Roots())
	case render.FormatYAML:
		return r.RenderYAML(tree.Roots())
	case render.FormatNDJSON:
		var items []any
		if tree.Variant == domain.VariantReduced {
			for _, p := range tree.Pipelines {
				items = append(items, p)
			}
		} else {
			for _, c := range tree.Categories {
				items = append(items, c)
			}
		}
		return r.RenderNDJSON(items)
	case render.FormatTSV:
		return r.RenderTSV(requirementColumns, requirementRows(tree))
	default:
		return writeOutline(cmd.OutOrStdout(), tree)
	}
}

var requirementColumns = []string{"category", "pipeline", "client", "section", "requirement", "name", "priority", "status"}

// requirementRows flattens the tree to one row per requirement.
func requirementRows(tree assemble.Tree) [][]string {
	var rows [][]string
	addPipeline := func(category string, p domain.Pipeline) {
		for _, c := range p.Clients {
			for _, s := range c.Sections {
				for _, r := range s.Requirements {
					rows = append(rows, []string{category, p.Name, c.Name, s.Name, r.ID, r.Name, r.Priority, r.Status})
				}
			}
		}
	}
	if tree.Variant == domain.VariantReduced {
		for _, p := range tree.Pipelines {
			addPipeline("", p)
		}
		return rows
	}
	for _, cat := range tree.Categories {
		for _, p := range cat.Pipelines {
			addPipeline(cat.Name, p)
		}
	}
	return rows
}

func writeOutline(w io.Writer, tree assemble.Tree) error {
	var b strings.Builder
	line := func(depth int, format string, args ...any) {
		b.WriteString(strings.Repeat("  ", depth))
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	writePipeline := func(depth int, p domain.Pipeline) {
		line(depth, "%s (%s)", p.Name, p.ID)
		for _, c := range p.Clients {
			line(depth+1, "%s (%s)", c.Name, c.ID)
			for _, d := range c.Data {
				line(depth+2, "* %s", d.Item)
			}
			if c.Diagram.Value != nil {
				line(depth+2, "diagram %s", c.Diagram.Value.ID)
			}
			for _, s := range c.Sections {
				line(depth+2, "%s", s.Name)
				for _, r := range s.Requirements {
					label := r.Name
					if r.Subname != "" {
						label += " / " + r.Subname
					}
					line(depth+3, "[%s] %s %s (%s)", statusOrDash(r.Status), r.ID, label, r.Priority)
					for _, bullet := range r.Bullets {
						line(depth+4, "- %s", bullet.Text)
					}
					for _, t := range r.Technologies {
						line(depth+4, "%s %s %s %s%%", t.Name, t.Type, t.Stage, sheet.CellText(t.Progress))
					}
					for _, so := range r.Signoffs {
						line(depth+4, "signed off by %s at %s", so.PersonName, so.SignedAt)
					}
				}
			}
		}
	}

	if tree.Variant == domain.VariantReduced {
		for _, p := range tree.Pipelines {
			writePipeline(0, p)
		}
	} else {
		for _, c := range tree.Categories {
			line(0, "%s (%s)", c.Name, c.ID)
			for _, p := range c.Pipelines {
				writePipeline(1, p)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func statusOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
