package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/temppivot/pkg/dag"
	"github.com/matzehuels/temppivot/pkg/errors"
	pio "github.com/matzehuels/temppivot/pkg/io"
	"github.com/matzehuels/temppivot/pkg/pivot"
	"github.com/matzehuels/temppivot/pkg/render/nodelink"
	"github.com/matzehuels/temppivot/pkg/scene"
	"github.com/matzehuels/temppivot/pkg/scene/memscene"
)

// Order output formats.
const (
	formatText = "text"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

var validOrderFormats = map[string]bool{formatText: true, formatDOT: true, formatSVG: true}

// orderOpts holds the flags of the order command.
type orderOpts struct {
	selection []string // node names; the scene's selection when empty
	format    string
	output    string
	reduce    bool // drop transitive edges from diagrams
	detailed  bool // path and depth in diagram labels
}

// orderCommand creates the order command.
func (c *CLI) orderCommand() *cobra.Command {
	opts := orderOpts{format: formatText}

	cmd := &cobra.Command{
		Use:   "order [scene]",
		Short: "Show the propagation order of a selection",
		Long: `Show the order in which a temp pivot session updates the selected nodes.

Every node comes after its selected ancestors, so a parent is settled
before its children read their world matrices. Nodes without an ordering
constraint keep their selection order. The diagram formats draw the
ancestry graph the order is derived from.`,
		Example: `  temppivot order rig.toml
  temppivot order rig.toml --select head,hips,hand_l
  temppivot order rig.toml -f svg -o order.svg --reduce`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validOrderFormats[opts.format] {
				return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: text, dot, svg)", opts.format)
			}
			return c.runOrder(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.selection, "select", nil, "nodes to order (comma-separated; default: the scene's selection)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: text, dot, svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.reduce, "reduce", false, "drop transitive edges from the diagram")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show path and depth in diagram labels")

	return cmd
}

func (c *CLI) runOrder(cmd *cobra.Command, scenePath string, opts orderOpts) error {
	sf, _, err := pio.ImportScene(scenePath)
	if err != nil {
		return err
	}
	s, err := sf.Build()
	if err != nil {
		return err
	}
	nodes, err := orderSelection(s, opts.selection)
	if err != nil {
		return err
	}

	ordered, err := pivot.SortSelection(nodes)
	if err != nil {
		return err
	}
	c.Logger.Debug("sorted selection", "nodes", len(ordered), "depth", pivot.MaxDepth(ordered))

	var data []byte
	switch opts.format {
	case formatText:
		data = []byte(orderText(ordered))
	default:
		g, err := pivot.SelectionGraph(nodes)
		if err != nil {
			return err
		}
		if opts.reduce {
			dag.TransitiveReduction(g)
		}
		dot := nodelink.ToDOT(g, nodelink.Options{
			Order:    uuids(ordered),
			Detailed: opts.detailed,
		})
		data = []byte(dot)
		if opts.format == formatSVG {
			if data, err = nodelink.RenderSVG(dot); err != nil {
				return err
			}
		}
	}

	if opts.output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess(cmd.OutOrStdout(), "Wrote %s order of %d nodes", opts.format, len(ordered))
	printFile(cmd.OutOrStdout(), opts.output)
	return nil
}

// orderSelection resolves names, or the scene's selection when names is
// empty, to transform handles.
func orderSelection(s *memscene.Scene, names []string) ([]scene.Node, error) {
	if len(names) == 0 {
		nodes := scene.TransformSelection(s)
		if len(nodes) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidSelection, "the scene selects nothing; pass --select")
		}
		return nodes, nil
	}
	ids, err := s.Resolve(names...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "select")
	}
	return scene.Nodes(s, ids), nil
}

func orderText(ordered []scene.Node) string {
	var b strings.Builder
	for i, n := range ordered {
		fmt.Fprintf(&b, "%s  %s  %s\n", StyleHighlight.Render(fmt.Sprintf("%3d", i+1)), n.Path(), StyleDim.Render(fmt.Sprintf("depth %d", n.Depth())))
	}
	return b.String()
}

func uuids(nodes []scene.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.UUID()
	}
	return out
}
