package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/temppivot/pkg/errors"
	"github.com/matzehuels/temppivot/pkg/mat"
	"github.com/matzehuels/temppivot/pkg/pipeline"
)

// Interactive step sizes.
const (
	rotateStep = 15.0 // degrees
	scaleStep  = 1.1
	timeStep   = 1.0
)

var (
	pivotKeyStyle = lipgloss.NewStyle().Foreground(colorCyan)
	pivotErrStyle = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// PivotModel - Keyboard-driven temp pivot session
// =============================================================================

// PivotModel is the bubbletea model that manipulates a master group from the
// keyboard. Every key is one edit of the master group followed by the
// scene's idle tick, so the view always shows propagated positions.
type PivotModel struct {
	player *pipeline.Player
	step   float64

	// Edits counts the edits that reached the master group.
	Edits int
	// Cancelled is set when the session was discarded instead of ended.
	Cancelled bool
	err       error
}

// NewPivotModel creates a model over a player with a bound session. step is
// the distance of one move key press.
func NewPivotModel(p *pipeline.Player, step float64) PivotModel {
	if step <= 0 {
		step = 1
	}
	return PivotModel{player: p, step: step}
}

func (m PivotModel) Init() tea.Cmd {
	return nil
}

func (m PivotModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	var err error
	d := m.step
	switch key.String() {
	case "q", "esc", "ctrl+c":
		m.player.Deselect()
		return m, tea.Quit
	case "x":
		m.player.Cancel()
		m.Cancelled = true
		return m, tea.Quit
	case "left", "h":
		err = m.player.Move(mat.Vec3{-d, 0, 0})
	case "right", "l":
		err = m.player.Move(mat.Vec3{d, 0, 0})
	case "up", "k":
		err = m.player.Move(mat.Vec3{0, d, 0})
	case "down", "j":
		err = m.player.Move(mat.Vec3{0, -d, 0})
	case "w":
		err = m.player.Move(mat.Vec3{0, 0, -d})
	case "s":
		err = m.player.Move(mat.Vec3{0, 0, d})
	case "r":
		err = m.player.Rotate(mat.Vec3{0, rotateStep, 0})
	case "R":
		err = m.player.Rotate(mat.Vec3{0, -rotateStep, 0})
	case "+", "=":
		err = m.player.Scale(mat.Vec3{scaleStep, scaleStep, scaleStep})
	case "-":
		err = m.player.Scale(mat.Vec3{1 / scaleStep, 1 / scaleStep, 1 / scaleStep})
	case "t":
		m.player.SetTime(m.player.Scene().Time() + timeStep)
		return m, nil
	default:
		return m, nil
	}

	m.err = err
	if err == nil {
		m.Edits++
	}
	if !m.player.Active() {
		return m, tea.Quit
	}
	return m, nil
}

func (m PivotModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Temp Pivot"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("←/→ x  ↑/↓ y  w/s z  r/R rotate  +/- scale  t time  q done  x cancel"))
	b.WriteString("\n\n")

	if pos, err := m.player.MasterPosition(); err == nil {
		b.WriteString(pivotKeyStyle.Render("master") + " " + StyleValue.Render(fmtVec(pos)))
	} else {
		b.WriteString(StyleWarning.Render("no active session"))
	}
	b.WriteString("   ")
	b.WriteString(StyleDim.Render(fmt.Sprintf("time %g  edits %d", m.player.Scene().Time(), m.Edits)))
	b.WriteString("\n\n")

	if eng := m.player.Engine(); eng != nil && m.player.Active() {
		rows := [][]string{}
		for _, n := range eng.Nodes() {
			pos, err := n.WorldPosition()
			if err != nil {
				rows = append(rows, []string{n.Path(), StyleDim.Render("(deleted)")})
				continue
			}
			rows = append(rows, []string{n.Path(), fmtVec(pos)})
		}
		b.WriteString(newTable("Bound node", "World position").Rows(rows...).Render())
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(pivotErrStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// Command
// =============================================================================

type interactiveOpts struct {
	selection []string
	step      float64
	noCache   bool
}

// interactiveCommand creates the interactive command.
func (c *CLI) interactiveCommand() *cobra.Command {
	opts := interactiveOpts{step: 1}

	cmd := &cobra.Command{
		Use:   "interactive [scene]",
		Short: "Move a temp pivot around with the keyboard",
		Long: `Select nodes of a scene and drive their master group from the keyboard.

Quitting ends the session the way a deselect in the editor would, so a
single-node session learns where you left the pivot. Press x to discard
the session instead.`,
		Example: `  temppivot interactive rig.toml --select hand_l,hand_r
  temppivot interactive rig.toml --select hips --step 0.25`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInteractive(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.selection, "select", nil, "nodes to bind (comma-separated)")
	cmd.Flags().Float64Var(&opts.step, "step", opts.step, "distance of one move key press")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "neither read nor write cached offsets")
	_ = cmd.MarkFlagRequired("select")

	return cmd
}

func (c *CLI) runInteractive(cmd *cobra.Command, scenePath string, opts interactiveOpts) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	player, result, err := runner.Open(ctx, pipeline.Options{
		ScenePath: scenePath,
		Config:    c.config.Config,
		Logger:    quietLogger(cmd.ErrOrStderr()),
	})
	if err != nil {
		return err
	}

	bound, err := player.Select(ctx, opts.selection...)
	if err != nil {
		return err
	}
	if !bound {
		return errors.New(errors.ErrCodeInvalidSelection, "nothing to bind in %v", opts.selection)
	}

	final, err := tea.NewProgram(
		NewPivotModel(player, opts.step),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(out),
	).Run()
	if err != nil {
		player.Cancel()
		return fmt.Errorf("interactive session: %w", err)
	}

	if err := runner.Finish(ctx, player, result); err != nil {
		return err
	}

	model := final.(PivotModel)
	if model.Cancelled {
		printWarning(out, "Session discarded after %d edits", model.Edits)
	} else {
		printSuccess(out, "Session ended after %d edits", model.Edits)
	}
	fmt.Fprintln(out, nodeTable(result.Run.Nodes))
	if result.CacheInfo.ContainerSaved {
		printDetail(out, "Offsets cached for the next run")
	}
	return nil
}
