package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	pio "github.com/matzehuels/temppivot/pkg/io"
	"github.com/matzehuels/temppivot/pkg/pipeline"
)

// runOpts holds the flags of the run command.
type runOpts struct {
	script  string // script file to replay
	output  string // result file; format from its extension
	noCache bool   // do not read or write the offset cache
	refresh bool   // ignore cached offsets, still save new ones
	dump    bool   // print the final scene state
}

// runCommand creates the run command.
func (c *CLI) runCommand() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "Replay an edit script against a scene",
		Long: `Replay an edit script against a scene and print where every node ends up.

The scene file lists transforms, their parents and the initial selection.
The script is a list of steps: select nodes to start a temp pivot session,
then move, rotate, scale or re-pivot the master group, change the time,
delete nodes, and deselect or cancel to end the session.

Offsets learned when a session ends are cached per scene, so the next run
on the same scene places the master group where you left its pivot.`,
		Example: `  temppivot run rig.toml --script edit.yaml
  temppivot run rig.toml --script edit.yaml -o result.json
  temppivot run rig.toml --dump`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRun(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.script, "script", "s", "", "script file (toml, yaml or json)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the result to a toml, yaml or json file")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the offset cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached offsets for this run")
	cmd.Flags().BoolVar(&opts.dump, "dump", false, "print the final scene state")

	return cmd
}

func (c *CLI) runRun(ctx context.Context, cmd *cobra.Command, scenePath string, opts runOpts) error {
	out := cmd.OutOrStdout()

	var script *pio.Script
	if opts.script != "" {
		sc, err := pio.ImportScript(opts.script)
		if err != nil {
			return err
		}
		script = sc
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, cmd.ErrOrStderr(), "Replaying "+scenePath+"...")
	spinner.Start()

	result, err := runner.Execute(ctx, pipeline.Options{
		ScenePath: scenePath,
		Script:    script,
		Config:    c.config.Config,
		Refresh:   opts.refresh,
		Logger:    c.Logger,
	})
	if err != nil {
		spinner.StopWithError("Run failed")
		return err
	}
	spinner.Stop()
	prog.done("run complete", "scene", scenePath)

	printSuccess(out, "Replayed %s", scenePath)
	printStats(out, result.Stats.NodeCount, result.Stats.Steps, result.Stats.Sessions, result.CacheInfo.ContainerHit)
	fmt.Fprintln(out, nodeTable(result.Run.Nodes))

	if len(result.Run.Offsets) > 0 {
		names := make(map[string]string, len(result.Run.Nodes))
		for _, n := range result.Run.Nodes {
			names[n.UUID] = n.Name
		}
		fmt.Fprintln(out, offsetTable(result.Run.Offsets, names))
	}

	if opts.dump {
		fmt.Fprintln(out, result.Scene.Dump())
	}

	if opts.output != "" {
		if err := pio.ExportResult(opts.output, result.Run); err != nil {
			return err
		}
		printFile(out, opts.output)
	}

	if script == nil {
		printNextStep(out, "Replay edits", fmt.Sprintf("%s run %s --script edit.yaml", appName, scenePath))
	}
	return nil
}
