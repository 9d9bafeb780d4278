package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyimports/pkg/config"
	"github.com/Sumatoshi-tech/pyimports/pkg/renamer"
	"github.com/Sumatoshi-tech/pyimports/pkg/report"
)

// RenameCommand holds the flags of rename-imports.
type RenameCommand struct {
	globals *GlobalOptions
	scan    scanFlags

	maxLineLength  int
	dryRun         bool
	diff           bool
	firstMatchOnly bool
}

// NewRenameCommand creates the rename-imports command.
func NewRenameCommand(globals *GlobalOptions) *cobra.Command {
	rc := &RenameCommand{globals: globals}

	cmd := &cobra.Command{
		Use:   "rename-imports <root> <old> <new>",
		Short: "Rewrite imports of one module to another",
		Long: `Rewrite "import old[.sub]" and "from old[.sub] import ..." statements under
root to use new, in place.

One line is printed per rewritten file, in visitation order. Files whose
rewritten lines exceed the maximum line length are prefixed with "style:".`,
		Args: cobra.ExactArgs(3),
		RunE: rc.run,
	}

	rc.scan.register(cmd)

	cmd.Flags().IntVar(&rc.maxLineLength, "max-line-length", config.DefaultMaxLineLength,
		"Rewritten lines longer than this are reported with style:")
	cmd.Flags().BoolVar(&rc.dryRun, "dry-run", false, "Report the rewrites without writing files")
	cmd.Flags().BoolVar(&rc.diff, "diff", false, "Print a line diff for each rewritten file")
	cmd.Flags().BoolVar(&rc.firstMatchOnly, "first-match-only", config.DefaultFirstMatchOnly,
		"Skip from-imports in files whose plain imports were rewritten")

	return cmd
}

func (rc *RenameCommand) run(cmd *cobra.Command, args []string) error {
	root, err := resolveRootDir(args[0])
	if err != nil {
		return err
	}

	oldID, err := parseIdentifier("old", args[1])
	if err != nil {
		return err
	}

	newID, err := parseIdentifier("new", args[2])
	if err != nil {
		return err
	}

	sess, err := openSession(cmd, rc.globals, func(cfg *config.Config) {
		rc.scan.apply(cmd, cfg)

		if cmd.Flags().Changed("max-line-length") {
			cfg.Rename.MaxLineLength = rc.maxLineLength
		}

		if cmd.Flags().Changed("first-match-only") {
			cfg.Rename.FirstMatchOnly = rc.firstMatchOnly
		}
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	det, err := sess.detector(oldID)
	if err != nil {
		return err
	}

	walker, err := sess.walker()
	if err != nil {
		return err
	}

	r := &renamer.Renamer{
		Walker:         walker,
		Detector:       det,
		Patterns:       sess.patterns,
		Old:            oldID,
		New:            newID,
		MaxLineLength:  sess.cfg.Rename.MaxLineLength,
		DryRun:         rc.dryRun,
		Diff:           rc.diff,
		FirstMatchOnly: sess.cfg.Rename.FirstMatchOnly,
		Workers:        sess.cfg.Walk.Workers,
		Logger:         sess.providers.Logger,
		Tracer:         sess.providers.Tracer,
		Metrics:        sess.providers.Metrics,
	}

	rep, err := r.Rename(cmd.Context(), root)
	if err != nil {
		return err
	}

	sess.providers.Logger.InfoContext(cmd.Context(), "rename complete",
		slog.String("old", rep.Old),
		slog.String("new", rep.New),
		slog.Bool("dry_run", rep.DryRun),
		slog.Int("style", rep.StyleCount()),
		slog.String("summary", rep.Stats.Summary()),
	)

	opts, err := sess.renderOptions(rc.diff)
	if err != nil {
		return err
	}

	return report.RenderRewrite(sess.out, rep, opts)
}
