package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyimports/pkg/config"
	"github.com/Sumatoshi-tech/pyimports/pkg/finder"
	"github.com/Sumatoshi-tech/pyimports/pkg/report"
)

// FindCommand holds the flags of find-imports.
type FindCommand struct {
	globals *GlobalOptions
	scan    scanFlags
}

// NewFindCommand creates the find-imports command.
func NewFindCommand(globals *GlobalOptions) *cobra.Command {
	fc := &FindCommand{globals: globals}

	cmd := &cobra.Command{
		Use:   "find-imports <root> <module>",
		Short: "List files importing a module",
		Long: `List the files under root that import module, either with
"import module[.sub]" or "from module[.sub] import ...".

Paths are printed relative to root, sorted, one per line.`,
		Args: cobra.ExactArgs(2),
		RunE: fc.run,
	}

	fc.scan.register(cmd)

	return cmd
}

func (fc *FindCommand) run(cmd *cobra.Command, args []string) error {
	root, err := resolveRootDir(args[0])
	if err != nil {
		return err
	}

	id, err := parseIdentifier("target", args[1])
	if err != nil {
		return err
	}

	sess, err := openSession(cmd, fc.globals, func(cfg *config.Config) {
		fc.scan.apply(cmd, cfg)
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	det, err := sess.detector(id)
	if err != nil {
		return err
	}

	walker, err := sess.walker()
	if err != nil {
		return err
	}

	f := &finder.Finder{
		Walker:   walker,
		Detector: det,
		Workers:  sess.cfg.Walk.Workers,
		Logger:   sess.providers.Logger,
		Tracer:   sess.providers.Tracer,
		Metrics:  sess.providers.Metrics,
	}

	res, err := f.Find(cmd.Context(), root)
	if err != nil {
		return err
	}

	out := &report.Find{
		Root:     res.Root,
		Module:   res.Module,
		Strategy: res.Strategy,
		Paths:    res.Paths,
		Stats: report.Stats{
			Scanned:   res.Scanned,
			Matched:   len(res.Paths),
			BytesRead: res.BytesRead,
		},
	}

	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, report.NewWarning(w.Path, w.Err))
	}

	sess.providers.Logger.InfoContext(cmd.Context(), "find complete",
		slog.String("module", res.Module), slog.String("summary", out.Stats.Summary()))

	opts, err := sess.renderOptions(false)
	if err != nil {
		return err
	}

	return report.RenderFind(sess.out, out, opts)
}
