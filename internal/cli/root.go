// Package cli implements the jikan command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jikan4/jikan4/call"
	"github.com/jikan4/jikan4/jikan"
	"github.com/jikan4/jikan4/observe"
)

var version = "dev"

// SetVersion records the build version for --version and telemetry.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// app holds per-invocation state shared by the commands.
type app struct {
	v        *viper.Viper
	cfgFile  string
	noSpread bool
	out      io.Writer
	errOut   io.Writer

	cfg      Config
	logger   observe.Logger
	observer observe.Observer
	client   *jikan.Client
}

// Execute runs the CLI with args and returns the first error.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	root, a := newRootCommand(out, errOut)
	root.SetArgs(args)
	defer a.close(context.WithoutCancel(ctx))
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	root, _ := newRootCommand(out, errOut)
	return root
}

func newRootCommand(out, errOut io.Writer) (*cobra.Command, *app) {
	a := &app{v: newViper(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "jikan",
		Short: "Query MyAnimeList through the Jikan API",
		Long: `Query MyAnimeList through the Jikan API.

Responses are cached for the lifetime of the process and requests are
rate limited. Configuration is read from --config, JIKAN_* environment
variables and flags, in increasing order of precedence.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("base-url", "", "API base URL (default "+jikan.DefaultBaseURL+")")
	flags.String("log-level", "", "log level: debug|info|warn|error")
	flags.Int("rate", 0, "maximum requests per period")
	flags.Duration("period", 0, "rate limit period")
	flags.BoolVar(&a.noSpread, "no-spread", false, "allow bursts instead of spacing requests evenly")
	flags.StringP("output", "o", "", "output format: table|json")

	_ = a.v.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("rate_limit.max_calls", flags.Lookup("rate"))
	_ = a.v.BindPFlag("rate_limit.period", flags.Lookup("period"))
	_ = a.v.BindPFlag("output", flags.Lookup("output"))

	root.AddCommand(
		lookupCommand(a, "anime", "Show anime by MyAnimeList id", (*jikan.Client).AnimeFetcher, renderer.anime),
		lookupCommand(a, "manga", "Show manga by MyAnimeList id", (*jikan.Client).MangaFetcher, renderer.manga),
		lookupCommand(a, "character", "Show characters by MyAnimeList id", (*jikan.Client).CharacterFetcher, renderer.characters),
		a.searchCommand(),
		a.doctorCommand(),
	)
	return root, a
}

// setup loads configuration and builds the client before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.noSpread {
		a.v.Set("rate_limit.spread", false)
	}

	cfg, err := loadConfig(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	obs, err := observe.NewObserver(cmd.Context(), cfg.Telemetry,
		observe.WithLogWriter(a.errOut),
		observe.WithExportWriter(a.errOut),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.observer = obs
	a.logger = obs.Logger()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	client, err := jikan.New(cfg.Config, jikan.WithMiddleware(mw))
	if err != nil {
		return err
	}
	a.client = client

	a.logger.Debug(cmd.Context(), "client ready",
		observe.F("base_url", cfg.BaseURL),
		observe.F("rate_limit.max_calls", cfg.RateLimit.MaxCalls),
		observe.F("rate_limit.period", cfg.RateLimit.Period.String()),
		observe.F("rate_limit.spread", cfg.RateLimit.Spread),
	)
	return nil
}

func (a *app) close(ctx context.Context) {
	if a.client != nil {
		a.client.Close()
	}
	if a.observer != nil {
		if err := a.observer.Shutdown(ctx); err != nil {
			a.logger.Warn(ctx, "telemetry shutdown failed", observe.F("error", err.Error()))
		}
	}
}

func (a *app) render() renderer {
	return renderer{w: a.out, format: a.cfg.Output}
}

// lookupCommand builds a command that fetches one or more ids concurrently.
func lookupCommand[T any](a *app, use, short string, fetcher func(*jikan.Client) call.Callable[int, T], render func(renderer, []T) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id> [id...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			items, err := fetchAll(cmd.Context(), fetcher(a.client), ids)
			if err != nil {
				return err
			}
			return render(a.render(), items)
		},
	}
}

func (a *app) searchCommand() *cobra.Command {
	var params jikan.SearchParams

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search anime by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Query = strings.Join(args, " ")
			result, err := a.client.SearchAnime(cmd.Context(), params)
			if err != nil {
				return err
			}
			return a.render().search(result)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&params.Limit, "limit", 10, "maximum results per page")
	flags.IntVar(&params.Page, "page", 0, "result page")
	flags.StringVar(&params.Type, "type", "", "anime type: tv|movie|ova|special|ona|music")
	flags.StringVar(&params.OrderBy, "order-by", "", "order field, e.g. score or popularity")
	flags.StringVar(&params.Sort, "sort", "", "sort direction: asc|desc")
	flags.BoolVar(&params.SFW, "sfw", false, "exclude adult entries")
	return cmd
}

// fetchAll starts one call per id and waits for all of them in order.
func fetchAll[T any](ctx context.Context, fetcher call.Callable[int, T], ids []int) ([]T, error) {
	futures := make([]*call.Future[T], len(ids))
	for i, id := range ids {
		futures[i] = call.Go(ctx, fetcher, id)
	}
	return call.AwaitAll(ctx, futures...)
}

var errInvalidID = errors.New("cli: id must be a positive integer")

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q", errInvalidID, arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
