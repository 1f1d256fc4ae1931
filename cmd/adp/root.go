package main

//
// Root command and shared client setup
//

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/adp-wfs-client/internal/cache"
	"github.com/mohammed-shakir/adp-wfs-client/internal/cache/redisstore"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/config"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/httpclient"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/model"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/wfsclient"
	"github.com/mohammed-shakir/adp-wfs-client/internal/featureio"
	"github.com/mohammed-shakir/adp-wfs-client/internal/frame"
	"github.com/mohammed-shakir/adp-wfs-client/internal/logger"
)

// app carries state shared by all subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	envFile    string
	url        string
	version    string
	username   string
	password   string
	logLevel   string
	logConsole bool

	cfg   config.Config
	log   *slog.Logger
	redis *redisstore.Client
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

// close releases what the command opened. It runs whether or not the
// command failed.
func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "adp",
		Short:         "Query and map AURIN Data Provider WFS datasets",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file with WFS_* settings")
	pf.StringVar(&a.url, "url", "", "WFS base URL (overrides WFS_URL)")
	pf.StringVar(&a.version, "wfs-version", "", "WFS protocol version (overrides WFS_VERSION)")
	pf.StringVarP(&a.username, "username", "u", "", "basic auth username (overrides WFS_USERNAME)")
	pf.StringVarP(&a.password, "password", "p", "", "basic auth password (overrides WFS_PASSWORD)")
	pf.StringVar(&a.logLevel, "log-level", "", "debug|info|warn|error (overrides LOG_LEVEL)")
	pf.BoolVar(&a.logConsole, "log-console", false, "human readable logs (overrides LOG_CONSOLE)")

	root.AddCommand(
		operationsSubcommand(a),
		contentsSubcommand(a),
		fetchSubcommand(a),
		headSubcommand(a),
		plotSubcommand(a),
		mapSubcommand(a),
		serveSubcommand(a),
	)
	return root
}

// setup loads the environment, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	a.cfg = config.FromEnv()

	flags := cmd.Flags()
	if flags.Changed("url") {
		a.cfg.WFSURL = a.url
	}
	if flags.Changed("wfs-version") {
		a.cfg.WFSVersion = a.version
	}
	if flags.Changed("username") {
		a.cfg.Username = a.username
	}
	if flags.Changed("password") {
		a.cfg.Password = a.password
	}
	if flags.Changed("log-level") {
		a.cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-console") {
		a.cfg.LogConsole = a.logConsole
	}

	zl := logger.Build(logger.Config{
		Level:     a.cfg.LogLevel,
		Console:   a.cfg.LogConsole,
		SampleN:   a.cfg.LogSampleN,
		Component: "adp-" + cmd.Name(),
	}, a.stderr)
	a.log = logger.NewSlog(&zl)
	return nil
}

// client builds the feature request client from the resolved config.
func (a *app) client(ctx context.Context) (*wfsclient.Client, error) {
	conn, err := model.NewConnParams(a.cfg.WFSURL, a.cfg.WFSVersion, a.cfg.Username, a.cfg.Password)
	if err != nil {
		return nil, err
	}
	opts := []wfsclient.Option{
		wfsclient.WithCapabilitiesTTL(a.cfg.CapabilitiesTTL),
		wfsclient.WithUserAgent("adp/" + Version),
	}
	if a.cfg.Cache.Enabled {
		if a.redis == nil {
			rc, err := redisstore.New(ctx, a.cfg.Cache.RedisAddr)
			if err != nil {
				return nil, fmt.Errorf("response cache: %w", err)
			}
			a.redis = rc
		}
		opts = append(opts, wfsclient.WithCache(cache.NewRedis(a.redis, a.cfg.Cache.OpTimeout), a.cfg.Cache.TTL))
		a.log.Info("response cache enabled", "redis", a.cfg.Cache.RedisAddr, "ttl", a.cfg.Cache.TTL)
	}
	return wfsclient.New(a.log, httpclient.NewOutbound(a.cfg.HTTPTimeout), conn, opts...)
}

// queryFlags are the GetFeature parameters shared by fetch, head, plot and map.
type queryFlags struct {
	typeName string
	format   string
	bbox     string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&q.typeName, "typename", "t", "", "dataset type name")
	f.StringVarP(&q.format, "format", "f", "", "output format, e.g. application/json (default GML)")
	f.StringVarP(&q.bbox, "bbox", "b", "", "minx,miny,maxx,maxy[,crs]")
}

func (q *queryFlags) query() (model.FeatureQuery, error) {
	fq := model.FeatureQuery{
		TypeName:     strings.TrimSpace(q.typeName),
		OutputFormat: strings.TrimSpace(q.format),
	}
	if q.bbox != "" {
		bb, err := model.ParseBBox(q.bbox)
		if err != nil {
			return fq, err
		}
		fq.BBox = &bb
	}
	return fq, nil
}

// loadFrame reads a saved response when a path is given, otherwise it
// fetches the query and decodes the body in memory.
func (a *app) loadFrame(ctx context.Context, args []string, qf *queryFlags) (*frame.Frame, error) {
	if len(args) == 1 {
		return featureio.Load(args[0])
	}
	q, err := qf.query()
	if err != nil {
		return nil, err
	}
	c, err := a.client(ctx)
	if err != nil {
		return nil, err
	}
	body, err := c.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	return featureio.Decode(body)
}

// localName strips the workspace prefix from a type name.
func localName(typeName string) string {
	if i := strings.LastIndexByte(typeName, ':'); i >= 0 {
		return typeName[i+1:]
	}
	return typeName
}
