package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	texttemplate "github.com/yetanotherchris/text-template"
	"github.com/yetanotherchris/text-template/internal/datafile"
	"github.com/yetanotherchris/text-template/value"
)

type RenderOptions struct {
	TemplateFiles []string
	DataFiles     []string
	Sets          []string
	Entry         string
	OutputFile    string

	LeftDelim  string
	RightDelim string
	MissingKey string
	MaxDepth   int
	Fuel       uint64

	Watch       bool
	MetricsAddr string
	Debug       bool
}

func NewRenderOptions() *RenderOptions {
	return &RenderOptions{MissingKey: "default"}
}

func NewRenderCmd(o *RenderOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "render",
		Aliases: []string{"r"},
		Short:   "Render templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.Run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringArrayVarP(&o.TemplateFiles, "file", "f", nil, "Template file (can be specified multiple times; files are concatenated in order)")
	cmd.Flags().StringArrayVarP(&o.DataFiles, "data", "d", nil, "YAML, JSON or TOML data file (can be specified multiple times; later files override earlier ones)")
	cmd.Flags().StringArrayVar(&o.Sets, "set", nil, "Set a data value, parsed as a YAML scalar (format: key.sub=value) (can be specified multiple times)")
	cmd.Flags().StringVarP(&o.Entry, "template", "t", "", "Render the named template instead of the file body")
	cmd.Flags().StringVarP(&o.OutputFile, "output", "o", "", "Write output to file instead of stdout")
	cmd.Flags().StringVar(&o.LeftDelim, "left-delim", "", "Left action delimiter (default '{{')")
	cmd.Flags().StringVar(&o.RightDelim, "right-delim", "", "Right action delimiter (default '}}')")
	cmd.Flags().StringVar(&o.MissingKey, "missingkey", o.MissingKey, "Behavior for missing values: default, zero or error")
	cmd.Flags().IntVar(&o.MaxDepth, "max-depth", texttemplate.DefaultMaxDepth, "Maximum nesting of template calls")
	cmd.Flags().Uint64Var(&o.Fuel, "fuel", 0, "Maximum evaluation steps per render (0 means unlimited)")
	cmd.Flags().BoolVar(&o.Watch, "watch", false, "Re-render when a template or data file changes")
	cmd.Flags().StringVar(&o.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while watching (e.g. ':9090')")
	cmd.Flags().BoolVar(&o.Debug, "debug", false, "Enable debug output")
	return cmd
}

func (o *RenderOptions) Run(ctx context.Context, stdout, stderr io.Writer) error {
	if len(o.TemplateFiles) == 0 {
		return fmt.Errorf("Expected at least one template file (use --file)")
	}
	if o.MetricsAddr != "" && !o.Watch {
		return fmt.Errorf("Flag --metrics-addr requires --watch")
	}

	logger := newLogger(stderr, o.Debug)
	r := &renderer{opts: o, logger: logger, stdout: stdout}

	if !o.Watch {
		_, err := r.render()
		return err
	}

	metrics := NewMetrics()
	r.metrics = metrics
	if o.MetricsAddr != "" {
		srv, err := metrics.Serve(o.MetricsAddr, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// A failing first render is reported but does not stop watching.
	if _, err := r.render(); err != nil {
		fmt.Fprintf(stderr, "%s\n", DescribeError(err))
	}

	watcher, err := NewWatcher(o.watchedFiles(), DefaultDebounce, logger)
	if err != nil {
		return err
	}
	defer watcher.Close()

	return watcher.Watch(ctx, func() {
		if _, err := r.render(); err != nil {
			fmt.Fprintf(stderr, "%s\n", DescribeError(err))
		}
	})
}

func (o *RenderOptions) watchedFiles() []string {
	files := make([]string, 0, len(o.TemplateFiles)+len(o.DataFiles))
	files = append(files, o.TemplateFiles...)
	return append(files, o.DataFiles...)
}

// LoadData reads the data files, merges them left to right and applies the
// --set overrides.
func (o *RenderOptions) LoadData() (value.Value, error) {
	sources := make([]value.Value, 0, len(o.DataFiles))
	for _, path := range o.DataFiles {
		v, err := datafile.Load(path)
		if err != nil {
			return value.Undefined(), fmt.Errorf("Loading data file '%s': %w", path, err)
		}
		if v.Kind() != value.KindMap {
			return value.Undefined(), fmt.Errorf("Data file '%s' must contain a map, got %s", path, v.Kind())
		}
		sources = append(sources, v)
	}

	merged := value.MergeMaps(sources...)
	m, _ := merged.AsMap()
	for _, kv := range o.Sets {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return value.Undefined(), fmt.Errorf("Expected --set value to be in format 'key=value', got '%s'", kv)
		}
		datafile.SetPath(m, key, datafile.ParseScalar(raw))
	}
	return merged, nil
}

// NewTemplate builds and parses the template described by the options.
func (o *RenderOptions) NewTemplate(logger *slog.Logger) (*texttemplate.Template, error) {
	if _, err := value.ParseMissingKey(o.MissingKey); err != nil {
		return nil, fmt.Errorf("Invalid --missingkey value: %w", err)
	}
	name := filepath.Base(o.TemplateFiles[0])
	tmpl := texttemplate.New(name).
		Delims(o.LeftDelim, o.RightDelim).
		Option("missingkey=" + o.MissingKey).
		SetMaxDepth(o.MaxDepth).
		SetFuel(o.Fuel).
		SetLogger(logger).
		Funcs(dataFuncs)
	return tmpl.ParseFiles(o.TemplateFiles...)
}

type renderer struct {
	opts    *RenderOptions
	logger  *slog.Logger
	stdout  io.Writer
	metrics *Metrics
}

// render produces one output. Template and data are reloaded each time so
// a watch loop picks up edits.
func (r *renderer) render() (out string, err error) {
	t1 := time.Now()
	defer func() {
		r.logger.Debug("Render finished", "duration", time.Since(t1), "bytes", len(out), "ok", err == nil)
		r.metrics.observe(time.Since(t1), len(out), err)
	}()

	tmpl, err := r.opts.NewTemplate(r.logger)
	if err != nil {
		return "", err
	}
	data, err := r.opts.LoadData()
	if err != nil {
		return "", err
	}

	if r.opts.Entry != "" {
		out, err = tmpl.ExecuteTemplate(r.opts.Entry, data)
	} else {
		out, err = tmpl.Execute(data)
	}
	if err != nil {
		return "", err
	}
	return out, r.write(out)
}

func (r *renderer) write(out string) error {
	if r.opts.OutputFile == "" {
		_, err := io.WriteString(r.stdout, out)
		return err
	}
	if err := os.WriteFile(r.opts.OutputFile, []byte(out), 0o644); err != nil {
		return fmt.Errorf("Writing output file '%s': %w", r.opts.OutputFile, err)
	}
	r.logger.Info("Wrote output", "path", r.opts.OutputFile, "bytes", len(out))
	return nil
}
