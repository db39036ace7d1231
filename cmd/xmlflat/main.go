// Command xmlflat converts families of structurally-similar XML documents
// to CSV. It infers the field catalog from one template document, then
// streams every input through a buffering engine that packs related values
// onto shared rows.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/goccy/go-json"

	"github.com/xmlflat/xmlflat/core/catalog"
	"github.com/xmlflat/xmlflat/core/errors"
	"github.com/xmlflat/xmlflat/core/extract"
	"github.com/xmlflat/xmlflat/core/schema"
	"github.com/xmlflat/xmlflat/internal/config"
	"github.com/xmlflat/xmlflat/internal/fileutil"
	"github.com/xmlflat/xmlflat/internal/filter"
	"github.com/xmlflat/xmlflat/internal/logging"
	"github.com/xmlflat/xmlflat/internal/output"
)

const version = "0.1.0"

// CLI defines the command-line interface for xmlflat.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level" enum:"debug,info,warn,error" default:"info"`
	LogFormat string `name:"log-format" help:"Log output format" enum:"text,json" default:"text"`

	// Command groups (noun-first organization)
	Convert ConvertCmd  `cmd:"" help:"Convert XML documents to CSV"`
	Schema  SchemaGroup `cmd:"" help:"Schema operations (infer, show)"`
	Inspect InspectCmd  `cmd:"" help:"Evaluate an XPath expression against a document"`
	Version VersionCmd  `cmd:"" help:"Print version information"`
}

// SchemaGroup contains schema catalog operations.
type SchemaGroup struct {
	Infer SchemaInferCmd `cmd:"" help:"Infer and print the field catalog of a template"`
	Show  SchemaShowCmd  `cmd:"" help:"Show a cached schema from the catalog"`
}

// ConvertCmd converts one or more data documents against a template.
type ConvertCmd struct {
	Inputs []string `arg:"" name:"input" help:"XML files or directories to convert" type:"path"`

	Template string `help:"Template document; defaults to the first input" type:"existingfile"`
	Output   string `short:"o" help:"Output CSV path, '-' for stdout" default:"-"`
	PerFile  bool   `name:"per-file" help:"Write one CSV next to each input instead of one blend"`

	Variant   string `help:"Packing variant" enum:"none,standard,extensive-v1,extensive-v2,extensive-v3" default:"standard"`
	Separator string `help:"Field separator" default:";"`

	Attributes bool `help:"Extract attributes as columns"`
	Namespaces bool `help:"Namespace-aware element naming"`
	Unleashed  bool `help:"Track the document root (buffers whole documents)"`

	SingleHeader bool `name:"single-header" help:"Emit the header once for the whole run"`
	NoHeader     bool `name:"no-header" help:"Suppress the header line"`
	Cutoff       int  `help:"Rotate output files after this many lines, 0 disables" default:"0"`

	CatalystThreshold int `name:"catalyst-threshold" help:"Repetition count promoting an element to catalyst (extensive-v3)" default:"10"`

	Select      []string `help:"Track only these XPaths (exact field or ancestor)"`
	Discard     []string `help:"Drop these XPaths from tracking"`
	SelectFile  string   `name:"select-file" help:"File of XPaths to track, one per line" type:"existingfile"`
	DiscardFile string   `name:"discard-file" help:"File of XPaths to drop, one per line" type:"existingfile"`

	Profile string `help:"YAML conversion profile" type:"existingfile"`
	Cache   string `help:"Schema cache database; skips re-inference of known templates"`
}

// applyProfile fills flags still at their defaults from the profile.
func (c *ConvertCmd) applyProfile(p *config.Profile) {
	if p.Separator != "" && c.Separator == ";" {
		c.Separator = p.Separator
	}
	if p.Variant != "" && c.Variant == "standard" {
		c.Variant = p.Variant
	}
	if p.Attributes != nil && !c.Attributes {
		c.Attributes = *p.Attributes
	}
	if p.Namespaces != nil && !c.Namespaces {
		c.Namespaces = *p.Namespaces
	}
	if p.Unleashed != nil && !c.Unleashed {
		c.Unleashed = *p.Unleashed
	}
	if p.SingleHeader != nil && !c.SingleHeader {
		c.SingleHeader = *p.SingleHeader
	}
	if p.NoHeader != nil && !c.NoHeader {
		c.NoHeader = *p.NoHeader
	}
	if p.Cutoff != nil && c.Cutoff == 0 {
		c.Cutoff = *p.Cutoff
	}
	if p.CatalystThreshold != nil && c.CatalystThreshold == 10 {
		c.CatalystThreshold = *p.CatalystThreshold
	}
	c.Select = append(c.Select, p.Select...)
	c.Discard = append(c.Discard, p.Discard...)
	if p.Output != "" && c.Output == "-" {
		c.Output = p.Output
	}
}

func (c *ConvertCmd) Run() error {
	ctx := logging.WithRunID(context.Background(), logging.NewRunID())
	logging.InfoContext(ctx, "conversion run started")

	if c.Profile != "" {
		profile, err := config.Load(c.Profile)
		if err != nil {
			return err
		}
		c.applyProfile(profile)
	}

	variant, err := extract.ParseVariant(c.Variant)
	if err != nil {
		return errors.NewConfiguration("variant", err.Error())
	}

	inputs, err := fileutil.Discover(c.Inputs)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return errors.NewConfiguration("inputs", "no input documents found")
	}

	template := c.Template
	if template == "" {
		template = inputs[0]
	}

	s, err := c.loadSchema(ctx, template, variant)
	if err != nil {
		return err
	}

	selected, err := c.filterEntries(c.Select, c.SelectFile)
	if err != nil {
		return err
	}
	discarded, err := c.filterEntries(c.Discard, c.DiscardFile)
	if err != nil {
		return err
	}

	tracked, warnings, err := extract.NewTrackedSchema(s, selected, discarded)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logging.FilterDropped(ctx, w)
	}
	for i := 0; i < tracked.Len(); i++ {
		f := tracked.Field(i)
		logging.TrackedField(ctx, i, f.XPath, f.Parent, f.Cardinality.String(), f.Type.String())
	}

	opts := extract.Options{
		Variant:        variant,
		WithAttributes: c.Attributes,
		WithNamespaces: c.Namespaces,
		Unleashed:      c.Unleashed,
		SingleHeader:   c.SingleHeader,
		NoHeader:       c.NoHeader,
		Separator:      c.Separator,
	}

	if c.PerFile {
		return c.convertPerFile(ctx, inputs, tracked, opts)
	}
	return c.convertBlend(ctx, inputs, tracked, opts)
}

// loadSchema infers the template's schema, going through the cache when one
// is configured.
func (c *ConvertCmd) loadSchema(ctx context.Context, template string, variant extract.Variant) (*schema.Schema, error) {
	sOpts := schema.Options{
		WithAttributes:    c.Attributes,
		WithNamespaces:    c.Namespaces,
		Catalyst:          variant == extract.VariantExtensiveV3,
		CatalystThreshold: c.CatalystThreshold,
		Path:              template,
	}

	r, err := fileutil.Open(template)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", template, err)
	}

	var cache *catalog.Catalog
	var fingerprint string
	if c.Cache != "" {
		cache, err = catalog.Open(c.Cache)
		if err != nil {
			return nil, err
		}
		defer cache.Close()
		fingerprint = catalog.Fingerprint(data, sOpts)
		if s, err := cache.Lookup(fingerprint); err == nil {
			logging.DebugContext(ctx, "schema cache hit", "template", template)
			return s, nil
		} else if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
	}

	start := time.Now()
	s, err := schema.Infer(strings.NewReader(string(data)), sOpts)
	if err != nil {
		return nil, err
	}
	logging.SchemaInferred(ctx, template, len(s.Fields), time.Since(start))

	if cache != nil {
		if err := cache.Store(fingerprint, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// filterEntries merges inline filter flags with a filter file.
func (c *ConvertCmd) filterEntries(inline []string, file string) ([]string, error) {
	entries := append([]string(nil), inline...)
	if file != "" {
		loaded, err := filter.Load(file)
		if err != nil {
			return nil, err
		}
		entries = append(entries, loaded...)
	}
	return entries, nil
}

// convertBlend streams every input into one shared sink.
func (c *ConvertCmd) convertBlend(ctx context.Context, inputs []string, tracked *extract.TrackedSchema, opts extract.Options) error {
	var sink interface {
		WriteLine(string) error
		Close() error
	}
	if c.Output == "-" {
		sink = output.NewStreamWriter(os.Stdout)
	} else {
		sink = output.NewFileWriter(c.Output, c.Cutoff)
	}

	ex := extract.NewExtractor(tracked, opts, sink)
	for _, input := range inputs {
		if err := c.convertOne(ctx, ex, input); err != nil {
			sink.Close()
			return err
		}
	}
	return sink.Close()
}

// convertPerFile gives each input its own CSV next to it.
func (c *ConvertCmd) convertPerFile(ctx context.Context, inputs []string, tracked *extract.TrackedSchema, opts extract.Options) error {
	for _, input := range inputs {
		sink := output.NewFileWriter(csvName(input), c.Cutoff)
		ex := extract.NewExtractor(tracked, opts, sink)
		if err := c.convertOne(ctx, ex, input); err != nil {
			sink.Close()
			return err
		}
		if err := sink.Close(); err != nil {
			return err
		}
	}
	return nil
}

// convertOne replays one document through the extractor. Per-document
// failures are logged and skipped; anything else aborts the run.
func (c *ConvertCmd) convertOne(ctx context.Context, ex *extract.Extractor, input string) error {
	r, err := fileutil.Open(input)
	if err != nil {
		return err
	}
	defer r.Close()

	ex.SetPath(input)
	start := time.Now()
	if err := ex.Run(r); err != nil {
		var exErr *errors.ExtractionError
		if errors.As(err, &exErr) {
			logging.DocumentFailed(ctx, input, err)
			ex.Reset()
			return nil
		}
		return err
	}
	logging.DocumentConverted(ctx, input, time.Since(start))
	return nil
}

// csvName swaps an input document's extension for .csv.
func csvName(input string) string {
	base := input
	for _, ext := range []string{".zst", ".xz", ".gz"} {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + ".csv"
}

// SchemaInferCmd prints the inferred field catalog of a template.
type SchemaInferCmd struct {
	Template string `arg:"" help:"Template document" type:"existingfile"`

	Attributes        bool `help:"Include attributes"`
	Namespaces        bool `help:"Namespace-aware element naming"`
	Catalyst          bool `help:"Mark catalyst elements"`
	CatalystThreshold int  `name:"catalyst-threshold" default:"10"`

	JSON  bool   `help:"Print the schema as JSON"`
	Cache string `help:"Also store the schema in this cache database"`
}

func (c *SchemaInferCmd) Run() error {
	sOpts := schema.Options{
		WithAttributes:    c.Attributes,
		WithNamespaces:    c.Namespaces,
		Catalyst:          c.Catalyst,
		CatalystThreshold: c.CatalystThreshold,
		Path:              c.Template,
	}

	r, err := fileutil.Open(c.Template)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return err
	}

	s, err := schema.Infer(strings.NewReader(string(data)), sOpts)
	if err != nil {
		return err
	}

	if c.Cache != "" {
		cache, err := catalog.Open(c.Cache)
		if err != nil {
			return err
		}
		defer cache.Close()
		if err := cache.Store(catalog.Fingerprint(data, sOpts), s); err != nil {
			return err
		}
	}

	return printSchema(s, c.JSON)
}

// SchemaShowCmd prints a cached schema.
type SchemaShowCmd struct {
	Template string `arg:"" help:"Template document the schema was inferred from" type:"existingfile"`
	Cache    string `help:"Schema cache database" required:""`

	Attributes        bool `help:"Options the schema was inferred with"`
	Namespaces        bool
	Catalyst          bool
	CatalystThreshold int `name:"catalyst-threshold" default:"10"`

	JSON bool `help:"Print the schema as JSON"`
}

func (c *SchemaShowCmd) Run() error {
	data, err := os.ReadFile(c.Template)
	if err != nil {
		return err
	}
	cache, err := catalog.Open(c.Cache)
	if err != nil {
		return err
	}
	defer cache.Close()

	sOpts := schema.Options{
		WithAttributes:    c.Attributes,
		WithNamespaces:    c.Namespaces,
		Catalyst:          c.Catalyst,
		CatalystThreshold: c.CatalystThreshold,
	}
	s, err := cache.Lookup(catalog.Fingerprint(data, sOpts))
	if err != nil {
		return err
	}
	return printSchema(s, c.JSON)
}

func printSchema(s *schema.Schema, asJSON bool) error {
	if asJSON {
		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	for _, f := range s.Fields {
		marker := ""
		if f.Placeholder {
			marker = " (placeholder)"
		}
		fmt.Printf("%-48s %-5s %-9s %s%s\n", f.XPath, f.Cardinality, f.Type, f.Nature, marker)
	}
	if len(s.Namespaces) > 0 {
		fmt.Println()
		for alias, uri := range s.Namespaces {
			fmt.Printf("xmlns %s=%s\n", alias, uri)
		}
	}
	return nil
}

// InspectCmd evaluates a real XPath expression against a document, useful
// for previewing what a filter entry would select.
type InspectCmd struct {
	Document string `arg:"" help:"XML document" type:"existingfile"`
	Expr     string `arg:"" help:"XPath expression"`

	Limit int `help:"Maximum matches to print, 0 for all" default:"0"`
}

func (c *InspectCmd) Run() error {
	expr, err := xpath.Compile(c.Expr)
	if err != nil {
		return fmt.Errorf("compiling XPath %q: %w", c.Expr, err)
	}

	r, err := fileutil.Open(c.Document)
	if err != nil {
		return err
	}
	defer r.Close()

	doc, err := xmlquery.Parse(r)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", c.Document, err)
	}

	nodes := xmlquery.QuerySelectorAll(doc, expr)
	for i, n := range nodes {
		if c.Limit > 0 && i >= c.Limit {
			fmt.Printf("... %d more\n", len(nodes)-i)
			break
		}
		fmt.Println(n.OutputXML(true))
	}
	fmt.Printf("%d match(es)\n", len(nodes))
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("xmlflat version %s (sqlite driver: %s)\n", version, catalog.DriverType())
	return nil
}

func parseLogLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("xmlflat"),
		kong.Description("Schema-inferring XML to CSV converter"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.InitLogger(parseLogLevel(CLI.LogLevel), format)

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
