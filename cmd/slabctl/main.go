// Command slabctl checks, inspects and queries subdivision documents offline,
// and publishes them to the update topic.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/subdivision"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/updates"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/pkg/slab"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

const usage = `usage: slabctl <command> [flags]

commands:
  check   -f doc.json             validate and build, print stats
  slabs   -f doc.json             print every slab with its ordered edges
  locate  -f doc.json x,y [x,y]   answer point queries
  publish -f doc.json -brokers B -topic T [-delete]
`

var errUsage = errors.New("usage")

func main() {
	_ = godotenv.Load(".env")
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}
	var err error
	switch args[0] {
	case "check":
		err = cmdCheck(args[1:], stdout, stderr)
	case "slabs":
		err = cmdSlabs(args[1:], stdout, stderr)
	case "locate":
		err = cmdLocate(args[1:], stdout, stderr)
	case "publish":
		err = cmdPublish(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return exitUsage
	default:
		fmt.Fprintln(stderr, "slabctl:", err)
		return exitFail
	}
}

type buildFlags struct {
	file   string
	search string
	check  float64
}

func (b *buildFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&b.file, "f", "", "subdivision document (JSON), - for stdin")
	fs.StringVar(&b.search, "search", "binary", "vertical search: binary|linear")
	fs.Float64Var(&b.check, "check", -1, "verify edge ordering with this tolerance (negative disables)")
}

func (b *buildFlags) options() []slab.Option {
	opts := []slab.Option{slab.WithVerticalSearch(slab.ParseVerticalSearch(b.search))}
	if b.check >= 0 {
		opts = append(opts, slab.WithOrderingCheck(b.check))
	}
	return opts
}

func (b *buildFlags) load(stdin io.Reader) (subdivision.Document, *slab.Locator, error) {
	if b.file == "" {
		return subdivision.Document{}, nil, fmt.Errorf("%w: -f is required", errUsage)
	}
	if b.search != "binary" && b.search != "linear" {
		return subdivision.Document{}, nil, fmt.Errorf("%w: -search must be binary or linear", errUsage)
	}
	var r io.Reader = stdin
	if b.file != "-" {
		f, err := os.Open(b.file)
		if err != nil {
			return subdivision.Document{}, nil, fmt.Errorf("open %s: %w", b.file, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	doc, err := subdivision.Decode(r)
	if err != nil {
		return subdivision.Document{}, nil, err
	}
	loc, err := doc.Build(b.options()...)
	if err != nil {
		return doc, nil, err
	}
	return doc, loc, nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func cmdCheck(args []string, stdout, stderr io.Writer) error {
	var b buildFlags
	fs := newFlagSet("check", stderr)
	b.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	doc, loc, err := b.load(os.Stdin)
	if err != nil {
		return err
	}
	st := loc.Stats()
	fmt.Fprintf(stdout, "ok name=%s revision=%d slabs=%d entries=%d max_per_slab=%d vertical=%d\n",
		doc.Name, doc.Revision, st.Slabs, st.Entries, st.MaxPerSlab, st.Vertical)
	return nil
}

func cmdSlabs(args []string, stdout, stderr io.Writer) error {
	var b buildFlags
	fs := newFlagSet("slabs", stderr)
	b.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	_, loc, err := b.load(os.Stdin)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLAB\tSTART\tEND\tFACES (bottom to top)")
	for i, s := range loc.Slabs() {
		faces := make([]string, len(s.Edges))
		for j, e := range s.Edges {
			faces[j] = fmt.Sprintf("%s@%g", e.Face, e.MidY)
		}
		fmt.Fprintf(tw, "%d\t%g\t%g\t%s\n", i, s.Start, s.End, strings.Join(faces, ", "))
	}
	return tw.Flush()
}

type locateResult struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Face string  `json:"face"`
	Kind string  `json:"kind"`
	Slab int     `json:"slab"`
}

func cmdLocate(args []string, stdout, stderr io.Writer) error {
	var b buildFlags
	asJSON := false
	fs := newFlagSet("locate", stderr)
	b.register(fs)
	fs.BoolVar(&asJSON, "json", false, "print one JSON object per point")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: at least one x,y point is required", errUsage)
	}
	pts := make([][2]float64, 0, fs.NArg())
	for _, a := range fs.Args() {
		p, err := parsePoint(a)
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		pts = append(pts, p)
	}
	_, loc, err := b.load(os.Stdin)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	for _, p := range pts {
		l := loc.LocateDetail(p[0], p[1])
		if asJSON {
			if err := enc.Encode(locateResult{X: p[0], Y: p[1], Face: string(l.Face), Kind: l.Kind.String(), Slab: l.Slab}); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(stdout, "%g,%g\t%s\n", p[0], p[1], l.Face)
	}
	return nil
}

func parsePoint(s string) ([2]float64, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return [2]float64{}, fmt.Errorf("point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("point %q: x: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("point %q: y: %w", s, err)
	}
	return [2]float64{x, y}, nil
}

func cmdPublish(args []string, stdout, stderr io.Writer) error {
	var b buildFlags
	var brokers, topic string
	var del bool
	var timeout time.Duration
	fs := newFlagSet("publish", stderr)
	b.register(fs)
	fs.StringVar(&brokers, "brokers", os.Getenv("KAFKA_BROKERS"), "comma separated Kafka brokers")
	fs.StringVar(&topic, "topic", os.Getenv("KAFKA_TOPIC"), "update topic")
	fs.BoolVar(&del, "delete", false, "publish a delete that unpublishes the document's name while it serves this revision or an older one")
	fs.DurationVar(&timeout, "timeout", 10*time.Second, "publish timeout")
	if err := parse(fs, args); err != nil {
		return err
	}
	bl := updates.SplitBrokers(brokers)
	if len(bl) == 0 || strings.TrimSpace(topic) == "" {
		return fmt.Errorf("%w: -brokers and -topic are required", errUsage)
	}
	doc, _, err := b.load(os.Stdin)
	if err != nil {
		return err
	}

	ev := updates.NewReplace(doc, time.Now())
	if del {
		ev = updates.NewDelete(doc.Name, doc.Revision, time.Now())
	}

	p, err := updates.NewPublisher(bl, topic)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	part, off, err := p.Publish(ctx, ev)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "published %s %s revision=%d partition=%d offset=%d\n", ev.Op, ev.Layer, ev.Revision, part, off)
	return nil
}
