package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/core/model"
)

type Config struct {
	BaseURL         string
	LayerName       string
	Concurrency     int
	Duration        time.Duration
	ZipfS           float64
	ZipfV           float64
	PointCount      int
	HotSlabs        int
	OutputPrefix    string
	RequestTimeout  time.Duration
	AppendTimestamp bool
	Seed            int64
}

// defaultTarget matches the locator's default ADDR.
const defaultTarget = "http://localhost:8090"

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "target", defaultTarget, "Locator base URL")
	flag.StringVar(&cfg.LayerName, "layer", "", "Subdivision name to query")
	flag.IntVar(&cfg.Concurrency, "concurrency", 32, "Concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "Test duration")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	flag.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	flag.IntVar(&cfg.PointCount, "points", 256, "Distinct query points in pool")
	flag.IntVar(&cfg.HotSlabs, "hot-slabs", 2, "Slabs that receive the hot share of the pool")
	flag.StringVar(&cfg.OutputPrefix, "out", "results/locate", "Output file prefix (JSON/CSV)")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 5*time.Second, "Per-request timeout")
	flag.BoolVar(&cfg.AppendTimestamp, "append-ts", true, "Append timestamp to output prefix")
	flag.Int64Var(&cfg.Seed, "seed", 0, "Random seed (0 picks one from the clock)")
	flag.Parse()
	return cfg
}

type point struct{ X, Y float64 }

// bounds is the box spanned by a subdivision's slabs.
type bounds struct {
	MinX, MaxX, MinY, MaxY float64
}

func extent(s model.SlabsResponse) (bounds, error) {
	if len(s.XCoords) < 2 {
		return bounds{}, fmt.Errorf("subdivision %q has %d x-coordinates", s.Name, len(s.XCoords))
	}
	b := bounds{
		MinX: s.XCoords[0],
		MaxX: s.XCoords[len(s.XCoords)-1],
		MinY: math.Inf(1),
		MaxY: math.Inf(-1),
	}
	for _, sl := range s.Slabs {
		for _, e := range sl.Edges {
			b.MinY = math.Min(b.MinY, math.Min(e.Left[1], e.Right[1]))
			b.MaxY = math.Max(b.MaxY, math.Max(e.Left[1], e.Right[1]))
		}
	}
	if math.IsInf(b.MinY, 0) {
		b.MinY, b.MaxY = 0, 1
	}
	return b, nil
}

// makePoints builds the query pool. The first quarter (at least 8) falls
// inside the first hotSlabs slabs; the rest is spread over the whole box with
// a small margin so some queries land outside the x-range.
func makePoints(xs []float64, b bounds, count, hotSlabs int, r *rand.Rand) []point {
	if count <= 0 {
		return nil
	}
	if hotSlabs < 1 {
		hotSlabs = 1
	}
	if hotSlabs > len(xs)-1 {
		hotSlabs = len(xs) - 1
	}
	h := b.MaxY - b.MinY
	pts := make([]point, 0, count)

	hot := int(math.Max(8, float64(count/4)))
	if hot > count {
		hot = count
	}
	for i := range hot {
		s := i % hotSlabs
		x := xs[s] + r.Float64()*(xs[s+1]-xs[s])
		y := b.MinY + r.Float64()*h
		pts = append(pts, point{x, y})
	}

	w := b.MaxX - b.MinX
	for len(pts) < count {
		x := b.MinX - 0.05*w + r.Float64()*1.1*w
		y := b.MinY - 0.05*h + r.Float64()*1.1*h
		pts = append(pts, point{x, y})
	}
	return pts
}

func fetchSlabs(ctx context.Context, c *http.Client, base, layer string) (model.SlabsResponse, error) {
	u := strings.TrimRight(base, "/") + "/subdivisions/" + url.PathEscape(layer) + "/slabs"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.SlabsResponse{}, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return model.SlabsResponse{}, fmt.Errorf("get slabs: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.SlabsResponse{}, fmt.Errorf("slabs status %d: %s", resp.StatusCode, string(b))
	}
	var out model.SlabsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.SlabsResponse{}, fmt.Errorf("decode slabs: %w", err)
	}
	return out, nil
}

// request result (one sample per request)
type sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Status    int
	ErrorMsg  string
	Index     int
	Point     point
}

type summary struct {
	StartTime     time.Time `json:"start"`
	EndTime       time.Time `json:"end"`
	DurationSec   float64   `json:"duration_sec"`
	TotalRequests int64     `json:"total"`
	SuccessCount  int64     `json:"success"`
	ErrorCount    int64     `json:"errors"`
	ThroughputRPS float64   `json:"throughput_rps"`
	P50Ms         float64   `json:"p50_ms"`
	P95Ms         float64   `json:"p95_ms"`
	P99Ms         float64   `json:"p99_ms"`
	Concurrency   int       `json:"concurrency"`
	ZipfS         float64   `json:"zipf_s"`
	ZipfV         float64   `json:"zipf_v"`
	Points        int       `json:"points"`
	Target        string    `json:"target"`
	LayerName     string    `json:"layer"`
	Revision      uint64    `json:"revision"`
}

type aggregatedResult struct {
	total   int64
	success int64
	errors  int64
	latMs   []float64
}

func main() {
	cfg := loadConfig()
	if strings.TrimSpace(cfg.LayerName) == "" {
		log.Fatalf("-layer is required")
	}
	if cfg.ZipfS <= 1 || cfg.ZipfV < 1 || cfg.Concurrency < 1 {
		log.Fatalf("need zipf-s > 1, zipf-v >= 1 and concurrency >= 1")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPrefix), 0o750); err != nil {
		log.Fatalf("mkdir results: %v", err)
	}
	prefix := cfg.OutputPrefix
	if cfg.AppendTimestamp {
		prefix = fmt.Sprintf("%s_%s", prefix, time.Now().UTC().Format("20060102_150405Z"))
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 4 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:          1024,
			MaxIdleConnsPerHost:   256,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		Timeout: cfg.RequestTimeout,
	}

	setupCtx, setupCancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	slabs, err := fetchSlabs(setupCtx, httpClient, cfg.BaseURL, cfg.LayerName)
	setupCancel()
	if err != nil {
		log.Fatalf("load subdivision: %v", err)
	}
	box, err := extent(slabs)
	if err != nil {
		log.Fatalf("%v", err)
	}
	pts := makePoints(slabs.XCoords, box, cfg.PointCount, cfg.HotSlabs, r)
	if len(pts) == 0 {
		log.Fatalf("no query points generated")
	}
	imax := uint64(len(pts)) - 1

	csvPath := prefix + "_samples.csv"
	jsonPath := prefix + "_summary.json"
	csvFile, err := os.Create(filepath.Clean(csvPath))
	if err != nil {
		log.Fatalf("open csv: %v", err)
	}
	defer func() { _ = csvFile.Close() }()
	csvWriter := csv.NewWriter(csvFile)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	samplesChan := make(chan sample, 4096)
	resultsChan := make(chan aggregatedResult, 1)
	go func() {
		_ = csvWriter.Write([]string{"timestamp", "latency_ms", "status", "error", "point_idx", "x", "y"})
		var agg aggregatedResult
		agg.latMs = make([]float64, 0, 1<<16)
		for s := range samplesChan {
			agg.total++
			ms := float64(s.Latency.Microseconds()) / 1000.0
			if s.ErrorMsg == "" {
				agg.success++
				agg.latMs = append(agg.latMs, ms)
			} else {
				agg.errors++
			}
			_ = csvWriter.Write([]string{
				s.Timestamp.UTC().Format(time.RFC3339Nano),
				fmt.Sprintf("%.3f", ms),
				strconv.Itoa(s.Status),
				s.ErrorMsg,
				strconv.Itoa(s.Index),
				strconv.FormatFloat(s.Point.X, 'g', -1, 64),
				strconv.FormatFloat(s.Point.Y, 'g', -1, 64),
			})
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			log.Printf("csv flush error: %v", err)
		}
		resultsChan <- agg
	}()

	locateURL := strings.TrimRight(cfg.BaseURL, "/") + "/locate"
	startTime := time.Now()
	log.Printf("loadgen start target=%s layer=%s rev=%d slabs=%d dur=%s conc=%d zipf(s=%.2f,v=%.2f) points=%d",
		cfg.BaseURL, cfg.LayerName, slabs.Revision, len(slabs.Slabs), cfg.Duration, cfg.Concurrency, cfg.ZipfS, cfg.ZipfV, len(pts))

	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)
	for workerID := range cfg.Concurrency {
		go func(id int) {
			defer wg.Done()
			rWorker := rand.New(rand.NewSource(seed + int64(id) + 1))
			zipfDist := rand.NewZipf(rWorker, cfg.ZipfS, cfg.ZipfV, imax)
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				idx := int(zipfDist.Uint64())
				p := pts[idx]
				res := locateOnce(ctx, httpClient, locateURL, cfg.LayerName, p)
				res.Index = idx
				select {
				case samplesChan <- res:
				case <-ctx.Done():
					return
				}
			}
		}(workerID)
	}

	go func() {
		<-ctx.Done()
		wg.Wait()
		close(samplesChan)
	}()

	agg := <-resultsChan
	endTime := time.Now()
	elapsed := endTime.Sub(startTime).Seconds()

	sort.Float64s(agg.latMs)
	out := summary{
		StartTime:     startTime.UTC(),
		EndTime:       endTime.UTC(),
		DurationSec:   elapsed,
		TotalRequests: agg.total,
		SuccessCount:  agg.success,
		ErrorCount:    agg.errors,
		ThroughputRPS: float64(agg.total) / elapsed,
		P50Ms:         percentile(agg.latMs, 50),
		P95Ms:         percentile(agg.latMs, 95),
		P99Ms:         percentile(agg.latMs, 99),
		Concurrency:   cfg.Concurrency,
		ZipfS:         cfg.ZipfS,
		ZipfV:         cfg.ZipfV,
		Points:        len(pts),
		Target:        cfg.BaseURL,
		LayerName:     cfg.LayerName,
		Revision:      slabs.Revision,
	}
	if err := writeSummary(jsonPath, out); err != nil {
		log.Printf("write summary: %v", err)
	}

	log.Printf("done: total=%d succ=%d err=%d thr=%.2f rps p50=%.2fms p95=%.2fms p99=%.2fms",
		out.TotalRequests, out.SuccessCount, out.ErrorCount, out.ThroughputRPS, out.P50Ms, out.P95Ms, out.P99Ms)
	log.Printf("wrote %s and %s", jsonPath, csvPath)
}

func locateOnce(ctx context.Context, c *http.Client, base, layer string, p point) sample {
	q := url.Values{}
	q.Set("layer", layer)
	q.Set("x", strconv.FormatFloat(p.X, 'g', -1, 64))
	q.Set("y", strconv.FormatFloat(p.Y, 'g', -1, 64))

	start := time.Now()
	s := sample{Timestamp: start, Point: p}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		s.ErrorMsg = err.Error()
		return s
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	s.Latency = time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.ErrorMsg = "canceled"
		} else {
			s.ErrorMsg = err.Error()
		}
		return s
	}
	s.Status = resp.StatusCode
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.ErrorMsg = fmt.Sprintf("status=%d", resp.StatusCode)
	}
	return s
}

func writeSummary(path string, s summary) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}
