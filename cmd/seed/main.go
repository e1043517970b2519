// Command seed posts synthetic updates to every sketch of a running server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/api"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/config"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/logger"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/registry"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketches"
)

var countries = []string{"US", "IN", "DE", "FR", "GB", "BR", "CA", "AU", "JP", "MX"}

func main() {
	log, err := logger.New(config.String("SKETCHD_LOG_MODE", "dev"), config.String("SKETCHD_LOG_LEVEL", "info"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	s := seeder{
		base:      config.String("SKETCHD_URL", "http://localhost:"+strconv.Itoa(config.Int("PORT", config.DefaultPort))),
		n:         config.Int("SEED_ROWS", 200000),
		batch:     config.Int("SEED_BATCH", 5000),
		client:    &http.Client{Timeout: 30 * time.Second},
		rng:       rand.New(rand.NewPCG(42, 42)),
		log:       log,
		workers:   config.Int("SEED_WORKERS", 4),
		userCount: 50000,
	}
	if err := s.run(context.Background()); err != nil {
		log.Error("seed failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Info("seed done")
}

type seeder struct {
	base      string
	n, batch  int
	workers   int
	userCount int
	client    *http.Client
	rng       *rand.Rand
	log       *logger.Logger
}

func (s *seeder) run(ctx context.Context) error {
	var status api.StatusResponse
	if err := s.call(ctx, http.MethodGet, "/status", nil, &status); err != nil {
		return err
	}
	s.log.Info("seeding sketches", "server", s.base, "sketches", status.Count, "rows", s.n)

	// Batches are generated up front so the random stream does not depend
	// on worker scheduling.
	var batches []map[string]interface{}
	for start := 0; start < s.n; start += s.batch {
		size := min(s.batch, s.n-start)
		body := make(map[string]interface{}, len(status.Sketches))
		for _, info := range status.Sketches {
			values := make([]interface{}, size)
			for i := range values {
				values[i] = s.value(info)
			}
			body[info.Name] = values
		}
		batches = append(batches, body)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, body := range batches {
		g.Go(func() error {
			if err := s.call(gctx, http.MethodPost, "/update", body, nil); err != nil {
				return errors.Wrapf(err, "batch %d", i)
			}
			s.log.Debug("posted batch", "batch", i, "of", len(batches))
			return nil
		})
	}
	return g.Wait()
}

// value draws one update value suited to the sketch's family and type.
func (s *seeder) value(info registry.Info) interface{} {
	amount := 10 + s.rng.ExpFloat64()*50
	switch info.Family {
	case sketches.Theta, sketches.HLL, sketches.CPC:
		user := s.rng.IntN(s.userCount)
		switch info.ValueType {
		case sketches.StringValue:
			return "user-" + strconv.Itoa(user)
		case sketches.FloatValue, sketches.DoubleValue:
			return float64(user) / 4
		default:
			return user
		}
	case sketches.KLL:
		return amount
	case sketches.Frequency:
		// skewed towards the first countries
		c := countries[min(s.rng.IntN(len(countries)), s.rng.IntN(len(countries)))]
		return map[string]interface{}{"item": c, "weight": 1 + s.rng.IntN(5)}
	case sketches.VarOpt:
		return map[string]interface{}{"item": "order-" + strconv.Itoa(s.rng.IntN(1<<20)), "weight": amount}
	default:
		return countries[s.rng.IntN(len(countries))]
	}
}

func (s *seeder) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return errors.Newf("%s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
