// Command bench runs a synthetic acquire/release workload against a keyed
// pool and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/keyedpool/actions"
	"github.com/IvanBrykalov/keyedpool/config"
	pmet "github.com/IvanBrykalov/keyedpool/metrics/prom"
	"github.com/IvanBrykalov/keyedpool/pool"
)

// resource stands in for a connection: creating it costs dialDelay and it
// breaks with probability breakPct on every use.
type resource struct {
	key    string
	broken atomic.Bool
}

func main() {
	v := viper.New()
	v.SetEnvPrefix("KEYEDPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "bench",
		Short: "Synthetic acquire/release workload for keyedpool",
		Long: `bench drives a keyed object pool with concurrent workers picking keys from a
Zipf distribution. Every flag can also be set as KEYEDPOOL_<FLAG> (dashes
become underscores), e.g. KEYEDPOOL_WORKERS=64.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return run(cmd.Context(), v)
		},
	}

	f := root.Flags()
	f.String("config", "", "YAML pool config (defaults: exclusive, single-use, one attempt)")
	f.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
	f.Duration("duration", 10*time.Second, "benchmark duration")
	f.Int("keys", 1_000, "keyspace size")
	f.Float64("zipf-s", 1.1, "Zipf s > 1 (skew)")
	f.Float64("zipf-v", 1.0, "Zipf v")
	f.Int64("seed", time.Now().UnixNano(), "random seed")
	f.Duration("hold", 0, "how long a worker keeps an object")
	f.Duration("dial-delay", 0, "simulated cost of creating an object")
	f.Int("break-pct", 0, "percentage of uses that break the object [0..100]")
	f.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
	f.String("http", ":8080", "serve Prometheus metrics at addr; empty = disabled")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, v *viper.Viper) error {
	cfg := config.Default()
	if path := v.GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))

	// ---- pprof server (on DefaultServeMux) ----
	if addr := v.GetString("pprof"); addr != "" {
		go func() {
			log.Info("pprof: serving", zap.String("addr", addr))
			log.Warn("pprof server stopped", zap.Error(http.ListenAndServe(addr, nil)))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "keyedpool", "bench", prometheus.Labels{"run_id": runID})
	if addr := v.GetString("http"); addr != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info("metrics: serving", zap.String("addr", addr))
			log.Warn("metrics server stopped", zap.Error(http.ListenAndServe(addr, nil)))
		}()
	}

	// ---- Build pool ----
	b := pool.NewBuilder[string, *resource](pool.Options[string, *resource]{
		Storage: cfg.StorageSettings(),
		Funcs: actions.Funcs[*resource]{
			IsValid: func(r *resource) bool { return !r.broken.Load() },
			Reset: func(r *resource) error {
				if r.broken.Load() {
					return errors.New("broken resource")
				}
				return nil
			},
		},
		Logger:  log,
		Metrics: metrics,
	})
	ctrl, err := config.Apply(cfg, b).Build(cfg.ControllerSettings())
	if err != nil {
		return err
	}
	defer ctrl.Dispose()

	dialDelay := v.GetDuration("dial-delay")
	dir := config.NewDirection[string, *resource](cfg, func(key string) (*resource, error) {
		if dialDelay > 0 {
			time.Sleep(dialDelay)
		}
		return &resource{key: key}, nil
	})

	// ---- Snapshot settings for goroutines ----
	workersN := v.GetInt("workers")
	if workersN <= 0 {
		workersN = 1
	}
	keysN := v.GetInt("keys")
	if keysN <= 0 {
		keysN = 1
	}
	seedBase := v.GetInt64("seed")
	zipfS, zipfV := v.GetFloat64("zipf-s"), v.GetFloat64("zipf-v")
	hold := v.GetDuration("hold")
	breakPct := v.GetInt("break-pct")
	release := cfg.Controller.ReleaseWillHappen

	// ---- Load generation ----
	var total, obtained, missed, failed uint64
	ctx, cancel := context.WithTimeout(ctx, v.GetDuration("duration"))
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfS, zipfV, uint64(keysN-1))

			for ctx.Err() == nil {
				atomic.AddUint64(&total, 1)
				key := "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
				r, ok, err := ctrl.Obtain(key, dir)
				switch {
				case err != nil:
					atomic.AddUint64(&failed, 1)
					log.Debug("obtain failed", zap.Error(err))
					continue
				case !ok:
					atomic.AddUint64(&missed, 1)
					continue
				}
				atomic.AddUint64(&obtained, 1)

				if hold > 0 {
					time.Sleep(hold)
				}
				if breakPct > 0 && int(localR.Int31n(100)) < breakPct {
					r.broken.Store(true)
				}
				if release {
					if err := ctrl.Release(r); err != nil {
						log.Warn("release failed", zap.Error(err))
					}
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	c := ctrl.Counters()
	fmt.Printf("run=%s workers=%d keys=%d dur=%v seed=%d strategy=%s max/key=%d\n",
		runID, workersN, keysN, elapsed, seedBase, cfg.StorageSettings().Strategy, cfg.Storage.MaxCountPerKey)
	fmt.Printf("obtains=%d (%.0f ops/s)  ok=%d  missed=%d  failed=%d\n",
		ops, float64(ops)/elapsed.Seconds(), atomic.LoadUint64(&obtained), atomic.LoadUint64(&missed), atomic.LoadUint64(&failed))
	fmt.Printf("attempts=%d  tracked=%d  keys-seen=%d  evicted-by-sweep=%d\n",
		c.Attempts, c.Tracked, len(ctrl.Keys()), ctrl.Sweep())
	return nil
}
