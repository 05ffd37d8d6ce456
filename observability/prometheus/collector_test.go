package prometheus

import (
	"strings"
	"testing"

	"github.com/momentics/hioload-jobs/core/jobs"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

type fixedStats jobs.Stats

func (f fixedStats) Stats() jobs.Stats { return jobs.Stats(f) }

func TestCollector_ExportsStats(t *testing.T) {
	c := NewCollector("engine", fixedStats{Threads: 4, Executed: 120, Stolen: 7, PoolExhausted: 2})

	expected := `
# HELP engine_threads Number of pool worker threads.
# TYPE engine_threads gauge
engine_threads 4
# HELP engine_tasks_executed_total Tasks executed.
# TYPE engine_tasks_executed_total counter
engine_tasks_executed_total 120
# HELP engine_pool_exhausted_total Task creations refused by a full pool.
# TYPE engine_pool_exhausted_total counter
engine_pool_exhausted_total 2
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"engine_threads", "engine_tasks_executed_total", "engine_pool_exhausted_total"); err != nil {
		t.Fatal(err)
	}
	if n := testutil.CollectAndCount(c); n != 11 {
		t.Errorf("metric count = %d, want 11", n)
	}
}

func TestRegister_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := Register(reg, NewCollector("", fixedStats{Stolen: 3}))
	if err != nil {
		t.Fatalf("first Register: %v", err)
	}
	second, err := Register(reg, NewCollector("", fixedStats{Stolen: 99}))
	if err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if first != second {
		t.Fatal("expected the registered collector to be reused")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if got := counterValue(families, "hioload_jobs_tasks_stolen_total"); got != 3 {
		t.Errorf("stolen = %v, want 3", got)
	}
}

func TestCollector_LiveJobSystem(t *testing.T) {
	cfg := jobs.DefaultConfig()
	cfg.ThreadCount = 2
	js, err := jobs.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Close()

	parent := js.Create(jobs.NoTask, nil)
	for i := 0; i < 10; i++ {
		js.Run(js.Create(parent, func(*jobs.JobSystem, jobs.Task) {}))
	}
	js.RunAndWait(parent)

	reg := prom.NewRegistry()
	if _, err := Register(reg, NewCollector("", js)); err != nil {
		t.Fatal(err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if got := counterValue(families, "hioload_jobs_tasks_executed_total"); got < 11 {
		t.Errorf("executed = %v, want >= 11", got)
	}
}

func counterValue(families []*dto.MetricFamily, name string) float64 {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			return m.GetCounter().GetValue()
		}
	}
	return -1
}
