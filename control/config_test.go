package control

import "testing"

func TestConfigStore_ListenersSeeChanges(t *testing.T) {
	cs := NewConfigStore()
	var calls int
	var last map[string]any
	cs.OnReload(func(snapshot map[string]any) {
		calls++
		last = snapshot
	})

	cs.SetConfig(map[string]any{"log.level": "info", "jobs.threads": 2})
	cs.SetConfig(map[string]any{"log.level": "info"})
	cs.SetConfig(map[string]any{"log.level": "debug"})

	if calls != 2 {
		t.Fatalf("listener calls = %d, want 2", calls)
	}
	if last["log.level"] != "debug" || last["jobs.threads"] != 2 {
		t.Errorf("last snapshot = %v", last)
	}
	if v, ok := cs.Get("jobs.threads"); !ok || v != 2 {
		t.Errorf("Get = %v, %v", v, ok)
	}

	snap := cs.GetSnapshot()
	snap["log.level"] = "mutated"
	if v, _ := cs.Get("log.level"); v != "debug" {
		t.Error("snapshot aliases store state")
	}
}

func TestDebugProbesAndMetrics(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	dp.RegisterProbe("jobs.threads", func() any { return 3 })

	if v, ok := dp.Probe("jobs.threads"); !ok || v != 3 {
		t.Errorf("Probe = %v, %v", v, ok)
	}
	if _, ok := dp.Probe("missing"); ok {
		t.Error("missing probe reported present")
	}
	state := dp.DumpState()
	if n, ok := state["platform.cpus"].(int); !ok || n < 1 {
		t.Errorf("platform.cpus = %v", state["platform.cpus"])
	}
	if names := dp.Names(); len(names) != len(state) {
		t.Errorf("Names = %v, state has %d entries", names, len(state))
	}

	mr := NewMetricsRegistry()
	if !mr.Updated().IsZero() {
		t.Error("fresh registry reports an update")
	}
	mr.SetAll("jobs", map[string]any{"executed": uint64(10)})
	if got := mr.GetSnapshot()["jobs.executed"]; got != uint64(10) {
		t.Errorf("jobs.executed = %v", got)
	}
}
