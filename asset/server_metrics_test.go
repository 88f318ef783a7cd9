package asset

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestServerRecordsLoadAndFailureMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := NewMapSource()
	src.Put("ok.txt", []byte("hi"))

	s := NewServer(src, WithMetrics(reg))
	s.RegisterLoader(TypeOf[textAsset](), textLoader{})

	ok := Load[textAsset](s, "ok.txt")
	waitForLoadState(t, s, ok.ID(), Loaded)
	failed := Load[textAsset](s, "missing.txt")
	waitForLoadState(t, s, failed.ID(), Failed)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var sawLoads, sawDuration bool
	for _, mf := range families {
		switch mf.GetName() {
		case "asset_loads_total":
			sawLoads = true
		case "asset_load_duration_seconds":
			sawDuration = true
		}
	}
	if !sawLoads || !sawDuration {
		t.Fatalf("expected asset_loads_total and asset_load_duration_seconds to be registered, got %v", families)
	}
}
