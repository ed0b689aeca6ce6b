package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr string
		want bool
	}{
		{addr: "", want: false},
		{addr: " off ", want: false},
		{addr: "Disabled", want: false},
		{addr: "false", want: false},
		{addr: ":9100", want: true},
		{addr: "127.0.0.1:9100", want: true},
	}
	for _, tt := range tests {
		if got := Enabled(tt.addr); got != tt.want {
			t.Fatalf("Enabled(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestStartServerDisabled(t *testing.T) {
	t.Parallel()

	srv, errCh := StartServer(context.Background(), "off", nil)
	if srv != nil || errCh != nil {
		t.Fatal("disabled metrics server was started")
	}
}

func TestCountersAreRegistered(t *testing.T) {
	t.Parallel()

	c := SweepPassFailuresTotal.WithLabelValues("metrics_test")
	before := testutil.ToFloat64(c)
	c.Inc()
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("counter = %v, want %v", got, before+1)
	}
}
