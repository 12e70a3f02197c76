package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gepon-sim/gepon-sim/sim"
	"github.com/gepon-sim/gepon-sim/sim/workload"
)

// smallParams uses 125-byte packets on a 1 Mb/s uplink (1ms per packet) and a 10ms cycle.
func smallParams() sim.Params {
	o := sim.DefaultOptions()
	o.PacketBytes = 125
	o.Watermark = 3
	o.UplinkMbps = 1
	o.AvgUplinkMbps = 0.5
	o.CycleMs = 10
	o.WakeupMs = 2
	o.HorizonS = 0.01
	return sim.NewParams(o)
}

func TestRunSimulation_WritesTrace(t *testing.T) {
	// GIVEN three arrivals reaching the watermark
	p := smallParams()
	require.NoError(t, p.Validate())
	rng, err := sim.NewDeviateSource(sim.DeviatesMathRand, p.Seed)
	require.NoError(t, err)

	// WHEN simulated
	var out bytes.Buffer
	s, err := runSimulation(p, workload.NewTextFeed(strings.NewReader("0.001 0.002 0.003")), rng, &out)

	// THEN the trace shows the inserts and the wake-up
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, "I 1000 1000 @ 0.001", lines[0])
	assert.Equal(t, "I 1000 3000 @ 0.003", lines[2])
	assert.Equal(t, "C OFF → TON @ 0.008", lines[3])
	assert.Equal(t, 1, s.Metrics.WakeUps)
}

func TestRunSimulation_BadFeed_Fails(t *testing.T) {
	p := smallParams()
	rng, _ := sim.NewDeviateSource("", p.Seed)
	var out bytes.Buffer
	_, err := runSimulation(p, workload.NewTextFeed(strings.NewReader("0.001 x")), rng, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed timestamp")
}

func TestExportMetrics_WritesTextfile(t *testing.T) {
	m := sim.NewMetrics()
	m.Finish(1)
	path := filepath.Join(t.TempDir(), "run.prom")

	require.NoError(t, exportMetrics(m, smallParams(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `onu_sleep_ratio{cycle_s="0.01",seed="1",watermark_bits="3000"} 1`)
}

func TestRunCmd_InvalidParameter_ReturnsErrorWithUsage(t *testing.T) {
	// GIVEN a zero watermark on the command line
	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetOut(&stderr)
	rootCmd.SetArgs([]string{"run", "--watermark", "0", "--arrivals", filepath.Join(t.TempDir(), "unused")})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		flagOpts.Watermark = sim.DefaultOptions().Watermark
	})

	// WHEN executed
	err := rootCmd.Execute()

	// THEN it fails before touching the arrivals and prints the usage
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watermark must be > 0")
	assert.Contains(t, stderr.String(), "Usage:")
}

func TestRunCmd_EndToEnd_FilesInAndOut(t *testing.T) {
	// GIVEN an arrivals file and output destinations
	dir := t.TempDir()
	arrivals := filepath.Join(dir, "arrivals.txt")
	require.NoError(t, os.WriteFile(arrivals, []byte("0.001\n0.002\n0.003\n0.5\n"), 0o644))
	output := filepath.Join(dir, "trace.txt")
	prom := filepath.Join(dir, "run.prom")

	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"run",
		"-p", "125", "-q", "3", "-u", "1", "-a", "0.5", "-d", "10", "-w", "2", "-s", "0.2",
		"--arrivals", arrivals, "--output", output, "--metrics", "--metrics-textfile", prom,
	})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		flagOpts = sim.DefaultOptions()
		arrivalsPath, outputPath, metricsTextfile, printMetrics = "-", "-", "", false
	})

	// WHEN executed
	require.NoError(t, rootCmd.Execute())

	// THEN the trace, the summary and the textfile are all produced
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "C OFF → TON @ 0.008")
	assert.Contains(t, string(data), "C TON → ON @ 0.02")
	assert.Contains(t, stderr.String(), "=== Simulation Metrics ===")
	_, err = os.Stat(prom)
	assert.NoError(t, err)
}
