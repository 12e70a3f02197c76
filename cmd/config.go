package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/gepon-sim/gepon-sim/sim"
)

// loadOptionsFile overlays the parameters in a YAML file onto base.
// Uses strict field checking: a misspelled key is an error.
func loadOptionsFile(path string, base sim.Options) (sim.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading config: %w", err)
	}
	opts := base
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&opts); err != nil {
		return base, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return opts, nil
}

// optionFlags maps flag names to the option each one sets.
var optionFlags = map[string]func(dst *sim.Options, src sim.Options){
	"packet-size":   func(d *sim.Options, s sim.Options) { d.PacketBytes = s.PacketBytes },
	"watermark":     func(d *sim.Options, s sim.Options) { d.Watermark = s.Watermark },
	"uplink":        func(d *sim.Options, s sim.Options) { d.UplinkMbps = s.UplinkMbps },
	"avg-uplink":    func(d *sim.Options, s sim.Options) { d.AvgUplinkMbps = s.AvgUplinkMbps },
	"cycle":         func(d *sim.Options, s sim.Options) { d.CycleMs = s.CycleMs },
	"wakeup":        func(d *sim.Options, s sim.Options) { d.WakeupMs = s.WakeupMs },
	"refresh":       func(d *sim.Options, s sim.Options) { d.RefreshMs = s.RefreshMs },
	"horizon":       func(d *sim.Options, s sim.Options) { d.HorizonS = s.HorizonS },
	"seed":          func(d *sim.Options, s sim.Options) { d.Seed = s.Seed },
	"honor-refresh": func(d *sim.Options, s sim.Options) { d.HonorRefresh = s.HonorRefresh },
	"rng":           func(d *sim.Options, s sim.Options) { d.Deviates = s.Deviates },
}

// bindOptionFlags registers the model parameter flags on f, writing into o.
// Short names follow the historical option letters.
func bindOptionFlags(f *pflag.FlagSet, o *sim.Options) {
	f.IntVarP(&o.PacketBytes, "packet-size", "p", o.PacketBytes, "Packet size (bytes)")
	f.IntVarP(&o.Watermark, "watermark", "q", o.Watermark, "Queue wake-watermark (packets)")
	f.Float64VarP(&o.UplinkMbps, "uplink", "u", o.UplinkMbps, "Nominal uplink capacity (Mb/s)")
	f.Float64VarP(&o.AvgUplinkMbps, "avg-uplink", "a", o.AvgUplinkMbps, "Average allocated uplink rate (Mb/s)")
	f.Float64VarP(&o.CycleMs, "cycle", "d", o.CycleMs, "DBA cycle length (ms)")
	f.Float64VarP(&o.WakeupMs, "wakeup", "w", o.WakeupMs, "Wake-up transition time (ms)")
	f.Float64VarP(&o.RefreshMs, "refresh", "r", o.RefreshMs, "Mandatory refresh timeout (ms); ignored unless --honor-refresh")
	f.Float64VarP(&o.HorizonS, "horizon", "s", o.HorizonS, "Simulation length (s)")
	f.Int64Var(&o.Seed, "seed", o.Seed, "Seed for the random deviates")
	f.BoolVar(&o.HonorRefresh, "honor-refresh", o.HonorRefresh, "Cap sleep periods with --refresh instead of the fixed 50ms ceiling")
	f.StringVar(&o.Deviates, "rng", o.Deviates, "Deviate source (mathrand, mrg32k3a)")
}

// resolveOptions merges defaults, the optional config file and the flags that
// were set explicitly, in that order of precedence.
func resolveOptions(f *pflag.FlagSet, cli sim.Options, path string) (sim.Options, error) {
	if path == "" {
		return cli, nil
	}
	opts, err := loadOptionsFile(path, sim.DefaultOptions())
	if err != nil {
		return opts, err
	}
	for name, apply := range optionFlags {
		if f.Changed(name) {
			apply(&opts, cli)
		}
	}
	return opts, nil
}
