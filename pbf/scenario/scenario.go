// Package scenario parses the ".par" key=value scenario file format.
// Missing required keys or out-of-range values produce a ConfigError.
package scenario

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pthm-cable/pbfsim/pbf/params"
)

// ConfigError reports a malformed or out-of-range scenario parameter.
// Load and Parse return it in place of a parameter set.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("scenario: %s", e.Reason)
	}
	return fmt.Sprintf("scenario: key %q: %s", e.Key, e.Reason)
}

// requiredKeys lists every key a scenario file must define.
var requiredKeys = []string{
	"particleCount",
	"xMin", "xMax", "yMin", "yMax", "zMin", "zMax",
	"h", "restDensity", "epsilon",
	"timeStep", "simIterations", "subSteps",
	"gravity", "vorticityFactor", "viscosityFactor",
	"surfaceTensionK", "surfaceTensionDist",
	"friendsCircles", "particlesPerCircle",
	"setupSpacing",
	"waveGenAmp", "waveGenFreq", "waveGenDuty",
	"particleRenderSize",
	"resetSimOnChange",
}

// Load parses a key=value scenario file into a params.Params. Blank
// lines and lines beginning with '#' or ';' are ignored.
func Load(path string) (params.Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return params.Params{}, &ConfigError{Reason: fmt.Sprintf("opening scenario file: %v", err)}
	}
	defer f.Close()

	raw := make(map[string]string)
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return params.Params{}, &ConfigError{Reason: fmt.Sprintf("malformed line %q (expected key=value)", line)}
		}
		raw[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if err := scan.Err(); err != nil {
		return params.Params{}, &ConfigError{Reason: fmt.Sprintf("reading scenario file: %v", err)}
	}

	return Parse(raw)
}

// Parse validates and converts a raw key=value map into a params.Params.
// Exported separately from Load so tests and callers that already have
// parsed key/value pairs (e.g. from a UI form) can reuse the same
// validation.
func Parse(raw map[string]string) (params.Params, error) {
	for _, k := range requiredKeys {
		if _, ok := raw[k]; !ok {
			return params.Params{}, &ConfigError{Key: k, Reason: "required key is missing"}
		}
	}

	var p params.Params
	var err error

	ui := func(key string) uint32 {
		if err != nil {
			return 0
		}
		var v uint64
		v, err = strconv.ParseUint(raw[key], 10, 32)
		if err != nil {
			err = &ConfigError{Key: key, Reason: fmt.Sprintf("not a valid unsigned integer: %v", err)}
		}
		return uint32(v)
	}
	f := func(key string) float32 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = strconv.ParseFloat(raw[key], 32)
		if err != nil {
			err = &ConfigError{Key: key, Reason: fmt.Sprintf("not a valid float: %v", err)}
		}
		return float32(v)
	}
	boolean := func(key string) bool {
		if err != nil {
			return false
		}
		var v bool
		v, err = strconv.ParseBool(raw[key])
		if err != nil {
			err = &ConfigError{Key: key, Reason: fmt.Sprintf("not a valid bool: %v", err)}
		}
		return v
	}

	p.ResetSimOnChange = boolean("resetSimOnChange")
	p.ParticleCount = ui("particleCount")
	p.XMin, p.XMax = f("xMin"), f("xMax")
	p.YMin, p.YMax = f("yMin"), f("yMax")
	p.ZMin, p.ZMax = f("zMin"), f("zMax")
	p.WaveGenAmp = f("waveGenAmp")
	p.WaveGenFreq = f("waveGenFreq")
	p.WaveGenDuty = f("waveGenDuty")
	p.TimeStep = f("timeStep")
	p.SimIterations = ui("simIterations")
	p.SubSteps = ui("subSteps")
	p.H = f("h")
	p.RestDensity = f("restDensity")
	p.Epsilon = f("epsilon")
	p.Gravity = f("gravity")
	p.VorticityFactor = f("vorticityFactor")
	p.ViscosityFactor = f("viscosityFactor")
	p.SurfaceTensionK = f("surfaceTensionK")
	p.SurfaceTensionDist = f("surfaceTensionDist")
	p.FriendsCircles = ui("friendsCircles")
	p.ParticlesPerCircle = ui("particlesPerCircle")
	p.SetupSpacing = f("setupSpacing")
	p.ParticleRenderSize = f("particleRenderSize")

	if err != nil {
		return params.Params{}, err
	}

	if cerr := validateRanges(p); cerr != nil {
		return params.Params{}, cerr
	}

	return p, nil
}

// validateRanges rejects values whose non-positivity would make the
// solver divide by zero or never terminate, plus inverted domain
// bounds.
func validateRanges(p params.Params) error {
	type check struct {
		key  string
		bad  bool
		want string
	}
	checks := []check{
		{"particleCount", p.ParticleCount == 0, "must be > 0"},
		{"h", p.H <= 0, "must be > 0"},
		{"restDensity", p.RestDensity <= 0, "must be > 0"},
		{"timeStep", p.TimeStep <= 0, "must be > 0"},
		{"simIterations", p.SimIterations == 0, "must be > 0"},
		{"subSteps", p.SubSteps == 0, "must be > 0"},
		{"friendsCircles", p.FriendsCircles == 0, "must be > 0"},
		{"particlesPerCircle", p.ParticlesPerCircle == 0, "must be > 0"},
		{"setupSpacing", p.SetupSpacing <= 0, "must be > 0"},
		{"xMin", p.XMin >= p.XMax, "xMin must be < xMax"},
		{"yMin", p.YMin >= p.YMax, "yMin must be < yMax"},
		{"zMin", p.ZMin >= p.ZMax, "zMin must be < zMax"},
	}
	for _, c := range checks {
		if c.bad {
			return &ConfigError{Key: c.key, Reason: c.want}
		}
	}
	return nil
}
