package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func damBreakFile(t *testing.T) string {
	t.Helper()
	content := `# dam break scenario
particleCount=4096
xMin=0
xMax=2
yMin=0
yMax=2
zMin=0
zMax=1
h=0.1
restDensity=1000
epsilon=600
timeStep=0.016
simIterations=4
subSteps=1
gravity=9.81
vorticityFactor=0.0004
viscosityFactor=0.01
surfaceTensionK=0.0001
surfaceTensionDist=0.2
friendsCircles=3
particlesPerCircle=24
setupSpacing=0.05
waveGenAmp=0
waveGenFreq=0
waveGenDuty=0
particleRenderSize=0.05
resetSimOnChange=true
`
	dir := t.TempDir()
	path := filepath.Join(dir, "damBreak.par")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoadParsesAllRequiredKeys(t *testing.T) {
	p, err := Load(damBreakFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.ParticleCount != 4096 {
		t.Errorf("ParticleCount = %v, want 4096", p.ParticleCount)
	}
	if p.H != 0.1 {
		t.Errorf("H = %v, want 0.1", p.H)
	}
	if !p.ResetSimOnChange {
		t.Errorf("ResetSimOnChange = false, want true")
	}
	if p.FriendsCircles != 3 || p.ParticlesPerCircle != 24 {
		t.Errorf("friends = %d/%d, want 3/24", p.FriendsCircles, p.ParticlesPerCircle)
	}
}

func TestLoadRejectsMissingKey(t *testing.T) {
	raw := map[string]string{"particleCount": "10"}
	_, err := Parse(raw)
	cerr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got %T (%v)", err, err)
	}
	if cerr.Key == "" {
		t.Errorf("expected a key name in the error, got none: %v", cerr)
	}
}

func TestLoadRejectsZeroFriendsCircles(t *testing.T) {
	path := damBreakFile(t)
	text, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(filepath.Dir(path), "broken.par")
	var patched strings.Builder
	for _, line := range strings.Split(strings.TrimRight(string(text), "\n"), "\n") {
		if strings.HasPrefix(line, "friendsCircles=") {
			line = "friendsCircles=0"
		}
		patched.WriteString(line + "\n")
	}
	if err := os.WriteFile(broken, []byte(patched.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = Load(broken)
	cerr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got %T (%v)", err, err)
	}
	if cerr.Key != "friendsCircles" {
		t.Errorf("ConfigError.Key = %q, want %q", cerr.Key, "friendsCircles")
	}
}

func TestLoadRejectsInvertedBounds(t *testing.T) {
	raw := baseValidMap()
	raw["xMin"] = "2"
	raw["xMax"] = "0"
	_, err := Parse(raw)
	cerr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got %T (%v)", err, err)
	}
	if cerr.Key != "xMin" {
		t.Errorf("ConfigError.Key = %q, want %q", cerr.Key, "xMin")
	}
}

func baseValidMap() map[string]string {
	return map[string]string{
		"particleCount": "10", "xMin": "0", "xMax": "1",
		"yMin": "0", "yMax": "1", "zMin": "0", "zMax": "1",
		"h": "0.1", "restDensity": "1000", "epsilon": "600",
		"timeStep": "0.016", "simIterations": "4", "subSteps": "1",
		"gravity": "9.81", "vorticityFactor": "0", "viscosityFactor": "0",
		"surfaceTensionK": "0", "surfaceTensionDist": "0.2",
		"friendsCircles": "3", "particlesPerCircle": "24",
		"setupSpacing": "0.05",
		"waveGenAmp": "0", "waveGenFreq": "0", "waveGenDuty": "0",
		"particleRenderSize": "0.05", "resetSimOnChange": "true",
	}
}
