// Package config provides configuration loading and access for the visualizer.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all visualizer configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Camera    CameraConfig    `yaml:"camera"`
	Field     FieldConfig     `yaml:"field"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Palette   PaletteConfig   `yaml:"palette"`
	Morph     MorphConfig     `yaml:"morph"`
	Payload   PayloadConfig   `yaml:"payload"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Viewer    ViewerConfig    `yaml:"viewer"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// CameraConfig holds orbit camera settings.
type CameraConfig struct {
	Distance    float64 `yaml:"distance"` // Eye distance from the orbit target
	Pitch       float64 `yaml:"pitch"`    // Elevation in degrees
	Yaw         float64 `yaml:"yaw"`      // Initial azimuth in degrees
	FovY        float64 `yaml:"fov_y"`    // Vertical field of view in degrees
	Near        float64 `yaml:"near"`
	Far         float64 `yaml:"far"`
	TargetY     float64 `yaml:"target_y"` // Height of the orbit target
	AutoRotate  bool    `yaml:"auto_rotate"`
	RotateSpeed float64 `yaml:"rotate_speed"` // Radians per second while auto-rotating
}

// FieldConfig holds point cloud generation parameters.
type FieldConfig struct {
	MaxParticles    int     `yaml:"max_particles"`     // Hard cap on cloud size
	LatticeStep     float64 `yaml:"lattice_step"`      // Physics-mode lattice spacing
	ConeRadius      float64 `yaml:"cone_radius"`       // Brewer radius at the rim
	ConeHeight      float64 `yaml:"cone_height"`       // Brewer interior height
	ConeTip         float64 `yaml:"cone_tip"`          // Radius at the bottom of a CONE brewer
	FlatBottomRatio float64 `yaml:"flat_bottom_ratio"` // Bottom radius / rim radius for FLAT brewers
	BedFraction     float64 `yaml:"bed_fraction"`      // Bed height as a fraction of brewer height
	LiquidKeep      float64 `yaml:"liquid_keep"`       // Keep probability for liquid cells
	Jitter          float64 `yaml:"jitter"`            // Lattice jitter as a fraction of the step
	NoiseScale      float64 `yaml:"noise_scale"`       // Bed surface noise frequency
	NoiseAmplitude  float64 `yaml:"noise_amplitude"`   // Bed surface noise height
}

// PhysicsConfig holds the stylized brewing model coefficients.
type PhysicsConfig struct {
	Gravity          float64 `yaml:"gravity"`
	FlatDrainFactor  float64 `yaml:"flat_drain_factor"` // Flow multiplier for flat-bottom brewers
	DrainRate        float64 `yaml:"drain_rate"`        // Water level recession per unit time*flow
	WettingRate      float64 `yaml:"wetting_rate"`      // Wetting front speed through the bed
	ExposureGain     float64 `yaml:"exposure_gain"`
	BedAttenuation   float64 `yaml:"bed_attenuation"`   // Velocity multiplier inside the bed
	ChannelThreshold float64 `yaml:"channel_threshold"` // Agitation above which channeling appears
	ChannelFraction  float64 `yaml:"channel_fraction"`  // Max fraction of cells flagged as channels
}

// PaletteConfig holds hex colour strings for every material and ramp stop.
type PaletteConfig struct {
	DryGrounds   string `yaml:"dry_grounds"`
	WetGrounds   string `yaml:"wet_grounds"`
	Water        string `yaml:"water"`
	Clear        string `yaml:"clear"`
	Saturated    string `yaml:"saturated"`
	Acid         string `yaml:"acid"`
	Sugar        string `yaml:"sugar"`
	Tannin       string `yaml:"tannin"`
	Over         string `yaml:"over"`
	VelocityLow  string `yaml:"velocity_low"`
	VelocityHigh string `yaml:"velocity_high"`
	Channel      string `yaml:"channel"`
	Steel        string `yaml:"steel"`
	Glass        string `yaml:"glass"`
	Kettle       string `yaml:"kettle"`
	Filter       string `yaml:"filter"`
	Stream       string `yaml:"stream"`
	Bloom        string `yaml:"bloom"`
	Bubble       string `yaml:"bubble"`
	Fine         string `yaml:"fine"`
	Medium       string `yaml:"medium"`
	Coarse       string `yaml:"coarse"`
	Scale        string `yaml:"scale"`
}

// MorphConfig holds morphing renderer parameters.
type MorphConfig struct {
	ProgressIncrement  float64 `yaml:"progress_increment"`  // Morph progress added per tick while rebuilding
	StableLerp         float64 `yaml:"stable_lerp"`         // Per-tick interpolation ratio while stable
	RebuildLerp        float64 `yaml:"rebuild_lerp"`        // Per-tick interpolation ratio while rebuilding
	CrossfadeThreshold float64 `yaml:"crossfade_threshold"` // Progress at which slots adopt target colours
	GrowthFactor       float64 `yaml:"growth_factor"`       // Pool growth multiplier on capacity rebuild
	MinCapacity        int     `yaml:"min_capacity"`        // Pool capacity floor on rebuild
	BreathAmplitude    float64 `yaml:"breath_amplitude"`
	BreathFrequency    float64 `yaml:"breath_frequency"` // Radians per second
	DT                 float64 `yaml:"dt"`               // Seconds per tick for decorative motion
	Sparkle            bool    `yaml:"sparkle"`          // Slerp slots toward precessing orientations
	SpinRate           float64 `yaml:"spin_rate"`        // Precession speed in radians per second
	SpinLerp           float64 `yaml:"spin_lerp"`
	OrphanFall         float64 `yaml:"orphan_fall"`    // Downward drift per tick for orphaned slots
	OrphanEpsilon      float64 `yaml:"orphan_epsilon"` // Scale below which an orphan snaps to zero
	Policy             string  `yaml:"policy"`         // "retarget" or "reject"
}

// PayloadConfig holds external payload adaptation settings.
type PayloadConfig struct {
	Scale         float64 `yaml:"scale"`          // Uniform coordinate scale applied to voxels
	FallbackColor string  `yaml:"fallback_color"` // Used when a voxel colour cannot be parsed
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow      int `yaml:"perf_window"`      // Ticks in the rolling perf window
	StatsInterval   int `yaml:"stats_interval"`   // Ticks per stats window (0 = never flush)
	BookmarkHistory int `yaml:"bookmark_history"` // Windows of history kept for bookmark detection
}

// ViewerConfig holds host loop parameters.
type ViewerConfig struct {
	InitialScene string `yaml:"initial_scene"`
	TourInterval int    `yaml:"tour_interval"` // Ticks per chapter in headless tours
}

// PaletteColors holds the parsed palette as packed 24-bit RGB values.
type PaletteColors struct {
	DryGrounds, WetGrounds, Water      uint32
	Clear, Saturated                   uint32
	Acid, Sugar, Tannin, Over          uint32
	VelocityLow, VelocityHigh, Channel uint32
	Steel, Glass, Kettle, Filter       uint32
	Stream, Bloom, Bubble              uint32
	Fine, Medium, Coarse, Scale        uint32
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Colors        PaletteColors
	FallbackColor uint32
	SettleTicks   int // Ticks for morph progress to saturate: ceil(1/progress_increment)
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// computeDerived validates ranges and calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	if c.Field.MaxParticles < 1 {
		return fmt.Errorf("field.max_particles must be positive, got %d", c.Field.MaxParticles)
	}
	if c.Field.LatticeStep <= 0 {
		return fmt.Errorf("field.lattice_step must be positive, got %v", c.Field.LatticeStep)
	}
	if c.Morph.ProgressIncrement <= 0 || c.Morph.ProgressIncrement > 1 {
		return fmt.Errorf("morph.progress_increment must be in (0, 1], got %v", c.Morph.ProgressIncrement)
	}
	if c.Morph.GrowthFactor < 1 {
		c.Morph.GrowthFactor = 1
	}
	switch c.Morph.Policy {
	case "":
		c.Morph.Policy = "retarget"
	case "retarget", "reject":
	default:
		return fmt.Errorf("morph.policy must be \"retarget\" or \"reject\", got %q", c.Morph.Policy)
	}

	c.Derived.SettleTicks = int(math.Ceil(1 / c.Morph.ProgressIncrement))

	p := c.Palette
	entries := []struct {
		name string
		src  string
		dst  *uint32
	}{
		{"dry_grounds", p.DryGrounds, &c.Derived.Colors.DryGrounds},
		{"wet_grounds", p.WetGrounds, &c.Derived.Colors.WetGrounds},
		{"water", p.Water, &c.Derived.Colors.Water},
		{"clear", p.Clear, &c.Derived.Colors.Clear},
		{"saturated", p.Saturated, &c.Derived.Colors.Saturated},
		{"acid", p.Acid, &c.Derived.Colors.Acid},
		{"sugar", p.Sugar, &c.Derived.Colors.Sugar},
		{"tannin", p.Tannin, &c.Derived.Colors.Tannin},
		{"over", p.Over, &c.Derived.Colors.Over},
		{"velocity_low", p.VelocityLow, &c.Derived.Colors.VelocityLow},
		{"velocity_high", p.VelocityHigh, &c.Derived.Colors.VelocityHigh},
		{"channel", p.Channel, &c.Derived.Colors.Channel},
		{"steel", p.Steel, &c.Derived.Colors.Steel},
		{"glass", p.Glass, &c.Derived.Colors.Glass},
		{"kettle", p.Kettle, &c.Derived.Colors.Kettle},
		{"filter", p.Filter, &c.Derived.Colors.Filter},
		{"stream", p.Stream, &c.Derived.Colors.Stream},
		{"bloom", p.Bloom, &c.Derived.Colors.Bloom},
		{"bubble", p.Bubble, &c.Derived.Colors.Bubble},
		{"fine", p.Fine, &c.Derived.Colors.Fine},
		{"medium", p.Medium, &c.Derived.Colors.Medium},
		{"coarse", p.Coarse, &c.Derived.Colors.Coarse},
		{"scale", p.Scale, &c.Derived.Colors.Scale},
		{"payload.fallback_color", c.Payload.FallbackColor, &c.Derived.FallbackColor},
	}
	for _, e := range entries {
		v, err := ParseHex(e.src)
		if err != nil {
			return fmt.Errorf("palette %s: %w", e.name, err)
		}
		*e.dst = v
	}

	return nil
}

// ParseHex parses "#rrggbb" (the leading '#' is optional) into a packed 24-bit RGB value.
func ParseHex(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 4 && len(s) != 7 {
		return 0, fmt.Errorf("invalid hex colour %q: want 3 or 6 digits", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return 0, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b), nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
