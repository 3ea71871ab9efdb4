package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"terrainstream/internal/world"
)

// Duration is a JSON-friendly wrapper around time.Duration that accepts human
// readable strings such as "150ms" in configuration files while still
// allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML writes the same string form as MarshalJSON.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts "250ms" style strings or integer nanoseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar, got yaml kind %d", node.Kind)
	}
	if node.Tag == "!!int" {
		var n int64
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode int: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config captures the tunable parameters of the terrain streamer.
type Config struct {
	Chunk    ChunkConfig    `json:"chunk" yaml:"chunk"`
	Stream   StreamConfig   `json:"stream" yaml:"stream"`
	Compute  ComputeConfig  `json:"compute" yaml:"compute"`
	Terrain  TerrainConfig  `json:"terrain" yaml:"terrain"`
	Camera   CameraConfig   `json:"camera" yaml:"camera"`
	Entities EntityConfig   `json:"entities" yaml:"entities"`
	Lights   LightConfig    `json:"lights" yaml:"lights"`
	Observer ObserverConfig `json:"observer" yaml:"observer"`
	Trace    TraceConfig    `json:"trace" yaml:"trace"`
	Sky      SkyConfig      `json:"sky" yaml:"sky"`
}

type ChunkConfig struct {
	WorkgroupSize int `json:"workgroupSize" yaml:"workgroupSize"` // cells per workgroup axis
	MaxLoaded     int `json:"maxLoaded" yaml:"maxLoaded"`         // resident chunk slots
}

type StreamConfig struct {
	Radius                 int      `json:"radius" yaml:"radius"`                 // chunks around the camera on X/Z
	VerticalRadius         int      `json:"verticalRadius" yaml:"verticalRadius"` // chunks above/below the camera
	MaxDispatchesPerSecond float64  `json:"maxDispatchesPerSecond" yaml:"maxDispatchesPerSecond"`
	DispatchBurst          int      `json:"dispatchBurst" yaml:"dispatchBurst"`
	RetryDelay             Duration `json:"retryDelay" yaml:"retryDelay"` // back-off for failed generations
	MaxRetriesPerFrame     int      `json:"maxRetriesPerFrame" yaml:"maxRetriesPerFrame"`
	FrameRate              Duration `json:"frameRate" yaml:"frameRate"` // e.g. "16ms"
}

type ComputeConfig struct {
	Backend         string   `json:"backend" yaml:"backend"` // "cpu" or "gl"
	Workers         int      `json:"workers" yaml:"workers"` // 0 uses GOMAXPROCS
	DispatchTimeout Duration `json:"dispatchTimeout" yaml:"dispatchTimeout"`
	VoxelScale      float64  `json:"voxelScale" yaml:"voxelScale"` // world units per cell
	ShaderDir       string   `json:"shaderDir" yaml:"shaderDir"`   // empty uses the embedded sources
}

type TerrainConfig struct {
	Seed          int64   `json:"seed" yaml:"seed"`
	Frequency     float64 `json:"frequency" yaml:"frequency"`
	Amplitude     float64 `json:"amplitude" yaml:"amplitude"`
	Octaves       int     `json:"octaves" yaml:"octaves"`
	Persistence   float64 `json:"persistence" yaml:"persistence"`
	Lacunarity    float64 `json:"lacunarity" yaml:"lacunarity"`
	BaseHeight    float64 `json:"baseHeight" yaml:"baseHeight"`
	CaveFrequency float64 `json:"caveFrequency" yaml:"caveFrequency"`
	CaveThreshold float64 `json:"caveThreshold" yaml:"caveThreshold"`
}

type CameraConfig struct {
	FOV      float32    `json:"fov" yaml:"fov"` // vertical, degrees
	Aspect   float32    `json:"aspect" yaml:"aspect"`
	Near     float32    `json:"near" yaml:"near"`
	Far      float32    `json:"far" yaml:"far"`
	Position [3]float32 `json:"position" yaml:"position"`
	Yaw      float32    `json:"yaw" yaml:"yaw"`     // degrees about +Y
	Pitch    float32    `json:"pitch" yaml:"pitch"` // degrees about +X
	Speed    float32    `json:"speed" yaml:"speed"` // world units per second
}

type EntityConfig struct {
	Capacity int `json:"capacity" yaml:"capacity"`
}

type LightConfig struct {
	TileSize int          `json:"tileSize" yaml:"tileSize"`
	Screen   [2]int       `json:"screen" yaml:"screen"` // depth map size used for culling
	Points   []PointLight `json:"points" yaml:"points"`
}

type PointLight struct {
	Position [3]float32 `json:"position" yaml:"position"`
	Color    [3]float32 `json:"color" yaml:"color"`
	Radius   float32    `json:"radius" yaml:"radius"`
}

type ObserverConfig struct {
	Listen  string `json:"listen" yaml:"listen"` // empty disables the HTTP observer
	History int    `json:"history" yaml:"history"`
}

type TraceConfig struct {
	Dir    string `json:"dir" yaml:"dir"` // empty disables the frame trace
	Prefix string `json:"prefix" yaml:"prefix"`
}

type SkyConfig struct {
	DayLength Duration `json:"dayLength" yaml:"dayLength"` // zero keeps a fixed overhead sun
	StartHour float64  `json:"startHour" yaml:"startHour"`
}

// Load reads configuration from a JSON or YAML file if provided. An empty
// path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Chunk: ChunkConfig{
			WorkgroupSize: 16,
			MaxLoaded:     32,
		},
		Stream: StreamConfig{
			Radius:                 3,
			VerticalRadius:         1,
			MaxDispatchesPerSecond: 120,
			DispatchBurst:          4,
			RetryDelay:             Duration(500 * time.Millisecond),
			MaxRetriesPerFrame:     4,
			FrameRate:              Duration(16 * time.Millisecond),
		},
		Compute: ComputeConfig{
			Backend:         "cpu",
			Workers:         0,
			DispatchTimeout: Duration(2 * time.Second),
			VoxelScale:      1,
		},
		Terrain: TerrainConfig{
			Seed:          1337,
			Frequency:     0.01,
			Amplitude:     48,
			Octaves:       4,
			Persistence:   0.45,
			Lacunarity:    2.0,
			BaseHeight:    32,
			CaveFrequency: 0.04,
			CaveThreshold: 0.55,
		},
		Camera: CameraConfig{
			FOV:      70,
			Aspect:   16.0 / 9.0,
			Near:     0.1,
			Far:      512,
			Position: [3]float32{0, 80, 0},
			Yaw:      0,
			Pitch:    -15,
			Speed:    12,
		},
		Entities: EntityConfig{
			Capacity: 5000,
		},
		Lights: LightConfig{
			TileSize: 16,
			Screen:   [2]int{320, 180},
			Points: []PointLight{
				{Position: [3]float32{0, 60, -40}, Color: [3]float32{1, 0.9, 0.7}, Radius: 24},
			},
		},
		Observer: ObserverConfig{
			Listen:  "",
			History: 120,
		},
		Trace: TraceConfig{
			Dir:    "",
			Prefix: "frames",
		},
		Sky: SkyConfig{
			DayLength: Duration(20 * time.Minute),
			StartHour: 9,
		},
	}
}

// CellsPerChunk is the number of voxel cells along a chunk axis for the
// configured voxel scale.
func (c *Config) CellsPerChunk() int {
	if c.Compute.VoxelScale <= 0 {
		return 0
	}
	return int(world.ChunkSize / c.Compute.VoxelScale)
}

func (c *Config) Validate() error {
	if c.Chunk.WorkgroupSize <= 0 {
		return errors.New("chunk.workgroupSize must be positive")
	}
	if c.Chunk.MaxLoaded <= 0 {
		return errors.New("chunk.maxLoaded must be positive")
	}
	if c.Stream.Radius < 0 || c.Stream.VerticalRadius < 0 {
		return errors.New("stream radii cannot be negative")
	}
	if c.Stream.MaxDispatchesPerSecond <= 0 {
		return errors.New("stream.maxDispatchesPerSecond must be positive")
	}
	if c.Stream.DispatchBurst <= 0 {
		return errors.New("stream.dispatchBurst must be positive")
	}
	if c.Stream.FrameRate <= 0 {
		return errors.New("stream.frameRate must be positive")
	}
	switch c.Compute.Backend {
	case "cpu", "gl":
	default:
		return fmt.Errorf("compute.backend %q must be cpu or gl", c.Compute.Backend)
	}
	if c.Compute.Workers < 0 {
		return errors.New("compute.workers cannot be negative")
	}
	if c.Compute.VoxelScale <= 0 {
		return errors.New("compute.voxelScale must be positive")
	}
	if cells := c.CellsPerChunk(); cells == 0 || float64(cells)*c.Compute.VoxelScale != world.ChunkSize || cells%c.Chunk.WorkgroupSize != 0 {
		return errors.New("compute.voxelScale must split a chunk into whole workgroups")
	}
	if c.Terrain.Octaves <= 0 {
		return errors.New("terrain.octaves must be positive")
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		return errors.New("camera.fov must be in (0, 180)")
	}
	if c.Camera.Aspect <= 0 {
		return errors.New("camera.aspect must be positive")
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return errors.New("camera near/far planes must satisfy 0 < near < far")
	}
	if c.Entities.Capacity < c.Chunk.MaxLoaded {
		return errors.New("entities.capacity must be >= chunk.maxLoaded")
	}
	if c.Lights.TileSize <= 0 {
		return errors.New("lights.tileSize must be positive")
	}
	for i, p := range c.Lights.Points {
		if p.Radius <= 0 {
			return fmt.Errorf("lights.points[%d].radius must be positive", i)
		}
	}
	if c.Observer.History < 0 {
		return errors.New("observer.history cannot be negative")
	}
	if c.Trace.Dir != "" && c.Trace.Prefix == "" {
		return errors.New("trace.prefix must be set when trace.dir is")
	}
	if c.Sky.DayLength < 0 {
		return errors.New("sky.dayLength cannot be negative")
	}
	if c.Sky.StartHour < 0 || c.Sky.StartHour >= 24 {
		return errors.New("sky.startHour must be in [0, 24)")
	}
	return nil
}
