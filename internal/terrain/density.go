package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/config"
)

// NoiseDensity is a seeded height field of fractal value noise with 3D value
// noise carving caves below it. Sample is positive inside solid ground.
type NoiseDensity struct {
	cfg  config.TerrainConfig
	seed int64
}

func NewNoiseDensity(cfg config.TerrainConfig) *NoiseDensity {
	return &NoiseDensity{cfg: cfg, seed: cfg.Seed}
}

func (d *NoiseDensity) Sample(p mgl32.Vec3) float32 {
	x, y, z := float64(p[0]), float64(p[1]), float64(p[2])
	height := d.cfg.BaseHeight + d.fractalNoise(x, z)*d.cfg.Amplitude
	density := height - y

	if d.cfg.CaveFrequency > 0 {
		f := d.cfg.CaveFrequency
		cave := d.valueNoise3D(x*f, y*f, z*f)
		if cave > d.cfg.CaveThreshold {
			density -= (cave - d.cfg.CaveThreshold) * d.cfg.Amplitude
		}
	}
	return float32(density)
}

// SurfaceHeight is the ground height at (x, z) before caves are carved.
func (d *NoiseDensity) SurfaceHeight(x, z float64) float64 {
	return d.cfg.BaseHeight + d.fractalNoise(x, z)*d.cfg.Amplitude
}

func (d *NoiseDensity) fractalNoise(x, z float64) float64 {
	frequency := d.cfg.Frequency
	amplitude := 1.0
	noiseSum := 0.0
	maxAmplitude := 0.0

	for i := 0; i < d.cfg.Octaves; i++ {
		noise := d.valueNoise(x*frequency, z*frequency)
		noiseSum += noise * amplitude
		maxAmplitude += amplitude
		amplitude *= d.cfg.Persistence
		frequency *= d.cfg.Lacunarity
	}

	if maxAmplitude == 0 {
		return 0
	}
	return noiseSum / maxAmplitude
}

func (d *NoiseDensity) valueNoise(x, z float64) float64 {
	x0 := int(math.Floor(x))
	z0 := int(math.Floor(z))
	sx := smooth(x - float64(x0))
	sz := smooth(z - float64(z0))

	n0 := random2D(x0, z0, d.seed)
	n1 := random2D(x0+1, z0, d.seed)
	ix0 := lerp(n0, n1, sx)

	n2 := random2D(x0, z0+1, d.seed)
	n3 := random2D(x0+1, z0+1, d.seed)
	ix1 := lerp(n2, n3, sx)

	return lerp(ix0, ix1, sz)
}

func (d *NoiseDensity) valueNoise3D(x, y, z float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	z0 := int(math.Floor(z))
	sx := smooth(x - float64(x0))
	sy := smooth(y - float64(y0))
	sz := smooth(z - float64(z0))

	corner := func(dx, dy, dz int) float64 {
		return random3D(x0+dx, y0+dy, z0+dz, d.seed)
	}
	bottom := lerp(
		lerp(corner(0, 0, 0), corner(1, 0, 0), sx),
		lerp(corner(0, 1, 0), corner(1, 1, 0), sx),
		sy,
	)
	top := lerp(
		lerp(corner(0, 0, 1), corner(1, 0, 1), sx),
		lerp(corner(0, 1, 1), corner(1, 1, 1), sx),
		sy,
	)
	return lerp(bottom, top, sz)
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func random2D(x, z int, seed int64) float64 {
	return float64(hash3(x, z, int(seed))&0xFFFF)/0x8000 - 1.0
}

func random3D(x, y, z int, seed int64) float64 {
	return float64(hash3(x, y, z+int(seed)*7919)&0xFFFF)/0x8000 - 1.0
}

func hash3(x, y, z int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}
