package compute

import (
	"reflect"
)

// Location is a uniform slot in a linked program.
type Location int32

// LocationNotFound marks a uniform the program does not declare (or that the
// linker optimised away). Binding to it is a no-op.
const LocationNotFound Location = -1

func (l Location) Valid() bool { return l >= 0 }

// Layout is one of the typed uniform sets below, resolved for a program.
type Layout interface {
	Kind() ShaderKind
}

type SurfaceUniforms struct {
	LightDir          Location `uniform:"lightDir"`
	TransformMatrix   Location `uniform:"transformMatrix"`
	PerspectiveMatrix Location `uniform:"perspectiveMatrix"`
	Texture           Location `uniform:"tex"`
	NormalSampler     Location `uniform:"normalSampler"`
	ViewMatrix        Location `uniform:"viewMat"`
	CameraPosition    Location `uniform:"camPos"`
	ModelMatrix       Location `uniform:"modelMatrix"`
	TilesX            Location `uniform:"numberOfTilesX"`
}

type PostProcUniforms struct {
	FBOTexture            Location `uniform:"fbo_texture"`
	DepthTexture          Location `uniform:"depth_texture"`
	NormalTexture         Location `uniform:"normal_texture"`
	PositionTexture       Location `uniform:"position_texture"`
	ShadowTexture         Location `uniform:"shadow_texture"`
	LightDir              Location `uniform:"lightDir"`
	ProjectionMatrix      Location `uniform:"projMatrix"`
	LightProjectionMatrix Location `uniform:"lightProjectionMatrix"`
}

type LightCullUniforms struct {
	DepthMap   Location `uniform:"depthMap"`
	LightCount Location `uniform:"lightCount"`
	Projection Location `uniform:"projection"`
	ScreenSize Location `uniform:"screenSize"`
	View       Location `uniform:"view"`
}

type TerrainGenUniforms struct {
	LightDir          Location `uniform:"lightDir"`
	TransformMatrix   Location `uniform:"transformMatrix"`
	PerspectiveMatrix Location `uniform:"perspectiveMatrix"`
	Texture           Location `uniform:"tex"`
	EdgeTable         Location `uniform:"mcubesLookup"`
	TriTable          Location `uniform:"mcubesLookup2"`
	ViewMatrix        Location `uniform:"viewMat"`
	CameraPosition    Location `uniform:"camPos"`
	WorldOffset       Location `uniform:"worldOffset"`
	VoxelScale        Location `uniform:"voxelScale"`
}

type SkydomeUniforms struct {
	ScaleMatrix         Location `uniform:"scaleMatrix"`
	PerspectiveMatrix   Location `uniform:"perspectiveMatrix"`
	TransformMatrix     Location `uniform:"transformMatrix"`
	CameraPos           Location `uniform:"v3CameraPos"`
	LightDir            Location `uniform:"v3LightDir"`
	InvWavelength       Location `uniform:"v3InvWavelength"`
	CameraHeight        Location `uniform:"fCameraHeight"`
	CameraHeight2       Location `uniform:"fCameraHeight2"`
	OuterRadius         Location `uniform:"fOuterRadius"`
	OuterRadius2        Location `uniform:"fOuterRadius2"`
	InnerRadius         Location `uniform:"fInnerRadius"`
	InnerRadius2        Location `uniform:"fInnerRadius2"`
	KrESun              Location `uniform:"fKrESun"`
	KmESun              Location `uniform:"fKmESun"`
	Kr4PI               Location `uniform:"fKr4PI"`
	Km4PI               Location `uniform:"fKm4PI"`
	Scale               Location `uniform:"fScale"`
	ScaleOverScaleDepth Location `uniform:"fScaleOverScaleDepth"`
}

func (*SurfaceUniforms) Kind() ShaderKind    { return KindSurface }
func (*PostProcUniforms) Kind() ShaderKind   { return KindPostProc }
func (*LightCullUniforms) Kind() ShaderKind  { return KindLightCull }
func (*TerrainGenUniforms) Kind() ShaderKind { return KindTerrainGen }
func (*SkydomeUniforms) Kind() ShaderKind    { return KindSkydome }

func newLayout(kind ShaderKind) Layout {
	switch kind {
	case KindSurface:
		return &SurfaceUniforms{}
	case KindPostProc:
		return &PostProcUniforms{}
	case KindLightCull:
		return &LightCullUniforms{}
	case KindTerrainGen:
		return &TerrainGenUniforms{}
	case KindSkydome:
		return &SkydomeUniforms{}
	default:
		return nil
	}
}

// UniformNames lists the uniform names of kind in field order.
func UniformNames(kind ShaderKind) []string {
	l := newLayout(kind)
	if l == nil {
		return nil
	}
	t := reflect.TypeOf(l).Elem()
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name, ok := t.Field(i).Tag.Lookup("uniform"); ok {
			names = append(names, name)
		}
	}
	return names
}

// ResolveLayout queries every uniform of kind once. Names that resolve to
// LocationNotFound are returned in missing; the layout keeps -1 for them.
func ResolveLayout(kind ShaderKind, lookup func(name string) Location) (Layout, []string) {
	l := newLayout(kind)
	if l == nil {
		return nil, nil
	}
	v := reflect.ValueOf(l).Elem()
	t := v.Type()
	var missing []string
	for i := 0; i < t.NumField(); i++ {
		name, ok := t.Field(i).Tag.Lookup("uniform")
		if !ok {
			continue
		}
		loc := lookup(name)
		if !loc.Valid() {
			loc = LocationNotFound
			missing = append(missing, name)
		}
		v.Field(i).SetInt(int64(loc))
	}
	return l, missing
}
