package codec

import (
	"reflect"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	jsoniter "github.com/json-iterator/go"
)

func newOverrides() *overrides {
	return &overrides{
		encoders: map[reflect.Type]jsoniter.ValEncoder{
			reflect.TypeOf(mgl32.Vec3{}): vec3Encoder{},
			reflect.TypeOf(mgl32.Quat{}): quatEncoder{},
			reflect.TypeOf(mgl32.Mat4{}): mat4Encoder{},
		},
	}
}

type vec3Encoder struct{}

func (vec3Encoder) IsEmpty(unsafe.Pointer) bool { return false }

func (vec3Encoder) Encode(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	v := (*mgl32.Vec3)(ptr)
	writeComponents(stream, v[0], v[1], v[2])
	stream.WriteObjectEnd()
}

type quatEncoder struct{}

func (quatEncoder) IsEmpty(unsafe.Pointer) bool { return false }

func (quatEncoder) Encode(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	q := (*mgl32.Quat)(ptr)
	writeComponents(stream, q.V[0], q.V[1], q.V[2])
	stream.WriteMore()
	stream.WriteObjectField("w")
	stream.WriteFloat32(q.W)
	stream.WriteObjectEnd()
}

// writeComponents leaves the object open so callers can append fields.
func writeComponents(stream *jsoniter.Stream, x, y, z float32) {
	stream.WriteObjectStart()
	stream.WriteObjectField("x")
	stream.WriteFloat32(x)
	stream.WriteMore()
	stream.WriteObjectField("y")
	stream.WriteFloat32(y)
	stream.WriteMore()
	stream.WriteObjectField("z")
	stream.WriteFloat32(z)
}

// mat4Encoder writes elements in storage order, which for mgl32 is
// column-major: the translation of an affine transform lands at 12..14.
type mat4Encoder struct{}

func (mat4Encoder) IsEmpty(unsafe.Pointer) bool { return false }

func (mat4Encoder) Encode(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	m := (*mgl32.Mat4)(ptr)
	stream.WriteArrayStart()
	for i, v := range m {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteFloat32(v)
	}
	stream.WriteArrayEnd()
}
