package pointcloud

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/delink/logging"
)

func TestPoolBasic(t *testing.T) {
	pool := NewPool()
	test.That(t, pool.Size(), test.ShouldEqual, 0)
	meta := pool.MetaData()
	test.That(t, meta.Empty(), test.ShouldBeTrue)

	p0 := pool.Add(NewVector(0, 0, 0))
	p1 := pool.Add(NewVector(1, 0, 1))
	p2 := pool.Add(NewVector(-1, -2, 1))
	test.That(t, p0, test.ShouldEqual, PointID(0))
	test.That(t, p2, test.ShouldEqual, PointID(2))
	test.That(t, pool.Size(), test.ShouldEqual, 3)
	test.That(t, pool.At(p1), test.ShouldResemble, NewVector(1, 0, 1))

	// handles are identities, not coordinates
	dup := pool.Add(NewVector(1, 0, 1))
	test.That(t, dup, test.ShouldNotEqual, p1)
	test.That(t, pool.At(dup), test.ShouldResemble, pool.At(p1))

	meta = pool.MetaData()
	lo, hi := meta.BoundingBox()
	test.That(t, lo, test.ShouldResemble, NewVector(-1, -2, 0))
	test.That(t, hi, test.ShouldResemble, NewVector(1, 0, 1))

	pool.Set(p0, NewVector(5, 5, 5))
	test.That(t, pool.At(p0), test.ShouldResemble, NewVector(5, 5, 5))
	meta = pool.MetaData()
	_, hi = meta.BoundingBox()
	test.That(t, hi, test.ShouldResemble, NewVector(5, 5, 5))

	count := 0
	pool.Iterate(func(id PointID, p r3.Vector) bool {
		count++
		return id < p1
	})
	test.That(t, count, test.ShouldEqual, 2)
	test.That(t, pool.IDs(), test.ShouldResemble, []PointID{0, 1, 2, 3})
}

func TestPointID(t *testing.T) {
	test.That(t, NoPoint.Valid(), test.ShouldBeFalse)
	test.That(t, PointID(0).Valid(), test.ShouldBeTrue)
	test.That(t, PointID(7).String(), test.ShouldEqual, "pt(7)")
	test.That(t, NoPoint.String(), test.ShouldEqual, "pt(none)")
}

func TestHalfOpenBox(t *testing.T) {
	pool := NewPoolFromVectors(NewVector(0, 0, 0), NewVector(2, 1, 1))
	meta := pool.MetaData()
	lo, hi := meta.HalfOpenBox(0.5)
	test.That(t, lo, test.ShouldResemble, NewVector(-1, -1, -1))
	test.That(t, hi, test.ShouldResemble, NewVector(3, 2, 2))

	single := NewPoolFromVectors(NewVector(1, 1, 1))
	meta = single.MetaData()
	lo, hi = meta.HalfOpenBox(0.1)
	test.That(t, lo, test.ShouldResemble, NewVector(0, 0, 0))
	test.That(t, hi, test.ShouldResemble, NewVector(2, 2, 2))
}

func TestReadXYZ(t *testing.T) {
	in := strings.NewReader("# header\n0 0 0\n\n1.5 2 -3 # trailing\n  4 5 6 7\n")
	pool, err := ReadXYZ(in)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pool.Size(), test.ShouldEqual, 3)
	test.That(t, pool.At(1), test.ShouldResemble, NewVector(1.5, 2, -3))
	test.That(t, pool.At(2), test.ShouldResemble, NewVector(4, 5, 6))

	_, err = ReadXYZ(strings.NewReader("1 2\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "line 1")

	_, err = ReadXYZ(strings.NewReader("1 2 x\n"))
	test.That(t, err, test.ShouldNotBeNil)
}

const pcdHeaderText = `VERSION .7
FIELDS x y z
SIZE 4 4 4
TYPE F F F
COUNT 1 1 1
WIDTH 2
HEIGHT 1
VIEWPOINT 0 0 0 1 0 0 0
POINTS 2
`

func TestReadPCDAscii(t *testing.T) {
	pool, err := ReadPCD(strings.NewReader(pcdHeaderText + "DATA ascii\n0 0 0\n-1 2.5 3\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pool.Size(), test.ShouldEqual, 2)
	test.That(t, pool.At(1), test.ShouldResemble, NewVector(-1, 2.5, 3))

	_, err = ReadPCD(strings.NewReader(strings.Replace(pcdHeaderText, "POINTS 2", "POINTS 3", 1) + "DATA ascii\n"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ReadPCD(strings.NewReader(pcdHeaderText + "DATA binary_compressed\n"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadPCDBinary(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(pcdHeaderText + "DATA binary\n")
	for _, f := range []float32{0, 0, 0, 1, -2, 0.5} {
		test.That(t, binary.Write(&buf, binary.LittleEndian, math.Float32bits(f)), test.ShouldBeNil)
	}
	pool, err := ReadPCD(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pool.Size(), test.ShouldEqual, 2)
	test.That(t, pool.At(1), test.ShouldResemble, NewVector(1, -2, 0.5))
}

func TestReadPCDHugePointCount(t *testing.T) {
	header := strings.NewReplacer(
		"WIDTH 2", "WIDTH 4611686018427387904",
		"POINTS 2", "POINTS 4611686018427387904",
	).Replace(pcdHeaderText)

	_, err := ReadPCD(strings.NewReader(header + "DATA ascii\n0 0 0\n"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ReadPCD(strings.NewReader(header + "DATA binary\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "reading point 0")
}

func writeLAS(t *testing.T, fn string, pts ...r3.Vector) {
	t.Helper()
	lf, err := lidario.NewLasFile(fn, "w")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lf.AddHeader(lidario.LasHeader{PointFormatID: 0}), test.ShouldBeNil)
	for _, p := range pts {
		test.That(t, lf.AddLasPoint(&lidario.PointRecord0{
			X: p.X,
			Y: p.Y,
			Z: p.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3),
			},
			PointSourceID: 1,
		}), test.ShouldBeNil)
	}
	test.That(t, lf.Close(), test.ShouldBeNil)
}

func TestNewFromFile(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()

	t.Run("las", func(t *testing.T) {
		fn := filepath.Join(dir, "cloud.las")
		writeLAS(t, fn, NewVector(0, 0, 0), NewVector(1.5, -2.25, 3), NewVector(10, 20, 30))

		pool, err := NewFromFile(fn, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pool.Size(), test.ShouldEqual, 3)
		p := pool.At(1)
		test.That(t, p.X, test.ShouldAlmostEqual, 1.5, 1e-3)
		test.That(t, p.Y, test.ShouldAlmostEqual, -2.25, 1e-3)
		test.That(t, p.Z, test.ShouldAlmostEqual, 3, 1e-3)
		test.That(t, pool.At(2).Z, test.ShouldAlmostEqual, 30, 1e-3)
	})

	t.Run("xyz", func(t *testing.T) {
		fn := filepath.Join(dir, "cloud.xyz")
		test.That(t, os.WriteFile(fn, []byte("0 0 0\n1 2 3\n"), 0o600), test.ShouldBeNil)
		pool, err := NewFromFile(fn, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pool.At(1), test.ShouldResemble, NewVector(1, 2, 3))
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := NewFromFile(filepath.Join(dir, "cloud.ply"), logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "do not know how to read")
	})

	t.Run("missing las file", func(t *testing.T) {
		_, err := NewFromFile(filepath.Join(dir, "missing.las"), logger)
		test.That(t, err, test.ShouldNotBeNil)
	})
}
