package imgprep

import (
	"encoding/binary"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Orientation is the EXIF orientation tag of an image.
type Orientation int

// EXIF orientation values.
const (
	OrientationUndefined      Orientation = 0
	OrientationNormal         Orientation = 1
	OrientationFlipHorizontal Orientation = 2
	OrientationRotate180      Orientation = 3
	OrientationFlipVertical   Orientation = 4
	OrientationTranspose      Orientation = 5
	OrientationRotate90       Orientation = 6
	OrientationTransverse     Orientation = 7
	OrientationRotate270      Orientation = 8
)

// Correction is the transformation that makes an image upright.
// Rotation is in degrees, clockwise, one of 0, 90, 180 and -90.
type Correction struct {
	Rotation       int
	FlipHorizontal bool
	FlipVertical   bool
}

// Correction returns the correction for o. Unknown values need none.
func (o Orientation) Correction() Correction {
	switch o {
	case OrientationFlipHorizontal:
		return Correction{FlipHorizontal: true}
	case OrientationRotate90:
		return Correction{Rotation: 90}
	case OrientationTranspose:
		return Correction{Rotation: 90, FlipHorizontal: true}
	case OrientationRotate180:
		return Correction{Rotation: 180}
	case OrientationFlipVertical:
		return Correction{FlipVertical: true}
	case OrientationRotate270:
		return Correction{Rotation: -90}
	case OrientationTransverse:
		return Correction{Rotation: -90, FlipHorizontal: true}
	default:
		return Correction{}
	}
}

// ReadOrientation reads the EXIF orientation of src. Stream sources are
// reported as OrientationUndefined without being opened. Sources without
// EXIF orientation are OrientationNormal.
func ReadOrientation(src Source) (Orientation, error) {
	if src.Kind != SourceFile && src.Kind != SourceContent {
		return OrientationUndefined, nil
	}
	rc, err := src.Open()
	if err != nil {
		return OrientationUndefined, newError(DecodeError, "orientation", err)
	}
	defer rc.Close()

	if o := readOrientation(rc); o != OrientationUndefined {
		return o, nil
	}
	return OrientationNormal, nil
}

// readOrientation looks for the orientation tag in the APP1 segment of JPEG
// data. Anything unexpected yields OrientationUndefined.
func readOrientation(r io.Reader) Orientation {
	const (
		markerSOI      = 0xffd8
		markerAPP1     = 0xffe1
		exifHeader     = 0x45786966
		byteOrderBE    = 0x4d4d
		byteOrderLE    = 0x4949
		orientationTag = 0x0112
	)

	var soi uint16
	if err := binary.Read(r, binary.BigEndian, &soi); err != nil || soi != markerSOI {
		return OrientationUndefined
	}

	for {
		var marker, size uint16
		if err := binary.Read(r, binary.BigEndian, &marker); err != nil {
			return OrientationUndefined
		}
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			return OrientationUndefined
		}
		if marker>>8 != 0xff {
			return OrientationUndefined
		}
		if marker == markerAPP1 {
			break
		}
		if size < 2 {
			return OrientationUndefined
		}
		if _, err := io.CopyN(io.Discard, r, int64(size-2)); err != nil {
			return OrientationUndefined
		}
	}

	var header uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil || header != exifHeader {
		return OrientationUndefined
	}
	if _, err := io.CopyN(io.Discard, r, 2); err != nil {
		return OrientationUndefined
	}

	var (
		byteOrderTag uint16
		byteOrder    binary.ByteOrder
	)
	if err := binary.Read(r, binary.BigEndian, &byteOrderTag); err != nil {
		return OrientationUndefined
	}
	switch byteOrderTag {
	case byteOrderBE:
		byteOrder = binary.BigEndian
	case byteOrderLE:
		byteOrder = binary.LittleEndian
	default:
		return OrientationUndefined
	}
	if _, err := io.CopyN(io.Discard, r, 2); err != nil {
		return OrientationUndefined
	}

	// IFD0 offset, relative to the byte order mark.
	var offset uint32
	if err := binary.Read(r, byteOrder, &offset); err != nil || offset < 8 {
		return OrientationUndefined
	}
	if _, err := io.CopyN(io.Discard, r, int64(offset-8)); err != nil {
		return OrientationUndefined
	}

	var numTags uint16
	if err := binary.Read(r, byteOrder, &numTags); err != nil {
		return OrientationUndefined
	}
	for range numTags {
		var tag uint16
		if err := binary.Read(r, byteOrder, &tag); err != nil {
			return OrientationUndefined
		}
		if tag != orientationTag {
			if _, err := io.CopyN(io.Discard, r, 10); err != nil {
				return OrientationUndefined
			}
			continue
		}
		if _, err := io.CopyN(io.Discard, r, 6); err != nil {
			return OrientationUndefined
		}
		var val uint16
		if err := binary.Read(r, byteOrder, &val); err != nil || val < 1 || val > 8 {
			return OrientationUndefined
		}
		return Orientation(val)
	}
	return OrientationUndefined
}

// Normalize applies the rotation of c to m. Flips are not applied.
// When a rotation happens m is released and a new image returned.
func Normalize(m *Image, c Correction) (*Image, error) {
	img := m.Image()
	if img == nil {
		return nil, newError(DecodeError, "normalize", ErrReleased)
	}

	var rotated image.Image
	switch c.Rotation {
	case 90:
		rotated = imaging.Rotate270(img)
	case 180:
		rotated = imaging.Rotate180(img)
	case -90, 270:
		rotated = imaging.Rotate90(img)
	default:
		return m, nil
	}
	return m.replace(NewImage(rotated)), nil
}

// Load decodes src, reads its orientation and rotates it upright.
func (d *Decoder) Load(src Source, reqWidth, reqHeight int) (*Image, Correction, error) {
	img, _, err := d.Decode(src, reqWidth, reqHeight)
	if err != nil {
		return nil, Correction{}, err
	}
	o, err := ReadOrientation(src)
	if err != nil {
		img.Release()
		return nil, Correction{}, err
	}
	c := o.Correction()
	img, err = Normalize(img, c)
	if err != nil {
		return nil, Correction{}, err
	}
	return img, c, nil
}
