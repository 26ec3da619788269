// Package hetensor implements the batched tensor container of §4.2: a
// logical tensor backed by an ordered vector of hevalue.HeValue slots,
// each slot holding batch_size SIMD lanes, with write (encode+encrypt)
// and read (decrypt+decode) I/O paths that partition a flat byte buffer
// into interleaved batch strides.
//
// Grounded throughout on original_source/src/he_tensor.cpp's
// HETensor::write/read/pack_shape/unpack_shape/check_io_bounds — the
// base class shared by he_cipher_tensor.cpp and he_plain_tensor.cpp,
// which differ only in whether a slot is backed by a ciphertext or a
// plaintext, the same distinction hevalue.HeValue's tag already carries
// here, so this package needs only one implementation instead of the
// original's two sibling classes.
package hetensor

import (
	"fmt"

	"github.com/nnhe/nnhe/hescheme"
	"github.com/nnhe/nnhe/hevalue"
)

// HeTensor is a logical tensor of element type Dtype and shape Shape,
// backed by a flat vector of HeValues. Packed is true when axis 0 has
// been collapsed into the SIMD batch dimension (§4.2's packing policy:
// axis 0 only).
type HeTensor struct {
	scheme    hescheme.Scheme
	dtype     DataType
	shape     Shape
	packed    bool
	encrypted bool
	batchSize int
	values    []hevalue.HeValue
}

// New allocates a tensor of the given dtype/shape. When packed, the
// tensor's batch_size is shape[0] (axis 0 collapses into SIMD lanes);
// otherwise batch_size is 1. When encrypted, every slot starts as a
// known-zero ciphertext; otherwise every slot starts as a zero
// Plaintext. Grounded on HETensor's constructor, which likewise
// pre-allocates m_data with one HEType per slot before any write.
func New(scheme hescheme.Scheme, dtype DataType, shape Shape, packed, encrypted bool) (*HeTensor, error) {
	if !dtype.valid() {
		return nil, &UnsupportedElementType{Type: dtype}
	}

	batchSize := 1
	if packed {
		if len(shape) == 0 {
			return nil, &ShapeMismatch{Reason: "cannot pack a rank-0 tensor along axis 0"}
		}
		batchSize = shape[0]
		if batchSize == 0 {
			batchSize = 1
		}
	}

	product := shape.Product()
	numElements := (product + batchSize - 1) / batchSize

	values := make([]hevalue.HeValue, numElements)
	zeros := make([]float64, batchSize)
	for i := range values {
		if encrypted {
			c, err := encryptSlot(scheme, zeros, batchSize)
			if err != nil {
				return nil, err
			}
			values[i] = hevalue.FromCipher(c)
		} else {
			values[i] = hevalue.FromPlain(hevalue.Plaintext{
				Values:         append([]float64(nil), zeros...),
				ComplexPacking: scheme.ComplexPacking(),
			})
		}
	}

	return &HeTensor{
		scheme:    scheme,
		dtype:     dtype,
		shape:     shape.Clone(),
		packed:    packed,
		encrypted: encrypted,
		batchSize: batchSize,
		values:    values,
	}, nil
}

func encryptSlot(scheme hescheme.Scheme, values []float64, batchSize int) (hevalue.Ciphertext, error) {
	pt, err := scheme.Encode(values, scheme.DefaultScale())
	if err != nil {
		return hevalue.Ciphertext{}, fmt.Errorf("hetensor: encoding slot: %w", err)
	}
	ct, err := scheme.Encrypt(pt)
	if err != nil {
		return hevalue.Ciphertext{}, fmt.Errorf("hetensor: encrypting slot: %w", err)
	}
	known := 0.0
	allSame := true
	for _, v := range values {
		if v != values[0] {
			allSame = false
			break
		}
	}
	if allSame && len(values) > 0 {
		known = values[0]
	} else {
		allSame = false
	}
	var kv *float64
	if allSame {
		kv = &known
	}
	return hevalue.Ciphertext{
		Inner:          ct,
		ChainIndex:     scheme.ChainIndex(ct),
		Scale:          scheme.DefaultScale(),
		ComplexPacking: scheme.ComplexPacking(),
		BatchSize:      batchSize,
		KnownValue:     kv,
	}, nil
}

func (t *HeTensor) Dtype() DataType    { return t.dtype }
func (t *HeTensor) Shape() Shape       { return t.shape.Clone() }
func (t *HeTensor) Packed() bool       { return t.packed }
func (t *HeTensor) BatchSize() int     { return t.batchSize }
func (t *HeTensor) ElementCount() int  { return len(t.values) }
func (t *HeTensor) IsEncrypted() bool  { return t.encrypted }

// Write partitions sourceBytes (byteCount bytes starting at byteOffset
// within it is interpreted against the tensor's own element-index
// space: byteOffset/element_size gives the starting element, and
// byteCount/element_size/batch_size gives how many elements this call
// writes) into batch_size interleaved strides, matching element i at
// batch lane j to source byte offset element_size*(i + j*numToWrite).
// Grounded on HETensor::write in original_source/src/he_tensor.cpp.
func (t *HeTensor) Write(sourceBytes []byte, byteOffset, byteCount int) error {
	elemSize := t.dtype.ElementSize()
	if byteOffset%elemSize != 0 || byteCount%elemSize != 0 {
		return &ShapeMismatch{Reason: "byte_offset/byte_count must be multiples of the element size"}
	}
	totalElems := byteCount / elemSize
	if totalElems%t.batchSize != 0 {
		return &ShapeMismatch{Reason: "byte_count/element_size must be a multiple of batch_size"}
	}
	if len(sourceBytes) < byteCount {
		return &ShapeMismatch{Reason: "sourceBytes shorter than byte_count"}
	}

	numToWrite := totalElems / t.batchSize
	startElem := (byteOffset / elemSize) / t.batchSize
	if startElem+numToWrite > len(t.values) {
		return &IoOutOfRange{Index: startElem + numToWrite, Bound: len(t.values)}
	}

	for i := 0; i < numToWrite; i++ {
		lanes := make([]float64, t.batchSize)
		for j := 0; j < t.batchSize; j++ {
			off := elemSize * (i + j*numToWrite)
			lanes[j] = decodeElement(t.dtype, sourceBytes[off:off+elemSize])
		}

		slot := t.values[startElem+i]
		if slot.IsPlain() {
			slot.SetPlain(hevalue.Plaintext{Values: lanes, ComplexPacking: t.scheme.ComplexPacking()})
		} else {
			c, err := encryptSlot(t.scheme, lanes, t.batchSize)
			if err != nil {
				return err
			}
			slot.SetCipher(c)
		}
		t.values[startElem+i] = slot
	}
	return nil
}

// Read is Write's inverse: for ciphertext slots it decrypts and decodes
// through the scheme, for plaintext slots it reads the stored values
// directly, then scatters the batch lanes back into destBytes using the
// same interleaved stride formula. Grounded on HETensor::read.
func (t *HeTensor) Read(destBytes []byte, byteOffset, byteCount int) error {
	elemSize := t.dtype.ElementSize()
	if byteOffset%elemSize != 0 || byteCount%elemSize != 0 {
		return &ShapeMismatch{Reason: "byte_offset/byte_count must be multiples of the element size"}
	}
	totalElems := byteCount / elemSize
	if totalElems%t.batchSize != 0 {
		return &ShapeMismatch{Reason: "byte_count/element_size must be a multiple of batch_size"}
	}
	if len(destBytes) < byteCount {
		return &ShapeMismatch{Reason: "destBytes shorter than byte_count"}
	}

	numToRead := totalElems / t.batchSize
	startElem := (byteOffset / elemSize) / t.batchSize
	if startElem+numToRead > len(t.values) {
		return &IoOutOfRange{Index: startElem + numToRead, Bound: len(t.values)}
	}

	for i := 0; i < numToRead; i++ {
		slot := t.values[startElem+i]

		var lanes []float64
		if slot.IsCipher() {
			c := slot.MustCipher()
			pt, err := t.scheme.Decrypt(c.Inner)
			if err != nil {
				return fmt.Errorf("hetensor: decrypting slot %d: %w", startElem+i, err)
			}
			lanes, err = t.scheme.Decode(pt)
			if err != nil {
				return fmt.Errorf("hetensor: decoding slot %d: %w", startElem+i, err)
			}
		} else {
			lanes = slot.MustPlain().Values
		}

		for j := 0; j < t.batchSize; j++ {
			off := elemSize * (i + j*numToRead)
			var v float64
			if j < len(lanes) {
				v = lanes[j]
			}
			encodeElement(t.dtype, v, destBytes[off:off+elemSize])
		}
	}
	return nil
}

// SetElements bulk-replaces every slot. len(values) must equal
// ElementCount().
func (t *HeTensor) SetElements(values []hevalue.HeValue) error {
	if len(values) != len(t.values) {
		return &ShapeMismatch{Reason: fmt.Sprintf("SetElements got %d values, tensor has %d slots", len(values), len(t.values))}
	}
	copy(t.values, values)
	return nil
}

// GetElement returns slot i.
func (t *HeTensor) GetElement(i int) (hevalue.HeValue, error) {
	if i < 0 || i >= len(t.values) {
		return hevalue.HeValue{}, &IoOutOfRange{Index: i, Bound: len(t.values)}
	}
	return t.values[i], nil
}

// GetElements returns every slot, outermost-first. Callers must not
// mutate the returned slice's HeValues in place if they intend to keep
// using this tensor — it aliases the tensor's own backing storage.
func (t *HeTensor) GetElements() []hevalue.HeValue {
	return t.values
}

// Pack transforms a non-packed tensor into a packed one: axis 0
// collapses into the SIMD batch dimension, so B = shape[0] elements
// that each held a single-lane slot become one element holding all B
// lanes. Grounded on HETensor::pack_shape's shape transform in
// original_source/src/he_tensor.cpp; since the original only changes
// tensor metadata, and this implementation carries concrete HeValue
// slots that must actually be merged, lane gathering follows the same
// decrypt-then-recombine path Read already uses for ciphertext slots
// (§9 resolves this ambiguity: decode, don't just reshape, the data
// along with the shape).
func (t *HeTensor) Pack() error {
	if t.packed {
		return nil
	}
	if len(t.shape) == 0 {
		return &UnsupportedAxis{Axis: 0}
	}
	batch := t.shape[0]
	if batch == 0 {
		return nil
	}
	if len(t.values)%batch != 0 {
		return &ShapeMismatch{Reason: "axis 0 extent does not evenly divide the element count"}
	}

	newCount := len(t.values) / batch
	newValues := make([]hevalue.HeValue, newCount)
	anyCipher := false
	for i := 0; i < newCount; i++ {
		lanes := make([]float64, batch)
		cipherLane := false
		for j := 0; j < batch; j++ {
			slot := t.values[i+j*newCount]
			if slot.IsCipher() {
				cipherLane = true
				c := slot.MustCipher()
				pt, err := t.scheme.Decrypt(c.Inner)
				if err != nil {
					return fmt.Errorf("hetensor: pack: decrypting slot %d: %w", i+j*newCount, err)
				}
				vals, err := t.scheme.Decode(pt)
				if err != nil {
					return fmt.Errorf("hetensor: pack: decoding slot %d: %w", i+j*newCount, err)
				}
				if len(vals) > 0 {
					lanes[j] = vals[0]
				}
			} else {
				vals := slot.MustPlain().Values
				if len(vals) > 0 {
					lanes[j] = vals[0]
				}
			}
		}

		if cipherLane {
			anyCipher = true
			c, err := encryptSlot(t.scheme, lanes, batch)
			if err != nil {
				return err
			}
			newValues[i] = hevalue.FromCipher(c)
		} else {
			newValues[i] = hevalue.FromPlain(hevalue.Plaintext{Values: lanes, ComplexPacking: t.scheme.ComplexPacking()})
		}
	}

	t.shape = packedShape(t.shape)
	t.packed = true
	t.batchSize = batch
	t.encrypted = anyCipher
	t.values = newValues
	return nil
}

// Unpack is Pack's inverse: it expands a packed tensor's batch_size
// lanes back into batch_size separate single-lane elements. Grounded
// on HETensor::unpack_shape.
func (t *HeTensor) Unpack() error {
	if !t.packed {
		return nil
	}
	batch := t.batchSize
	newCount := len(t.values) * batch
	newValues := make([]hevalue.HeValue, newCount)
	anyCipher := false

	for i, slot := range t.values {
		var lanes []float64
		cipherSlot := slot.IsCipher()
		if cipherSlot {
			c := slot.MustCipher()
			pt, err := t.scheme.Decrypt(c.Inner)
			if err != nil {
				return fmt.Errorf("hetensor: unpack: decrypting slot %d: %w", i, err)
			}
			vals, err := t.scheme.Decode(pt)
			if err != nil {
				return fmt.Errorf("hetensor: unpack: decoding slot %d: %w", i, err)
			}
			lanes = vals
		} else {
			lanes = slot.MustPlain().Values
		}

		for j := 0; j < batch; j++ {
			var v float64
			if j < len(lanes) {
				v = lanes[j]
			}
			if cipherSlot {
				anyCipher = true
				c, err := encryptSlot(t.scheme, []float64{v}, 1)
				if err != nil {
					return err
				}
				newValues[i+j*len(t.values)] = hevalue.FromCipher(c)
			} else {
				newValues[i+j*len(t.values)] = hevalue.FromPlain(hevalue.Plaintext{Values: []float64{v}, ComplexPacking: t.scheme.ComplexPacking()})
			}
		}
	}

	t.shape = unpackedShape(t.shape, batch)
	t.packed = false
	t.batchSize = 1
	t.encrypted = anyCipher
	t.values = newValues
	return nil
}
