// Package layout computes tensor memory layouts: dense strides per memory
// format, stride validation against a buffer, and gather copies from a strided
// view into a dense buffer.
//
// Strides are expressed in elements, not bytes.
package layout

import (
	"fmt"
	"math"
)

// Format mirrors value.MemoryFormat without importing it.
type Format uint8

const (
	Contiguous Format = iota + 1
	ChannelsLast
	ChannelsLast3d
)

// Numel returns the element count of shape. A rank-0 shape has one element.
func Numel(shape []int64) (int64, error) {
	n := int64(1)
	for i, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("dimension %d is negative (%d)", i, d)
		}
		if d != 0 && n > math.MaxInt64/d {
			return 0, fmt.Errorf("element count overflows at dimension %d", i)
		}
		n *= d
	}
	return n, nil
}

// NBytes returns the byte size of a dense tensor of shape holding elements
// of elemSize bytes. Sizes that overflow int64 or exceed addressable memory
// fail.
func NBytes(shape []int64, elemSize int) (int64, error) {
	n, err := Numel(shape)
	if err != nil {
		return 0, err
	}
	es := int64(elemSize)
	if es > 0 && n > math.MaxInt64/es {
		return 0, fmt.Errorf("byte size of %d elements overflows", n)
	}
	b := n * es
	if uint64(b) > uint64(math.MaxInt) {
		return 0, fmt.Errorf("byte size %d exceeds addressable memory", b)
	}
	return b, nil
}

// DenseStrides returns the strides of a densely packed tensor of the given
// shape in the given memory format.
func DenseStrides(shape []int64, format Format) ([]int64, error) {
	rank := len(shape)
	switch format {
	case Contiguous:
		return order(shape, rowMajor(rank)), nil
	case ChannelsLast:
		if rank != 4 {
			return nil, fmt.Errorf("channels_last needs rank 4, got %d", rank)
		}
		// NCHW logical, NHWC physical
		return order(shape, []int{0, 2, 3, 1}), nil
	case ChannelsLast3d:
		if rank != 5 {
			return nil, fmt.Errorf("channels_last_3d needs rank 5, got %d", rank)
		}
		// NCDHW logical, NDHWC physical
		return order(shape, []int{0, 2, 3, 4, 1}), nil
	}
	return nil, fmt.Errorf("unknown memory format %d", format)
}

func rowMajor(rank int) []int {
	p := make([]int, rank)
	for i := range p {
		p[i] = i
	}
	return p
}

// order computes strides for a physical dimension order, outermost first.
func order(shape []int64, physical []int) []int64 {
	strides := make([]int64, len(shape))
	acc := int64(1)
	for i := len(physical) - 1; i >= 0; i-- {
		dim := physical[i]
		strides[dim] = acc
		if shape[dim] > 1 {
			acc *= shape[dim]
		}
	}
	return strides
}

// Equal reports whether two stride vectors address the same elements for
// shape. Strides of size-1 and size-0 dimensions are irrelevant.
func Equal(shape, a, b []int64) bool {
	if len(a) != len(b) || len(a) != len(shape) {
		return false
	}
	for i := range a {
		if shape[i] > 1 && a[i] != b[i] {
			return false
		}
	}
	return true
}

// Validate checks that every element addressed by strides lies inside a
// buffer of bufElems elements.
func Validate(shape, strides []int64, bufElems int64) error {
	if len(strides) != len(shape) {
		return fmt.Errorf("rank %d with %d strides", len(shape), len(strides))
	}
	n, err := Numel(shape)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	var maxOffset int64
	for i, s := range strides {
		if s < 0 {
			return fmt.Errorf("stride %d is negative (%d)", i, s)
		}
		if shape[i] > 1 {
			span := (shape[i] - 1) * s
			if s != 0 && span/s != shape[i]-1 {
				return fmt.Errorf("stride %d overflows", i)
			}
			maxOffset += span
			if maxOffset < 0 {
				return fmt.Errorf("stride %d overflows", i)
			}
		}
	}
	if maxOffset >= bufElems {
		return fmt.Errorf("strided view reaches element %d of a %d element buffer", maxOffset, bufElems)
	}
	return nil
}

// Gather copies every element of the strided source view into dst laid out
// with dstStrides. Both buffers hold elements of elemSize bytes.
func Gather(dst, src []byte, shape, srcStrides, dstStrides []int64, elemSize int) {
	n, err := Numel(shape)
	if err != nil || n == 0 {
		return
	}
	rank := len(shape)
	idx := make([]int64, rank)
	es := int64(elemSize)
	for {
		var so, do int64
		for d := 0; d < rank; d++ {
			so += idx[d] * srcStrides[d]
			do += idx[d] * dstStrides[d]
		}
		copy(dst[do*es:(do+1)*es], src[so*es:(so+1)*es])

		d := rank - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return
		}
	}
}
