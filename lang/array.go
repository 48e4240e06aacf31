package lang

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
)

// Array is an N-dimensional numeric array stored in row-major order: the
// last axis varies fastest. A rank-1 array has a one-element shape.
//
// The product of the shape always equals the number of elements.
type Array struct {
	elem  Type
	shape []int
	data  []float64
}

// NewArray returns an array of element type elem with the given shape and
// data. The data slice is used directly.
func NewArray(elem Type, shape []int, data []float64) (*Array, error) {
	n, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}

	if n != len(data) {
		return nil, ErrShapeMismatch.With(
			slog.String("shape", formatShape(shape)),
			slog.Int("elements", len(data)),
		)
	}

	if !elem.numeric() {
		return nil, ErrTypeMismatch.With(
			slog.String("reason", "arrays hold numeric elements"),
			slog.String("type", elem.String()),
		)
	}

	return &Array{elem: elem, shape: append([]int(nil), shape...), data: data}, nil
}

// MakeArray returns a zero-filled array.
func MakeArray(elem Type, shape ...int) (*Array, error) {
	n, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}

	return NewArray(elem, shape, make([]float64, n))
}

// Vector returns a rank-1 array holding data.
func Vector(elem Type, data ...float64) *Array {
	for i, f := range data {
		data[i] = castElem(elem, f)
	}

	return &Array{elem: elem, shape: []int{len(data)}, data: data}
}

// MaxElements bounds the number of elements an array may hold.
const MaxElements = 1 << 30

func shapeSize(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, ErrShapeMismatch.With(slog.String("reason", "empty shape"))
	}

	n := 1

	for axis, d := range shape {
		if d <= 0 {
			return 0, ErrShapeMismatch.With(
				slog.String("reason", "axis size must be positive"),
				slog.Int("axis", axis),
				slog.Int("size", d),
			)
		}

		if n > MaxElements/d {
			return 0, ErrShapeMismatch.With(
				slog.String("reason", "too many elements"),
				slog.String("shape", formatShape(shape)),
				slog.Int("max", MaxElements),
			)
		}

		n *= d
	}

	return n, nil
}

func formatShape(shape []int) string {
	var b strings.Builder

	b.WriteByte('[')

	for i, d := range shape {
		if i > 0 {
			b.WriteByte(',')
		}

		b.WriteString(strconv.Itoa(d))
	}

	b.WriteByte(']')

	return b.String()
}

func (*Array) Type() Type { return TypeArray }
func (*Array) value()     {}

// Elem returns the element type.
func (a *Array) Elem() Type { return a.elem }

// Shape returns a copy of the axis sizes.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Rank returns the number of axes.
func (a *Array) Rank() int { return len(a.shape) }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.data) }

// Data returns the elements in row-major order. The slice is shared with a.
func (a *Array) Data() []float64 { return a.data }

// Element returns the element at flat position i as a scalar.
func (a *Array) Element(i int) Scalar { return newNumber(a.elem, a.data[i]) }

// Clone returns a deep copy of a.
func (a *Array) Clone() *Array {
	return &Array{
		elem:  a.elem,
		shape: append([]int(nil), a.shape...),
		data:  append([]float64(nil), a.data...),
	}
}

func (a *Array) String() string {
	var b strings.Builder

	a.format(&b, 0, 0)

	return b.String()
}

func (a *Array) format(b *strings.Builder, axis, off int) {
	stride := Strides(a.shape)[axis]

	b.WriteByte('[')

	for i := range a.shape[axis] {
		if i > 0 {
			b.WriteString(", ")
		}

		if axis == len(a.shape)-1 {
			b.WriteString(a.Element(off + i).String())
		} else {
			a.format(b, axis+1, off+i*stride)
		}
	}

	b.WriteByte(']')
}

// Strides returns the row-major strides of shape: the last stride is 1 and
// each earlier stride is the product of the later axis sizes.
func Strides(shape []int) []int {
	stride := make([]int, len(shape))
	if len(shape) == 0 {
		return stride
	}

	stride[len(shape)-1] = 1
	for axis := len(shape) - 2; axis >= 0; axis-- {
		stride[axis] = stride[axis+1] * shape[axis+1]
	}

	return stride
}

// Offset returns the flat position of a full-rank index.
func (a *Array) Offset(index ...int) (int, error) {
	if len(index) != len(a.shape) {
		return 0, ErrNotImplemented.With(
			slog.String("reason", "index rank differs from array rank"),
			slog.Int("rank", len(a.shape)),
			slog.Int("indices", len(index)),
		)
	}

	stride := Strides(a.shape)
	off := 0

	for axis, i := range index {
		if i < 0 || i >= a.shape[axis] {
			return 0, indexError(axis, i, a.shape[axis])
		}

		off += i * stride[axis]
	}

	return off, nil
}

func indexError(axis, index, bound int) *Error {
	return ErrIndexOutOfRange.With(
		slog.Int("axis", axis),
		slog.Int("index", index),
		slog.Int("bound", bound),
	)
}

// At returns the element at a full-rank index.
func (a *Array) At(index ...int) (Scalar, error) {
	off, err := a.Offset(index...)
	if err != nil {
		return Scalar{}, err
	}

	return a.Element(off), nil
}

// Set stores v at a full-rank index, converting it to the element type.
// Only the addressed element changes.
func (a *Array) Set(v float64, index ...int) error {
	off, err := a.Offset(index...)
	if err != nil {
		return err
	}

	a.data[off] = castElem(a.elem, v)

	return nil
}

// Reform returns a copy of a with a new shape. The element order is
// unchanged.
func (a *Array) Reform(shape ...int) (*Array, error) {
	n, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}

	if n != len(a.data) {
		return nil, ErrShapeMismatch.With(
			slog.String("from", formatShape(a.shape)),
			slog.String("to", formatShape(shape)),
		)
	}

	return NewArray(a.elem, shape, append([]float64(nil), a.data...))
}

// Transpose permutes the axes of a and reorders the elements to match.
// Without perm the axes are reversed. A rank-1 array becomes a single row
// of shape [1,n].
func (a *Array) Transpose(perm ...int) (*Array, error) {
	if len(a.shape) == 1 && len(perm) == 0 {
		return NewArray(a.elem, []int{1, a.shape[0]},
			append([]float64(nil), a.data...))
	}

	rank := len(a.shape)

	if len(perm) == 0 {
		perm = make([]int, rank)
		for i := range perm {
			perm[i] = rank - 1 - i
		}
	}

	if len(perm) != rank {
		return nil, ErrShapeMismatch.With(
			slog.String("reason", "permutation length differs from rank"),
			slog.Int("rank", rank),
		)
	}

	seen := make([]bool, rank)

	for _, p := range perm {
		if p < 0 || p >= rank || seen[p] {
			return nil, ErrInvalidArgument.With(
				slog.String("reason", "invalid permutation"),
				slog.Any("perm", perm),
			)
		}

		seen[p] = true
	}

	shape := make([]int, rank)
	for i, p := range perm {
		shape[i] = a.shape[p]
	}

	src := Strides(a.shape)
	data := make([]float64, len(a.data))
	index := make([]int, rank)

	for off := range data {
		// index walks the output array in row-major order
		in := 0
		for i, p := range perm {
			in += index[i] * src[p]
		}

		data[off] = a.data[in]

		for axis := rank - 1; axis >= 0; axis-- {
			index[axis]++
			if index[axis] < shape[axis] {
				break
			}

			index[axis] = 0
		}
	}

	return NewArray(a.elem, shape, data)
}

// Subscript selects positions along one axis.
type Subscript struct {
	kind  subKind
	index int
	lo    int
	hi    int
	step  int
	list  []int
}

type subKind uint8

const (
	subIndex subKind = iota
	subRange
	subRangeToEnd
	subAll
	subList
)

// Index selects one position. Negative positions count from the end.
func Index(i int) Subscript { return Subscript{kind: subIndex, index: i} }

// Range selects lo through hi inclusive, stepping by step.
func Range(lo, hi, step int) Subscript {
	return Subscript{kind: subRange, lo: lo, hi: hi, step: step}
}

// RangeToEnd selects lo through the last position.
func RangeToEnd(lo, step int) Subscript {
	return Subscript{kind: subRangeToEnd, lo: lo, step: step}
}

// All selects every position.
func All() Subscript { return Subscript{kind: subAll} }

// List selects the given positions in order.
func List(index ...int) Subscript { return Subscript{kind: subList, list: index} }

// positions resolves s against an axis of size n.
func (s Subscript) positions(axis, n int) ([]int, error) {
	switch s.kind {
	case subIndex:
		i := s.index
		if i < 0 {
			i += n
		}

		if i < 0 || i >= n {
			return nil, indexError(axis, s.index, n)
		}

		return []int{i}, nil

	case subAll:
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}

		return out, nil

	case subList:
		out := make([]int, len(s.list))

		for k, i := range s.list {
			if i < 0 || i >= n {
				return nil, indexError(axis, i, n)
			}

			out[k] = i
		}

		return out, nil
	}

	lo, hi, step := s.lo, s.hi, s.step
	if s.kind == subRangeToEnd {
		hi = n - 1
	}

	if lo < 0 {
		lo += n
	}

	if hi < 0 {
		hi += n
	}

	if step == 0 {
		step = 1
	}

	for _, i := range []int{lo, hi} {
		if i < 0 || i >= n {
			return nil, indexError(axis, i, n)
		}
	}

	if (step > 0 && lo > hi) || (step < 0 && lo < hi) {
		return nil, ErrIndexOutOfRange.With(
			slog.String("reason", "empty range"),
			slog.Int("axis", axis),
			slog.Int("lo", lo),
			slog.Int("hi", hi),
			slog.Int("step", step),
		)
	}

	var out []int
	for i := lo; (step > 0 && i <= hi) || (step < 0 && i >= hi); i += step {
		out = append(out, i)
	}

	return out, nil
}

// selection is the result of resolving subscripts against an array.
type selection struct {
	offsets []int
	shape   []int // nil when a single element is addressed
}

// selectAll resolves subs against a. A single subscript addresses the array
// as if it were flat. Otherwise there must be one subscript per axis.
func (a *Array) selectAll(subs []Subscript) (selection, error) {
	if len(subs) == 0 {
		return selection{}, ErrArity.With(slog.String("reason", "empty subscript"))
	}

	shape := a.shape
	if len(subs) == 1 {
		shape = []int{len(a.data)}
	}

	if len(subs) != len(shape) {
		if len(subs) > len(shape) {
			return selection{}, ErrIndexOutOfRange.With(
				slog.String("reason", "more subscripts than axes"),
				slog.Int("rank", len(shape)),
				slog.Int("subscripts", len(subs)),
			)
		}

		return selection{}, ErrNotImplemented.With(
			slog.String("reason", "partial-rank subscript"),
			slog.Int("rank", len(shape)),
			slog.Int("subscripts", len(subs)),
		)
	}

	stride := Strides(shape)
	pos := make([][]int, len(subs))

	var out []int

	for axis, s := range subs {
		p, err := s.positions(axis, shape[axis])
		if err != nil {
			return selection{}, err
		}

		pos[axis] = p

		if s.kind != subIndex {
			out = append(out, len(p))
		}
	}

	offsets := []int{0}
	for axis, p := range pos {
		next := make([]int, 0, len(offsets)*len(p))
		for _, base := range offsets {
			for _, i := range p {
				next = append(next, base+i*stride[axis])
			}
		}

		offsets = next
	}

	return selection{offsets: offsets, shape: out}, nil
}

// Read returns the elements addressed by subs. Axes addressed by a single
// index are dropped from the result; if every axis is, the result is a
// scalar.
func (a *Array) Read(subs ...Subscript) (Value, error) {
	sel, err := a.selectAll(subs)
	if err != nil {
		return nil, err
	}

	if sel.shape == nil {
		return a.Element(sel.offsets[0]), nil
	}

	data := make([]float64, len(sel.offsets))
	for i, off := range sel.offsets {
		data[i] = a.data[off]
	}

	return NewArray(a.elem, sel.shape, data)
}

// Write stores v into the elements addressed by subs. A scalar is
// broadcast; an array must supply exactly one element per position. Nothing
// is written unless every position and value is valid.
func (a *Array) Write(v Value, subs ...Subscript) error {
	sel, err := a.selectAll(subs)
	if err != nil {
		return err
	}

	switch x := v.(type) {
	case Scalar:
		if !x.typ.numeric() {
			return ErrTypeMismatch.With(
				slog.String("reason", "cannot store into a numeric array"),
				slog.String("type", x.typ.String()),
			)
		}

		f := castElem(a.elem, x.Float())
		for _, off := range sel.offsets {
			a.data[off] = f
		}

		return nil

	case *Array:
		if x.Len() != len(sel.offsets) {
			return ErrArity.With(
				slog.String("reason", "element count differs from subscript count"),
				slog.Int("positions", len(sel.offsets)),
				slog.Int("elements", x.Len()),
			)
		}

		src := x.data
		if x == a {
			src = append([]float64(nil), x.data...)
		}

		for i, off := range sel.offsets {
			a.data[off] = castElem(a.elem, src[i])
		}

		return nil
	}

	return ErrTypeMismatch.With(
		slog.String("reason", "cannot store into a numeric array"),
		slog.String("type", typeOf(v).String()),
	)
}

// Concat joins scalars and arrays end to end into a rank-1 array. It
// reports false when any element is not real numeric.
func Concat(vals []Value) (*Array, bool) {
	elem := TypeBool

	var data []float64

	for _, v := range vals {
		switch x := v.(type) {
		case Scalar:
			if !x.typ.numeric() {
				return nil, false
			}

			elem = max(elem, x.typ)
			data = append(data, x.Float())

		case *Array:
			elem = max(elem, x.elem)
			data = append(data, x.data...)

		default:
			return nil, false
		}
	}

	if len(data) == 0 {
		return nil, false
	}

	return Vector(elem, data...), true
}

// Stack builds an array whose first axis enumerates rows, which must all
// share one shape.
func Stack(rows []*Array) (*Array, error) {
	if len(rows) == 0 {
		return nil, ErrShapeMismatch.With(slog.String("reason", "no rows"))
	}

	inner := rows[0].shape
	elem := TypeBool

	data := make([]float64, 0, len(rows)*rows[0].Len())

	for r, row := range rows {
		if !slices.Equal(row.shape, inner) {
			return nil, ErrShapeMismatch.With(
				slog.String("reason", "ragged rows"),
				slog.Int("row", r),
				slog.String("shape", formatShape(row.shape)),
				slog.String("want", formatShape(inner)),
			)
		}

		elem = max(elem, row.elem)
		data = append(data, row.data...)
	}

	return NewArray(elem, append([]int{len(rows)}, inner...), data)
}
