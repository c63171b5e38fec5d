package capability

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"mlpredict/internal/materialize"
	"mlpredict/internal/unit"
)

// DefaultCacheSize bounds the number of cached bindings.
const DefaultCacheSize = 1024

type bindingKey struct {
	u    unit.Unit
	name string
}

// Introspector caches bindings per (unit, symbol). Safe for concurrent use.
type Introspector struct {
	cache *lru.Cache[bindingKey, *Binding]
}

func NewIntrospector(size int) *Introspector {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, _ := lru.New[bindingKey, *Binding](size)
	return &Introspector{cache: c}
}

// Introspect returns the binding for name in u, from cache when possible.
func (in *Introspector) Introspect(u unit.Unit, name string) (*Binding, error) {
	key := bindingKey{u: u, name: name}
	if b, ok := in.cache.Get(key); ok {
		return b, nil
	}
	b, err := Introspect(u, name)
	if err != nil {
		return nil, err
	}
	in.cache.Add(key, b)
	return b, nil
}

// Len reports the number of cached bindings.
func (in *Introspector) Len() int { return in.cache.Len() }

// Introspect derives the capability set and input schema of type name.
func Introspect(u unit.Unit, name string) (*Binding, error) {
	td, ok := u.Type(name)
	if !ok {
		return nil, ErrSymbolNotFound(name)
	}
	b := &Binding{Unit: u, Symbol: name}

	if m, ok := td.Method("PredictAllLabels"); ok && len(m.Params) == 1 {
		res, ok := resultShape(m)
		in, ptr := stripPtr(m.Params[0])
		if it, okIn := u.Type(in); ok && okIn && it.Struct && isRankedResult(res) {
			b.ranked = &call{method: m.Name, input: in, ptrIn: ptr, hasErr: len(m.Results) == 2}
			b.add(RankedLabels)
			b.setInput(it)
		}
	}

	if m, ok := td.Method("Predict"); ok && predictArity(m) {
		res, ok := resultShape(m)
		in, ptrIn := stripPtr(m.Params[0])
		outName, _ := stripPtr(res)
		it, okIn := u.Type(in)
		ot, okOut := u.Type(outName)
		if ok && okIn && okOut && it.Struct && ot.Struct {
			c := &call{method: m.Name, input: in, ptrIn: ptrIn, hasErr: len(m.Results) == 2, horizon: len(m.Params) == 2}
			if !c.horizon {
				if isNumeric(fieldType(ot, "Score")) {
					b.add(Scalar)
				}
				if materialize.KindOf(fieldType(it, ImageSourceField)) == materialize.KindBytes && fieldType(ot, "PredictedLabel") == "string" {
					b.add(ImageLabel)
					b.imageScore = isNumeric(fieldType(ot, "Score"))
				}
				if fieldType(it, ImageField) == "image.Image" && fieldType(ot, "PredictedLabel") == "[]string" &&
					isNumericSlice(fieldType(ot, "PredictedBoundingBoxes")) && isNumericSlice(fieldType(ot, "Score")) {
					b.add(Detection)
				}
			}
			if v, lo, hi, ok := vectorFields(ot); ok {
				b.add(VectorWithBounds)
				b.vec = vectorNames{values: v, lower: lo, upper: hi}
			}
			if len(b.Caps) > 0 {
				b.predict = c
				if b.ranked == nil {
					b.setInput(it)
				}
			}
		}
	}

	if len(b.Caps) == 0 {
		return nil, &IntrospectionError{Symbol: name, Reason: "no prediction method with a supported shape"}
	}
	return b, nil
}

func predictArity(m unit.Method) bool {
	switch len(m.Params) {
	case 1:
		return true
	case 2:
		return materialize.KindOf(m.Params[1]) == materialize.KindInt
	}
	return false
}
