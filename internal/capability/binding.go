package capability

import (
	"fmt"
	"image"
	"reflect"
	"sort"

	"mlpredict/internal/materialize"
	"mlpredict/internal/unit"
)

// Binding is an entry type together with the invocations it supports.
type Binding struct {
	Unit   unit.Unit
	Symbol string
	Caps   []Capability
	// Input is the record type the bound methods consume.
	Input  string
	Schema materialize.Schema

	ranked     *call
	predict    *call
	vec        vectorNames
	imageScore bool
}

type call struct {
	method  string
	input   string
	ptrIn   bool
	hasErr  bool
	horizon bool
}

type vectorNames struct{ values, lower, upper string }

// LabelScore is one entry of a ranked label distribution.
type LabelScore struct {
	Label string
	Score float64
}

// Forecast is a horizon of predicted values with their bounds.
type Forecast struct {
	Values []float64
	Lower  []float64
	Upper  []float64
}

// Detected holds the objects found in one image.
type Detected struct {
	Labels []string
	Boxes  []float64
	Scores []float64
}

func (b *Binding) add(c Capability) {
	if !b.Has(c) {
		b.Caps = append(b.Caps, c)
	}
}

func (b *Binding) setInput(t unit.TypeDesc) {
	b.Input = t.Name
	b.Schema = schemaOf(t)
}

// Has reports whether the binding supports c.
func (b *Binding) Has(c Capability) bool {
	for _, x := range b.Caps {
		if x == c {
			return true
		}
	}
	return false
}

// HasAny reports whether the binding supports at least one of cs.
func (b *Binding) HasAny(cs ...Capability) bool {
	for _, c := range cs {
		if b.Has(c) {
			return true
		}
	}
	return false
}

// ImageLabelHasScore reports whether image-label results carry a score.
func (b *Binding) ImageLabelHasScore() bool { return b.imageScore }

// NewInput builds an input value from a record aligned with Schema.
func (b *Binding) NewInput(rec materialize.Record) (reflect.Value, error) {
	v, err := b.Unit.New(b.Input)
	if err != nil {
		return reflect.Value{}, err
	}
	for i, f := range b.Schema {
		if i >= len(rec) || rec[i] == nil {
			continue
		}
		fv := v.FieldByName(f.Name)
		if !fv.IsValid() || !fv.CanSet() {
			continue
		}
		if err := setField(fv, rec[i]); err != nil {
			return reflect.Value{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return v, nil
}

// NewImageInput builds an input value carrying raw image bytes.
func (b *Binding) NewImageInput(data []byte) (reflect.Value, error) {
	rec := materialize.ZeroRecord(b.Schema)
	if i := b.Schema.Index(ImageSourceField); i >= 0 {
		rec[i] = data
	}
	return b.NewInput(rec)
}

// NewDecodedImageInput builds an input value carrying a decoded image.
func (b *Binding) NewDecodedImageInput(img image.Image) (reflect.Value, error) {
	rec := materialize.ZeroRecord(b.Schema)
	if i := b.Schema.Index(ImageField); i >= 0 {
		rec[i] = img
	}
	return b.NewInput(rec)
}

func setField(f reflect.Value, v any) error {
	rv := reflect.ValueOf(v)
	ft := f.Type()
	switch {
	case rv.Type().AssignableTo(ft):
		f.Set(rv)
	case rv.Type().ConvertibleTo(ft):
		cv := rv.Convert(ft)
		switch ft.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if f.OverflowInt(rv.Int()) {
				return fmt.Errorf("%d overflows %s", rv.Int(), ft)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if f.OverflowUint(rv.Uint()) {
				return fmt.Errorf("%d overflows %s", rv.Uint(), ft)
			}
		}
		f.Set(cv)
	default:
		return fmt.Errorf("cannot assign %s to %s", rv.Type(), ft)
	}
	return nil
}

func (b *Binding) invoke(c *call, in reflect.Value, extra ...reflect.Value) (reflect.Value, error) {
	if c == nil {
		return reflect.Value{}, &IntrospectionError{Symbol: b.Symbol, Reason: "invocation not bound"}
	}
	if c.ptrIn {
		in = in.Addr()
	}
	out, err := b.Unit.Call(b.Symbol, c.method, append([]reflect.Value{in}, extra...)...)
	if err != nil {
		return reflect.Value{}, err
	}
	if len(out) == 0 {
		return reflect.Value{}, fmt.Errorf("%s.%s returned nothing", b.Symbol, c.method)
	}
	if c.hasErr && len(out) > 1 && !out[1].IsNil() {
		if e, ok := out[1].Interface().(error); ok {
			return reflect.Value{}, fmt.Errorf("%s.%s: %w", b.Symbol, c.method, e)
		}
	}
	v := out[0]
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%s.%s returned nil", b.Symbol, c.method)
		}
		v = v.Elem()
	}
	return v, nil
}

// Ranked returns every label with its score, highest first; ties are broken by label.
func (b *Binding) Ranked(in reflect.Value) ([]LabelScore, error) {
	v, err := b.invoke(b.ranked, in)
	if err != nil {
		return nil, err
	}
	if v.Kind() != reflect.Map {
		return nil, fmt.Errorf("%s: expected a map, got %s", b.Symbol, v.Kind())
	}
	out := make([]LabelScore, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		s, _ := numeric(iter.Value())
		out = append(out, LabelScore{Label: iter.Key().String(), Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}

// Scalar returns the Score field of a single prediction.
func (b *Binding) Scalar(in reflect.Value) (float64, error) {
	v, err := b.invoke(b.predict, in)
	if err != nil {
		return 0, err
	}
	s, ok := numeric(v.FieldByName("Score"))
	if !ok {
		return 0, fmt.Errorf("%s: output has no numeric Score", b.Symbol)
	}
	return s, nil
}

// Vector runs a forecast for horizon steps. A horizon of zero lets the
// model use its trained default.
func (b *Binding) Vector(in reflect.Value, horizon int) (Forecast, error) {
	var extra []reflect.Value
	if b.predict != nil && b.predict.horizon {
		extra = append(extra, reflect.ValueOf(horizon))
	}
	v, err := b.invoke(b.predict, in, extra...)
	if err != nil {
		return Forecast{}, err
	}
	f := Forecast{
		Values: floats(v.FieldByName(b.vec.values)),
		Lower:  floats(v.FieldByName(b.vec.lower)),
		Upper:  floats(v.FieldByName(b.vec.upper)),
	}
	if f.Values == nil {
		return Forecast{}, fmt.Errorf("%s: forecast values not found in output", b.Symbol)
	}
	return f, nil
}

// ImageLabel returns the predicted label and, when the output has one, its score.
func (b *Binding) ImageLabel(in reflect.Value) (label string, score float64, hasScore bool, err error) {
	v, err := b.invoke(b.predict, in)
	if err != nil {
		return "", 0, false, err
	}
	label = v.FieldByName("PredictedLabel").String()
	if b.imageScore {
		score, hasScore = numeric(v.FieldByName("Score"))
	}
	return label, score, hasScore, nil
}

// Detect returns the objects found in one image.
func (b *Binding) Detect(in reflect.Value) (Detected, error) {
	v, err := b.invoke(b.predict, in)
	if err != nil {
		return Detected{}, err
	}
	d := Detected{
		Boxes:  floats(v.FieldByName("PredictedBoundingBoxes")),
		Scores: floats(v.FieldByName("Score")),
	}
	if lv := v.FieldByName("PredictedLabel"); lv.IsValid() && lv.Kind() == reflect.Slice {
		for i := 0; i < lv.Len(); i++ {
			d.Labels = append(d.Labels, lv.Index(i).String())
		}
	}
	return d, nil
}

func numeric(v reflect.Value) (float64, bool) {
	if !v.IsValid() {
		return 0, false
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return 0, false
		}
		return numeric(v.Elem())
	}
	return 0, false
}

func floats(v reflect.Value) []float64 {
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return nil
	}
	out := make([]float64, v.Len())
	for i := range out {
		out[i], _ = numeric(v.Index(i))
	}
	return out
}
