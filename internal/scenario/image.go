package scenario

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"

	"mlpredict/internal/capability"
	"mlpredict/internal/manifest"
)

// ImageExtensions lists the file extensions image handlers accept.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif"}

func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ImageFiles returns path itself when it is a file, or the supported images
// directly inside it, sorted by name.
func ImageFiles(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, ErrInput(fmt.Errorf("open input: %w", err))
	}
	if !fi.IsDir() {
		if !isImageFile(path) {
			return nil, ErrInputf("%s is not a supported image (%s)", path, strings.Join(ImageExtensions, " "))
		}
		return []string{path}, nil
	}
	ents, err := os.ReadDir(path)
	if err != nil {
		return nil, ErrInput(fmt.Errorf("read input directory: %w", err))
	}
	var out []string
	for _, e := range ents {
		if e.Type().IsRegular() && isImageFile(e.Name()) {
			out = append(out, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// loadedImage is one readable image; skipped ones have ok false.
type loadedImage struct {
	path string
	data []byte
	img  image.Image
	ok   bool
}

// loadImages reads every image in parallel. Unreadable or corrupt files are
// logged and dropped. decode controls whether pixels are decoded or only
// the header is validated.
func loadImages(ctx context.Context, in Input, decode bool) ([]loadedImage, error) {
	files, err := ImageFiles(in.Path)
	if err != nil {
		return nil, err
	}
	loaded, err := mapOrdered(ctx, in.Workers, files, func(_ context.Context, _ int, p string) (loadedImage, error) {
		data, err := os.ReadFile(p)
		if err != nil {
			in.Logger.Warn().Str("image", p).Err(err).Msg("skipping unreadable image")
			return loadedImage{}, nil
		}
		li := loadedImage{path: p, data: data, ok: true}
		if decode {
			li.img, _, err = image.Decode(bytes.NewReader(data))
		} else {
			_, _, err = image.DecodeConfig(bytes.NewReader(data))
		}
		if err != nil {
			in.Logger.Warn().Str("image", p).Err(err).Msg("skipping corrupt image")
			return loadedImage{}, nil
		}
		return li, nil
	})
	if err != nil {
		return nil, err
	}
	out := loaded[:0]
	for _, li := range loaded {
		if li.ok {
			out = append(out, li)
		}
	}
	if len(out) == 0 {
		return nil, ErrInputf("no valid images found in %s", in.Path)
	}
	return out, nil
}

// imageClassificationHandler labels each image. Entry types exposing
// ranked labels report the top label; otherwise Predict is used.
type imageClassificationHandler struct{}

func (imageClassificationHandler) Scenario() manifest.Scenario { return manifest.ImageClassification }

func (imageClassificationHandler) Check(b *capability.Binding) error {
	if b.Has(capability.ImageLabel) {
		return nil
	}
	if b.Has(capability.RankedLabels) && b.Schema.Index(capability.ImageSourceField) >= 0 {
		return nil
	}
	return &capability.IntrospectionError{
		Symbol: b.Symbol,
		Reason: "input has no " + capability.ImageSourceField + " field",
		Want:   []capability.Capability{capability.ImageLabel, capability.RankedLabels},
		Have:   b.Caps,
	}
}

type imageLabel struct {
	label    string
	score    float64
	hasScore bool
}

func (imageClassificationHandler) Run(ctx context.Context, b *capability.Binding, in Input) (*Table, error) {
	imgs, err := loadImages(ctx, in, false)
	if err != nil {
		return nil, err
	}
	ranked := b.Has(capability.RankedLabels)
	preds, err := mapOrdered(ctx, in.Workers, imgs, func(_ context.Context, _ int, li loadedImage) (imageLabel, error) {
		v, err := b.NewImageInput(li.data)
		if err != nil {
			return imageLabel{}, err
		}
		if ranked {
			ls, err := b.Ranked(v)
			if err != nil {
				return imageLabel{}, err
			}
			if len(ls) == 0 {
				return imageLabel{}, nil
			}
			return imageLabel{label: ls[0].Label, score: ls[0].Score, hasScore: true}, nil
		}
		label, score, has, err := b.ImageLabel(v)
		return imageLabel{label: label, score: score, hasScore: has}, err
	})
	if err != nil {
		return nil, err
	}
	withScore := ranked || b.ImageLabelHasScore()
	t := &Table{Header: []string{"ImagePath", "PredictedLabel"}}
	if withScore {
		t.Header = append(t.Header, "Score")
	}
	for i, p := range preds {
		row := []string{imgs[i].path, p.label}
		if withScore {
			if p.hasScore {
				row = append(row, FormatValue(p.score))
			} else {
				row = append(row, "")
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// objectDetectionHandler lists the objects found per image, list fields
// joined with ';'.
type objectDetectionHandler struct{}

func (objectDetectionHandler) Scenario() manifest.Scenario { return manifest.ObjectDetection }

func (objectDetectionHandler) Check(b *capability.Binding) error {
	return requireAny(b, capability.Detection)
}

func (objectDetectionHandler) Run(ctx context.Context, b *capability.Binding, in Input) (*Table, error) {
	imgs, err := loadImages(ctx, in, true)
	if err != nil {
		return nil, err
	}
	dets, err := mapOrdered(ctx, in.Workers, imgs, func(_ context.Context, _ int, li loadedImage) (capability.Detected, error) {
		v, err := b.NewDecodedImageInput(li.img)
		if err != nil {
			return capability.Detected{}, err
		}
		return b.Detect(v)
	})
	if err != nil {
		return nil, err
	}
	t := &Table{Header: []string{"ImagePath", "PredictedLabels", "BoundingBoxes", "Scores"}}
	for i, d := range dets {
		t.Rows = append(t.Rows, []string{
			imgs[i].path,
			strings.Join(d.Labels, ";"),
			FormatFloats(d.Boxes, ";"),
			FormatFloats(d.Scores, ";"),
		})
	}
	return t, nil
}
