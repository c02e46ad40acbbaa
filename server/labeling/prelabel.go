package labeling

import (
	"context"
	"fmt"

	"github.com/cyclopcam/videolabel/pkg/annotate"
	"github.com/cyclopcam/videolabel/pkg/idgen"
)

type PrelabelOptions struct {
	Engine  annotate.Options
	Classes []string // used to fill in class ids when saving
	DryRun  bool     // don't save anything

	// Also run on frames that already have a saved mask. The saved boxes are kept,
	// and the model boxes are added next to them.
	Overwrite bool
}

// PrelabelResult summarizes one Prelabel run
type PrelabelResult struct {
	Key      Key
	HadSaved bool
	Skipped  bool // frame already had a saved mask
	NumSaved int  // boxes kept from the saved mask
	NumModel int  // boxes produced by the model
	Written  bool
}

// Prelabel runs the same steps as a human would, without the human:
// load the saved mask, run the model, merge the model boxes with the saved ones, and save.
func Prelabel(ctx context.Context, backend Backend, ids *idgen.Allocator, key Key, opts PrelabelOptions) (*PrelabelResult, error) {
	if !key.Valid() {
		return nil, ErrNoFrame
	}
	e := annotate.NewEngine(opts.Engine, ids)
	e.SetVocabulary(opts.Classes)
	result := &PrelabelResult{Key: key}

	saved, found, err := backend.LoadMask(ctx, key.Video, key.Frame)
	if err != nil {
		return nil, err
	}
	result.HadSaved = found
	result.NumSaved = len(saved)
	if found && !opts.Overwrite {
		result.Skipped = true
		return result, nil
	}
	if found {
		e.LoadSaved(saved)
	}

	res, err := backend.AnalyseFrame(ctx, key.Video, key.Frame)
	if err != nil {
		return nil, err
	}
	e.ApplyDetections(res.Detections)
	result.NumModel = len(res.Detections)

	if opts.DryRun {
		return result, nil
	}
	if err := backend.SaveMask(ctx, key.Video, key.Frame, e.MaskDetections()); err != nil {
		return nil, fmt.Errorf("save %v: %w", key, err)
	}
	result.Written = true
	return result, nil
}
