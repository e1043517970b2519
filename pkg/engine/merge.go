package engine

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/registry"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketches"
)

// Source is one merge input: either a registered sketch (Name set) or an
// inline serialized sketch (Family and Data set).
type Source struct {
	Name   string
	Family sketches.Family
	Data   []byte
}

func (s Source) String() string {
	if s.Name != "" {
		return s.Name
	}
	return "inline " + s.Family.String()
}

// MergeRequest describes a merge. With a Target the result is committed to
// that sketch and nothing is returned; without one the result is built at K
// and returned as an image.
type MergeRequest struct {
	Target  string
	K       int
	Sources []Source
}

// Merge folds every source into the target, or into a fresh sketch when no
// target is named. Sources of the wrong family, unknown names and undecodable
// inline data reject the whole request before anything is changed.
func (e *Engine) Merge(ctx context.Context, req MergeRequest) (*Image, error) {
	img, family, err := e.merge(req)
	e.metrics.Op("merge", family.String(), err)
	if err != nil {
		return nil, err
	}
	e.log.Debug("merged sketches", "target", req.Target, "family", family, "sources", len(req.Sources))
	return img, nil
}

func (e *Engine) merge(req MergeRequest) (*Image, sketches.Family, error) {
	if len(req.Sources) == 0 {
		return nil, 0, sketcherr.Validationf("nothing to merge")
	}
	var (
		dest   *registry.Entry
		family sketches.Family
	)
	if req.Target != "" {
		var err error
		if dest, err = e.reg.Lookup(req.Target); err != nil {
			return nil, 0, err
		}
		family = dest.Family()
	} else if req.K == 0 {
		return nil, 0, sketcherr.Configf("merge needs a target sketch or a k")
	}

	srcs, family, err := e.resolve(req.Sources, dest, family)
	if err != nil {
		return nil, family, err
	}
	e.metrics.MergeSources(len(srcs))

	if dest == nil {
		acc, err := family.New(req.K)
		if err != nil {
			return nil, family, err
		}
		if err := fold(acc, srcs); err != nil {
			return nil, family, err
		}
		data, err := acc.MarshalBinary()
		if err != nil {
			return nil, family, err
		}
		return &Image{Family: family, Data: data}, family, nil
	}

	err = dest.Do(func(h *registry.Handle) error {
		acc, err := accumulator(h.Sketch(), dest.ConfigK())
		if err != nil {
			return err
		}
		if err := fold(acc, srcs); err != nil {
			return err
		}
		return h.Replace(acc)
	})
	return nil, family, err
}

// accumulator returns the sketch a merge into cur folds into. The live
// sketch is never folded into directly, so a failing source leaves it
// untouched. Union-capable families continue from a copy of cur; the others
// start fresh at configK and take cur in first.
func accumulator(cur sketches.Sketch, configK int) (sketches.Sketch, error) {
	f := cur.Family()
	if f.IsUnionCapable() {
		data, err := cur.MarshalBinary()
		if err != nil {
			return nil, err
		}
		return sketches.Decode(f, data)
	}
	acc, err := f.New(configK)
	if err != nil {
		return nil, err
	}
	if err := acc.Merge(cur); err != nil {
		return nil, err
	}
	return acc, nil
}

// resolve turns sources into sketches. Registered sources are snapshotted
// under their own lock, one at a time, and each registered sketch
// contributes once; the target counts as already seen. Inline sources are
// never deduplicated.
func (e *Engine) resolve(
	sources []Source, dest *registry.Entry, family sketches.Family,
) ([]sketches.Sketch, sketches.Family, error) {
	seen := make(map[*registry.Entry]bool, len(sources)+1)
	if dest != nil {
		seen[dest] = true
	}
	checkFamily := func(src Source, f sketches.Family) error {
		if family == 0 {
			family = f
			return nil
		}
		if f != family {
			return sketcherr.FamilyMismatchf("merge source %s is a %s sketch, expected %s", src, f, family)
		}
		return nil
	}

	out := make([]sketches.Sketch, 0, len(sources))
	for _, src := range sources {
		if src.Name != "" {
			ent, err := e.reg.Lookup(src.Name)
			if err != nil {
				return nil, family, err
			}
			if err := checkFamily(src, ent.Family()); err != nil {
				return nil, family, err
			}
			if seen[ent] {
				continue
			}
			seen[ent] = true
			sk, err := snapshot(ent)
			if err != nil {
				return nil, family, err
			}
			out = append(out, sk)
			continue
		}
		if !src.Family.Valid() {
			return nil, family, sketcherr.Validationf("inline merge source has no valid family")
		}
		if err := checkFamily(src, src.Family); err != nil {
			return nil, family, err
		}
		sk, err := sketches.Decode(src.Family, src.Data)
		if err != nil {
			return nil, family, errors.Wrapf(err, "merge source %s", src)
		}
		out = append(out, sk)
	}
	return out, family, nil
}

// snapshot copies a registered sketch by serializing it under its lock and
// decoding the image afterwards.
func snapshot(ent *registry.Entry) (sketches.Sketch, error) {
	var data []byte
	err := ent.Do(func(h *registry.Handle) error {
		var err error
		data, err = h.Sketch().MarshalBinary()
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot %q", ent.Name())
	}
	sk, err := sketches.Decode(ent.Family(), data)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot %q", ent.Name())
	}
	return sk, nil
}

func checkAll(acc sketches.Sketch, srcs []sketches.Sketch) error {
	for _, s := range srcs {
		if err := acc.CanMerge(s); err != nil {
			return err
		}
	}
	return nil
}

func fold(acc sketches.Sketch, srcs []sketches.Sketch) error {
	if err := checkAll(acc, srcs); err != nil {
		return err
	}
	for _, s := range srcs {
		if err := acc.Merge(s); err != nil {
			return err
		}
	}
	return nil
}
