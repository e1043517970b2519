package engine

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/registry"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketches"
)

// Update applies payload to the sketch called name. payload is a single value
// or a []interface{} of values, as produced by encoding/json. Values are
// applied in order under one lock acquisition; if one fails, the values
// before it stay applied and its error is returned.
func (e *Engine) Update(ctx context.Context, name string, payload interface{}) error {
	ent, err := e.reg.Lookup(name)
	if err != nil {
		return err
	}
	values, ok := payload.([]interface{})
	if !ok {
		values = []interface{}{payload}
	}
	applied := 0
	err = ent.Do(func(h *registry.Handle) error {
		defer func() {
			if applied > 0 {
				h.MarkMutated()
			}
		}()
		sk := h.Sketch()
		for i, v := range values {
			it, keep, err := sketches.DecodeItem(ent.Family(), ent.ValueType(), v)
			if err != nil {
				return errors.Wrapf(err, "update %q value %d", name, i)
			}
			if !keep {
				continue
			}
			if err := sk.Update(it); err != nil {
				return errors.Wrapf(err, "update %q value %d", name, i)
			}
			applied++
		}
		return nil
	})
	e.metrics.UpdateItems(ent.Family().String(), applied)
	e.metrics.Op("update", ent.Family().String(), err)
	if err != nil {
		e.log.Debug("update failed", "sketch", name, "applied", applied, "error", err)
	}
	return err
}

// UpdateMany applies a multi-name update. Names are updated in parallel and
// independently: a failure on one name does not undo the others. The first
// error is returned.
func (e *Engine) UpdateMany(ctx context.Context, payloads map[string]interface{}) error {
	g, gctx := errgroup.WithContext(ctx)
	for name, payload := range payloads {
		g.Go(func() error {
			return e.Update(gctx, name, payload)
		})
	}
	return g.Wait()
}

// Query projects the sketch called name.
func (e *Engine) Query(ctx context.Context, name string, q sketches.Query) (sketches.Result, error) {
	ent, err := e.reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	var res sketches.Result
	err = ent.Do(func(h *registry.Handle) error {
		var err error
		res, err = h.Sketch().Query(q)
		return err
	})
	e.metrics.Op("query", ent.Family().String(), err)
	if err != nil {
		return nil, errors.Wrapf(err, "query %q", name)
	}
	return res, nil
}

// Reset clears the sketch called name. Families without an in-place reset get
// a fresh sketch at the entry's configured k.
func (e *Engine) Reset(ctx context.Context, name string) error {
	ent, err := e.reg.Lookup(name)
	if err != nil {
		return err
	}
	err = ent.Do(func(h *registry.Handle) error {
		if r, ok := h.Sketch().(sketches.Resetter); ok {
			r.Reset()
			h.MarkMutated()
			return nil
		}
		fresh, err := ent.Family().New(ent.ConfigK())
		if err != nil {
			return err
		}
		return h.Replace(fresh)
	})
	e.metrics.Op("reset", ent.Family().String(), err)
	e.log.Debug("reset sketch", "sketch", name, "family", ent.Family(), "error", err)
	return err
}

// Serialize returns the binary image of the sketch called name. Images are
// cached until the sketch next changes.
func (e *Engine) Serialize(ctx context.Context, name string) (*Image, error) {
	ent, err := e.reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	img := &Image{Name: name, Family: ent.Family(), ValueType: ent.ValueType()}
	err = ent.Do(func(h *registry.Handle) error {
		if data, ok := e.cached(name, h.Version()); ok {
			img.Data = data
			return nil
		}
		data, err := h.Sketch().MarshalBinary()
		if err != nil {
			return err
		}
		e.store(name, h.Version(), data)
		img.Data = data
		return nil
	})
	e.metrics.Op("serialize", ent.Family().String(), err)
	if err != nil {
		return nil, errors.Wrapf(err, "serialize %q", name)
	}
	e.log.Debug("serialized sketch", "sketch", name, "size", humanize.Bytes(uint64(len(img.Data))))
	return img, nil
}
