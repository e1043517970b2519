package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/engine"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/registry"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketches"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/storage"
)

const encodingBase64 = "base64"

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, JSON{"status": "ok"})
}

type StatusResponse struct {
	Count    int             `json:"count"`
	Sketches []registry.Info `json:"sketches"`
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	reg := h.eng.Registry()
	writeJSON(w, http.StatusOK, StatusResponse{Count: reg.Len(), Sketches: reg.List()})
}

// update takes {"<name>": value | [values], ...}.
func (h *Handler) update(ctx context.Context, raw json.RawMessage) (any, error) {
	var payloads map[string]interface{}
	if err := decodeJSON(raw, &payloads); err != nil {
		return nil, err
	}
	return nil, h.eng.UpdateMany(ctx, payloads)
}

type nameRequest struct {
	Name string `json:"name"`
}

func decodeName(raw json.RawMessage) (string, error) {
	var req nameRequest
	if err := decodeJSON(raw, &req); err != nil {
		return "", err
	}
	if req.Name == "" {
		return "", sketcherr.Validationf("missing sketch name")
	}
	return req.Name, nil
}

type QueryRequest struct {
	Name       string    `json:"name"`
	ErrorType  string    `json:"errorType"`
	Values     []float64 `json:"values"`
	ResultType string    `json:"resultType"`
	Fractions  []float64 `json:"fractions"`
	Summary    bool      `json:"summary"`
}

func (h *Handler) query(ctx context.Context, raw json.RawMessage) (any, error) {
	var req QueryRequest
	if err := decodeJSON(raw, &req); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, sketcherr.Validationf("missing sketch name")
	}
	q := sketches.Query{
		SplitPoints: req.Values,
		ResultType:  sketches.ParseResultType(req.ResultType),
		Fractions:   req.Fractions,
		Summary:     req.Summary,
	}
	if req.ErrorType != "" {
		et, err := sketches.ParseErrorType(req.ErrorType)
		if err != nil {
			return nil, err
		}
		q.ErrorType = et
	}
	return h.eng.Query(ctx, req.Name, q)
}

func (h *Handler) reset(ctx context.Context, raw json.RawMessage) (any, error) {
	name, err := decodeName(raw)
	if err != nil {
		return nil, err
	}
	return nil, h.eng.Reset(ctx, name)
}

type ImageResponse struct {
	Name      string             `json:"name,omitempty"`
	Family    sketches.Family    `json:"family"`
	ValueType sketches.ValueType `json:"type,omitempty"`
	Encoding  string             `json:"encoding"`
	Sketch    string             `json:"sketch"`
	CreatedAt int64              `json:"createdAt,omitempty"`
}

func imageResponse(img *engine.Image) *ImageResponse {
	return &ImageResponse{
		Name:      img.Name,
		Family:    img.Family,
		ValueType: img.ValueType,
		Encoding:  encodingBase64,
		Sketch:    base64.StdEncoding.EncodeToString(img.Data),
	}
}

func (h *Handler) serialize(ctx context.Context, raw json.RawMessage) (any, error) {
	name, err := decodeName(raw)
	if err != nil {
		return nil, err
	}
	img, err := h.eng.Serialize(ctx, name)
	if err != nil {
		return nil, err
	}
	return imageResponse(img), nil
}

type MergeRequest struct {
	Target string            `json:"target"`
	K      int               `json:"k"`
	Source []json.RawMessage `json:"source"`
}

type inlineSource struct {
	Family string `json:"family"`
	Data   string `json:"data"`
}

func (h *Handler) merge(ctx context.Context, raw json.RawMessage) (any, error) {
	var req MergeRequest
	if err := decodeJSON(raw, &req); err != nil {
		return nil, err
	}
	mr := engine.MergeRequest{Target: req.Target, K: req.K}
	for i, el := range req.Source {
		src, err := decodeSource(el)
		if err != nil {
			return nil, errors.Wrapf(err, "merge source %d", i)
		}
		mr.Sources = append(mr.Sources, src)
	}
	img, err := h.eng.Merge(ctx, mr)
	if err != nil || img == nil {
		return nil, err
	}
	return imageResponse(img), nil
}

// decodeSource reads a source that is either a sketch name or an inline
// {family, data} object.
func decodeSource(raw json.RawMessage) (engine.Source, error) {
	var name string
	if len(raw) > 0 && raw[0] == '"' {
		if err := decodeJSON(raw, &name); err != nil {
			return engine.Source{}, err
		}
		if name == "" {
			return engine.Source{}, sketcherr.Validationf("empty source name")
		}
		return engine.Source{Name: name}, nil
	}
	var in inlineSource
	if err := decodeJSON(raw, &in); err != nil {
		return engine.Source{}, err
	}
	var f sketches.Family
	if err := f.UnmarshalText([]byte(in.Family)); err != nil {
		return engine.Source{}, err
	}
	data, err := decodeBase64(in.Data)
	if err != nil {
		return engine.Source{}, err
	}
	return engine.Source{Family: f, Data: data}, nil
}

func (h *Handler) snapshot(ctx context.Context, raw json.RawMessage) (any, error) {
	name, err := decodeName(raw)
	if err != nil {
		return nil, err
	}
	img, err := h.eng.Serialize(ctx, name)
	if err != nil {
		return nil, err
	}
	info, err := h.store.Save(ctx, storage.Snapshot{
		Name:      img.Name,
		Family:    img.Family,
		ValueType: img.ValueType,
		Data:      img.Data,
	})
	if err != nil {
		return nil, err
	}
	h.log.Info("stored snapshot", "sketch", name, "size", info.HumanSize)
	return info, nil
}

func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, JSON{"count": len(list), "snapshots": list})
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Get(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := imageResponse(&engine.Image{
		Name:      snap.Name,
		Family:    snap.Family,
		ValueType: snap.ValueType,
		Data:      snap.Data,
	})
	resp.CreatedAt = snap.CreatedAt
	writeJSON(w, http.StatusOK, resp)
}
