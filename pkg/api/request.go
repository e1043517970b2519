package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
)

const maxBodyBytes = 64 << 20

// errMalformed marks requests whose JSON could not be read.
var errMalformed = errors.New("malformed request")

// op handles one JSON request object. A nil result means an empty response.
type op func(ctx context.Context, raw json.RawMessage) (any, error)

// serve reads the request JSON from the body, or from the URL-encoded query
// string of a GET. An array is handled element by element; the first
// failure stops the batch and earlier elements stay applied.
func (h *Handler) serve(fn op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := readRequest(w, r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if !isArray(raw) {
			res, err := fn(r.Context(), raw)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			writeResult(w, res)
			return
		}

		var elems []json.RawMessage
		if err := decodeJSON(raw, &elems); err != nil {
			h.writeError(w, r, err)
			return
		}
		var results []any
		for _, el := range elems {
			res, err := fn(r.Context(), el)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			if res != nil {
				results = append(results, res)
			}
		}
		if len(results) == 0 {
			writeResult(w, nil)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func writeResult(w http.ResponseWriter, res any) {
	if res == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func readRequest(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	var raw []byte
	if r.Method == http.MethodGet {
		q, err := url.QueryUnescape(r.URL.RawQuery)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "decode query string"), errMalformed)
		}
		raw = []byte(q)
	} else {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "read body"), errMalformed)
		}
		raw = body
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.Mark(errors.New("empty request"), errMalformed)
	}
	return raw, nil
}

func isArray(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '['
}

// decodeJSON decodes raw into v keeping numbers as json.Number.
func decodeJSON(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.Mark(errors.Wrap(err, "invalid json"), errMalformed)
	}
	return nil
}

var encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// decodeBase64 accepts standard or URL-safe base64, padded or not.
func decodeBase64(s string) ([]byte, error) {
	for _, enc := range encodings {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, sketcherr.Validationf("sketch data is not valid base64")
}

func statusOf(err error) int {
	if errors.Is(err, errMalformed) {
		return http.StatusBadRequest
	}
	switch sketcherr.Kind(err) {
	case sketcherr.ErrNotFound:
		return http.StatusNotFound
	case sketcherr.ErrConfig, sketcherr.ErrValidation, sketcherr.ErrFamilyMismatch, sketcherr.ErrUnsupported:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		h.log.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, JSON{"error": err.Error()})
}
