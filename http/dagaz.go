package http

import (
	"context"
	"io"
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/hagall-common/messages/dagazpb"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

func (a *API) mountDagaz(mux *http.ServeMux) {
	mux.HandleFunc("POST /dagaz/samples", func(w http.ResponseWriter, r *http.Request) {
		var msg dagazpb.DagazQuadSample
		if err := decodeProto(r, &msg); err != nil {
			writeError(w, err)
			return
		}

		if err := a.Dagaz.HandleQuadSample(r.Context(), &msg); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /dagaz/ground", protoHandler(a.Dagaz.HandleGetGroundPlane))
	mux.HandleFunc("POST /dagaz/region", protoHandler(a.Dagaz.HandleGetRegion))

	mux.HandleFunc("GET /dagaz/debug", func(w http.ResponseWriter, r *http.Request) {
		res, err := a.Dagaz.HandleGetDebugInfo(r.Context(), &dagazpb.DagazGetDebugInfoRequest{})
		if err != nil {
			writeError(w, err)
			return
		}
		writeProto(w, res)
	})
}

// protoHandler adapts a dagaz request handler to an HTTP handler that
// decodes and encodes protojson bodies.
func protoHandler[Req any, PReq interface {
	*Req
	proto.Message
}, Res proto.Message](handle func(context.Context, PReq) (Res, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := PReq(new(Req))
		if err := decodeProto(r, req); err != nil {
			writeError(w, err)
			return
		}

		res, err := handle(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeProto(w, res)
	}
}

func decodeProto(r *http.Request, msg proto.Message) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.New("reading request body failed").
			WithType(ErrTypeBadRequest).
			Wrap(err)
	}

	if err := protojson.Unmarshal(body, msg); err != nil {
		return errors.New("decoding protojson body failed").
			WithType(ErrTypeBadRequest).
			Wrap(err)
	}
	return nil
}

func writeProto(w http.ResponseWriter, msg proto.Message) {
	body, err := protojson.Marshal(msg)
	if err != nil {
		logs.Error(errors.New("encoding protojson response failed").Wrap(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
