package cluster

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dreamware/taskfan/internal/codec"
	"github.com/dreamware/taskfan/internal/task"
)

// MaxBodyBytes caps the size of an RPC request body.
const MaxBodyBytes = 64 << 20

type operation func(ctx context.Context, t *task.Task) (*task.Task, error)

// ExecuteHandler serves Worker.Execute over HTTP.
func ExecuteHandler(w Worker, logger *zap.Logger) http.Handler {
	return rpcHandler(methodExecute, w.Execute, logger, MaxBodyBytes)
}

// SubmitHandler serves Coordinator.Submit over HTTP.
func SubmitHandler(c Coordinator, logger *zap.Logger) http.Handler {
	return rpcHandler(methodSubmit, c.Submit, logger, MaxBodyBytes)
}

// BindWorker mounts Execute for serviceName on mux, the HTTP analogue of binding
// a name in a naming registry. Calls for any other name get a 404.
func BindWorker(mux *http.ServeMux, serviceName string, w Worker, logger *zap.Logger) {
	mux.Handle(ExecutePath(serviceName), ExecuteHandler(w, logger))
}

// BindCoordinator mounts Submit for serviceName on mux.
func BindCoordinator(mux *http.ServeMux, serviceName string, c Coordinator, logger *zap.Logger) {
	mux.Handle(SubmitPath(serviceName), SubmitHandler(c, logger))
}

func rpcHandler(method string, op operation, logger *zap.Logger, maxBody int64) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := codec.ForContentType(r.Header.Get("Content-Type"))
		if r.Method != http.MethodPost {
			writeError(w, c, http.StatusMethodNotAllowed, KindInternal, "method not allowed")
			return
		}

		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		ctx := WithRequestID(r.Context(), reqID)
		log := logger.With(zap.String("method", method), zap.String("request_id", reqID))

		var in task.Payload
		if err := c.Decode(http.MaxBytesReader(w, r.Body, maxBody), &in); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				log.Warn("request body too large", zap.Int64("limit", tooLarge.Limit))
				writeError(w, c, http.StatusRequestEntityTooLarge, KindInvalidArgument,
					fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
				return
			}
			log.Warn("bad request body", zap.Error(err))
			writeError(w, c, http.StatusBadRequest, KindInvalidArgument, fmt.Sprintf("bad %s body: %v", c.Name(), err))
			return
		}
		t, err := task.FromPayload(in)
		if err != nil {
			log.Warn("rejected payload", zap.Error(err))
			writeError(w, c, http.StatusBadRequest, KindInvalidArgument, err.Error())
			return
		}

		out, err := op(ctx, t)
		if err != nil {
			kind := KindOf(err)
			log.Error("rpc failed", zap.String("task", t.Name()), zap.String("kind", kind), zap.Error(err))
			writeError(w, c, StatusFor(kind), kind, err.Error())
			return
		}

		w.Header().Set("Content-Type", c.ContentType())
		w.WriteHeader(http.StatusOK)
		if err := c.Encode(w, out.Payload()); err != nil {
			log.Error("error writing response", zap.Error(err))
		}
	})
}

func writeError(w http.ResponseWriter, c codec.Codec, status int, kind, msg string) {
	w.Header().Set("Content-Type", c.ContentType())
	w.WriteHeader(status)
	_ = c.Encode(w, ErrorResponse{Kind: kind, Error: msg})
}
