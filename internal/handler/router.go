package handler

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"placement/internal/logging"
)

type Routes struct {
	Evaluations *EvaluationHandler
	Uploads     *UploadHandler
	Progress    *ProgressHandler
	Frequencies *FrequencyHandler
}

func NewRouter(rt Routes) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/ping", Ping).Methods("GET")

	r.HandleFunc("/evaluations", rt.Evaluations.CreateEvaluation).Methods("POST")
	r.HandleFunc("/evaluations", rt.Evaluations.ListEvaluations).Methods("GET")
	r.HandleFunc("/evaluations/{rollNo}", rt.Evaluations.GetEvaluation).Methods("GET")
	r.HandleFunc("/evaluations/{rollNo}", rt.Evaluations.DeleteEvaluation).Methods("DELETE")

	r.HandleFunc("/upload", rt.Uploads.UploadMarks).Methods("POST")

	r.HandleFunc("/progress", rt.Progress.GetAllProgress).Methods("GET")
	r.HandleFunc("/progress/file", rt.Progress.GetFileProgress).Methods("GET")
	r.HandleFunc("/progress/stream", rt.Progress.StreamProgress).Methods("GET")

	r.HandleFunc("/frequencies", rt.Frequencies.CountFrequencies).Methods("POST")

	return r
}

// WithMiddleware adds panic recovery, access logging and CORS.
func WithMiddleware(h http.Handler, allowedOrigins []string, logger *zap.Logger) http.Handler {
	stdLog := zap.NewStdLog(logging.OrNop(logger))

	h = handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.LoggingHandler(stdLog.Writer(), h)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(stdLog))(h)
}

// Ping handles GET /ping
func Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"message":"pong"}` + "\n"))
}
