package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/lifeos/internal/api/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Router groups the handlers served by the API.
type Router struct {
	Expenses   *ExpensesHandler
	Plans      *PlansHandler
	Jobs       *JobsHandler
	Chat       *ChatHandler
	CORSOrigin string
}

// NewRouter builds the HTTP handler with the middleware chain applied.
// A nil Jobs or Chat handler leaves its routes unregistered.
func NewRouter(rt Router, log zerolog.Logger) http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("/api/expenses", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			rt.Expenses.ListExpenses(w, r)
		case http.MethodPost:
			rt.Expenses.SubmitExpense(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	api.HandleFunc("/api/expenses/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rt.Expenses.StreamExpenses(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	api.HandleFunc("/api/plans", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			rt.Plans.ListPlans(w, r)
		case http.MethodPost:
			rt.Plans.SubmitPlan(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	api.HandleFunc("/api/plans/async", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			rt.Plans.EnqueuePlan(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	api.HandleFunc("/api/plans/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rt.Plans.StreamPlans(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	if rt.Jobs != nil {
		api.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				rt.Jobs.ListJobs(w, r)
			} else {
				methodNotAllowed(w)
			}
		})

		api.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w)
				return
			}
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			rt.Jobs.GetJob(w, r, jobID)
		})
	}

	if rt.Chat != nil {
		api.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				rt.Chat.Chat(w, r)
			} else {
				methodNotAllowed(w)
			}
		})
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", middleware.RequireOwner(api))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.Metrics(
					middleware.CORS(rt.CORSOrigin)(mux),
				),
			),
		),
	)
}

func methodNotAllowed(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
