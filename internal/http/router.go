package http

import (
	"net/http"

	"daan-backend/internal/handlers"
	"daan-backend/internal/middleware"
	"daan-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	entryHandler *handlers.EntryHandler,
	paymentHandler *handlers.PaymentHandler,
	advanceHandler *handlers.AdvanceHandler,
	transactionHandler *handlers.TransactionHandler,
	uploadHandler *handlers.UploadHandler,
	reportHandler *handlers.ReportHandler,
	razorpayHandler *handlers.RazorpayHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	staff := authMiddleware.RequireStaff
	admin := authMiddleware.RequireAdmin

	// Public API routes - Authentication
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	meAPI := r.PathPrefix("/api/me").Subrouter()
	meAPI.Use(authMiddleware.Authenticate)
	meAPI.HandleFunc("", authHandler.Me).Methods("GET")

	// Protected API routes - Users (staff manage members, admin manages staff)
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.Use(authMiddleware.Authenticate)
	usersAPI.HandleFunc("", userHandler.ListUsers).Methods("GET")
	usersAPI.HandleFunc("", staff(http.HandlerFunc(userHandler.CreateUser)).ServeHTTP).Methods("POST")
	usersAPI.HandleFunc("/{id}", userHandler.GetUser).Methods("GET")

	// Protected API routes - Entries
	entriesAPI := r.PathPrefix("/api/entries").Subrouter()
	entriesAPI.Use(authMiddleware.Authenticate)
	entriesAPI.HandleFunc("", entryHandler.ListEntries).Methods("GET")
	entriesAPI.HandleFunc("", staff(http.HandlerFunc(entryHandler.CreateEntry)).ServeHTTP).Methods("POST")
	entriesAPI.HandleFunc("/summary", entryHandler.GetSummary).Methods("GET")
	entriesAPI.HandleFunc("/deleted", admin(http.HandlerFunc(entryHandler.ListDeletedEntries)).ServeHTTP).Methods("GET")
	entriesAPI.HandleFunc("/user/{user_id}", entryHandler.ListEntriesByUser).Methods("GET")
	entriesAPI.HandleFunc("/{id}", entryHandler.GetEntry).Methods("GET")
	entriesAPI.HandleFunc("/{id}", staff(http.HandlerFunc(entryHandler.UpdateEntry)).ServeHTTP).Methods("PUT")
	entriesAPI.HandleFunc("/{id}", admin(http.HandlerFunc(entryHandler.DeleteEntry)).ServeHTTP).Methods("DELETE")
	entriesAPI.HandleFunc("/{id}/restore", admin(http.HandlerFunc(entryHandler.RestoreEntry)).ServeHTTP).Methods("POST")

	// Protected API routes - Payments (nested under their entry)
	entriesAPI.HandleFunc("/{id}/payments", staff(http.HandlerFunc(paymentHandler.RecordPayment)).ServeHTTP).Methods("POST")
	entriesAPI.HandleFunc("/{id}/payments/{receipt_no}",
		authMiddleware.RequireRole(models.RoleAdmin, models.RoleAccountant)(http.HandlerFunc(paymentHandler.EditPayment)).ServeHTTP).Methods("PUT")
	entriesAPI.HandleFunc("/{id}/payments/{receipt_no}", admin(http.HandlerFunc(paymentHandler.DeletePayment)).ServeHTTP).Methods("DELETE")

	// Protected API routes - Advance pool
	advancesAPI := r.PathPrefix("/api/advances").Subrouter()
	advancesAPI.Use(authMiddleware.Authenticate)
	advancesAPI.HandleFunc("", staff(http.HandlerFunc(advanceHandler.CreateDeposit)).ServeHTTP).Methods("POST")
	advancesAPI.HandleFunc("", advanceHandler.ListDeposits).Methods("GET")
	advancesAPI.HandleFunc("/usages", advanceHandler.ListUsages).Methods("GET")
	advancesAPI.HandleFunc("/balance/{user_id}", advanceHandler.GetBalance).Methods("GET")

	// Protected API routes - Audit log
	transactionsAPI := r.PathPrefix("/api/transactions").Subrouter()
	transactionsAPI.Use(authMiddleware.Authenticate)
	transactionsAPI.HandleFunc("", transactionHandler.ListTransactions).Methods("GET")

	// Protected API routes - Proof uploads
	uploadsAPI := r.PathPrefix("/api/uploads").Subrouter()
	uploadsAPI.Use(authMiddleware.Authenticate)
	uploadsAPI.HandleFunc("/proof", staff(http.HandlerFunc(uploadHandler.UploadProof)).ServeHTTP).Methods("POST")

	// Protected API routes - Reports (accounting exports)
	reportsAPI := r.PathPrefix("/api/reports").Subrouter()
	reportsAPI.Use(authMiddleware.Authenticate)
	reportsAPI.HandleFunc("/donors/{user_id}/pdf", reportHandler.DonorStatementPDF).Methods("GET")
	reportsAPI.HandleFunc("/donors/zip",
		authMiddleware.RequireRole(models.RoleAdmin, models.RoleAccountant)(http.HandlerFunc(reportHandler.BulkDonorZIP)).ServeHTTP).Methods("GET")
	reportsAPI.HandleFunc("/entries/csv",
		authMiddleware.RequireRole(models.RoleAdmin, models.RoleAccountant)(http.HandlerFunc(reportHandler.EntriesCSV)).ServeHTTP).Methods("GET")

	// Online payments. The webhook is called by Razorpay servers and
	// authenticates with its own signature, not a JWT.
	r.HandleFunc("/api/razorpay/webhook", razorpayHandler.Webhook).Methods("POST")
	razorpayAPI := r.PathPrefix("/api/razorpay").Subrouter()
	razorpayAPI.Use(authMiddleware.Authenticate)
	razorpayAPI.HandleFunc("/status", razorpayHandler.GetStatus).Methods("GET")
	razorpayAPI.HandleFunc("/orders", razorpayHandler.CreateOrder).Methods("POST")
	razorpayAPI.HandleFunc("/orders", razorpayHandler.ListOrders).Methods("GET")
	razorpayAPI.HandleFunc("/verify", razorpayHandler.VerifyPayment).Methods("POST")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
