package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ffroofing/contractledger/pkg/config"
	"github.com/ffroofing/contractledger/pkg/ledger"
	"github.com/ffroofing/contractledger/pkg/models"
	"github.com/ffroofing/contractledger/pkg/store"
)

const dateLayout = "2006-01-02"

// Server holds the ledger instance.
type Server struct {
	ledger  *ledger.Ledger
	storage store.Storage // Keep a reference to the storage to close it
	log     *logrus.Logger
	cfg     *config.Config
}

func NewServer(s store.Storage, log *logrus.Logger, cfg *config.Config) *Server {
	return &Server{
		ledger:  ledger.NewLedger(s, log),
		storage: s,
		log:     log,
		cfg:     cfg,
	}
}

type contractRequest struct {
	ContractNumber      string          `json:"contract_number"`
	CustomerName        string          `json:"customer_name"`
	ProjectDescription  string          `json:"project_description"`
	ContractDate        string          `json:"contract_date"`
	TotalContractAmount decimal.Decimal `json:"total_contract_amount"`
	DownPayment         decimal.Decimal `json:"down_payment"`
	AmountFinanced      decimal.Decimal `json:"amount_financed"`
	InterestRate        decimal.Decimal `json:"interest_rate"`
	NumberOfPayments    int             `json:"number_of_payments"`
	FirstPaymentDate    string          `json:"first_payment_date"`
	LatePaymentFee      decimal.Decimal `json:"late_payment_fee"`
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func (s *Server) createContractHandler(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.ContractNumber == "" {
		http.Error(w, "contract_number is required", http.StatusBadRequest)
		return
	}
	contractDate, err := parseDate(req.ContractDate)
	if err != nil {
		http.Error(w, "Invalid contract_date", http.StatusBadRequest)
		return
	}
	firstPaymentDate, err := parseDate(req.FirstPaymentDate)
	if err != nil {
		http.Error(w, "Invalid first_payment_date", http.StatusBadRequest)
		return
	}

	contract := models.Contract{
		ContractNumber:      req.ContractNumber,
		CustomerName:        req.CustomerName,
		ProjectDescription:  req.ProjectDescription,
		ContractDate:        contractDate,
		TotalContractAmount: req.TotalContractAmount,
		DownPayment:         req.DownPayment,
		AmountFinanced:      req.AmountFinanced,
		InterestRate:        req.InterestRate,
		NumberOfPayments:    req.NumberOfPayments,
		FirstPaymentDate:    firstPaymentDate,
		LatePaymentFee:      req.LatePaymentFee,
	}

	entry, err := s.ledger.CreateContractLedger(contract)
	if err != nil {
		if errors.Is(err, ledger.ErrContractUnbalanced) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.WithError(err).Error("failed to create contract ledger")
		http.Error(w, fmt.Sprintf("Failed to create contract ledger: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

func (s *Server) getScheduleHandler(w http.ResponseWriter, r *http.Request) {
	contractID := mux.Vars(r)["id"]

	entries, err := s.ledger.Schedule(contractID, time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(entries) == 0 {
		http.Error(w, "Schedule not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (s *Server) getScheduleSummaryHandler(w http.ResponseWriter, r *http.Request) {
	contractID := mux.Vars(r)["id"]

	summary, err := s.ledger.ScheduleSummary(contractID, time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (s *Server) recordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	contractID := mux.Vars(r)["id"]

	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Date   string          `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		date = time.Now()
	}

	entry, err := s.ledger.RecordPayment(contractID, req.Amount, date)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNoPendingPayments):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ledger.ErrEntryUnbalanced):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			s.log.WithError(err).Error("failed to record payment")
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

func (s *Server) recordLateFeeHandler(w http.ResponseWriter, r *http.Request) {
	contractID := mux.Vars(r)["id"]

	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Date   string          `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fee := req.Amount
	if fee.LessThanOrEqual(decimal.Zero) {
		fee = s.cfg.DefaultLateFee
	}
	date, err := parseDate(req.Date)
	if err != nil {
		date = time.Now()
	}

	entry, err := s.ledger.RecordLateFee(contractID, fee, date)
	if err != nil {
		s.log.WithError(err).Error("failed to record late fee")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

func (s *Server) accrueInterestHandler(w http.ResponseWriter, r *http.Request) {
	contractID := mux.Vars(r)["id"]

	var req struct {
		AsOf string `json:"as_of"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	asOf, err := parseDate(req.AsOf)
	if err != nil {
		asOf = time.Now()
	}

	entry, err := s.ledger.AccrueInterest(contractID, asOf)
	if err != nil {
		s.log.WithError(err).Error("failed to accrue interest")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entry == nil {
		// Nothing pending in the month: a no-op, not an error.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

func (s *Server) listJournalEntriesHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.ledger.JournalEntries()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.JournalEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (s *Server) listContractJournalEntriesHandler(w http.ResponseWriter, r *http.Request) {
	contractID := mux.Vars(r)["id"]

	entries, err := s.ledger.ContractJournalEntries(contractID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.JournalEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (s *Server) listOverdueHandler(w http.ResponseWriter, r *http.Request) {
	overdue, err := s.ledger.OverduePayments(time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if overdue == nil {
		overdue = []models.PaymentScheduleEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(overdue)
}

func (s *Server) agingReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.ledger.AgingReport(time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/contracts", s.createContractHandler).Methods("POST")
	router.HandleFunc("/contracts/{id}/schedule", s.getScheduleHandler).Methods("GET")
	router.HandleFunc("/contracts/{id}/schedule/summary", s.getScheduleSummaryHandler).Methods("GET")
	router.HandleFunc("/contracts/{id}/payments", s.recordPaymentHandler).Methods("POST")
	router.HandleFunc("/contracts/{id}/late-fees", s.recordLateFeeHandler).Methods("POST")
	router.HandleFunc("/contracts/{id}/accruals", s.accrueInterestHandler).Methods("POST")
	router.HandleFunc("/contracts/{id}/journal-entries", s.listContractJournalEntriesHandler).Methods("GET")
	router.HandleFunc("/journal-entries", s.listJournalEntriesHandler).Methods("GET")
	router.HandleFunc("/payments/overdue", s.listOverdueHandler).Methods("GET")
	router.HandleFunc("/reports/aging", s.agingReportHandler).Methods("GET")
	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	return router
}

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	sqliteStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Fatalf("Failed to initialize SQLite store: %v", err)
	}

	// Writes are mirrored into an in-memory cache so reads keep working
	// through primary store outages.
	storage := store.NewFallbackStore(sqliteStore, store.NewMemoryStore(), logger)
	defer storage.Close()

	server := NewServer(storage, logger, cfg)

	// Scheduled batch jobs: daily overdue sweep, monthly interest accrual.
	c := cron.New()
	if _, err := c.AddFunc(cfg.SweepSchedule, func() {
		server.ledger.OverdueSweep(time.Now())
	}); err != nil {
		logger.Fatalf("Invalid SWEEP_SCHEDULE: %v", err)
	}
	if _, err := c.AddFunc(cfg.AccrualSchedule, func() {
		if err := server.ledger.RunMonthlyAccruals(time.Now()); err != nil {
			logger.WithError(err).Error("monthly accrual batch failed")
		}
	}); err != nil {
		logger.Fatalf("Invalid ACCRUAL_SCHEDULE: %v", err)
	}
	c.Start()
	defer c.Stop()

	addr := fmt.Sprintf(":%s", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
