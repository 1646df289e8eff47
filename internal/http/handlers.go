package http

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"growahead/internal/core"
	"growahead/internal/log"
	"growahead/internal/services"
	"growahead/internal/storage"
)

// Wire representations. Money travels as a plain decimal string ("12.34")
// so clients never see float artifacts.
type (
	transactionDTO struct {
		ID          int64  `json:"id"`
		Date        string `json:"date"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		RoundUp     string `json:"round_up"`
		Category    string `json:"category"`
		SyncStatus  string `json:"sync_status"`
	}

	categoryAmountDTO struct {
		Category string `json:"category"`
		Spent    string `json:"spent"`
		RoundUps string `json:"round_ups"`
	}

	summaryDTO struct {
		Year       int                 `json:"year"`
		Month      int                 `json:"month"`
		TotalSpent string              `json:"total_spent"`
		RoundUps   string              `json:"round_ups"`
		Count      int                 `json:"count"`
		ByCategory []categoryAmountDTO `json:"by_category"`
	}

	projectionResultDTO struct {
		Profile    string  `json:"profile"`
		AnnualRate float64 `json:"annual_rate"`
		OneYear    string  `json:"one_year"`
		ThreeYears string  `json:"three_years"`
		FiveYears  string  `json:"five_years"`
		TenYears   string  `json:"ten_years"`
	}

	projectionSnapshotDTO struct {
		Balance      string                `json:"balance"`
		Contribution string                `json:"contribution"`
		Results      []projectionResultDTO `json:"results"`
	}
)

func toTransactionDTO(tx storage.StoredTransaction) transactionDTO {
	return transactionDTO{
		ID:          tx.ID,
		Date:        tx.Transaction.Date.Format("2006-01-02"),
		Description: tx.Transaction.Description,
		Amount:      formatAmount(tx.Transaction.Amount),
		RoundUp:     formatAmount(tx.RoundUp),
		Category:    string(tx.Transaction.Category),
		SyncStatus:  tx.SyncStatus,
	}
}

func toSnapshotDTO(snap services.ProjectionSnapshot) projectionSnapshotDTO {
	out := projectionSnapshotDTO{
		Balance:      formatAmount(snap.Balance),
		Contribution: formatAmount(snap.Contribution),
		Results:      make([]projectionResultDTO, 0, len(snap.Results)),
	}
	for _, r := range snap.Results {
		out.Results = append(out.Results, projectionResultDTO{
			Profile:    string(r.Profile),
			AnnualRate: r.AnnualRate,
			OneYear:    formatAmount(r.OneYear),
			ThreeYears: formatAmount(r.ThreeYears),
			FiveYears:  formatAmount(r.FiveYears),
			TenYears:   formatAmount(r.TenYears),
		})
	}
	return out
}

// validationError maps domain validation failures to 422 and everything
// else the caller sent malformed to 400.
func validationError(err error) *APIResponseBuilder {
	switch {
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrInvalidRiskProfile),
		errors.Is(err, core.ErrInvalidProjectionInput):
		return UnprocessableEntityError(err.Error())
	default:
		return BadRequestError(err.Error())
	}
}

// handleTransactions dispatches POST (ingest) and GET (month listing).
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleIngestTransaction(w, r)
	case http.MethodGet:
		s.handleListTransactions(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleIngestTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		slog.WarnContext(ctx, "Failed to parse request body", "error", err)
		BadRequestError("invalid request body").Write(w)
		return
	}

	dateStr := parser.Get("date")
	description := parser.Get("description")
	amountStr := parser.Get("amount")
	categoryStr := parser.Get("category")

	if dateStr == "" || description == "" || amountStr == "" || categoryStr == "" {
		BadRequestError("date, description, amount and category are required").Write(w)
		return
	}

	date, err := parseDate(dateStr)
	if err != nil {
		BadRequestError("invalid date format, expected YYYY-MM-DD").Write(w)
		return
	}

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		UnprocessableEntityError("invalid amount: " + amountStr).Write(w)
		return
	}

	category, err := core.ParseCategory(categoryStr)
	if err != nil {
		UnprocessableEntityError("unrecognized category: " + categoryStr).Write(w)
		return
	}

	tx := core.Transaction{
		Date:        date,
		Description: description,
		Amount:      core.Money{Cents: cents},
		Category:    category,
	}

	result, err := s.ingester.Ingest(ctx, tx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to ingest transaction",
			log.NewFields().
				WithComponent(log.ComponentHTTP).
				WithRequestID(requestIDFrom(ctx)).
				WithOperation("ingest").
				WithError(err).
				ToSlice()...)
		validationError(err).Write(w)
		return
	}

	s.invalidateMonth(date.Year(), date.Month())

	slog.InfoContext(ctx, "Transaction ingested",
		log.NewFields().
			WithComponent(log.ComponentHTTP).
			WithRequestID(requestIDFrom(ctx)).
			WithTransaction(tx.Description, tx.Amount.Cents, result.RoundUp.Cents, string(tx.Category)).
			ToSlice()...)

	NewAPIResponse().
		Status(http.StatusCreated).
		JSON(map[string]any{
			"id":       result.ID,
			"round_up": formatAmount(result.RoundUp),
			"amount":   formatAmount(tx.Amount),
		}).
		Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, month := parseYearMonth(r)

	items, err := s.getTransactions(ctx, year, month)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list transactions", "year", year, "month", month, "error", err)
		validationError(err).Write(w)
		return
	}

	out := make([]transactionDTO, 0, len(items))
	for _, tx := range items {
		out = append(out, toTransactionDTO(tx))
	}

	NewAPIResponse().JSON(map[string]any{
		"year":         year,
		"month":        month,
		"transactions": out,
	}).Write(w)
}

// handleImportCSV ingests a CSV of transactions. The file arrives either as
// multipart field "file" or as the raw request body.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	if errResp := RequireMethod(r, http.MethodPost); errResp != nil {
		errResp.Write(w)
		return
	}
	ctx := r.Context()

	var result services.ImportResult
	var err error

	if file, _, ferr := r.FormFile("file"); ferr == nil {
		defer file.Close()
		result, err = s.ingester.ImportCSV(ctx, file)
	} else {
		parser := NewRequestBodyParser(r)
		if len(parser.body) == 0 {
			BadRequestError("empty import: provide a multipart file field or a CSV body").Write(w)
			return
		}
		result, err = s.ingester.ImportCSV(ctx, bytes.NewReader(parser.body))
	}
	if err != nil {
		slog.ErrorContext(ctx, "CSV import failed",
			log.NewFields().
				WithComponent(log.ComponentHTTP).
				WithRequestID(requestIDFrom(ctx)).
				WithOperation("import_csv").
				WithError(err).
				ToSlice()...)
		InternalServerError("import failed").Write(w)
		return
	}

	// Imports can touch any month; drop all cached reads.
	s.overviewCache.Clear()
	s.listCache.Clear()

	rejected := result.Rejected
	if rejected == nil {
		rejected = []services.RejectedRow{}
	}

	slog.InfoContext(ctx, "CSV import completed",
		"imported", result.Imported,
		"rejected", len(rejected),
		"total_round_ups", result.TotalRoundUps.Cents)

	NewAPIResponse().JSON(map[string]any{
		"imported":        result.Imported,
		"total_round_ups": formatAmount(result.TotalRoundUps),
		"rejected":        rejected,
	}).Write(w)
}

func (s *Server) handleRoundUpSummary(w http.ResponseWriter, r *http.Request) {
	if errResp := RequireMethod(r, http.MethodGet); errResp != nil {
		errResp.Write(w)
		return
	}
	ctx := r.Context()
	year, month := parseYearMonth(r)

	overview, err := s.getOverview(ctx, year, month)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read month overview", "year", year, "month", month, "error", err)
		validationError(err).Write(w)
		return
	}

	out := summaryDTO{
		Year:       overview.Year,
		Month:      overview.Month,
		TotalSpent: formatAmount(overview.TotalSpent),
		RoundUps:   formatAmount(overview.RoundUps),
		Count:      overview.Count,
		ByCategory: make([]categoryAmountDTO, 0, len(overview.ByCategory)),
	}
	for _, c := range overview.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryAmountDTO{
			Category: string(c.Category),
			Spent:    formatAmount(c.Spent),
			RoundUps: formatAmount(c.RoundUps),
		})
	}

	NewAPIResponse().JSON(out).Write(w)
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	if errResp := RequireMethod(r, http.MethodGet); errResp != nil {
		errResp.Write(w)
		return
	}
	ctx := r.Context()

	snap, err := s.projector.Checkpoints(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Projection failed", "error", err)
		validationError(err).Write(w)
		return
	}

	NewAPIResponse().JSON(toSnapshotDTO(snap)).Write(w)
}

func (s *Server) handleCompareProjections(w http.ResponseWriter, r *http.Request) {
	if errResp := RequireMethod(r, http.MethodGet); errResp != nil {
		errResp.Write(w)
		return
	}
	ctx := r.Context()

	snap, err := s.projector.Compare(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Profile comparison failed", "error", err)
		validationError(err).Write(w)
		return
	}

	NewAPIResponse().JSON(toSnapshotDTO(snap)).Write(w)
}

// handleCustomProjection runs a what-if projection from explicit inputs.
// The horizon is given either as horizon_months or as horizon_years, which
// may be fractional and is floored to whole months.
func (s *Server) handleCustomProjection(w http.ResponseWriter, r *http.Request) {
	if errResp := RequireMethod(r, http.MethodPost); errResp != nil {
		errResp.Write(w)
		return
	}
	ctx := r.Context()

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		slog.WarnContext(ctx, "Failed to parse request body", "error", err)
		BadRequestError("invalid request body").Write(w)
		return
	}

	balance, ok := parseMoneyField(parser, "current_balance")
	if !ok {
		BadRequestError("invalid current_balance").Write(w)
		return
	}
	contribution, ok := parseMoneyField(parser, "monthly_contribution")
	if !ok {
		BadRequestError("invalid monthly_contribution").Write(w)
		return
	}
	rate, ok := parser.GetFloat("annual_rate")
	if !ok {
		BadRequestError("annual_rate is required").Write(w)
		return
	}

	months := 0
	if f, ok := parser.GetFloat("horizon_months"); ok {
		months = int(f)
	} else if years, ok := parser.GetFloat("horizon_years"); ok {
		months = core.HorizonMonthsFromYears(years)
	} else {
		BadRequestError("horizon_months or horizon_years is required").Write(w)
		return
	}

	in := core.ProjectionInput{
		CurrentBalance:      balance,
		MonthlyContribution: contribution,
		AnnualRate:          rate,
		HorizonMonths:       months,
	}

	value, err := s.projector.Custom(ctx, in)
	if err != nil {
		slog.WarnContext(ctx, "Custom projection rejected", "error", err)
		validationError(err).Write(w)
		return
	}

	NewAPIResponse().JSON(map[string]any{
		"future_value":   formatAmount(value),
		"horizon_months": months,
		"annual_rate":    rate,
	}).Write(w)
}

// parseMoneyField reads a non-negative money value given either as a decimal
// string ("12.34") or a JSON number. Missing fields default to zero.
func parseMoneyField(parser *RequestBodyParser, key string) (core.Money, bool) {
	v := parser.Get(key)
	if v == "" {
		return core.Money{}, true
	}
	if cents, err := core.ParseDecimalToCents(v); err == nil {
		return core.Money{Cents: cents}, true
	}
	// ParseDecimalToCents rejects zero; accept it explicitly here since a
	// what-if run may start from nothing.
	if f, ok := parser.GetFloat(key); ok && f == 0 {
		return core.Money{}, true
	}
	return core.Money{}, false
}

// handleProfile reads (GET) or updates (PUT) the stored risk profile.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetProfile(w, r)
	case http.MethodPut:
		s.handleSetProfile(w, r)
	default:
		MethodNotAllowedError("GET, PUT").Write(w)
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, err := s.profiles.GetRiskProfile(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read risk profile", "error", err)
		InternalServerError("failed to read profile").Write(w)
		return
	}

	NewAPIResponse().JSON(map[string]any{
		"profile":     string(profile),
		"annual_rate": profile.AnnualRate(),
	}).Write(w)
}

func (s *Server) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	profile, err := core.ParseRiskProfile(parser.Get("profile"))
	if err != nil {
		UnprocessableEntityError("profile must be one of conservative, balanced, aggressive").Write(w)
		return
	}

	if err := s.profiles.SetRiskProfile(ctx, profile); err != nil {
		slog.ErrorContext(ctx, "Failed to update risk profile", "error", err)
		InternalServerError("failed to update profile").Write(w)
		return
	}

	slog.InfoContext(ctx, "Risk profile updated", "profile", string(profile))

	NewAPIResponse().JSON(map[string]any{
		"profile":     string(profile),
		"annual_rate": profile.AnnualRate(),
	}).Write(w)
}
