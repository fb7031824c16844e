package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sync"

	"daan-backend/internal/models"
	"daan-backend/internal/repositories"
	"daan-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// DonorReportData holds all data for one donor's statement.
type DonorReportData struct {
	User          *models.User
	Entries       []*models.Entry
	TotalPledged  int64
	TotalReceived int64
	TotalPending  int64
}

// ReportService generates donor statements, receipt PDFs and CSV
// exports. Reads go straight to the repositories; reports always show
// committed data, never cached summaries.
type ReportService struct {
	Users   *repositories.UserRepository
	Entries *repositories.EntryRepository
}

func NewReportService(users *repositories.UserRepository, entries *repositories.EntryRepository) *ReportService {
	return &ReportService{Users: users, Entries: entries}
}

// GetDonorReportData fetches a donor's active entries with totals.
func (s *ReportService) GetDonorReportData(ctx context.Context, userID int) (*DonorReportData, error) {
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}

	entries, err := s.Entries.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	data := &DonorReportData{User: user, Entries: entries}
	for _, e := range entries {
		data.TotalPledged += e.TotalAmount
		data.TotalReceived += e.ReceivedAmount
		data.TotalPending += e.PendingAmount
	}
	return data, nil
}

// GenerateDonorPDF renders one donor's statement.
func (s *ReportService) GenerateDonorPDF(data *DonorReportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Donation Ledger - Donor Statement", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.Now().Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Donor Info Box
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Donor Information", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Name: %s", data.User.Name), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Phone: %s", data.User.Phone), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Village: %s", data.User.Village), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "", "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Entries table
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Pledges", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(60, 7, "Item", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Kind", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Total", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Received", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Pending", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, e := range data.Entries {
		item := e.Item
		if len(item) > 28 {
			item = item[:25] + "..."
		}
		pdf.CellFormat(60, 6, item, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, e.Kind, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("Rs. %d", e.TotalAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("Rs. %d", e.ReceivedAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("Rs. %d", e.PendingAmount), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	// Totals
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(190, 8, "Summary", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, fmt.Sprintf("Total Pledged: Rs. %d", data.TotalPledged), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, fmt.Sprintf("Total Received: Rs. %d", data.TotalReceived), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, fmt.Sprintf("Total Pending: Rs. %d", data.TotalPending), "1", 1, "C", false, 0, "")

	if data.TotalPending > 0 {
		pdf.SetFillColor(255, 200, 200)
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	balanceText := fmt.Sprintf("Balance Due: Rs. %d", data.TotalPending)
	if data.TotalPending <= 0 {
		balanceText = "FULLY PAID"
	}
	pdf.CellFormat(190, 10, balanceText, "1", 1, "C", true, 0, "")

	// Payment history across all entries
	var rows []models.PaymentRecord
	itemFor := make(map[string]string)
	for _, e := range data.Entries {
		for _, p := range e.Payments {
			if p.Deleted {
				continue
			}
			rows = append(rows, p)
			itemFor[p.ReceiptNo] = e.Item
		}
	}
	if len(rows) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 12)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(190, 8, "Payment History", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(45, 7, "Receipt #", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 7, "Date", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 7, "Amount", "1", 0, "C", true, 0, "")
		pdf.CellFormat(30, 7, "Mode", "1", 0, "C", true, 0, "")
		pdf.CellFormat(45, 7, "Item", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, p := range rows {
			item := itemFor[p.ReceiptNo]
			if len(item) > 22 {
				item = item[:19] + "..."
			}
			pdf.CellFormat(45, 6, p.ReceiptNo, "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 6, timeutil.ToIST(p.Date).Format("02-Jan-2006"), "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 6, fmt.Sprintf("Rs. %d", p.Amount), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, p.Mode, "1", 0, "C", false, 0, "")
			pdf.CellFormat(45, 6, item, "1", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateBulkDonorPDFs renders statements for every member, in
// parallel. filter narrows to donors with or without a pending balance.
func (s *ReportService) GenerateBulkDonorPDFs(ctx context.Context, filter string) (map[string][]byte, error) {
	users, err := s.Users.List(ctx, models.RoleMember)
	if err != nil {
		return nil, err
	}

	type pdfResult struct {
		phone string
		name  string
		data  []byte
		err   error
	}

	results := make(chan pdfResult, len(users))
	jobs := make(chan *models.User, len(users))

	// 5 workers keeps PDF generation off a single core without
	// saturating the connection pool.
	var wg sync.WaitGroup
	numWorkers := 5
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				data, err := s.GetDonorReportData(ctx, u.ID)
				if err != nil {
					results <- pdfResult{err: err}
					continue
				}
				switch filter {
				case "outstanding":
					if data.TotalPending <= 0 {
						results <- pdfResult{err: fmt.Errorf("skipped")}
						continue
					}
				case "paid":
					if data.TotalPending > 0 {
						results <- pdfResult{err: fmt.Errorf("skipped")}
						continue
					}
				}
				pdfData, err := s.GenerateDonorPDF(data)
				results <- pdfResult{phone: u.Phone, name: u.Name, data: pdfData, err: err}
			}
		}()
	}

	for _, u := range users {
		jobs <- u
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	pdfs := make(map[string][]byte)
	for r := range results {
		if r.err == nil && r.data != nil {
			pdfs[fmt.Sprintf("%s_%s", r.phone, r.name)] = r.data
		}
	}
	return pdfs, nil
}

// CreateBulkPDFZip packs donor statements into a single ZIP download.
func (s *ReportService) CreateBulkPDFZip(pdfs map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for filename, pdfData := range pdfs {
		fw, err := zw.Create(fmt.Sprintf("donor_%s.pdf", filename))
		if err != nil {
			continue
		}
		fw.Write(pdfData)
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateEntriesCSV exports active entries of one kind for accounting.
func (s *ReportService) GenerateEntriesCSV(ctx context.Context, kind string) ([]byte, error) {
	entries, err := s.Entries.List(ctx, kind)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{
		"#", "Kind", "Name", "Phone", "Item", "Qty",
		"Total", "Received", "Pending", "Status", "Created",
	})

	for i, e := range entries {
		w.Write([]string{
			fmt.Sprintf("%d", i+1),
			e.Kind,
			e.UserName,
			e.UserPhone,
			e.Item,
			fmt.Sprintf("%d", e.Quantity),
			fmt.Sprintf("%d", e.TotalAmount),
			fmt.Sprintf("%d", e.ReceivedAmount),
			fmt.Sprintf("%d", e.PendingAmount),
			e.Status,
			timeutil.ToIST(e.CreatedAt).Format("02-Jan-2006"),
		})
	}

	w.Flush()
	return buf.Bytes(), nil
}
