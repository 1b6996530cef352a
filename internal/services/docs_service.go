package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"showroom/internal/domain"
	"showroom/internal/domain/models"
	"showroom/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// DocsService menghasilkan PDF kwitansi pembayaran dan slip konfirmasi test drive.
type DocsService struct {
	Cars CarLookup
	Now  func() time.Time
}

func (s DocsService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// PaymentReceipt is only issued for successful payments.
func (s DocsService) PaymentReceipt(ctx context.Context, p models.Payment) ([]byte, string, error) {
	if p.Status != models.PaymentSuccess {
		return nil, "", domain.TransitionError{Resource: "payment", From: string(p.Status), Action: "receipt"}
	}
	utils.LogEvent(utils.RequestIDFrom(ctx), "docs", "payment_receipt", "ref="+p.ReferenceCode)
	return buildReceiptPDF(p, s.now())
}

// TestDriveSlip is only issued for confirmed bookings.
func (s DocsService) TestDriveSlip(ctx context.Context, td models.TestDrive) ([]byte, string, error) {
	if td.Status != models.TestDriveConfirmed {
		return nil, "", domain.TransitionError{Resource: "test_drive", From: string(td.Status), Action: "slip"}
	}
	carTitle := td.CarID
	if s.Cars != nil {
		if car, err := s.Cars.GetByID(ctx, td.CarID); err == nil && car.Title != "" {
			carTitle = car.Title
			if car.Year > 0 {
				carTitle = fmt.Sprintf("%s (%d)", car.Title, car.Year)
			}
		}
	}
	utils.LogEvent(utils.RequestIDFrom(ctx), "docs", "test_drive_slip", "id="+td.ID)
	return buildSlipPDF(td, carTitle, s.now())
}

func buildReceiptPDF(p models.Payment, printedAt time.Time) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Kwitansi Pembayaran", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "KWITANSI PEMBAYARAN")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "No Referensi : "+p.ReferenceCode)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Dicetak      : "+printedAt.Format("2006-01-02 15:04"))
	pdf.Ln(10)

	method := safe(p.Method, "-")
	if p.MethodType == models.MethodBankTransfer {
		method = "Transfer " + method
	}
	lines := []string{
		fmt.Sprintf("Transaksi    : %s", safe(p.TransactionID, "-")),
		fmt.Sprintf("Jenis        : %s", paymentTypeLabel(p.PaymentType)),
		fmt.Sprintf("Metode       : %s", method),
		fmt.Sprintf("Tanggal      : %s", utils.FormatDateTime(p.PaymentDate)),
	}
	if p.AccountHolder != "" {
		lines = append(lines, fmt.Sprintf("Atas Nama    : %s", p.AccountHolder))
	}
	if p.VerifiedAt != nil {
		lines = append(lines, fmt.Sprintf("Diverifikasi : %s", utils.FormatDateTime(*p.VerifiedAt)))
	}
	for _, l := range lines {
		pdf.Cell(0, 7, l)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Total: "+utils.FormatAmount(p.Amount, p.Currency))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Kwitansi ini sah tanpa tanda tangan dan diterbitkan otomatis oleh sistem.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("KWITANSI_%s.pdf", utils.SafeFilenamePart(p.ReferenceCode))
	return buf.Bytes(), filename, nil
}

func buildSlipPDF(td models.TestDrive, carTitle string, printedAt time.Time) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Slip Test Drive", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "KONFIRMASI TEST DRIVE")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Kode Booking : %s", bookingCode(td.ID)),
		fmt.Sprintf("Nama         : %s", safe(td.CustomerName, "-")),
		fmt.Sprintf("No HP        : %s", safe(td.CustomerPhone, "-")),
		fmt.Sprintf("Email        : %s", safe(td.CustomerEmail, "-")),
		fmt.Sprintf("Mobil        : %s", safe(carTitle, "-")),
		fmt.Sprintf("Jadwal       : %s %s", td.ScheduledDate, td.ScheduledTime),
		fmt.Sprintf("Durasi       : %d menit", td.DurationMinutes),
		fmt.Sprintf("Lokasi       : %s", safe(td.Location, models.DefaultTestDriveLocation)),
	}
	if td.ConfirmedAt != nil {
		lines = append(lines, fmt.Sprintf("Dikonfirmasi : %s", utils.FormatDateTime(*td.ConfirmedAt)))
	}
	for _, l := range lines {
		pdf.Cell(0, 7, l)
		pdf.Ln(7)
	}
	if strings.TrimSpace(td.AdminNotes) != "" {
		pdf.Ln(3)
		pdf.MultiCell(0, 6, "Catatan showroom: "+td.AdminNotes, "", "", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Harap datang 15 menit sebelum jadwal dan membawa SIM A yang masih berlaku. Dicetak "+printedAt.Format("2006-01-02 15:04")+".", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("TESTDRIVE_%s_%s.pdf", td.ScheduledDate, utils.SafeFilenamePart(td.CustomerName))
	return buf.Bytes(), filename, nil
}

func paymentTypeLabel(t models.PaymentType) string {
	switch t {
	case models.PaymentBookingFee:
		return "Booking Fee"
	case models.PaymentDownPayment:
		return "Uang Muka"
	case models.PaymentInstallment:
		return "Cicilan"
	case models.PaymentFull:
		return "Pelunasan"
	default:
		return string(t)
	}
}

func bookingCode(id string) string {
	id = strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(id) > 8 {
		id = id[:8]
	}
	return "TD-" + id
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}
