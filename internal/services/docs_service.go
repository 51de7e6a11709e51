package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"campusride/internal/domain"
	"campusride/internal/domain/models"
	"campusride/internal/repositories"
	"campusride/internal/utils"

	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"
)

// DocsService renders the booking e-ticket PDF.
type DocsService struct {
	Store repositories.Store
	Log   *zap.Logger
}

type ticketData struct {
	BookingID      int64
	Status         models.BookingStatus
	PassengerName  string
	PassengerPhone string
	University     string
	DriverName     string
	DriverPhone    string
	Origin         string
	Destination    string
	Departure      string
	Price          float64
	Message        string
}

// GenerateETicket is available to the booking's passenger and the ride's
// driver once the booking is confirmed or completed.
func (s DocsService) GenerateETicket(ctx context.Context, requester models.User, bookingID int64) ([]byte, string, error) {
	booking, err := s.Store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, "", translate(err, "booking")
	}
	ride, err := s.Store.GetRide(ctx, booking.RideID)
	if err != nil {
		return nil, "", translate(err, "ride")
	}
	if requester.ID != booking.PassengerID && requester.ID != ride.DriverID {
		return nil, "", domain.ForbiddenError{Msg: "you are not part of this booking"}
	}
	if booking.Status != models.BookingConfirmed && booking.Status != models.BookingCompleted {
		return nil, "", domain.ForbiddenError{Msg: "ticket is available once the booking is confirmed"}
	}

	passenger, err := s.Store.GetUser(ctx, booking.PassengerID)
	if err != nil {
		return nil, "", translate(err, "passenger")
	}
	driver, err := s.Store.GetUser(ctx, ride.DriverID)
	if err != nil {
		return nil, "", translate(err, "driver")
	}

	moduleLogger(ctx, s.Log, "docs").Info("ticket generated",
		zap.String("action", "generate_eticket"),
		zap.Int64("booking_id", bookingID),
	)
	return buildETicketPDF(ticketData{
		BookingID:      booking.ID,
		Status:         booking.Status,
		PassengerName:  passenger.Name,
		PassengerPhone: passenger.Phone,
		University:     passenger.University,
		DriverName:     driver.Name,
		DriverPhone:    driver.Phone,
		Origin:         ride.Origin,
		Destination:    ride.Destination,
		Departure:      utils.FormatDateTime(ride.DepartureTime),
		Price:          ride.Price,
		Message:        booking.Message,
	})
}

func buildETicketPDF(d ticketData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("CampusRide E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "CAMPUSRIDE E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Passenger    : %s", safe(d.PassengerName, "-")),
		fmt.Sprintf("Phone        : %s", safe(d.PassengerPhone, "-")),
		fmt.Sprintf("University   : %s", safe(d.University, "-")),
		fmt.Sprintf("Route        : %s -> %s", safe(d.Origin, "-"), safe(d.Destination, "-")),
		fmt.Sprintf("Departure    : %s UTC", safe(d.Departure, "-")),
		fmt.Sprintf("Driver       : %s (%s)", safe(d.DriverName, "-"), safe(d.DriverPhone, "-")),
		fmt.Sprintf("Price        : %s", utils.FormatMoney(d.Price)),
		fmt.Sprintf("Status       : %s", d.Status),
		fmt.Sprintf("Booking Code : #%d", d.BookingID),
		fmt.Sprintf("Ticket Code  : CR-%06d", d.BookingID),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}
	if note := strings.TrimSpace(d.Message); note != "" {
		pdf.Ln(2)
		pdf.MultiCell(0, 6, "Note to driver: "+note, "", "", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "This ticket is valid for one seat. Show it to the driver at pickup.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", domain.InternalError{Msg: "could not render ticket", Err: err}
	}

	filename := fmt.Sprintf("ETICKET_%d_%s.pdf", d.BookingID, safeFilenamePart(d.PassengerName))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
