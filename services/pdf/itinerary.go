package pdf

import (
	"bytes"
	"fmt"

	"flai/models"

	"github.com/go-pdf/fpdf"
)

// Renderer produces one itinerary document per traveler.
type Renderer interface {
	RenderItinerary(offer models.FlightOffer, travelerName string) ([]byte, error)
}

// FPDFRenderer builds a single-page A4 itinerary.
type FPDFRenderer struct{}

func NewFPDFRenderer() *FPDFRenderer {
	return &FPDFRenderer{}
}

func (r *FPDFRenderer) RenderItinerary(offer models.FlightOffer, travelerName string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	doc.SetFont("Arial", "B", 16)
	doc.CellFormat(190, 10, "Your Flight Itinerary", "", 1, "C", false, 0, "")
	doc.Ln(6)

	doc.SetFont("Arial", "", 12)
	if travelerName != "" {
		doc.CellFormat(190, 8, fmt.Sprintf("Traveler: %s", travelerName), "", 1, "L", false, 0, "")
	}
	if offer.AirlineName != "" {
		doc.CellFormat(190, 8, fmt.Sprintf("Airline: %s", offer.AirlineName), "", 1, "L", false, 0, "")
	}
	doc.CellFormat(190, 8, fmt.Sprintf("Total Price: %s %s", offer.Price.Total, offer.Price.Currency), "", 1, "L", false, 0, "")
	doc.Ln(4)

	for i, itinerary := range offer.Itineraries {
		doc.SetFont("Arial", "B", 12)
		doc.CellFormat(190, 8, fmt.Sprintf("Trip %d", i+1), "", 1, "L", false, 0, "")
		doc.SetFont("Arial", "", 12)

		for j, segment := range itinerary.Segments {
			doc.CellFormat(190, 7, fmt.Sprintf("  Segment %d: %s %s", j+1, segment.CarrierCode, segment.Number), "", 1, "L", false, 0, "")
			doc.CellFormat(190, 7, fmt.Sprintf("    From: %s at %s", segment.Departure.IATACode, segment.Departure.At), "", 1, "L", false, 0, "")
			doc.CellFormat(190, 7, fmt.Sprintf("    To: %s at %s", segment.Arrival.IATACode, segment.Arrival.At), "", 1, "L", false, 0, "")
		}
		doc.Ln(3)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render itinerary pdf: %w", err)
	}
	return buf.Bytes(), nil
}
