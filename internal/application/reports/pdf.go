package reports

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

type pdfColor struct{ R, G, B int }

var (
	headingColor = pdfColor{R: 11, G: 110, B: 153}
	mutedColor   = pdfColor{R: 107, G: 114, B: 128}
)

// RenderPDF lays the document out on A4 with the fingerprint in every footer.
func RenderPDF(doc Document, fingerprint string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(doc.Title, false)
	pdf.SetAuthor("BlueTrust", false)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 7)
		pdf.SetTextColor(mutedColor.R, mutedColor.G, mutedColor.B)
		pdf.CellFormat(0, 5, "Fingerprint (BLAKE2b-256): "+fingerprint, "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(mutedColor.R, mutedColor.G, mutedColor.B)
	for _, l := range doc.Subtitle {
		pdf.CellFormat(0, 6, l, "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	for _, s := range doc.Sections {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(headingColor.R, headingColor.G, headingColor.B)
		pdf.CellFormat(0, 8, s.Heading, "B", 1, "L", false, 0, "")
		pdf.Ln(2)
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(0, 0, 0)
		for _, l := range s.Lines {
			pdf.MultiCell(0, 5, l, "", "L", false)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
