// Package reports builds the corporate ESG disclosure from an account's ledger.
package reports

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"bluetrust-backend/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"
)

// Period is the reporting period printed on the document and in its file name.
const Period = "Q4 2024"

const (
	FormatText = "txt"
	FormatPDF  = "pdf"
)

var (
	ErrUnknownFormat = errors.New("Report format must be txt or pdf")
	whitespace       = regexp.MustCompile(`\s+`)
)

// Section headers, in document order.
var Headers = []string{
	"EXECUTIVE SUMMARY",
	"ENVIRONMENTAL IMPACT",
	"DETAILED PORTFOLIO BREAKDOWN",
	"VERIFICATION & COMPLIANCE",
	"SUSTAINABILITY COMMITMENTS",
}

// Holding is the account's purchases from one listing.
type Holding struct {
	ListingID        uuid.UUID
	ProjectName      string
	Location         string
	Organization     string
	Rating           string
	Credits          int64
	Invested         int64
	VerificationDate *time.Time
	Hectares         float64
	Community        float64
}

// Portfolio is everything the report is assembled from.
type Portfolio struct {
	Organization string
	Account      domain.Account
	Holdings     []Holding
	Purchased    int64
	Invested     int64
}

// Section is one headed block of the document.
type Section struct {
	Heading string
	Lines   []string
}

// Document is the report before it is rendered to text or PDF.
type Document struct {
	Title    string
	Subtitle []string
	Sections []Section
}

// Report is a finished download.
type Report struct {
	FileName    string
	ContentType string
	Body        []byte
	Fingerprint string
}

type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// FileName is <organization>_ESG_Report_Q4_2024.<ext> with whitespace runs as "_".
func FileName(organization, ext string) string {
	base := whitespace.ReplaceAllString(organization+" ESG Report "+Period, "_")
	return base + "." + ext
}

// LoadPortfolio groups the account's purchases by listing.
func (s *Service) LoadPortfolio(ctx context.Context, accountID uuid.UUID) (*Portfolio, error) {
	db := s.DB.WithContext(ctx)
	var acct domain.Account
	if err := db.Where("account_id = ?", accountID).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	var txs []domain.Transaction
	if err := db.Where("account_id = ? AND type = ?", accountID, domain.TxPurchase).
		Order(`"createdAt" ASC`).Find(&txs).Error; err != nil {
		return nil, err
	}

	p := &Portfolio{Organization: acct.Organization, Account: acct}
	byListing := map[uuid.UUID]*Holding{}
	var ids []uuid.UUID
	for _, t := range txs {
		if t.ListingID == nil {
			continue
		}
		h, ok := byListing[*t.ListingID]
		if !ok {
			h = &Holding{ListingID: *t.ListingID}
			byListing[*t.ListingID] = h
			ids = append(ids, *t.ListingID)
		}
		h.Credits += t.Quantity
		h.Invested += t.Amount
		p.Purchased += t.Quantity
		p.Invested += t.Amount
	}

	if len(ids) > 0 {
		var ls []domain.CreditListing
		if err := db.Where("listing_id IN ?", ids).Find(&ls).Error; err != nil {
			return nil, err
		}
		for _, l := range ls {
			h := byListing[l.ListingID]
			h.ProjectName = l.ProjectName
			h.Location = l.Location
			h.Organization = l.Organization
			h.Rating = l.Rating
			h.VerificationDate = l.VerificationDate
			if l.TotalCredits > 0 {
				share := float64(h.Credits) / float64(l.TotalCredits)
				h.Hectares = l.HectaresRestored * share
				h.Community = float64(l.CommunityMembers) * share
			}
		}
	}
	for _, id := range ids {
		p.Holdings = append(p.Holdings, *byListing[id])
	}
	sort.SliceStable(p.Holdings, func(i, j int) bool { return p.Holdings[i].Credits > p.Holdings[j].Credits })
	return p, nil
}

// Build lays the portfolio out under the fixed headers.
func Build(p *Portfolio, generated time.Time) Document {
	var hectares, community float64
	for _, h := range p.Holdings {
		hectares += h.Hectares
		community += h.Community
	}
	avg := int64(0)
	if p.Purchased > 0 {
		avg = p.Invested / p.Purchased
	}

	doc := Document{
		Title: "BlueTrust ESG Report " + Period,
		Subtitle: []string{
			"Organization: " + p.Organization,
			"Reporting period: " + Period,
			"Generated: " + generated.UTC().Format("02 Jan 2006 15:04 MST"),
		},
	}

	doc.Sections = append(doc.Sections, Section{Heading: Headers[0], Lines: []string{
		fmt.Sprintf("%s holds a portfolio of verified blue carbon credits from %d coastal restoration project(s).", p.Organization, len(p.Holdings)),
		"Total credits purchased: " + humanize.Comma(p.Purchased),
		"Credits currently held: " + humanize.Comma(p.Account.OwnedCredits),
		"Credits retired: " + humanize.Comma(p.Account.RetiredCredits),
		"Total investment: INR " + humanize.Comma(p.Invested),
		"Average price per credit: INR " + humanize.Comma(avg),
	}})

	doc.Sections = append(doc.Sections, Section{Heading: Headers[1], Lines: []string{
		"Total CO2 offset (retired): " + humanize.Comma(p.Account.RetiredCredits) + " tons CO2e",
		"CO2 offset potential (held): " + humanize.Comma(p.Account.OwnedCredits) + " tons CO2e",
		"Mangroves supported: " + strconv.FormatFloat(hectares, 'f', 1, 64) + " hectares",
		"Communities impacted: " + strconv.FormatFloat(community, 'f', 0, 64) + " people",
	}})

	var breakdown []string
	if len(p.Holdings) == 0 {
		breakdown = append(breakdown, "No credit purchases recorded in this period.")
	}
	for i, h := range p.Holdings {
		breakdown = append(breakdown,
			fmt.Sprintf("%d. %s", i+1, h.ProjectName),
			"   Location: "+h.Location,
			"   Project developer: "+h.Organization,
			"   Credits: "+humanize.Comma(h.Credits)+"   Investment: INR "+humanize.Comma(h.Invested),
		)
	}
	doc.Sections = append(doc.Sections, Section{Heading: Headers[2], Lines: breakdown})

	compliance := []string{
		"All credits originate from projects reviewed and approved by the National Centre for Sustainable Coastal Management.",
	}
	for _, h := range p.Holdings {
		verified := "pending record"
		if h.VerificationDate != nil {
			verified = h.VerificationDate.UTC().Format("02 Jan 2006")
		}
		compliance = append(compliance, fmt.Sprintf("- %s: rating %s, verified %s", h.ProjectName, h.Rating, verified))
	}
	compliance = append(compliance, "Suitable for CDP, GRI and TCFD disclosures.")
	doc.Sections = append(doc.Sections, Section{Heading: Headers[3], Lines: compliance})

	doc.Sections = append(doc.Sections, Section{Heading: Headers[4], Lines: []string{
		"Continue offsetting residual emissions through verified blue carbon projects.",
		"Retire purchased credits against reported Scope 1 and Scope 2 emissions.",
		"Support coastal communities through restoration-linked livelihoods.",
	}})
	return doc
}

// RenderText writes the plain-text document and closes it with its fingerprint.
func RenderText(doc Document) ([]byte, string) {
	var b bytes.Buffer
	rule := strings.Repeat("=", 60)
	b.WriteString(doc.Title + "\n")
	b.WriteString(rule + "\n")
	for _, l := range doc.Subtitle {
		b.WriteString(l + "\n")
	}
	for _, s := range doc.Sections {
		b.WriteString("\n" + s.Heading + "\n")
		b.WriteString(strings.Repeat("-", len(s.Heading)) + "\n")
		for _, l := range s.Lines {
			b.WriteString(l + "\n")
		}
	}
	fp := Fingerprint(b.Bytes())
	b.WriteString("\n" + rule + "\n")
	b.WriteString("Document fingerprint (BLAKE2b-256): " + fp + "\n")
	return b.Bytes(), fp
}

// Fingerprint is the hex BLAKE2b-256 digest of body.
func Fingerprint(body []byte) string {
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// ESG builds the account's report in the requested format.
func (s *Service) ESG(ctx context.Context, accountID uuid.UUID, format string) (*Report, error) {
	if format == "" {
		format = FormatText
	}
	if format != FormatText && format != FormatPDF {
		return nil, ErrUnknownFormat
	}
	p, err := s.LoadPortfolio(ctx, accountID)
	if err != nil {
		return nil, err
	}
	doc := Build(p, s.now())
	text, fp := RenderText(doc)
	if format == FormatText {
		return &Report{
			FileName:    FileName(p.Organization, FormatText),
			ContentType: "text/plain; charset=utf-8",
			Body:        text,
			Fingerprint: fp,
		}, nil
	}
	body, err := RenderPDF(doc, fp)
	if err != nil {
		return nil, err
	}
	return &Report{
		FileName:    FileName(p.Organization, FormatPDF),
		ContentType: "application/pdf",
		Body:        body,
		Fingerprint: fp,
	}, nil
}
