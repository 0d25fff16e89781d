// Package portal uploads approved order CSVs to the print supplier's web portal by driving a
// headless browser.
package portal

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors for the supplier portal.
const (
	usernameSelector   = `input[name="username"]`
	passwordSelector   = `input[type="password"]`
	submitSelector     = `button[type="submit"]`
	fileInputSelector  = `input[type="file"]`
	noteSelector       = `textarea`
	uploadHeader       = `h5`
	successToast       = `.Toastify__toast--success`
	errorToast         = `.Toastify__toast--error`
	uploadOrderXPath   = `//button[contains(., 'Upload Order')]`
	uploadOrderCaption = "Upload Order"
)

// PageState describes which portal controls a rendered page offers.
type PageState struct {
	LoginForm         bool
	FileInput         bool
	NoteField         bool
	SubmitButton      bool
	UploadOrderButton bool
}

// InspectPage parses rendered HTML and reports which controls are present.
func InspectPage(html string) (PageState, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PageState{}, err
	}

	state := PageState{
		LoginForm:    doc.Find(usernameSelector).Length() > 0,
		FileInput:    doc.Find(fileInputSelector).Length() > 0,
		NoteField:    doc.Find(noteSelector).Length() > 0,
		SubmitButton: doc.Find(submitSelector).Length() > 0,
	}
	doc.Find("button").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), uploadOrderCaption) {
			state.UploadOrderButton = true
			return false
		}
		return true
	})
	return state, nil
}

// OutcomeStatus classifies the page shown after submitting an upload.
type OutcomeStatus string

// Upload outcomes.
const (
	OutcomeSuccess OutcomeStatus = "SUCCESS"
	OutcomeError   OutcomeStatus = "ERROR"
	OutcomePending OutcomeStatus = "PENDING"
)

// Outcome is the parsed result banner of the portal.
type Outcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message,omitempty"`
}

// ParseOutcome looks for the portal's toast notifications. Error toasts win over success
// toasts when both are present.
func ParseOutcome(html string) (Outcome, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Outcome{}, err
	}
	if sel := doc.Find(errorToast).First(); sel.Length() > 0 {
		return Outcome{Status: OutcomeError, Message: collapse(sel.Text())}, nil
	}
	if sel := doc.Find(successToast).First(); sel.Length() > 0 {
		return Outcome{Status: OutcomeSuccess, Message: collapse(sel.Text())}, nil
	}
	return Outcome{Status: OutcomePending}, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
