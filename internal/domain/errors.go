package domain

import "errors"

// Ledger errors.
var (
	ErrInvalidQuantity      = errors.New("Quantity must be at least 1 credit")
	ErrInvalidPrice         = errors.New("Price per credit must be at least 1")
	ErrInsufficientFunds    = errors.New("You do not have enough balance for this purchase.")
	ErrInsufficientSupply   = errors.New("Not enough credits available in this listing.")
	ErrInsufficientHoldings = errors.New("You do not have enough credits to complete this action.")
)

// Verification errors.
var (
	ErrMissingJustification     = errors.New("Please provide comments for approval or a reason for rejection.")
	ErrInvalidOutcome           = errors.New("Decision must be approve or reject")
	ErrSubmissionAlreadyDecided = errors.New("This submission has already been reviewed.")
)

// Intake errors, checked in this order on submit.
var (
	ErrMissingName     = errors.New("Please enter a project name.")
	ErrMissingLocation = errors.New("Please capture your project location.")
	ErrMissingPhotos   = errors.New("Please upload at least one photo of your project site.")
	ErrInvalidLocation = errors.New("Location is outside valid coordinate range.")
	ErrPhotoIndex      = errors.New("Photo not found")
)

// Lookup errors.
var (
	ErrAccountNotFound    = errors.New("Account not found")
	ErrListingNotFound    = errors.New("Listing not found")
	ErrSubmissionNotFound = errors.New("Submission not found")
)
