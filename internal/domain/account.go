package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is an organization's ledger position. Buyers spend Balance; sellers
// accumulate Earnings; OwnedCredits is what either side can sell or retire.
type Account struct {
	AccountID      uuid.UUID `gorm:"column:account_id;type:uuid;primaryKey" json:"account_id"`
	Organization   string    `gorm:"column:organization;uniqueIndex;not null" json:"organization"`
	Role           string    `gorm:"column:role;type:varchar(20);not null" json:"role"`
	Balance        int64     `gorm:"column:balance;not null;default:0" json:"balance"`
	OwnedCredits   int64     `gorm:"column:owned_credits;not null;default:0" json:"owned_credits"`
	Earnings       int64     `gorm:"column:earnings;not null;default:0" json:"earnings"`
	EarnedCredits  int64     `gorm:"column:earned_credits;not null;default:0" json:"earned_credits"`
	RetiredCredits int64     `gorm:"column:retired_credits;not null;default:0" json:"retired_credits"`
	CreatedAt      time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Account) TableName() string {
	return "Accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.AccountID == uuid.Nil {
		a.AccountID = uuid.New()
	}
	return nil
}

// Cost returns quantity x unit price, or false when the product overflows.
func Cost(quantity, unitPrice int64) (int64, bool) {
	if quantity < 0 || unitPrice < 0 {
		return 0, false
	}
	if unitPrice != 0 && quantity > math.MaxInt64/unitPrice {
		return 0, false
	}
	return quantity * unitPrice, true
}

// Purchase buys quantity credits from l. Funds are checked before supply.
// On error neither a nor l is modified.
func (a *Account) Purchase(l *CreditListing, quantity int64) (*Transaction, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	cost, ok := Cost(quantity, l.PricePerCredit)
	if !ok || cost > a.Balance {
		return nil, ErrInsufficientFunds
	}
	if quantity > l.AvailableCredits {
		return nil, ErrInsufficientSupply
	}

	a.Balance -= cost
	a.OwnedCredits += quantity
	l.AvailableCredits -= quantity
	if l.AvailableCredits == 0 {
		l.Status = ListingStatusClosed
	}

	listingID := l.ListingID
	return &Transaction{
		Type:      TxPurchase,
		AccountID: a.AccountID,
		ListingID: &listingID,
		Quantity:  quantity,
		UnitPrice: l.PricePerCredit,
		Amount:    cost,
	}, nil
}

// Sell is the instant sale: owned credits are converted to earnings at price.
func (a *Account) Sell(price, quantity int64) (*Transaction, error) {
	if err := a.CheckSell(price, quantity); err != nil {
		return nil, err
	}
	proceeds, _ := Cost(quantity, price)
	a.OwnedCredits -= quantity
	a.Earnings += proceeds
	return &Transaction{
		Type:      TxSell,
		AccountID: a.AccountID,
		Quantity:  quantity,
		UnitPrice: price,
		Amount:    proceeds,
	}, nil
}

// CheckSell validates a sell order against the account without mutating it.
func (a *Account) CheckSell(price, quantity int64) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if price < 1 {
		return ErrInvalidPrice
	}
	if _, ok := Cost(quantity, price); !ok {
		return ErrInvalidPrice
	}
	if quantity > a.OwnedCredits {
		return ErrInsufficientHoldings
	}
	return nil
}

// Retire removes quantity credits from circulation.
func (a *Account) Retire(quantity int64) (*Transaction, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if quantity > a.OwnedCredits {
		return nil, ErrInsufficientHoldings
	}
	a.OwnedCredits -= quantity
	a.RetiredCredits += quantity
	return &Transaction{
		Type:      TxRetire,
		AccountID: a.AccountID,
		Quantity:  quantity,
	}, nil
}

// Award credits verified credits to an NGO account.
func (a *Account) Award(credits int64) error {
	if credits < 0 {
		return ErrInvalidQuantity
	}
	a.OwnedCredits += credits
	a.EarnedCredits += credits
	return nil
}

// ClampQuantity saturates q into [1, max]. A max below 1 yields 1.
func ClampQuantity(q, max int64) int64 {
	if max < 1 {
		return 1
	}
	if q < 1 {
		return 1
	}
	if q > max {
		return max
	}
	return q
}
