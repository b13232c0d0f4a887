package cart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecommerce-mvp/shop/internal/domain/money"
	"golang.org/x/text/currency"
)

var (
	ErrNotFound               = errors.New("cart: not found")
	ErrConflict               = errors.New("cart: concurrent modification")
	ErrEmpty                  = errors.New("cart: cart is empty")
	ErrClosed                 = errors.New("cart: order already placed")
	ErrInvalidStateTransition = errors.New("cart: invalid state transition")
	ErrInvalidQuantity        = errors.New("cart: quantity must be between 1 and 1000")
	ErrOwnerRequired          = errors.New("cart: owner is required")
	ErrProductRequired        = errors.New("cart: product is required")
	ErrBranchRequired         = errors.New("cart: branch is required")
)

// MaxLineQuantity caps the quantity of a single line, merges included.
const MaxLineQuantity = 1000

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

type Line struct {
	ProductID string
	Quantity  int
	UnitPrice money.Money
}

// Cart is the per-owner aggregate. While open it is a shopping cart; once placed it
// is a closed order and never changes again.
type Cart struct {
	ID        string
	OwnerID   string
	Lines     []Line
	Total     money.Money
	Currency  currency.Unit
	Status    Status
	Branch    string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
	PlacedAt  time.Time
}

func New(id, ownerID string, cur currency.Unit) (*Cart, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrOwnerRequired
	}

	now := time.Now().UTC()
	return &Cart{
		ID:        id,
		OwnerID:   ownerID,
		Lines:     []Line{},
		Total:     money.Zero(cur),
		Currency:  cur,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Empty is the view returned for an owner without an open cart. It is never persisted.
func Empty(ownerID string, cur currency.Unit) *Cart {
	return &Cart{
		OwnerID:  ownerID,
		Lines:    []Line{},
		Total:    money.Zero(cur),
		Currency: cur,
		Status:   StatusOpen,
	}
}

func (c *Cart) IsOpen() bool {
	return c.Status == StatusOpen
}

// AddLine merges quantity into the line for productID, appending a new line when absent.
// Totals are stale until Reprice is called.
func (c *Cart) AddLine(productID string, quantity int) error {
	if err := c.state().OnMutate(c); err != nil {
		return err
	}
	if strings.TrimSpace(productID) == "" {
		return ErrProductRequired
	}
	if quantity <= 0 || quantity > MaxLineQuantity {
		return ErrInvalidQuantity
	}

	if i := c.indexOf(productID); i >= 0 {
		if c.Lines[i].Quantity > MaxLineQuantity-quantity {
			return ErrInvalidQuantity
		}
		c.Lines[i].Quantity += quantity
	} else {
		c.Lines = append(c.Lines, Line{
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: money.Zero(c.Currency),
		})
	}
	c.touch()
	return nil
}

// RemoveLine drops the whole line for productID. It reports false when there was no such line.
func (c *Cart) RemoveLine(productID string) (bool, error) {
	if err := c.state().OnMutate(c); err != nil {
		return false, err
	}

	i := c.indexOf(productID)
	if i < 0 {
		return false, nil
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	c.touch()
	return true, nil
}

// Reprice sets every line's unit price from prices and recomputes the total as the sum of
// quantity × unit price. Lines missing from prices are priced at zero.
func (c *Cart) Reprice(prices map[string]money.Money) error {
	total := money.Zero(c.Currency)
	for i := range c.Lines {
		price, ok := prices[c.Lines[i].ProductID]
		if !ok {
			price = money.Zero(c.Currency)
		}
		if price.Currency != c.Currency {
			return fmt.Errorf("product %s: %w", c.Lines[i].ProductID, money.ErrCurrencyMismatch)
		}
		c.Lines[i].UnitPrice = price

		next, err := total.Add(price.Mul(c.Lines[i].Quantity))
		if err != nil {
			return err
		}
		total = next
	}
	c.Total = total
	return nil
}

// Place closes the cart as an order shipped to branch. The total is kept as is.
func (c *Cart) Place(branch string) error {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return ErrBranchRequired
	}

	next, err := c.state().OnPlace(c, branch, time.Now().UTC())
	if err != nil {
		return err
	}
	c.Status = next.Status()
	c.touch()
	return nil
}

func (c *Cart) Quantity(productID string) int {
	if i := c.indexOf(productID); i >= 0 {
		return c.Lines[i].Quantity
	}
	return 0
}

func (c *Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Lines = append([]Line(nil), c.Lines...)
	if clone.Lines == nil {
		clone.Lines = []Line{}
	}
	return &clone
}

func (c *Cart) indexOf(productID string) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
