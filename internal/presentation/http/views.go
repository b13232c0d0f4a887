package httppresentation

import (
	"encoding/json"

	"github.com/ecommerce-mvp/shop/internal/domain/branch"
	"github.com/ecommerce-mvp/shop/internal/domain/cart"
	"github.com/ecommerce-mvp/shop/internal/domain/money"
)

type cartLineView struct {
	Product   string      `json:"product"`
	Quantity  int         `json:"quantity"`
	UnitPrice json.Number `json:"unitPrice"`
}

type cartView struct {
	ID       string         `json:"id,omitempty"`
	Owner    string         `json:"owner"`
	Status   cart.Status    `json:"status"`
	Products []cartLineView `json:"products"`
	Total    json.Number    `json:"totalPrice"`
	Currency string         `json:"currency"`
	Branch   string         `json:"novaPoshtaBranch,omitempty"`
	Version  int64          `json:"version"`
}

// Amounts are emitted as bare JSON numbers so clients keep doing arithmetic on them.
func amount(m money.Money) json.Number {
	return json.Number(m.Amount.String())
}

func newCartView(c *cart.Cart) cartView {
	view := cartView{
		ID:       c.ID,
		Owner:    c.OwnerID,
		Status:   c.Status,
		Products: make([]cartLineView, 0, len(c.Lines)),
		Total:    amount(c.Total),
		Currency: c.Currency.String(),
		Branch:   c.Branch,
		Version:  c.Version,
	}
	for _, line := range c.Lines {
		view.Products = append(view.Products, cartLineView{
			Product:   line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: amount(line.UnitPrice),
		})
	}
	return view
}

// branchView keeps the Nova Poshta field names the storefront already reads.
type branchView struct {
	Ref             string `json:"Ref"`
	Number          string `json:"Number,omitempty"`
	Description     string `json:"Description"`
	CityDescription string `json:"CityDescription,omitempty"`
}

func newBranchViews(branches []branch.Branch) []branchView {
	views := make([]branchView, 0, len(branches))
	for _, b := range branches {
		views = append(views, branchView{
			Ref:             b.Ref,
			Number:          b.Number,
			Description:     b.Description,
			CityDescription: b.City,
		})
	}
	return views
}
