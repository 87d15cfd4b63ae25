package http

import (
	"time"

	"ledger/internal/core"
	"ledger/internal/services"
)

// Amounts go over the wire as strings with two decimals so clients never
// round through floats.

type walletRequest struct {
	Name         *string            `json:"name"`
	Currency     *string            `json:"currency"`
	InitialValue *initialValueField `json:"initial_value"`
}

// input overlays the fields present in the request on base.
func (r walletRequest) input(base core.WalletInput) core.WalletInput {
	if r.Name != nil {
		base.Name = *r.Name
	}
	if r.Currency != nil {
		base.Currency = core.Currency(*r.Currency)
	}
	if r.InitialValue != nil {
		base.InitialValue = r.InitialValue.Decimal
	}
	return base
}

type transactionRequest struct {
	Note       *string        `json:"note"`
	Amount     *amountField   `json:"amount"`
	Currency   *string        `json:"currency"`
	Date       *string        `json:"date"`
	CategoryID nullableString `json:"category_id"`
	TagIDs     *[]string      `json:"tag_ids"`
}

func (r transactionRequest) input(base core.TransactionInput) (core.TransactionInput, error) {
	if r.Note != nil {
		base.Note = *r.Note
	}
	if r.Amount != nil {
		base.Amount = r.Amount.Decimal
	}
	if r.Currency != nil {
		base.Currency = core.Currency(*r.Currency)
	}
	if r.Date != nil {
		d, err := parseDateField(r.Date)
		if err != nil {
			return core.TransactionInput{}, err
		}
		base.Date = d
	}
	if r.CategoryID.Set {
		base.CategoryID = r.CategoryID.ptr()
	}
	if r.TagIDs != nil {
		base.TagIDs = *r.TagIDs
	}
	return base, nil
}

type labelRequest struct {
	Name      *string `json:"name"`
	Icon      *string `json:"icon"`
	Color     *string `json:"color"`
	IsVisible *bool   `json:"is_visible"`
}

func (r labelRequest) input(base core.LabelInput) core.LabelInput {
	if r.Name != nil {
		base.Name = *r.Name
	}
	if r.Icon != nil {
		base.Icon = *r.Icon
	}
	if r.Color != nil {
		base.Color = *r.Color
	}
	if r.IsVisible != nil {
		base.IsVisible = *r.IsVisible
	}
	return base
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type walletResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Currency         string    `json:"currency"`
	InitialValue     string    `json:"initial_value"`
	Balance          string    `json:"balance"`
	TransactionCount int64     `json:"transaction_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type labelRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Color      string `json:"color"`
	IsArchived bool   `json:"is_archived"`
}

type transactionResponse struct {
	ID        string     `json:"id"`
	WalletID  string     `json:"wallet_id"`
	CreatedBy string     `json:"created_by"`
	Note      string     `json:"note"`
	Amount    string     `json:"amount"`
	Currency  string     `json:"currency"`
	Date      time.Time  `json:"date"`
	Category  *labelRef  `json:"category"`
	Tags      []labelRef `json:"tags"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type labelResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Icon             string    `json:"icon"`
	Color            string    `json:"color"`
	IsVisible        bool      `json:"is_visible"`
	IsArchived       bool      `json:"is_archived"`
	Selectable       bool      `json:"selectable"`
	TransactionCount int64     `json:"transaction_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type periodResponse struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

type totalsResponse struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
	Count   int    `json:"count"`
}

type shareResponse struct {
	ID         *string `json:"id"`
	Name       string  `json:"name"`
	Total      string  `json:"total"`
	Count      int     `json:"count"`
	Percentage string  `json:"percentage"`
}

type summaryResponse struct {
	WalletID   string          `json:"wallet_id"`
	Currency   string          `json:"currency"`
	Balance    string          `json:"balance"`
	Period     periodResponse  `json:"period"`
	Totals     totalsResponse  `json:"totals"`
	Categories []shareResponse `json:"categories"`
	Tags       []shareResponse `json:"tags"`
}

func toUser(u core.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func toWallet(w core.WalletWithBalance) walletResponse {
	return walletResponse{
		ID:               w.ID,
		Name:             w.Name,
		Currency:         string(w.Currency),
		InitialValue:     core.FormatAmount(w.InitialValue),
		Balance:          core.FormatAmount(w.Balance),
		TransactionCount: w.TransactionCount,
		CreatedAt:        w.CreatedAt,
		UpdatedAt:        w.UpdatedAt,
	}
}

func toWallets(ws []core.WalletWithBalance) []walletResponse {
	out := make([]walletResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, toWallet(w))
	}
	return out
}

func toLabelRef(l core.Label) labelRef {
	return labelRef{ID: l.ID, Name: l.Name, Icon: l.Icon, Color: l.Color, IsArchived: l.IsArchived()}
}

func toTransaction(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:        t.ID,
		WalletID:  t.WalletID,
		CreatedBy: t.CreatedBy,
		Note:      t.Note,
		Amount:    core.FormatAmount(t.Amount),
		Currency:  string(t.Currency),
		Date:      t.Date.UTC(),
		Tags:      make([]labelRef, 0, len(t.Tags)),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.Category != nil {
		ref := toLabelRef(*t.Category)
		resp.Category = &ref
	}
	for _, tag := range t.Tags {
		resp.Tags = append(resp.Tags, toLabelRef(tag))
	}
	return resp
}

func toTransactions(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransaction(t))
	}
	return out
}

func toLabel(l core.Label) labelResponse {
	return labelResponse{
		ID:               l.ID,
		Name:             l.Name,
		Icon:             l.Icon,
		Color:            l.Color,
		IsVisible:        l.IsVisible,
		IsArchived:       l.IsArchived(),
		Selectable:       l.Selectable(),
		TransactionCount: l.TransactionCount,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}

func toLabels(ls []core.Label) []labelResponse {
	out := make([]labelResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, toLabel(l))
	}
	return out
}

func toShares(shares []core.Share) []shareResponse {
	out := make([]shareResponse, 0, len(shares))
	for _, s := range shares {
		r := shareResponse{
			Name:       s.Name,
			Total:      core.FormatAmount(s.Total),
			Count:      s.Count,
			Percentage: s.Percentage.StringFixed(2),
		}
		if s.Key != "" {
			key := s.Key
			r.ID = &key
		}
		out = append(out, r)
	}
	return out
}

func toSummary(s services.WalletSummary) summaryResponse {
	return summaryResponse{
		WalletID: s.Wallet.ID,
		Currency: string(s.Wallet.Currency),
		Balance:  core.FormatAmount(s.Wallet.Balance),
		Period:   periodResponse{Month: int(s.Period.Month), Year: s.Period.Year},
		Totals: totalsResponse{
			Income:  core.FormatAmount(s.Totals.Income),
			Expense: core.FormatAmount(s.Totals.Expense),
			Net:     core.FormatAmount(s.Totals.Net),
			Count:   s.Totals.Count,
		},
		Categories: toShares(s.Categories),
		Tags:       toShares(s.Tags),
	}
}

// transactionInput rebuilds the writable view of a stored transaction, the
// base a PATCH overlays.
func transactionInput(t core.Transaction) core.TransactionInput {
	return core.TransactionInput{
		Note:       t.Note,
		Amount:     t.Amount,
		Currency:   t.Currency,
		Date:       t.Date,
		CategoryID: t.CategoryID(),
		TagIDs:     t.TagIDs(),
	}
}

func walletInput(w core.Wallet) core.WalletInput {
	return core.WalletInput{Name: w.Name, Currency: w.Currency, InitialValue: w.InitialValue}
}

func labelInput(l core.Label) core.LabelInput {
	return core.LabelInput{Name: l.Name, Icon: l.Icon, Color: l.Color, IsVisible: l.IsVisible}
}
