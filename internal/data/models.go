// Package data holds the wire models shared by the tenders and contracting
// clients and the bridge pipeline.
package data

// Response is the envelope every API call returns the payload in.
type Response[T any] struct {
	Data T `json:"data"`
}

// Value is the monetary value of a contract or award.
type Value struct {
	Amount                float64 `json:"amount"`
	Currency              string  `json:"currency"`
	ValueAddedTaxIncluded bool    `json:"valueAddedTaxIncluded"`
}

// Organization identifies a supplier or procuring entity.
type Organization struct {
	Name       string `json:"name,omitempty"`
	Identifier struct {
		Scheme string `json:"scheme,omitempty"`
		ID     string `json:"id,omitempty"`
	} `json:"identifier,omitempty"`
}

// Item is a line item of a tender, copied verbatim into contract payloads.
type Item struct {
	ID          string  `json:"id,omitempty"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity,omitempty"`
	Unit        struct {
		Name string `json:"name,omitempty"`
		Code string `json:"code,omitempty"`
	} `json:"unit,omitempty"`
}

// Award is a sub-record of a tender identifying a winning bid. It backfills a
// contract's missing value/suppliers when the contract references it.
type Award struct {
	ID        string         `json:"id"`
	Status    string         `json:"status,omitempty"`
	Value     *Value         `json:"value,omitempty"`
	Suppliers []Organization `json:"suppliers,omitempty"`
}

// Contract is the unit being mirrored into the contracting system.
type Contract struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	AwardID   string         `json:"awardID,omitempty"`
	Value     *Value         `json:"value,omitempty"`
	Suppliers []Organization `json:"suppliers,omitempty"`
	Items     []Item         `json:"items,omitempty"`
}

// Tender is an immutable snapshot of a source-system procurement record.
type Tender struct {
	ID              string        `json:"id"`
	Status          string        `json:"status"`
	DateModified    string        `json:"dateModified,omitempty"`
	ProcuringEntity *Organization `json:"procuringEntity,omitempty"`
	Owner           string        `json:"owner,omitempty"`
	Contracts       []Contract    `json:"contracts,omitempty"`
	Awards          []Award       `json:"awards,omitempty"`
	Items           []Item        `json:"items,omitempty"`
}

// Credentials carry the per-tender ownership proof the contracting system
// requires on contract creation.
type Credentials struct {
	ProcuringEntity *Organization `json:"procuringEntity,omitempty"`
	Owner           string        `json:"owner,omitempty"`
	TenderToken     string        `json:"tender_token"`
}

// ContractData is the payload submitted to the contracting system. Optional
// fields stay nil when the source carries no data for them; the contract can
// still be created without value or suppliers.
type ContractData struct {
	ID          string         `json:"id"`
	TenderID    string         `json:"tender_id"`
	Status      string         `json:"status"`
	AwardID     string         `json:"awardID,omitempty"`
	Value       *Value         `json:"value,omitempty"`
	Suppliers   []Organization `json:"suppliers,omitempty"`
	Items       []Item         `json:"items,omitempty"`
	Owner       string         `json:"owner,omitempty"`
	TenderToken string         `json:"tender_token,omitempty"`
}

// TenderRef is one entry of the paginated tender-change feed.
type TenderRef struct {
	ID           string `json:"id"`
	DateModified string `json:"dateModified"`
}

// FeedPage is one page of the tender-change feed together with the cursor of
// the next page.
type FeedPage struct {
	Data     []TenderRef `json:"data"`
	NextPage struct {
		Offset string `json:"offset"`
	} `json:"next_page"`
}
