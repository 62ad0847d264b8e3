package platform

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/payment"
)

const apiPaymentsPath = "/payments"

type paymentLine struct {
	InvoiceCode    string  `json:"invoice_code"`
	SupplierEmail  string  `json:"supplier_email"`
	SupplierID     string  `json:"supplier_id,omitempty"`
	SupplierName   string  `json:"supplier_name,omitempty"`
	ServiceType    string  `json:"service_type"`
	UnitsType      string  `json:"units_type"`
	UnitsAmount    float64 `json:"units_amount"`
	PricePerUnit   float64 `json:"price_per_unit"`
	Currency       string  `json:"currency"`
	Project        string  `json:"project,omitempty"`
	SourceLanguage string  `json:"source_language,omitempty"`
	TargetLanguage string  `json:"target_language,omitempty"`
	Description    string  `json:"description,omitempty"`
}

type createPaymentsRequest struct {
	Payments []paymentLine `json:"payments"`
}

type createPaymentsResponse struct {
	Created int `json:"created"`
}

// CreatePayments creates one payment per payload in a single call.
func (c *Client) CreatePayments(ctx context.Context, payloads []payment.Payload) (int, error) {
	if len(payloads) == 0 {
		return 0, errors.New("no payments to create")
	}

	req := createPaymentsRequest{Payments: make([]paymentLine, 0, len(payloads))}
	for _, p := range payloads {
		req.Payments = append(req.Payments, paymentLine{
			InvoiceCode:    p.InvoiceCode,
			SupplierEmail:  p.SupplierEmail,
			SupplierID:     p.SupplierID,
			SupplierName:   p.SupplierName,
			ServiceType:    p.ServiceType,
			UnitsType:      p.UnitsType,
			UnitsAmount:    p.UnitsAmount.InexactFloat64(),
			PricePerUnit:   p.PricePerUnit.InexactFloat64(),
			Currency:       p.Currency,
			Project:        p.Project,
			SourceLanguage: p.SourceLanguage,
			TargetLanguage: p.TargetLanguage,
			Description:    p.Description,
		})
	}

	var resp createPaymentsResponse
	if err := c.postJSON(ctx, fmt.Sprintf("%s%s", c.APIURL, apiPaymentsPath), req, &resp); err != nil {
		return 0, fmt.Errorf("creating payments: %w", err)
	}

	c.logger.Info("payments created on platform", zap.Int("requested", len(payloads)), zap.Int("created", resp.Created))

	return resp.Created, nil
}
