/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package wire holds the XML documents exchanged with the external
// disbursement system. The shapes are an external contract; every document
// type is covered by a serialize/deserialize round-trip test.
package wire

import (
	"encoding/xml"

	"github.com/jerry-enebeli/oppgjor/model"
)

// OrderDocument is the outbound payment-order message.
type OrderDocument struct {
	XMLName         xml.Name         `xml:"paymentOrder"`
	OrderID         string           `xml:"orderId"`
	PaymentID       string           `xml:"paymentRef"`
	DecisionID      string           `xml:"decisionId"`
	CaseID          string           `xml:"caseId"`
	PersonID        string           `xml:"personId"`
	Sequence        int              `xml:"sequence"`
	SourceSystem    string           `xml:"sourceSystem"`
	ChangeCode      string           `xml:"changeCode"`
	PreviousOrderID string           `xml:"previousOrderId,omitempty"`
	Units           []OrderUnit      `xml:"units>unit"`
	Lines           []OrderLineEntry `xml:"lines>line"`
}

// OrderUnit is one entry of the effective-dated beneficiary unit history.
type OrderUnit struct {
	Code          string `xml:"code,attr"`
	EffectiveFrom string `xml:"effectiveFrom,attr"`
}

// OrderLineEntry is one currency-amount line with calendar from/to dates.
// Amounts are integer minor-currency units.
type OrderLineEntry struct {
	CorrelationID string `xml:"correlationId,attr"`
	CategoryCode  string `xml:"categoryCode"`
	Amount        int64  `xml:"amount"`
	From          string `xml:"from"`
	To            string `xml:"to"`
}

// MarshalOrder serializes a disbursement order for the send queue. The
// paymentID is embedded so the external system can echo it on the receipt.
func MarshalOrder(order *model.DisbursementOrder, paymentID string) ([]byte, error) {
	doc := OrderDocument{
		OrderID:         order.OrderID,
		PaymentID:       paymentID,
		DecisionID:      order.DecisionID,
		CaseID:          order.CaseID,
		PersonID:        order.PersonID,
		Sequence:        order.Sequence,
		SourceSystem:    order.SourceSystem,
		ChangeCode:      string(order.ChangeCode),
		PreviousOrderID: order.PreviousOrderID,
	}
	for _, u := range order.Units {
		doc.Units = append(doc.Units, OrderUnit{
			Code:          u.UnitCode,
			EffectiveFrom: model.FormatDate(u.EffectiveFrom),
		})
	}
	for _, l := range order.Lines {
		doc.Lines = append(doc.Lines, OrderLineEntry{
			CorrelationID: l.CorrelationID,
			CategoryCode:  l.CategoryCode,
			Amount:        l.Amount,
			From:          model.FormatDate(l.From),
			To:            model.FormatDate(l.To),
		})
	}
	return xml.MarshalIndent(doc, "", "  ")
}

// ParseOrder deserializes a payment-order document.
func ParseOrder(raw []byte) (*OrderDocument, error) {
	var doc OrderDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
