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

package wire

import (
	"encoding/xml"

	"github.com/jerry-enebeli/oppgjor/model"
)

// ReceiptDocument is the inbound settlement receipt from the reply queue.
// PaymentRef echoes the payment id embedded in the outbound order.
type ReceiptDocument struct {
	XMLName    xml.Name      `xml:"settlementReceipt"`
	OrderID    string        `xml:"orderId"`
	PaymentRef string        `xml:"paymentRef"`
	Severity   string        `xml:"severity"`
	Error      *ReceiptError `xml:"error,omitempty"`
	ReceivedAt string        `xml:"receivedAt,omitempty"`
}

// ReceiptError carries the external system's error verbatim. It is never
// translated; operators inspect it as delivered.
type ReceiptError struct {
	Code    string `xml:"code"`
	Message string `xml:"message"`
}

// ParseReceipt deserializes a settlement receipt. Parse failures are
// reported as model.ReceiptParseError so the listener can apply its
// drop-and-log policy.
func ParseReceipt(raw []byte) (*ReceiptDocument, error) {
	var doc ReceiptDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, model.ReceiptParseError{Err: err}
	}
	if doc.PaymentRef == "" {
		return nil, model.ReceiptParseError{Err: errMissingPaymentRef}
	}
	if _, ok := model.Severity(doc.Severity).Status(); !ok {
		return nil, model.ReceiptParseError{Err: errUnknownSeverity}
	}
	return &doc, nil
}

// MarshalReceipt serializes a receipt document. Used by tests and tooling to
// exercise the fixture round-trip; the production flow only parses receipts.
func MarshalReceipt(doc *ReceiptDocument) ([]byte, error) {
	return xml.MarshalIndent(doc, "", "  ")
}

var (
	errMissingPaymentRef = xmlError("receipt has no paymentRef")
	errUnknownSeverity   = xmlError("receipt severity is not a known code")
)

type xmlError string

func (e xmlError) Error() string { return string(e) }
